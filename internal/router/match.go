package router

import (
	"context"
	"slices"
	"strings"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
)

// ExactPath matches any of the given paths exactly.
func ExactPath(paths ...string) func(string) bool {
	return func(p string) bool {
		return slices.Contains(paths, p)
	}
}

// PrefixPath matches paths starting with any of the given prefixes.
func PrefixPath(prefixes ...string) func(string) bool {
	return func(p string) bool {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				return true
			}
		}
		return false
	}
}

// SingleSegment matches "/<segment>" with a non-empty segment and no further
// slashes, except for the reserved paths given.
func SingleSegment(reserved ...string) func(string) bool {
	return func(p string) bool {
		if len(p) < 2 || p[0] != '/' || strings.Contains(p[1:], "/") {
			return false
		}
		return !slices.Contains(reserved, p)
	}
}

// Func adapts plain functions to the Route contract.
type Func struct {
	Path    func(string) bool
	Methods []request.Method
	Handler func(ctx context.Context, req *request.Request) (*response.Response, error)
}

func (f Func) PathMatches(path string) bool {
	return f.Path != nil && f.Path(path)
}

func (f Func) MethodMatches(method request.Method) bool {
	return slices.Contains(f.Methods, method)
}

func (f Func) Handle(ctx context.Context, req *request.Request) (*response.Response, error) {
	return f.Handler(ctx, req)
}
