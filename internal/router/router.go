package router

import (
	"context"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
)

// Route is a unit of application logic that claims some (path, method)
// pairs. PathMatches and MethodMatches must be pure. A Route is shared by
// every connection, so Handle must be safe for concurrent use.
type Route interface {
	PathMatches(path string) bool
	MethodMatches(method request.Method) bool
	Handle(ctx context.Context, req *request.Request) (*response.Response, error)
}

// Router dispatches to the first Route that matches both path and method.
// Declaration order is the only tie-break between overlapping routes.
type Router struct {
	routes []Route
}

func New(routes ...Route) *Router {
	return &Router{routes: append([]Route(nil), routes...)}
}

// Route returns the matching Route's result unmodified, or an empty 404 when
// nothing matches. A failing Route never falls through to a later one.
func (r *Router) Route(ctx context.Context, req *request.Request) (*response.Response, error) {
	for _, route := range r.routes {
		if route.PathMatches(req.Path()) && route.MethodMatches(req.Method()) {
			return route.Handle(ctx, req)
		}
	}
	return response.NewStatus(response.StatusNotFound), nil
}

func (r *Router) Len() int {
	return len(r.routes)
}
