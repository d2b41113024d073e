package routes

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
	"github.com/nhdewitt/ticker-from-tcp/internal/router"
)

var contentTypes = map[string]string{
	".css":   "text/css",
	".js":    "application/javascript",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".json":  "application/json",
	".woff2": "font/woff2",
}

// Static serves files under the static prefixes from dir. Paths cannot
// escape dir.
type Static struct {
	dir     string
	matches func(string) bool
}

func NewStatic(dir string) *Static {
	return &Static{dir: dir, matches: router.PrefixPath(StaticPrefixes...)}
}

func (s *Static) PathMatches(p string) bool {
	return s.matches(p)
}

func (s *Static) MethodMatches(method request.Method) bool {
	return method == request.MethodGet
}

func (s *Static) Handle(_ context.Context, req *request.Request) (*response.Response, error) {
	name := strings.TrimPrefix(req.Path(), "/")

	f, err := os.OpenInRoot(s.dir, name)
	if err != nil {
		return response.NewStatus(response.StatusNotFound), nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return response.NewStatus(response.StatusNotFound), nil
	}

	content, err := io.ReadAll(f)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return response.NewStatus(response.StatusNotFound), nil
		}
		return response.NewStatus(response.StatusInternalServerError), nil
	}
	return response.OK().WithRaw(content, contentType(name)), nil
}

func contentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
