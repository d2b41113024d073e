package routes

import (
	"context"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
	"github.com/nhdewitt/ticker-from-tcp/internal/view"
)

// Root serves the watchlist page, or the list as JSON when asked for it.
type Root struct {
	store SymbolStore
	view  Renderer
}

func NewRoot(store SymbolStore, view Renderer) *Root {
	return &Root{store: store, view: view}
}

func (rt *Root) PathMatches(path string) bool {
	return path == "/" || path == "/index.html"
}

func (rt *Root) MethodMatches(method request.Method) bool {
	return method == request.MethodGet
}

func (rt *Root) Handle(ctx context.Context, req *request.Request) (*response.Response, error) {
	symbols, err := rt.store.All(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	if req.AcceptsJSON() {
		return response.OK().WithJSON(nonNil(symbols))
	}

	html, err := rt.view.Render(view.Index, view.IndexData{Symbols: symbols})
	if err != nil {
		return nil, templateError(err)
	}
	return response.OK().WithHTML(html), nil
}
