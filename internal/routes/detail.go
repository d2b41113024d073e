package routes

import (
	"context"
	"fmt"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
	"github.com/nhdewitt/ticker-from-tcp/internal/router"
	"github.com/nhdewitt/ticker-from-tcp/internal/view"
)

// Detail serves "/<TICKER>". It matches every single-segment path that is
// not reserved, so it must be declared after the fixed routes.
type Detail struct {
	store   SymbolStore
	view    Renderer
	matches func(string) bool
}

func NewDetail(store SymbolStore, view Renderer, reserved ...string) *Detail {
	reserved = append([]string{"/index.html"}, reserved...)
	return &Detail{
		store:   store,
		view:    view,
		matches: router.SingleSegment(reserved...),
	}
}

func (d *Detail) PathMatches(path string) bool {
	return d.matches(path)
}

func (d *Detail) MethodMatches(method request.Method) bool {
	return method == request.MethodGet
}

func (d *Detail) Handle(ctx context.Context, req *request.Request) (*response.Response, error) {
	ticker, ok := normalizeTicker(req.Path()[1:])
	if !ok {
		msg := "Invalid symbol format"
		if req.AcceptsJSON() {
			return jsonError(response.StatusBadRequest, msg)
		}
		return d.errorPage(response.StatusBadRequest, msg)
	}

	sym, found, err := d.store.ByTicker(ctx, ticker)
	if err != nil {
		return nil, storeError(err)
	}

	if req.AcceptsJSON() {
		if !found {
			return jsonError(response.StatusNotFound, fmt.Sprintf("Symbol '%s' not found", ticker))
		}
		return response.OK().WithJSON(sym)
	}

	if !found {
		return d.errorPage(response.StatusNotFound, fmt.Sprintf("Symbol '%s' not found", ticker))
	}
	html, err := d.view.Render(view.Detail, view.DetailData{Symbol: sym})
	if err != nil {
		return nil, templateError(err)
	}
	return response.OK().WithHTML(html), nil
}

func (d *Detail) errorPage(status response.StatusCode, msg string) (*response.Response, error) {
	html, err := d.view.Render(view.Error, view.ErrorData{Message: msg})
	if err != nil {
		return nil, templateError(err)
	}
	return response.NewStatus(status).WithHTML(html), nil
}
