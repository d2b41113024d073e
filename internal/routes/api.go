package routes

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nhdewitt/ticker-from-tcp/internal/market"
	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
)

const apiPath = "/api/symbols"

// API is the JSON interface over the symbol store:
//
//	GET /api/symbols          list every symbol
//	GET /api/symbols/<T>      one symbol
//	PUT /api/symbols/<T>      upsert a symbol from a JSON body
type API struct {
	store SymbolStore
	now   func() time.Time
}

func NewAPI(store SymbolStore) *API {
	return &API{store: store, now: time.Now}
}

func (a *API) PathMatches(path string) bool {
	return path == apiPath || strings.HasPrefix(path, apiPath+"/")
}

func (a *API) MethodMatches(method request.Method) bool {
	return method == request.MethodGet || method == request.MethodPut
}

type saved struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
}

func (a *API) Handle(ctx context.Context, req *request.Request) (*response.Response, error) {
	rest := strings.TrimPrefix(strings.TrimPrefix(req.Path(), apiPath), "/")

	if rest == "" {
		if req.Method() != request.MethodGet {
			return jsonError(response.StatusMethodNotAllowed, "method not allowed")
		}
		symbols, err := a.store.All(ctx)
		if err != nil {
			return nil, storeError(err)
		}
		return response.OK().WithJSON(nonNil(symbols))
	}

	if strings.Contains(rest, "/") {
		return jsonError(response.StatusNotFound, "not found")
	}
	ticker, ok := normalizeTicker(rest)
	if !ok {
		return jsonError(response.StatusBadRequest, "Invalid symbol format")
	}

	if req.Method() == request.MethodPut {
		return a.put(ctx, ticker, req.Body())
	}

	sym, found, err := a.store.ByTicker(ctx, ticker)
	if err != nil {
		return nil, storeError(err)
	}
	if !found {
		return jsonError(response.StatusNotFound, fmt.Sprintf("Symbol '%s' not found", ticker))
	}
	return response.OK().WithJSON(sym)
}

func (a *API) put(ctx context.Context, ticker string, body []byte) (*response.Response, error) {
	var sym market.Symbol
	if err := json.Unmarshal(body, &sym); err != nil {
		return jsonError(response.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	sym.ID = 0
	sym.Symbol = ticker
	if sym.LastUpdated.IsZero() {
		sym.LastUpdated = a.now()
	}

	id, err := a.store.Save(ctx, sym)
	if err != nil {
		return nil, storeError(err)
	}
	return response.OK().WithJSON(saved{ID: id, Symbol: ticker})
}
