// Package routes holds the application's Route implementations.
package routes

import (
	"context"
	"regexp"
	"strings"

	"github.com/nhdewitt/ticker-from-tcp/internal/market"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
	"github.com/nhdewitt/ticker-from-tcp/internal/router"
)

// SymbolStore is the persistence the routes need.
type SymbolStore interface {
	Save(ctx context.Context, sym market.Symbol) (int64, error)
	All(ctx context.Context) ([]market.Symbol, error)
	ByTicker(ctx context.Context, ticker string) (market.Symbol, bool, error)
}

type Renderer interface {
	Render(name string, data any) (string, error)
}

// StaticPrefixes are the path families served from the static directory.
var StaticPrefixes = []string{"/css/", "/js/", "/images/"}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)

// normalizeTicker upper-cases a path segment and checks it looks like a ticker.
func normalizeTicker(segment string) (string, bool) {
	t := strings.ToUpper(segment)
	return t, tickerPattern.MatchString(t)
}

type errorBody struct {
	Error string `json:"error"`
}

func jsonError(status response.StatusCode, msg string) (*response.Response, error) {
	return response.NewStatus(status).WithJSON(errorBody{Error: msg})
}

func templateError(err error) error {
	return router.Errorf(response.StatusInternalServerError, err, "template error")
}

func storeError(err error) error {
	return router.Errorf(response.StatusInternalServerError, err, "failed to load symbols")
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil(symbols []market.Symbol) []market.Symbol {
	if symbols == nil {
		return []market.Symbol{}
	}
	return symbols
}
