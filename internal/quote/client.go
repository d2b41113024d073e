package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"github.com/nhdewitt/ticker-from-tcp/internal/market"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrUnknownSymbol is returned when the API answers with an all-zero
	// quote, which is how it reports tickers it does not know.
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrUpstream      = errors.New("quote API error")
)

// Quote is the Finnhub /quote payload.
type Quote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// ToSymbol maps the quote onto a Symbol for ticker, stamped with now. The
// id is left for the store to assign.
func (q Quote) ToSymbol(ticker string, now time.Time) market.Symbol {
	return market.Symbol{
		Symbol:        ticker,
		Price:         q.Current,
		Change:        q.Change,
		ChangePercent: q.PercentChange,
		HighPrice:     q.High,
		LowPrice:      q.Low,
		OpenPrice:     q.Open,
		PreviousClose: q.PreviousClose,
		LastUpdated:   now.UTC(),
	}
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Dial overrides how connections are made. Nil uses TCP.
	Dial fasthttp.DialFunc
}

// Client fetches quotes. It is safe for concurrent use.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: &fasthttp.Client{
			Name:         "ticker-from-tcp",
			Dial:         cfg.Dial,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
	}
}

// Fetch requests the current quote for ticker. The request is bounded by the
// client timeout and by ctx's deadline, whichever is sooner.
func (c *Client) Fetch(ctx context.Context, ticker string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/quote")
	args := req.URI().QueryArgs()
	args.Set("symbol", ticker)
	args.Set("token", c.apiKey)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return Quote{}, fmt.Errorf("fetching quote for %s: %w", ticker, err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return Quote{}, fmt.Errorf("%w: quote for %s: status %d: %s",
			ErrUpstream, ticker, status, strings.TrimSpace(string(resp.Body())))
	}

	var quote Quote
	if err := json.Unmarshal(resp.Body(), &quote); err != nil {
		return Quote{}, fmt.Errorf("decoding quote for %s: %w", ticker, err)
	}
	if quote == (Quote{}) {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, ticker)
	}
	return quote, nil
}
