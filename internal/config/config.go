package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is assembled once at startup and handed to each component as plain
// values.
type Config struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"42069"`

	FinnhubAPIKey  string        `env:"FINNHUB_API_KEY"`
	FinnhubBaseURL string        `env:"FINNHUB_BASE_URL" envDefault:"https://finnhub.io/api/v1"`
	QuoteTimeout   time.Duration `env:"QUOTE_TIMEOUT" envDefault:"10s"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/stock_tracker.db"`
	StaticDir    string `env:"STATIC_DIR" envDefault:"./static"`

	SyncEnabled     bool          `env:"SYNC_ENABLED" envDefault:"true"`
	Symbols         []string      `env:"SYMBOLS" envSeparator:"," envDefault:"AAPL,MSFT,GOOGL"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"5m"`
	FetchDelay      time.Duration `env:"SYMBOL_FETCH_DELAY" envDefault:"12s"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	HandlerTimeout  time.Duration `env:"HANDLER_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxRequestBytes int           `env:"MAX_REQUEST_BYTES" envDefault:"1048576"`
	RequireHost     bool          `env:"REQUIRE_HOST" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.Symbols = normalizeSymbols(cfg.Symbols)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.SyncEnabled && len(c.Symbols) > 0 {
		if c.FinnhubAPIKey == "" {
			errs = append(errs, errors.New("FINNHUB_API_KEY must be set when syncing symbols"))
		}
		if c.RefreshInterval <= 0 {
			errs = append(errs, errors.New("REFRESH_INTERVAL must be positive"))
		}
	}
	if c.FetchDelay < 0 {
		errs = append(errs, errors.New("SYMBOL_FETCH_DELAY must not be negative"))
	}
	if c.MaxRequestBytes <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BYTES must be positive"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH must be set"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or console", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Addr is the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func normalizeSymbols(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
