package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhdewitt/ticker-from-tcp/internal/market"
	"github.com/nhdewitt/ticker-from-tcp/internal/quote"
)

type Fetcher interface {
	Fetch(ctx context.Context, ticker string) (quote.Quote, error)
}

type Saver interface {
	Save(ctx context.Context, sym market.Symbol) (int64, error)
}

type Config struct {
	Symbols  []string
	Interval time.Duration
	// Delay is waited after each symbol to stay under the API rate limit.
	Delay time.Duration
}

// Service periodically refreshes every configured symbol from the quote API
// into the store.
type Service struct {
	fetcher Fetcher
	saver   Saver
	cfg     Config
	log     zerolog.Logger
	now     func() time.Time
}

func New(fetcher Fetcher, saver Saver, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		saver:   saver,
		cfg:     cfg,
		log:     log.With().Str("component", "syncer").Logger(),
		now:     time.Now,
	}
}

// Run syncs once immediately and then on every interval tick until ctx is
// cancelled. It always returns nil once ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		s.SyncOnce(ctx)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.SyncOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SyncOnce fetches and saves each symbol in order. Failures are logged and
// the symbol skipped. It returns the number of symbols saved.
func (s *Service) SyncOnce(ctx context.Context) int {
	s.log.Info().Int("symbols", len(s.cfg.Symbols)).Msg("starting data sync")

	saved := 0
	for i, ticker := range s.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && !s.wait(ctx) {
			break
		}

		q, err := s.fetcher.Fetch(ctx, ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", ticker).Msg("failed to fetch quote")
			continue
		}

		sym := q.ToSymbol(ticker, s.now())
		id, err := s.saver.Save(ctx, sym)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", ticker).Msg("failed to save quote")
			continue
		}
		saved++
		s.log.Info().
			Str("symbol", ticker).
			Int64("id", id).
			Float64("price", sym.Price).
			Float64("change_percent", sym.ChangePercent).
			Msg("saved quote")
	}

	s.log.Info().Int("saved", saved).Msg("data sync completed")
	return saved
}

func (s *Service) wait(ctx context.Context) bool {
	if s.cfg.Delay <= 0 {
		return true
	}
	t := time.NewTimer(s.cfg.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
