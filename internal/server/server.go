package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/router"
)

type Config struct {
	Addr string
	// ReadTimeout bounds reading one request; WriteTimeout bounds writing
	// the response. Zero disables the deadline.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// HandlerTimeout is attached to the context passed to the Router.
	HandlerTimeout time.Duration
	// MaxRequestBytes defaults to request.DefaultMaxBytes.
	MaxRequestBytes int
	// RequireHost rejects requests without a Host header.
	RequireHost bool
	Logger      zerolog.Logger
	// Metrics may be nil.
	Metrics *Metrics
}

// Server accepts connections and serves one request per connection. The
// Router is shared read-only by every connection goroutine.
type Server struct {
	cfg         Config
	listener    net.Listener
	router      *router.Router
	isListening atomic.Bool
	conns       sync.WaitGroup
	done        chan struct{}
	log         zerolog.Logger
	now         func() time.Time
}

// Serve binds cfg.Addr and starts the listener loop in the background.
func Serve(cfg Config, rt *router.Router) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = request.DefaultMaxBytes
	}
	s := &Server{
		cfg:      cfg,
		listener: listener,
		router:   rt,
		done:     make(chan struct{}),
		log:      cfg.Logger.With().Str("component", "server").Logger(),
		now:      time.Now,
	}
	s.isListening.Store(true)
	go s.listen()

	return s, nil
}

// Addr is the bound address, useful when Config.Addr used port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting connections. In-flight connections keep running.
func (s *Server) Close() error {
	if !s.isListening.CompareAndSwap(true, false) {
		return nil
	}

	if s.listener != nil {
		return s.listener.Close()
	}

	return nil
}

// Shutdown stops accepting and waits for in-flight connections to finish.
// Connections are never cancelled; if ctx expires first its error is
// returned and the stragglers are left to complete on their own.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Close()
	<-s.done

	finished := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return err
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}

func (s *Server) listen() {
	defer close(s.done)

	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.isListening.Load() {
				return
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, time.Second)
			}
			s.log.Error().Err(err).Dur("retry_in", backoff).Msg("error accepting connection")
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.conns.Add(1)
		go s.handle(conn)
	}
}
