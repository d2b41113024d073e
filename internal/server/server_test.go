package server

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
	"github.com/nhdewitt/ticker-from-tcp/internal/router"
)

type wireResponse struct {
	statusLine string
	headers    map[string]string
	body       string
}

func parseWire(t *testing.T, raw string) wireResponse {
	t.Helper()
	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok, "no header terminator in %q", raw)
	lines := strings.Split(head, "\r\n")
	w := wireResponse{statusLine: lines[0], headers: map[string]string{}, body: body}
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ": ")
		require.True(t, ok, line)
		w.headers[name] = value
	}
	return w
}

func hello() router.Route {
	return router.Func{
		Path:    router.ExactPath("/"),
		Methods: []request.Method{request.MethodGet},
		Handler: func(context.Context, *request.Request) (*response.Response, error) {
			return response.OK().WithText("hello"), nil
		},
	}
}

func startServer(t *testing.T, cfg Config, routes ...router.Route) *Server {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	cfg.Logger = zerolog.Nop()
	s, err := Serve(cfg, router.New(routes...))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func dial(t *testing.T, s *Server) *net.TCPConn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn.(*net.TCPConn)
}

// roundTrip sends raw, half-closes, and returns everything the server wrote.
func roundTrip(t *testing.T, s *Server, raw string) string {
	t.Helper()
	conn := dial(t, s)
	_, err := io.WriteString(conn, raw)
	require.NoError(t, err)
	require.NoError(t, conn.CloseWrite())
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

func TestServeRequest(t *testing.T) {
	s := startServer(t, Config{}, hello())

	w := parseWire(t, roundTrip(t, s, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 200 OK", w.statusLine)
	assert.Equal(t, "text/plain", w.headers["Content-Type"])
	assert.Equal(t, "5", w.headers["Content-Length"])
	assert.Equal(t, "close", w.headers["Connection"])
	_, err := time.Parse(dateFormat, w.headers["Date"])
	assert.NoError(t, err)
	assert.Equal(t, "hello", w.body)
}

func TestServeBareLF(t *testing.T) {
	s := startServer(t, Config{}, hello())
	w := parseWire(t, roundTrip(t, s, "GET / HTTP/1.1\nHost: localhost\n\n"))
	assert.Equal(t, "HTTP/1.1 200 OK", w.statusLine)
}

func TestNotFound(t *testing.T) {
	s := startServer(t, Config{}, hello())
	for _, raw := range []string{
		"GET /missing HTTP/1.1\r\n\r\n",
		"DELETE / HTTP/1.1\r\n\r\n",
		"PUT /x HTTP/1.1\r\nContent-Length: 2\r\n\r\nhi",
	} {
		w := parseWire(t, roundTrip(t, s, raw))
		assert.Equal(t, "HTTP/1.1 404 Not Found", w.statusLine, raw)
		assert.Equal(t, "0", w.headers["Content-Length"])
		assert.Empty(t, w.body)
	}
}

func TestBadRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := startServer(t, Config{Metrics: m}, hello())

	w := parseWire(t, roundTrip(t, s, "FOO /x HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 400 Bad Request", w.statusLine)
	assert.Contains(t, w.body, "FOO")

	w = parseWire(t, roundTrip(t, s, "GET / HTTP/1.1\r\nBroken header\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 400 Bad Request", w.statusLine)

	w = parseWire(t, roundTrip(t, s, "POST / HTTP/1.1\r\nContent-Length: lots\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 400 Bad Request", w.statusLine)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.parseErrors.WithLabelValues("invalid_method")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.parseErrors.WithLabelValues("invalid_header")))
}

func TestRequireHost(t *testing.T) {
	s := startServer(t, Config{RequireHost: true}, hello())

	w := parseWire(t, roundTrip(t, s, "GET / HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 400 Bad Request", w.statusLine)
	assert.Contains(t, w.body, "host")

	w = parseWire(t, roundTrip(t, s, "GET / HTTP/1.1\r\nHOST: example.com\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 200 OK", w.statusLine)
}

func TestRequestTooLarge(t *testing.T) {
	s := startServer(t, Config{MaxRequestBytes: 64}, hello())

	raw := "GET / HTTP/1.1\r\nX-Filler: " + strings.Repeat("z", 4000) + "\r\n\r\n"
	w := parseWire(t, roundTrip(t, s, raw))
	assert.Equal(t, "HTTP/1.1 413 Payload Too Large", w.statusLine)
	assert.Equal(t, "request exceeds 64 B", w.body)
}

func TestHandlerErrors(t *testing.T) {
	s := startServer(t, Config{},
		router.Func{
			Path:    router.ExactPath("/unavailable"),
			Methods: []request.Method{request.MethodGet},
			Handler: func(context.Context, *request.Request) (*response.Response, error) {
				return nil, router.Errorf(response.StatusServiceUnavailable, errors.New("upstream down"), "quotes unavailable")
			},
		},
		router.Func{
			Path:    router.ExactPath("/broken"),
			Methods: []request.Method{request.MethodGet},
			Handler: func(context.Context, *request.Request) (*response.Response, error) {
				return nil, errors.New("database is locked")
			},
		},
		router.Func{
			Path:    router.ExactPath("/nil"),
			Methods: []request.Method{request.MethodGet},
			Handler: func(context.Context, *request.Request) (*response.Response, error) {
				return nil, nil
			},
		},
	)

	w := parseWire(t, roundTrip(t, s, "GET /unavailable HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 503 Service Unavailable", w.statusLine)
	assert.Equal(t, "quotes unavailable", w.body)

	w = parseWire(t, roundTrip(t, s, "GET /broken HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", w.statusLine)
	assert.Equal(t, "Internal Server Error", w.body)
	assert.NotContains(t, w.body, "locked")

	w = parseWire(t, roundTrip(t, s, "GET /nil HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", w.statusLine)
}

func TestHandlerTimeout(t *testing.T) {
	s := startServer(t, Config{HandlerTimeout: 20 * time.Millisecond}, router.Func{
		Path:    router.ExactPath("/slow"),
		Methods: []request.Method{request.MethodGet},
		Handler: func(ctx context.Context, _ *request.Request) (*response.Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	w := parseWire(t, roundTrip(t, s, "GET /slow HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", w.statusLine)
}

func TestHalfCloseWritesNothing(t *testing.T) {
	s := startServer(t, Config{}, hello())
	assert.Empty(t, roundTrip(t, s, ""))
}

func TestReadTimeout(t *testing.T) {
	s := startServer(t, Config{ReadTimeout: 100 * time.Millisecond}, hello())

	conn := dial(t, s)
	_, err := io.WriteString(conn, "GET / HTTP/1.1\r\nHost: x\r\n")
	require.NoError(t, err)
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "HTTP/1.1 408 Request Timeout\r\n"), string(out))
}

func TestSlowConnectionDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	s := startServer(t, Config{}, hello(), router.Func{
		Path:    router.ExactPath("/wait"),
		Methods: []request.Method{request.MethodGet},
		Handler: func(context.Context, *request.Request) (*response.Response, error) {
			<-release
			return response.OK().WithText("released"), nil
		},
	})

	slow := make(chan string, 1)
	go func() {
		conn, err := net.Dial("tcp", s.Addr().String())
		if err != nil {
			slow <- err.Error()
			return
		}
		defer conn.Close()
		_, _ = io.WriteString(conn, "GET /wait HTTP/1.1\r\n\r\n")
		out, _ := io.ReadAll(conn)
		slow <- string(out)
	}()

	w := parseWire(t, roundTrip(t, s, "GET / HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "hello", w.body)

	close(release)
	select {
	case out := <-slow:
		assert.Equal(t, "released", parseWire(t, out).body)
	case <-time.After(5 * time.Second):
		t.Fatal("slow request never completed")
	}
}

func TestShutdownWaitsForInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := startServer(t, Config{}, router.Func{
		Path:    router.ExactPath("/work"),
		Methods: []request.Method{request.MethodGet},
		Handler: func(context.Context, *request.Request) (*response.Response, error) {
			close(started)
			<-release
			return response.OK().WithText("done"), nil
		},
	})

	result := make(chan string, 1)
	go func() {
		conn, err := net.Dial("tcp", s.Addr().String())
		if err != nil {
			result <- err.Error()
			return
		}
		defer conn.Close()
		_, _ = io.WriteString(conn, "GET /work HTTP/1.1\r\n\r\n")
		out, _ := io.ReadAll(conn)
		result <- string(out)
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = net.Dial("tcp", s.Addr().String())
	require.Error(t, err)

	close(release)
	assert.Equal(t, "done", parseWire(t, <-result).body)
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestMetricsRecorded(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	s := startServer(t, Config{Metrics: m}, hello())

	roundTrip(t, s, "GET / HTTP/1.1\r\n\r\n")
	roundTrip(t, s, "GET /nope HTTP/1.1\r\n\r\n")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.active))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "404")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.connOpened()
		m.connClosed()
		m.parseFailed(errors.New("x"))
		m.observe("GET", response.StatusOK, time.Millisecond)
	})
}

func TestPanickingRouteAnswers500(t *testing.T) {
	s := startServer(t, Config{}, hello(), router.Func{
		Path:    router.ExactPath("/panic"),
		Methods: []request.Method{request.MethodGet},
		Handler: func(context.Context, *request.Request) (*response.Response, error) {
			panic("nil map write")
		},
	})

	w := parseWire(t, roundTrip(t, s, "GET /panic HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", w.statusLine)
	assert.Equal(t, "Internal Server Error", w.body)

	w = parseWire(t, roundTrip(t, s, "GET / HTTP/1.1\r\n\r\n"))
	assert.Equal(t, "hello", w.body)
}

func TestConflictingContentLength(t *testing.T) {
	s := startServer(t, Config{}, hello())
	w := parseWire(t, roundTrip(t, s, "POST / HTTP/1.1\r\nContent-Length: 0\r\nContent-Length: 5\r\n\r\nhello"))
	assert.Equal(t, "HTTP/1.1 400 Bad Request", w.statusLine)
	assert.Contains(t, w.body, "conflicting content-length")
}
