package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
	"github.com/nhdewitt/ticker-from-tcp/internal/router"
)

const (
	dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
	// Unread request bytes discarded before closing after an early error,
	// so the peer sees the response instead of a reset.
	maxDrainBytes = 256 << 10
	drainTimeout  = 500 * time.Millisecond
	// methodInvalid labels requests that never parsed.
	methodInvalid = "INVALID"
)

// handle runs one connection through read, parse, route and write, then
// closes it.
func (s *Server) handle(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()

	start := s.now()
	log := s.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	s.cfg.Metrics.connOpened()
	defer s.cfg.Metrics.connClosed()

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(start.Add(s.cfg.ReadTimeout))
	}
	raw, err := request.ReadFrom(conn, s.cfg.MaxRequestBytes)
	if err != nil {
		resp := s.readFailure(log, err)
		if resp == nil {
			return
		}
		s.write(conn, log, methodInvalid, "", resp, start)
		drain(conn)
		return
	}

	req, err := request.Parse(raw)
	if err == nil && s.cfg.RequireHost {
		err = request.RequireHeaders(req, "host")
	}
	if err != nil {
		log.Warn().Err(err).Msg("bad request")
		s.cfg.Metrics.parseFailed(err)
		s.write(conn, log, methodInvalid, "", badRequest(err), start)
		drain(conn)
		return
	}
	log.Debug().Str("method", req.Method().String()).Str("target", req.Target()).Msg("request parsed")

	resp := s.route(log, req)
	s.write(conn, log, req.Method().String(), req.Path(), resp, start)
}

// readFailure maps a ReadFrom error to the response to send, or nil when the
// connection should just be dropped.
func (s *Server) readFailure(log zerolog.Logger, err error) *response.Response {
	var perr *request.ParseError
	var nerr net.Error
	switch {
	case errors.Is(err, request.ErrEmptyRequest):
		log.Debug().Msg("client closed without sending a request")
		return nil
	case errors.Is(err, request.ErrRequestTooLarge):
		log.Warn().Int("limit", s.cfg.MaxRequestBytes).Msg("request too large")
		return response.NewStatus(response.StatusPayloadTooLarge).WithText("request exceeds " + humanize.IBytes(uint64(s.cfg.MaxRequestBytes)))
	case errors.As(err, &perr):
		log.Warn().Err(err).Msg("bad request")
		s.cfg.Metrics.parseFailed(err)
		return badRequest(err)
	case errors.As(err, &nerr) && nerr.Timeout():
		log.Warn().Dur("timeout", s.cfg.ReadTimeout).Msg("timed out reading request")
		return response.NewStatus(response.StatusRequestTimeout)
	default:
		log.Error().Err(err).Msg("error reading request")
		return nil
	}
}

// route runs the Router. A panicking Route is answered with a 500 instead of
// taking the process down.
func (s *Server) route(log zerolog.Logger, req *request.Request) (resp *response.Response) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Interface("panic", p).
				Str("path", req.Path()).
				Str("stack", string(debug.Stack())).
				Msg("route panicked")
			resp = router.ErrorResponse(fmt.Errorf("route panicked: %v", p))
		}
	}()

	ctx := context.Background()
	if s.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.HandlerTimeout)
		defer cancel()
	}

	resp, err := s.router.Route(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("path", req.Path()).Msg("error handling request")
		return router.ErrorResponse(err)
	}
	if resp == nil {
		log.Error().Str("path", req.Path()).Msg("route returned no response")
		return response.NewStatus(response.StatusInternalServerError)
	}
	return resp
}

func (s *Server) write(conn net.Conn, log zerolog.Logger, method, path string, resp *response.Response, start time.Time) {
	resp.WithDefaultHeader("Connection", "close").
		WithDefaultHeader("Date", s.now().UTC().Format(dateFormat))

	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(s.now().Add(s.cfg.WriteTimeout))
	}
	n, err := resp.WriteTo(conn)
	elapsed := s.now().Sub(start)
	s.cfg.Metrics.observe(method, resp.Status(), elapsed)
	if err != nil {
		log.Error().Err(err).Int64("written", n).Msg("error writing response")
		return
	}

	log.Info().
		Str("method", method).
		Str("path", path).
		Int("status", int(resp.Status())).
		Int64("bytes", n).
		Dur("elapsed", elapsed).
		Msg("request served")
}

func badRequest(err error) *response.Response {
	return response.NewStatus(response.StatusBadRequest).WithText(err.Error())
}

// drain half-closes the connection and discards whatever the peer is still
// sending, bounded in time and size.
func drain(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	_ = cw.CloseWrite()
	_ = conn.SetReadDeadline(time.Now().Add(drainTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, maxDrainBytes))
}
