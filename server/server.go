// Package server is an HTTP/1.1 transport for a handler.Handler: it accepts
// connections, frames requests with internal/wire and writes responses back.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/internal/wire"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
)

var errBadHost = errors.New("missing or repeated host header")

// Server serves one listener. Create it with Serve.
type Server struct {
	cfg      Config
	listener net.Listener
	closed   atomic.Bool
	handler  handler.Handler
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup

	now func() time.Time
}

// Serve starts listening on cfg.Address and serves h in the background. It
// returns once the listener is open. Cancelling ctx closes the server.
func Serve(ctx context.Context, cfg Config, h handler.Handler) (*Server, error) {
	s := newServer(cfg, h)

	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return nil, err
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.listen()
	}()
	go func() {
		<-s.ctx.Done()
		s.Close()
	}()

	s.logger.Info("server started", "address", listener.Addr().String())
	return s, nil
}

func newServer(cfg Config, h handler.Handler) *Server {
	if cfg.Address == "" {
		cfg.Address = ":42069"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: h,
		logger:  logger,
		conns:   map[net.Conn]struct{}{},
		now:     time.Now,
	}
}

// Addr returns the address the server listens on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting connections and closes the open ones. Requests
// being served see their context cancelled.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()
	err := s.listener.Close()

	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	return err
}

// Wait blocks until the accept loop and every connection have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) listen() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Error("unable to accept connection", "error", err)
				s.Close()
			}
			return
		}

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			s.handle(conn)
		}()
	}
}

func (s *Server) forget(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("unable to close connection", "error", err)
	}
}

func (s *Server) handle(conn net.Conn) {
	br := bufio.NewReader(conn)
	first := true

	for {
		if !s.setReadDeadline(conn, first) {
			return
		}
		first = false

		head, err := wire.ReadHead(br, s.cfg.MaxHeaderBytes)
		if err != nil {
			if errors.Is(err, io.EOF) || isTimeout(err) || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Debug("bad request head", "remote", conn.RemoteAddr().String(), "error", err)
			s.reject(conn, err)
			return
		}
		// the head is in; the handler gets the read timeout for the body
		if s.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(s.now().Add(s.cfg.ReadTimeout))
		} else {
			conn.SetReadDeadline(time.Time{})
		}

		hostHeader := head.Headers.Values("host")
		if head.Version == "1.1" && (len(hostHeader) != 1 || strings.Contains(hostHeader[0], ",")) {
			// exactly one Host is required
			s.reject(conn, errBadHost)
			return
		}

		body, err := head.Body(br)
		if err != nil {
			s.reject(conn, err)
			return
		}

		req, err := request.New(head.Method, head.Target,
			request.WithHeaders(head.Headers),
			request.WithBody(body),
			request.WithRemoteAddr(conn.RemoteAddr().String()),
			request.WithContext(s.ctx),
		)
		if err != nil {
			s.reject(conn, err)
			return
		}

		if strings.EqualFold(head.Headers.Get("expect"), "100-continue") {
			conn.Write([]byte("HTTP/1.1 100 Continue\r\n\r\n"))
		}

		keepAlive := head.KeepAlive() && s.cfg.KeepAliveTimeout > 0 && !s.closed.Load()
		resp := s.serve(req)
		keepAlive = s.finalize(req, resp, keepAlive)

		if s.cfg.WriteTimeout > 0 {
			conn.SetWriteDeadline(s.now().Add(s.cfg.WriteTimeout))
		}
		if err := resp.Write(conn); err != nil {
			s.logger.Debug("unable to write response", "remote", req.RemoteAddr, "error", err)
			return
		}
		if s.cfg.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Time{})
		}

		if !keepAlive {
			// nothing more is read from conn, so the body is not drained
			conn.Close()
			req.Close()
			return
		}
		// discard what the handler left of the body so the next head can
		// be read
		if err := req.Close(); err != nil {
			return
		}
	}
}

func (s *Server) setReadDeadline(conn net.Conn, first bool) bool {
	timeout := s.cfg.ReadTimeout
	if !first {
		timeout = s.cfg.KeepAliveTimeout
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = s.now().Add(timeout)
	}
	return conn.SetReadDeadline(deadline) == nil
}

// serve runs the handler. Panics that escape it become a 500.
func (s *Server) serve(req *request.Request) (resp response.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("recovered from panic", "panic", rec, "stack", string(debug.Stack()))
			resp = response.Default(response.StatusInternalServerError)
		}
		if resp == nil {
			resp = response.Default(response.StatusInternalServerError)
		}
	}()
	return s.handler(req)
}

// finalize applies the connection level headers and conditional GET. It
// reports whether the connection may stay open.
func (s *Server) finalize(req *request.Request, resp response.Response, keepAlive bool) bool {
	h := resp.GetHeaders()
	h.Set("date", s.now().UTC().Format(http.TimeFormat))

	if resp.GetStatusCode() == response.StatusPayloadTooLarge {
		// the rest of an oversized body is not worth reading
		keepAlive = false
	}

	if resp.BodyKind() == response.BodyStream && !strings.Contains(strings.ToLower(h.Get("transfer-encoding")), "chunked") {
		// the body ends when the connection does
		keepAlive = false
	}

	isGet := req.Method == request.MethodGet || req.Method == request.MethodHead
	if isGet && s.cfg.AutoETag && resp.GetStatusCode() == response.StatusOK &&
		resp.BodyKind() == response.BodyFixed && !h.Has("etag") {
		if data, err := io.ReadAll(resp.GetBody()); err == nil {
			h.Set("etag", response.ETagFor(data))
			resp.WithBody(bytes.NewReader(data))
		}
	}

	if etag, inm := h.Get("etag"), req.Headers.Get("if-none-match"); isGet && etag != "" && response.MatchesETag(inm, etag) {
		h.Remove("content-length")
		h.Remove("content-type")
		h.Remove("transfer-encoding")
		h.Remove("trailer")
		resp.WithStatusCode(response.StatusNotModified).WithBody(nil)
	}

	if req.Method == request.MethodHead || !resp.GetStatusCode().AllowsBody() {
		if h.Has("transfer-encoding") {
			h.Remove("transfer-encoding")
			h.Remove("trailer")
		}
		resp.WithBody(nil)
	}

	if keepAlive {
		h.Remove("connection")
	} else {
		h.Set("connection", "close")
	}
	return keepAlive
}

// reject answers a request that could not be framed and closes the
// connection.
func (s *Server) reject(conn net.Conn, err error) {
	status := response.StatusBadRequest
	switch {
	case errors.Is(err, wire.ErrHeaderTooLarge):
		status = response.StatusRequestHeaderFieldsTooLarge
	case errors.Is(err, wire.ErrUnsupportedTransferEncoding):
		status = response.StatusNotImplemented
	}

	resp := response.Default(status)
	resp.GetHeaders().Set("date", s.now().UTC().Format(http.TimeFormat))
	resp.GetHeaders().Set("connection", "close")
	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(s.now().Add(s.cfg.WriteTimeout))
	}
	resp.Write(conn)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
