package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
)

// Handler executes control requests. Handle may block until the request has
// been carried out; it must return promptly once ctx is done.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) Response

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req Request) Response { return f(ctx, req) }

// Server listens on a unix socket for framed JSON requests. A connection
// may carry any number of request/response round trips.
type Server struct {
	socketPath string
	handler    Handler
	logger     *slog.Logger

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	errc     chan error

	mu sync.Mutex
	// conns maps each open connection to whether a request is in progress.
	conns map[net.Conn]bool
}

// NewServer creates a server that will listen on socketPath and dispatch
// requests to handler.
func NewServer(socketPath string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
		errc:       make(chan error, 1),
		conns:      make(map[net.Conn]bool),
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening. The socket file is created with mode 0600; any
// existing file at the path is removed first.
func (s *Server) Start() error {
	// Remove stale socket file.
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}

	// Set socket permissions to owner-only.
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("control socket listening", "path", s.socketPath)
	return nil
}

// Err delivers the error that stopped the accept loop, if it failed on its
// own rather than through Stop.
func (s *Server) Err() <-chan error {
	return s.errc
}

// Stop closes the listener and every idle connection, waits for handlers
// to return, and removes the socket file. A request already being handled
// still gets its response before its connection closes.
func (s *Server) Stop() {
	s.mu.Lock()
	select {
	case <-s.done:
		// Already stopped.
		s.mu.Unlock()
		return
	default:
	}
	close(s.done)
	for c, busy := range s.conns {
		if !busy {
			c.Close()
		}
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()

	// Clean up socket file.
	os.Remove(s.socketPath)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.logger.Error("control socket accept failed", "error", err)
			select {
			case s.errc <- err:
			default:
			}
			return
		}

		s.mu.Lock()
		if s.stopping() {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = false
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn serves requests on one connection until the peer closes it or
// a framing error occurs. A payload that is not a valid request gets a
// bad_request response and the connection stays open.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var req Request
		err := ReadJSON(conn, &req)
		var decErr *DecodeError
		switch {
		case err == nil:
		case errors.As(err, &decErr):
			s.logger.Warn("rejecting malformed control request", "error", err)
			if werr := WriteJSON(conn, Fail(KindBadRequest, "%v", decErr.Err)); werr != nil {
				return
			}
			continue
		case errors.Is(err, io.EOF):
			return
		default:
			select {
			case <-s.done:
			default:
				s.logger.Warn("closing control connection", "error", err)
			}
			return
		}

		s.setBusy(conn, true)
		s.logger.Debug("control request", "command", req.Command)
		resp := s.handler.Handle(s.ctx, req)
		if err := WriteJSON(conn, resp); err != nil {
			s.logger.Warn("write control response", "error", err)
			return
		}
		if stopped := s.setBusy(conn, false); stopped {
			return
		}
	}
}

// setBusy marks whether a request is in progress on conn and reports
// whether the server is stopping.
func (s *Server) setBusy(conn net.Conn, busy bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = busy
	return s.stopping()
}

func (s *Server) stopping() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
