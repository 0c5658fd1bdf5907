package relay

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
)

// Options configures a Server.
type Options struct {
	Host string
	Port int

	// BindAttempts is how many consecutive ports are tried when the
	// requested one is already in use.
	BindAttempts int

	// EmptyLineTolerance is forwarded to every admitted Session.
	EmptyLineTolerance int
}

// Server owns the listener, the registry and the accept loop. Each
// accepted connection gets one goroutine that runs the handshake and,
// on admission, the session relay loop to completion. Per-connection
// failures never reach the accept loop.
type Server struct {
	opts      Options
	log       *slog.Logger
	registry  *Registry
	handshake *Handshake
	listener  net.Listener
}

func NewServer(authService services.IAuthService, opts Options, log *slog.Logger) *Server {
	if opts.BindAttempts < 1 {
		opts.BindAttempts = 1
	}
	if opts.EmptyLineTolerance < 1 {
		opts.EmptyLineTolerance = 3
	}
	return &Server{
		opts:      opts,
		log:       log,
		registry:  NewRegistry(log),
		handshake: NewHandshake(authService, log),
	}
}

// Listen binds the first free port starting at opts.Port. A port
// already in use moves on to the next candidate; any other bind error
// is fatal. Returns errors.ErrBindExhausted when every candidate is
// taken.
func (s *Server) Listen() error {
	for attempt := 0; attempt < s.opts.BindAttempts; attempt++ {
		addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port+attempt)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			s.listener = listener
			s.log.Info("server listening", "addr", listener.Addr().String())
			return nil
		}
		if stderrors.Is(err, syscall.EADDRINUSE) {
			s.log.Warn("port already in use, trying next", "addr", addr)
			continue
		}
		return fmt.Errorf("bind failed on %s: %w", addr, err)
	}
	return errors.ErrBindExhausted
}

// Addr returns the bound address; nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Registry() *Registry {
	return s.registry
}

// Serve runs the accept loop until the listener is closed. Accept
// errors other than closure are logged and the loop continues.
func (s *Server) Serve() error {
	for {
		raw, err := s.listener.Accept()
		if err != nil {
			if stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		go s.handleConnection(raw)
	}
}

// Shutdown stops accepting, notifies every member and closes their
// connections. Relay loops blocked in a read notice the closed
// transport on their next return and tear themselves down.
func (s *Server) Shutdown(notice string) {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.registry.ShutdownAll(notice)
}

func (s *Server) handleConnection(raw net.Conn) {
	conn := NewConn(raw)
	s.log.Info("connection accepted", "addr", conn.RemoteAddr().String())

	username, err := s.handshake.Run(conn)
	if err != nil {
		if rejection, ok := AsRejection(err); ok {
			s.log.Info("connection rejected", "addr", conn.RemoteAddr().String(), "reason", rejection.Reason)
			if sendErr := conn.SendLine(domain.RejectLine(rejection.Reason)); sendErr != nil {
				s.log.Debug("rejection not delivered", "error", sendErr)
			}
		} else {
			s.log.Debug("handshake aborted", "addr", conn.RemoteAddr().String(), "error", err)
		}
		_ = conn.Close()
		return
	}

	session := NewSession(username, conn, s.registry, s.log, s.opts.EmptyLineTolerance)
	s.registry.Join(session)
	s.registry.Announce(session, domain.JoinedLine(username))

	// The accepting goroutine becomes the session's relay worker.
	session.Run()
}
