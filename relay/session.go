package relay

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"chat-relay/domain"

	"github.com/google/uuid"
)

// Session is the live, authenticated, in-room representation of one
// connected user. It exclusively owns its Conn; the registry only holds
// a reference for fan-out.
type Session struct {
	id       uuid.UUID
	username string
	conn     *Conn
	registry *Registry
	log      *slog.Logger

	// hasLeft guards the terminal transition: no matter how many
	// concurrent error paths observe a failure, deregistration and the
	// transport close run exactly once.
	hasLeft atomic.Bool

	// emptyLineTolerance is the number of consecutive empty lines
	// accepted before the peer is presumed dead.
	emptyLineTolerance int
}

func NewSession(username string, conn *Conn, registry *Registry, log *slog.Logger, emptyLineTolerance int) *Session {
	id := uuid.New()
	return &Session{
		id:                 id,
		username:           username,
		conn:               conn,
		registry:           registry,
		log:                log.With("session", id.String(), "user", username, "addr", conn.RemoteAddr().String()),
		emptyLineTolerance: emptyLineTolerance,
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Username() string {
	return s.username
}

// Run is the relay loop: one sequential reader per session. Each
// received line is either the terminate token, an empty keep-alive
// probe, or free text forwarded verbatim to the room.
func (s *Session) Run() {
	emptyLines := 0
	for !s.hasLeft.Load() {
		line, err := s.conn.ReceiveLine()
		if err != nil {
			// Reset, broken pipe, EOF, closed descriptor: implicit
			// leave. The transport is unusable, so no final notice.
			s.log.Debug("read failed", "error", err)
			s.Close(false)
			return
		}

		switch {
		case line == domain.TerminateToken:
			s.log.Info("terminate requested")
			s.Close(true)
			return
		case strings.TrimSpace(line) == "":
			emptyLines++
			if emptyLines >= s.emptyLineTolerance {
				s.log.Info("peer presumed dead", "empty_lines", emptyLines)
				s.Close(true)
				return
			}
		default:
			emptyLines = 0
			s.registry.Broadcast(s, line)
		}
	}
}

// Close runs the terminal transition: deregister, announce the
// departure to the remaining members, optionally send a final
// "Disconnected" notice, release the transport. Safe to call from
// concurrent triggers; only the first call does anything.
//
// canNotifySelf must be false when the transport is already known
// unusable, to avoid a secondary write failure during teardown.
func (s *Session) Close(canNotifySelf bool) {
	if !s.hasLeft.CompareAndSwap(false, true) {
		return
	}

	if s.registry.Leave(s) {
		s.registry.Announce(s, domain.LeftLine(s.username))
	}

	if canNotifySelf {
		if err := s.conn.SendLine(domain.NoticeDisconnected); err != nil {
			s.log.Debug("final notice not delivered", "error", err)
		}
	}

	_ = s.conn.Close()
}
