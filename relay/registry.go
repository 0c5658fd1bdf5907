package relay

import (
	"log/slog"
	"sync"

	"chat-relay/domain"

	"github.com/samber/lo"
)

// Registry is the single serialization point for room membership.
// One mutex guards the member set; every join, leave and fan-out
// snapshot goes through it. The mutex protects membership only:
// individual sends happen outside the lock, so one slow or broken
// member can never stall a mutation or delivery to the others.
type Registry struct {
	mu      sync.Mutex
	members map[*Session]struct{}
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		members: make(map[*Session]struct{}),
		log:     log,
	}
}

// Join adds a session to the live set. Every fan-out snapshot taken
// afterwards includes it.
func (r *Registry) Join(s *Session) {
	r.mu.Lock()
	r.members[s] = struct{}{}
	r.mu.Unlock()

	r.log.Info("member joined", "user", s.Username(), "total", r.Len())
}

// Leave removes a session from the live set. It reports whether this
// call performed the removal, so concurrent error paths can decide who
// emits the departure announcement. Calling it again is a no-op.
func (r *Registry) Leave(s *Session) bool {
	r.mu.Lock()
	_, present := r.members[s]
	delete(r.members, s)
	r.mu.Unlock()

	if present {
		r.log.Info("member left", "user", s.Username(), "total", r.Len())
	}
	return present
}

// Announce delivers text verbatim to every member except origin.
func (r *Registry) Announce(origin *Session, text string) {
	r.deliver(origin, text)
}

// Broadcast delivers "<username>: <text>" to every member except the
// sender. Per-sender ordering is inherited from the transport: each
// session's relay loop is sequential, so its broadcasts reach any one
// recipient in production order.
func (r *Registry) Broadcast(sender *Session, text string) {
	r.deliver(sender, domain.ChatLine(sender.Username(), text))
}

// ShutdownAll empties the member set, then sends text to every former
// member and closes its connection. Emptying first keeps the teardown
// from generating a departure announcement per member: each relay loop
// notices its closed transport and finds itself already deregistered.
func (r *Registry) ShutdownAll(text string) {
	r.mu.Lock()
	members := lo.Keys(r.members)
	r.members = make(map[*Session]struct{})
	r.mu.Unlock()

	for _, member := range members {
		if err := member.conn.SendLine(text); err != nil {
			r.log.Warn("shutdown notice not delivered", "user", member.Username(), "error", err)
		}
		_ = member.conn.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// deliver sends one line to every member of the current snapshot except
// skip. A failed send is logged and skipped; the failing member's own
// relay loop will observe the broken transport and deregister itself.
func (r *Registry) deliver(skip *Session, line string) {
	for _, member := range r.snapshot(skip) {
		if err := member.conn.SendLine(line); err != nil {
			r.log.Warn("delivery failed", "user", member.Username(), "error", err)
		}
	}
}

// snapshot returns the current members except skip. Taken under the
// lock so a session mid-removal is either fully in or fully out.
func (r *Registry) snapshot(skip *Session) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(lo.Keys(r.members), func(member *Session, _ int) bool {
		return member != skip
	})
}
