package auth

import (
	"sync"
	"time"

	"github.com/harrylevesque/listqr/internal/models"
)

type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	Refreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Refreshed:
		return "refreshed"
	}
	return "unknown"
}

// SessionEvent is the single "session changed" notification.
// Identity is nil after sign-out.
type SessionEvent struct {
	Kind     EventKind
	Identity *models.Identity
	At       time.Time
}

// Notifier fans session events out to subscribers.
type Notifier struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(SessionEvent)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: map[uint64]func(SessionEvent){}}
}

// Subscribe registers fn and returns a cancel func. Cancel is idempotent.
func (n *Notifier) Subscribe(fn func(SessionEvent)) (cancel func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Publish calls every subscriber outside the lock, in no particular order.
func (n *Notifier) Publish(ev SessionEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	n.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
