package auth

import (
	"sync"

	"github.com/ashureev/online-courses/internal/domain"
)

// EventKind describes a session transition.
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
	EventExpired   EventKind = "expired"
)

// Event is delivered to subscribers of a session token. Session is nil for
// every transition to "no session".
type Event struct {
	Kind    EventKind
	Token   string
	Session *domain.Session
}

// Broker fans session events out to per-token subscribers.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]func(Event)
	nextID uint64
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]func(Event))}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	broker *Broker
	token  string
	id     uint64
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.broker.remove(s.token, s.id)
	})
}

// Subscribe registers fn for events on token.
func (b *Broker) Subscribe(token string, fn func(Event)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if _, ok := b.subs[token]; !ok {
		b.subs[token] = make(map[uint64]func(Event))
	}
	b.subs[token][id] = fn
	return &Subscription{broker: b, token: token, id: id}
}

func (b *Broker) remove(token string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[token]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(b.subs, token)
	}
}

// Publish delivers ev to every subscriber of ev.Token. Callbacks run on the
// publishing goroutine and must not block.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs[ev.Token]))
	for _, fn := range b.subs[ev.Token] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
