// Package chat keeps the transcript of every open course page in memory.
//
// A view is opened when the detail page renders, held while the page's
// session socket is connected and released when the socket closes. Views
// that are not held are dropped by the idle sweeper.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/online-courses/internal/domain"
	"github.com/google/uuid"
)

// ErrViewNotFound is returned for an unknown or released view.
var ErrViewNotFound = errors.New("chat view not found")

// Responder produces the assistant's reply to a user message.
type Responder interface {
	Reply(courseID int, message string) string
}

// PlaceholderResponder answers every message with the fixed placeholder.
type PlaceholderResponder struct{}

// Reply implements Responder.
func (PlaceholderResponder) Reply(int, string) string {
	return domain.ChatPlaceholder
}

type view struct {
	courseID   int
	ownerID    string
	transcript *domain.Transcript
	lastUsed   time.Time
	held       bool
}

// Registry maps view IDs to transcripts.
type Registry struct {
	mu        sync.Mutex
	views     map[string]*view
	responder Responder
	now       func() time.Time
}

// NewRegistry creates an empty registry. A nil responder uses the placeholder.
func NewRegistry(responder Responder) *Registry {
	if responder == nil {
		responder = PlaceholderResponder{}
	}
	return &Registry{
		views:     make(map[string]*view),
		responder: responder,
		now:       time.Now,
	}
}

// Open creates a view for courseID owned by ownerID and returns its ID with
// the seeded transcript.
func (r *Registry) Open(courseID int, ownerID string) (string, []domain.ChatTurn) {
	id := uuid.NewString()
	v := &view{
		courseID:   courseID,
		ownerID:    ownerID,
		transcript: domain.NewTranscript(),
		lastUsed:   r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[id] = v
	return id, v.transcript.Turns()
}

// Send appends message and the assistant reply to the view and returns the
// turns added: two, or none for blank input.
func (r *Registry) Send(viewID, ownerID string, courseID int, message string) ([]domain.ChatTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, err := r.lookup(viewID, ownerID, courseID)
	if err != nil {
		return nil, err
	}
	v.lastUsed = r.now()
	return v.transcript.Send(message, r.responder.Reply(courseID, message)), nil
}

// lookup must be called with r.mu held. A view belonging to another user or
// course is reported as not found.
func (r *Registry) lookup(viewID, ownerID string, courseID int) (*view, error) {
	v, ok := r.views[viewID]
	if !ok || v.ownerID != ownerID || v.courseID != courseID {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// Hold pins a view against the idle sweeper until it is released. It
// reports whether the view exists.
func (r *Registry) Hold(viewID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[viewID]
	if !ok {
		return false
	}
	v.held = true
	return true
}

// Release drops a view. It reports whether the view existed.
func (r *Registry) Release(viewID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[viewID]; !ok {
		return false
	}
	delete(r.views, viewID)
	return true
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep drops views that are not held and have been idle for longer than
// ttl. It returns how many it removed.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, v := range r.views {
		if !v.held && v.lastUsed.Before(cutoff) {
			delete(r.views, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(ttl); n > 0 {
					slog.Info("Chat sweeper dropped idle views", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
