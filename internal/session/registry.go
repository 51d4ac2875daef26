// Package session keeps the live interview sessions in memory and serializes
// access to each one. The navigator requires that one patient turn is fully
// processed before the next is accepted; that obligation is discharged here,
// not in the core.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"triagemd/internal/core"
	"triagemd/pkg"
)

// ErrUnknown is returned for session ids that do not exist or have expired.
var ErrUnknown = errors.New("unknown session")

// State wraps the core session with integration-layer bookkeeping the
// navigator itself does not own.
type State struct {
	Session *core.Session
	// AwaitingReselect is set after a flowchart-switch node; the next
	// patient message restarts flowchart selection instead of advancing.
	AwaitingReselect bool
	// Done marks a finished interview (informational leaf or escalation).
	Done bool
	// Messages counts patient messages for the per-session cap.
	Messages int
}

type entry struct {
	mu    sync.Mutex
	state *State
}

// Registry maps session ids to their state. Sessions expire after a period
// of inactivity; every access refreshes the clock.
type Registry struct {
	cache *gocache.Cache
}

// NewRegistry creates a registry whose sessions live idle for ttl.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Registry{cache: gocache.New(ttl, 10*time.Minute)}
}

// Create starts a new empty session and returns its id.
func (r *Registry) Create(demo pkg.Demographics) string {
	id := uuid.NewString()
	r.cache.SetDefault(id, &entry{state: &State{Session: core.NewSession(id, demo)}})
	return id
}

// Do runs fn with the session's state while holding that session's lock,
// refreshing its expiration. Concurrent requests for the same session id are
// serialized; different sessions proceed independently.
func (r *Registry) Do(id string, fn func(*State) error) error {
	v, ok := r.cache.Get(id)
	if !ok {
		return ErrUnknown
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	r.cache.SetDefault(id, e)
	return fn(e.state)
}
