package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-admin/pkg/logging"
)

// Registry owns the open sessions of this process. Sessions share nothing but
// the Deps; closed sessions are dropped on the next lookup or sweep.
type Registry struct {
	deps   Deps
	ttl    time.Duration
	logger *logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry that evicts sessions idle for longer than ttl.
func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	r := &Registry{
		ttl:      ttl,
		logger:   deps.Logger,
		sessions: make(map[string]*Session),
	}
	deps.Navigator = &registryNavigator{registry: r, next: deps.Navigator}
	r.deps = deps
	return r
}

// Create opens a session and loads its reference data. The session is
// returned even when loading fails; the error is informational.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	s := NewSession(uuid.NewString(), r.deps)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	err := s.Start(ctx)
	return s, err
}

// Get returns an open session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if s.Closed() {
		delete(r.sessions, id)
		return nil, false
	}
	return s, true
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep abandons sessions idle for longer than the TTL and returns how many
// it removed. Sessions in the middle of a submission are left alone.
func (r *Registry) Sweep() int {
	cutoff := r.deps.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		switch {
		case s.Closed():
			delete(r.sessions, id)
		case s.IdleSince().Before(cutoff):
			expired = append(expired, s)
		}
	}
	r.mu.Unlock()

	// Cancel refuses sessions that are submitting or already closed.
	n := 0
	for _, s := range expired {
		if err := s.Cancel(); err != nil {
			continue
		}
		r.logger.Info("booking: session expired", "session_id", s.ID())
		n++
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// registryNavigator forgets finished sessions before passing the signal on.
type registryNavigator struct {
	registry *Registry
	next     Navigator
}

func (n *registryNavigator) BookingComplete(sessionID string, appt Appointment) {
	n.registry.remove(sessionID)
	if n.next != nil {
		n.next.BookingComplete(sessionID, appt)
	}
}

func (n *registryNavigator) Abandoned(sessionID string) {
	n.registry.remove(sessionID)
	if n.next != nil {
		n.next.Abandoned(sessionID)
	}
}

// LogNavigator records terminal session signals in the log.
type LogNavigator struct {
	Logger *logging.Logger
}

func (n LogNavigator) BookingComplete(sessionID string, appt Appointment) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("booking complete", "session_id", sessionID, "appointment_id", appt.ID)
}

func (n LogNavigator) Abandoned(sessionID string) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("booking abandoned", "session_id", sessionID)
}
