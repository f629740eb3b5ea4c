package shell

import (
	"context"
	"sync"
	"time"

	"admin-dashboard/internal/telemetry"
)

type session struct {
	shell    *Shell
	lastSeen time.Time
}

// Registry keeps one Shell per browser session and forgets sessions that
// have been idle longer than the TTL.
type Registry struct {
	newShell func() *Shell
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRegistry(ttl time.Duration, newShell func() *Shell) *Registry {
	return &Registry{
		newShell: newShell,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the shell of the session, creating it when the id is new or
// has expired.
func (r *Registry) Get(id string) (*Shell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[id]; ok && !r.expired(s, now) {
		s.lastSeen = now
		return s.shell, false
	}
	s := &session{shell: r.newShell(), lastSeen: now}
	r.sessions[id] = s
	telemetry.SetActiveSessions(len(r.sessions))
	return s.shell, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	telemetry.SetActiveSessions(len(r.sessions))
	return removed
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
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

func (r *Registry) expired(s *session, now time.Time) bool {
	return r.ttl > 0 && now.Sub(s.lastSeen) > r.ttl
}
