// Package session owns the run lifecycle: it turns an accepted run request
// into a spawned, registered, streaming session and guarantees that every
// session reaches its terminal state exactly once, whatever kills it first.
package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Session is the in-memory record of one active run.
type Session struct {
	RunID         string
	ContainerName string
	Conn          Conn

	proc  Process
	timer *time.Timer

	// relayWG tracks the stdout/stderr pump goroutines; Wait on the process
	// must not run until both pipes have drained.
	relayWG sync.WaitGroup

	// forced marks that termination was requested, so the final exit message
	// carries no code even when the engine process reports one.
	forced atomic.Bool

	// stopped gates entry into termination, closed gates the terminal
	// transition. Both are compare-and-swap so concurrent triggers collapse
	// into a single pass.
	stopped atomic.Bool
	closed  atomic.Bool

	done chan struct{}
}

func newSession(runID, containerName string, conn Conn) *Session {
	return &Session{
		RunID:         runID,
		ContainerName: containerName,
		Conn:          conn,
		done:          make(chan struct{}),
	}
}

// Done is closed once the session has reached its terminal state and has
// been evicted from the registry.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stopped reports whether termination has begun.
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// Registry is the authoritative table of live runs. Stream and kill
// messages resolve their target here; absence means the frame is dropped.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Session)}
}

func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[s.RunID] = s
}

func (r *Registry) Lookup(runID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.runs[runID]
	return s, ok
}

func (r *Registry) Evict(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
}

// Has reports whether a run is currently registered. The janitor uses this
// to tell live containers from orphans.
func (r *Registry) Has(runID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.runs[runID]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}
