package session

import (
	"context"
	"time"

	"github.com/runbox-dev/runbox/protocol"
)

// removeTimeout bounds the engine-side force-remove during termination.
const removeTimeout = 10 * time.Second

// terminate begins teardown of a session. Every termination trigger funnels
// through here; the stopped gate makes repeats free. The container is killed
// through the engine first (the name works even when the local handle does
// not), then the local subprocess, and a grace timer guarantees the terminal
// transition even if no exit notification ever arrives.
func (m *Manager) terminate(s *Session) {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	s.forced.Store(true)

	if s.timer != nil {
		s.timer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	if err := m.engine.RemoveByName(ctx, s.ContainerName); err != nil {
		m.logger.Warn("container remove failed", "run_id", s.RunID, "container", s.ContainerName, "error", err)
	}

	if s.proc != nil {
		if err := s.proc.Kill(); err != nil {
			m.logger.Debug("process kill failed", "run_id", s.RunID, "error", err)
		}
		time.AfterFunc(m.grace, func() {
			m.finish(s, nil)
		})
		return
	}

	// Nothing was spawned; go terminal immediately.
	m.finish(s, nil)
}

// finish is the single terminal transition. Exactly one caller wins the
// closed gate; it emits the exit message (code withheld for forced kills),
// evicts the session and releases the connection's claim on the run.
func (m *Manager) finish(s *Session, code *int) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.stopped.Store(true)

	if s.timer != nil {
		s.timer.Stop()
	}

	if s.forced.Load() {
		code = nil
	}
	if s.Conn.IsOpen() {
		s.Conn.Send(protocol.Exit(s.RunID, code))
	}

	m.registry.Evict(s.RunID)
	s.Conn.RemoveRun(s.RunID)
	close(s.done)

	if code != nil {
		m.logger.Info("run finished", "run_id", s.RunID, "exit_code", *code)
	} else {
		m.logger.Info("run finished", "run_id", s.RunID, "forced", s.forced.Load())
	}
}

// watch waits for the engine subprocess to exit and drives the session to
// its terminal state. Both relay pumps must drain before Wait may run.
func (m *Manager) watch(s *Session) {
	s.relayWG.Wait()

	code, hasCode := s.proc.Wait()
	if s.stopped.Load() || !hasCode {
		m.finish(s, nil)
		return
	}

	s.stopped.Store(true)
	m.finish(s, &code)
}
