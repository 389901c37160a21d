package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/runbox-dev/runbox/internal/config"
	"github.com/runbox-dev/runbox/internal/entrypoint"
	"github.com/runbox-dev/runbox/internal/launcher"
	"github.com/runbox-dev/runbox/internal/runconfig"
	"github.com/runbox-dev/runbox/protocol"
)

// Manager creates, addresses and tears down run sessions. All client frames
// for a connection are dispatched to it from a single goroutine; termination
// triggers (kill frames, deadlines, connection loss, process exit) arrive
// concurrently and are serialized by the session's own gates.
type Manager struct {
	images    map[string]string
	grace     time.Duration
	registry  *Registry
	launcher  Launcher
	engine    Engine
	workspace WorkspaceResolver
	logger    *slog.Logger
}

func NewManager(cfg *config.Config, reg *Registry, l Launcher, eng Engine, ws WorkspaceResolver, logger *slog.Logger) *Manager {
	return &Manager{
		images:    cfg.Images,
		grace:     time.Duration(cfg.GraceMs) * time.Millisecond,
		registry:  reg,
		launcher:  l,
		engine:    eng,
		workspace: ws,
		logger:    logger,
	}
}

// Start handles a run request end to end: normalize, resolve the workspace,
// spawn, register and begin streaming. Failures before the spawn produce a
// single error message and leave no session behind; a failed spawn tears the
// freshly registered session down through the normal termination path.
func (m *Manager) Start(ctx context.Context, conn Conn, msg protocol.ClientMessage) {
	cfg := runconfig.Normalize(msg, m.images)

	dir, err := m.workspace.Resolve(cfg.User)
	if err != nil {
		conn.Send(protocol.Error(fmt.Sprintf("workspace: %v", err)))
		return
	}

	ok, err := m.workspace.EntryExists(dir, cfg.EntryFile)
	if err != nil {
		conn.Send(protocol.Error(fmt.Sprintf("entry file: %v", err)))
		return
	}
	if !ok {
		conn.Send(protocol.Error(fmt.Sprintf("entry file not found: %s", cfg.EntryFile)))
		return
	}

	ep, err := entrypoint.Build(cfg)
	if err != nil {
		conn.Send(protocol.Error(fmt.Sprintf("entrypoint: %v", err)))
		return
	}

	runID := uuid.New().String()[:12]
	sess := newSession(runID, launcher.ContainerName(runID), conn)

	// Register before the container can exist so the janitor never mistakes
	// a freshly launched container for an orphan.
	m.registry.Register(sess)
	conn.AddRun(runID)

	proc, err := m.launcher.Launch(ctx, launcher.Spec{
		RunID:         runID,
		ContainerName: sess.ContainerName,
		Image:         cfg.Image,
		MemoryMb:      cfg.MemoryMb,
		WorkspaceDir:  dir,
		Argv:          ep.Argv,
	})
	if err != nil {
		m.logger.Error("spawn failed", "run_id", runID, "error", err)
		conn.Send(protocol.Error(fmt.Sprintf("failed to start run: %v", err)))
		m.terminate(sess)
		return
	}
	sess.proc = proc

	m.logger.Info("run started",
		"run_id", runID,
		"user", cfg.User,
		"language", cfg.Language,
		"entry", cfg.EntryFile,
		"time_limit_ms", cfg.TimeLimitMs,
		"memory_mb", cfg.MemoryMb,
	)

	conn.Send(protocol.Started(runID))

	// Host-side deadline: the in-guest limits fire first in the normal case,
	// this backstop fires when the guest never gets the chance.
	deadline := time.Duration(cfg.TimeLimitMs)*time.Millisecond + m.grace
	sess.timer = time.AfterFunc(deadline, func() {
		m.logger.Warn("run deadline exceeded", "run_id", runID)
		m.terminate(sess)
	})

	sess.relayWG.Add(2)
	go m.relay(sess, proc.Stdout(), protocol.ServerStdout)
	go m.relay(sess, proc.Stderr(), protocol.ServerStderr)
	go m.watch(sess)
}

// Stdin forwards input bytes to a run's guest process. Frames for unknown
// runs or from a connection that does not own the run are dropped without a
// reply.
func (m *Manager) Stdin(conn Conn, runID, data string) {
	sess, ok := m.registry.Lookup(runID)
	if !ok || sess.Conn != conn {
		return
	}
	if sess.proc == nil || sess.stopped.Load() {
		return
	}
	if _, err := sess.proc.WriteStdin([]byte(data)); err != nil {
		m.logger.Debug("stdin write failed", "run_id", runID, "error", err)
	}
}

// Kill handles an explicit kill frame. Same addressing rules as Stdin;
// repeated kills collapse into one termination.
func (m *Manager) Kill(conn Conn, runID string) {
	sess, ok := m.registry.Lookup(runID)
	if !ok || sess.Conn != conn {
		return
	}
	m.logger.Info("run killed by client", "run_id", runID)
	m.terminate(sess)
}

// Cancel terminates a run without an ownership check. The gateway calls it
// for every run a closing connection still owns.
func (m *Manager) Cancel(runID string) {
	sess, ok := m.registry.Lookup(runID)
	if !ok {
		return
	}
	m.terminate(sess)
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	return m.registry.Len()
}
