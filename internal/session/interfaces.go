package session

import (
	"context"
	"io"

	"github.com/runbox-dev/runbox/internal/launcher"
	"github.com/runbox-dev/runbox/protocol"
)

// Conn is the owning client connection of one or more runs. Implemented by
// the gateway; message delivery is best-effort and must drop silently once
// the connection has closed.
type Conn interface {
	Send(msg protocol.ServerMessage)
	IsOpen() bool
	AddRun(runID string)
	RemoveRun(runID string)
}

// Launcher spawns the isolation subprocess for a run.
type Launcher interface {
	Launch(ctx context.Context, spec launcher.Spec) (Process, error)
}

// Process is the handle of a spawned isolation subprocess. Ownership is
// exclusive: only the session lifecycle may Wait or Kill.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	WriteStdin(data []byte) (int, error)
	CloseStdin() error
	Wait() (code int, hasCode bool)
	Kill() error
}

// Engine is the out-of-band control path to the container engine, used to
// force-kill a run by container name even when the local process handle is
// unusable.
type Engine interface {
	RemoveByName(ctx context.Context, name string) error
}

// WorkspaceResolver maps a user identifier to its confined workspace
// directory and answers entry-file existence checks.
type WorkspaceResolver interface {
	Resolve(user string) (string, error)
	EntryExists(dir, entry string) (bool, error)
}

// EngineLauncher adapts the concrete CLI launcher to the Launcher interface.
type EngineLauncher struct {
	Launcher *launcher.Launcher
}

func (e EngineLauncher) Launch(ctx context.Context, spec launcher.Spec) (Process, error) {
	proc, err := e.Launcher.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	return proc, nil
}
