// Package launcher assembles the isolation flags for a run and spawns the
// container engine CLI as a subprocess. Isolation is fixed policy: clients
// only ever influence the memory ceiling, and that value arrives clamped.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/runbox-dev/runbox/internal/engine"
)

// ContainerWorkDir is the fixed in-container mount point and working
// directory for the guest workspace.
const ContainerWorkDir = "/workspace"

// Policy is the engine-level isolation applied to every run.
type Policy struct {
	Binary      string
	CPULimit    float64
	PidsLimit   int
	TmpfsBytes  int64
	NetworkMode string
}

// Spec describes one run to launch.
type Spec struct {
	RunID         string
	ContainerName string
	Image         string
	MemoryMb      int
	WorkspaceDir  string
	Argv          []string
}

type Launcher struct {
	policy Policy
}

func New(policy Policy) *Launcher {
	if policy.Binary == "" {
		policy.Binary = "docker"
	}
	return &Launcher{policy: policy}
}

// ContainerName derives the engine container name for a run. The name is
// the out-of-band kill handle, so it must be reconstructible from the run id.
func ContainerName(runID string) string {
	return "runbox-" + runID
}

// BuildArgs assembles the full engine CLI argument list for a run.
func (l *Launcher) BuildArgs(spec Spec) []string {
	args := []string{
		"run", "--rm", "-i",
		"--name", spec.ContainerName,
		"--label", engine.ManagedLabel + "=true",
		"--label", engine.RunIDLabel + "=" + spec.RunID,
		"--network", l.policy.NetworkMode,
		"--cpus", fmt.Sprintf("%.2f", l.policy.CPULimit),
		"--memory", fmt.Sprintf("%dm", spec.MemoryMb),
		"--memory-swap", fmt.Sprintf("%dm", spec.MemoryMb),
		"--pids-limit", fmt.Sprintf("%d", l.policy.PidsLimit),
		"--cap-drop=ALL",
		"--security-opt", "no-new-privileges",
		"--read-only",
		// exec-capable: interpreters JIT and write temp artifacts here
		"--tmpfs", fmt.Sprintf("/tmp:rw,exec,nosuid,size=%d", l.policy.TmpfsBytes),
		"-v", spec.WorkspaceDir + ":" + ContainerWorkDir,
		"-w", ContainerWorkDir,
		spec.Image,
	}
	return append(args, spec.Argv...)
}

// Launch spawns the engine subprocess for a run and returns its process
// handle with all three stdio pipes attached.
func (l *Launcher) Launch(ctx context.Context, spec Spec) (*Process, error) {
	cmd := exec.CommandContext(ctx, l.policy.Binary, l.BuildArgs(spec)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", l.policy.Binary, err)
	}

	return &Process{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

// Process owns a spawned engine subprocess. Only the run's lifecycle owner
// may call Wait or Kill.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *Process) Stdout() io.Reader { return p.stdout }
func (p *Process) Stderr() io.Reader { return p.stderr }

// WriteStdin forwards payload bytes to the guest's input stream.
func (p *Process) WriteStdin(data []byte) (int, error) {
	return p.stdin.Write(data)
}

func (p *Process) CloseStdin() error {
	return p.stdin.Close()
}

// Wait blocks until the subprocess exits. The bool reports whether the
// process produced an exit code: a force-killed engine process dies on a
// signal and has none.
func (p *Process) Wait() (int, bool) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, true
		}
	}
	return 0, false
}

// Kill sends a hard termination signal to the local subprocess. This is the
// second line of defense; the primary kill is the engine-side force-remove
// by container name.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
