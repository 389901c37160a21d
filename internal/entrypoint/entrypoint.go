// Package entrypoint synthesizes the in-container bootstrap program for a
// guest runtime. Each runtime has its own instrumentation strategy: the
// python bootstrap enforces limits with a line tracer and a wall-clock
// alarm, the node bootstrap runs the script in an isolated vm context with
// an evaluator timeout.
package entrypoint

import (
	"fmt"

	"github.com/runbox-dev/runbox/internal/runconfig"
)

// Entrypoint is the full in-container command for a run: interpreter,
// bootstrap program text, then the entry file and the guest's positional
// arguments. The entry file and args travel as real argv so no user input
// is ever spliced into the program text; only clamped integers are.
type Entrypoint struct {
	Argv []string
}

// Build selects the bootstrap strategy for the config's guest runtime.
func Build(cfg runconfig.RunConfig) (Entrypoint, error) {
	switch cfg.Language {
	case runconfig.LangPython:
		return buildPython(cfg), nil
	case runconfig.LangNode:
		return buildNode(cfg), nil
	default:
		return Entrypoint{}, fmt.Errorf("no entrypoint strategy for language %q", cfg.Language)
	}
}

// alarmSeconds converts the millisecond deadline to whole seconds, rounded
// up, for SIGALRM granularity.
func alarmSeconds(timeLimitMs int) int {
	return (timeLimitMs + 999) / 1000
}
