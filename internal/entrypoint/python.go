package entrypoint

import (
	"strconv"
	"strings"

	"github.com/runbox-dev/runbox/internal/runconfig"
)

// pythonBootstrap runs the entry file under a line tracer that aborts past
// the step budget, with a SIGALRM as the wall-clock backstop. Any uncaught
// exception is reported on stderr with an ERROR: prefix so the guest exits
// normally instead of dying on an unhandled fault.
const pythonBootstrap = `import runpy
import signal
import sys

MAX_STEPS = @MAX_STEPS@
ALARM_SECS = @ALARM_SECS@

_steps = 0

def _trace(frame, event, arg):
    global _steps
    if event == 'line':
        _steps += 1
        if _steps > MAX_STEPS:
            raise RuntimeError('step limit exceeded: ' + str(MAX_STEPS))
    return _trace

def _on_alarm(signum, frame):
    raise RuntimeError('time limit exceeded')

signal.signal(signal.SIGALRM, _on_alarm)
signal.alarm(ALARM_SECS)

entry = sys.argv[1]
sys.argv = sys.argv[1:]
sys.settrace(_trace)
try:
    runpy.run_path(entry, run_name='__main__')
except SystemExit:
    pass
except BaseException as exc:
    sys.settrace(None)
    sys.stderr.write('ERROR: ' + str(exc) + '\n')
finally:
    sys.settrace(None)
    signal.alarm(0)
`

func buildPython(cfg runconfig.RunConfig) Entrypoint {
	code := strings.NewReplacer(
		"@MAX_STEPS@", strconv.Itoa(cfg.MaxSteps),
		"@ALARM_SECS@", strconv.Itoa(alarmSeconds(cfg.TimeLimitMs)),
	).Replace(pythonBootstrap)

	argv := []string{"python3", "-u", "-c", code, cfg.EntryFile}
	return Entrypoint{Argv: append(argv, cfg.Args...)}
}
