package entrypoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbox-dev/runbox/internal/runconfig"
)

func pythonConfig() runconfig.RunConfig {
	return runconfig.RunConfig{
		Language:    runconfig.LangPython,
		EntryFile:   "main.py",
		Args:        []string{"--verbose", "data.csv"},
		TimeLimitMs: 2500,
		MaxSteps:    5000,
	}
}

func TestBuildPython(t *testing.T) {
	ep, err := Build(pythonConfig())
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(ep.Argv), 5)
	assert.Equal(t, "python3", ep.Argv[0])
	assert.Equal(t, "-u", ep.Argv[1])
	assert.Equal(t, "-c", ep.Argv[2])

	code := ep.Argv[3]
	assert.Contains(t, code, "MAX_STEPS = 5000")
	// 2500ms rounds up to 3 whole seconds for SIGALRM.
	assert.Contains(t, code, "ALARM_SECS = 3")
	assert.Contains(t, code, "sys.settrace")
	assert.Contains(t, code, "signal.alarm")
	assert.Contains(t, code, "'ERROR: '")
	assert.NotContains(t, code, "@MAX_STEPS@")
	assert.NotContains(t, code, "@ALARM_SECS@")

	// Entry file and guest args travel as positional argv after the program.
	assert.Equal(t, []string{"main.py", "--verbose", "data.csv"}, ep.Argv[4:])
}

func TestBuildNode(t *testing.T) {
	ep, err := Build(runconfig.RunConfig{
		Language:    runconfig.LangNode,
		EntryFile:   "index.js",
		Args:        []string{"one", "two"},
		TimeLimitMs: 4000,
	})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(ep.Argv), 4)
	assert.Equal(t, "node", ep.Argv[0])
	assert.Equal(t, "-e", ep.Argv[1])

	code := ep.Argv[2]
	assert.Contains(t, code, "TIME_LIMIT_MS = 4000")
	assert.Contains(t, code, "vm.createContext")
	assert.Contains(t, code, "Object.freeze({})")
	assert.Contains(t, code, "process.exit(")
	assert.Contains(t, code, "'ERROR: '")
	assert.NotContains(t, code, "@TIME_LIMIT_MS@")

	assert.Equal(t, []string{"index.js", "one", "two"}, ep.Argv[3:])
}

func TestBuildUnknownLanguage(t *testing.T) {
	_, err := Build(runconfig.RunConfig{Language: "fortran"})
	assert.Error(t, err)
}

func TestAlarmSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 1, alarmSeconds(500))
	assert.Equal(t, 1, alarmSeconds(1000))
	assert.Equal(t, 2, alarmSeconds(1001))
	assert.Equal(t, 15, alarmSeconds(15000))
}

func TestBootstrapNeverEmbedsUserStrings(t *testing.T) {
	cfg := pythonConfig()
	cfg.EntryFile = `"; import os #`
	cfg.Args = []string{`'); bad('`}

	ep, err := Build(cfg)
	require.NoError(t, err)

	// Hostile filenames and args stay out of the program text.
	assert.NotContains(t, ep.Argv[3], cfg.EntryFile)
	assert.NotContains(t, ep.Argv[3], cfg.Args[0])
	assert.Equal(t, cfg.EntryFile, ep.Argv[4])
}
