// Package runconfig normalizes untrusted run requests into safe, clamped
// run configurations. Normalization is a pure function of the inbound
// message; nothing here touches the filesystem or the engine.
package runconfig

import (
	"math"
	"strconv"
	"strings"

	"github.com/runbox-dev/runbox/protocol"
)

// Supported guest runtimes.
const (
	LangPython = "python"
	LangNode   = "node"
)

// DefaultLanguage is the primary guest runtime. Unrecognized language values
// map here silently; that matches the behavior existing clients depend on,
// so it is kept rather than turned into a validation error.
const DefaultLanguage = LangPython

// Clamp bounds. Fixed policy, not configurable by clients.
const (
	MinTimeLimitMs = 500
	MaxTimeLimitMs = 15000
	MinMemoryMb    = 64
	MaxMemoryMb    = 1024
	MinSteps       = 1000
	MaxSteps       = 200000

	DefaultTimeLimitMs = 5000
	DefaultMemoryMb    = 256
	DefaultMaxSteps    = 100000
)

// RunConfig is a validated, clamped run request.
type RunConfig struct {
	User        string
	Language    string
	EntryFile   string
	Args        []string
	TimeLimitMs int
	MemoryMb    int
	MaxSteps    int
	Image       string
}

// Normalize builds a RunConfig from a raw run message. images maps language
// to guest image; the image is derived deterministically from the language.
func Normalize(msg protocol.ClientMessage, images map[string]string) RunConfig {
	lang := normalizeLanguage(msg.Lang)

	entry := strings.TrimSpace(msg.Filename)
	if entry == "" {
		entry = defaultEntryFile(lang)
	}

	return RunConfig{
		User:        msg.User,
		Language:    lang,
		EntryFile:   entry,
		Args:        coerceArgs(msg.Args),
		TimeLimitMs: clamp(toInt(msg.TimeLimitMs, DefaultTimeLimitMs), MinTimeLimitMs, MaxTimeLimitMs),
		MemoryMb:    clamp(toInt(msg.MemMb, DefaultMemoryMb), MinMemoryMb, MaxMemoryMb),
		MaxSteps:    clamp(toInt(msg.MaxSteps, DefaultMaxSteps), MinSteps, MaxSteps),
		Image:       imageFor(lang, images),
	}
}

func normalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case LangPython:
		return LangPython
	case LangNode, "javascript":
		return LangNode
	default:
		return DefaultLanguage
	}
}

func defaultEntryFile(lang string) string {
	if lang == LangNode {
		return "index.js"
	}
	return "main.py"
}

func imageFor(lang string, images map[string]string) string {
	if image, ok := images[lang]; ok {
		return image
	}
	return "runbox-runtime:" + lang
}

// toInt coerces a loosely typed JSON value to an int, falling back to def
// for anything non-numeric.
func toInt(v any, def int) int {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return def
		}
		return int(n)
	case int:
		return n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int(f)
		}
		return def
	default:
		return def
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// coerceArgs collapses any non-array value to an empty argument list and
// stringifies each element of a real array.
func coerceArgs(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	args := make([]string, 0, len(raw))
	for _, el := range raw {
		args = append(args, coerceString(el))
	}
	return args
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return ""
	}
}
