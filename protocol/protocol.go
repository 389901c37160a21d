// Package protocol defines the JSON message frames exchanged between
// clients and the runbox daemon over a persistent duplex connection.
package protocol

// ClientType identifies a client → service frame.
type ClientType string

const (
	ClientRun   ClientType = "run"
	ClientStdin ClientType = "stdin"
	ClientKill  ClientType = "kill"
)

// ServerType identifies a service → client frame.
type ServerType string

const (
	ServerStarted ServerType = "started"
	ServerStdout  ServerType = "stdout"
	ServerStderr  ServerType = "stderr"
	ServerExit    ServerType = "exit"
	ServerError   ServerType = "error"
)

// ClientMessage is the envelope for all client → service frames.
//
// The numeric run fields and args are declared as `any` on purpose: existing
// clients send whatever they have, and a bad value degrades to the
// server-side default instead of failing the whole frame. The normalizer
// owns the coercion.
type ClientMessage struct {
	Type ClientType `json:"type"`

	// run fields
	User        string `json:"user,omitempty"`
	Lang        string `json:"lang,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Args        any    `json:"args,omitempty"`
	TimeLimitMs any    `json:"timeLimitMs,omitempty"`
	MemMb       any    `json:"memMb,omitempty"`
	MaxSteps    any    `json:"maxSteps,omitempty"`

	// stdin / kill fields
	RunID string `json:"runId,omitempty"`
	Data  string `json:"data,omitempty"`
}

// ServerMessage is the envelope for all service → client frames.
// Code is a pointer so a force-killed run can emit `exit` with no code.
type ServerMessage struct {
	Type  ServerType `json:"type"`
	RunID string     `json:"runId,omitempty"`
	Data  string     `json:"data,omitempty"`
	Code  *int       `json:"code,omitempty"`
}

// MaxFrameBytes caps inbound frame size; anything larger is malformed input.
const MaxFrameBytes = 1 * 1024 * 1024

func Started(runID string) ServerMessage {
	return ServerMessage{Type: ServerStarted, RunID: runID}
}

func Stdout(runID, data string) ServerMessage {
	return ServerMessage{Type: ServerStdout, RunID: runID, Data: data}
}

func Stderr(runID, data string) ServerMessage {
	return ServerMessage{Type: ServerStderr, RunID: runID, Data: data}
}

// Exit builds the terminal frame for a run. code == nil means the guest was
// force-killed before reporting an exit status.
func Exit(runID string, code *int) ServerMessage {
	return ServerMessage{Type: ServerExit, RunID: runID, Code: code}
}

func Error(msg string) ServerMessage {
	return ServerMessage{Type: ServerError, Data: msg}
}
