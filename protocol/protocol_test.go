package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitOmitsAbsentCode(t *testing.T) {
	data, err := json.Marshal(Exit("run-abc", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"exit","runId":"run-abc"}`, string(data))

	code := 0
	data, err = json.Marshal(Exit("run-abc", &code))
	require.NoError(t, err)
	// Exit code 0 must survive omitempty (pointer, not int).
	assert.JSONEq(t, `{"type":"exit","runId":"run-abc","code":0}`, string(data))
}

func TestClientMessageToleratesLooseNumericFields(t *testing.T) {
	raw := `{"type":"run","lang":"python","timeLimitMs":"not-a-number","memMb":null,"args":"nope"}`

	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, ClientRun, msg.Type)
	assert.Equal(t, "python", msg.Lang)
	// Garbage values must not fail the frame; the normalizer coerces them.
	assert.Equal(t, "not-a-number", msg.TimeLimitMs)
	assert.Nil(t, msg.MemMb)
	assert.Equal(t, "nope", msg.Args)
}

func TestServerMessageShapes(t *testing.T) {
	data, err := json.Marshal(Started("run-abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"started","runId":"run-abc"}`, string(data))

	data, err = json.Marshal(Stderr("run-abc", "ERROR: boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"stderr","runId":"run-abc","data":"ERROR: boom"}`, string(data))
}
