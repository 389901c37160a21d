package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimNamePrefix(t *testing.T) {
	assert.Equal(t, "runbox-abc123", trimNamePrefix("/runbox-abc123"))
	assert.Equal(t, "runbox-abc123", trimNamePrefix("runbox-abc123"))
	assert.Equal(t, "", trimNamePrefix(""))
}

func TestLabelNames(t *testing.T) {
	assert.Equal(t, "runbox.managed", ManagedLabel)
	assert.Equal(t, "runbox.run_id", RunIDLabel)
}
