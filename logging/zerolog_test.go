package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ Logger = (*ZerologAdapter)(nil)
var _ Logger = NoOpLogger{}
var _ Logger = (*SlogAdapter)(nil)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, "debug")

	logger.Info("runner.turn.start", "turn", 1, "agent", "triage")

	out := buf.String()
	assert.Contains(t, out, `"message":"runner.turn.start"`)
	assert.Contains(t, out, `"turn":1`)
	assert.Contains(t, out, `"agent":"triage"`)
}

func TestZerologAdapter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, "error")

	logger.Debug("hidden")
	logger.Error("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestFieldsFromArgs_Dangling(t *testing.T) {
	fields := fieldsFromArgs([]any{"key", "value", "orphan"})
	assert.Equal(t, "value", fields["key"])
	assert.Equal(t, "orphan", fields["arg2"])
}
