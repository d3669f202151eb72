package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Configure("debug", true)
	return &buf
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("nobody"))
	assert.Equal(t, "***@***", RedactEmail("trailing@"))
}

func TestLog_RedactsEmailFieldsAndEmbeddedAddresses(t *testing.T) {
	buf := capture(t)

	Info("access requested", "email", "investor@fund.com", "note", "cc partner@fund.com", "attempt", 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "in***@fund.com", entry["email"])
	assert.Equal(t, "cc pa***@fund.com", entry["note"])
	assert.Equal(t, float64(2), entry["attempt"])
}

func TestLog_LevelFiltering(t *testing.T) {
	buf := capture(t)
	Configure("warn", true)

	Info("dropped")
	Warn("kept", "error", errors.New("boom"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	assert.Contains(t, string(lines[0]), `"error":"boom"`)
}

func TestWith_AddsFields(t *testing.T) {
	buf := capture(t)

	With("component", "activity").Info("retrying", "attempt", 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "activity", entry["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}
