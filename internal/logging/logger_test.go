package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureOutput swaps the package-level output for a buffer for the
// duration of the test, restoring it afterward.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	mu.Lock()
	prevOutput := output
	output = &buf
	mu.Unlock()

	t.Cleanup(func() {
		mu.Lock()
		output = prevOutput
		mu.Unlock()
	})

	return &buf
}

func TestInitJSONFormatProducesJSONLines(t *testing.T) {
	buf := captureOutput(t)

	require.NoError(t, Init(Config{Level: "info", Format: "json"}))
	Info("hello", "key", "value")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "hello", decoded["msg"])
	require.Equal(t, "value", decoded["key"])
}

func TestInitTextFormatProducesKeyValueLines(t *testing.T) {
	buf := captureOutput(t)

	require.NoError(t, Init(Config{Level: "info", Format: "text"}))
	Info("hello")

	require.Contains(t, buf.String(), "msg=hello")
}

func TestSetLevelFiltersBelowThreshold(t *testing.T) {
	buf := captureOutput(t)

	require.NoError(t, Init(Config{Level: "warn", Format: "text"}))
	Info("should not appear")
	Warn("should appear")

	out := buf.String()
	require.NotContains(t, out, "should not appear")
	require.Contains(t, out, "should appear")
}

func TestSetLevelPreservesConfiguredFormat(t *testing.T) {
	buf := captureOutput(t)

	require.NoError(t, Init(Config{Level: "info", Format: "json"}))
	SetLevel("debug")
	Debug("still json")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded), "SetLevel should not revert the configured JSON format")
	require.Equal(t, "still json", decoded["msg"])
}

func TestWithReturnsBoundLogger(t *testing.T) {
	buf := captureOutput(t)

	require.NoError(t, Init(Config{Level: "info", Format: "text"}))

	child := With("component", "rsp")
	require.IsType(t, &slog.Logger{}, child)

	child.Info("bound")
	require.True(t, strings.Contains(buf.String(), "component=rsp"))
}
