package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonBackend writes a config using the json backend with the given
// wonder.json content and returns the config path.
func jsonBackend(t *testing.T, data string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wonder.json"), []byte(data), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("storage:\n  backend: json\n  data_dir: %q\nlogging:\n  level: error\n", dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))
	return cfgPath
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute(), buf.String())
	return buf.String()
}

func TestHistoryJSONBackend(t *testing.T) {
	cfgPath := jsonBackend(t, `[
  {"start": 1, "result": 3},
  {"start": 2, "result": 4},
  {"start": 1, "result": 5},
  {"start": 1, "result": 2}
]`)

	out := execute(t, "--config", cfgPath, "history", "--start", "1", "--limit", "2")
	assert.Equal(t, "  [4] start 1 -> result 2\n  [3] start 1 -> result 5\n", out)

	out = execute(t, "--config", cfgPath, "history", "--start", "0", "--limit", "0")
	assert.Contains(t, out, "[2] start 2 -> result 4")
	assert.Contains(t, out, "[1] start 1 -> result 3")

	out = execute(t, "--config", cfgPath, "history", "--start", "4", "--limit", "0")
	assert.Contains(t, out, "No rounds recorded yet")
}

func TestHistoryRejectsInvalidStart(t *testing.T) {
	cfgPath := jsonBackend(t, `[]`)

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--config", cfgPath, "history", "--start", "7", "--limit", "0"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		historyStart = 0
	})
	assert.Error(t, rootCmd.Execute())
}

func TestRecordAndStatusJSONBackend(t *testing.T) {
	cfgPath := jsonBackend(t, `[{"start": 1, "result": 3}]`)

	out := execute(t, "--config", cfgPath, "record", "--start", "2", "--result", "1")
	assert.Equal(t, "Recorded: start 2 -> result 1\n", out)

	out = execute(t, "--config", cfgPath, "status")
	assert.Contains(t, out, "Backend: json")
	assert.Contains(t, out, "Rounds recorded: 2")
	assert.Contains(t, out, "  1: 1\n")
	assert.Contains(t, out, "  2: 1\n")
	assert.Contains(t, out, "  5: 0\n")
}
