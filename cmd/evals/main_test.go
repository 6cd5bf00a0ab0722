package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSummary(t *testing.T) {
	out, err := run(t, "--dir", "../../evals", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Tool Coverage: 13 of 13 tools")
	assert.NotContains(t, out, "Not covered")
	assert.Contains(t, out, "+ get_lei_record")
}

func TestSingleSuites(t *testing.T) {
	for suite, want := range map[string]string{
		"tool_selection":  "Tests by Category:",
		"confusion_pairs": "fuzzy_vs_auto",
		"arguments":       "Validation Rules:",
	} {
		out, err := run(t, "--dir", "../../evals", "--suite", suite)
		require.NoError(t, err, suite)
		assert.Contains(t, out, want, suite)
	}
}

func TestUnknownSuite(t *testing.T) {
	_, err := run(t, "--dir", "../../evals", "--suite", "nope")
	assert.ErrorContains(t, err, "unknown suite")
}

func TestMissingDir(t *testing.T) {
	_, err := run(t, "--dir", t.TempDir())
	assert.Error(t, err)
}
