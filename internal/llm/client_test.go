package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fuabioo/studyspec/internal/jsontree"
)

func TestCompleteEchoesRequest(t *testing.T) {
	c := ProcessClient{Command: "cat"}
	current := jsontree.Object().Put("name", jsontree.String("Study A"))

	out, err := c.Complete(context.Background(), Request{Task: TaskText2Spec, Text: "rename", Current: current})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "text2spec", got["task"])
	assert.Equal(t, "rename", got["text"])
	assert.Equal(t, map[string]any{"name": "Study A"}, got["current"])
	assert.NotContains(t, got, "spec")
}

func TestCompleteArgsAndEnv(t *testing.T) {
	c := ProcessClient{
		Command: "sh -c",
		Args:    []string{"echo $STUDYSPEC_TEST_VAR"},
		Env:     []string{"STUDYSPEC_TEST_VAR=from-env"},
	}
	out, err := c.Complete(context.Background(), Request{Task: TaskSpec2Script})
	require.NoError(t, err)
	assert.Equal(t, "from-env\n", out)
}

func TestCompleteNonZeroExit(t *testing.T) {
	c := ProcessClient{Command: "sh", Args: []string{"-c", "echo quota exceeded >&2; exit 3"}}
	_, err := c.Complete(context.Background(), Request{Task: TaskSpec2Script})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "err = %v", err)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "quota exceeded", exitErr.Stderr)
}

func TestCompleteTruncatesStderr(t *testing.T) {
	c := ProcessClient{Command: "sh", Args: []string{"-c", "head -c 2000 /dev/zero | tr '\\0' x >&2; exit 1"}}
	_, err := c.Complete(context.Background(), Request{Task: TaskSpec2Script})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.True(t, strings.HasSuffix(exitErr.Stderr, "...(truncated)"))
	assert.Len(t, exitErr.Stderr, maxStderr+len("...(truncated)"))
}

func TestCompleteTimeout(t *testing.T) {
	c := ProcessClient{Command: "sleep 5", Timeout: 50 * time.Millisecond}
	_, err := c.Complete(context.Background(), Request{Task: TaskSpec2Script})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompleteNotConfigured(t *testing.T) {
	_, err := ProcessClient{Command: "  "}.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCompleteMissingBinary(t *testing.T) {
	_, err := ProcessClient{Command: "/nonexistent/llm-wrapper"}.Complete(context.Background(), Request{})
	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}
