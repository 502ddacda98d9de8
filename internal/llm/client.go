package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Fuabioo/studyspec/internal/pathutil"
)

// ErrNotConfigured is returned when no service command is set.
var ErrNotConfigured = errors.New("llm: no command configured (set llm.command)")

// DefaultTimeout bounds a call when the client sets none.
const DefaultTimeout = 2 * time.Minute

// maxStderr caps how much of the service's stderr ends up in errors.
const maxStderr = 512

// Client sends a request to the text service and returns its raw response.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProcessClient runs the service as an OS process per request.
//
// Command is split with strings.Fields, so a program path containing spaces
// must be given alone with its arguments in Args.
type ProcessClient struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// ExitError reports a service process that exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("llm: service exited with code %d", e.Code)
	}
	return fmt.Sprintf("llm: service exited with code %d: %s", e.Code, e.Stderr)
}

// Complete runs the command with req on stdin and returns stdout.
func (c ProcessClient) Complete(ctx context.Context, req Request) (string, error) {
	parts := strings.Fields(pathutil.ExpandTilde(c.Command))
	if len(parts) == 0 {
		return "", ErrNotConfigured
	}
	input, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	args := append(parts[1:len(parts):len(parts)], c.Args...)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("llm: %s %s: %w", req.Task, parts[0], ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{Code: exitErr.ExitCode(), Stderr: truncate(strings.TrimSpace(stderr.String()), maxStderr)}
		}
		return "", fmt.Errorf("llm: run %s: %w", parts[0], err)
	}
	return stdout.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
