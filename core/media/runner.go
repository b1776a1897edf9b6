package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// stderrTail bounds how much engine output is kept on an error.
const stderrTail = 2048

// Runner executes an external tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &EngineError{Tool: name, Args: args, Err: err, Stderr: tail(stderr.String(), stderrTail)}
	}
	return out.Bytes(), nil
}

// EngineError is returned when an external tool exits unsuccessfully.
type EngineError struct {
	Tool   string
	Args   []string
	Err    error
	Stderr string
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
