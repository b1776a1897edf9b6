// Package mediatest provides a scripted Runner for tests that must not spawn
// real engine processes.
package mediatest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// Output returns the last argument, which is the output path for every
// ffmpeg and stretch invocation the gateway makes.
func (c Call) Output() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// Runner records calls and touches each call's output file so callers see
// the artifacts they expect. ProbeJSON is returned for the probe tool.
type Runner struct {
	ProbeTool string
	ProbeJSON []byte
	// Fail, when set, decides whether a call fails.
	Fail func(Call) error

	mu    sync.Mutex
	calls []Call
}

var ErrScripted = errors.New("scripted failure")

func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Fail != nil {
		if err := r.Fail(call); err != nil {
			return nil, err
		}
	}
	if name == r.ProbeTool && r.ProbeTool != "" {
		return r.ProbeJSON, nil
	}
	if out := call.Output(); out != "" {
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(out, []byte(name), 0644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// Calls returns a snapshot of the recorded calls.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo filters recorded calls by tool name.
func (r *Runner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
