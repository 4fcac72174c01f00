package runner

import (
	"context"
	"strings"
)

// Response is one scripted answer for the Fake runner
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
	// OnRun, when set, runs before the response is returned. Tests use it
	// to simulate a tool's filesystem side effects (creating marker files).
	OnRun func(cmd Command)
}

// Fake is a scriptable Runner for tests. Responses are consumed from the
// queue in invocation order; when the queue is empty Default is used, and
// when that is nil a zero-exit empty result is returned. Every invocation
// is recorded in Calls.
type Fake struct {
	Queue   []Response
	Default *Response
	Calls   []Command
}

// Run implements Runner
func (f *Fake) Run(ctx context.Context, cmd Command) (*Result, error) {
	f.Calls = append(f.Calls, cmd)

	var resp Response
	if len(f.Queue) > 0 {
		resp = f.Queue[0]
		f.Queue = f.Queue[1:]
	} else if f.Default != nil {
		resp = *f.Default
	}

	if resp.OnRun != nil {
		resp.OnRun(cmd)
	}
	if resp.Err != nil {
		return &Result{Stdout: resp.Stdout, Stderr: resp.Stderr}, resp.Err
	}
	return &Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}, nil
}

// CallsTo returns the recorded invocations of the named tool
func (f *Fake) CallsTo(name string) []Command {
	var out []Command
	for _, c := range f.Calls {
		if c.Name == name || strings.HasSuffix(c.Name, "/"+name) || strings.HasSuffix(c.Name, "\\"+name) {
			out = append(out, c)
		}
	}
	return out
}
