// Package commandtest provides a command.Runner that records invocations
// instead of starting processes.
package commandtest

import (
	"context"
	"strings"
	"sync"

	"github.com/shinji-kodama/firebase-ci/internal/command"
)

// Response is what the fake returns for a matching command.
type Response struct {
	Result command.Result
	Err    error
}

// Runner records every command it is asked to run. Responses are looked up
// by the command line prefix ("npm i firebase-tools"); the longest
// matching prefix wins and unmatched commands succeed with empty output.
// It is safe for concurrent use.
type Runner struct {
	mu        sync.Mutex
	calls     []command.Command
	responses map[string]Response
}

// NewRunner returns an empty fake runner.
func NewRunner() *Runner {
	return &Runner{responses: map[string]Response{}}
}

// On registers the response for commands whose line starts with prefix.
func (r *Runner) On(prefix string, res command.Result, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[prefix] = Response{Result: res, Err: err}
	return r
}

// Run records c and returns the registered response.
func (r *Runner) Run(_ context.Context, c command.Command) (command.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)

	line := Line(c)
	best := ""
	found := false
	for prefix := range r.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) >= len(best) {
			best, found = prefix, true
		}
	}
	if !found {
		return command.Result{}, nil
	}
	res := r.responses[best]
	return res.Result, res.Err
}

// Calls returns the recorded commands in call order.
func (r *Runner) Calls() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]command.Command, len(r.calls))
	copy(out, r.calls)
	return out
}

// Lines returns the recorded commands as unredacted command lines.
func (r *Runner) Lines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = Line(c)
	}
	return out
}

// Line joins the name and arguments of c with spaces.
func Line(c command.Command) string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}
