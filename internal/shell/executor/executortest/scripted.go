// Package executortest provides a scripted executor.Runner for tests.
package executortest

import (
	"context"
	"strings"
	"sync"

	"github.com/innerline/local-ai-packaged/internal/core/stack"
	"github.com/innerline/local-ai-packaged/internal/shell/executor"
)

// ScriptedRunner answers invocations from a list of rules and records
// every call. Rules are consulted in registration order, first match
// wins; an unmatched invocation succeeds with empty output, which keeps
// happy-path scripts short.
type ScriptedRunner struct {
	mu    sync.Mutex
	calls []stack.Invocation
	rules []*rule
}

type rule struct {
	match  func(stack.Invocation) bool
	result executor.Result
	err    error

	// fn, when set, computes the response instead of result/err.
	fn func(stack.Invocation) (executor.Result, error)

	// remaining is how many invocations the rule still answers;
	// negative means unlimited.
	remaining int
}

// New creates an empty ScriptedRunner.
func New() *ScriptedRunner {
	return &ScriptedRunner{}
}

// On registers a rule answering every invocation match selects.
func (s *ScriptedRunner) On(match func(stack.Invocation) bool, res executor.Result, err error) {
	s.addRule(match, res, err, -1)
}

// Once registers a rule that answers only the first matching invocation.
// Later matches fall through to the remaining rules, which is how tests
// script fail-once-then-succeed sequences.
func (s *ScriptedRunner) Once(match func(stack.Invocation) bool, res executor.Result, err error) {
	s.addRule(match, res, err, 1)
}

// OnCommand matches by the exact rendered command line.
func (s *ScriptedRunner) OnCommand(cmd string, res executor.Result, err error) {
	s.On(matchCommand(cmd), res, err)
}

// OnceCommand is Once keyed by the exact rendered command line.
func (s *ScriptedRunner) OnceCommand(cmd string, res executor.Result, err error) {
	s.Once(matchCommand(cmd), res, err)
}

// OnContains matches any invocation whose rendered command line contains
// substr.
func (s *ScriptedRunner) OnContains(substr string, res executor.Result, err error) {
	s.On(func(inv stack.Invocation) bool {
		return strings.Contains(inv.String(), substr)
	}, res, err)
}

// OnDo registers a rule whose response is computed by fn. Tests use it to
// perform side effects a real command would have, like materializing the
// directory a later stage expects.
func (s *ScriptedRunner) OnDo(match func(stack.Invocation) bool, fn func(stack.Invocation) (executor.Result, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{match: match, fn: fn, remaining: -1})
}

func matchCommand(cmd string) func(stack.Invocation) bool {
	return func(inv stack.Invocation) bool {
		return inv.String() == cmd
	}
}

func (s *ScriptedRunner) addRule(match func(stack.Invocation) bool, res executor.Result, err error, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{match: match, result: res, err: err, remaining: remaining})
}

// Run implements executor.Runner.
func (s *ScriptedRunner) Run(ctx context.Context, inv stack.Invocation) (executor.Result, error) {
	if err := ctx.Err(); err != nil {
		return executor.Result{}, err
	}

	s.mu.Lock()
	s.calls = append(s.calls, inv)

	var matched *rule
	for _, r := range s.rules {
		if r.remaining == 0 || !r.match(inv) {
			continue
		}
		if r.remaining > 0 {
			r.remaining--
		}
		matched = r
		break
	}
	s.mu.Unlock()

	if matched == nil {
		return executor.Result{ExitCode: 0}, nil
	}
	if matched.fn != nil {
		return matched.fn(inv)
	}
	return matched.result, matched.err
}

// Calls returns a copy of every invocation seen so far.
func (s *ScriptedRunner) Calls() []stack.Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]stack.Invocation, len(s.calls))
	copy(out, s.calls)
	return out
}

// CommandLines returns the rendered command line of every invocation, in
// order, for whole-sequence assertions.
func (s *ScriptedRunner) CommandLines() []string {
	calls := s.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}
