package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/chazu/polyedit/pkg/model"
)

var errAbandoned = errors.New("script: evaluation abandoned")

// outcome is what the interpreter goroutine reports when it finishes.
type outcome struct {
	value  string
	errors []EvalError
	err    error
}

// call is a unit of model work sent from a builtin to the owner goroutine.
type call struct {
	fn    func() error
	reply chan error
}

// session is one evaluation. Fields other than the channels are touched
// only by the goroutine running serve.
type session struct {
	e *Engine
	m *model.Model

	calls chan call
	done  chan struct{}

	applied int
	fatal   error
}

func newSession(e *Engine, m *model.Model) *session {
	return &session{
		e:     e,
		m:     m,
		calls: make(chan call),
		done:  make(chan struct{}),
	}
}

// do runs fn on the owner goroutine and waits for it. Once the owner has
// stopped serving, do fails with errAbandoned instead of blocking.
func (s *session) do(fn func() error) error {
	c := call{fn: fn, reply: make(chan error, 1)}
	select {
	case s.calls <- c:
		return <-c.reply
	case <-s.done:
		return errAbandoned
	}
}

// serve executes model calls for the interpreter until it reports back,
// the timeout fires or ctx is done. On timeout the interpreter goroutine
// may keep running; any model call it makes afterwards is refused.
func (s *session) serve(ctx context.Context, ch <-chan outcome, timeout time.Duration) (*Result, error) {
	defer close(s.done)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case c := <-s.calls:
			c.reply <- s.apply(c.fn)
		case out := <-ch:
			if s.fatal != nil {
				return nil, s.fatal
			}
			if out.err != nil {
				return nil, out.err
			}
			return &Result{Value: out.value, Applied: s.applied, Errors: out.errors}, nil
		case <-timer.C:
			return nil, fmt.Errorf("script: evaluation timed out after %s", timeout)
		case <-ctx.Done():
			return nil, fmt.Errorf("script: evaluation cancelled: %w", ctx.Err())
		}
	}
}

// apply runs fn, turning an invariant violation into a fatal error for the
// whole evaluation.
func (s *session) apply(fn func() error) error {
	if s.fatal != nil {
		return s.fatal
	}
	var violation error
	err := func() error {
		defer invariant.Recover(&violation)
		return fn()
	}()
	if violation != nil {
		s.fatal = violation
		return violation
	}
	return err
}

// command applies cmd and counts it.
func (s *session) command(fn string, cmd model.Command) error {
	if !s.m.ApplyCommand(cmd) {
		return fmt.Errorf("%s: command rejected", fn)
	}
	s.applied++
	return nil
}
