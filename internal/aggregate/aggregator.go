package aggregate

import (
	"errors"
	"fmt"
	"sync"
)

// #region options

type options struct {
	failFast   bool
	failureMsg string
}

// Option configures an Aggregator.
type Option func(*options)

// WithFailFast delivers the first failure immediately instead of waiting for
// the remaining submissions.
func WithFailFast() Option {
	return func(o *options) { o.failFast = true }
}

// WithFailureMessage sets the prefix of the summary error delivered when every
// submission failed.
func WithFailureMessage(msg string) Option {
	return func(o *options) { o.failureMsg = msg }
}

// #endregion options

// #region aggregator

// Aggregator collects a fixed number of partial results submitted from
// independent goroutines and hands the merged value to done exactly once.
type Aggregator[T any] struct {
	mu       sync.Mutex
	expected int
	received int
	values   int
	acc      T
	failures []error
	fired    bool

	merge func(a, b T) T
	done  func(T, error)
	opts  options
}

// New creates an aggregator waiting for n submissions. merge must be
// associative and commutative. With n <= 0, done fires before New returns
// with the zero value.
func New[T any](n int, merge func(a, b T) T, done func(T, error), opts ...Option) *Aggregator[T] {
	a := &Aggregator[T]{
		expected: n,
		merge:    merge,
		done:     done,
	}
	for _, opt := range opts {
		opt(&a.opts)
	}
	if n <= 0 {
		a.fired = true
		var zero T
		done(zero, nil)
	}
	return a
}

// #endregion aggregator

// #region submit

// Submit records one successful partial result. Calls past the expected
// count are ignored.
func (a *Aggregator[T]) Submit(v T) {
	a.mu.Lock()
	if a.fired || a.received >= a.expected {
		a.mu.Unlock()
		return
	}
	if a.values == 0 {
		a.acc = v
	} else {
		a.acc = a.merge(a.acc, v)
	}
	a.values++
	a.received++
	fire := a.received == a.expected
	if fire {
		a.fired = true
	}
	result, err := a.acc, a.finalErrLocked()
	a.mu.Unlock()

	if fire {
		a.done(result, err)
	}
}

// SubmitFailure records one failed partial result.
func (a *Aggregator[T]) SubmitFailure(err error) {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	a.mu.Lock()
	if a.fired || a.received >= a.expected {
		a.mu.Unlock()
		return
	}
	a.failures = append(a.failures, err)
	a.received++

	var zero T
	if a.opts.failFast {
		a.fired = true
		a.mu.Unlock()
		a.done(zero, err)
		return
	}

	fire := a.received == a.expected
	if fire {
		a.fired = true
	}
	result, ferr := a.acc, a.finalErrLocked()
	a.mu.Unlock()

	if fire {
		a.done(result, ferr)
	}
}

// Done reports whether the final callback has fired.
func (a *Aggregator[T]) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fired
}

// finalErrLocked is non-nil only when no submission succeeded.
func (a *Aggregator[T]) finalErrLocked() error {
	if a.values > 0 || len(a.failures) == 0 {
		return nil
	}
	joined := errors.Join(a.failures...)
	if a.opts.failureMsg == "" {
		return joined
	}
	return fmt.Errorf("%s: %w", a.opts.failureMsg, joined)
}

// #endregion submit
