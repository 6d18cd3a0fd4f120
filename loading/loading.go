// Package loading implements a five-state value that tracks the lifecycle of
// remotely fetched data: never requested, in flight, in flight with a stale
// payload, loaded, and failed.
//
// A Value is immutable. Every transformation returns a new Value.
package loading

import (
	"fmt"
	"reflect"
)

// State enumerates the five lifecycle states of a Value.
type State uint8

const (
	StateInitial State = iota // never requested
	StatePending              // in flight, no prior payload
	StateRefresh              // in flight, carries the last known payload
	StateSuccess              // loaded
	StateFailure              // failed with one or more messages
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StatePending:
		return "pending"
	case StateRefresh:
		return "refresh"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Value is a tagged union over the five states. The zero Value is Initial.
type Value[V any] struct {
	state State
	value V
	errs  []string
}

func Initial[V any]() Value[V] { return Value[V]{} }

func Pending[V any]() Value[V] { return Value[V]{state: StatePending} }

func Refresh[V any](v V) Value[V] { return Value[V]{state: StateRefresh, value: v} }

func Success[V any](v V) Value[V] { return Value[V]{state: StateSuccess, value: v} }

// Failure builds a failed Value. At least one message is always stored.
func Failure[V any](msg string, more ...string) Value[V] {
	errs := make([]string, 0, 1+len(more))
	errs = append(errs, msg)
	errs = append(errs, more...)
	return Value[V]{state: StateFailure, errs: errs}
}

func failureOf[V any](errs []string) Value[V] {
	if len(errs) == 0 {
		return Failure[V]("unknown error")
	}
	return Failure[V](errs[0], errs[1:]...)
}

func (v Value[V]) State() State { return v.state }

func (v Value[V]) IsInitial() bool { return v.state == StateInitial }
func (v Value[V]) IsPending() bool { return v.state == StatePending }
func (v Value[V]) IsRefresh() bool { return v.state == StateRefresh }
func (v Value[V]) IsSuccess() bool { return v.state == StateSuccess }
func (v Value[V]) IsFailure() bool { return v.state == StateFailure }

// HasValue reports whether v carries a payload (Refresh or Success).
func (v Value[V]) HasValue() bool {
	return v.state == StateRefresh || v.state == StateSuccess
}

// Value returns the payload of a Refresh or Success value.
func (v Value[V]) Value() (V, bool) {
	if v.HasValue() {
		return v.value, true
	}
	var zero V
	return zero, false
}

// GetOrElse returns the payload, or def when there is none.
func (v Value[V]) GetOrElse(def V) V {
	if p, ok := v.Value(); ok {
		return p
	}
	return def
}

// Errors returns a copy of the failure messages; nil for non-failures.
func (v Value[V]) Errors() []string {
	if v.state != StateFailure {
		return nil
	}
	out := make([]string, len(v.errs))
	copy(out, v.errs)
	return out
}

// Map transforms the payload of Refresh and Success values. Other states pass through.
func (v Value[V]) Map(f func(V) V) Value[V] {
	return Map(v, f)
}

func (v Value[V]) String() string {
	switch v.state {
	case StateRefresh, StateSuccess:
		return fmt.Sprintf("%s(%v)", v.state, v.value)
	case StateFailure:
		return fmt.Sprintf("%s(%q)", v.state, v.errs)
	default:
		return v.state.String()
	}
}

// Map transforms the payload of Refresh and Success values into another type.
func Map[V, W any](v Value[V], f func(V) W) Value[W] {
	switch v.state {
	case StateRefresh:
		return Refresh(f(v.value))
	case StateSuccess:
		return Success(f(v.value))
	case StateFailure:
		return Value[W]{state: StateFailure, errs: v.errs}
	default:
		return Value[W]{state: v.state}
	}
}

// Chain feeds the payload into f. A Refresh source downgrades a Success result
// to Refresh so the in-flight marker is not lost.
func Chain[V, W any](v Value[V], f func(V) Value[W]) Value[W] {
	switch v.state {
	case StateSuccess:
		return f(v.value)
	case StateRefresh:
		out := f(v.value)
		if out.state == StateSuccess {
			out.state = StateRefresh
		}
		return out
	case StateFailure:
		return Value[W]{state: StateFailure, errs: v.errs}
	default:
		return Value[W]{state: v.state}
	}
}

// Cases holds one handler per state for Fold. All handlers must be set.
type Cases[V, R any] struct {
	Initial func() R
	Pending func() R
	Refresh func(V) R
	Success func(V) R
	Failure func([]string) R
}

// Fold pattern-matches v over all five states.
func Fold[V, R any](v Value[V], c Cases[V, R]) R {
	if c.Initial == nil || c.Pending == nil || c.Refresh == nil || c.Success == nil || c.Failure == nil {
		panic("loading: Fold requires a handler for every state")
	}
	switch v.state {
	case StatePending:
		return c.Pending()
	case StateRefresh:
		return c.Refresh(v.value)
	case StateSuccess:
		return c.Success(v.value)
	case StateFailure:
		return c.Failure(v.Errors())
	default:
		return c.Initial()
	}
}

// Equal compares two values structurally.
func Equal[V any](a, b Value[V]) bool {
	if a.state != b.state {
		return false
	}
	switch a.state {
	case StateRefresh, StateSuccess:
		return reflect.DeepEqual(a.value, b.value)
	case StateFailure:
		return reflect.DeepEqual(a.errs, b.errs)
	default:
		return true
	}
}
