package loading

// Sequence combines an ordered list of values into one value over the list.
//
// Precedence, strongest first: the left-most Failure, then Initial, Pending,
// Refresh and finally Success. A Refresh result still carries every payload
// in input order. An empty input yields Success of an empty slice.
func Sequence[V any](vs []Value[V]) Value[[]V] {
	var (
		initial bool
		pending bool
		refresh bool
	)
	for _, v := range vs {
		switch v.state {
		case StateFailure:
			return failureOf[[]V](v.errs)
		case StateInitial:
			initial = true
		case StatePending:
			pending = true
		case StateRefresh:
			refresh = true
		}
	}
	switch {
	case initial:
		return Initial[[]V]()
	case pending:
		return Pending[[]V]()
	}

	out := make([]V, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.value)
	}
	if refresh {
		return Refresh(out)
	}
	return Success(out)
}

// Traverse maps every element to a Value and sequences the results.
func Traverse[A, V any](as []A, f func(A) Value[V]) Value[[]V] {
	vs := make([]Value[V], len(as))
	for i, a := range as {
		vs[i] = f(a)
	}
	return Sequence(vs)
}
