package remotecoll

import (
	"fmt"

	"github.com/unkn0wn-root/remotecoll/loading"
)

// Find returns the state of the entity with the given id, Initial if unknown.
func (c Collection[V]) Find(id string) loading.Value[V] {
	v, _ := c.entities.Get(id)
	return v
}

// Get is Find with a Failure for unknown ids instead of Initial.
func (c Collection[V]) Get(id string) loading.Value[V] {
	v, ok := c.entities.Get(id)
	if !ok {
		return loading.Failure[V](fmt.Sprintf("no resource found with ID: %s", id))
	}
	return v
}

// FindValue returns the payload of the entity with the given id, if it has one.
func (c Collection[V]) FindValue(id string) (V, bool) {
	return c.Find(id).Value()
}

// Has reports whether an entity state is recorded for id.
func (c Collection[V]) Has(id string) bool {
	_, ok := c.entities.Get(id)
	return ok
}

// View resolves the default view.
func (c Collection[V]) View() loading.Value[[]V] { return c.ViewAt(DefaultView) }

// ViewAt resolves the view at key against the entity store.
//
// View states without an ID list are returned as they are. For a list, IDs
// without an entity entry are skipped and the remaining entity states are
// sequenced in order. A refreshing view never reports plain Success.
func (c Collection[V]) ViewAt(key string) loading.Value[[]V] {
	return loading.Chain(c.viewState(key), c.resolve)
}

// ViewIDs resolves an explicit, ordered list of IDs against the entity store.
func (c Collection[V]) ViewIDs(ids []string) loading.Value[[]V] {
	return c.resolve(ids)
}

func (c Collection[V]) resolve(ids []string) loading.Value[[]V] {
	states := make([]loading.Value[V], 0, len(ids))
	for _, id := range ids {
		if v, ok := c.entities.Get(id); ok {
			states = append(states, v)
		}
	}
	return loading.Sequence(states)
}

// ViewSlice returns the resolved default view payload, or an empty slice.
func (c Collection[V]) ViewSlice() []V { return c.ViewSliceAt(DefaultView) }

// ViewSliceAt returns the resolved payload of the view at key, or an empty slice.
func (c Collection[V]) ViewSliceAt(key string) []V {
	return c.ViewAt(key).GetOrElse([]V{})
}
