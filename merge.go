package remotecoll

import (
	"github.com/unkn0wn-root/remotecoll/loading"
)

// Concat merges other into c and returns the result.
//
// Entities are overwritten key by key with other's states, whatever they are.
// Views are merged over the union of keys: when both sides carry an ID list
// the incoming state is kept with existing ++ incoming as its list; in every
// other case the incoming state replaces the existing one.
func (c Collection[V]) Concat(other Collection[V]) Collection[V] {
	return c.merge(other, appendIDs)
}

// Union is Concat with a duplicate-free list when both views carry IDs:
// existing order first, then incoming IDs not seen yet.
func (c Collection[V]) Union(other Collection[V]) Collection[V] {
	return c.merge(other, uniteIDs)
}

// AppendList appends items to the default view, see AppendListAt.
func (c Collection[V]) AppendList(items []V) Collection[V] {
	return c.AppendListAt(DefaultView, items)
}

// AppendListAt merges a freshly loaded list into the view at key, following
// the same rules as Concat.
func (c Collection[V]) AppendListAt(key string, items []V) Collection[V] {
	return c.Concat(New[V](c.id).WithListAt(key, items))
}

func (c Collection[V]) merge(other Collection[V], join func(a, b []string) []string) Collection[V] {
	entities := c.entities
	ei := other.entities.Iterator()
	for !ei.Done() {
		id, v, _ := ei.Next()
		entities = entities.Set(id, v)
	}

	views := c.views
	vi := other.views.Iterator()
	for !vi.Done() {
		key, incoming, _ := vi.Next()
		existing, _ := c.views.Get(key)
		views = views.Set(key, mergeView(existing, incoming, join))
	}

	c.entities = entities
	c.views = views
	return c
}

// mergeView reconciles the states stored under one view key.
func mergeView(existing, incoming loading.Value[[]string], join func(a, b []string) []string) loading.Value[[]string] {
	prev, ok := existing.Value()
	if !ok || !incoming.HasValue() {
		return incoming
	}
	return incoming.Map(func(next []string) []string { return join(prev, next) })
}

func appendIDs(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func uniteIDs(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, ids := range [2][]string{a, b} {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
