package remotecoll

import (
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/unkn0wn-root/remotecoll/loading"
)

// DefaultView is the key of the unnamed view used by the methods without an "At" suffix.
const DefaultView = "__default"

// IDFunc extracts the identity of an entity.
type IDFunc[V any] func(V) string

type (
	entityStore[V any] = immutable.Map[string, loading.Value[V]]
	viewIndex          = immutable.Map[string, loading.Value[[]string]]
)

// Collection is an immutable, normalized set of remote entities plus named,
// ordered views over their IDs. Every method returns a new Collection; the
// receiver is never modified. The zero value is not usable, construct with New.
type Collection[V any] struct {
	idProp   string
	id       IDFunc[V]
	views    *viewIndex
	entities *entityStore[V]
}

// New returns an empty collection that identifies entities with id.
func New[V any](id IDFunc[V]) Collection[V] {
	return Collection[V]{
		id:       id,
		views:    immutable.NewMap[string, loading.Value[[]string]](nil),
		entities: immutable.NewMap[string, loading.Value[V]](nil),
	}
}

// NewWithProp returns an empty collection that identifies entities by the
// named property (see PropID). The property name is kept in encoded documents.
func NewWithProp[V any](prop string) Collection[V] {
	c := New[V](PropID[V](prop))
	c.idProp = prop
	return c
}

// IDProp returns the identity property name, empty when built with New.
func (c Collection[V]) IDProp() string { return c.idProp }

// ID returns the identity of v.
func (c Collection[V]) ID(v V) string { return c.id(v) }

// Clone returns an independent copy. Persistent maps make this O(1).
func (c Collection[V]) Clone() Collection[V] { return c }

func (c Collection[V]) withEntities(m *entityStore[V]) Collection[V] {
	c.entities = m
	return c
}

func (c Collection[V]) withViews(m *viewIndex) Collection[V] {
	c.views = m
	return c
}

func (c Collection[V]) viewState(key string) loading.Value[[]string] {
	v, _ := c.views.Get(key)
	return v
}

// Len returns the number of entities with a recorded state.
func (c Collection[V]) Len() int { return c.entities.Len() }

// IDs returns the IDs of all entities with a recorded state, sorted.
func (c Collection[V]) IDs() []string {
	out := make([]string, 0, c.entities.Len())
	itr := c.entities.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ViewKeys returns the keys of all views, sorted.
func (c Collection[V]) ViewKeys() []string {
	out := make([]string, 0, c.views.Len())
	itr := c.views.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ViewState returns the raw ID list state stored at key.
func (c Collection[V]) ViewState(key string) loading.Value[[]string] {
	return c.viewState(key)
}

// Equal reports whether both collections hold the same identity property,
// views and entity states.
func (c Collection[V]) Equal(o Collection[V]) bool {
	if c.idProp != o.idProp || c.views.Len() != o.views.Len() || c.entities.Len() != o.entities.Len() {
		return false
	}
	vi := c.views.Iterator()
	for !vi.Done() {
		k, v, _ := vi.Next()
		ov, ok := o.views.Get(k)
		if !ok || !loading.Equal(v, ov) {
			return false
		}
	}
	ei := c.entities.Iterator()
	for !ei.Done() {
		k, v, _ := ei.Next()
		ov, ok := o.entities.Get(k)
		if !ok || !loading.Equal(v, ov) {
			return false
		}
	}
	return true
}

// ==============================
// Entities
// ==============================

// WithResource stores v as a loaded entity. Views are not touched.
func (c Collection[V]) WithResource(v V) Collection[V] {
	return c.withEntities(c.entities.Set(c.id(v), loading.Success(v)))
}

// WithResourceFailure records a failed load for id.
func (c Collection[V]) WithResourceFailure(id, msg string) Collection[V] {
	return c.withEntities(c.entities.Set(id, loading.Failure[V](msg)))
}

// MapResource transforms the payload of a known entity. Unknown IDs are a no-op.
func (c Collection[V]) MapResource(id string, f func(V) V) Collection[V] {
	cur, ok := c.entities.Get(id)
	if !ok {
		return c
	}
	return c.withEntities(c.entities.Set(id, cur.Map(f)))
}

// Map transforms the payload of every entity that has one.
func (c Collection[V]) Map(f func(V) V) Collection[V] {
	m := c.entities
	itr := c.entities.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		if v.HasValue() {
			m = m.Set(k, v.Map(f))
		}
	}
	return c.withEntities(m)
}

// Remove forgets the entity state for id. Views still referencing id drop it
// at resolution time.
func (c Collection[V]) Remove(id string) Collection[V] {
	return c.withEntities(c.entities.Delete(id))
}

// Fetch marks id as in flight: entities with a payload become Refresh,
// everything else becomes Pending.
func (c Collection[V]) Fetch(id string) Collection[V] {
	cur, _ := c.entities.Get(id)
	return c.withEntities(c.entities.Set(id, inFlight(cur)))
}

func inFlight[T any](cur loading.Value[T]) loading.Value[T] {
	if p, ok := cur.Value(); ok {
		return loading.Refresh(p)
	}
	return loading.Pending[T]()
}

// ==============================
// Views
// ==============================

// WithList stores items as the loaded default view.
func (c Collection[V]) WithList(items []V) Collection[V] {
	return c.WithListAt(DefaultView, items)
}

// WithListAt stores items as the loaded view at key and upserts every item as
// a loaded entity.
func (c Collection[V]) WithListAt(key string, items []V) Collection[V] {
	ids := make([]string, 0, len(items))
	m := c.entities
	for _, it := range items {
		id := c.id(it)
		ids = append(ids, id)
		m = m.Set(id, loading.Success(it))
	}
	c.entities = m
	return c.withViews(c.views.Set(key, loading.Success(ids)))
}

// WithListFailure records a failed load of the default view.
func (c Collection[V]) WithListFailure(msg string) Collection[V] {
	return c.WithListFailureAt(DefaultView, msg)
}

// WithListFailureAt records a failed load of the view at key. Entities are not touched.
func (c Collection[V]) WithListFailureAt(key, msg string) Collection[V] {
	return c.withViews(c.views.Set(key, loading.Failure[[]string](msg)))
}

// WithResourceAt stores v as a loaded entity and appends its ID to the view at key.
func (c Collection[V]) WithResourceAt(key string, v V) Collection[V] {
	return c.WithResource(v).appendID(key, c.id(v))
}

// WithResourceFailureAt records a failed entity and appends its ID to the view at key.
func (c Collection[V]) WithResourceFailureAt(key, id, msg string) Collection[V] {
	return c.WithResourceFailure(id, msg).appendID(key, id)
}

func (c Collection[V]) appendID(key, id string) Collection[V] {
	cur := c.viewState(key)
	if ids, ok := cur.Value(); ok {
		next := make([]string, 0, len(ids)+1)
		next = append(append(next, ids...), id)
		return c.withViews(c.views.Set(key, loading.Map(cur, func([]string) []string { return next })))
	}
	return c.withViews(c.views.Set(key, loading.Success([]string{id})))
}

// Refresh marks the default view as reloading.
func (c Collection[V]) Refresh() Collection[V] { return c.RefreshAt(DefaultView) }

// RefreshAt marks the view at key as reloading, keeping the last known ID list if any.
func (c Collection[V]) RefreshAt(key string) Collection[V] {
	return c.withViews(c.views.Set(key, inFlight(c.viewState(key))))
}

// Omit removes id from the default view.
func (c Collection[V]) Omit(id string) Collection[V] { return c.OmitAt(DefaultView, id) }

// OmitAt removes every occurrence of id from the view at key, keeping order.
// Views without an ID list are left unchanged.
func (c Collection[V]) OmitAt(key, id string) Collection[V] {
	cur, ok := c.views.Get(key)
	if !ok || !cur.HasValue() {
		return c
	}
	return c.withViews(c.views.Set(key, cur.Map(func(ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, x := range ids {
			if x != id {
				out = append(out, x)
			}
		}
		return out
	})))
}

// Reset drops the default view.
func (c Collection[V]) Reset() Collection[V] { return c.ResetAt(DefaultView) }

// ResetAt drops the view at key so it resolves to Initial again.
func (c Collection[V]) ResetAt(key string) Collection[V] {
	return c.withViews(c.views.Delete(key))
}
