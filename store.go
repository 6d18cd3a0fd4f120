package remotecoll

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/remotecoll/loading"
)

// Patch is a partial resource update, keyed by property name.
type Patch map[string]any

// Source is the remote side of a Store.
type Source[V any] interface {
	// List returns the full remote collection, in order.
	List(ctx context.Context) ([]V, error)
	// Get returns a single resource; unknown IDs must return an error.
	Get(ctx context.Context, id string) (V, error)
	// Update applies patch and returns the updated resource.
	Update(ctx context.Context, id string, patch Patch) (V, error)
	// Delete removes the resource remotely.
	Delete(ctx context.Context, id string) error
}

// ListFunc loads the members of one view.
type ListFunc[V any] func(ctx context.Context) ([]V, error)

// StoreOptions configure a Store. Only Source and one of ID or IDProp are required.
type StoreOptions[V any] struct {
	Source Source[V]
	ID     IDFunc[V]
	IDProp string

	Initial     *Collection[V] // starting snapshot; nil => empty
	Logger      Logger         // if nil, NopLogger is used
	Hooks       Hooks          // if nil, NopHooks is used
	CallTimeout time.Duration  // per Source call; 0 => caller's context only
}

// Store drives the fetch lifecycle of a Collection against a Source: every
// operation marks the affected value as in flight, calls the Source, and then
// settles the value to its loaded or failed state.
//
// Calls are neither de-duplicated nor cancelled by the Store. Concurrent
// operations on the same ID each reach the Source and the last one to settle
// wins. The mutex only guards the snapshot swap.
type Store[V any] struct {
	mu  sync.RWMutex
	cur Collection[V]

	src     Source[V]
	log     Logger
	hooks   Hooks
	timeout time.Duration
}

func NewStore[V any](opts StoreOptions[V]) (*Store[V], error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}

	var cur Collection[V]
	switch {
	case opts.Initial != nil:
		cur = *opts.Initial
	case opts.ID != nil:
		cur = New[V](opts.ID)
		cur.idProp = opts.IDProp
	case opts.IDProp != "":
		cur = NewWithProp[V](opts.IDProp)
	default:
		return nil, ErrNoID
	}

	return &Store[V]{
		cur:     cur,
		src:     opts.Source,
		log:     coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:   coalesce[Hooks](opts.Hooks, NopHooks{}),
		timeout: opts.CallTimeout,
	}, nil
}

// Snapshot returns the current collection. It is immutable and safe to keep.
func (s *Store[V]) Snapshot() Collection[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// List resolves the default view of the current snapshot.
func (s *Store[V]) List() loading.Value[[]V] { return s.Snapshot().View() }

// Get returns the state of id, Failure if the store has no record of it.
func (s *Store[V]) Get(id string) loading.Value[V] { return s.Snapshot().Get(id) }

func (s *Store[V]) apply(f func(Collection[V]) Collection[V]) Collection[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = f(s.cur)
	return s.cur
}

func (s *Store[V]) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// Refresh reloads the default view from Source.List.
func (s *Store[V]) Refresh(ctx context.Context) (Collection[V], error) {
	return s.RefreshAt(ctx, DefaultView, s.src.List)
}

// RefreshAt reloads the view at key with list. On failure the view becomes
// Failure and the error is returned as a *ResourceError.
func (s *Store[V]) RefreshAt(ctx context.Context, key string, list ListFunc[V]) (Collection[V], error) {
	s.apply(func(c Collection[V]) Collection[V] { return c.RefreshAt(key) })
	s.log.Debug("view refresh started", Fields{"view": key})

	cctx, cancel := s.callCtx(ctx)
	items, err := list(cctx)
	cancel()
	if err != nil {
		s.log.Warn("view refresh failed", Fields{"view": key, "err": err})
		s.hooks.ListFailed(key, err)
		c := s.apply(func(c Collection[V]) Collection[V] { return c.WithListFailureAt(key, err.Error()) })
		return c, &ResourceError{Op: "refresh", ID: key, Err: err}
	}
	return s.apply(func(c Collection[V]) Collection[V] { return c.WithListAt(key, items) }), nil
}

// Fetch loads a single resource from Source.Get.
func (s *Store[V]) Fetch(ctx context.Context, id string) (Collection[V], error) {
	s.apply(func(c Collection[V]) Collection[V] { return c.Fetch(id) })
	s.log.Debug("fetch started", Fields{"id": id})

	cctx, cancel := s.callCtx(ctx)
	v, err := s.src.Get(cctx, id)
	cancel()
	if err != nil {
		return s.fail("fetch", id, err)
	}
	return s.apply(func(c Collection[V]) Collection[V] { return c.WithResource(v) }), nil
}

// FetchMany runs Fetch for every id concurrently. Each resource settles on
// its own; the first error, if any, is returned.
func (s *Store[V]) FetchMany(ctx context.Context, ids []string) (Collection[V], error) {
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.Fetch(ctx, id)
			return err
		})
	}
	err := g.Wait()
	return s.Snapshot(), err
}

// Update applies patch through Source.Update. Unknown IDs fail with
// ErrNotFound before anything is sent.
func (s *Store[V]) Update(ctx context.Context, id string, patch Patch) (Collection[V], error) {
	if err := s.markKnown("update", id); err != nil {
		return s.Snapshot(), err
	}

	cctx, cancel := s.callCtx(ctx)
	v, err := s.src.Update(cctx, id, patch)
	cancel()
	if err != nil {
		return s.fail("update", id, err)
	}
	return s.apply(func(c Collection[V]) Collection[V] { return c.WithResource(v) }), nil
}

// Delete removes the resource through Source.Delete. On success only the
// entity is dropped; views keep the ID and skip it at resolution, as with
// Remove. Unknown IDs fail with ErrNotFound before anything is sent.
func (s *Store[V]) Delete(ctx context.Context, id string) (Collection[V], error) {
	if err := s.markKnown("delete", id); err != nil {
		return s.Snapshot(), err
	}

	cctx, cancel := s.callCtx(ctx)
	err := s.src.Delete(cctx, id)
	cancel()
	if err != nil {
		return s.fail("delete", id, err)
	}
	return s.apply(func(c Collection[V]) Collection[V] { return c.Remove(id) }), nil
}

// markKnown moves a known entity in flight, atomically with the existence check.
func (s *Store[V]) markKnown(op, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.Has(id) {
		return &ResourceError{Op: op, ID: id, Err: ErrNotFound}
	}
	s.cur = s.cur.Fetch(id)
	s.log.Debug(op+" started", Fields{"id": id})
	return nil
}

func (s *Store[V]) fail(op, id string, err error) (Collection[V], error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.log.Debug(op+" aborted", Fields{"id": id, "err": err})
	} else {
		s.log.Warn(op+" failed", Fields{"id": id, "err": err})
	}
	s.hooks.SourceFailed(op, id, err)
	c := s.apply(func(c Collection[V]) Collection[V] { return c.WithResourceFailure(id, err.Error()) })
	return c, &ResourceError{Op: op, ID: id, Err: err}
}
