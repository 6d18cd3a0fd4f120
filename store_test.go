package remotecoll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/remotecoll/loading"
)

type fakeSource struct {
	mu    sync.Mutex
	data  map[string]item
	order []string
	calls map[string]int

	listErr   error
	getErr    error
	updateErr error
	deleteErr error

	// gate, when set, holds every call until closed or the context ends.
	gate chan struct{}
	// started, when set, receives the op name as each call begins.
	started chan string
}

var _ Source[item] = (*fakeSource)(nil)

func newFakeSource(list ...item) *fakeSource {
	f := &fakeSource{data: map[string]item{}, calls: map[string]int{}}
	for _, it := range list {
		f.data[it.ID] = it
		f.order = append(f.order, it.ID)
	}
	return f
}

func (f *fakeSource) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- op
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeSource) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSource) List(ctx context.Context) ([]item, error) {
	if err := f.enter(ctx, "list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]item, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.data[id])
	}
	return out, nil
}

func (f *fakeSource) Get(ctx context.Context, id string) (item, error) {
	if err := f.enter(ctx, "get"); err != nil {
		return item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return item{}, f.getErr
	}
	it, ok := f.data[id]
	if !ok {
		return item{}, fmt.Errorf("unknown id %s", id)
	}
	return it, nil
}

func (f *fakeSource) Update(ctx context.Context, id string, patch Patch) (item, error) {
	if err := f.enter(ctx, "update"); err != nil {
		return item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return item{}, f.updateErr
	}
	it, ok := f.data[id]
	if !ok {
		return item{}, fmt.Errorf("unknown id %s", id)
	}
	if foo, ok := patch["foo"].(string); ok {
		it.Foo = foo
	}
	f.data[id] = it
	return it, nil
}

func (f *fakeSource) Delete(ctx context.Context, id string) error {
	if err := f.enter(ctx, "delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.data, id)
	return nil
}

type recHooks struct {
	NopHooks
	mu     sync.Mutex
	source []string
	lists  []string
}

func (h *recHooks) SourceFailed(op, id string, _ error) {
	h.mu.Lock()
	h.source = append(h.source, op+":"+id)
	h.mu.Unlock()
}

func (h *recHooks) ListFailed(view string, _ error) {
	h.mu.Lock()
	h.lists = append(h.lists, view)
	h.mu.Unlock()
}

func newTestStore(t *testing.T, src Source[item], optsOpt func(*StoreOptions[item])) *Store[item] {
	t.Helper()
	opts := StoreOptions[item]{Source: src, IDProp: "id"}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	s, err := NewStore(opts)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

// loadedStore returns a store whose default view holds items.
func loadedStore(t *testing.T, src *fakeSource, optsOpt func(*StoreOptions[item])) *Store[item] {
	t.Helper()
	s := newTestStore(t, src, optsOpt)
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return s
}

// duringCall runs op with the source gated, hands the snapshot taken while the
// call is blocked to check, then releases the call and returns its error.
func duringCall(t *testing.T, src *fakeSource, s *Store[item], op func() error, check func(Collection[item])) error {
	t.Helper()
	src.mu.Lock()
	src.gate = make(chan struct{})
	src.started = make(chan string, 1)
	gate, started := src.gate, src.started
	src.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- op() }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("source call never started")
	}
	check(s.Snapshot())
	close(gate)

	src.mu.Lock()
	src.gate, src.started = nil, nil
	src.mu.Unlock()
	return <-done
}

// ==============================
// Construction
// ==============================

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(StoreOptions[item]{IDProp: "id"}); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
	if _, err := NewStore(StoreOptions[item]{Source: newFakeSource()}); !errors.Is(err, ErrNoID) {
		t.Fatalf("expected ErrNoID, got %v", err)
	}

	initial := newCol().WithList(items)
	s := newTestStore(t, newFakeSource(), func(o *StoreOptions[item]) { o.Initial = &initial })
	assertValue(t, s.List(), loading.Success(items))
}

// ==============================
// Refresh
// ==============================

func TestStoreRefresh(t *testing.T) {
	src := newFakeSource(items...)
	s := newTestStore(t, src, nil)
	assertValue(t, s.List(), loading.Initial[[]item]())

	err := duringCall(t, src, s,
		func() error { _, err := s.Refresh(context.Background()); return err },
		func(c Collection[item]) { assertValue(t, c.View(), loading.Pending[[]item]()) },
	)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	assertValue(t, s.List(), loading.Success(items))
	assertValue(t, s.Get("b"), loading.Success(items[1]))

	// a second refresh keeps the stale list visible
	err = duringCall(t, src, s,
		func() error { _, err := s.Refresh(context.Background()); return err },
		func(c Collection[item]) { assertValue(t, c.View(), loading.Refresh(items)) },
	)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
}

func TestStoreRefreshFailure(t *testing.T) {
	src := newFakeSource(items...)
	hooks := &recHooks{}
	s := loadedStore(t, src, func(o *StoreOptions[item]) { o.Hooks = hooks })

	src.listErr = errors.New("backend down")
	col, err := s.Refresh(context.Background())

	var re *ResourceError
	if !errors.As(err, &re) || re.Op != "refresh" || re.ID != DefaultView {
		t.Fatalf("expected refresh ResourceError, got %#v", err)
	}
	if !errors.Is(err, src.listErr) {
		t.Fatalf("source error not wrapped: %v", err)
	}
	assertValue(t, col.View(), loading.Failure[[]item]("backend down"))
	assertValue(t, col.Find("a"), loading.Success(items[0]))
	if len(hooks.lists) != 1 || hooks.lists[0] != DefaultView {
		t.Fatalf("ListFailed hook calls = %v", hooks.lists)
	}
}

func TestStoreRefreshAtNamedView(t *testing.T) {
	s := newTestStore(t, newFakeSource(), nil)
	page := func(context.Context) ([]item, error) { return moreItems, nil }

	col, err := s.RefreshAt(context.Background(), "page-2", page)
	if err != nil {
		t.Fatal(err)
	}
	assertValue(t, col.ViewAt("page-2"), loading.Success(moreItems))
	assertValue(t, col.View(), loading.Initial[[]item]())
}

// ==============================
// Fetch
// ==============================

func TestStoreFetch(t *testing.T) {
	src := newFakeSource(items...)
	s := newTestStore(t, src, nil)

	err := duringCall(t, src, s,
		func() error { _, err := s.Fetch(context.Background(), "a"); return err },
		func(c Collection[item]) { assertValue(t, c.Find("a"), loading.Pending[item]()) },
	)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	assertValue(t, s.Get("a"), loading.Success(items[0]))

	err = duringCall(t, src, s,
		func() error { _, err := s.Fetch(context.Background(), "a"); return err },
		func(c Collection[item]) { assertValue(t, c.Find("a"), loading.Refresh(items[0])) },
	)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestStoreFetchFailureSettles(t *testing.T) {
	src := newFakeSource(items...)
	hooks := &recHooks{}
	s := loadedStore(t, src, func(o *StoreOptions[item]) { o.Hooks = hooks })

	src.getErr = errors.New("timeout talking to api")
	col, err := s.Fetch(context.Background(), "a")
	if err == nil {
		t.Fatalf("expected error")
	}
	assertValue(t, col.Find("a"), loading.Failure[item]("timeout talking to api"))
	if len(hooks.source) != 1 || hooks.source[0] != "fetch:a" {
		t.Fatalf("SourceFailed hook calls = %v", hooks.source)
	}

	// unknown ids are rejected by the source, not by the store
	src.getErr = nil
	col, err = s.Fetch(context.Background(), "zzz")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected source error, got %v", err)
	}
	assertValue(t, col.Find("zzz"), loading.Failure[item]("unknown id zzz"))
}

func TestStoreCallTimeout(t *testing.T) {
	src := newFakeSource(items...)
	src.gate = make(chan struct{}) // never released
	s := newTestStore(t, src, func(o *StoreOptions[item]) { o.CallTimeout = 10 * time.Millisecond })

	col, err := s.Fetch(context.Background(), "a")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	assertValue(t, col.Find("a"), loading.Failure[item](context.DeadlineExceeded.Error()))
}

func TestStoreFetchMany(t *testing.T) {
	src := newFakeSource(append(append([]item{}, items...), moreItems...)...)
	s := newTestStore(t, src, nil)

	col, err := s.FetchMany(context.Background(), []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("FetchMany: %v", err)
	}
	for _, it := range append(append([]item{}, items...), moreItems...) {
		assertValue(t, col.Find(it.ID), loading.Success(it))
	}

	col, err = s.FetchMany(context.Background(), []string{"a", "nope"})
	if err == nil {
		t.Fatalf("expected an error for the unknown id")
	}
	assertValue(t, col.Find("a"), loading.Success(items[0]))
	assertValue(t, col.Find("nope"), loading.Failure[item]("unknown id nope"))
}

func TestStoreConcurrentFetchesAreNotCoalesced(t *testing.T) {
	src := newFakeSource(items...)
	src.gate = make(chan struct{})
	src.started = make(chan string, 2)
	s := newTestStore(t, src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Fetch(context.Background(), "a")
		}()
	}
	<-src.started
	<-src.started
	if n := src.callCount("get"); n != 2 {
		t.Fatalf("expected two source calls, got %d", n)
	}
	close(src.gate)
	wg.Wait()
	assertValue(t, s.Get("a"), loading.Success(items[0]))
}

// ==============================
// Update and Delete
// ==============================

func TestStoreUpdate(t *testing.T) {
	src := newFakeSource(items...)
	s := loadedStore(t, src, nil)

	err := duringCall(t, src, s,
		func() error { _, err := s.Update(context.Background(), "a", Patch{"foo": "new"}); return err },
		func(c Collection[item]) { assertValue(t, c.Find("a"), loading.Refresh(items[0])) },
	)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := item{ID: "a", Foo: "new"}
	assertValue(t, s.Get("a"), loading.Success(want))
	assertValue(t, s.List(), loading.Success([]item{want, items[1]}))
}

func TestStoreUpdateUnknown(t *testing.T) {
	src := newFakeSource(items...)
	s := loadedStore(t, src, nil)

	_, err := s.Update(context.Background(), "x", Patch{"foo": "new"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "item not found with ID: x") {
		t.Fatalf("unexpected message: %v", err)
	}
	if n := src.callCount("update"); n != 0 {
		t.Fatalf("source must not be called for unknown ids, got %d calls", n)
	}
	if s.Snapshot().Has("x") {
		t.Fatalf("unknown id must not be recorded")
	}
}

func TestStoreUpdateFailureSettles(t *testing.T) {
	src := newFakeSource(items...)
	s := loadedStore(t, src, nil)
	src.updateErr = errors.New("rejected")

	col, err := s.Update(context.Background(), "b", Patch{"foo": "x"})
	var re *ResourceError
	if !errors.As(err, &re) || re.Op != "update" || re.ID != "b" {
		t.Fatalf("expected update ResourceError, got %v", err)
	}
	assertValue(t, col.Find("b"), loading.Failure[item]("rejected"))
	assertValue(t, col.View(), loading.Failure[[]item]("rejected"))
}

func TestStoreDelete(t *testing.T) {
	src := newFakeSource(items...)
	s := loadedStore(t, src, nil)
	if _, err := s.RefreshAt(context.Background(), "k", func(context.Context) ([]item, error) { return items[:1], nil }); err != nil {
		t.Fatal(err)
	}

	err := duringCall(t, src, s,
		func() error { _, err := s.Delete(context.Background(), "a"); return err },
		func(c Collection[item]) { assertValue(t, c.Find("a"), loading.Refresh(items[0])) },
	)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	col := s.Snapshot()
	if col.Has("a") {
		t.Fatalf("deleted entity still recorded")
	}
	// views are left alone; the missing entity drops out at resolution
	assertValue(t, col.ViewState(DefaultView), loading.Success([]string{"a", "b"}))
	assertValue(t, col.ViewState("k"), loading.Success([]string{"a"}))
	assertValue(t, col.View(), loading.Success(items[1:]))
	assertValue(t, col.ViewAt("k"), loading.Success([]item{}))
}

func TestStoreDeleteUnknownAndFailure(t *testing.T) {
	src := newFakeSource(items...)
	s := loadedStore(t, src, nil)

	if _, err := s.Delete(context.Background(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	src.deleteErr = errors.New("forbidden")
	col, err := s.Delete(context.Background(), "a")
	if err == nil {
		t.Fatalf("expected error")
	}
	assertValue(t, col.Find("a"), loading.Failure[item]("forbidden"))
	assertValue(t, col.ViewState(DefaultView), loading.Success([]string{"a", "b"}))
}

func TestStoreSnapshotsAreStable(t *testing.T) {
	src := newFakeSource(items...)
	s := loadedStore(t, src, nil)
	before := s.Snapshot()

	if _, err := s.Update(context.Background(), "a", Patch{"foo": "changed"}); err != nil {
		t.Fatal(err)
	}
	assertValue(t, before.Find("a"), loading.Success(items[0]))
}
