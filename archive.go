package remotecoll

import (
	"context"
	"errors"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/remotecoll/codec"
	gen "github.com/unkn0wn-root/remotecoll/genstore"
	"github.com/unkn0wn-root/remotecoll/internal/wire"
	pr "github.com/unkn0wn-root/remotecoll/provider"
)

// SetCostFunc computes the provider cost of an archived snapshot.
type SetCostFunc func(storageKey string, raw []byte) int64

// Archive persists collection snapshots in a byte Provider with
// compare-and-swap safety via per-key generations:
//
//	obs := archive.SnapshotGen(k) // before reading the source
//	col := loadFromSource()
//	_   = archive.SaveWithGen(ctx, k, col, obs, 0) // write iff gen still == obs
//
// Load never returns a snapshot written under an older generation.
// Collections without an identity property need ArchiveOptions.Decode:
// SaveWithGen refuses them otherwise, and Load reports ErrNoID while keeping
// the stored snapshot.
type Archive[V any] interface {
	Enabled() bool
	Close(context.Context) error

	Load(ctx context.Context, key string) (col Collection[V], ok bool, err error)
	SaveWithGen(ctx context.Context, key string, col Collection[V], observedGen uint64, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	SnapshotGen(key string) uint64
}

// ArchiveOptions tune an Archive. Namespace and Provider are required.
type ArchiveOptions[V any] struct {
	Namespace string // e.g. "app:prod:users"
	Provider  pr.Provider
	Codec     c.Codec[Document[V]] // nil => codec.JSON
	Decode    DecodeOptions[V]     // identity for loaded snapshots; required for collections built with New

	Logger          Logger        // if nil, NopLogger is used
	Hooks           Hooks         // if nil, NopHooks is used
	DefaultTTL      time.Duration // 0 => 10m
	CleanupInterval time.Duration // local genstore sweep; 0 => 1h
	GenRetention    time.Duration // local genstore retention; 0 => 30d
	Disabled        bool          // default false (enabled)
	ComputeSetCost  SetCostFunc   // default 1
	GenStore        gen.GenStore  // nil => LocalGenStore (in-process)
}

type archive[V any] struct {
	ns             string
	provider       pr.Provider
	codec          c.Codec[Document[V]]
	decode         DecodeOptions[V]
	log            Logger
	hooks          Hooks
	enabled        bool
	defaultTTL     time.Duration
	computeSetCost SetCostFunc
	gen            gen.GenStore
}

func NewArchive[V any](opts ArchiveOptions[V]) (Archive[V], error) {
	return newArchive(opts)
}

func newArchive[V any](opts ArchiveOptions[V]) (*archive[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("remotecoll: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("remotecoll: namespace is required")
	}

	a := &archive[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		decode:   opts.Decode,
		enabled:  !opts.Disabled,
	}

	// defaults
	a.codec = coalesce[c.Codec[Document[V]]](opts.Codec, c.JSON[Document[V]]{})
	a.log = coalesce[Logger](opts.Logger, NopLogger{})
	a.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	a.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)

	if opts.ComputeSetCost != nil {
		a.computeSetCost = opts.ComputeSetCost
	} else {
		a.computeSetCost = func(string, []byte) int64 { return 1 }
	}

	if opts.GenStore != nil {
		a.gen = opts.GenStore
	} else {
		a.gen = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}
	return a, nil
}

func (a *archive[V]) Enabled() bool { return a.enabled }

func (a *archive[V]) Close(ctx context.Context) error {
	// Close gen store first (best effort)
	if a.gen != nil {
		_ = a.gen.Close(ctx)
	}
	return a.provider.Close(ctx)
}

func (a *archive[V]) Load(ctx context.Context, key string) (Collection[V], bool, error) {
	var zero Collection[V]
	if !a.enabled {
		return zero, false, nil
	}
	k := a.storageKey(key)
	raw, ok, err := a.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	g, payload, err := wire.DecodeSnapshot(raw)
	if err != nil {
		a.selfHeal(ctx, k, "corrupt")
		return zero, false, nil
	}
	if g != a.snapshotGen(ctx, k) {
		a.selfHeal(ctx, k, "gen_mismatch")
		return zero, false, nil
	}
	doc, err := a.codec.Decode(payload)
	if err != nil {
		a.selfHeal(ctx, k, "decode")
		return zero, false, nil
	}
	col, err := FromDocument(doc, a.decode)
	if errors.Is(err, ErrNoID) {
		// the snapshot is fine; the archive lacks an identity to rebuild it with
		return zero, false, err
	}
	if err != nil {
		a.selfHeal(ctx, k, "decode")
		return zero, false, nil
	}
	return col, true, nil
}

func (a *archive[V]) SaveWithGen(ctx context.Context, key string, col Collection[V], observedGen uint64, ttl time.Duration) error {
	if !a.enabled {
		return nil
	}
	if ttl == 0 {
		ttl = a.defaultTTL
	}
	if col.IDProp() == "" && a.decode.ID == nil && a.decode.IDProp == "" {
		return ErrNoID
	}
	k := a.storageKey(key)
	if a.snapshotGen(ctx, k) != observedGen {
		// generation moved; skip stale write
		a.log.Debug("SaveWithGen skipped (gen mismatch)", Fields{"key": key, "obs": observedGen})
		return nil
	}
	payload, err := a.codec.Encode(col.Document())
	if err != nil {
		return err
	}
	raw := wire.EncodeSnapshot(observedGen, payload)
	ok, err := a.provider.Set(ctx, k, raw, a.computeSetCost(k, raw), ttl)
	if err != nil {
		return err
	}
	if !ok {
		a.log.Debug("SaveWithGen rejected by provider (pressure)", Fields{"key": key})
		a.hooks.ProviderSetRejected(k)
	}
	return nil
}

// Invalidate bumps the generation, so in-flight saves observed before it are
// skipped, and deletes the stored snapshot.
func (a *archive[V]) Invalidate(ctx context.Context, key string) error {
	if !a.enabled {
		return nil
	}
	k := a.storageKey(key)
	newGen, bumpErr := a.gen.Bump(ctx, k)
	if bumpErr != nil {
		a.log.Error("gen bump error", Fields{"key": k, "err": bumpErr})
		a.hooks.GenBumpError(k, bumpErr)
	}
	delErr := a.provider.Del(ctx, k)
	switch {
	case bumpErr != nil && delErr != nil:
		a.hooks.InvalidateOutage(key, bumpErr, delErr)
		return &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	case bumpErr != nil || delErr != nil:
		return &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	}
	a.log.Debug("invalidated snapshot (bumped gen + deleted)", Fields{"key": key, "newGen": newGen})
	return nil
}

func (a *archive[V]) SnapshotGen(key string) uint64 {
	return a.snapshotGen(context.Background(), a.storageKey(key))
}

func (a *archive[V]) snapshotGen(ctx context.Context, storageKey string) uint64 {
	g, err := a.gen.Snapshot(ctx, storageKey)
	if err != nil {
		// Conservative: treat as 0 so CAS writes will skip; reads will self-heal
		a.log.Warn("gen snapshot error", Fields{"key": storageKey, "err": err})
		a.hooks.GenSnapshotError(storageKey, err)
		return 0
	}
	return g
}

func (a *archive[V]) selfHeal(ctx context.Context, storageKey, reason string) {
	_ = a.provider.Del(ctx, storageKey)
	a.log.Debug("dropped archived snapshot", Fields{"key": storageKey, "reason": reason})
	a.hooks.SelfHeal(storageKey, reason)
}

func (a *archive[V]) storageKey(userKey string) string {
	// isolate by namespace
	return "snap:" + a.ns + ":" + userKey
}
