package remotecoll

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow sinks with hooks/async.
type Hooks interface {
	// A Source call for a single resource failed and the entity was set to Failure.
	// op ∈ {"fetch", "update", "delete"}
	SourceFailed(op, id string, err error)

	// A Source list call failed and the view was set to Failure.
	ListFailed(view string, err error)

	// An archived snapshot was deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch", "decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore errors.
	GenSnapshotError(storageKey string, err error)
	GenBumpError(storageKey string, err error)

	// Both gen bump and delete failed during Archive.Invalidate (likely backend outage).
	InvalidateOutage(key string, bumpErr, delErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SourceFailed(string, string, error)    {}
func (NopHooks) ListFailed(string, error)              {}
func (NopHooks) SelfHeal(string, string)               {}
func (NopHooks) ProviderSetRejected(string)            {}
func (NopHooks) GenSnapshotError(string, error)        {}
func (NopHooks) GenBumpError(string, error)            {}
func (NopHooks) InvalidateOutage(string, error, error) {}
