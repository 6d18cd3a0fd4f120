// Package remotecoll implements an immutable, normalized collection of remote
// entities. Entities are stored once, keyed by ID, each with its own loading
// state; named views hold ordered ID lists with a loading state of their own
// and are joined against the entities on read.
//
// Components:
//   - Collection[V]: the copy-on-write value. Every method returns a new
//     collection; older snapshots never change.
//   - loading.Value[V]: five-state loading algebra (Initial, Pending, Refresh,
//     Success, Failure) used for entities and views alike.
//   - Store[V]: drives the fetch lifecycle against a Source (list, get,
//     update, delete) and keeps the latest snapshot.
//   - Archive[V]: persists snapshots in a byte Provider (Ristretto, BigCache,
//     Redis, memory) with compare-and-swap safety via per-key generations.
//
// Merging (Concat, Union) overwrites entities right-biased and extends view
// lists only when both sides carry one:
//
//	page1 := remotecoll.NewWithProp[User]("id").WithList(first)
//	page2 := remotecoll.NewWithProp[User]("id").WithList(second)
//	all   := page1.Concat(page2) // view() == first ++ second
//
// Keys:
//
//	snap:<ns>:<key> - archived snapshots
package remotecoll
