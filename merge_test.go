package remotecoll

import (
	"testing"

	"github.com/unkn0wn-root/remotecoll/loading"
)

var moreItems = []item{{ID: "c", Foo: "test"}, {ID: "d", Foo: "test"}}

const mixedKey = "someViewKey"

// viewStates builds one collection per view state at mixedKey, each loaded from list.
func viewStates(list []item) map[string]Collection[item] {
	return map[string]Collection[item]{
		"initial": newCol(),
		"pending": newCol().RefreshAt(mixedKey),
		"refresh": newCol().WithListAt(mixedKey, list).RefreshAt(mixedKey),
		"success": newCol().WithListAt(mixedKey, list),
		"failure": newCol().WithListFailureAt(mixedKey, "Somebody set up us the bomb"),
	}
}

func TestConcatBothEmpty(t *testing.T) {
	a, b := newCol(), newCol()
	assertEqual(t, a.Concat(b), a)
	assertEqual(t, b.Concat(a), a)
}

func TestConcatOneEmpty(t *testing.T) {
	full, empty := newCol().WithList(items), newCol()
	assertValue(t, full.Concat(empty).View(), loading.Success(items))
	assertValue(t, empty.Concat(full).View(), loading.Success(items))
}

func TestConcatAppends(t *testing.T) {
	a, b := newCol().WithList(items), newCol().WithList(moreItems)
	assertValue(t, a.Concat(b).View(), loading.Success(append(append([]item{}, items...), moreItems...)))
	assertValue(t, b.Concat(a).View(), loading.Success(append(append([]item{}, moreItems...), items...)))
}

func TestConcatOverlapping(t *testing.T) {
	overlapping := []item{{ID: "a", Foo: "BAR"}, {ID: "c", Foo: "RAB"}}
	a, b := newCol().WithList(items), newCol().WithList(overlapping)

	assertValue(t, a.Concat(b).View(), loading.Success([]item{
		{ID: "a", Foo: "BAR"}, {ID: "b", Foo: "baz"}, {ID: "a", Foo: "BAR"}, {ID: "c", Foo: "RAB"},
	}))
	assertValue(t, b.Concat(a).View(), loading.Success([]item{
		{ID: "a", Foo: "bar"}, {ID: "c", Foo: "RAB"}, {ID: "a", Foo: "bar"}, {ID: "b", Foo: "baz"},
	}))
	assertValue(t, a.Concat(a).View(), loading.Success(append(append([]item{}, items...), items...)))
}

func TestConcatDifferentViewKeys(t *testing.T) {
	overlapping := []item{{ID: "a", Foo: "BAR"}, {ID: "c", Foo: "RAB"}}
	a := newCol().WithListAt("someViewKey", items)
	b := newCol().WithListAt("someOtherViewKey", overlapping)

	ab := a.Concat(b)
	assertValue(t, ab.ViewAt("someViewKey"), loading.Success([]item{{ID: "a", Foo: "BAR"}, {ID: "b", Foo: "baz"}}))
	assertValue(t, ab.ViewAt("someOtherViewKey"), loading.Success(overlapping))

	ba := b.Concat(a)
	assertValue(t, ba.ViewAt("someViewKey"), loading.Success(items))
	assertValue(t, ba.ViewAt("someOtherViewKey"), loading.Success([]item{{ID: "a", Foo: "bar"}, {ID: "c", Foo: "RAB"}}))
}

func TestConcatStateTable(t *testing.T) {
	existing := viewStates(items)
	incoming := viewStates(moreItems)
	both := append(append([]string{}, items[0].ID, items[1].ID), moreItems[0].ID, moreItems[1].ID)

	// incoming ids as stored by each incoming state
	incomingIDs := map[string]loading.Value[[]string]{
		"initial": loading.Initial[[]string](),
		"pending": loading.Pending[[]string](),
		"refresh": loading.Refresh([]string{"c", "d"}),
		"success": loading.Success([]string{"c", "d"}),
		"failure": loading.Failure[[]string]("Somebody set up us the bomb"),
	}
	states := []string{"initial", "pending", "refresh", "success", "failure"}

	for _, ex := range states {
		for _, in := range states {
			t.Run(ex+"+"+in, func(t *testing.T) {
				got := existing[ex].Concat(incoming[in]).ViewState(mixedKey)

				want := incomingIDs[in]
				if (ex == "success" || ex == "refresh") && (in == "success" || in == "refresh") {
					want = loading.Map(incomingIDs[in], func([]string) []string { return both })
				}
				if in == "initial" {
					// incoming collection has no entry at the key: existing survives
					want = existing[ex].ViewState(mixedKey)
				}
				assertValue(t, got, want)
			})
		}
	}
}

func TestConcatNamedTransitions(t *testing.T) {
	s := viewStates(items)
	assertValue(t, s["initial"].Concat(s["success"]).ViewAt(mixedKey), loading.Success(items))
	assertValue(t, s["pending"].Concat(s["success"]).ViewAt(mixedKey), loading.Success(items))
	assertValue(t, s["success"].Concat(s["pending"]).ViewAt(mixedKey), loading.Pending[[]item]())
	assertValue(t, s["pending"].Concat(s["refresh"]).ViewAt(mixedKey), loading.Refresh(items))
	assertValue(t, s["refresh"].Concat(s["pending"]).ViewAt(mixedKey), loading.Pending[[]item]())
	assertValue(t, s["success"].Concat(s["failure"]).ViewAt(mixedKey), loading.Failure[[]item]("Somebody set up us the bomb"))
	assertValue(t, s["failure"].Concat(s["success"]).ViewAt(mixedKey), loading.Success(items))
}

func TestConcatEntitiesRightBiased(t *testing.T) {
	a := newCol().WithList(items)
	b := newCol().WithResourceFailure("a", "boom").Fetch("b")

	ab := a.Concat(b)
	assertValue(t, ab.Find("a"), loading.Failure[item]("boom"))
	assertValue(t, ab.Find("b"), loading.Pending[item]())
	assertValue(t, ab.View(), loading.Failure[[]item]("boom"))

	ba := b.Concat(a)
	assertValue(t, ba.Find("a"), loading.Success(items[0]))
	assertValue(t, ba.Find("b"), loading.Success(items[1]))
}

func TestUnion(t *testing.T) {
	overlapping := []item{{ID: "a", Foo: "BAR"}, {ID: "c", Foo: "RAB"}}
	a, b := newCol().WithList(items), newCol().WithList(overlapping)

	assertEqual(t, newCol().Union(newCol()), newCol())
	assertValue(t, a.Union(newCol()).View(), loading.Success(items))
	assertValue(t, newCol().Union(a).View(), loading.Success(items))

	assertValue(t, a.Union(b).View(), loading.Success([]item{
		{ID: "a", Foo: "BAR"}, {ID: "b", Foo: "baz"}, {ID: "c", Foo: "RAB"},
	}))
	assertValue(t, b.Union(a).View(), loading.Success([]item{
		{ID: "a", Foo: "bar"}, {ID: "c", Foo: "RAB"}, {ID: "b", Foo: "baz"},
	}))
	assertValue(t, a.Union(a).View(), loading.Success(items))
}

func TestUnionFollowsConcatStates(t *testing.T) {
	s := viewStates(items)
	assertValue(t, s["success"].Union(s["pending"]).ViewAt(mixedKey), loading.Pending[[]item]())
	assertValue(t, s["refresh"].Union(s["success"]).ViewState(mixedKey), loading.Success([]string{"a", "b"}))
	assertValue(t, s["success"].Union(s["refresh"]).ViewState(mixedKey), loading.Refresh([]string{"a", "b"}))
}

func TestAppendList(t *testing.T) {
	c := newCol().WithList(items).AppendList(moreItems)
	assertValue(t, c.View(), loading.Success(append(append([]item{}, items...), moreItems...)))

	refreshing := newCol().WithList(items).Refresh().AppendList(moreItems)
	assertValue(t, refreshing.ViewState(DefaultView), loading.Success([]string{"a", "b", "c", "d"}))

	fresh := newCol().AppendListAt("k", items)
	assertValue(t, fresh.ViewAt("k"), loading.Success(items))
}
