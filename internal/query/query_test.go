package query_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-scheduling-billing/internal/query"
)

type item struct {
	id   int64
	name string
	date string
	kind string
}

func TestAnd_SkipsNilAndCombines(t *testing.T) {
	even := query.Predicate[int](func(v int) bool { return v%2 == 0 })
	big := query.Predicate[int](func(v int) bool { return v > 3 })

	pred := query.And[int](even, nil, big)
	require.Equal(t, []int{4, 6}, query.Filter([]int{1, 2, 3, 4, 5, 6}, pred))

	all := query.And[int]()
	require.True(t, all(42))
}

func TestIn_EmptySetImposesNothing(t *testing.T) {
	get := func(i item) string { return i.kind }
	require.Nil(t, query.In[item, string](nil, get))

	pred := query.In([]string{"a", "b"}, get)
	require.True(t, pred(item{kind: "a"}))
	require.False(t, pred(item{kind: "c"}))
}

func TestEqual(t *testing.T) {
	get := func(i item) string { return i.kind }
	require.Nil(t, query.Equal[item, string](nil, get))

	want := "x"
	pred := query.Equal(&want, get)
	require.True(t, pred(item{kind: "x"}))
	require.False(t, pred(item{kind: "y"}))
}

func TestDateWithin_InclusiveBounds(t *testing.T) {
	require.True(t, query.DateWithin("2025-09-25", "2025-09-25", "2025-09-25"))
	require.True(t, query.DateWithin("2025-09-25", "", ""))
	require.False(t, query.DateWithin("2025-09-24", "2025-09-25", ""))
	require.False(t, query.DateWithin("2025-10-01", "", "2025-09-30"))
}

func TestContainsFold(t *testing.T) {
	require.True(t, query.ContainsFold("", "anything"))
	require.True(t, query.ContainsFold("  ANA ", "Mariana Souza"))
	require.True(t, query.ContainsFold("9988", "Someone", "+55 11 99887-766"))
	require.False(t, query.ContainsFold("99887766", "+55 11 99887-766"))
}

func TestSort_ReverseOfAscEqualsDesc(t *testing.T) {
	items := []item{
		{id: 3, name: "carla", date: "2025-09-02"},
		{id: 1, name: "Ana", date: "2025-09-01"},
		{id: 2, name: "bruno", date: "2025-09-01"},
	}
	byDate := query.Then(
		func(a, b item) int { return query.CompareStrings(a.date, b.date) },
		func(a, b item) int { return query.CompareInt64(a.id, b.id) },
	)

	asc := query.Sort(items, query.WithOrder(byDate, query.Asc))
	desc := query.Sort(items, query.WithOrder(byDate, query.Desc))

	require.Equal(t, []int64{1, 2, 3}, ids(asc))
	reversed := make([]item, len(asc))
	for i := range asc {
		reversed[len(asc)-1-i] = asc[i]
	}
	require.Equal(t, ids(reversed), ids(desc))
	// input untouched
	require.Equal(t, int64(3), items[0].id)
}

func TestCompareFold(t *testing.T) {
	require.Less(t, query.CompareFold("ana", "Bruno"), 0)
	require.NotZero(t, query.CompareFold("Ana", "ana"))
}

func TestParseOrder(t *testing.T) {
	o, ok := query.ParseOrder("")
	require.True(t, ok)
	require.Equal(t, query.Asc, o)

	o, ok = query.ParseOrder("DESC")
	require.True(t, ok)
	require.Equal(t, query.Desc, o)

	_, ok = query.ParseOrder("sideways")
	require.False(t, ok)
}

func ids(items []item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func TestCompareLocale_IgnoresAccentsAndCase(t *testing.T) {
	require.Less(t, query.CompareLocale("Álvaro", "Bruna"), 0)
	require.Less(t, query.CompareLocale("érica", "Fabio"), 0)
	require.Greater(t, query.CompareLocale("Zélia", "ana"), 0)
	require.NotZero(t, query.CompareLocale("Ana", "ana"))
}
