package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-sync/internal/schema"
)

func tableWithRefs(name string, refs ...string) *schema.Table {
	t := &schema.Table{Name: name, PrimaryKey: []string{"id"}}
	for _, ref := range refs {
		t.ForeignKeys = append(t.ForeignKeys, &schema.ForeignKey{
			Name:       "fk_" + name + "_" + ref,
			Columns:    []string{ref + "_id"},
			RefTable:   ref,
			RefColumns: []string{"id"},
		})
	}
	return t
}

func setOf(tables ...*schema.Table) schema.Set {
	s := make(schema.Set, len(tables))
	for _, t := range tables {
		s[t.Name] = t
	}
	return s
}

func indexOf(list []string, name string) int {
	for i, n := range list {
		if n == name {
			return i
		}
	}
	return -1
}

func TestSortTables_Chain(t *testing.T) {
	// order_items -> orders -> users
	s := setOf(
		tableWithRefs("order_items", "orders"),
		tableWithRefs("orders", "users"),
		tableWithRefs("users"),
	)

	order, cyclic := schema.SortTables(s)

	require.Empty(t, cyclic)
	require.Len(t, order, 3)
	assert.Less(t, indexOf(order, "users"), indexOf(order, "orders"))
	assert.Less(t, indexOf(order, "orders"), indexOf(order, "order_items"))
}

func TestSortTables_MutualReferenceBothCyclic(t *testing.T) {
	// staff -> store, store -> staff: no linear order satisfies both, so
	// both must be reported, not just the one the walk re-entered.
	s := setOf(
		tableWithRefs("staff", "store"),
		tableWithRefs("store", "staff"),
		tableWithRefs("customer", "store"),
		tableWithRefs("country"),
	)

	order, cyclic := schema.SortTables(s)

	assert.ElementsMatch(t, []string{"staff", "store"}, cyclic)
	assert.ElementsMatch(t, []string{"country", "customer"}, order)
}

func TestSortTables_LongCycle(t *testing.T) {
	// a -> b -> c -> a, plus d -> c hanging off the cycle.
	s := setOf(
		tableWithRefs("a", "b"),
		tableWithRefs("b", "c"),
		tableWithRefs("c", "a"),
		tableWithRefs("d", "c"),
	)

	order, cyclic := schema.SortTables(s)

	assert.ElementsMatch(t, []string{"a", "b", "c"}, cyclic)
	assert.Equal(t, []string{"d"}, order)
}

func TestSortTables_SelfReferenceNotCyclic(t *testing.T) {
	s := setOf(tableWithRefs("employee", "employee"))

	order, cyclic := schema.SortTables(s)

	assert.Empty(t, cyclic)
	assert.Equal(t, []string{"employee"}, order)
}

func TestSortTables_IgnoresRefsOutsideSet(t *testing.T) {
	// A reference to a table that was filtered out of the snapshot must not
	// wedge the sort.
	s := setOf(tableWithRefs("orders", "users"))

	order, cyclic := schema.SortTables(s)

	assert.Empty(t, cyclic)
	assert.Equal(t, []string{"orders"}, order)
}

func TestSortTables_Deterministic(t *testing.T) {
	s := setOf(
		tableWithRefs("a"),
		tableWithRefs("b"),
		tableWithRefs("c", "a", "b"),
		tableWithRefs("d", "c"),
	)

	first, _ := schema.SortTables(s)
	for i := 0; i < 10; i++ {
		again, _ := schema.SortTables(s)
		require.Equal(t, first, again)
	}
}
