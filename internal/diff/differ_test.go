package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-sync/internal/diff"
	"db-sync/internal/schema"
)

func column(name, kind string, size int) *schema.Column {
	return &schema.Column{
		Name: name,
		Type: schema.TypeSignature{Kind: kind, Size: size},
		Raw:  kind,
	}
}

func usersTable() *schema.Table {
	return &schema.Table{
		Name: "users",
		Columns: []*schema.Column{
			column("id", "int", 0),
			column("email", "varchar", 120),
		},
		PrimaryKey: []string{"id"},
	}
}

func warningsAt(plan *diff.Plan, level diff.WarningLevel) []diff.Warning {
	var out []diff.Warning
	for _, w := range plan.Warnings {
		if w.Level == level {
			out = append(out, w)
		}
	}
	return out
}

func TestDiff_AlignedSchemasEmptyPlan(t *testing.T) {
	source := schema.Set{"users": usersTable()}
	target := schema.Set{"users": usersTable()}

	plan := diff.Diff(source, target)

	assert.True(t, plan.Empty())
	assert.Empty(t, plan.Warnings)
}

func TestDiff_MissingTableCreated(t *testing.T) {
	source := schema.Set{"users": usersTable()}
	target := schema.Set{}

	plan := diff.Diff(source, target)

	require.Len(t, plan.CreateTables, 1)
	assert.Equal(t, "users", plan.CreateTables[0].Table)
	assert.NotEmpty(t, warningsAt(plan, diff.Advisory))
	assert.Empty(t, warningsAt(plan, diff.Manual))
}

func TestDiff_MissingColumnAdded(t *testing.T) {
	source := schema.Set{"users": usersTable()}
	tt := usersTable()
	tt.Columns = tt.Columns[:1] // drop email
	target := schema.Set{"users": tt}

	plan := diff.Diff(source, target)

	require.Len(t, plan.AddColumns, 1)
	assert.Equal(t, "users", plan.AddColumns[0].Table)
	assert.Equal(t, "email", plan.AddColumns[0].Column.Name)
	assert.NotEmpty(t, warningsAt(plan, diff.Advisory))
}

func TestDiff_TypeMismatchIsManualOnly(t *testing.T) {
	source := schema.Set{"users": usersTable()}
	tt := usersTable()
	tt.Column("email").Type = schema.TypeSignature{Kind: "varchar", Size: 60}
	target := schema.Set{"users": tt}

	plan := diff.Diff(source, target)

	// Narrowing or altering in place can destroy data; nothing applicable
	// may be planned for it.
	assert.True(t, plan.Empty())
	manual := warningsAt(plan, diff.Manual)
	require.Len(t, manual, 1)
	assert.Contains(t, manual[0].Message, "users.email")
}

func TestDiff_TargetOnlyStructureNeverDropped(t *testing.T) {
	source := schema.Set{"users": usersTable()}
	tt := usersTable()
	tt.Columns = append(tt.Columns, column("legacy_flag", "char", 1))
	target := schema.Set{
		"users":      tt,
		"audit_trail": {Name: "audit_trail"},
	}

	plan := diff.Diff(source, target)

	assert.True(t, plan.Empty())
	manual := warningsAt(plan, diff.Manual)
	require.Len(t, manual, 2)
}

func TestDiff_ForeignKeyMatchedBySignatureNotName(t *testing.T) {
	newFK := func(name string) *schema.ForeignKey {
		return &schema.ForeignKey{
			Name:       name,
			Columns:    []string{"user_id"},
			RefTable:   "users",
			RefColumns: []string{"id"},
		}
	}
	st := &schema.Table{Name: "orders", ForeignKeys: []*schema.ForeignKey{newFK("orders_user_id_fkey")}}
	tt := &schema.Table{Name: "orders", ForeignKeys: []*schema.ForeignKey{newFK("fk_orders_user")}}

	plan := diff.Diff(schema.Set{"orders": st}, schema.Set{"orders": tt})

	assert.Empty(t, plan.AddForeignKeys)
}

func TestDiff_UniqueSatisfiedByUniqueIndex(t *testing.T) {
	st := usersTable()
	st.Uniques = []*schema.UniqueConstraint{{Name: "uniq_users_email", Columns: []string{"email"}}}
	tt := usersTable()
	tt.Indexes = []*schema.Index{{Name: "users_email_key", Unique: true, Columns: []string{"email"}}}

	plan := diff.Diff(schema.Set{"users": st}, schema.Set{"users": tt})

	assert.Empty(t, plan.AddUniques)
}

func TestDiff_CheckMatchedAfterNormalization(t *testing.T) {
	st := usersTable()
	st.Checks = []*schema.CheckConstraint{{Name: "c1", Expr: "Amount >  0"}}
	tt := usersTable()
	tt.Checks = []*schema.CheckConstraint{{Name: "other_name", Expr: "amount > 0"}}

	plan := diff.Diff(schema.Set{"users": st}, schema.Set{"users": tt})

	assert.Empty(t, plan.AddChecks)
}

func TestDiff_SequencesQueuedForSharedAndNewTables(t *testing.T) {
	st := usersTable()
	st.Sequences = []*schema.SequenceBinding{{Name: "users_id_seq", Table: "users", Column: "id"}}
	ot := &schema.Table{
		Name:      "orders",
		Sequences: []*schema.SequenceBinding{{Table: "orders", Column: "id"}},
	}
	source := schema.Set{"users": st, "orders": ot}
	target := schema.Set{"users": usersTable()} // orders missing entirely

	plan := diff.Diff(source, target)

	require.Len(t, plan.Sequences, 2)
}

func TestDiff_Idempotent(t *testing.T) {
	st := usersTable()
	st.Uniques = []*schema.UniqueConstraint{{Columns: []string{"email"}}}
	source := schema.Set{"users": st, "orders": {Name: "orders"}}
	target := schema.Set{"users": usersTable()}

	first := diff.Diff(source, target)
	second := diff.Diff(source, target)

	require.Equal(t, first, second)
}
