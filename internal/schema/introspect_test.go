package schema_test

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-sync/internal/dialect"
	"db-sync/internal/schema"
)

// mockIntrospection wires the full query sequence a snapshot requires; the
// per-concern row sets come from the setup callback.
func mockIntrospection(t *testing.T, setup func(d dialect.Dialect, mock sqlmock.Sqlmock)) (schema.Set, error) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	d := dialect.Get("postgres")
	setup(d, mock)

	set, err := schema.Introspect(db, d, "public")
	require.NoError(t, mock.ExpectationsWereMet())
	return set, err
}

func TestIntrospect_Postgres(t *testing.T) {
	set, err := mockIntrospection(t, func(d dialect.Dialect, mock sqlmock.Sqlmock) {
		mock.ExpectQuery(d.TablesQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name"}).AddRow("users").AddRow("orders"))

		cols := sqlmock.NewRows([]string{
			"table_name", "column_name", "data_type", "column_type",
			"char_len", "num_precision", "num_scale", "is_nullable", "column_default", "extra",
		}).
			AddRow("users", "id", "int4", "integer", nil, 32, 0, "NO", "nextval('users_id_seq'::regclass)", "nextval('users_id_seq'::regclass)").
			AddRow("users", "email", "character varying", "varchar(120)", 120, nil, nil, "NO", nil, nil).
			AddRow("users", "status", "character varying", "varchar(20)", 20, nil, nil, "YES", "'PROD'::character varying", nil).
			AddRow("orders", "id", "int4", "integer", nil, 32, 0, "NO", nil, nil).
			AddRow("orders", "user_id", "int4", "integer", nil, 32, 0, "YES", nil, nil)
		mock.ExpectQuery(d.ColumnsQuery()).WithArgs("public").WillReturnRows(cols)

		mock.ExpectQuery(d.PrimaryKeysQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "column_name"}).
				AddRow("users", "id").
				AddRow("orders", "id"))

		mock.ExpectQuery(d.ForeignKeysQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "constraint_name", "column_name", "ref_table", "ref_column"}).
				AddRow("orders", "orders_user_id_fkey", "user_id", "users", "id"))

		mock.ExpectQuery(d.IndexesQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "index_name", "column_name", "is_unique"}).
				AddRow("users", "users_email_key", "email", true))

		mock.ExpectQuery(d.UniqueConstraintsQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "constraint_name", "column_name"}).
				AddRow("users", "uniq_users_email", "email"))

		mock.ExpectQuery(d.CheckConstraintsQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "constraint_name", "check_clause"}).
				AddRow("orders", "chk_orders_amount", "amount > 0").
				AddRow("users", "2200_16390_1_not_null", "email IS NOT NULL"))

		mock.ExpectQuery(d.SequencesQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "column_name", "sequence_name"}).
				AddRow("users", "id", "public.users_id_seq"))
	})
	require.NoError(t, err)
	require.Len(t, set, 2)

	users := set["users"]
	require.NotNil(t, users)
	require.Len(t, users.Columns, 3)

	id := users.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, "int", id.Type.Kind)
	assert.True(t, id.AutoInc)
	assert.False(t, id.Nullable)

	email := users.Column("email")
	require.NotNil(t, email)
	assert.Equal(t, "varchar", email.Type.Kind)
	assert.Equal(t, 120, email.Type.Size)
	assert.Equal(t, "varchar(120)", email.Raw)
	assert.True(t, email.Textual())

	status := users.Column("status")
	require.NotNil(t, status)
	assert.True(t, status.Nullable)
	assert.NotEmpty(t, status.Default)

	assert.Equal(t, []string{"id"}, users.PrimaryKey)
	require.Len(t, users.Indexes, 1)
	assert.True(t, users.Indexes[0].Unique)
	require.Len(t, users.Uniques, 1)
	assert.Equal(t, []string{"email"}, users.Uniques[0].Columns)

	// The implicit NOT NULL check must not survive introspection.
	assert.Empty(t, users.Checks)

	require.Len(t, users.Sequences, 1)
	assert.Equal(t, "public.users_id_seq", users.Sequences[0].Name)
	assert.Equal(t, "id", users.Sequences[0].Column)

	orders := set["orders"]
	require.NotNil(t, orders)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "users", orders.ForeignKeys[0].RefTable)
	assert.Equal(t, []string{"user_id"}, orders.ForeignKeys[0].Columns)
	require.Len(t, orders.Checks, 1)
	assert.Equal(t, "amount > 0", orders.Checks[0].Expr)
}

func TestIntrospect_CompositeForeignKeyGrouped(t *testing.T) {
	set, err := mockIntrospection(t, func(d dialect.Dialect, mock sqlmock.Sqlmock) {
		mock.ExpectQuery(d.TablesQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name"}).AddRow("parent").AddRow("child"))

		mock.ExpectQuery(d.ColumnsQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{
				"table_name", "column_name", "data_type", "column_type",
				"char_len", "num_precision", "num_scale", "is_nullable", "column_default", "extra",
			}))

		mock.ExpectQuery(d.PrimaryKeysQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "column_name"}))

		// Composite key arrives as two ordered rows sharing a constraint name.
		mock.ExpectQuery(d.ForeignKeysQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "constraint_name", "column_name", "ref_table", "ref_column"}).
				AddRow("child", "child_parent_fkey", "p_region", "parent", "region").
				AddRow("child", "child_parent_fkey", "p_code", "parent", "code"))

		mock.ExpectQuery(d.IndexesQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "index_name", "column_name", "is_unique"}))
		mock.ExpectQuery(d.UniqueConstraintsQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "constraint_name", "column_name"}))
		mock.ExpectQuery(d.CheckConstraintsQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "constraint_name", "check_clause"}))
		mock.ExpectQuery(d.SequencesQuery()).WithArgs("public").WillReturnRows(
			sqlmock.NewRows([]string{"table_name", "column_name", "sequence_name"}))
	})
	require.NoError(t, err)

	child := set["child"]
	require.NotNil(t, child)
	require.Len(t, child.ForeignKeys, 1)
	fk := child.ForeignKeys[0]
	assert.Equal(t, []string{"p_region", "p_code"}, fk.Columns)
	assert.Equal(t, []string{"region", "code"}, fk.RefColumns)
	assert.Equal(t, "(p_region,p_code)->parent(region,code)", fk.Signature())
}

func TestIntrospect_QueryFailureIsTyped(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := mockIntrospection(t, func(d dialect.Dialect, mock sqlmock.Sqlmock) {
		mock.ExpectQuery(d.TablesQuery()).WithArgs("public").WillReturnError(boom)
	})
	require.Error(t, err)

	var ie *schema.IntrospectionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "tables", ie.Element)
	assert.ErrorIs(t, err, boom)
}
