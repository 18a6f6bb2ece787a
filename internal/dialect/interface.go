package dialect

import "database/sql"

// ColumnDef carries the engine-facing shape of a column for DDL generation.
// The schema package owns the richer metadata model; callers map down to
// this before asking a dialect to build statements.
type ColumnDef struct {
	Name     string
	Type     string // engine-native type text, e.g. "varchar(120)"
	Nullable bool
	Default  string // default expression, empty when none
}

// TableDef is the minimal definition needed to clone a table on the target.
type TableDef struct {
	Name       string
	Columns    []ColumnDef
	PrimaryKey []string
}

// Dialect abstracts database-specific operations.
type Dialect interface {
	// Metadata queries (schema introspection). Every query takes the
	// resolved schema name as its single bind argument.
	TablesQuery() string            // -> (table_name)
	ColumnsQuery() string           // -> (table_name, column_name, data_type, column_type, char_length, num_precision, num_scale, is_nullable, column_default, extra)
	PrimaryKeysQuery() string       // -> (table_name, column_name), ordered by key position
	ForeignKeysQuery() string       // -> (table_name, constraint_name, column_name, ref_table, ref_column), ordered by position
	IndexesQuery() string           // -> (table_name, index_name, column_name, is_unique), ordered by position
	UniqueConstraintsQuery() string // -> (table_name, constraint_name, column_name), ordered by position
	CheckConstraintsQuery() string  // -> (table_name, constraint_name, expression)
	SequencesQuery() string         // -> (table_name, column_name, sequence_name); sequence_name empty for identity-style engines

	// DDL generation. All additive; no dialect emits a DROP.
	CreateTableSQL(t TableDef) string
	AddColumnSQL(table string, c ColumnDef) string
	AddForeignKeySQL(table string, cols []string, refTable string, refCols []string) string
	AddIndexSQL(table string, unique bool, cols []string) string
	AddUniqueSQL(table string, cols []string) string
	AddCheckSQL(table string, expr string) string

	// Sequence reconciliation. NamedSequences reports whether the engine
	// addresses generators through a standalone named sequence object;
	// engines that reconcile via table identity (AUTO_INCREMENT, RESEED)
	// report false and ignore the seq argument below. EnsureSequenceSQL
	// reports false when the engine has no sequence object to create.
	NamedSequences() bool
	EnsureSequenceSQL(seq string) (string, bool)
	SequenceValueQuery(seq, table, column string) string
	SetSequenceSQL(seq, table, column string, value int64) string

	// Constraint suspension for tables inside a foreign-key cycle.
	DisableConstraints(tx *sql.Tx, table string) error
	EnableConstraints(tx *sql.Tx, table string) error

	// Query helpers.
	Quote(ident string) string
	Placeholder(index int) string // Returns ?, $1, @p1, :1, ...
	NormalizeType(sqlType string) string
	SchemaName(configured string) string
	PageClause(limit, offset int) string // appended after ORDER BY
}
