package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type PostgresDialect struct{}

func (d *PostgresDialect) TablesQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE'`
}

func (d *PostgresDialect) ColumnsQuery() string {
	// udt_name is the engine-native type; data_type is the standard name.
	// extra marks identity/serial columns so the syncer can exclude them
	// from writes where needed.
	return `SELECT
    c.table_name,
    c.column_name,
    c.udt_name,
    c.data_type,
    c.character_maximum_length,
    c.numeric_precision,
    c.numeric_scale,
    c.is_nullable,
    c.column_default,
    CASE WHEN c.is_identity = 'YES' OR c.column_default LIKE 'nextval%' THEN 'auto_increment' ELSE '' END AS extra
FROM information_schema.columns c
WHERE c.table_schema = $1
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) PrimaryKeysQuery() string {
	return `SELECT kcu.table_name, kcu.column_name
FROM information_schema.key_column_usage kcu
JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE kcu.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY kcu.table_name, kcu.ordinal_position`
}

func (d *PostgresDialect) ForeignKeysQuery() string {
	// constraint_column_usage loses column order for composite keys, so the
	// referenced side is resolved positionally through pg_constraint.
	return `SELECT
    t.relname AS table_name,
    con.conname AS constraint_name,
    a.attname AS column_name,
    rt.relname AS ref_table,
    ra.attname AS ref_column
FROM pg_constraint con
JOIN pg_class t ON t.oid = con.conrelid
JOIN pg_class rt ON rt.oid = con.confrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord) ON true
JOIN unnest(con.confkey) WITH ORDINALITY AS fk(attnum, ord) ON fk.ord = k.ord
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
JOIN pg_attribute ra ON ra.attrelid = rt.oid AND ra.attnum = fk.attnum
WHERE con.contype = 'f' AND n.nspname = $1
ORDER BY t.relname, con.conname, k.ord`
}

func (d *PostgresDialect) IndexesQuery() string {
	return `SELECT
    t.relname AS table_name,
    i.relname AS index_name,
    a.attname AS column_name,
    ix.indisunique AS is_unique
FROM pg_index ix
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND NOT ix.indisprimary
ORDER BY t.relname, i.relname, k.ord`
}

func (d *PostgresDialect) UniqueConstraintsQuery() string {
	return `SELECT kcu.table_name, kcu.constraint_name, kcu.column_name
FROM information_schema.key_column_usage kcu
JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE kcu.table_schema = $1 AND tc.constraint_type = 'UNIQUE'
ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`
}

func (d *PostgresDialect) CheckConstraintsQuery() string {
	// Postgres surfaces NOT NULL as implicit checks; those are column
	// attributes here, not constraints to reconcile.
	return `SELECT tc.table_name, tc.constraint_name, cc.check_clause
FROM information_schema.table_constraints tc
JOIN information_schema.check_constraints cc ON tc.constraint_name = cc.constraint_name AND tc.constraint_schema = cc.constraint_schema
WHERE tc.table_schema = $1 AND tc.constraint_type = 'CHECK' AND cc.check_clause NOT LIKE '%IS NOT NULL%'
ORDER BY tc.table_name, tc.constraint_name`
}

func (d *PostgresDialect) SequencesQuery() string {
	return `SELECT c.table_name, c.column_name,
    pg_get_serial_sequence(quote_ident(c.table_schema) || '.' || quote_ident(c.table_name), c.column_name)
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.column_default LIKE 'nextval%'
ORDER BY c.table_name, c.column_name`
}

func (d *PostgresDialect) CreateTableSQL(t TableDef) string {
	return createTableSQL(d, t)
}

func (d *PostgresDialect) AddColumnSQL(table string, c ColumnDef) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s", d.Quote(table), columnClause(d, c))
}

func (d *PostgresDialect) AddForeignKeySQL(table string, cols []string, refTable string, refCols []string) string {
	return addForeignKeySQL(d, table, cols, refTable, refCols)
}

func (d *PostgresDialect) AddIndexSQL(table string, unique bool, cols []string) string {
	return addIndexSQL(d, table, unique, cols)
}

func (d *PostgresDialect) AddUniqueSQL(table string, cols []string) string {
	return addUniqueSQL(d, table, cols)
}

func (d *PostgresDialect) AddCheckSQL(table string, expr string) string {
	return addCheckSQL(d, table, expr)
}

func (d *PostgresDialect) NamedSequences() bool {
	return true
}

func (d *PostgresDialect) EnsureSequenceSQL(seq string) (string, bool) {
	if seq == "" {
		return "", false
	}
	return fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s", seq), true
}

func (d *PostgresDialect) SequenceValueQuery(seq, table, column string) string {
	return fmt.Sprintf("SELECT last_value FROM %s", seq)
}

func (d *PostgresDialect) SetSequenceSQL(seq, table, column string, value int64) string {
	return fmt.Sprintf("SELECT setval('%s', %d, true)", seq, value)
}

func (d *PostgresDialect) DisableConstraints(tx *sql.Tx, table string) error {
	// Suspends FK triggers for a cyclic-table load; requires table owner
	// or superuser.
	_, err := tx.Exec(fmt.Sprintf(`ALTER TABLE %s DISABLE TRIGGER ALL`, d.Quote(table)))
	return err
}

func (d *PostgresDialect) EnableConstraints(tx *sql.Tx, table string) error {
	_, err := tx.Exec(fmt.Sprintf(`ALTER TABLE %s ENABLE TRIGGER ALL`, d.Quote(table)))
	return err
}

func (d *PostgresDialect) Quote(ident string) string {
	return `"` + ident + `"`
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "int4", "int2", "serial", "smallserial":
		return "int"
	case "int8", "bigserial":
		return "bigint"
	case "float4":
		return "float"
	case "float8", "double precision":
		return "double"
	case "bpchar", "character":
		return "char"
	case "character varying":
		return "varchar"
	case "timestamptz":
		return "timestamp"
	default:
		return t
	}
}

func (d *PostgresDialect) SchemaName(configured string) string {
	if configured == "" {
		return "public"
	}
	return configured
}

func (d *PostgresDialect) PageClause(limit, offset int) string {
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	}
	return fmt.Sprintf("LIMIT %d", limit)
}
