package dialect

import (
	"database/sql"
	"fmt"
)

type MysqlDialect struct{}

func (d *MysqlDialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MysqlDialect) ColumnsQuery() string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE, IS_NULLABLE, COLUMN_DEFAULT, EXTRA FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) PrimaryKeysQuery() string {
	return `SELECT TABLE_NAME, COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND CONSTRAINT_NAME = 'PRIMARY' ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) ForeignKeysQuery() string {
	return `SELECT TABLE_NAME, CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL ORDER BY TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) IndexesQuery() string {
	return `SELECT TABLE_NAME, INDEX_NAME, COLUMN_NAME, IF(NON_UNIQUE = 0, 1, 0) AS IS_UNIQUE FROM information_schema.STATISTICS WHERE TABLE_SCHEMA = ? AND INDEX_NAME <> 'PRIMARY' ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX`
}

func (d *MysqlDialect) UniqueConstraintsQuery() string {
	return `SELECT kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE kcu
JOIN information_schema.TABLE_CONSTRAINTS tc ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA AND kcu.TABLE_NAME = tc.TABLE_NAME
WHERE kcu.TABLE_SCHEMA = ? AND tc.CONSTRAINT_TYPE = 'UNIQUE'
ORDER BY kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`
}

func (d *MysqlDialect) CheckConstraintsQuery() string {
	// CHECK_CONSTRAINTS exists from MySQL 8.0.16; older servers return an
	// introspection error which the caller reports.
	return `SELECT tc.TABLE_NAME, cc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
FROM information_schema.CHECK_CONSTRAINTS cc
JOIN information_schema.TABLE_CONSTRAINTS tc ON cc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND cc.CONSTRAINT_SCHEMA = tc.TABLE_SCHEMA
WHERE cc.CONSTRAINT_SCHEMA = ?
ORDER BY tc.TABLE_NAME, cc.CONSTRAINT_NAME`
}

func (d *MysqlDialect) SequencesQuery() string {
	// MySQL has no standalone sequences; AUTO_INCREMENT columns play the
	// same role and reconcile through ALTER TABLE ... AUTO_INCREMENT.
	return `SELECT TABLE_NAME, COLUMN_NAME, '' FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND EXTRA LIKE '%auto_increment%' ORDER BY TABLE_NAME, COLUMN_NAME`
}

func (d *MysqlDialect) CreateTableSQL(t TableDef) string {
	return createTableSQL(d, t)
}

func (d *MysqlDialect) AddColumnSQL(table string, c ColumnDef) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.Quote(table), columnClause(d, c))
}

func (d *MysqlDialect) AddForeignKeySQL(table string, cols []string, refTable string, refCols []string) string {
	return addForeignKeySQL(d, table, cols, refTable, refCols)
}

func (d *MysqlDialect) AddIndexSQL(table string, unique bool, cols []string) string {
	return addIndexSQL(d, table, unique, cols)
}

func (d *MysqlDialect) AddUniqueSQL(table string, cols []string) string {
	return addUniqueSQL(d, table, cols)
}

func (d *MysqlDialect) AddCheckSQL(table string, expr string) string {
	return addCheckSQL(d, table, expr)
}

func (d *MysqlDialect) NamedSequences() bool {
	return false
}

func (d *MysqlDialect) EnsureSequenceSQL(seq string) (string, bool) {
	return "", false
}

func (d *MysqlDialect) SequenceValueQuery(seq, table, column string) string {
	return fmt.Sprintf("SELECT COALESCE(AUTO_INCREMENT, 1) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = '%s'", table)
}

func (d *MysqlDialect) SetSequenceSQL(seq, table, column string, value int64) string {
	return fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", d.Quote(table), value)
}

func (d *MysqlDialect) DisableConstraints(tx *sql.Tx, table string) error {
	// Session scoped; covers every table loaded inside the transaction.
	_, err := tx.Exec("SET FOREIGN_KEY_CHECKS = 0")
	return err
}

func (d *MysqlDialect) EnableConstraints(tx *sql.Tx, table string) error {
	_, err := tx.Exec("SET FOREIGN_KEY_CHECKS = 1")
	return err
}

func (d *MysqlDialect) Quote(ident string) string {
	return "`" + ident + "`"
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MysqlDialect) SchemaName(configured string) string {
	return configured
}

func (d *MysqlDialect) PageClause(limit, offset int) string {
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	}
	return fmt.Sprintf("LIMIT %d", limit)
}
