package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type MSSQLDialect struct{}

func (d *MSSQLDialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MSSQLDialect) ColumnsQuery() string {
	return `SELECT
    c.TABLE_NAME,
    c.COLUMN_NAME,
    c.DATA_TYPE,
    c.DATA_TYPE,
    c.CHARACTER_MAXIMUM_LENGTH,
    c.NUMERIC_PRECISION,
    c.NUMERIC_SCALE,
    c.IS_NULLABLE,
    c.COLUMN_DEFAULT,
    CASE WHEN COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') = 1 THEN 'identity' ELSE '' END AS EXTRA
FROM INFORMATION_SCHEMA.COLUMNS c
WHERE c.TABLE_SCHEMA = @p1
ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`
}

func (d *MSSQLDialect) PrimaryKeysQuery() string {
	return `SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1
ORDER BY kcu.TABLE_NAME, kcu.ORDINAL_POSITION`
}

func (d *MSSQLDialect) ForeignKeysQuery() string {
	return `SELECT KCU1.TABLE_NAME, KCU1.CONSTRAINT_NAME, KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN
FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME AND KCU1.ORDINAL_POSITION = KCU2.ORDINAL_POSITION
WHERE KCU1.TABLE_SCHEMA = @p1
ORDER BY KCU1.TABLE_NAME, KCU1.CONSTRAINT_NAME, KCU1.ORDINAL_POSITION`
}

func (d *MSSQLDialect) IndexesQuery() string {
	return `SELECT
    t.name AS TABLE_NAME,
    idx.name AS INDEX_NAME,
    col.name AS COLUMN_NAME,
    idx.is_unique AS IS_UNIQUE
FROM sys.indexes idx
JOIN sys.index_columns ic ON idx.object_id = ic.object_id AND idx.index_id = ic.index_id
JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
JOIN sys.tables t ON idx.object_id = t.object_id
JOIN sys.schemas s ON t.schema_id = s.schema_id
WHERE s.name = @p1 AND idx.is_primary_key = 0 AND idx.name IS NOT NULL
ORDER BY t.name, idx.name, ic.key_ordinal`
}

func (d *MSSQLDialect) UniqueConstraintsQuery() string {
	return `SELECT kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
WHERE tc.CONSTRAINT_TYPE = 'UNIQUE' AND tc.TABLE_SCHEMA = @p1
ORDER BY kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`
}

func (d *MSSQLDialect) CheckConstraintsQuery() string {
	return `SELECT tc.TABLE_NAME, cc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
FROM INFORMATION_SCHEMA.CHECK_CONSTRAINTS cc
JOIN INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc ON cc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
WHERE tc.TABLE_SCHEMA = @p1 AND tc.CONSTRAINT_TYPE = 'CHECK'
ORDER BY tc.TABLE_NAME, cc.CONSTRAINT_NAME`
}

func (d *MSSQLDialect) SequencesQuery() string {
	// Identity columns stand in for sequences; reconciled via DBCC CHECKIDENT.
	return `SELECT t.name, col.name, ''
FROM sys.identity_columns idc
JOIN sys.columns col ON idc.object_id = col.object_id AND idc.column_id = col.column_id
JOIN sys.tables t ON idc.object_id = t.object_id
JOIN sys.schemas s ON t.schema_id = s.schema_id
WHERE s.name = @p1
ORDER BY t.name, col.name`
}

func (d *MSSQLDialect) CreateTableSQL(t TableDef) string {
	return createTableSQL(d, t)
}

func (d *MSSQLDialect) AddColumnSQL(table string, c ColumnDef) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.Quote(table), columnClause(d, c))
}

func (d *MSSQLDialect) AddForeignKeySQL(table string, cols []string, refTable string, refCols []string) string {
	return addForeignKeySQL(d, table, cols, refTable, refCols)
}

func (d *MSSQLDialect) AddIndexSQL(table string, unique bool, cols []string) string {
	return addIndexSQL(d, table, unique, cols)
}

func (d *MSSQLDialect) AddUniqueSQL(table string, cols []string) string {
	return addUniqueSQL(d, table, cols)
}

func (d *MSSQLDialect) AddCheckSQL(table string, expr string) string {
	return addCheckSQL(d, table, expr)
}

func (d *MSSQLDialect) NamedSequences() bool {
	return false
}

func (d *MSSQLDialect) EnsureSequenceSQL(seq string) (string, bool) {
	return "", false
}

func (d *MSSQLDialect) SequenceValueQuery(seq, table, column string) string {
	return fmt.Sprintf("SELECT COALESCE(IDENT_CURRENT('%s'), 0)", table)
}

func (d *MSSQLDialect) SetSequenceSQL(seq, table, column string, value int64) string {
	return fmt.Sprintf("DBCC CHECKIDENT ('%s', RESEED, %d)", table, value)
}

func (d *MSSQLDialect) DisableConstraints(tx *sql.Tx, table string) error {
	_, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s NOCHECK CONSTRAINT all", d.Quote(table)))
	return err
}

func (d *MSSQLDialect) EnableConstraints(tx *sql.Tx, table string) error {
	// WITH CHECK validates rows written while the constraint was off.
	_, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s WITH CHECK CHECK CONSTRAINT all", d.Quote(table)))
	return err
}

func (d *MSSQLDialect) Quote(ident string) string {
	return "[" + ident + "]"
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "nvarchar", "nchar", "ntext":
		return "varchar"
	case "bit":
		return "boolean"
	case "decimal", "numeric", "money", "smallmoney":
		return "decimal"
	case "float", "real":
		return "float"
	case "datetime", "datetime2", "smalldatetime":
		return "timestamp"
	case "image", "varbinary":
		return "blob"
	default:
		return t
	}
}

func (d *MSSQLDialect) SchemaName(configured string) string {
	if configured == "" {
		return "dbo"
	}
	return configured
}

func (d *MSSQLDialect) PageClause(limit, offset int) string {
	return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
}
