package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type OracleDialect struct{}

// Oracle introspects the connected user's own objects (USER_* views); the
// schema bind argument is consumed by a dummy clause to keep the interface
// uniform.

func (d *OracleDialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM USER_TABLES WHERE :1 IS NOT NULL`
}

func (d *OracleDialect) ColumnsQuery() string {
	return `SELECT
    t.TABLE_NAME,
    t.COLUMN_NAME,
    t.DATA_TYPE,
    t.DATA_TYPE || CASE WHEN t.DATA_LENGTH IS NOT NULL THEN '(' || t.DATA_LENGTH || ')' ELSE '' END,
    t.DATA_LENGTH,
    t.DATA_PRECISION,
    t.DATA_SCALE,
    t.NULLABLE,
    t.DATA_DEFAULT,
    CASE WHEN t.IDENTITY_COLUMN = 'YES' THEN 'identity' ELSE '' END
FROM USER_TAB_COLUMNS t
WHERE :1 IS NOT NULL
ORDER BY t.TABLE_NAME, t.COLUMN_ID`
}

func (d *OracleDialect) PrimaryKeysQuery() string {
	return `SELECT cc.TABLE_NAME, cc.COLUMN_NAME
FROM USER_CONS_COLUMNS cc
JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
WHERE uc.CONSTRAINT_TYPE = 'P' AND :1 IS NOT NULL
ORDER BY cc.TABLE_NAME, cc.POSITION`
}

func (d *OracleDialect) ForeignKeysQuery() string {
	return `SELECT
    c.TABLE_NAME,
    c.CONSTRAINT_NAME,
    cc.COLUMN_NAME,
    r.TABLE_NAME AS REF_TABLE,
    rcc.COLUMN_NAME AS REF_COLUMN
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
JOIN USER_CONSTRAINTS r ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
JOIN USER_CONS_COLUMNS rcc ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R' AND :1 IS NOT NULL
ORDER BY c.TABLE_NAME, c.CONSTRAINT_NAME, cc.POSITION`
}

func (d *OracleDialect) IndexesQuery() string {
	return `SELECT
    i.TABLE_NAME,
    i.INDEX_NAME,
    ic.COLUMN_NAME,
    CASE WHEN i.UNIQUENESS = 'UNIQUE' THEN 1 ELSE 0 END
FROM USER_INDEXES i
JOIN USER_IND_COLUMNS ic ON i.INDEX_NAME = ic.INDEX_NAME
WHERE :1 IS NOT NULL
ORDER BY i.TABLE_NAME, i.INDEX_NAME, ic.COLUMN_POSITION`
}

func (d *OracleDialect) UniqueConstraintsQuery() string {
	return `SELECT cc.TABLE_NAME, cc.CONSTRAINT_NAME, cc.COLUMN_NAME
FROM USER_CONS_COLUMNS cc
JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
WHERE uc.CONSTRAINT_TYPE = 'U' AND :1 IS NOT NULL
ORDER BY cc.TABLE_NAME, cc.CONSTRAINT_NAME, cc.POSITION`
}

func (d *OracleDialect) CheckConstraintsQuery() string {
	// SEARCH_CONDITION includes NOT NULL checks; the introspector filters
	// those out since the predicate column is a LONG and cannot be compared
	// in SQL.
	return `SELECT uc.TABLE_NAME, uc.CONSTRAINT_NAME, uc.SEARCH_CONDITION
FROM USER_CONSTRAINTS uc
WHERE uc.CONSTRAINT_TYPE = 'C' AND :1 IS NOT NULL
ORDER BY uc.TABLE_NAME, uc.CONSTRAINT_NAME`
}

func (d *OracleDialect) SequencesQuery() string {
	return `SELECT ic.TABLE_NAME, ic.COLUMN_NAME, ic.SEQUENCE_NAME
FROM USER_TAB_IDENTITY_COLS ic
WHERE :1 IS NOT NULL
ORDER BY ic.TABLE_NAME, ic.COLUMN_NAME`
}

func (d *OracleDialect) CreateTableSQL(t TableDef) string {
	return createTableSQL(d, t)
}

func (d *OracleDialect) AddColumnSQL(table string, c ColumnDef) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.Quote(table), columnClause(d, c))
}

func (d *OracleDialect) AddForeignKeySQL(table string, cols []string, refTable string, refCols []string) string {
	return addForeignKeySQL(d, table, cols, refTable, refCols)
}

func (d *OracleDialect) AddIndexSQL(table string, unique bool, cols []string) string {
	return addIndexSQL(d, table, unique, cols)
}

func (d *OracleDialect) AddUniqueSQL(table string, cols []string) string {
	return addUniqueSQL(d, table, cols)
}

func (d *OracleDialect) AddCheckSQL(table string, expr string) string {
	return addCheckSQL(d, table, expr)
}

func (d *OracleDialect) NamedSequences() bool {
	return true
}

func (d *OracleDialect) EnsureSequenceSQL(seq string) (string, bool) {
	if seq == "" {
		return "", false
	}
	return fmt.Sprintf("CREATE SEQUENCE %s", seq), true
}

func (d *OracleDialect) SequenceValueQuery(seq, table, column string) string {
	return fmt.Sprintf("SELECT LAST_NUMBER FROM USER_SEQUENCES WHERE SEQUENCE_NAME = '%s'", strings.ToUpper(seq))
}

func (d *OracleDialect) SetSequenceSQL(seq, table, column string, value int64) string {
	// 12c syntax; the next fetched value is value+1.
	return fmt.Sprintf("ALTER SEQUENCE %s RESTART START WITH %d", seq, value+1)
}

func (d *OracleDialect) DisableConstraints(tx *sql.Tx, table string) error {
	return d.toggleConstraints(tx, table, "DISABLE", "ENABLED")
}

func (d *OracleDialect) EnableConstraints(tx *sql.Tx, table string) error {
	return d.toggleConstraints(tx, table, "ENABLE", "DISABLED")
}

func (d *OracleDialect) toggleConstraints(tx *sql.Tx, table, action, fromStatus string) error {
	rows, err := tx.Query(
		`SELECT CONSTRAINT_NAME FROM USER_CONSTRAINTS WHERE CONSTRAINT_TYPE = 'R' AND STATUS = :1 AND TABLE_NAME = :2`,
		fromStatus, strings.ToUpper(table))
	if err != nil {
		return err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, n := range names {
		// Oracle DDL commits implicitly; callers accept that for cyclic loads.
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s %s CONSTRAINT %s", table, action, n)); err != nil {
			return fmt.Errorf("failed to %s constraint %s on %s: %w", strings.ToLower(action), n, table, err)
		}
	}
	return nil
}

func (d *OracleDialect) Quote(ident string) string {
	return `"` + ident + `"`
}

func (d *OracleDialect) Placeholder(index int) string {
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := strings.ToLower(sqlType)
	switch {
	case strings.Contains(s, "char"), strings.Contains(s, "clob"):
		return "varchar"
	case s == "number":
		return "decimal"
	case strings.Contains(s, "float"), strings.Contains(s, "binary_double"):
		return "double"
	case strings.Contains(s, "date"), strings.Contains(s, "timestamp"):
		return "timestamp"
	case strings.Contains(s, "raw"), strings.Contains(s, "blob"):
		return "blob"
	default:
		return s
	}
}

func (d *OracleDialect) SchemaName(configured string) string {
	return configured
}

func (d *OracleDialect) PageClause(limit, offset int) string {
	return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
}
