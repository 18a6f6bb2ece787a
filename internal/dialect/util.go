package dialect

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Placeholders builds a comma-separated placeholder list using the
// dialect's positional style.
func Placeholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// IndexName derives a deterministic index name from table and columns, so
// repeated plan applications target the same object.
func IndexName(table string, cols []string) string {
	return "idx_" + table + "_" + strings.Join(cols, "_")
}

// UniqueName derives a deterministic unique-constraint name.
func UniqueName(table string, cols []string) string {
	return "uniq_" + table + "_" + strings.Join(cols, "_")
}

// CheckName derives a constraint name from a content hash of the predicate.
// Two different predicates on the same table never collide on name.
func CheckName(table string, expr string) string {
	h := fnv.New32a()
	h.Write([]byte(expr))
	return fmt.Sprintf("chk_%s_%08x", table, h.Sum32())
}

// DefaultNormalizeType lowercases the engine type text.
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(sqlType)
}

func quoteAll(d Dialect, idents []string) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = d.Quote(id)
	}
	return out
}

// columnClause renders "name type [NOT NULL] [DEFAULT expr]" for ANSI-ish
// engines; individual dialects reuse it from their builders.
func columnClause(d Dialect, c ColumnDef) string {
	var b strings.Builder
	b.WriteString(d.Quote(c.Name))
	b.WriteString(" ")
	b.WriteString(c.Type)
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

func createTableSQL(d Dialect, t TableDef) string {
	parts := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		parts = append(parts, columnClause(d, c))
	}
	if len(t.PrimaryKey) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoteAll(d, t.PrimaryKey), ", ")))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(t.Name), strings.Join(parts, ", "))
}

func addForeignKeySQL(d Dialect, table string, cols []string, refTable string, refCols []string) string {
	name := "fk_" + table + "_" + strings.Join(cols, "_")
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.Quote(table), d.Quote(name),
		strings.Join(quoteAll(d, cols), ", "),
		d.Quote(refTable),
		strings.Join(quoteAll(d, refCols), ", "))
}

func addIndexSQL(d Dialect, table string, unique bool, cols []string) string {
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)",
		kind, d.Quote(IndexName(table, cols)), d.Quote(table),
		strings.Join(quoteAll(d, cols), ", "))
}

func addUniqueSQL(d Dialect, table string, cols []string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
		d.Quote(table), d.Quote(UniqueName(table, cols)),
		strings.Join(quoteAll(d, cols), ", "))
}

func addCheckSQL(d Dialect, table string, expr string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)",
		d.Quote(table), d.Quote(CheckName(table, expr)), expr)
}
