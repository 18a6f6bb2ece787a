package seed

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"db-sync/internal/dialect"
	"db-sync/internal/schema"
)

// Result is one table's share of a seeding run.
type Result struct {
	Table     string
	Requested int
	Inserted  int
	Err       error
}

// Run inserts count fake rows per table, walking tables in foreign-key
// dependency order so child rows can reference keys already written to
// their parents. Cyclic tables are seeded last with nullable FK columns
// left null. Failures are table-scoped.
func Run(db *sql.DB, d dialect.Dialect, meta schema.Set, count int, log *zap.Logger, onRow func()) []Result {
	order, cyclic := schema.SortTables(meta)
	fkPool := make(map[string][]any)

	var results []Result
	for _, name := range append(order, cyclic...) {
		res := seedTable(db, d, meta[name], count, fkPool, log, onRow)
		if res.Err != nil {
			log.Warn("seeding failed", zap.String("table", name), zap.Error(res.Err))
		}
		results = append(results, res)
		refreshPool(db, d, meta[name], fkPool)
	}
	return results
}

func seedTable(db *sql.DB, d dialect.Dialect, t *schema.Table, count int, fkPool map[string][]any, log *zap.Logger, onRow func()) Result {
	res := Result{Table: t.Name, Requested: count}

	// Generated key columns are left to the engine.
	var cols []*schema.Column
	for _, c := range t.Columns {
		if !c.AutoInc {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return res
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c.Name)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(t.Name), strings.Join(quoted, ", "),
		dialect.Placeholders(len(cols), d.Placeholder))

	pkSet := make(map[string]bool, len(t.PrimaryKey))
	for _, c := range t.PrimaryKey {
		pkSet[c] = true
	}
	uniqueCols := singleColumnUniques(t)

	tx, err := db.Begin()
	if err != nil {
		res.Err = err
		return res
	}

	usedKeys := make(map[string]bool)
	usedUnique := make(map[string]map[string]bool)
	for _, c := range cols {
		if uniqueCols[c.Name] {
			usedUnique[c.Name] = make(map[string]bool)
		}
	}

	// Duplicate key collisions retry with fresh values, bounded so a
	// saturated key space cannot spin forever.
	attempts := 0
	for res.Inserted < count && attempts < count*10 {
		attempts++
		values := generateRow(t, cols, fkPool, attempts)

		if len(t.PrimaryKey) > 1 && !markFresh(usedKeys, keyOf(cols, values, pkSet)) {
			continue
		}
		if clashesUnique(cols, values, usedUnique) {
			continue
		}
		for i, c := range cols {
			if set, ok := usedUnique[c.Name]; ok {
				set[fmt.Sprintf("%v", values[i])] = true
			}
		}

		if _, err := tx.Exec(query, values...); err != nil {
			if attempts <= 3 {
				log.Debug("insert rejected", zap.String("table", t.Name), zap.Error(err))
			}
			continue
		}
		res.Inserted++
		if onRow != nil {
			onRow()
		}
	}

	if err := tx.Commit(); err != nil {
		res.Err = err
	}
	return res
}

func generateRow(t *schema.Table, cols []*schema.Column, fkPool map[string][]any, attempt int) []any {
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = columnValue(t, c, fkPool, attempt)
	}
	return values
}

// columnValue draws FK columns from the referenced table's key pool and
// everything else from the fake-data generator. An empty pool usually means
// a dependency cycle: nullable columns go null, the rest fall back to 1 on
// the assumption the parent's first row exists by the time constraints are
// checked.
func columnValue(t *schema.Table, c *schema.Column, fkPool map[string][]any, attempt int) any {
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 || fk.Columns[0] != c.Name {
			continue
		}
		if vals := fkPool[fk.RefTable]; len(vals) > 0 {
			return vals[attempt%len(vals)]
		}
		if c.Nullable {
			return nil
		}
		return 1
	}
	return Value(c, t.Name)
}

// refreshPool reloads the table's first primary key column values so child
// tables seeded later can reference them.
func refreshPool(db *sql.DB, d dialect.Dialect, t *schema.Table, fkPool map[string][]any) {
	if len(t.PrimaryKey) != 1 {
		return
	}
	pk := t.PrimaryKey[0]

	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %s", d.Quote(pk), d.Quote(t.Name)))
	if err != nil {
		return
	}
	defer rows.Close()

	pool := fkPool[t.Name][:0]
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err == nil {
			if b, ok := id.([]byte); ok {
				id = string(b)
			}
			pool = append(pool, id)
		}
	}
	fkPool[t.Name] = pool
}

func singleColumnUniques(t *schema.Table) map[string]bool {
	out := make(map[string]bool)
	for _, u := range t.Uniques {
		if len(u.Columns) == 1 {
			out[u.Columns[0]] = true
		}
	}
	for _, ix := range t.Indexes {
		if ix.Unique && len(ix.Columns) == 1 {
			out[ix.Columns[0]] = true
		}
	}
	return out
}

func keyOf(cols []*schema.Column, values []any, pkSet map[string]bool) string {
	var parts []string
	for i, c := range cols {
		if pkSet[c.Name] {
			parts = append(parts, fmt.Sprintf("%v", values[i]))
		}
	}
	return strings.Join(parts, "|")
}

func markFresh(used map[string]bool, key string) bool {
	if used[key] {
		return false
	}
	used[key] = true
	return true
}

func clashesUnique(cols []*schema.Column, values []any, usedUnique map[string]map[string]bool) bool {
	for i, c := range cols {
		if set, ok := usedUnique[c.Name]; ok && set[fmt.Sprintf("%v", values[i])] {
			return true
		}
	}
	return false
}
