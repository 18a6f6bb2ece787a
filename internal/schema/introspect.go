package schema

import (
	"database/sql"
	"fmt"
	"strings"

	"db-sync/internal/dialect"
)

// IntrospectionError marks a structural element that could not be read.
type IntrospectionError struct {
	Element string
	Err     error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspection failed for %s: %v", e.Element, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

// Introspect reads the full metadata set from a live engine. Each call
// rebuilds the snapshot wholesale; callers own refresh timing.
func Introspect(db *sql.DB, d dialect.Dialect, schemaName string) (Set, error) {
	target := d.SchemaName(schemaName)

	// Normalized (uppercase) keys make lookups robust across engines that
	// fold identifier case differently (Oracle).
	tableMap := make(map[string]*Table)
	set := make(Set)

	// --- Tables ---
	rows, err := db.Query(d.TablesQuery(), target)
	if err != nil {
		return nil, &IntrospectionError{Element: "tables", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &IntrospectionError{Element: "tables", Err: err}
		}
		t := &Table{Name: name}
		tableMap[strings.ToUpper(name)] = t
		set[name] = t
	}
	if err := rows.Err(); err != nil {
		return nil, &IntrospectionError{Element: "tables", Err: err}
	}

	if err := introspectColumns(db, d, target, tableMap); err != nil {
		return nil, err
	}
	if err := introspectPrimaryKeys(db, d, target, tableMap); err != nil {
		return nil, err
	}
	if err := introspectForeignKeys(db, d, target, tableMap); err != nil {
		return nil, err
	}
	if err := introspectIndexes(db, d, target, tableMap); err != nil {
		return nil, err
	}
	if err := introspectUniques(db, d, target, tableMap); err != nil {
		return nil, err
	}
	if err := introspectChecks(db, d, target, tableMap); err != nil {
		return nil, err
	}
	if err := introspectSequences(db, d, target, tableMap); err != nil {
		return nil, err
	}

	return set, nil
}

func introspectColumns(db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	rows, err := db.Query(d.ColumnsQuery(), target)
	if err != nil {
		return &IntrospectionError{Element: "columns", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var tName, cName, dType, fullType, isNull, cDefault, extra sql.NullString
		var cLen, cPrec, cScale sql.NullInt64

		if err := rows.Scan(&tName, &cName, &dType, &fullType, &cLen, &cPrec, &cScale, &isNull, &cDefault, &extra); err != nil {
			return &IntrospectionError{Element: fmt.Sprintf("columns of %s", tName.String), Err: err}
		}
		if !tName.Valid || !cName.Valid {
			continue
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}

		isAutoInc := false
		if extra.Valid {
			extraLower := strings.ToLower(extra.String)
			isAutoInc = strings.Contains(extraLower, "auto_increment") ||
				strings.Contains(extraLower, "identity") ||
				strings.Contains(extraLower, "nextval")
		}

		raw := fullType.String
		if raw == "" {
			raw = dType.String
		}
		t.Columns = append(t.Columns, &Column{
			Name: cName.String,
			Type: TypeSignature{
				Kind:      d.NormalizeType(dType.String),
				Size:      int(cLen.Int64),
				Precision: int(cPrec.Int64),
				Scale:     int(cScale.Int64),
			},
			Raw:      raw,
			Nullable: strings.HasPrefix(strings.ToUpper(isNull.String), "Y"),
			Default:  strings.TrimSpace(cDefault.String),
			AutoInc:  isAutoInc,
		})
	}
	return rows.Err()
}

func introspectPrimaryKeys(db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	rows, err := db.Query(d.PrimaryKeysQuery(), target)
	if err != nil {
		return &IntrospectionError{Element: "primary keys", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var tName, cName sql.NullString
		if err := rows.Scan(&tName, &cName); err != nil {
			return &IntrospectionError{Element: "primary keys", Err: err}
		}
		if t, ok := tableMap[strings.ToUpper(tName.String)]; ok {
			t.PrimaryKey = append(t.PrimaryKey, cName.String)
		}
	}
	return rows.Err()
}

func introspectForeignKeys(db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	rows, err := db.Query(d.ForeignKeysQuery(), target)
	if err != nil {
		return &IntrospectionError{Element: "foreign keys", Err: err}
	}
	defer rows.Close()

	// Rows arrive one column pair at a time, ordered by position; group by
	// (table, constraint) to rebuild composite keys.
	for rows.Next() {
		var tName, cConst, cName, rTable, rCol sql.NullString
		if err := rows.Scan(&tName, &cConst, &cName, &rTable, &rCol); err != nil {
			return &IntrospectionError{Element: "foreign keys", Err: err}
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok || !rTable.Valid {
			continue
		}
		refName := rTable.String
		if rt, ok := tableMap[strings.ToUpper(refName)]; ok {
			refName = rt.Name // original case
		}

		var fk *ForeignKey
		if n := len(t.ForeignKeys); n > 0 && t.ForeignKeys[n-1].Name == cConst.String {
			fk = t.ForeignKeys[n-1]
		} else {
			fk = &ForeignKey{Name: cConst.String, RefTable: refName}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
		fk.Columns = append(fk.Columns, cName.String)
		fk.RefColumns = append(fk.RefColumns, rCol.String)
	}
	return rows.Err()
}

func introspectIndexes(db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	rows, err := db.Query(d.IndexesQuery(), target)
	if err != nil {
		return &IntrospectionError{Element: "indexes", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var tName, iName, cName sql.NullString
		var unique sql.NullBool
		if err := rows.Scan(&tName, &iName, &cName, &unique); err != nil {
			return &IntrospectionError{Element: "indexes", Err: err}
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}
		var ix *Index
		if n := len(t.Indexes); n > 0 && t.Indexes[n-1].Name == iName.String {
			ix = t.Indexes[n-1]
		} else {
			ix = &Index{Name: iName.String, Unique: unique.Bool}
			t.Indexes = append(t.Indexes, ix)
		}
		ix.Columns = append(ix.Columns, cName.String)
	}
	return rows.Err()
}

func introspectUniques(db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	rows, err := db.Query(d.UniqueConstraintsQuery(), target)
	if err != nil {
		return &IntrospectionError{Element: "unique constraints", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var tName, uName, cName sql.NullString
		if err := rows.Scan(&tName, &uName, &cName); err != nil {
			return &IntrospectionError{Element: "unique constraints", Err: err}
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}
		var u *UniqueConstraint
		if n := len(t.Uniques); n > 0 && t.Uniques[n-1].Name == uName.String {
			u = t.Uniques[n-1]
		} else {
			u = &UniqueConstraint{Name: uName.String}
			t.Uniques = append(t.Uniques, u)
		}
		u.Columns = append(u.Columns, cName.String)
	}
	return rows.Err()
}

func introspectChecks(db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	rows, err := db.Query(d.CheckConstraintsQuery(), target)
	if err != nil {
		return &IntrospectionError{Element: "check constraints", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var tName, cnName, expr sql.NullString
		if err := rows.Scan(&tName, &cnName, &expr); err != nil {
			return &IntrospectionError{Element: "check constraints", Err: err}
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok || !expr.Valid {
			continue
		}
		// Engines that model NOT NULL as implicit checks leak them here.
		if strings.HasSuffix(strings.ToUpper(strings.TrimSpace(expr.String)), "IS NOT NULL") {
			continue
		}
		t.Checks = append(t.Checks, &CheckConstraint{Name: cnName.String, Expr: expr.String})
	}
	return rows.Err()
}

func introspectSequences(db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	rows, err := db.Query(d.SequencesQuery(), target)
	if err != nil {
		return &IntrospectionError{Element: "sequences", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var tName, cName, sName sql.NullString
		if err := rows.Scan(&tName, &cName, &sName); err != nil {
			return &IntrospectionError{Element: "sequences", Err: err}
		}
		if t, ok := tableMap[strings.ToUpper(tName.String)]; ok {
			t.Sequences = append(t.Sequences, &SequenceBinding{
				Name:   strings.TrimSpace(sName.String),
				Table:  t.Name,
				Column: cName.String,
			})
		}
	}
	return rows.Err()
}
