package engine

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"db-sync/internal/schema"
)

// ValuePair holds both sides of a disputed column as display strings; a nil
// side means the value is null there.
type ValuePair struct {
	Source *string
	Target *string
}

// ConflictRecord is one primary-key value whose two sides disagree: either
// the row exists on both endpoints with different column values, or it
// exists on one side only (the absent side reads as nil throughout). Key
// holds the stringified primary key values in key-column order.
type ConflictRecord struct {
	Table   string
	Key     []string
	Columns map[string]ValuePair
}

// KeyString renders the key the way ResolveConflicts expects overrides to
// be addressed: composite values joined by a comma.
func (r ConflictRecord) KeyString() string {
	return strings.Join(r.Key, ",")
}

// ConflictReport inspects every table shared by both endpoints and reports,
// per table, the symmetric row difference: keys whose columns disagree plus
// keys present on one side only. The comparison is symmetric — swapping the
// endpoints mirrors every record rather than dropping any. The report is
// read-only and compares full row sets, so it is proportional to data size.
// Tables without a primary key are skipped; conflict-free tables are
// omitted from the result.
func (s *Session) ConflictReport() (map[string][]ConflictRecord, error) {
	order, cyclic := schema.SortTables(s.srcMeta)

	report := make(map[string][]ConflictRecord)
	for _, name := range append(order, cyclic...) {
		st := s.srcMeta[name]
		tt, ok := s.tgtMeta[name]
		if !ok {
			continue
		}
		if len(st.PrimaryKey) == 0 {
			s.log.Debug("skipping table without primary key", zap.String("table", name))
			continue
		}

		records, err := s.tableConflicts(st, tt)
		if err != nil {
			return nil, &ConflictAnalysisError{Table: name, Err: err}
		}
		if len(records) > 0 {
			report[name] = records
		}
	}
	return report, nil
}

func (s *Session) tableConflicts(st, tt *schema.Table) ([]ConflictRecord, error) {
	pk := st.PrimaryKey
	for _, c := range pk {
		if !tt.HasColumn(c) {
			return nil, fmt.Errorf("primary key column %s missing in target", c)
		}
	}

	// Column union in source order, target-only columns appended; a side
	// lacking a column contributes nil for it.
	allCols := make([]string, 0, len(st.Columns))
	seen := make(map[string]bool, len(st.Columns))
	for _, sc := range st.Columns {
		allCols = append(allCols, sc.Name)
		seen[sc.Name] = true
	}
	for _, tc := range tt.Columns {
		if !seen[tc.Name] {
			allCols = append(allCols, tc.Name)
		}
	}

	srcRows, err := collectRows(s, sourceSide, st.Name, st.ColumnNames(), pk)
	if err != nil {
		return nil, err
	}
	tgtRows, err := collectRows(s, targetSide, tt.Name, tt.ColumnNames(), pk)
	if err != nil {
		return nil, err
	}

	// Symmetric key union: a row missing on one side is as much a conflict
	// as one that disagrees.
	keySet := make(map[string]bool, len(srcRows)+len(tgtRows))
	for k := range srcRows {
		keySet[k] = true
	}
	for k := range tgtRows {
		keySet[k] = true
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var records []ConflictRecord
	for _, k := range keys {
		src, tgt := srcRows[k], tgtRows[k]
		diffs := make(map[string]ValuePair)
		for _, col := range allCols {
			var sv, tv *string
			if src != nil {
				sv = displayValue(src[col])
			}
			if tgt != nil {
				tv = displayValue(tgt[col])
			}
			if !stringPtrEqual(sv, tv) {
				diffs[col] = ValuePair{Source: sv, Target: tv}
			}
		}
		if len(diffs) == 0 {
			continue
		}
		keyed := src
		if keyed == nil {
			keyed = tgt
		}
		records = append(records, ConflictRecord{
			Table:   st.Name,
			Key:     keyParts(keyed, pk),
			Columns: diffs,
		})
	}
	return records, nil
}

type side int

const (
	sourceSide side = iota
	targetSide
)

// collectRows loads a table's full row set keyed by primary key tuple.
func collectRows(s *Session, which side, table string, cols, pk []string) (map[string]map[string]any, error) {
	db, d := s.source, s.srcDialect
	if which == targetSide {
		db, d = s.target, s.tgtDialect
	}
	rows := make(map[string]map[string]any)
	err := streamRows(db, d, table, cols, pk, DefaultBatchSize, func(row map[string]any) error {
		rows[rowKeyString(row, pk)] = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func keyParts(row map[string]any, pk []string) []string {
	parts := make([]string, len(pk))
	for i, c := range pk {
		parts[i] = fmt.Sprint(normalizeValue(row[c]))
	}
	return parts
}

func displayValue(v any) *string {
	if v == nil {
		return nil
	}
	str := fmt.Sprint(normalizeValue(v))
	return &str
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
