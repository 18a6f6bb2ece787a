package engine

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"db-sync/internal/dialect"
	"db-sync/internal/schema"
)

// Strategy is the per-row conflict policy applied when a source row already
// exists in the target.
type Strategy string

const (
	// StrategySkip leaves existing target rows untouched.
	StrategySkip Strategy = "skip"
	// StrategyOverwrite replaces non-key columns with source values.
	StrategyOverwrite Strategy = "overwrite"
	// StrategyMerge fills only target columns that are null or empty.
	StrategyMerge Strategy = "merge"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySkip, StrategyOverwrite, StrategyMerge:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q (want skip, overwrite or merge)", s)
}

// DefaultBatchSize is the source streaming batch size.
const DefaultBatchSize = 1000

type SyncOptions struct {
	Strategy     Strategy
	BatchSize    int
	ExtendSchema bool // auto-create source-only columns on the target
	OnRow        func()
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.Strategy == "" {
		o.Strategy = StrategySkip
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// TableOutcome is one table's share of a best-effort run summary. A non-nil
// Err means the table's in-flight work was aborted; the run as a whole is
// never atomic.
type TableOutcome struct {
	Table    string
	Cyclic   bool
	Inserted int
	Updated  int
	Skipped  int
	Err      error
}

// BulkSync copies row data source -> target, table by table in dependency
// order: acyclic tables first, then cyclic ones with constraint enforcement
// suspended for their load. After all tables, every queued sequence is
// reconciled. Failures are table-scoped; the returned outcomes aggregate
// per-table results.
func (s *Session) BulkSync(opts SyncOptions) []TableOutcome {
	opts = opts.withDefaults()
	s.log.Info("starting bulk data sync",
		zap.String("strategy", string(opts.Strategy)),
		zap.Int("batch_size", opts.BatchSize),
		zap.Bool("extend_schema", opts.ExtendSchema))

	outcomes := s.forEachTable(opts, func(string, string) Strategy { return opts.Strategy })
	s.reconcileQueuedSequences()
	return outcomes
}

// ResolveConflicts applies per-row strategies: overrides are keyed
// "table:pk" (composite key values joined by a comma), rows without an
// override use the default. Only columns that exist on the target are
// written. Sequences are not touched.
func (s *Session) ResolveConflicts(overrides map[string]Strategy, def Strategy) []TableOutcome {
	if def == "" {
		def = StrategySkip
	}
	opts := SyncOptions{Strategy: def}.withDefaults()
	return s.forEachTable(opts, func(table, key string) Strategy {
		if st, ok := overrides[table+":"+key]; ok {
			return st
		}
		return def
	})
}

func (s *Session) forEachTable(opts SyncOptions, strategyFor func(table, key string) Strategy) []TableOutcome {
	order, cyclic := schema.SortTables(s.srcMeta)
	cyclicSet := make(map[string]bool, len(cyclic))
	for _, name := range cyclic {
		cyclicSet[name] = true
	}

	var outcomes []TableOutcome
	for _, name := range append(order, cyclic...) {
		out := s.syncTable(name, cyclicSet[name], opts, strategyFor)
		if out.Err != nil {
			s.log.Warn("table sync aborted", zap.String("table", name), zap.Error(out.Err))
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// reconcileQueuedSequences runs the sequences queued by the last analyze or
// apply; a sync started without either falls back to the source snapshot's
// bindings.
func (s *Session) reconcileQueuedSequences() {
	queued := s.pendingSeqs
	if len(queued) == 0 {
		queued = s.Analyze().Sequences
	}
	for _, sq := range queued {
		if err := s.reconcileSequence(sq); err != nil {
			s.log.Warn("sequence reconciliation failed",
				zap.String("table", sq.Table), zap.String("column", sq.Column), zap.Error(err))
		}
	}
}

func (s *Session) syncTable(name string, cyclic bool, opts SyncOptions, strategyFor func(table, key string) Strategy) TableOutcome {
	out := TableOutcome{Table: name, Cyclic: cyclic}

	st := s.srcMeta[name]
	tt, ok := s.tgtMeta[name]
	if !ok {
		// Table creation belongs to ApplySafeChanges; nothing to copy into.
		s.log.Debug("table missing in target, skipping", zap.String("table", name))
		return out
	}

	if len(st.PrimaryKey) == 0 {
		out.Err = ErrNoPrimaryKey
		return out
	}

	if opts.ExtendSchema && s.extendTargetColumns(st, tt) {
		// The snapshot is rebuilt wholesale rather than patched in place.
		if err := s.RefreshTarget(); err != nil {
			out.Err = &DataWriteError{Table: name, Err: err}
			return out
		}
		tt = s.tgtMeta[name]
	}

	pk := st.PrimaryKey
	pkSet := make(map[string]bool, len(pk))
	for _, c := range pk {
		if !tt.HasColumn(c) {
			out.Err = &DataWriteError{Table: name, Err: fmt.Errorf("primary key column %s missing in target", c)}
			return out
		}
		pkSet[c] = true
	}

	// Columns written are the source/target intersection, in source order.
	var common []string
	textual := make(map[string]bool)
	for _, sc := range st.Columns {
		if tc := tt.Column(sc.Name); tc != nil {
			common = append(common, sc.Name)
			textual[sc.Name] = tc.Textual()
		}
	}

	tx, err := s.target.Begin()
	if err != nil {
		out.Err = &DataWriteError{Table: name, Err: err}
		return out
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if cyclic {
		if err := s.tgtDialect.DisableConstraints(tx, name); err != nil {
			s.log.Warn("failed to suspend constraints", zap.String("table", name), zap.Error(err))
		}
	}

	err = streamRows(s.source, s.srcDialect, name, common, pk, opts.BatchSize, func(row map[string]any) error {
		return s.reconcileRow(tx, tt.Name, common, pk, pkSet, textual, row, strategyFor, &out, opts.OnRow)
	})
	if err != nil {
		out.Err = &DataWriteError{Table: name, Err: err}
		return out
	}

	if cyclic {
		if err := s.tgtDialect.EnableConstraints(tx, name); err != nil {
			s.log.Warn("failed to restore constraints", zap.String("table", name), zap.Error(err))
		}
	}

	if err := tx.Commit(); err != nil {
		out.Err = &DataWriteError{Table: name, Err: err}
		return out
	}
	committed = true
	return out
}

// extendTargetColumns adds source-only columns to the target, best-effort.
// Reports whether at least one column was added.
func (s *Session) extendTargetColumns(st, tt *schema.Table) bool {
	added := false
	for _, sc := range st.Columns {
		if tt.HasColumn(sc.Name) {
			continue
		}
		stmt := s.tgtDialect.AddColumnSQL(tt.Name, columnDef(sc))
		if _, err := s.target.Exec(stmt); err != nil {
			s.log.Warn("failed to add column",
				zap.String("table", tt.Name), zap.String("column", sc.Name), zap.Error(err))
			continue
		}
		s.log.Info("added column", zap.String("table", tt.Name), zap.String("column", sc.Name))
		added = true
	}
	return added
}

// streamRows reads rows ordered by primary key in fixed-size batches,
// invoking fn per row, until an empty batch terminates the loop.
// Single-column keys page by key cursor; composite keys fall back to offset
// paging since row-value cursors are not portable across engines.
func streamRows(db *sql.DB, d dialect.Dialect, table string, cols []string, pk []string, batchSize int, fn func(map[string]any) error) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
	}
	orderBy := make([]string, len(pk))
	for i, c := range pk {
		orderBy[i] = d.Quote(c)
	}
	base := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), d.Quote(table))
	order := strings.Join(orderBy, ", ")

	useCursor := len(pk) == 1
	var (
		lastKey any
		haveKey bool
		offset  int
	)

	for {
		var (
			query string
			args  []any
		)
		switch {
		case useCursor && haveKey:
			query = fmt.Sprintf("%s WHERE %s > %s ORDER BY %s %s",
				base, d.Quote(pk[0]), d.Placeholder(0), order, d.PageClause(batchSize, 0))
			args = []any{lastKey}
		case useCursor:
			query = fmt.Sprintf("%s ORDER BY %s %s", base, order, d.PageClause(batchSize, 0))
		default:
			query = fmt.Sprintf("%s ORDER BY %s %s", base, order, d.PageClause(batchSize, offset))
		}

		rows, err := db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("reading batch from %s: %w", table, err)
		}
		batch, err := scanRows(rows, cols)
		if err != nil {
			return fmt.Errorf("scanning batch from %s: %w", table, err)
		}
		if len(batch) == 0 {
			return nil
		}

		for _, row := range batch {
			if err := fn(row); err != nil {
				return err
			}
		}

		if useCursor {
			lastKey = batch[len(batch)-1][pk[0]]
			haveKey = true
		} else {
			offset += batchSize
		}
	}
}

func (s *Session) reconcileRow(tx *sql.Tx, table string, cols []string, pk []string, pkSet, textual map[string]bool, row map[string]any, strategyFor func(table, key string) Strategy, out *TableOutcome, onRow func()) error {
	if onRow != nil {
		defer onRow()
	}
	d := s.tgtDialect

	existing, found, err := lookupRow(tx, d, table, cols, pk, row, textual)
	if err != nil {
		return err
	}

	if !found {
		// Absent rows are always inserted, regardless of strategy.
		if err := insertRow(tx, d, table, cols, row, textual); err != nil {
			return err
		}
		out.Inserted++
		return nil
	}

	strategy := strategyFor(table, rowKeyString(row, pk))
	updates := planRowWrite(strategy, row, existing, cols, pkSet, textual)
	if len(updates) == 0 {
		out.Skipped++
		return nil
	}
	if err := updateRow(tx, d, table, cols, pk, row, updates, textual); err != nil {
		return err
	}
	out.Updated++
	return nil
}

// planRowWrite decides which columns to write for a source row whose key
// already exists in the target. skip writes nothing; overwrite replaces
// every non-key column unconditionally; merge fills only target columns
// that are currently null or empty-string, preserving populated values.
func planRowWrite(strategy Strategy, src, existing map[string]any, cols []string, pk, textual map[string]bool) map[string]any {
	if strategy == StrategySkip {
		return nil
	}
	updates := make(map[string]any)
	for _, col := range cols {
		if pk[col] {
			continue
		}
		val := coerceValue(src[col], textual[col])
		switch strategy {
		case StrategyOverwrite:
			updates[col] = val
		case StrategyMerge:
			if cur := existing[col]; cur == nil || cur == "" {
				updates[col] = val
			}
		}
	}
	return updates
}

func lookupRow(tx *sql.Tx, d dialect.Dialect, table string, cols []string, pk []string, src map[string]any, textual map[string]bool) (map[string]any, bool, error) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
	}
	where := make([]string, len(pk))
	args := make([]any, len(pk))
	for i, c := range pk {
		where[i] = fmt.Sprintf("%s = %s", d.Quote(c), d.Placeholder(i))
		args[i] = coerceValue(src[c], textual[c])
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(quoted, ", "), d.Quote(table), strings.Join(where, " AND "))
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, false, err
	}
	found, err := scanRows(rows, cols)
	if err != nil {
		return nil, false, err
	}
	if len(found) == 0 {
		return nil, false, nil
	}
	return found[0], true, nil
}

func insertRow(tx *sql.Tx, d dialect.Dialect, table string, cols []string, row map[string]any, textual map[string]bool) error {
	quoted := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
		args[i] = coerceValue(row[c], textual[c])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(quoted, ", "),
		dialect.Placeholders(len(cols), d.Placeholder))
	_, err := tx.Exec(query, args...)
	return err
}

func updateRow(tx *sql.Tx, d dialect.Dialect, table string, cols []string, pk []string, src map[string]any, updates map[string]any, textual map[string]bool) error {
	var (
		sets []string
		args []any
	)
	// Iterate in source column order so statements are deterministic.
	for _, c := range cols {
		val, ok := updates[c]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", d.Quote(c), d.Placeholder(len(args))))
		args = append(args, val)
	}
	where := make([]string, len(pk))
	for i, c := range pk {
		where[i] = fmt.Sprintf("%s = %s", d.Quote(c), d.Placeholder(len(args)))
		args = append(args, coerceValue(src[c], textual[c]))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		d.Quote(table), strings.Join(sets, ", "), strings.Join(where, " AND "))
	_, err := tx.Exec(query, args...)
	return err
}

// scanRows drains rows into generic maps, copying driver-owned byte slices.
func scanRows(rows *sql.Rows, cols []string) ([]map[string]any, error) {
	defer rows.Close()
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// coerceValue stringifies values bound for textual target columns, which
// tolerates type drift between engines (e.g. numeric source, varchar
// target).
func coerceValue(v any, textual bool) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if textual {
		if _, ok := v.(string); !ok {
			return fmt.Sprint(v)
		}
	}
	return v
}

func rowKeyString(row map[string]any, pk []string) string {
	parts := make([]string, len(pk))
	for i, c := range pk {
		parts[i] = fmt.Sprint(normalizeValue(row[c]))
	}
	return strings.Join(parts, ",")
}
