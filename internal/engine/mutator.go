package engine

import (
	"fmt"

	"go.uber.org/zap"

	"db-sync/internal/dialect"
	"db-sync/internal/diff"
	"db-sync/internal/schema"
)

// ApplyResult records one attempted structural change.
type ApplyResult struct {
	Statement string
	Err       error
}

// ApplySafeChanges applies the plan's additive items against the target.
// Each item runs in its own implicit transaction so a failing statement
// never poisons the rest of the plan: partial application is an expected
// outcome, and callers must refresh target metadata and re-diff afterward
// to see what remains.
func (s *Session) ApplySafeChanges(plan *diff.Plan) []ApplyResult {
	var results []ApplyResult

	exec := func(stmt string) {
		if _, err := s.target.Exec(stmt); err != nil {
			derr := &DDLError{Statement: stmt, Err: err}
			s.log.Warn("structural change failed", zap.String("statement", stmt), zap.Error(err))
			results = append(results, ApplyResult{Statement: stmt, Err: derr})
			return
		}
		s.log.Info("applied", zap.String("statement", stmt))
		results = append(results, ApplyResult{Statement: stmt})
	}

	for _, ct := range plan.CreateTables {
		st, ok := s.srcMeta[ct.Table]
		if !ok {
			continue
		}
		if _, exists := s.tgtMeta[ct.Table]; exists {
			s.log.Info("table already exists, skipping", zap.String("table", ct.Table))
			continue
		}
		exec(s.tgtDialect.CreateTableSQL(tableDef(st)))
	}

	for _, ac := range plan.AddColumns {
		exec(s.tgtDialect.AddColumnSQL(ac.Table, columnDef(&ac.Column)))
	}

	for _, fk := range plan.AddForeignKeys {
		exec(s.tgtDialect.AddForeignKeySQL(fk.Table, fk.Columns, fk.RefTable, fk.RefColumns))
	}

	for _, ix := range plan.AddIndexes {
		exec(s.tgtDialect.AddIndexSQL(ix.Table, ix.Unique, ix.Columns))
	}

	for _, u := range plan.AddUniques {
		exec(s.tgtDialect.AddUniqueSQL(u.Table, u.Columns))
	}

	for _, c := range plan.AddChecks {
		exec(s.tgtDialect.AddCheckSQL(c.Table, c.Expr))
	}

	for _, sq := range plan.Sequences {
		label := fmt.Sprintf("reconcile sequence %s.%s", sq.Table, sq.Column)
		if err := s.reconcileSequence(sq); err != nil {
			s.log.Warn("sequence reconciliation failed",
				zap.String("table", sq.Table), zap.String("column", sq.Column), zap.Error(err))
			results = append(results, ApplyResult{Statement: label, Err: &DDLError{Statement: label, Err: err}})
		} else {
			results = append(results, ApplyResult{Statement: label})
		}
	}

	s.pendingSeqs = append([]diff.ReconcileSequence(nil), plan.Sequences...)
	return results
}

// reconcileSequence moves the generator to max(source reported value,
// target max primary key + 1), so no future target insert collides with
// already-copied rows. Assumes exclusive migration access: a concurrent
// external writer can race the computed value.
func (s *Session) reconcileSequence(sq diff.ReconcileSequence) error {
	d := s.tgtDialect

	// Bindings from identity-style sources (MySQL, MSSQL) carry no sequence
	// name; a name-based target must supply its own, from its snapshot.
	seq := sq.Sequence
	if seq == "" && d.NamedSequences() {
		seq = s.targetSequenceName(sq.Table, sq.Column)
		if seq == "" {
			s.log.Info("sequence reconciliation skipped: no sequence bound on target",
				zap.String("table", sq.Table), zap.String("column", sq.Column))
			return nil
		}
	}

	if stmt, ok := d.EnsureSequenceSQL(seq); ok {
		if _, err := s.target.Exec(stmt); err != nil {
			// Pre-existing sequence on engines without IF NOT EXISTS.
			s.log.Debug("ensure sequence", zap.String("sequence", seq), zap.Error(err))
		}
	}

	var srcVal int64
	if err := s.source.QueryRow(s.srcDialect.SequenceValueQuery(sq.Sequence, sq.Table, sq.Column)).Scan(&srcVal); err != nil {
		return fmt.Errorf("reading source sequence value: %w", err)
	}

	var tgtMax int64
	maxQuery := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", d.Quote(sq.Column), d.Quote(sq.Table))
	if err := s.target.QueryRow(maxQuery).Scan(&tgtMax); err != nil {
		return fmt.Errorf("reading target max key: %w", err)
	}

	next := tgtMax + 1
	if srcVal > next {
		next = srcVal
	}
	if _, err := s.target.Exec(d.SetSequenceSQL(seq, sq.Table, sq.Column, next)); err != nil {
		return fmt.Errorf("setting sequence value: %w", err)
	}
	s.log.Info("sequence reconciled",
		zap.String("table", sq.Table), zap.String("column", sq.Column), zap.Int64("value", next))
	return nil
}

func (s *Session) targetSequenceName(table, column string) string {
	t, ok := s.tgtMeta[table]
	if !ok {
		return ""
	}
	for _, b := range t.Sequences {
		if b.Column == column {
			return b.Name
		}
	}
	return ""
}

func columnDef(c *schema.Column) dialect.ColumnDef {
	return dialect.ColumnDef{
		Name:     c.Name,
		Type:     c.Raw,
		Nullable: c.Nullable,
		Default:  c.Default,
	}
}

func tableDef(t *schema.Table) dialect.TableDef {
	def := dialect.TableDef{
		Name:       t.Name,
		PrimaryKey: t.PrimaryKey,
	}
	for _, c := range t.Columns {
		def.Columns = append(def.Columns, columnDef(c))
	}
	return def
}
