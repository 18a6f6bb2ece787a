package diff

import (
	"fmt"

	"db-sync/internal/schema"
)

// Diff compares a source snapshot against a target snapshot. The resulting
// plan is strictly additive: anything that could destroy or narrow existing
// target data is downgraded to a MANUAL warning the operator must act on
// explicitly. Iteration is sorted throughout, so diffing the same snapshots
// twice yields identical plans.
func Diff(source, target schema.Set) *Plan {
	plan := &Plan{}

	for _, name := range source.Names() {
		st := source[name]
		tt, shared := target[name]
		if !shared {
			plan.CreateTables = append(plan.CreateTables, CreateTable{Table: name})
			plan.warn(Advisory, fmt.Sprintf("new table: %s", name))
			queueSequences(plan, st)
			continue
		}
		diffColumns(plan, st, tt)
		diffForeignKeys(plan, st, tt)
		diffIndexes(plan, st, tt)
		diffUniques(plan, st, tt)
		diffChecks(plan, st, tt)
		queueSequences(plan, st)
	}

	for _, name := range target.Names() {
		if _, ok := source[name]; !ok {
			plan.warn(Manual, fmt.Sprintf("extra table in target: %s (never auto-dropped)", name))
		}
	}

	return plan
}

func diffColumns(plan *Plan, st, tt *schema.Table) {
	for _, sc := range st.Columns {
		tc := tt.Column(sc.Name)
		if tc == nil {
			plan.AddColumns = append(plan.AddColumns, AddColumn{Table: st.Name, Column: *sc})
			plan.warn(Advisory, fmt.Sprintf("column %s.%s missing in target", st.Name, sc.Name))
			continue
		}
		if !sc.Type.Equal(tc.Type) {
			// Altering in place can lose data, so a mismatch is never
			// auto-resolved.
			plan.warn(Manual, fmt.Sprintf("type mismatch for %s.%s: source=%s target=%s",
				st.Name, sc.Name, sc.Type, tc.Type))
		}
	}
	for _, tc := range tt.Columns {
		if st.Column(tc.Name) == nil {
			plan.warn(Manual, fmt.Sprintf("extra column %s.%s in target (never auto-dropped)", tt.Name, tc.Name))
		}
	}
}

func diffForeignKeys(plan *Plan, st, tt *schema.Table) {
	targetSigs := make(map[string]bool, len(tt.ForeignKeys))
	for _, fk := range tt.ForeignKeys {
		targetSigs[fk.Signature()] = true
	}
	for _, fk := range st.ForeignKeys {
		if !targetSigs[fk.Signature()] {
			plan.AddForeignKeys = append(plan.AddForeignKeys, AddForeignKey{
				Table:      st.Name,
				Columns:    fk.Columns,
				RefTable:   fk.RefTable,
				RefColumns: fk.RefColumns,
			})
		}
	}
}

func diffIndexes(plan *Plan, st, tt *schema.Table) {
	targetSigs := make(map[string]bool, len(tt.Indexes))
	for _, ix := range tt.Indexes {
		targetSigs[ix.Signature()] = true
	}
	for _, ix := range st.Indexes {
		if !targetSigs[ix.Signature()] {
			plan.AddIndexes = append(plan.AddIndexes, AddIndex{
				Table:   st.Name,
				Unique:  ix.Unique,
				Columns: ix.Columns,
			})
		}
	}
}

func diffUniques(plan *Plan, st, tt *schema.Table) {
	targetSigs := make(map[string]bool, len(tt.Uniques))
	for _, u := range tt.Uniques {
		targetSigs[u.Signature()] = true
	}
	// A unique index on the same columns also satisfies the constraint.
	for _, ix := range tt.Indexes {
		if ix.Unique {
			targetSigs[(&schema.UniqueConstraint{Columns: ix.Columns}).Signature()] = true
		}
	}
	for _, u := range st.Uniques {
		if !targetSigs[u.Signature()] {
			plan.AddUniques = append(plan.AddUniques, AddUnique{Table: st.Name, Columns: u.Columns})
		}
	}
}

func diffChecks(plan *Plan, st, tt *schema.Table) {
	targetSigs := make(map[string]bool, len(tt.Checks))
	for _, c := range tt.Checks {
		targetSigs[c.Signature()] = true
	}
	for _, c := range st.Checks {
		if !targetSigs[c.Signature()] {
			plan.AddChecks = append(plan.AddChecks, AddCheck{Table: st.Name, Expr: c.Expr})
		}
	}
}

func queueSequences(plan *Plan, st *schema.Table) {
	for _, sq := range st.Sequences {
		plan.Sequences = append(plan.Sequences, ReconcileSequence{
			Table:    sq.Table,
			Column:   sq.Column,
			Sequence: sq.Name,
		})
	}
}
