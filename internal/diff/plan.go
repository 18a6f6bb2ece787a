// Package diff compares two introspected schema snapshots into an
// additive-only migration plan.
package diff

import "db-sync/internal/schema"

// WarningLevel separates changes the engine may apply on its own from those
// requiring a human decision.
type WarningLevel string

const (
	// Advisory warnings accompany auto-applicable additive changes.
	Advisory WarningLevel = "ADVISORY"
	// Manual warnings flag structure that exists only in the target, or
	// type narrowing; the engine never acts on these.
	Manual WarningLevel = "MANUAL"
)

type Warning struct {
	Level   WarningLevel
	Message string
}

// Plan items are tagged variants with typed fields; nothing is encoded as
// text to be re-parsed later. There is deliberately no drop variant of any
// kind.

type CreateTable struct {
	Table string
}

type AddColumn struct {
	Table  string
	Column schema.Column
}

type AddForeignKey struct {
	Table      string
	Columns    []string
	RefTable   string
	RefColumns []string
}

type AddIndex struct {
	Table   string
	Unique  bool
	Columns []string
}

type AddUnique struct {
	Table   string
	Columns []string
}

type AddCheck struct {
	Table string
	Expr  string
}

// ReconcileSequence queues an auto-increment generator for realignment
// after a bulk copy. Sequence is empty on identity-style engines.
type ReconcileSequence struct {
	Table    string
	Column   string
	Sequence string
}

// Plan is a snapshot of proposed changes; it is stale as soon as the target
// is mutated.
type Plan struct {
	CreateTables   []CreateTable
	AddColumns     []AddColumn
	AddForeignKeys []AddForeignKey
	AddIndexes     []AddIndex
	AddUniques     []AddUnique
	AddChecks      []AddCheck
	Sequences      []ReconcileSequence
	Warnings       []Warning
}

// Empty reports whether the plan carries no applicable items. Warnings
// alone do not make a plan applicable.
func (p *Plan) Empty() bool {
	return len(p.CreateTables) == 0 && len(p.AddColumns) == 0 &&
		len(p.AddForeignKeys) == 0 && len(p.AddIndexes) == 0 &&
		len(p.AddUniques) == 0 && len(p.AddChecks) == 0 &&
		len(p.Sequences) == 0
}

func (p *Plan) warn(level WarningLevel, msg string) {
	p.Warnings = append(p.Warnings, Warning{Level: level, Message: msg})
}
