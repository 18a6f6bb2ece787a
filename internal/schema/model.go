package schema

import (
	"fmt"
	"sort"
	"strings"
)

// TypeSignature is the canonical semantic descriptor used for cross-engine
// type comparison. Kind is the normalized type family; an unsupported
// engine type degrades to its lowercased textual representation.
type TypeSignature struct {
	Kind      string
	Size      int
	Precision int
	Scale     int
}

func (t TypeSignature) Equal(o TypeSignature) bool {
	return t.Kind == o.Kind && t.Size == o.Size && t.Precision == o.Precision && t.Scale == o.Scale
}

func (t TypeSignature) String() string {
	switch {
	case t.Size > 0:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Size)
	case t.Precision > 0 && t.Scale > 0:
		return fmt.Sprintf("%s(%d,%d)", t.Kind, t.Precision, t.Scale)
	case t.Precision > 0:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Precision)
	default:
		return t.Kind
	}
}

type Column struct {
	Name     string
	Type     TypeSignature
	Raw      string // engine-native type text, e.g. "varchar(120)"
	Nullable bool
	Default  string // default expression, empty when none
	AutoInc  bool
}

// Textual reports whether values bound for this column should be
// stringified before comparison or write.
func (c *Column) Textual() bool {
	switch c.Type.Kind {
	case "varchar", "char", "text", "string", "uuid", "json", "jsonb", "xml", "enum":
		return true
	}
	return strings.Contains(c.Type.Kind, "char") || strings.Contains(c.Type.Kind, "text")
}

type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Signature identifies a foreign key structurally, independent of its name.
func (fk *ForeignKey) Signature() string {
	return fmt.Sprintf("(%s)->%s(%s)",
		strings.Join(fk.Columns, ","), fk.RefTable, strings.Join(fk.RefColumns, ","))
}

type Index struct {
	Name    string
	Unique  bool
	Columns []string
}

func (ix *Index) Signature() string {
	return fmt.Sprintf("%t|%s", ix.Unique, strings.Join(ix.Columns, ","))
}

type UniqueConstraint struct {
	Name    string
	Columns []string
}

func (u *UniqueConstraint) Signature() string {
	return strings.Join(u.Columns, ",")
}

type CheckConstraint struct {
	Name string
	Expr string
}

// Signature normalizes whitespace and case so the same predicate rendered
// slightly differently by two engines still matches.
func (c *CheckConstraint) Signature() string {
	return strings.ToLower(strings.Join(strings.Fields(c.Expr), " "))
}

// SequenceBinding ties an auto-increment generator to a column. Name is
// empty on engines whose identity columns have no standalone sequence.
type SequenceBinding struct {
	Name   string
	Table  string
	Column string
}

type Table struct {
	Name        string
	Columns     []*Column // in ordinal order
	PrimaryKey  []string
	ForeignKeys []*ForeignKey
	Indexes     []*Index
	Uniques     []*UniqueConstraint
	Checks      []*CheckConstraint
	Sequences   []*SequenceBinding
}

func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Set is a full introspected snapshot, keyed by table name. Snapshots are
// rebuilt wholesale on refresh, never partially mutated.
type Set map[string]*Table

// Names returns table names sorted for deterministic iteration.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
