// Package engine holds the reconciliation core: a Session pairs a source
// and a target connection with cached metadata snapshots and exposes the
// analyze / apply / sync / report operations.
package engine

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"db-sync/internal/dialect"
	"db-sync/internal/diff"
	"db-sync/internal/schema"
)

// Endpoint identifies one side of a sync.
type Endpoint struct {
	Name   string // label for logs, e.g. "source"
	Driver string
	DSN    string
	Schema string
}

// Session owns a source+target connection pair plus cached metadata. It is
// exclusively owned by its single caller: no internal locking exists, and
// metadata must not be read while a refresh is in flight. Two sessions over
// distinct connection pairs are independent.
type Session struct {
	log *zap.Logger

	source *sql.DB
	target *sql.DB

	srcDialect dialect.Dialect
	tgtDialect dialect.Dialect

	srcSchema string
	tgtSchema string

	srcMeta schema.Set
	tgtMeta schema.Set

	// Sequences queued by the last Analyze/ApplySafeChanges, reconciled at
	// the end of a bulk sync.
	pendingSeqs []diff.ReconcileSequence
}

// Open connects and introspects both endpoints. Either engine being
// unreachable fails with a ConnectionError.
func Open(source, target Endpoint, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		log:        log,
		srcDialect: dialect.Get(source.Driver),
		tgtDialect: dialect.Get(target.Driver),
	}

	var err error
	if s.source, s.srcSchema, err = connect(source); err != nil {
		return nil, err
	}
	if s.target, s.tgtSchema, err = connect(target); err != nil {
		s.source.Close()
		return nil, err
	}

	if err := s.RefreshSource(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.RefreshTarget(); err != nil {
		s.Close()
		return nil, err
	}

	log.Info("session opened",
		zap.String("source_driver", source.Driver),
		zap.String("target_driver", target.Driver),
		zap.Int("source_tables", len(s.srcMeta)),
		zap.Int("target_tables", len(s.tgtMeta)))
	return s, nil
}

func connect(ep Endpoint) (*sql.DB, string, error) {
	db, err := sql.Open(ep.Driver, ep.DSN)
	if err != nil {
		return nil, "", &ConnectionError{Endpoint: ep.Name, Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", &ConnectionError{Endpoint: ep.Name, Err: err}
	}

	schemaName := ep.Schema
	if schemaName == "" && ep.Driver == "mysql" {
		if err := db.QueryRow("SELECT DATABASE()").Scan(&schemaName); err != nil || schemaName == "" {
			db.Close()
			return nil, "", &ConnectionError{Endpoint: ep.Name, Err: errors.New("no database selected in DSN")}
		}
	}
	return db, schemaName, nil
}

// Close releases both connection pairs.
func (s *Session) Close() error {
	var errs []error
	if s.source != nil {
		errs = append(errs, s.source.Close())
	}
	if s.target != nil {
		errs = append(errs, s.target.Close())
	}
	return errors.Join(errs...)
}

// RefreshSource rebuilds the source metadata snapshot wholesale.
func (s *Session) RefreshSource() error {
	meta, err := schema.Introspect(s.source, s.srcDialect, s.srcSchema)
	if err != nil {
		return err
	}
	s.srcMeta = meta
	return nil
}

// RefreshTarget rebuilds the target metadata snapshot wholesale. Required
// after ApplySafeChanges (and any external mutation) before further
// analysis.
func (s *Session) RefreshTarget() error {
	meta, err := schema.Introspect(s.target, s.tgtDialect, s.tgtSchema)
	if err != nil {
		return err
	}
	s.tgtMeta = meta
	return nil
}

// SourceMeta exposes the cached source snapshot, e.g. for seeding or
// dry-run table listings.
func (s *Session) SourceMeta() schema.Set { return s.srcMeta }

// TargetMeta exposes the cached target snapshot.
func (s *Session) TargetMeta() schema.Set { return s.tgtMeta }

// SourceDB exposes the raw source handle for auxiliary tooling.
func (s *Session) SourceDB() *sql.DB { return s.source }

// TargetDB exposes the raw target handle for auxiliary tooling.
func (s *Session) TargetDB() *sql.DB { return s.target }

// SourceDialect returns the dialect bound to the source connection.
func (s *Session) SourceDialect() dialect.Dialect { return s.srcDialect }

// TargetDialect returns the dialect bound to the target connection.
func (s *Session) TargetDialect() dialect.Dialect { return s.tgtDialect }

// SourceRowCount sums COUNT(*) across every table in the source snapshot,
// for sizing progress reporting before a sync. Tables that refuse the count
// contribute zero.
func (s *Session) SourceRowCount() int64 {
	var total int64
	for _, name := range s.srcMeta.Names() {
		var n int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.srcDialect.Quote(name))
		if err := s.source.QueryRow(query).Scan(&n); err != nil {
			s.log.Debug("row count failed", zap.String("table", name), zap.Error(err))
			continue
		}
		total += n
	}
	return total
}

// Analyze diffs the cached snapshots into a migration plan. It is pure and
// safe to repeat: two consecutive calls with no intervening mutation (and
// no refresh) return identical plans. The plan is a snapshot, stale as soon
// as the target is mutated.
func (s *Session) Analyze() *diff.Plan {
	plan := diff.Diff(s.srcMeta, s.tgtMeta)
	s.pendingSeqs = append([]diff.ReconcileSequence(nil), plan.Sequences...)
	return plan
}
