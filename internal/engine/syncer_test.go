package engine

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"db-sync/internal/dialect"
	"db-sync/internal/schema"
)

func TestParseStrategy(t *testing.T) {
	for _, valid := range []string{"skip", "overwrite", "merge"} {
		got, err := ParseStrategy(valid)
		require.NoError(t, err)
		assert.Equal(t, Strategy(valid), got)
	}
	_, err := ParseStrategy("replace")
	assert.Error(t, err)
}

func TestSyncOptionsDefaults(t *testing.T) {
	opts := SyncOptions{}.withDefaults()
	assert.Equal(t, StrategySkip, opts.Strategy)
	assert.Equal(t, DefaultBatchSize, opts.BatchSize)
}

// The canonical collision: the target already carries curated rows
// (Alice and Bob marked PROD), the source brings unmarked duplicates.
var (
	pkID    = map[string]bool{"id": true}
	rowCols = []string{"id", "name", "status"}
	textCol = map[string]bool{"name": true, "status": true}
)

func TestPlanRowWrite_SkipWritesNothing(t *testing.T) {
	src := map[string]any{"id": int64(1), "name": "Alice", "status": nil}
	tgt := map[string]any{"id": int64(1), "name": "Alice", "status": "PROD"}

	updates := planRowWrite(StrategySkip, src, tgt, rowCols, pkID, textCol)
	assert.Empty(t, updates)
}

func TestPlanRowWrite_OverwriteReplacesNonKeyColumns(t *testing.T) {
	src := map[string]any{"id": int64(1), "name": "Alice Cooper", "status": nil}
	tgt := map[string]any{"id": int64(1), "name": "Alice", "status": "PROD"}

	updates := planRowWrite(StrategyOverwrite, src, tgt, rowCols, pkID, textCol)

	require.Len(t, updates, 2)
	assert.Equal(t, "Alice Cooper", updates["name"])
	assert.Nil(t, updates["status"])
	assert.NotContains(t, updates, "id")
}

func TestPlanRowWrite_MergeFillsOnlyEmptyTargetColumns(t *testing.T) {
	src := map[string]any{"id": int64(2), "name": "Bob Jr", "status": "DEV"}

	populated := map[string]any{"id": int64(2), "name": "Bob", "status": "PROD"}
	updates := planRowWrite(StrategyMerge, src, populated, rowCols, pkID, textCol)
	assert.Empty(t, updates)

	nullStatus := map[string]any{"id": int64(2), "name": "Bob", "status": nil}
	updates = planRowWrite(StrategyMerge, src, nullStatus, rowCols, pkID, textCol)
	require.Len(t, updates, 1)
	assert.Equal(t, "DEV", updates["status"])

	emptyStatus := map[string]any{"id": int64(2), "name": "Bob", "status": ""}
	updates = planRowWrite(StrategyMerge, src, emptyStatus, rowCols, pkID, textCol)
	require.Len(t, updates, 1)
	assert.Equal(t, "DEV", updates["status"])
}

func TestCoerceValue(t *testing.T) {
	assert.Nil(t, coerceValue(nil, true))
	assert.Equal(t, "42", coerceValue(int64(42), true))
	assert.Equal(t, int64(42), coerceValue(int64(42), false))
	assert.Equal(t, "raw", coerceValue([]byte("raw"), false))
	assert.Equal(t, "raw", coerceValue([]byte("raw"), true))
}

func TestRowKeyString(t *testing.T) {
	row := map[string]any{"region": "eu", "code": int64(7)}
	assert.Equal(t, "eu,7", rowKeyString(row, []string{"region", "code"}))
	assert.Equal(t, "7", rowKeyString(row, []string{"code"}))
}

func newTestSession(t *testing.T) (*Session, sqlmock.Sqlmock, sqlmock.Sqlmock) {
	t.Helper()
	srcDB, srcMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	tgtDB, tgtMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		srcDB.Close()
		tgtDB.Close()
	})

	s := &Session{
		log:        zap.NewNop(),
		source:     srcDB,
		target:     tgtDB,
		srcDialect: dialect.Get("postgres"),
		tgtDialect: dialect.Get("postgres"),
	}
	return s, srcMock, tgtMock
}

func usersMeta() schema.Set {
	return schema.Set{
		"users": {
			Name: "users",
			Columns: []*schema.Column{
				{Name: "id", Type: schema.TypeSignature{Kind: "int"}, Raw: "int"},
				{Name: "name", Type: schema.TypeSignature{Kind: "varchar", Size: 50}, Raw: "varchar(50)"},
			},
			PrimaryKey: []string{"id"},
		},
	}
}

func TestBulkSync_InsertsMissingRows(t *testing.T) {
	s, srcMock, tgtMock := newTestSession(t)
	s.srcMeta = usersMeta()
	s.tgtMeta = usersMeta()

	srcMock.ExpectQuery(`SELECT "id", "name" FROM "users" ORDER BY "id" LIMIT 1000`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(4, "David"))
	srcMock.ExpectQuery(`SELECT "id", "name" FROM "users" WHERE "id" > $1 ORDER BY "id" LIMIT 1000`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	tgtMock.ExpectBegin()
	tgtMock.ExpectQuery(`SELECT "id", "name" FROM "users" WHERE "id" = $1`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	tgtMock.ExpectExec(`INSERT INTO "users" ("id", "name") VALUES ($1, $2)`).
		WithArgs(4, "David").
		WillReturnResult(sqlmock.NewResult(0, 1))
	tgtMock.ExpectCommit()

	outcomes := s.BulkSync(SyncOptions{Strategy: StrategyOverwrite})

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 1, outcomes[0].Inserted)
	assert.Equal(t, 0, outcomes[0].Updated)
	assert.NoError(t, srcMock.ExpectationsWereMet())
	assert.NoError(t, tgtMock.ExpectationsWereMet())
}

func TestBulkSync_SkipLeavesExistingRows(t *testing.T) {
	s, srcMock, tgtMock := newTestSession(t)
	s.srcMeta = usersMeta()
	s.tgtMeta = usersMeta()

	srcMock.ExpectQuery(`SELECT "id", "name" FROM "users" ORDER BY "id" LIMIT 1000`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Alice"))
	srcMock.ExpectQuery(`SELECT "id", "name" FROM "users" WHERE "id" > $1 ORDER BY "id" LIMIT 1000`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	tgtMock.ExpectBegin()
	tgtMock.ExpectQuery(`SELECT "id", "name" FROM "users" WHERE "id" = $1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Alice Prime"))
	tgtMock.ExpectCommit()

	outcomes := s.BulkSync(SyncOptions{Strategy: StrategySkip})

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 1, outcomes[0].Skipped)
	assert.NoError(t, tgtMock.ExpectationsWereMet())
}

func TestBulkSync_TableWithoutPrimaryKey(t *testing.T) {
	s, _, _ := newTestSession(t)
	meta := usersMeta()
	meta["users"].PrimaryKey = nil
	s.srcMeta = meta
	s.tgtMeta = usersMeta()

	outcomes := s.BulkSync(SyncOptions{})

	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, ErrNoPrimaryKey)
}

func TestSourceRowCount(t *testing.T) {
	s, srcMock, _ := newTestSession(t)
	meta := usersMeta()
	meta["orders"] = &schema.Table{Name: "orders", PrimaryKey: []string{"id"}}
	s.srcMeta = meta

	srcMock.ExpectQuery(`SELECT COUNT(*) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	srcMock.ExpectQuery(`SELECT COUNT(*) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	assert.Equal(t, int64(5), s.SourceRowCount())
	assert.NoError(t, srcMock.ExpectationsWereMet())
}

func TestResolveConflicts_OverridePerRow(t *testing.T) {
	s, srcMock, tgtMock := newTestSession(t)
	s.srcMeta = usersMeta()
	s.tgtMeta = usersMeta()

	srcMock.ExpectQuery(`SELECT "id", "name" FROM "users" ORDER BY "id" LIMIT 1000`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Alice").
			AddRow(2, "Bob"))
	srcMock.ExpectQuery(`SELECT "id", "name" FROM "users" WHERE "id" > $1 ORDER BY "id" LIMIT 1000`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	tgtMock.ExpectBegin()
	// Row 1 carries an overwrite override, row 2 falls back to skip.
	tgtMock.ExpectQuery(`SELECT "id", "name" FROM "users" WHERE "id" = $1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Alice Prime"))
	tgtMock.ExpectExec(`UPDATE "users" SET "name" = $1 WHERE "id" = $2`).
		WithArgs("Alice", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	tgtMock.ExpectQuery(`SELECT "id", "name" FROM "users" WHERE "id" = $1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "Bob Prime"))
	tgtMock.ExpectCommit()

	outcomes := s.ResolveConflicts(map[string]Strategy{"users:1": StrategyOverwrite}, StrategySkip)

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 1, outcomes[0].Updated)
	assert.Equal(t, 1, outcomes[0].Skipped)
	assert.NoError(t, tgtMock.ExpectationsWereMet())
}
