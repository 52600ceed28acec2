package maintain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mfigueroa/pgcustodian/internal/ident"
	"github.com/mfigueroa/pgcustodian/internal/pg"
	"github.com/mfigueroa/pgcustodian/pkg/types"
)

// ErrSchemaMismatch is returned when the target table is missing or lacks
// the created_at column the retention routines key on.
var ErrSchemaMismatch = errors.New("schema mismatch")

// timestampColumn is the conventional row-creation column every maintained
// table is expected to carry.
const timestampColumn = "created_at"

// Maintainer runs retention and statistics routines against one schema.
// It is stateless beyond its handles and safe for concurrent use.
type Maintainer struct {
	q      pg.Querier
	schema ident.Ref
}

// New validates schema the same way table names are validated. Every
// generated statement is schema-qualified so the table the guard inspected
// is the table the statement touches, regardless of the session search_path.
func New(q pg.Querier, schema string) (*Maintainer, error) {
	ref, err := ident.New(schema, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return &Maintainer{q: q, schema: ref}, nil
}

// qualify renders the fully qualified, quoted relation name.
func (m *Maintainer) qualify(table ident.Ref) string {
	return m.schema.Quote() + "." + table.Quote()
}

// hasTimestampColumn reports whether the table exists and carries the
// creation-timestamp column. A missing table and a missing column are the
// same defect from the caller's point of view.
func (m *Maintainer) hasTimestampColumn(ctx context.Context, table ident.Ref) error {
	var n int64
	err := m.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 AND column_name = $3
	`, m.schema.Name(), table.Name(), timestampColumn).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect columns of %s: %w", table.Name(), err)
	}
	if n == 0 {
		return fmt.Errorf("%w: table %s has no %s column", ErrSchemaMismatch, table.Name(), timestampColumn)
	}
	return nil
}

// Cleanup permanently deletes every row of table whose created_at falls
// outside the retention window of days and returns the engine's
// affected-row count. The comparison is strict: days == 0 removes every row
// created strictly before now(), so a row stamped in the same instant
// survives until the next invocation. Treat the zero boundary as the
// dangerous setting it is. There is no undo.
func (m *Maintainer) Cleanup(ctx context.Context, table ident.Ref, days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("retention days must be >= 0, got %d", days)
	}
	if err := m.hasTimestampColumn(ctx, table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		"DELETE FROM %s WHERE created_at < now() - make_interval(days => $1)",
		m.qualify(table),
	)
	tag, err := m.q.Exec(ctx, query, days)
	if err != nil {
		return 0, fmt.Errorf("cleanup %s: %w", table.Name(), err)
	}
	return tag.RowsAffected(), nil
}

// CleanupPreview counts the rows Cleanup would delete without touching them.
func (m *Maintainer) CleanupPreview(ctx context.Context, table ident.Ref, days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("retention days must be >= 0, got %d", days)
	}
	if err := m.hasTimestampColumn(ctx, table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE created_at < now() - make_interval(days => $1)",
		m.qualify(table),
	)
	var n int64
	if err := m.q.QueryRow(ctx, query, days).Scan(&n); err != nil {
		return 0, fmt.Errorf("preview cleanup of %s: %w", table.Name(), err)
	}
	return n, nil
}

// Stats returns the row count and oldest/newest creation timestamps of
// table. An empty table yields nil timestamps. Read-only.
func (m *Maintainer) Stats(ctx context.Context, table ident.Ref) (types.TableStats, error) {
	if err := m.hasTimestampColumn(ctx, table); err != nil {
		return types.TableStats{}, err
	}

	query := fmt.Sprintf(
		"SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM %s",
		m.qualify(table),
	)
	var (
		count          int64
		oldest, newest *time.Time
	)
	if err := m.q.QueryRow(ctx, query).Scan(&count, &oldest, &newest); err != nil {
		return types.TableStats{}, fmt.Errorf("stats for %s: %w", table.Name(), err)
	}
	return types.TableStats{
		TotalRows:    count,
		OldestRecord: oldest,
		NewestRecord: newest,
	}, nil
}
