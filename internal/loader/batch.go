package loader

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/bangumi-archive/stats-loader/internal/dump"
)

// batchUpserter accumulates transformed rows and commits them in fixed-size
// batches, one transaction per batch. A failed batch is rolled back, its
// rows tallied as failed, and processing moves on to the next batch.
type batchUpserter struct {
	db   *sql.DB
	spec dump.Spec
	size int
	rows [][]any
}

func newBatchUpserter(db *sql.DB, spec dump.Spec, size int) *batchUpserter {
	return &batchUpserter{db: db, spec: spec, size: size}
}

// add queues one row and flushes when the batch is full.
func (b *batchUpserter) add(ctx context.Context, row []any, st *Stats) {
	b.rows = append(b.rows, row)
	if len(b.rows) >= b.size {
		b.flush(ctx, st)
	}
}

// flush commits the pending rows. The upsert is keyed on (id, data_date):
// absent keys insert, existing keys have every non-key column overwritten,
// so re-running a snapshot date is idempotent. RETURNING (xmax = 0) reports
// which branch fired for each row.
func (b *batchUpserter) flush(ctx context.Context, st *Stats) {
	if len(b.rows) == 0 {
		return
	}
	rows, superseded := dedupeRows(b.rows)
	b.rows = nil
	st.Skipped += superseded

	inserted, updated, err := b.upsert(ctx, rows)
	if err != nil {
		st.Failed += len(rows)
		log.Printf("%s: batch of %d failed: %v", b.spec.Table, len(rows), err)
		return
	}
	st.Inserted += inserted
	st.Updated += updated
}

// dedupeRows keeps the last row per id, preserving first-seen order. The
// data date is constant within a run, so a repeated id would hit the same
// (id, data_date) key twice in one statement, which Postgres rejects for
// the whole batch ("cannot affect row a second time"). Last write wins,
// matching what per-row upserts would have left behind; superseded rows
// are reported so the caller can tally them.
func dedupeRows(rows [][]any) ([][]any, int) {
	index := make(map[any]int, len(rows))
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		if i, ok := index[row[0]]; ok {
			out[i] = row
			continue
		}
		index[row[0]] = len(out)
		out = append(out, row)
	}
	return out, len(rows) - len(out)
}

func (b *batchUpserter) upsert(ctx context.Context, rows [][]any) (inserted, updated int, err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	args := make([]any, 0, len(rows)*len(b.spec.Columns))
	for _, row := range rows {
		args = append(args, row...)
	}

	res, err := tx.QueryContext(ctx, b.upsertSQL(len(rows)), args...)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert %s: %w", b.spec.Table, err)
	}
	for res.Next() {
		var wasInsert bool
		if err := res.Scan(&wasInsert); err != nil {
			res.Close()
			return 0, 0, fmt.Errorf("scan upsert result: %w", err)
		}
		if wasInsert {
			inserted++
		} else {
			updated++
		}
	}
	if err := res.Err(); err != nil {
		res.Close()
		return 0, 0, fmt.Errorf("upsert %s: %w", b.spec.Table, err)
	}
	res.Close()

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, updated, nil
}

// upsertSQL builds the multi-row upsert statement for n rows.
func (b *batchUpserter) upsertSQL(n int) string {
	cols := b.spec.Columns

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", b.spec.Table, strings.Join(cols, ", "))
	arg := 1
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", arg)
			arg++
		}
		sb.WriteByte(')')
	}
	sb.WriteString(" ON CONFLICT (id, data_date) DO UPDATE SET ")
	for i, col := range b.spec.UpdateColumns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = EXCLUDED.%s", col, col)
	}
	sb.WriteString(" RETURNING (xmax = 0)")
	return sb.String()
}
