package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// upsertBatchSize bounds the rows in one INSERT statement to keep individual
// store requests small.
const upsertBatchSize = 50

// buildInsertQuery renders a multi-row INSERT for n rows with the given
// conflict target. When ignore is true conflicting rows are left untouched;
// otherwise every non-key column is overwritten from the incoming row.
func buildInsertQuery(table string, cols, conflictCols []string, n int, ignore bool) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")

	for row := 0; row < n; row++ {
		if row > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for col := 0; col < len(cols); col++ {
			if col > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", row*len(cols)+col+1)
		}
		sb.WriteByte(')')
	}

	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(strings.Join(conflictCols, ", "))
	sb.WriteString(")")

	if ignore {
		sb.WriteString(" DO NOTHING")
		return sb.String()
	}

	sb.WriteString(" DO UPDATE SET ")
	key := make(map[string]bool, len(conflictCols))
	for _, c := range conflictCols {
		key[c] = true
	}
	first := true
	for _, c := range cols {
		if key[c] {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = EXCLUDED.%s", c, c)
		first = false
	}
	sb.WriteString(", updated_at = now()")
	return sb.String()
}

// insertIgnore writes rows in batches with insert-or-ignore semantics, so
// resubmitting an identical batch is a no-op. A failed batch is logged and
// the remaining batches still run; the joined error reports every failure.
// Returns the number of rows actually inserted.
func (db *DB) insertIgnore(ctx context.Context, table string, cols, conflictCols []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var inserted int64
	var errs []error

	for start := 0; start < len(rows); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(cols))
		for _, row := range chunk {
			args = append(args, row...)
		}

		tag, err := db.Pool.Exec(ctx, buildInsertQuery(table, cols, conflictCols, len(chunk), true), args...)
		if err != nil {
			db.log.Warn("batch insert failed", "table", table, "rows", len(chunk), "error", err)
			errs = append(errs, fmt.Errorf("%s batch [%d:%d]: %w", table, start, end, err))
			continue
		}
		inserted += tag.RowsAffected()
	}

	return inserted, errors.Join(errs...)
}
