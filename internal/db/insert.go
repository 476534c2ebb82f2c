package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// InsertConfig defines the parameters for a multi-row insert.
type InsertConfig struct {
	Table        string   // target table
	Columns      []string // columns being inserted
	ConflictKeys []string // unique-constraint columns; conflicts are skipped
}

// BulkInsert inserts rows in a single statement and skips rows that
// conflict on the configured keys. Returns the number of rows inserted.
func BulkInsert(ctx context.Context, pool Pool, cfg InsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: insert: no columns specified")
	}
	for i, row := range rows {
		if len(row) != len(cfg.Columns) {
			return 0, eris.Errorf("db: insert: row %d has %d values, want %d", i, len(row), len(cfg.Columns))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", cfg.Table, strings.Join(cfg.Columns, ", "))

	args := make([]any, 0, len(rows)*len(cfg.Columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range cfg.Columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", len(args)+1)
			args = append(args, row[j])
		}
		sb.WriteByte(')')
	}

	if len(cfg.ConflictKeys) > 0 {
		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO NOTHING", strings.Join(cfg.ConflictKeys, ", "))
	}

	tag, err := pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: insert into %s", cfg.Table)
	}
	return tag.RowsAffected(), nil
}
