package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for an upsert.
type UpsertConfig struct {
	Table        string   // target table (e.g., "companies")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// Placeholder renders the bind parameter for the n-th argument (1-based).
type Placeholder func(n int) string

// Dollar numbers parameters the Postgres way ($1, $2, ...).
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question uses SQLite's positional "?" parameters.
func Question(int) string { return "?" }

func (cfg UpsertConfig) validate() error {
	if len(cfg.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

func (cfg UpsertConfig) updateCols() []string {
	if cfg.UpdateCols != nil {
		return cfg.UpdateCols
	}
	conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		conflictSet[k] = true
	}
	var cols []string
	for _, c := range cfg.Columns {
		if !conflictSet[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// conflictClause renders "ON CONFLICT (keys) DO UPDATE SET ..." reading new
// values from EXCLUDED, or DO NOTHING when there is nothing to update.
func (cfg UpsertConfig) conflictClause() string {
	update := cfg.updateCols()
	if len(update) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", quoteAndJoin(cfg.ConflictKeys))
	}
	setClauses := make([]string, len(update))
	for i, col := range update {
		q := pgx.Identifier{col}.Sanitize()
		setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", quoteAndJoin(cfg.ConflictKeys), strings.Join(setClauses, ", "))
}

// UpsertSQL builds a multi-row INSERT ... VALUES ... ON CONFLICT statement
// for nrows rows. The statement is valid for both Postgres and SQLite.
func UpsertSQL(cfg UpsertConfig, nrows int, ph Placeholder) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}
	if nrows <= 0 {
		return "", eris.New("db: upsert: no rows")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", sanitizeTable(cfg.Table), quoteAndJoin(cfg.Columns))
	n := 1
	for r := 0; r < nrows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cfg.Columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ph(n))
			n++
		}
		b.WriteByte(')')
	}
	b.WriteByte(' ')
	b.WriteString(cfg.conflictClause())
	return b.String(), nil
}

// Upsert executes an UpsertSQL statement for rows on ex, which may be a pool
// or a transaction.
func Upsert(ctx context.Context, ex Execer, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sql, err := UpsertSQL(cfg, len(rows), Dollar)
	if err != nil {
		return 0, err
	}
	args := make([]any, 0, len(rows)*len(cfg.Columns))
	for i, row := range rows {
		if len(row) != len(cfg.Columns) {
			return 0, eris.Errorf("db: upsert: row %d has %d values, want %d", i, len(row), len(cfg.Columns))
		}
		args = append(args, row...)
	}
	tag, err := ex.Exec(ctx, sql, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s", cfg.Table)
	}
	return tag.RowsAffected(), nil
}

// BulkUpsert performs a bulk upsert via a temp table and INSERT ... ON CONFLICT.
// 1. Creates a temp table with the same columns
// 2. COPY rows into the temp table
// 3. INSERT INTO target SELECT ... FROM temp ON CONFLICT (keys) DO UPDATE SET ...
// 4. The temp table is dropped on commit
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tempTable := fmt.Sprintf("_tmp_upsert_%s", strings.ReplaceAll(cfg.Table, ".", "_"))

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		sanitizeTable(cfg.Table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	colList := quoteAndJoin(cfg.Columns)
	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s %s",
		sanitizeTable(cfg.Table),
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		cfg.conflictClause(),
	)

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}

	return tag.RowsAffected(), nil
}

// sanitizeTable handles schema-qualified table names like "public.companies".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
