package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/edinet-screener/internal/company"
	"github.com/sells-group/edinet-screener/internal/db"
	"github.com/sells-group/edinet-screener/internal/model"
	"github.com/sells-group/edinet-screener/internal/screening"
)

// sqliteBatchRows bounds multi-row inserts below SQLite's variable limit.
const sqliteBatchRows = 500

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	edinet_code   TEXT PRIMARY KEY,
	ticker        TEXT,
	company_name  TEXT NOT NULL,
	consolidation TEXT NOT NULL DEFAULT 'UNKNOWN',
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS filings (
	doc_id              TEXT PRIMARY KEY,
	edinet_code         TEXT NOT NULL REFERENCES companies(edinet_code),
	parent_doc_id       TEXT,
	doc_type_code       TEXT NOT NULL,
	submit_datetime     TEXT NOT NULL,
	period_start        TEXT,
	period_end          TEXT NOT NULL,
	csv_flag            INTEGER NOT NULL DEFAULT 0,
	ordinance_code      TEXT,
	form_code           TEXT,
	accounting_standard TEXT,
	consolidated_flag   TEXT NOT NULL,
	edinet_url          TEXT
);

CREATE TABLE IF NOT EXISTS financial_snapshots (
	doc_id               TEXT PRIMARY KEY REFERENCES filings(doc_id),
	current_assets       INTEGER,
	total_liabilities    INTEGER,
	operating_cash_flow  INTEGER,
	inventory            INTEGER,
	accounts_receivable  INTEGER,
	total_shares         INTEGER,
	net_income           INTEGER,
	cash_and_equivalents INTEGER,
	net_sales            INTEGER,
	operating_income     INTEGER,
	total_assets         INTEGER,
	net_assets           INTEGER,
	current_liabilities  INTEGER,
	debt                 INTEGER,
	unit_multiplier      INTEGER NOT NULL DEFAULT 1,
	source_quality_flags TEXT,
	provenance           TEXT,
	extracted_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS company_screening (
	edinet_code            TEXT PRIMARY KEY REFERENCES companies(edinet_code),
	latest_doc_id          TEXT,
	latest_submit_datetime TEXT,
	latest_period_end      TEXT,
	ncav                   INTEGER,
	ncav_per_share         REAL,
	is_cf_increasing       INTEGER,
	is_inventory_warning   INTEGER,
	is_receivable_warning  INTEGER,
	alert_flags            TEXT,
	checked_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	options    TEXT NOT NULL,
	stats      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS index_cache (
	date       TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_filings_edinet_code ON filings(edinet_code);
CREATE INDEX IF NOT EXISTS idx_filings_submit ON filings(edinet_code, submit_datetime DESC);
CREATE INDEX IF NOT EXISTS idx_screening_ncav ON company_screening(ncav);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, opts model.RunOptions) (*model.Run, error) {
	id := uuid.New().String()
	now := s.now().UTC()

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run options")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, options, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), string(optsJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, stats model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stats = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(statsJSON), string(stats.Status()), s.now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, options, stats, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, options, stats, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveCompanies(ctx context.Context, companies []company.Company) (int64, error) {
	if len(companies) == 0 {
		return 0, nil
	}
	now := s.now().UTC()
	rows := make([][]any, len(companies))
	for i, c := range companies {
		rows[i] = companyRow(c, now)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var total int64
	for start := 0; start < len(rows); start += sqliteBatchRows {
		end := min(start+sqliteBatchRows, len(rows))
		n, err := s.upsert(ctx, tx, companiesTable, rows[start:end])
		if err != nil {
			return 0, err
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit companies")
	}
	return total, nil
}

func (s *SQLiteStore) SaveResult(ctx context.Context, res *screening.Result) error {
	tables, err := resultRows(res, s.now().UTC())
	if err != nil {
		return eris.Wrapf(err, "sqlite: save result %s", res.Company.EDINETCode)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range tables {
		if _, err := s.upsert(ctx, tx, t.cfg, t.rows); err != nil {
			return eris.Wrapf(err, "sqlite: save result %s", res.Company.EDINETCode)
		}
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit result %s", res.Company.EDINETCode)
}

func (s *SQLiteStore) upsert(ctx context.Context, tx *sql.Tx, cfg db.UpsertConfig, rows [][]any) (int64, error) {
	query, err := db.UpsertSQL(cfg, len(rows), db.Question)
	if err != nil {
		return 0, err
	}
	args := make([]any, 0, len(rows)*len(cfg.Columns))
	for _, row := range rows {
		args = append(args, row...)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert into %s", cfg.Table)
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ListReport(ctx context.Context, filter model.ReportFilter) ([]model.ReportRow, error) {
	query, args := reportQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list report")
	}
	defer rows.Close()

	var out []model.ReportRow
	for rows.Next() {
		r, err := scanReportRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report row")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list report iterate")
}

func (s *SQLiteStore) GetReport(ctx context.Context, edinetCode string) (*model.ReportRow, error) {
	row := s.db.QueryRowContext(ctx, reportSelect+` WHERE s.edinet_code = ?`, edinetCode)
	r, err := scanReportRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: report %s", edinetCode)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", edinetCode)
	}
	return r, nil
}

func (s *SQLiteStore) ListFilings(ctx context.Context, edinetCode string) ([]screening.FilingRecord, error) {
	rows, err := s.db.QueryContext(ctx, filingSelect, edinetCode)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list filings %s", edinetCode)
	}
	defer rows.Close()

	var out []screening.FilingRecord
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan filing")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list filings iterate")
}

func (s *SQLiteStore) GetCachedIndex(ctx context.Context, date string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM index_cache WHERE date = ?`, date).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: get cached index %s", date)
	}
	return body, true, nil
}

func (s *SQLiteStore) SetCachedIndex(ctx context.Context, date string, body []byte) error {
	query, err := db.UpsertSQL(indexCacheTable, 1, db.Question)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, date, body, s.now().UTC())
	return eris.Wrapf(err, "sqlite: set cached index %s", date)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status, optsJSON string
	var statsJSON sql.NullString

	err := row.Scan(&r.ID, &status, &optsJSON, &statsJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)

	if err := json.Unmarshal([]byte(optsJSON), &r.Options); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run options")
	}
	if statsJSON.Valid {
		r.Stats = &model.RunStats{}
		if err := json.Unmarshal([]byte(statsJSON.String), r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run stats")
		}
	}
	return &r, nil
}
