package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edinet-screener/internal/company"
	"github.com/sells-group/edinet-screener/internal/db"
	"github.com/sells-group/edinet-screener/internal/model"
	"github.com/sells-group/edinet-screener/internal/screening"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection. pgx matches a
// query string equal to a statement name to the prepared statement.
var preparedStatements = map[string]string{
	"get_cached_index": `SELECT body FROM index_cache WHERE date = $1`,
	"get_run":          `SELECT id, status, options, stats, created_at, updated_at FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	edinet_code   TEXT PRIMARY KEY,
	ticker        TEXT,
	company_name  TEXT NOT NULL,
	consolidation TEXT NOT NULL DEFAULT 'UNKNOWN',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
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
	current_assets       BIGINT,
	total_liabilities    BIGINT,
	operating_cash_flow  BIGINT,
	inventory            BIGINT,
	accounts_receivable  BIGINT,
	total_shares         BIGINT,
	net_income           BIGINT,
	cash_and_equivalents BIGINT,
	net_sales            BIGINT,
	operating_income     BIGINT,
	total_assets         BIGINT,
	net_assets           BIGINT,
	current_liabilities  BIGINT,
	debt                 BIGINT,
	unit_multiplier      INTEGER NOT NULL DEFAULT 1,
	source_quality_flags TEXT,
	provenance           JSONB,
	extracted_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_screening (
	edinet_code            TEXT PRIMARY KEY REFERENCES companies(edinet_code),
	latest_doc_id          TEXT,
	latest_submit_datetime TEXT,
	latest_period_end      TEXT,
	ncav                   BIGINT,
	ncav_per_share         DOUBLE PRECISION,
	is_cf_increasing       BOOLEAN,
	is_inventory_warning   BOOLEAN,
	is_receivable_warning  BOOLEAN,
	alert_flags            TEXT,
	checked_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status     TEXT NOT NULL DEFAULT 'running',
	options    JSONB NOT NULL,
	stats      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS index_cache (
	date       TEXT PRIMARY KEY,
	body       BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_filings_edinet_code ON filings(edinet_code);
CREATE INDEX IF NOT EXISTS idx_filings_submit ON filings(edinet_code, submit_datetime DESC);
CREATE INDEX IF NOT EXISTS idx_screening_ncav ON company_screening(ncav);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, opts model.RunOptions) (*model.Run, error) {
	id := uuid.New().String()
	now := s.now().UTC()

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run options")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, options, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(model.RunStatusRunning), optsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, stats model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stats = $1, status = $2, updated_at = $3 WHERE id = $4`,
		statsJSON, string(stats.Status()), s.now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, "get_run", runID)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, options, stats, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var optsJSON, statsJSON []byte

	if err := row.Scan(&r.ID, &status, &optsJSON, &statsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)

	if err := json.Unmarshal(optsJSON, &r.Options); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run options")
	}
	if statsJSON != nil {
		r.Stats = &model.RunStats{}
		if err := json.Unmarshal(statsJSON, r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run stats")
		}
	}
	return &r, nil
}

// SaveCompanies bulk-loads the company master through a COPY into a temp table.
func (s *PostgresStore) SaveCompanies(ctx context.Context, companies []company.Company) (int64, error) {
	now := s.now().UTC()
	rows := make([][]any, len(companies))
	for i, c := range companies {
		rows[i] = companyRow(c, now)
	}
	n, err := db.BulkUpsert(ctx, s.pool, companiesTable, rows)
	return n, eris.Wrap(err, "postgres: save companies")
}

func (s *PostgresStore) SaveResult(ctx context.Context, res *screening.Result) error {
	tables, err := resultRows(res, s.now().UTC())
	if err != nil {
		return eris.Wrapf(err, "postgres: save result %s", res.Company.EDINETCode)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, t := range tables {
		if _, err := db.Upsert(ctx, tx, t.cfg, t.rows); err != nil {
			return eris.Wrapf(err, "postgres: save result %s", res.Company.EDINETCode)
		}
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit result %s", res.Company.EDINETCode)
}

func (s *PostgresStore) ListReport(ctx context.Context, filter model.ReportFilter) ([]model.ReportRow, error) {
	query, args := reportQuery(filter)
	rows, err := s.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list report")
	}
	defer rows.Close()

	var out []model.ReportRow
	for rows.Next() {
		r, err := scanReportRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan report row")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list report iterate")
}

func (s *PostgresStore) GetReport(ctx context.Context, edinetCode string) (*model.ReportRow, error) {
	row := s.pool.QueryRow(ctx, rebind(reportSelect+` WHERE s.edinet_code = ?`), edinetCode)
	r, err := scanReportRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: report %s", edinetCode)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", edinetCode)
	}
	return r, nil
}

func (s *PostgresStore) ListFilings(ctx context.Context, edinetCode string) ([]screening.FilingRecord, error) {
	rows, err := s.pool.Query(ctx, rebind(filingSelect), edinetCode)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list filings %s", edinetCode)
	}
	defer rows.Close()

	var out []screening.FilingRecord
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan filing")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list filings iterate")
}

func (s *PostgresStore) GetCachedIndex(ctx context.Context, date string) ([]byte, bool, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, "get_cached_index", date).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: get cached index %s", date)
	}
	return body, true, nil
}

func (s *PostgresStore) SetCachedIndex(ctx context.Context, date string, body []byte) error {
	_, err := db.Upsert(ctx, s.pool, indexCacheTable, [][]any{{date, body, s.now().UTC()}})
	return eris.Wrapf(err, "postgres: set cached index %s", date)
}
