// Package store persists screening results, runs and the document index
// cache in SQLite or Postgres.
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edinet-screener/internal/company"
	"github.com/sells-group/edinet-screener/internal/model"
	"github.com/sells-group/edinet-screener/internal/screening"
)

// ErrNotFound is returned when a run or report row does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the screening batch.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, opts model.RunOptions) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats model.RunStats) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Screening results
	SaveCompanies(ctx context.Context, companies []company.Company) (int64, error)
	SaveResult(ctx context.Context, res *screening.Result) error
	ListReport(ctx context.Context, filter model.ReportFilter) ([]model.ReportRow, error)
	GetReport(ctx context.Context, edinetCode string) (*model.ReportRow, error)
	ListFilings(ctx context.Context, edinetCode string) ([]screening.FilingRecord, error)

	// Document index cache
	GetCachedIndex(ctx context.Context, date string) ([]byte, bool, error)
	SetCachedIndex(ctx context.Context, date string, body []byte) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. dsn is a file path for SQLite and a
// connection string for Postgres.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLite(dsn)
	case DriverPostgres:
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// reportSelect joins the screening row with its company, latest filing and
// latest snapshot. Columns match scanReportRow.
const reportSelect = `SELECT c.edinet_code, COALESCE(c.ticker, ''), c.company_name,
	s.latest_doc_id, COALESCE(s.latest_period_end, ''), COALESCE(s.latest_submit_datetime, ''),
	COALESCE(f.accounting_standard, ''), COALESCE(f.consolidated_flag, ''),
	s.ncav, s.ncav_per_share,
	fs.current_assets, fs.total_liabilities, fs.operating_cash_flow, fs.inventory,
	fs.accounts_receivable, fs.total_shares, fs.net_income, fs.cash_and_equivalents,
	fs.net_sales, fs.operating_income, fs.total_assets, fs.net_assets,
	fs.current_liabilities, fs.debt,
	s.is_cf_increasing, s.is_inventory_warning, s.is_receivable_warning,
	COALESCE(s.alert_flags, ''), COALESCE(fs.source_quality_flags, ''), COALESCE(f.edinet_url, ''),
	s.checked_at
FROM company_screening s
JOIN companies c ON c.edinet_code = s.edinet_code
LEFT JOIN filings f ON f.doc_id = s.latest_doc_id
LEFT JOIN financial_snapshots fs ON fs.doc_id = s.latest_doc_id`

const filingSelect = `SELECT doc_id, edinet_code, COALESCE(parent_doc_id, ''), doc_type_code,
	submit_datetime, COALESCE(period_start, ''), period_end, csv_flag,
	COALESCE(ordinance_code, ''), COALESCE(form_code, ''), COALESCE(accounting_standard, ''),
	consolidated_flag, COALESCE(edinet_url, '')
FROM filings WHERE edinet_code = ? ORDER BY submit_datetime DESC`

// reportQuery builds the listing query with "?" placeholders.
func reportQuery(filter model.ReportFilter) (string, []any) {
	query := reportSelect + ` WHERE 1=1`
	var args []any
	if filter.NetNetOnly {
		query += ` AND s.ncav > 0`
	}
	query += ` ORDER BY c.edinet_code`

	limit := filter.Limit
	if limit <= 0 {
		limit = 10000
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}
	return query, args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanReportRow(row scannable) (*model.ReportRow, error) {
	var r model.ReportRow
	err := row.Scan(
		&r.EDINETCode, &r.Ticker, &r.CompanyName,
		&r.LatestDocID, &r.LatestPeriodEnd, &r.LatestSubmitDateTime,
		&r.AccountingStandard, &r.ConsolidatedFlag,
		&r.NCAV, &r.NCAVPerShare,
		&r.CurrentAssets, &r.TotalLiabilities, &r.OperatingCashFlow, &r.Inventory,
		&r.AccountsReceivable, &r.TotalShares, &r.NetIncome, &r.Cash,
		&r.NetSales, &r.OperatingIncome, &r.TotalAssets, &r.NetAssets,
		&r.CurrentLiabilities, &r.Debt,
		&r.CFIncreasing, &r.InventoryWarning, &r.ReceivableWarning,
		&r.AlertFlags, &r.QualityFlags, &r.EDINETURL,
		&r.CheckedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanFiling(row scannable) (screening.FilingRecord, error) {
	var f screening.FilingRecord
	var consolidation string
	err := row.Scan(
		&f.DocID, &f.EDINETCode, &f.ParentDocID, &f.DocTypeCode,
		&f.SubmitDateTime, &f.PeriodStart, &f.PeriodEnd, &f.CSVFlag,
		&f.OrdinanceCode, &f.FormCode, &f.AccountingStandard,
		&consolidation, &f.EDINETURL,
	)
	f.ConsolidatedFlag = company.Consolidation(consolidation)
	return f, err
}

// rebind rewrites "?" placeholders as $1, $2, ... for Postgres.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
