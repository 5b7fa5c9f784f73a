package store

import (
	"time"

	"github.com/sells-group/edinet-screener/internal/company"
	"github.com/sells-group/edinet-screener/internal/db"
	"github.com/sells-group/edinet-screener/internal/screening"
)

var companiesTable = db.UpsertConfig{
	Table:        "companies",
	Columns:      []string{"edinet_code", "ticker", "company_name", "consolidation", "updated_at"},
	ConflictKeys: []string{"edinet_code"},
}

var filingsTable = db.UpsertConfig{
	Table: "filings",
	Columns: []string{
		"doc_id", "edinet_code", "parent_doc_id", "doc_type_code", "submit_datetime",
		"period_start", "period_end", "csv_flag", "ordinance_code", "form_code",
		"accounting_standard", "consolidated_flag", "edinet_url",
	},
	ConflictKeys: []string{"doc_id"},
}

var snapshotsTable = db.UpsertConfig{
	Table: "financial_snapshots",
	Columns: []string{
		"doc_id", "current_assets", "total_liabilities", "operating_cash_flow",
		"inventory", "accounts_receivable", "total_shares", "net_income",
		"cash_and_equivalents", "net_sales", "operating_income", "total_assets",
		"net_assets", "current_liabilities", "debt", "unit_multiplier",
		"source_quality_flags", "provenance", "extracted_at",
	},
	ConflictKeys: []string{"doc_id"},
}

var screeningTable = db.UpsertConfig{
	Table: "company_screening",
	Columns: []string{
		"edinet_code", "latest_doc_id", "latest_submit_datetime", "latest_period_end",
		"ncav", "ncav_per_share", "is_cf_increasing", "is_inventory_warning",
		"is_receivable_warning", "alert_flags", "checked_at",
	},
	ConflictKeys: []string{"edinet_code"},
}

var indexCacheTable = db.UpsertConfig{
	Table:        "index_cache",
	Columns:      []string{"date", "body", "fetched_at"},
	ConflictKeys: []string{"date"},
}

// nullable dereferences p, mapping nil to SQL NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// nullString maps "" to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func companyRow(c company.Company, now time.Time) []any {
	return []any{c.EDINETCode, nullString(c.Ticker), c.Name, string(c.Consolidation), now}
}

func filingRow(f screening.FilingRecord) []any {
	return []any{
		f.DocID, f.EDINETCode, nullString(f.ParentDocID), f.DocTypeCode, f.SubmitDateTime,
		nullString(f.PeriodStart), f.PeriodEnd, f.CSVFlag, nullString(f.OrdinanceCode), nullString(f.FormCode),
		nullString(f.AccountingStandard), string(f.ConsolidatedFlag), f.EDINETURL,
	}
}

func snapshotRow(s screening.Snapshot) ([]any, error) {
	prov, err := s.ProvenanceJSON()
	if err != nil {
		return nil, err
	}
	return []any{
		s.DocID, nullable(s.CurrentAssets), nullable(s.TotalLiabilities), nullable(s.OperatingCashFlow),
		nullable(s.Inventory), nullable(s.AccountsReceivable), nullable(s.TotalShares), nullable(s.NetIncome),
		nullable(s.Cash), nullable(s.NetSales), nullable(s.OperatingIncome), nullable(s.TotalAssets),
		nullable(s.NetAssets), nullable(s.CurrentLiabilities), nullable(s.Debt), s.UnitMultiplier,
		nullString(s.Flags()), nullString(prov), s.ExtractedAt,
	}, nil
}

func screeningRow(s screening.Screening) []any {
	return []any{
		s.EDINETCode, s.LatestDocID, s.LatestSubmitDateTime, s.LatestPeriodEnd,
		nullable(s.NCAV), nullable(s.NCAVPerShare), nullable(s.CFIncreasing), nullable(s.InventoryWarning),
		nullable(s.ReceivableWarning), nullString(s.Alerts()), s.CheckedAt,
	}
}

type tableRows struct {
	cfg  db.UpsertConfig
	rows [][]any
}

// resultRows flattens res into per-table rows in write order. The company
// goes first and the screening row last so foreign keys resolve.
func resultRows(res *screening.Result, now time.Time) ([]tableRows, error) {
	out := []tableRows{
		{cfg: companiesTable, rows: [][]any{companyRow(res.Company, now)}},
	}
	if len(res.Filings) > 0 {
		rows := make([][]any, len(res.Filings))
		for i, f := range res.Filings {
			rows[i] = filingRow(f)
		}
		out = append(out, tableRows{cfg: filingsTable, rows: rows})
	}
	if len(res.Snapshots) > 0 {
		rows := make([][]any, len(res.Snapshots))
		for i, s := range res.Snapshots {
			row, err := snapshotRow(s)
			if err != nil {
				return nil, err
			}
			rows[i] = row
		}
		out = append(out, tableRows{cfg: snapshotsTable, rows: rows})
	}
	out = append(out, tableRows{cfg: screeningTable, rows: [][]any{screeningRow(res.Screening)}})
	return out, nil
}
