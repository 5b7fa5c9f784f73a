package model

import "time"

// ReportRow is one company in the flat comparison report: the company, its
// screening row and the snapshot of its latest filing.
type ReportRow struct {
	EDINETCode           string    `json:"edinet_code"`
	Ticker               string    `json:"ticker,omitempty"`
	CompanyName          string    `json:"company_name"`
	LatestDocID          string    `json:"latest_doc_id"`
	LatestPeriodEnd      string    `json:"latest_period_end"`
	LatestSubmitDateTime string    `json:"latest_submit_datetime"`
	AccountingStandard   string    `json:"accounting_standard,omitempty"`
	ConsolidatedFlag     string    `json:"consolidated_flag,omitempty"`
	NCAV                 *int64    `json:"ncav"`
	NCAVPerShare         *float64  `json:"ncav_per_share"`
	CurrentAssets        *int64    `json:"current_assets"`
	TotalLiabilities     *int64    `json:"total_liabilities"`
	OperatingCashFlow    *int64    `json:"operating_cash_flow"`
	Inventory            *int64    `json:"inventory"`
	AccountsReceivable   *int64    `json:"accounts_receivable"`
	TotalShares          *int64    `json:"total_shares"`
	NetIncome            *int64    `json:"net_income"`
	Cash                 *int64    `json:"cash_and_equivalents"`
	NetSales             *int64    `json:"net_sales"`
	OperatingIncome      *int64    `json:"operating_income"`
	TotalAssets          *int64    `json:"total_assets"`
	NetAssets            *int64    `json:"net_assets"`
	CurrentLiabilities   *int64    `json:"current_liabilities"`
	Debt                 *int64    `json:"debt"`
	CFIncreasing         *bool     `json:"is_cf_increasing"`
	InventoryWarning     *bool     `json:"is_inventory_warning"`
	ReceivableWarning    *bool     `json:"is_receivable_warning"`
	AlertFlags           string    `json:"alert_flags,omitempty"`
	QualityFlags         string    `json:"source_quality_flags,omitempty"`
	EDINETURL            string    `json:"edinet_url,omitempty"`
	CheckedAt            time.Time `json:"checked_at"`
}

// ReportFilter narrows a report listing.
type ReportFilter struct {
	// NetNetOnly keeps companies whose NCAV is positive.
	NetNetOnly bool
	Limit      int
	Offset     int
}
