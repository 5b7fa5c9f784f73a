// Package export writes the flat comparison report as CSV or XLSX.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/edinet-screener/internal/model"
)

// Formats accepted by WriteFile.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// SheetName is the worksheet the XLSX report is written to.
const SheetName = "screening"

// utf8BOM lets spreadsheet applications detect UTF-8 company names.
const utf8BOM = "\ufeff"

type kind int

const (
	kindText kind = iota
	kindInt
	kindFloat
	kindBool
)

// cell is one report value before it is rendered.
type cell struct {
	kind kind
	text string
	i    *int64
	f    *float64
	b    *bool
}

func (c cell) String() string {
	switch c.kind {
	case kindInt:
		if c.i != nil {
			return strconv.FormatInt(*c.i, 10)
		}
	case kindFloat:
		if c.f != nil {
			return strconv.FormatFloat(*c.f, 'f', 2, 64)
		}
	case kindBool:
		if c.b != nil {
			return strconv.FormatBool(*c.b)
		}
	default:
		return c.text
	}
	return ""
}

func text(s string) cell { return cell{kind: kindText, text: s} }
func integer(v *int64) cell { return cell{kind: kindInt, i: v} }
func float(v *float64) cell { return cell{kind: kindFloat, f: v} }
func boolean(v *bool) cell { return cell{kind: kindBool, b: v} }
func timestamp(t time.Time) cell {
	if t.IsZero() {
		return text("")
	}
	return text(t.UTC().Format(time.RFC3339))
}

type column struct {
	header string
	value  func(r *model.ReportRow) cell
}

var columns = []column{
	{"edinet_code", func(r *model.ReportRow) cell { return text(r.EDINETCode) }},
	{"ticker", func(r *model.ReportRow) cell { return text(r.Ticker) }},
	{"company_name", func(r *model.ReportRow) cell { return text(r.CompanyName) }},
	{"latest_doc_id", func(r *model.ReportRow) cell { return text(r.LatestDocID) }},
	{"latest_period_end", func(r *model.ReportRow) cell { return text(r.LatestPeriodEnd) }},
	{"latest_submit_datetime", func(r *model.ReportRow) cell { return text(r.LatestSubmitDateTime) }},
	{"accounting_standard", func(r *model.ReportRow) cell { return text(r.AccountingStandard) }},
	{"consolidated_flag", func(r *model.ReportRow) cell { return text(r.ConsolidatedFlag) }},
	{"ncav", func(r *model.ReportRow) cell { return integer(r.NCAV) }},
	{"ncav_per_share", func(r *model.ReportRow) cell { return float(r.NCAVPerShare) }},
	{"current_assets", func(r *model.ReportRow) cell { return integer(r.CurrentAssets) }},
	{"total_liabilities", func(r *model.ReportRow) cell { return integer(r.TotalLiabilities) }},
	{"operating_cash_flow", func(r *model.ReportRow) cell { return integer(r.OperatingCashFlow) }},
	{"inventory", func(r *model.ReportRow) cell { return integer(r.Inventory) }},
	{"accounts_receivable", func(r *model.ReportRow) cell { return integer(r.AccountsReceivable) }},
	{"total_shares", func(r *model.ReportRow) cell { return integer(r.TotalShares) }},
	{"net_income", func(r *model.ReportRow) cell { return integer(r.NetIncome) }},
	{"cash_and_equivalents", func(r *model.ReportRow) cell { return integer(r.Cash) }},
	{"net_sales", func(r *model.ReportRow) cell { return integer(r.NetSales) }},
	{"operating_income", func(r *model.ReportRow) cell { return integer(r.OperatingIncome) }},
	{"total_assets", func(r *model.ReportRow) cell { return integer(r.TotalAssets) }},
	{"net_assets", func(r *model.ReportRow) cell { return integer(r.NetAssets) }},
	{"current_liabilities", func(r *model.ReportRow) cell { return integer(r.CurrentLiabilities) }},
	{"debt", func(r *model.ReportRow) cell { return integer(r.Debt) }},
	{"is_cf_increasing", func(r *model.ReportRow) cell { return boolean(r.CFIncreasing) }},
	{"is_inventory_warning", func(r *model.ReportRow) cell { return boolean(r.InventoryWarning) }},
	{"is_receivable_warning", func(r *model.ReportRow) cell { return boolean(r.ReceivableWarning) }},
	{"alert_flags", func(r *model.ReportRow) cell { return text(r.AlertFlags) }},
	{"source_quality_flags", func(r *model.ReportRow) cell { return text(r.QualityFlags) }},
	{"edinet_url", func(r *model.ReportRow) cell { return text(r.EDINETURL) }},
	{"checked_at", func(r *model.ReportRow) cell { return timestamp(r.CheckedAt) }},
}

// Header returns the report column names in output order.
func Header() []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = c.header
	}
	return h
}

// WriteFile writes rows to path in format, creating the parent directory.
func WriteFile(path, format string, rows []model.ReportRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	switch format {
	case FormatXLSX:
		return WriteXLSX(path, rows)
	case FormatCSV, "":
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}
		if err := WriteCSV(f, rows); err != nil {
			f.Close()
			return err
		}
		return eris.Wrapf(f.Close(), "export: close %s", path)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteCSV writes rows as UTF-8 CSV with a byte order mark and a header row.
// Missing values are empty.
func WriteCSV(w io.Writer, rows []model.ReportRow) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return eris.Wrap(err, "export: write bom")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	record := make([]string, len(columns))
	for i := range rows {
		for j, c := range columns {
			record[j] = c.value(&rows[i]).String()
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "export: write row %s", rows[i].EDINETCode)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX saves rows to a workbook at path. Figures are written as numeric
// cells and missing values as blank cells.
func WriteXLSX(path string, rows []model.ReportRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header() {
		header.AddCell().SetString(h)
	}
	for i := range rows {
		row := sheet.AddRow()
		for _, c := range columns {
			setCell(row.AddCell(), c.value(&rows[i]))
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func setCell(xc *xlsx.Cell, c cell) {
	switch {
	case c.kind == kindInt && c.i != nil:
		xc.SetInt64(*c.i)
	case c.kind == kindFloat && c.f != nil:
		xc.SetFloat(*c.f)
	case c.kind == kindBool && c.b != nil:
		xc.SetBool(*c.b)
	default:
		xc.SetString(c.String())
	}
}
