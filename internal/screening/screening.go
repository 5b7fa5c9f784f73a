// Package screening turns a company's latest annual reports into filing
// records, financial snapshots and a net-net screening row.
package screening

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/company"
	"github.com/sells-group/edinet-screener/internal/filing"
	"github.com/sells-group/edinet-screener/internal/xbrl"
)

// DocumentSource returns the XBRL instance of a filing.
type DocumentSource interface {
	FetchXBRL(ctx context.Context, docID string) ([]byte, error)
}

// Result is everything persisted for one company.
type Result struct {
	Company   company.Company `json:"company"`
	Filings   []FilingRecord  `json:"filings"`
	Snapshots []Snapshot      `json:"financial_snapshots"`
	Screening Screening       `json:"company_screening"`
}

// FilingRecord is one analyzed annual report.
type FilingRecord struct {
	DocID              string                `json:"doc_id"`
	EDINETCode         string                `json:"edinet_code"`
	ParentDocID        string                `json:"parent_doc_id,omitempty"`
	DocTypeCode        string                `json:"doc_type_code"`
	SubmitDateTime     string                `json:"submit_datetime"`
	PeriodStart        string                `json:"period_start,omitempty"`
	PeriodEnd          string                `json:"period_end"`
	CSVFlag            int                   `json:"csv_flag"`
	OrdinanceCode      string                `json:"ordinance_code,omitempty"`
	FormCode           string                `json:"form_code,omitempty"`
	AccountingStandard string                `json:"accounting_standard,omitempty"`
	ConsolidatedFlag   company.Consolidation `json:"consolidated_flag"`
	EDINETURL          string                `json:"edinet_url"`
}

// Analyzer selects and extracts the annual reports of one company at a time.
// It is safe for concurrent use when Documents is.
type Analyzer struct {
	Index     []filing.IndexRow
	Selector  *filing.Selector
	Documents DocumentSource
	Extractor *xbrl.Extractor

	// Now stamps snapshots and screening rows. Defaults to time.Now.
	Now func() time.Time
}

// NewAnalyzer returns an Analyzer over a prebuilt document index.
func NewAnalyzer(index []filing.IndexRow, selector *filing.Selector, docs DocumentSource, extractor *xbrl.Extractor) *Analyzer {
	return &Analyzer{
		Index:     index,
		Selector:  selector,
		Documents: docs,
		Extractor: extractor,
		Now:       time.Now,
	}
}

// details is the extraction outcome of one filing. Record is nil when the
// instance could not be fetched or parsed.
type details struct {
	sel    filing.Selected
	record *xbrl.Record
}

// Analyze processes the selected reports of c, newest first. It returns nil
// without error when the index holds no eligible report for c. A report that
// cannot be fetched or parsed still yields a filing record and an empty
// snapshot; only context cancellation aborts the company.
func (a *Analyzer) Analyze(ctx context.Context, c company.Company) (*Result, error) {
	log := zap.L().With(zap.String("edinet_code", c.EDINETCode))

	selected := a.Selector.Select(a.Index, c.EDINETCode)
	if len(selected) == 0 {
		log.Debug("screening: no eligible annual report")
		return nil, nil
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	processed := make([]details, 0, len(selected))
	for i, sel := range selected {
		log.Info("screening: processing report",
			zap.Int("rank", i+1),
			zap.String("doc_id", sel.DocID),
			zap.String("period_end", sel.Period),
		)
		d, err := a.extract(ctx, sel, c.Consolidation.Required(), log)
		if err != nil {
			return nil, err
		}
		processed = append(processed, d)
	}

	res := &Result{Company: c}
	for _, d := range processed {
		res.Filings = append(res.Filings, filingRecord(c, d))
		res.Snapshots = append(res.Snapshots, newSnapshot(d, now()))
	}
	res.Screening = Screen(c.EDINETCode, res.Filings, res.Snapshots, now())
	return res, nil
}

func (a *Analyzer) extract(ctx context.Context, sel filing.Selected, consolidated bool, log *zap.Logger) (details, error) {
	d := details{sel: sel}

	data, err := a.Documents.FetchXBRL(ctx, sel.DocID)
	if err != nil {
		if ctx.Err() != nil {
			return d, eris.Wrapf(ctx.Err(), "screening: fetch %s", sel.DocID)
		}
		log.Warn("screening: fetch failed, recording filing without figures",
			zap.String("doc_id", sel.DocID), zap.Error(err))
		return d, nil
	}

	doc, err := xbrl.ParseDocumentBytes(data)
	if err != nil {
		log.Warn("screening: parse failed, recording filing without figures",
			zap.String("doc_id", sel.DocID), zap.Error(err))
		return d, nil
	}

	rec := a.Extractor.Targeted(doc, sel.Period, consolidated)
	d.record = &rec
	log.Debug("screening: extracted",
		zap.String("doc_id", sel.DocID),
		zap.Int("concepts", len(rec.Facts)),
		zap.String("accounting_standard", rec.AccountingStandard),
	)
	return d, nil
}

func filingRecord(c company.Company, d details) FilingRecord {
	sel := d.sel
	rec := FilingRecord{
		DocID:            sel.DocID,
		EDINETCode:       c.EDINETCode,
		ParentDocID:      sel.ParentDocID,
		DocTypeCode:      sel.DocTypeCode,
		SubmitDateTime:   submitString(sel),
		PeriodStart:      sel.PeriodStart,
		PeriodEnd:        sel.Period,
		CSVFlag:          sel.CSVFlagInt(),
		OrdinanceCode:    sel.OrdinanceCode,
		FormCode:         sel.FormCode,
		ConsolidatedFlag: c.Consolidation,
		EDINETURL:        filing.ViewerURL(sel.DocID),
	}
	if d.record != nil {
		rec.AccountingStandard = d.record.AccountingStandard
	}
	return rec
}

func submitString(sel filing.Selected) string {
	if sel.Submitted.IsZero() {
		return sel.SubmitDateTime
	}
	return sel.Submitted.Format("2006-01-02T15:04:05")
}
