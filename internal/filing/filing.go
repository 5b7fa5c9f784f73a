// Package filing models EDINET document-index rows and selects the annual
// securities reports to analyze for a company.
package filing

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Document type codes for annual securities reports.
const (
	DocTypeAnnualReport    = "120"
	DocTypeAnnualCorrected = "130"
)

// SubmitTimeLayout is the format of submitDateTime in the EDINET index.
const SubmitTimeLayout = "2006-01-02 15:04"

// Flag is a status flag from the document index. EDINET returns these as
// strings ("0", "1") but some responses carry bare numbers or null.
type Flag string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "filing: decode flag")
		}
		*f = Flag(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return eris.Wrapf(err, "filing: decode flag %s", string(data))
	}
	*f = Flag(n.String())
	return nil
}

// IndexRow is one result of the EDINET documents.json endpoint.
type IndexRow struct {
	SeqNumber         int    `json:"seqNumber"`
	DocID             string `json:"docID"`
	EDINETCode        string `json:"edinetCode"`
	SecCode           string `json:"secCode"`
	JCN               string `json:"JCN"`
	FilerName         string `json:"filerName"`
	FundCode          string `json:"fundCode"`
	OrdinanceCode     string `json:"ordinanceCode"`
	FormCode          string `json:"formCode"`
	DocTypeCode       string `json:"docTypeCode"`
	PeriodStart       string `json:"periodStart"`
	PeriodEnd         string `json:"periodEnd"`
	SubmitDateTime    string `json:"submitDateTime"`
	DocDescription    string `json:"docDescription"`
	ParentDocID       string `json:"parentDocID"`
	WithdrawalStatus  Flag   `json:"withdrawalStatus"`
	DocInfoEditStatus Flag   `json:"docInfoEditStatus"`
	DisclosureStatus  Flag   `json:"disclosureStatus"`
	XBRLFlag          Flag   `json:"xbrlFlag"`
	PDFFlag           Flag   `json:"pdfFlag"`
	CSVFlag           Flag   `json:"csvFlag"`
	LegalStatus       Flag   `json:"legalStatus"`
}

// SubmittedAt parses SubmitDateTime. EDINET uses "2006-01-02 15:04"; RFC 3339
// is accepted for cached or hand-built indexes.
func (r IndexRow) SubmittedAt() (time.Time, bool) {
	s := strings.TrimSpace(r.SubmitDateTime)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{SubmitTimeLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PeriodEndDate returns PeriodEnd normalized to YYYY-MM-DD, or false when it
// is empty or not a date.
func (r IndexRow) PeriodEndDate() (string, bool) {
	s := strings.TrimSpace(r.PeriodEnd)
	if s == "" {
		return "", false
	}
	for _, layout := range []string{time.DateOnly, "2006/01/02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

// CSVFlagInt returns the csvFlag as an integer, zero when absent.
func (r IndexRow) CSVFlagInt() int {
	n, err := strconv.Atoi(string(r.CSVFlag))
	if err != nil {
		return 0
	}
	return n
}

// ViewerURL links to the filing on the EDINET disclosure viewer.
func ViewerURL(docID string) string {
	if len(docID) <= 4 {
		return ""
	}
	return "https://disclosure2.edinet-fsa.go.jp/WZEK0040.aspx?S100" + docID[4:]
}
