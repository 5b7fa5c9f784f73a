// Package company loads the EDINET code master and the target lists naming
// which filers to analyze.
package company

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"

	"github.com/sells-group/edinet-screener/internal/fetcher"
)

// Consolidation is whether a filer prepares consolidated statements.
type Consolidation string

// Consolidation values recorded on filings.
const (
	Consolidated    Consolidation = "CONSOLIDATED"
	NonConsolidated Consolidation = "NON_CONSOLIDATED"
	Unknown         Consolidation = "UNKNOWN"
)

// ParseConsolidation maps the master's 連結の有無 column.
func ParseConsolidation(s string) Consolidation {
	switch strings.TrimSpace(s) {
	case "有":
		return Consolidated
	case "無":
		return NonConsolidated
	default:
		return Unknown
	}
}

// Required reports whether consolidated figures should be extracted. Filers
// of unknown status are treated as consolidated.
func (c Consolidation) Required() bool {
	return c != NonConsolidated
}

// Company is one filer from the EDINET code master.
type Company struct {
	EDINETCode    string        `json:"edinet_code"`
	Ticker        string        `json:"ticker,omitempty"`
	Name          string        `json:"company_name"`
	Consolidation Consolidation `json:"consolidation"`
}

// Master column headers.
const (
	ColEDINETCode    = "ＥＤＩＮＥＴコード"
	ColConsolidation = "連結の有無"
	ColSecCode       = "証券コード"
	ColFilerName     = "提出者名"
)

// Master is the EDINET code list keyed by EDINET code.
type Master map[string]Company

// LoadMasterFile reads EdinetcodeDlInfo.csv from path.
func LoadMasterFile(ctx context.Context, path string) (Master, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "company: open master %s", path)
	}
	defer f.Close() //nolint:errcheck

	return LoadMaster(ctx, f)
}

// LoadMaster parses the EDINET code list. The file is CP932 encoded and its
// first line is download metadata preceding the header row.
func LoadMaster(ctx context.Context, r io.Reader) (Master, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Encoding:   japanese.ShiftJIS,
		SkipLines:  1,
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	var cols map[string]int
	master := make(Master)
	for row := range rowCh {
		if cols == nil {
			var err error
			if cols, err = masterColumns(<-headerCh); err != nil {
				drain(rowCh)
				return nil, err
			}
		}

		code := field(row, cols[ColEDINETCode])
		if code == "" {
			continue
		}
		master[code] = Company{
			EDINETCode:    code,
			Ticker:        tickerFromSecCode(field(row, cols[ColSecCode])),
			Name:          field(row, cols[ColFilerName]),
			Consolidation: ParseConsolidation(field(row, cols[ColConsolidation])),
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "company: read master")
	}
	if cols == nil {
		select {
		case header := <-headerCh:
			if _, err := masterColumns(header); err != nil {
				return nil, err
			}
		default:
			return nil, eris.New("company: master has no header row")
		}
	}

	zap.L().Debug("company: master loaded", zap.Int("companies", len(master)))
	return master, nil
}

func masterColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, want := range []string{ColEDINETCode, ColConsolidation, ColSecCode, ColFilerName} {
		if _, ok := cols[want]; !ok {
			return nil, eris.Errorf("company: master is missing column %q", want)
		}
	}
	return cols, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// tickerFromSecCode drops the trailing check digit of a five-digit
// securities code.
func tickerFromSecCode(s string) string {
	if s == "" {
		return ""
	}
	return s[:len(s)-1]
}

func drain[T any](ch <-chan T) {
	for range ch {
	}
}
