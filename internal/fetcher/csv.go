package fetcher

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter rune // default ','
	// Encoding decodes the input to UTF-8 (e.g. japanese.ShiftJIS for
	// EDINET's CP932 code list). Nil means the input is already UTF-8.
	Encoding encoding.Encoding
	// SkipLines drops raw lines before CSV parsing starts.
	SkipLines  int
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads CSV rows and sends them to a channel. The caller must
// consume the row channel; the error channel carries at most one error. Both
// are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		if opts.Encoding != nil {
			r = opts.Encoding.NewDecoder().Reader(r)
		}
		br := bufio.NewReader(r)
		for i := 0; i < opts.SkipLines; i++ {
			if _, err := br.ReadString('\n'); err != nil {
				if err == io.EOF {
					errCh <- eris.Errorf("csv: input ended within %d skipped line(s)", opts.SkipLines)
					return
				}
				errCh <- eris.Wrap(err, "csv: skip line")
				return
			}
		}

		reader := csv.NewReader(br)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		header := opts.HasHeader
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			if header {
				header = false
				if len(record) > 0 {
					record[0] = strings.TrimPrefix(record[0], "\ufeff")
				}
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
