// Package edinet is a client for the EDINET API v2: the daily document
// index, filing archives and the EDINET code list.
package edinet

import (
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/fetcher"
	"github.com/sells-group/edinet-screener/internal/filing"
)

// DefaultBaseURL is the EDINET API v2 endpoint.
const DefaultBaseURL = "https://disclosure.edinet-fsa.go.jp/api/v2"

// CodeListURL serves the zipped EDINET code list (EdinetcodeDlInfo.csv).
const CodeListURL = "https://disclosure2dl.edinet-fsa.go.jp/searchdocument/codelist/Edinetcode.zip"

// Document types accepted by the documents endpoint.
const (
	typeArchive  = "1"
	typeMetadata = "2"
)

// IndexCache stores raw documents.json responses keyed by date.
type IndexCache interface {
	GetCachedIndex(ctx context.Context, date string) ([]byte, bool, error)
	SetCachedIndex(ctx context.Context, date string, body []byte) error
}

// ListResponse is the documents.json payload.
type ListResponse struct {
	Metadata Metadata          `json:"metadata"`
	Results  []filing.IndexRow `json:"results"`
}

// Metadata describes a documents.json response. Status is "200" on success.
type Metadata struct {
	Title     string `json:"title"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	ResultSet struct {
		Count int `json:"count"`
	} `json:"resultset"`
	ProcessDateTime string `json:"processDateTime"`
}

// apiError is the JSON body EDINET returns instead of an archive.
type apiError struct {
	StatusCode int    `json:"StatusCode"`
	Message    string `json:"message"`
	Metadata   struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"metadata"`
}

// Client talks to EDINET through a rate-limited fetcher.
type Client struct {
	fetcher fetcher.Fetcher
	baseURL string
	apiKey  string
	cache   IndexCache
	now     func() time.Time
}

// NewClient returns a Client. cache may be nil.
func NewClient(f fetcher.Fetcher, baseURL, apiKey string, cache IndexCache) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		cache:   cache,
		now:     time.Now,
	}
}

func (c *Client) endpoint(path string, params url.Values) string {
	params.Set("Subscription-Key", c.apiKey)
	return c.baseURL + path + "?" + params.Encode()
}

// ListDocuments returns the index rows submitted on date (YYYY-MM-DD). Cached
// responses are used when present; a cache entry that does not decode is
// refetched. Only days before today are cached, since EDINET keeps adding
// filings to the current day.
func (c *Client) ListDocuments(ctx context.Context, date string) ([]filing.IndexRow, error) {
	log := zap.L().With(zap.String("date", date))

	if c.cache != nil {
		body, ok, err := c.cache.GetCachedIndex(ctx, date)
		if err != nil {
			log.Warn("edinet: read index cache", zap.Error(err))
		}
		if ok {
			if resp, err := decodeList(body); err == nil {
				return resp.Results, nil
			}
			log.Warn("edinet: discarding corrupt index cache entry")
		}
	}

	resp, err := c.fetcher.Fetch(ctx, c.endpoint("/documents.json", url.Values{
		"date": {date},
		"type": {typeMetadata},
	}))
	if err != nil {
		return nil, eris.Wrapf(err, "edinet: list documents %s", date)
	}
	list, err := decodeList(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "edinet: list documents %s", date)
	}

	if c.cache != nil && date < c.now().Format(time.DateOnly) {
		if err := c.cache.SetCachedIndex(ctx, date, resp.Body); err != nil {
			log.Warn("edinet: write index cache", zap.Error(err))
		}
	}
	return list.Results, nil
}

func decodeList(body []byte) (*ListResponse, error) {
	resp, err := fetcher.DecodeJSONBytes[ListResponse](body)
	if err != nil {
		return nil, err
	}
	if resp.Metadata.Status != "200" {
		return nil, eris.Errorf("edinet: api status %q: %s", resp.Metadata.Status, resp.Metadata.Message)
	}
	return resp, nil
}

// BuildIndex concatenates the daily indexes of the daysBack days ending on
// now. A day that fails is logged and skipped; only cancellation is returned.
func (c *Client) BuildIndex(ctx context.Context, daysBack int, now time.Time) ([]filing.IndexRow, error) {
	zap.L().Info("edinet: building document index", zap.Int("days_back", daysBack))

	var rows []filing.IndexRow
	failed := 0
	for i := 0; i < daysBack; i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "edinet: build index")
		}
		date := now.AddDate(0, 0, -i).Format(time.DateOnly)
		docs, err := c.ListDocuments(ctx, date)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "edinet: build index")
			}
			failed++
			zap.L().Warn("edinet: skipping day", zap.String("date", date), zap.Error(err))
		}
		rows = append(rows, docs...)

		if (i > 0 && i%50 == 0) || i == daysBack-1 {
			zap.L().Info("edinet: indexed days",
				zap.Int("done", i+1),
				zap.Int("total", daysBack),
				zap.Int("documents", len(rows)),
			)
		}
	}

	zap.L().Info("edinet: document index built",
		zap.Int("documents", len(rows)),
		zap.Int("failed_days", failed),
	)
	return rows, nil
}

// FetchArchive downloads the ZIP archive of a filing.
func (c *Client) FetchArchive(ctx context.Context, docID string) ([]byte, error) {
	resp, err := c.fetcher.Fetch(ctx, c.endpoint("/documents/"+url.PathEscape(docID), url.Values{
		"type": {typeArchive},
	}))
	if err != nil {
		return nil, eris.Wrapf(err, "edinet: fetch %s", docID)
	}

	ct := strings.ToLower(resp.ContentType)
	if !strings.Contains(ct, "application/zip") && !strings.Contains(ct, "application/octet-stream") {
		if strings.Contains(ct, "application/json") {
			if e, err := fetcher.DecodeJSONBytes[apiError](resp.Body); err == nil {
				msg := e.Message
				if msg == "" {
					msg = e.Metadata.Message
				}
				return nil, eris.Errorf("edinet: fetch %s: api error: %s", docID, msg)
			}
		}
		return nil, eris.Errorf("edinet: fetch %s: unexpected content type %q", docID, resp.ContentType)
	}
	if !fetcher.IsZIP(resp.Body) {
		return nil, eris.Errorf("edinet: fetch %s: body is not a zip archive", docID)
	}
	return resp.Body, nil
}

// FetchXBRL returns the main XBRL instance of a filing, read from its archive
// in memory.
func (c *Client) FetchXBRL(ctx context.Context, docID string) ([]byte, error) {
	archive, err := c.FetchArchive(ctx, docID)
	if err != nil {
		return nil, err
	}
	name, body, err := fetcher.ReadZIPMember(archive, 0, PickInstance)
	if err != nil {
		return nil, eris.Wrapf(err, "edinet: read instance of %s", docID)
	}
	zap.L().Debug("edinet: instance selected", zap.String("doc_id", docID), zap.String("member", name))
	return body, nil
}

// PickInstance chooses the .xbrl member of a filing archive, preferring the
// public document (PublicDoc) over audit reports, then paths under XBRL/.
func PickInstance(names []string) (string, bool) {
	var candidates []string
	for _, n := range names {
		if strings.HasSuffix(strings.ToLower(n), ".xbrl") {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	rank := func(n string) int {
		l := strings.ToLower(n)
		r := 0
		if strings.Contains(l, "publicdoc") {
			r += 2
		}
		if strings.Contains("/"+l, "/xbrl/") {
			r++
		}
		return r
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return rank(candidates[i]) > rank(candidates[j])
	})
	return candidates[0], true
}

// SaveArchive streams the ZIP archive of a filing to w.
func (c *Client) SaveArchive(ctx context.Context, docID string, w io.Writer) (int64, error) {
	body, err := c.fetcher.Download(ctx, c.endpoint("/documents/"+url.PathEscape(docID), url.Values{
		"type": {typeArchive},
	}))
	if err != nil {
		return 0, eris.Wrapf(err, "edinet: download %s", docID)
	}
	defer body.Close() //nolint:errcheck

	n, err := io.Copy(w, body)
	if err != nil {
		return n, eris.Wrapf(err, "edinet: save %s", docID)
	}
	return n, nil
}

// FetchCodeList downloads the EDINET code list and returns the CSV inside it,
// still CP932-encoded.
func (c *Client) FetchCodeList(ctx context.Context, listURL string) ([]byte, error) {
	if listURL == "" {
		listURL = CodeListURL
	}
	resp, err := c.fetcher.Fetch(ctx, listURL)
	if err != nil {
		return nil, eris.Wrap(err, "edinet: fetch code list")
	}
	_, body, err := fetcher.ReadZIPMember(resp.Body, 0, func(names []string) (string, bool) {
		for _, n := range names {
			if strings.HasSuffix(strings.ToLower(n), ".csv") {
				return n, true
			}
		}
		return "", false
	})
	if err != nil {
		return nil, eris.Wrap(err, "edinet: read code list")
	}
	return body, nil
}
