// Package fetcher downloads remote documents over rate-limited HTTP and
// decodes the CSV, JSON and ZIP payloads EDINET serves.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// Fetch reads the whole response, keeping its content type.
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Response is a fully read HTTP response body.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}
