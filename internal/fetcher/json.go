package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONArray decodes a JSON array element by element, sending each to
// a channel. Both channels are closed when processing completes.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)
		tok, err := decoder.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}
			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// DecodeJSONObject decodes a single JSON object from a reader.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}

// DecodeJSONBytes decodes a single JSON object held in memory.
func DecodeJSONBytes[T any](data []byte) (*T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, eris.New("json: empty document")
	}
	return DecodeJSONObject[T](bytes.NewReader(data))
}
