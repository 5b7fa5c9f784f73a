package fetcher

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ZIPMagic is the leading signature of a ZIP archive.
var ZIPMagic = []byte("PK\x03\x04")

// IsZIP reports whether data starts with a ZIP local file header.
func IsZIP(data []byte) bool {
	return bytes.HasPrefix(data, ZIPMagic)
}

// ZIPEntries lists the file (non-directory) entries of an in-memory archive.
func ZIPEntries(data []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	var names []string
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			names = append(names, f.Name)
		}
	}
	return names, nil
}

// ReadZIPMember returns the contents of the entry chosen by pick from an
// in-memory archive. pick receives every file entry name and returns the one
// to read, or false when none qualifies.
func ReadZIPMember(data []byte, maxBytes int64, pick func(names []string) (string, bool)) (string, []byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, eris.Wrap(err, "zip: open archive")
	}

	byName := make(map[string]*zip.File, len(r.File))
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		byName[f.Name] = f
		names = append(names, f.Name)
	}

	name, ok := pick(names)
	if !ok {
		return "", nil, eris.New("zip: no matching entry in archive")
	}
	f, ok := byName[name]
	if !ok {
		return "", nil, eris.Errorf("zip: file %q not found in archive", name)
	}

	rc, err := f.Open()
	if err != nil {
		return "", nil, eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return "", nil, eris.Wrap(err, "zip: read entry")
	}
	if int64(len(body)) > maxBytes {
		return "", nil, eris.Errorf("zip: entry %q exceeds %d bytes", name, maxBytes)
	}
	return name, body, nil
}

// ExtractZIPBytes writes every entry of an in-memory archive under destDir
// and returns the written file paths.
func ExtractZIPBytes(data []byte, destDir string) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	var extracted []string
	for _, f := range r.File {
		path, err := extractZIPEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}
	return extracted, nil
}

// extractZIPEntry writes one entry under destDir, rejecting paths that
// escape it. Directories return "".
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "zip: create directory")
		}
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}
	return destPath, nil
}
