package company

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/fetcher"
)

// TargetPattern matches target list files inside the targets directory.
const TargetPattern = "target_list_*.json"

// DoneDir is the subdirectory processed target lists are moved to.
const DoneDir = "done"

// TargetFiles returns the first n target list files in dir, sorted by name.
// n <= 0 returns all of them.
func TargetFiles(dir string, n int) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, TargetPattern))
	if err != nil {
		return nil, eris.Wrap(err, "company: glob target lists")
	}
	sort.Strings(paths)
	if n > 0 && len(paths) > n {
		paths = paths[:n]
	}
	return paths, nil
}

// ReadTargets reads the EDINET codes listed in paths, each a JSON array of
// strings, and returns the sorted unique codes that exist in master. A file
// that cannot be read or decoded is logged and skipped.
func ReadTargets(ctx context.Context, paths []string, master Master) ([]string, error) {
	seen := make(map[string]bool)
	for _, path := range paths {
		codes, err := readTargetFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "company: read targets")
			}
			zap.L().Warn("company: skipping target list",
				zap.String("file", filepath.Base(path)),
				zap.Error(err),
			)
			continue
		}
		for _, code := range codes {
			if _, ok := master[code]; ok {
				seen[code] = true
			}
		}
	}

	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	slices.Sort(out)
	return out, nil
}

func readTargetFile(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "company: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	ch, errCh := fetcher.DecodeJSONArray[string](ctx, f)
	var codes []string
	for code := range ch {
		codes = append(codes, code)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "company: decode %s", path)
	}
	return codes, nil
}

// MoveToDone moves processed target lists into dir/done. Failures are logged
// per file and returned joined.
func MoveToDone(dir string, paths []string) (int, error) {
	done := filepath.Join(dir, DoneDir)
	if err := os.MkdirAll(done, 0o755); err != nil {
		return 0, eris.Wrap(err, "company: create done directory")
	}

	moved := 0
	var errs []error
	for _, path := range paths {
		dest := filepath.Join(done, filepath.Base(path))
		if err := os.Rename(path, dest); err != nil {
			zap.L().Error("company: move target list", zap.String("file", path), zap.Error(err))
			errs = append(errs, eris.Wrapf(err, "company: move %s", filepath.Base(path)))
			continue
		}
		moved++
	}
	if len(errs) > 0 {
		return moved, eris.Errorf("company: %d target list(s) not moved: %v", len(errs), errs)
	}
	return moved, nil
}
