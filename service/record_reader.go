package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/ingest"
)

// RecordReaderImpl implements the RecordReader interface
type RecordReaderImpl struct {
	logger  zerolog.Logger
	options []ingest.LoaderOption
}

// NewRecordReader creates a new record reader service
func NewRecordReader(logger zerolog.Logger, opts ...ingest.LoaderOption) *RecordReaderImpl {
	return &RecordReaderImpl{logger: logger, options: opts}
}

// CollectRecordFiles expands directories into the files matching the include
// patterns. Files named directly are always taken unless excluded.
func (r *RecordReaderImpl) CollectRecordFiles(paths, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.NewFileNotFoundError(path, err)
		}

		if !info.IsDir() {
			if !matchesAny(excludePatterns, path) {
				add(path)
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				r.logger.Warn().Err(err).Str("path", p).Msg("skipping unreadable path")
				return nil
			}
			// Skip hidden directories and files below the root
			if p != path && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(path, p)
			if err != nil {
				rel = p
			}
			rel = filepath.ToSlash(rel)
			if matchesAny(excludePatterns, rel) {
				return nil
			}
			if len(includePatterns) == 0 || matchesAny(includePatterns, rel) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %s: %w", path, err)
		}
	}

	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no record files found in the specified paths", nil)
	}
	return files, nil
}

// matchesAny checks a slash separated path and its base name against the patterns.
func matchesAny(patterns []string, path string) bool {
	path = filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// ReadRecords decodes every file with one loader so duplicate ids are
// caught across files.
func (r *RecordReaderImpl) ReadRecords(ctx context.Context, files []string) ([]ingest.Result, error) {
	loader := ingest.NewLoader(r.options...)

	var results []ingest.Result
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		fileResults, err := loader.Decode(f, path)
		f.Close()
		if err != nil {
			return nil, domain.NewParseError(path, err)
		}

		summary := ingest.Summarize(fileResults)
		r.logger.Debug().
			Str("file", path).
			Int("records", summary.Records).
			Int("failures", summary.Failures).
			Msg("records decoded")
		results = append(results, fileResults...)
	}
	return results, nil
}
