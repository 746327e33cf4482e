// Package scanner finds statement files given a mix of file and directory paths.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/finagent/internal/logging"
)

// StatementScanner resolves paths to the statement files they contain.
type StatementScanner struct {
	extensions []string
	logger     logging.Logger
}

// NewStatementScanner creates a scanner matching the given extensions (".ofx", ".qfx").
// Matching is case-insensitive.
func NewStatementScanner(logger logging.Logger, extensions ...string) *StatementScanner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &StatementScanner{
		extensions: normalized,
		logger:     logger.WithField(logging.FieldComponent, "scanner"),
	}
}

// ScanPaths returns the absolute, sorted, de-duplicated statement files under paths.
// A path naming a file is returned whatever its extension; directories are walked
// recursively and only matching files are kept. A path that cannot be read is an error.
func (s *StatementScanner) ScanPaths(paths ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", p, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			s.logger.WithError(err).Debug("Failed to stat path", logging.F(logging.FieldPath, absPath))
			return nil, fmt.Errorf("failed to stat path %s: %w", absPath, err)
		}

		if !info.IsDir() {
			add(absPath)
			continue
		}

		err = filepath.WalkDir(absPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.WithError(err).Warn("Error walking path", logging.F(logging.FieldPath, path))
				return nil // Continue walking even if there's an error with one path
			}
			if !d.IsDir() && s.matches(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %s: %w", absPath, err)
		}
	}

	sort.Strings(files)
	s.logger.Debug("Scanned statement paths",
		logging.F("paths", len(paths)),
		logging.F(logging.FieldCount, len(files)))
	return files, nil
}

func (s *StatementScanner) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range s.extensions {
		if ext == want {
			return true
		}
	}
	return false
}
