package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoRecords is returned when a scan pattern matches no record files.
var ErrNoRecords = errors.New("no outcome records found")

// Entry is one scanned Outcome Record. A file that exists but cannot be
// parsed still yields an Entry, with Err set and Record nil, so one bad
// file never hides the rest of the scan.
type Entry struct {
	Path    string
	Variant Variant
	Record  *Record
	Err     error
}

// Collect lazily scans the store for Outcome Records matching the symbol
// and date glob patterns (empty patterns match everything). Matching is
// resolved eagerly so the caller gets pattern errors up front; parsing
// happens per file as the sequence is consumed, and re-ranging restarts it.
//
// Entries are ordered by path, so records for one symbol/date group
// together and multiple attempts for the same pair appear as adjacent
// history rather than being deduplicated.
func (s *Store) Collect(symbolPat, datePat string) (iter.Seq[Entry], error) {
	paths, err := s.match(symbolPat, datePat)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s/%s under %s", ErrNoRecords, orWildcard(symbolPat), orWildcard(datePat), s.root)
	}

	return func(yield func(Entry) bool) {
		for _, p := range paths {
			if !yield(s.load(p)) {
				return
			}
		}
	}, nil
}

// CollectAll is Collect drained into a slice, for callers that need the
// whole history at once (check-failed cross-referencing).
func (s *Store) CollectAll(symbolPat, datePat string) ([]Entry, error) {
	seq, err := s.Collect(symbolPat, datePat)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for e := range seq {
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) match(symbolPat, datePat string) ([]string, error) {
	pattern := path.Join(orWildcard(symbolPat), orWildcard(datePat), "*.json")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid results pattern %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(s.root), pattern)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan results: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (s *Store) load(rel string) Entry {
	full := filepath.Join(s.root, rel)
	e := Entry{Path: full, Variant: variantFromName(path.Base(rel))}

	b, err := os.ReadFile(full)
	if err != nil {
		e.Err = fmt.Errorf("read record: %w", err)
		return e
	}

	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		e.Err = fmt.Errorf("parse record: %w", err)
		return e
	}
	e.Record = &rec
	return e
}

// variantFromName classifies a record file by its name prefix. Unknown
// prefixes fall through to success; the record's own error field is the
// authoritative signal once parsed.
func variantFromName(base string) Variant {
	for _, p := range []string{"error_task_", "gpu_error_", "error_"} {
		if strings.HasPrefix(base, p) {
			return VariantFailure
		}
	}
	return VariantSuccess
}

func orWildcard(pat string) string {
	pat = strings.TrimSpace(pat)
	if pat == "" {
		return "*"
	}
	return pat
}
