package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openquant/tradebatch/pkg/job"
)

// Store persists and scans Outcome Records under an on-disk root.
//
// Directory layout:
//
//	<root>/<symbol>/<date>/<prefix>_<job_id>.json
//
// Concurrent runners never contend: every writer owns a file name unique to
// its job id. Re-submitted jobs for the same symbol/date therefore
// accumulate as history rather than overwriting each other.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: strings.TrimSpace(root)}
}

func (s *Store) RootDir() string {
	return s.root
}

// Dir returns the result directory for one symbol/date pair.
func (s *Store) Dir(symbol, date string) string {
	return filepath.Join(s.root, symbol, date)
}

// EnsureDir creates the result directory for symbol/date. A directory left
// over from a prior attempt is not an error.
func (s *Store) EnsureDir(symbol, date string) error {
	if strings.TrimSpace(s.root) == "" {
		return fmt.Errorf("results root dir is empty")
	}
	if err := os.MkdirAll(s.Dir(symbol, date), 0755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}
	return nil
}

// WriteSuccess persists a success record for the given kind and returns the
// file path written.
func (s *Store) WriteSuccess(kind job.Kind, rec *Record) (string, error) {
	prefix, err := SuccessPrefix(kind)
	if err != nil {
		return "", err
	}
	return s.write(prefix, rec)
}

// WriteFailure persists a failure record for the given kind and returns the
// file path written.
func (s *Store) WriteFailure(kind job.Kind, rec *Record) (string, error) {
	prefix, err := FailurePrefix(kind)
	if err != nil {
		return "", err
	}
	return s.write(prefix, rec)
}

// write marshals the record and renames it into place so a record file is
// never observed half-written by a concurrent scan.
func (s *Store) write(prefix string, rec *Record) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("outcome record is nil")
	}
	if strings.TrimSpace(rec.Symbol) == "" {
		return "", fmt.Errorf("outcome record symbol is required")
	}
	if strings.TrimSpace(rec.Date) == "" {
		return "", fmt.Errorf("outcome record date is required")
	}
	if strings.TrimSpace(rec.JobID) == "" {
		return "", fmt.Errorf("outcome record job_id is required")
	}

	if err := s.EnsureDir(rec.Symbol, rec.Date); err != nil {
		return "", err
	}
	dir := s.Dir(rec.Symbol, rec.Date)

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal outcome record: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(dir, prefix+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp record file: %w", err)
	}

	finalPath := filepath.Join(dir, fmt.Sprintf("%s_%s.json", prefix, rec.JobID))
	if err := os.Rename(tmpName, finalPath); err != nil {
		return "", fmt.Errorf("rename record file: %w", err)
	}
	return finalPath, nil
}
