package newsfeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists category reports. Saving a category replaces whatever was
// stored for it before.
type Store interface {
	Save(report CategoryReport) error
	List() (*ListResult, error)
	// Get returns nil, nil when the category has never been saved.
	Get(category string) (*CategoryReport, error)
}

// ReadError describes a failure to read a single stored report.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the results of listing reports, including any
// per-report errors that occurred during the operation.
type ListResult struct {
	Reports []CategoryReport
	Errors  []ReadError
}

// SafeName turns a category name into a directory and file name: lower
// case, with spaces and path separators replaced by underscores. A name
// made only of dots has them replaced too, so the result never refers to
// the storage directory or its parent.
func SafeName(category string) string {
	safe := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(strings.ToLower(category))
	if safe != "" && strings.Trim(safe, ".") == "" {
		safe = strings.Repeat("_", len(safe))
	}
	return safe
}

// SaveAll writes every report of a run. A failure on one category does not
// stop the others; all failures are returned together.
func SaveAll(store Store, result *RunResult) error {
	var errs []error
	for _, rep := range result.Reports() {
		if err := store.Save(rep); err != nil {
			errs = append(errs, fmt.Errorf("failed to save %q: %w", rep.Category, err))
		}
	}
	return errors.Join(errs...)
}

// FileStore keeps one JSON document per category under a directory, at
// <dir>/<safe>/<safe>_news.json.
type FileStore struct {
	storageDir string
}

// NewFileStore creates a store rooted at storageDir, creating the
// directory if needed.
func NewFileStore(storageDir string) (*FileStore, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(storageDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStore{
		storageDir: storageDir,
	}, nil
}

// Path returns the file a category's report is written to.
func (fs *FileStore) Path(category string) string {
	safe := SafeName(category)
	return filepath.Join(fs.storageDir, safe, safe+"_news.json")
}

// Save writes a category report, replacing any previous one.
func (fs *FileStore) Save(report CategoryReport) error {
	if report.Articles == nil {
		report.Articles = []Article{}
	}
	report.TotalArticles = len(report.Articles)

	filename := fs.Path(report.Category)
	if err := os.MkdirAll(filepath.Dir(filename), 0o700); err != nil {
		return fmt.Errorf("failed to create category directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	// 0600: owner-only read/write
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// List returns every stored report. Corrupted or invalid files are
// collected in the result's Errors slice rather than causing the entire
// operation to fail. A non-nil error return indicates a total failure
// (e.g., the storage directory is unreadable).
func (fs *FileStore) List() (*ListResult, error) {
	entries, err := os.ReadDir(fs.storageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	result := &ListResult{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name() + "_news.json"
		filename := filepath.Join(fs.storageDir, entry.Name(), name)
		report, err := readReport(filename)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, ReadError{
				Filename: filepath.Join(entry.Name(), name),
				Err:      err,
			})
			continue
		}

		result.Reports = append(result.Reports, *report)
	}

	return result, nil
}

// Get retrieves the report for a category.
func (fs *FileStore) Get(category string) (*CategoryReport, error) {
	report, err := readReport(fs.Path(category))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil // Not saved yet (not an error)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func readReport(filename string) (*CategoryReport, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var report CategoryReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
