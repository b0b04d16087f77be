package normalize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coolbeans/concurrence/pkg/dataset"
	"github.com/coolbeans/concurrence/pkg/records"
)

// ErrSourceNotFound is returned when a source path does not exist. Errors
// matching it also match os.ErrNotExist.
var ErrSourceNotFound = errors.New("source file not found")

type sourceNotFoundError struct {
	path string
}

func (e *sourceNotFoundError) Error() string {
	return "source file not found: " + e.path
}

func (e *sourceNotFoundError) Is(target error) bool {
	return target == ErrSourceNotFound || target == os.ErrNotExist
}

// Source is one delimited-text input in merge order.
type Source struct {
	Name   string
	Reader io.Reader
}

// Result is a built dataset together with the record counts behind it.
type Result struct {
	Dataset *dataset.Dataset
	Stats   Stats
}

// FromSources canonicalizes sources in the order given. Votes from later
// sources overwrite overlapping case and member entries from earlier ones.
func FromSources(opts Options, sources ...Source) (*Result, error) {
	canonicalizer := New(opts)
	for _, source := range sources {
		if err := canonicalizer.AddSource(source); err != nil {
			return nil, err
		}
	}
	return &Result{
		Dataset: canonicalizer.Build(),
		Stats:   canonicalizer.Stats(),
	}, nil
}

// AddSource folds every record of one source. Malformed rows and rejected
// records are counted, not returned as errors.
func (c *Canonicalizer) AddSource(source Source) error {
	reader, err := records.NewReader(source.Reader)
	if errors.Is(err, records.ErrNoHeader) {
		// An empty source contributes nothing.
		c.stats.Sources = append(c.stats.Sources, source.Name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read source %s: %w", source.Name, err)
	}

	for record := range reader.All() {
		c.Add(record)
	}
	c.stats.Dropped += reader.Dropped()
	c.stats.Sources = append(c.stats.Sources, source.Name)

	if err := reader.Err(); err != nil {
		return fmt.Errorf("failed to read source %s: %w", source.Name, err)
	}
	return nil
}

// FromFiles canonicalizes the files at paths in order. Every path is checked
// before any is parsed, so a missing file produces no partial dataset.
func FromFiles(opts Options, paths ...string) (*Result, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one source file is required")
	}
	if err := CheckSources(paths...); err != nil {
		return nil, err
	}

	files := make([]*os.File, 0, len(paths))
	defer func() {
		for _, file := range files {
			file.Close()
		}
	}()

	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open source: %w", err)
		}
		files = append(files, file)
		sources = append(sources, Source{Name: filepath.Base(path), Reader: file})
	}

	return FromSources(opts, sources...)
}

// CheckSources verifies that every path exists and is a regular file.
func CheckSources(paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return &sourceNotFoundError{path: path}
		}
		if err != nil {
			return fmt.Errorf("failed to stat source %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("source %s is a directory", path)
		}
	}
	return nil
}
