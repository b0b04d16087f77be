package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Encode writes the dataset artifact as indented JSON.
func Encode(w io.Writer, ds *Dataset) error {
	if ds == nil {
		return fmt.Errorf("dataset is nil")
	}
	out := *ds
	if out.Cases == nil {
		out.Cases = []Case{}
	}
	if out.Members == nil {
		out.Members = map[string]Member{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return nil
}

// Decode reads a dataset artifact and checks its invariants. Member
// identifiers are restored from the member map keys.
func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if ds.Members == nil {
		ds.Members = map[string]Member{}
	}
	for id, member := range ds.Members {
		member.ID = id
		ds.Members[id] = member
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	return &ds, nil
}

// Marshal returns the artifact bytes.
func Marshal(ds *Dataset) ([]byte, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}
	return json.Marshal(ds)
}

// WriteFile writes the artifact to path, creating parent directories. The
// file is written to a temporary sibling first and renamed into place so a
// reader never sees a partial artifact.
func WriteFile(path string, ds *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, ds); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

// ReadFile loads an artifact from disk.
func ReadFile(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	return Decode(file)
}
