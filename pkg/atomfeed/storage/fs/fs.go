// Package fs writes generated feeds to a local directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Destination is a filesystem implementation of the atomfeed.Destination interface
type Destination struct {
	baseDir string
}

// New creates the output directory if needed and returns a destination
// writing below it.
func New(baseDir string) (*Destination, error) {
	if baseDir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Destination{baseDir: baseDir}, nil
}

// Dir returns the output directory
func (d *Destination) Dir() string {
	return d.baseDir
}

// Path returns the local path of a document name. Names escaping the
// output directory are rejected.
func (d *Destination) Path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(name, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(d.baseDir, clean), nil
}

// Write creates or replaces the file name below the output directory
func (d *Destination) Write(ctx context.Context, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath, err := d.Path(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
