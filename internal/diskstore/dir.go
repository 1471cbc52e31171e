// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir keeps blobs as files in one local directory.
type Dir struct {
	Root string
}

// NewDir returns a Dir rooted at root. The directory is created on first Put.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

func (d *Dir) Locate(name string) string {
	return filepath.Join(d.Root, name)
}

func (d *Dir) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(d.Locate(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (d *Dir) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(d.Locate(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Put writes to a temp file in Root and renames it into place, so readers see
// either nothing or the whole blob.
func (d *Dir) Put(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.Root, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.Root, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp blob: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp blob: %w", err)
	}
	if err := os.Rename(tmpName, d.Locate(name)); err != nil {
		return fmt.Errorf("failed to move blob into place: %w", err)
	}
	return nil
}
