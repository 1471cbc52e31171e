// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
)

// debounce collapses the burst of events an atomic save produces.
const debounce = 100 * time.Millisecond

// File keeps all keys in one JSON object on disk. The file is re-read on every
// call so edits by other processes are seen, and rewritten through a temp file
// and rename so readers never see a partial document.
type File struct {
	path string

	mutex  sync.Mutex
	last   []byte
	closed bool
}

// OpenFile returns a File store at path. The file and its directory are created
// on first write.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("settings path is empty")
	}
	return &File{path: path}, nil
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

func (f *File) load() (map[string]json.RawMessage, []byte, error) {
	doc := map[string]json.RawMessage{}
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, raw, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, raw, fmt.Errorf("failed to parse settings %s: %w", f.path, err)
	}
	return doc, raw, nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.closed {
		return nil, false, ErrClosed
	}

	doc, _, err := f.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

func (f *File) Update(_ context.Context, key string, fn UpdateFn) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.closed {
		return ErrClosed
	}

	doc, _, err := f.load()
	if err != nil {
		return err
	}

	old, ok := doc[key]
	value, err := fn(old, ok)
	if err != nil {
		return err
	}
	if value == nil {
		if !ok {
			return nil
		}
		delete(doc, key)
	} else {
		if !json.Valid(value) {
			return fmt.Errorf("value for %q is not valid json", key)
		}
		doc[key] = value
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := f.save(raw); err != nil {
		return err
	}
	f.last = raw
	return nil
}

func (f *File) save(raw []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// Watch calls fn whenever the file is changed by someone other than this
// store. It watches the parent directory so atomic saves by editors are seen.
func (f *File) Watch(ctx context.Context, fn func()) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Debugf("watching %s", f.path)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	base := filepath.Base(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
				!event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if f.changedElsewhere() {
				fn()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("settings watcher error")
		}
	}
}

// changedElsewhere reports whether the file differs from what this store last
// wrote, and remembers the new content.
func (f *File) changedElsewhere() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Debug("settings reread failed")
		return false
	}
	if f.last != nil && bytes.Equal(raw, f.last) {
		return false
	}
	f.last = raw
	return true
}

func (f *File) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.closed = true
	return nil
}
