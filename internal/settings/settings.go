// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package settings is the host key-value store that persists small values such
// as the favorites index. Every Update is an atomic read-modify-write of one
// key.
package settings

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("settings store is closed")

// UpdateFn receives the current value of a key (ok is false when unset) and
// returns the value to store. Returning a nil value deletes the key. Returning
// an error leaves the key untouched.
type UpdateFn func(old []byte, ok bool) ([]byte, error)

// Store is a persistent key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Update(ctx context.Context, key string, fn UpdateFn) error
	Close() error
}

// Watcher is implemented by stores that can report changes made by other
// processes. Watch blocks until ctx is done, calling fn after each change.
type Watcher interface {
	Watch(ctx context.Context, fn func()) error
}
