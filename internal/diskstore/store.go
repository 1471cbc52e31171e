// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package diskstore keeps the raw bytes of favorited GIFs in a keyed blob
// namespace, one blob per item id.
package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/gifctl/internal/cacheutil"
	"github.com/staranto/gifctl/internal/fetch"
	"github.com/staranto/gifctl/internal/worker"
)

// Ext is appended to the id to form a blob name.
const Ext = ".gif"

// DefaultWriteTimeout bounds one fetch-and-persist.
const DefaultWriteTimeout = 60 * time.Second

// Blobs is a flat namespace of named byte blobs. Get returns an error wrapping
// fs.ErrNotExist for a missing blob.
type Blobs interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	Put(ctx context.Context, name string, data []byte) error
	Locate(name string) string
}

// Store maps item ids to blobs and fills them in the background.
type Store struct {
	blobs   Blobs
	fetcher fetch.Fetcher
	pool    *worker.Pool
	group   singleflight.Group
	timeout time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithWriteTimeout overrides DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a Store over blobs. Background writes run on pool and pull bytes
// through fetcher.
func New(blobs Blobs, fetcher fetch.Fetcher, pool *worker.Pool, opts ...Option) *Store {
	s := &Store{
		blobs:   blobs,
		fetcher: fetcher,
		pool:    pool,
		timeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns where the blob for id lives, or "" when id cannot name a blob.
// It depends on id alone.
func (s *Store) Path(id string) string {
	name, err := cacheutil.BlobName(id, Ext)
	if err != nil {
		return ""
	}
	return s.blobs.Locate(name)
}

// Read returns the stored bytes for id. Any failure reads as absent.
func (s *Store) Read(ctx context.Context, id string) ([]byte, bool) {
	name, err := cacheutil.BlobName(id, Ext)
	if err != nil {
		log.Debugf("disk read skipped: %v", err)
		return nil, false
	}

	data, err := s.blobs.Get(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("disk miss: %s", id)
		} else {
			log.WithError(err).Debugf("disk read failed: %s", id)
		}
		return nil, false
	}
	if len(data) == 0 {
		log.Debugf("disk blob empty: %s", id)
		return nil, false
	}

	log.Debugf("disk hit: %s", id)
	return data, true
}

// Exists reports whether a blob for id is present.
func (s *Store) Exists(ctx context.Context, id string) bool {
	name, err := cacheutil.BlobName(id, Ext)
	if err != nil {
		return false
	}
	ok, err := s.blobs.Exists(ctx, name)
	if err != nil {
		log.WithError(err).Debugf("disk stat failed: %s", id)
		return false
	}
	return ok
}

// WriteIfAbsent schedules a fetch of source into the blob for id and returns
// at once. Nothing happens when the blob already exists. Failures are logged
// and dropped, and there is no retry.
func (s *Store) WriteIfAbsent(id string, source *url.URL) {
	if source == nil {
		log.Warnf("disk write skipped for %s: no source url", id)
		return
	}
	src := source.String()

	scheduled := s.pool.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.write(ctx, id, src); err != nil {
			log.WithError(err).Warnf("disk write failed: %s", id)
		}
	})
	if !scheduled {
		log.Warnf("disk write dropped for %s: worker pool closed", id)
	}
}

// write fetches and persists one blob. Concurrent writes of the same id share
// one attempt.
func (s *Store) write(ctx context.Context, id, src string) error {
	name, err := cacheutil.BlobName(id, Ext)
	if err != nil {
		return err
	}

	_, err, shared := s.group.Do(name, func() (any, error) {
		exists, err := s.blobs.Exists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to stat blob: %w", err)
		}
		if exists {
			log.Debugf("disk write skipped, blob exists: %s", id)
			return nil, nil
		}

		data, err := s.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", src, err)
		}
		if err := s.blobs.Put(ctx, name, data); err != nil {
			return nil, fmt.Errorf("failed to persist blob: %w", err)
		}

		log.Debugf("disk write done: %s (%d bytes)", id, len(data))
		return nil, nil
	})
	if shared {
		log.Debugf("disk write joined in-flight write: %s", id)
	}
	return err
}
