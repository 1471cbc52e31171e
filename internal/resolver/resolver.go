// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package resolver finds the image for an item: memory first, then the disk
// copy, then the network.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/gifctl/internal/fetch"
	"github.com/staranto/gifctl/internal/gifimage"
	"github.com/staranto/gifctl/internal/gifitem"
	"github.com/staranto/gifctl/internal/memcache"
	"github.com/staranto/gifctl/internal/notifier"
	"github.com/staranto/gifctl/internal/worker"
)

// DefaultTimeout bounds one network fetch.
const DefaultTimeout = 30 * time.Second

// Disk is the read side of the disk store.
type Disk interface {
	Read(ctx context.Context, id string) ([]byte, bool)
}

// Dispatcher delivers events and callbacks on the notification goroutine.
// notifier.Notifier is one.
type Dispatcher interface {
	Publish(notifier.Event)
	Post(fn func())
}

// ReadyFn receives a resolved image, or nil when it could not be had.
type ReadyFn func(*gifimage.Image)

// Resolver resolves items to images. It does no I/O until asked.
type Resolver struct {
	mem      *memcache.Cache
	disk     Disk
	fetcher  fetch.Fetcher
	dispatch Dispatcher
	pool     *worker.Pool
	group    singleflight.Group
	timeout  time.Duration
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New returns a Resolver. disk may be nil to skip the disk tier.
func New(mem *memcache.Cache, disk Disk, fetcher fetch.Fetcher, dispatch Dispatcher, pool *worker.Pool, opts ...Option) *Resolver {
	r := &Resolver{
		mem:      mem,
		disk:     disk,
		fetcher:  fetcher,
		dispatch: dispatch,
		pool:     pool,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the image for item if memory or disk has it. Otherwise it
// returns nil at once and starts a background fetch; an ImageReady event for
// item.ID follows once the image is in memory.
func (r *Resolver) Resolve(item gifitem.Item) *gifimage.Image {
	if img := r.local(item); img != nil {
		return img
	}

	if !r.pool.Go(func() { _, _ = r.Fetch(context.Background(), item) }) {
		log.Debugf("fetch not started for %s: worker pool closed", item.ID)
	}
	return nil
}

// ResolveAsync calls onReady on the dispatch goroutine with the image, or with
// nil when the fetch failed.
func (r *Resolver) ResolveAsync(item gifitem.Item, onReady ReadyFn) {
	if img := r.local(item); img != nil {
		r.dispatch.Post(func() { onReady(img) })
		return
	}

	scheduled := r.pool.Go(func() {
		img, err := r.Fetch(context.Background(), item)
		if err != nil {
			img = nil
		}
		r.dispatch.Post(func() { onReady(img) })
	})
	if !scheduled {
		r.dispatch.Post(func() { onReady(nil) })
	}
}

// Local returns the image from memory or disk without touching the network.
func (r *Resolver) Local(item gifitem.Item) *gifimage.Image {
	return r.local(item)
}

func (r *Resolver) local(item gifitem.Item) *gifimage.Image {
	if img, ok := r.mem.Get(item.ID); ok {
		log.Debugf("memory hit: %s", item.ID)
		return img
	}

	if r.disk == nil {
		return nil
	}
	data, ok := r.disk.Read(context.Background(), item.ID)
	if !ok {
		return nil
	}
	img, err := gifimage.Decode(item.ID, data)
	if err != nil {
		log.WithError(err).Debugf("disk copy unusable: %s", item.ID)
		return nil
	}
	r.mem.Put(item.ID, img)
	return img
}

// Fetch downloads item's image, joining any fetch already running for the same
// id. The download itself is detached from ctx: cancelling ctx stops the wait,
// not the download, which still lands in memory.
func (r *Resolver) Fetch(ctx context.Context, item gifitem.Item) (*gifimage.Image, error) {
	detached := context.WithoutCancel(ctx)

	ch := r.group.DoChan(item.ID, func() (any, error) {
		return r.download(detached, item)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debugf("joined in-flight fetch: %s", item.ID)
		}
		return res.Val.(*gifimage.Image), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) download(ctx context.Context, item gifitem.Item) (*gifimage.Image, error) {
	if img, ok := r.mem.Get(item.ID); ok {
		return img, nil
	}
	if item.OriginalImageURL == nil {
		return nil, fmt.Errorf("%w: %s has no url", gifitem.ErrSkip, item.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.fetcher.Fetch(ctx, item.URL())
	if err != nil {
		log.WithError(err).Debugf("fetch failed: %s", item.ID)
		return nil, fmt.Errorf("failed to fetch %s: %w", item.ID, err)
	}

	img, err := gifimage.Decode(item.ID, data)
	if err != nil {
		log.WithError(err).Debugf("fetched bytes unusable: %s", item.ID)
		return nil, err
	}

	r.mem.Put(item.ID, img)
	r.dispatch.Publish(notifier.Event{ID: item.ID, Kind: notifier.ImageReady})
	log.Debugf("fetched %s (%d bytes)", item.ID, len(data))
	return img, nil
}
