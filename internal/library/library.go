// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package library wires the favorites index, the image tiers and the catalog
// client into the one surface commands use.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"

	awsx "github.com/staranto/gifctl/internal/aws"
	"github.com/staranto/gifctl/internal/cacheutil"
	"github.com/staranto/gifctl/internal/catalog"
	"github.com/staranto/gifctl/internal/config"
	"github.com/staranto/gifctl/internal/diskstore"
	"github.com/staranto/gifctl/internal/favorites"
	"github.com/staranto/gifctl/internal/fetch"
	"github.com/staranto/gifctl/internal/gifimage"
	"github.com/staranto/gifctl/internal/gifitem"
	"github.com/staranto/gifctl/internal/memcache"
	"github.com/staranto/gifctl/internal/notifier"
	"github.com/staranto/gifctl/internal/resolver"
	"github.com/staranto/gifctl/internal/settings"
	"github.com/staranto/gifctl/internal/worker"
)

var (
	// ErrNoAPIKey is returned by catalog calls when no key is configured.
	ErrNoAPIKey = errors.New("no api key configured, set GIFCTL_API_KEY or api.key")
	// ErrNoWatch is returned by Watch for stores that cannot report changes.
	ErrNoWatch = errors.New("settings backend cannot be watched")
)

// Options are the inputs to New. Nil collaborators are built from Settings.
type Options struct {
	Settings config.Settings

	Store   settings.Store
	Blobs   diskstore.Blobs
	Fetcher fetch.Fetcher
	Clock   func() time.Time
}

// Library owns every long-lived component. Close it to flush background work.
type Library struct {
	cfg config.Settings

	store    settings.Store
	notify   *notifier.Notifier
	pool     *worker.Pool
	mem      *memcache.Cache
	disk     *diskstore.Store
	favs     *favorites.Store
	resolver *resolver.Resolver
	catalog  *catalog.Client
}

// New builds a Library. It opens the settings store and blob backend but does
// no network I/O.
func New(ctx context.Context, opts Options) (*Library, error) {
	cfg := opts.Settings

	store := opts.Store
	if store == nil {
		var err error
		if store, err = openStore(cfg); err != nil {
			return nil, err
		}
	}

	blobs := opts.Blobs
	if blobs == nil {
		var err error
		if blobs, err = openBlobs(ctx, cfg); err != nil {
			store.Close()
			return nil, err
		}
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(cfg.FetchTimeout)
	}

	mem, err := memcache.New(cfg.MemoryEntries)
	if err != nil {
		store.Close()
		return nil, err
	}

	l := &Library{
		cfg:    cfg,
		store:  store,
		notify: notifier.New(),
		pool:   worker.New(cfg.Workers),
		mem:    mem,
	}

	l.disk = diskstore.New(blobs, fetcher, l.pool, diskstore.WithWriteTimeout(cfg.FetchTimeout))

	var favOpts []favorites.Option
	if opts.Clock != nil {
		favOpts = append(favOpts, favorites.WithClock(opts.Clock))
	}
	l.favs = favorites.New(store, l.notify, l.disk, favOpts...)

	// A disabled cache keeps writing favorites to disk but resolves around it.
	var disk resolver.Disk = l.disk
	if !cacheutil.Enabled() {
		log.Debug("disk tier bypassed for resolving")
		disk = nil
	}
	l.resolver = resolver.New(l.mem, disk, fetcher, l.notify, l.pool, resolver.WithTimeout(cfg.FetchTimeout))

	l.catalog = catalog.New(cfg.APIKey,
		catalog.WithBaseURL(cfg.BaseURL),
		catalog.WithDefaults(cfg.Limit, cfg.Rating, cfg.Lang),
		catalog.WithTimeout(cfg.Timeout),
	)

	return l, nil
}

func openStore(cfg config.Settings) (settings.Store, error) {
	switch cfg.SettingsBackend {
	case "sqlite":
		return settings.OpenSQLite(cfg.SettingsPath)
	case "file", "":
		return settings.OpenFile(cfg.SettingsPath)
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.SettingsBackend)
	}
}

func openBlobs(ctx context.Context, cfg config.Settings) (diskstore.Blobs, error) {
	switch cfg.StoreBackend {
	case "s3":
		client, err := awsx.Connect(ctx,
			awsx.WithProfile(cfg.S3Profile),
			awsx.WithRegion(cfg.S3Region),
			awsx.WithEndpoint(cfg.S3Endpoint),
		)
		if err != nil {
			return nil, err
		}
		return diskstore.NewS3(client, cfg.S3Bucket, cfg.S3Prefix), nil
	case "dir", "":
		dir, _, err := cacheutil.EnsureBaseDir(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		if dir == "" {
			dir = cfg.StoreDir
		}
		return diskstore.NewDir(dir), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// LocalImage returns item's image if memory or disk has it. Otherwise it
// returns nil and starts fetching; subscribers of item.ID get ImageReady.
func (l *Library) LocalImage(item gifitem.Item) *gifimage.Image {
	return l.resolver.Resolve(item)
}

// ResolveImage calls onReady, on the notification goroutine, with item's
// image or nil.
func (l *Library) ResolveImage(item gifitem.Item, onReady resolver.ReadyFn) {
	l.resolver.ResolveAsync(item, onReady)
}

// FetchImage waits for item's image.
func (l *Library) FetchImage(ctx context.Context, item gifitem.Item) (*gifimage.Image, error) {
	if img := l.resolver.Local(item); img != nil {
		return img, nil
	}
	return l.resolver.Fetch(ctx, item)
}

func (l *Library) IsFavorited(item gifitem.Item) bool {
	return l.favs.IsFavorited(item.ID)
}

func (l *Library) AddToFavorite(item gifitem.Item) (bool, error) {
	return l.favs.Add(item)
}

func (l *Library) RemoveFromFavorite(item gifitem.Item) (bool, error) {
	return l.favs.Remove(item)
}

// Favorites lists the index, newest first.
func (l *Library) Favorites() []favorites.Favorite {
	return l.favs.List()
}

// Subscribe registers fn for an item id or notifier.AnyFavorite.
func (l *Library) Subscribe(topic string, fn notifier.CallbackFn) notifier.Subscription {
	return l.notify.Subscribe(topic, fn)
}

// BlobPath is where item id's disk copy lives.
func (l *Library) BlobPath(id string) string {
	return l.disk.Path(id)
}

// HasBlob reports whether id has a disk copy.
func (l *Library) HasBlob(ctx context.Context, id string) bool {
	return l.disk.Exists(ctx, id)
}

func (l *Library) Trending(ctx context.Context, q catalog.Query) ([]gifitem.Item, error) {
	if l.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return l.catalog.Trending(ctx, q)
}

func (l *Library) Search(ctx context.Context, term string, q catalog.Query) ([]gifitem.Item, error) {
	if l.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return l.catalog.Search(ctx, term, q)
}

// Lookup finds the item for id, in the favorites index first and then in the
// catalog.
func (l *Library) Lookup(ctx context.Context, id string) (gifitem.Item, bool, error) {
	for _, f := range l.favs.List() {
		if f.Item.ID == id {
			return f.Item, true, nil
		}
	}
	if l.cfg.APIKey == "" {
		return gifitem.Item{}, false, ErrNoAPIKey
	}
	return l.catalog.Get(ctx, id)
}

// Watch publishes a list-level FavoriteChanged whenever the settings store is
// changed by another process. It blocks until ctx is done.
func (l *Library) Watch(ctx context.Context) error {
	w, ok := l.store.(settings.Watcher)
	if !ok {
		return ErrNoWatch
	}
	return w.Watch(ctx, func() {
		log.Debug("favorites changed outside this process")
		l.notify.Publish(notifier.Event{Kind: notifier.FavoriteChanged})
	})
}

// Close waits for background writes and fetches, delivers pending
// notifications and closes the settings store.
func (l *Library) Close() error {
	l.pool.Wait()
	l.notify.Close()
	return l.store.Close()
}
