// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package favorites keeps the persisted index of favorited GIFs.
//
// The whole index is one JSON object stored under a single settings key,
// mapping item id to a gifitem.Record. Each mutation is a read-modify-write of
// that object, done under the settings store's update lock.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/apex/log"

	"github.com/staranto/gifctl/internal/gifitem"
	"github.com/staranto/gifctl/internal/notifier"
	"github.com/staranto/gifctl/internal/settings"
)

// Key is the settings key holding the index.
const Key = "favorite_gifs"

// errUnchanged aborts an update that would not change anything.
var errUnchanged = errors.New("unchanged")

// Favorite is one decoded entry of the index.
type Favorite struct {
	Item        gifitem.Item
	FavoritedAt time.Time
	// Dated is false when the record carried no usable timestamp.
	Dated bool
}

// BlobWriter persists an image in the background. diskstore.Store is one.
type BlobWriter interface {
	WriteIfAbsent(id string, source *url.URL)
}

// Store is the favorites index.
type Store struct {
	settings settings.Store
	pub      notifier.Publisher
	disk     BlobWriter
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now for stamping new favorites.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store. pub and disk may be nil.
func New(st settings.Store, pub notifier.Publisher, disk BlobWriter, opts ...Option) *Store {
	s := &Store{settings: st, pub: pub, disk: disk, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// index reads the raw mapping. A value that is not a JSON object reads as an
// empty index.
func index(raw []byte, ok bool) map[string]json.RawMessage {
	m := map[string]json.RawMessage{}
	if !ok || len(raw) == 0 {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		log.WithError(err).Warnf("favorites index unreadable, treating as empty")
		return map[string]json.RawMessage{}
	}
	return m
}

func (s *Store) load() map[string]json.RawMessage {
	raw, ok, err := s.settings.Get(context.Background(), Key)
	if err != nil {
		log.WithError(err).Warn("failed to read favorites")
		return map[string]json.RawMessage{}
	}
	return index(raw, ok)
}

// IsFavorited reports whether the index has an entry for id.
func (s *Store) IsFavorited(id string) bool {
	_, ok := s.load()[id]
	return ok
}

// FavoritedAt returns when id was favorited. ok is false when id is not
// favorited or its record has no usable timestamp.
func (s *Store) FavoritedAt(id string) (time.Time, bool) {
	raw, ok := s.load()[id]
	if !ok {
		return time.Time{}, false
	}
	rec, err := gifitem.DecodeRecord(raw)
	if err != nil {
		return time.Time{}, false
	}
	return rec.FavoritedAt()
}

// Add favorites item. It returns false, and changes nothing, when item is
// already favorited. After the index is saved observers are notified and the
// image is queued for a disk copy.
func (s *Store) Add(item gifitem.Item) (bool, error) {
	if item.ID == "" || item.OriginalImageURL == nil {
		return false, fmt.Errorf("%w: incomplete item", gifitem.ErrSkip)
	}

	err := s.settings.Update(context.Background(), Key, func(raw []byte, ok bool) ([]byte, error) {
		m := index(raw, ok)
		if _, exists := m[item.ID]; exists {
			return nil, errUnchanged
		}
		rec, err := json.Marshal(gifitem.NewRecord(item, s.now()))
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		m[item.ID] = rec
		return json.Marshal(m)
	})
	if errors.Is(err, errUnchanged) {
		log.Debugf("already favorited: %s", item.ID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to save favorite %s: %w", item.ID, err)
	}

	log.Debugf("favorited: %s", item.ID)
	s.publish(item.ID)
	if s.disk != nil {
		s.disk.WriteIfAbsent(item.ID, item.OriginalImageURL)
	}
	return true, nil
}

// Remove unfavorites item. It returns false when item was not favorited. The
// disk copy is kept.
func (s *Store) Remove(item gifitem.Item) (bool, error) {
	err := s.settings.Update(context.Background(), Key, func(raw []byte, ok bool) ([]byte, error) {
		m := index(raw, ok)
		if _, exists := m[item.ID]; !exists {
			return nil, errUnchanged
		}
		delete(m, item.ID)
		return json.Marshal(m)
	})
	if errors.Is(err, errUnchanged) {
		log.Debugf("not favorited: %s", item.ID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite %s: %w", item.ID, err)
	}

	log.Debugf("unfavorited: %s", item.ID)
	s.publish(item.ID)
	return true, nil
}

func (s *Store) publish(id string) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(notifier.Event{ID: id, Kind: notifier.FavoriteChanged})
}

// List returns every decodable favorite, newest first. Entries without a
// timestamp come before all dated ones, ordered by id. Undecodable entries are
// skipped.
func (s *Store) List() []Favorite {
	m := s.load()

	favs := make([]Favorite, 0, len(m))
	for id, raw := range m {
		rec, err := gifitem.DecodeRecord(raw)
		if err != nil {
			log.WithError(err).Debugf("skipping favorite %s", id)
			continue
		}
		item, err := rec.Item()
		if err != nil {
			log.WithError(err).Debugf("skipping favorite %s", id)
			continue
		}
		at, dated := rec.FavoritedAt()
		favs = append(favs, Favorite{Item: item, FavoritedAt: at, Dated: dated})
	}

	sort.SliceStable(favs, func(i, j int) bool {
		a, b := favs[i], favs[j]
		switch {
		case a.Dated && b.Dated:
			if !a.FavoritedAt.Equal(b.FavoritedAt) {
				return a.FavoritedAt.After(b.FavoritedAt)
			}
			return a.Item.ID < b.Item.ID
		case a.Dated != b.Dated:
			return !a.Dated
		default:
			return a.Item.ID < b.Item.ID
		}
	})

	return favs
}

