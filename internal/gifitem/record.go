// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package gifitem

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Record is the persisted form of a favorite. The layout mirrors a catalog
// entry plus the time it was favorited, in epoch seconds.
type Record struct {
	Type          string   `json:"type"`
	ID            string   `json:"id"`
	Images        Images   `json:"images"`
	DateFavorited *float64 `json:"dateFavorited,omitempty"`
}

// Images holds the renditions of a record. Only the original is kept.
type Images struct {
	Original Rendition `json:"original"`
}

// Rendition is one image rendition.
type Rendition struct {
	URL string `json:"url"`
}

// NewRecord encodes item as a favorite record stamped with t.
func NewRecord(item Item, t time.Time) Record {
	secs := float64(t.UnixNano()) / float64(time.Second)
	return Record{
		Type:          TypeGIF,
		ID:            item.ID,
		Images:        Images{Original: Rendition{URL: item.URL()}},
		DateFavorited: &secs,
	}
}

// Item decodes the record back into an Item. Records that are not gifs, or that
// lack an id or a usable url, return ErrSkip.
func (r Record) Item() (Item, error) {
	if r.Type != TypeGIF {
		return Item{}, fmt.Errorf("%w: type %q", ErrSkip, r.Type)
	}
	return New(r.ID, r.Images.Original.URL)
}

// FavoritedAt returns the favoriting time. A missing, non-finite or
// non-positive timestamp is reported as absent.
func (r Record) FavoritedAt() (time.Time, bool) {
	if r.DateFavorited == nil {
		return time.Time{}, false
	}
	v := *r.DateFavorited
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))), true
}

// DecodeRecord unmarshals one persisted value. Anything that is not a JSON
// object with the record shape returns ErrSkip. A dateFavorited that is not a
// number decodes as absent rather than failing the record.
func DecodeRecord(raw []byte) (Record, error) {
	var wire struct {
		Type          string          `json:"type"`
		ID            string          `json:"id"`
		Images        Images          `json:"images"`
		DateFavorited json.RawMessage `json:"dateFavorited"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrSkip, err)
	}

	r := Record{Type: wire.Type, ID: wire.ID, Images: wire.Images}
	var secs float64
	if len(wire.DateFavorited) > 0 && json.Unmarshal(wire.DateFavorited, &secs) == nil {
		r.DateFavorited = &secs
	}
	return r, nil
}
