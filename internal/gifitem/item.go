// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package gifitem

import (
	"errors"
	"fmt"
	"net/url"
)

// TypeGIF is the only catalog entry type gifctl understands.
const TypeGIF = "gif"

// ErrSkip marks a catalog entry or persisted record that cannot be turned into
// an Item. Callers drop such entries and keep going.
var ErrSkip = errors.New("not a usable gif entry")

// Item is a single catalog GIF. It is immutable once constructed and its
// identity is ID alone.
type Item struct {
	ID               string
	OriginalImageURL *url.URL
}

// New validates id and rawURL and returns an Item. rawURL must be absolute.
func New(id, rawURL string) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("%w: missing id", ErrSkip)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Item{}, fmt.Errorf("%w: bad url %q: %v", ErrSkip, rawURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return Item{}, fmt.Errorf("%w: url %q is not absolute", ErrSkip, rawURL)
	}
	return Item{ID: id, OriginalImageURL: u}, nil
}

// MustNew is New for literals known to be valid. It panics otherwise.
func MustNew(id, rawURL string) Item {
	it, err := New(id, rawURL)
	if err != nil {
		panic(err)
	}
	return it
}

// Key returns the cache and filename key for the item.
func (i Item) Key() string {
	return i.ID
}

// Equal reports whether two items are the same catalog entity. Only the ID is
// compared.
func (i Item) Equal(other Item) bool {
	return i.ID == other.ID
}

// URL returns the original image URL as a string, or "" when unset.
func (i Item) URL() string {
	if i.OriginalImageURL == nil {
		return ""
	}
	return i.OriginalImageURL.String()
}

func (i Item) String() string {
	return i.ID
}
