// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package gifitem

import (
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
)

// ErrMalformed is returned when a catalog document is not JSON at all.
var ErrMalformed = errors.New("malformed catalog document")

// DecodeCatalog pulls the items out of a catalog list document of the form
// {"data": [ ... ]}. Entries that are not usable gifs are skipped, never fatal.
// A document without a data array yields no items.
func DecodeCatalog(body []byte) ([]Item, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return []Item{}, nil
	}

	items := make([]Item, 0, len(data.Array()))
	data.ForEach(func(_, entry gjson.Result) bool {
		item, err := DecodeEntry(entry)
		if err != nil {
			log.Debugf("skipping catalog entry: %v", err)
			return true
		}
		items = append(items, item)
		return true
	})

	return items, nil
}

// DecodeSingle pulls the item out of a single-entry document of the form
// {"data": { ... }}.
func DecodeSingle(body []byte) (Item, error) {
	if !gjson.ValidBytes(body) {
		return Item{}, ErrMalformed
	}
	return DecodeEntry(gjson.GetBytes(body, "data"))
}

// DecodeEntry converts one catalog entry. It requires type "gif", a string id
// and a valid absolute images.original.url.
func DecodeEntry(entry gjson.Result) (Item, error) {
	if !entry.IsObject() {
		return Item{}, fmt.Errorf("%w: entry is not an object", ErrSkip)
	}

	typ := entry.Get("type")
	if typ.Type != gjson.String || typ.Str != TypeGIF {
		return Item{}, fmt.Errorf("%w: type %q", ErrSkip, typ.String())
	}

	id := entry.Get("id")
	if id.Type != gjson.String {
		return Item{}, fmt.Errorf("%w: missing id", ErrSkip)
	}

	u := entry.Get("images.original.url")
	if u.Type != gjson.String {
		return Item{}, fmt.Errorf("%w: %s has no original url", ErrSkip, id.Str)
	}

	return New(id.Str, u.Str)
}
