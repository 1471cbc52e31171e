// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package gifitem

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		url     string
		wantErr bool
	}{
		{name: "valid", id: "abc", url: "https://media.giphy.com/media/abc/giphy.gif"},
		{name: "missing id", id: "", url: "https://media.giphy.com/a.gif", wantErr: true},
		{name: "relative url", id: "abc", url: "/media/abc.gif", wantErr: true},
		{name: "garbage url", id: "abc", url: "://nope", wantErr: true},
		{name: "no host", id: "abc", url: "file:///tmp/a.gif", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := New(tt.id, tt.url)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrSkip))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, item.ID)
			assert.Equal(t, tt.url, item.URL())
		})
	}
}

func TestItem_EqualByID(t *testing.T) {
	a := MustNew("abc", "https://example.com/one.gif")
	b := MustNew("abc", "https://example.com/two.gif")
	c := MustNew("xyz", "https://example.com/one.gif")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Key(), b.Key())
}

func TestRecord_RoundTrip(t *testing.T) {
	item := MustNew("abc", "https://media.giphy.com/media/abc/giphy.gif?cid=1&rid=2")
	at := time.Unix(1700000000, 0)

	raw, err := json.Marshal(NewRecord(item, at))
	require.NoError(t, err)

	rec, err := DecodeRecord(raw)
	require.NoError(t, err)

	got, err := rec.Item()
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.URL(), got.URL())

	ts, ok := rec.FavoritedAt()
	assert.True(t, ok)
	assert.Equal(t, at.Unix(), ts.Unix())
}

func TestRecord_Layout(t *testing.T) {
	item := MustNew("abc", "https://example.com/a.gif")
	raw, err := json.Marshal(NewRecord(item, time.Unix(10, 500000000)))
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"type":"gif","id":"abc","images":{"original":{"url":"https://example.com/a.gif"}},"dateFavorited":10.5}`,
		string(raw))
}

func TestRecord_Skips(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "sticker", raw: `{"type":"sticker","id":"a","images":{"original":{"url":"https://e.com/a.gif"}}}`},
		{name: "no id", raw: `{"type":"gif","images":{"original":{"url":"https://e.com/a.gif"}}}`},
		{name: "no url", raw: `{"type":"gif","id":"a","images":{}}`},
		{name: "not an object", raw: `"just a string"`},
		{name: "wrong field type", raw: `{"type":"gif","id":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeRecord([]byte(tt.raw))
			if err == nil {
				_, err = rec.Item()
			}
			assert.True(t, errors.Is(err, ErrSkip), "got %v", err)
		})
	}
}

func TestRecord_FavoritedAtAbsent(t *testing.T) {
	zero := 0.0
	for _, rec := range []Record{{}, {DateFavorited: &zero}} {
		_, ok := rec.FavoritedAt()
		assert.False(t, ok)
	}
}

func TestDecodeRecord_BadTimestampIsUndated(t *testing.T) {
	for _, ts := range []string{`"yesterday"`, `true`, `{}`, `[1]`, `null`} {
		raw := `{"type":"gif","id":"a","images":{"original":{"url":"https://e.com/a.gif"}},"dateFavorited":` + ts + `}`
		rec, err := DecodeRecord([]byte(raw))
		require.NoError(t, err, ts)

		item, err := rec.Item()
		require.NoError(t, err, ts)
		assert.Equal(t, "a", item.ID)

		_, ok := rec.FavoritedAt()
		assert.False(t, ok, ts)
	}
}

func TestDecodeCatalog(t *testing.T) {
	body := `{
	  "data": [
	    {"type": "gif", "id": "good1", "images": {"original": {"url": "https://media.giphy.com/good1.gif"}}},
	    {"type": "sticker", "id": "sticker1", "images": {"original": {"url": "https://media.giphy.com/s.gif"}}},
	    {"type": "gif", "id": "nourl", "images": {"original": {}}},
	    {"type": "gif", "images": {"original": {"url": "https://media.giphy.com/noid.gif"}}},
	    {"type": "gif", "id": "badurl", "images": {"original": {"url": "not a url"}}},
	    "garbage",
	    {"type": "gif", "id": "good2", "images": {"original": {"url": "https://media.giphy.com/good2.gif"}}}
	  ],
	  "pagination": {"count": 7}
	}`

	items, err := DecodeCatalog([]byte(body))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "good1", items[0].ID)
	assert.Equal(t, "good2", items[1].ID)
}

func TestDecodeCatalog_Edges(t *testing.T) {
	items, err := DecodeCatalog([]byte(`{"meta":{"status":200}}`))
	assert.NoError(t, err)
	assert.Empty(t, items)

	_, err = DecodeCatalog([]byte(`{"data": [`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeSingle(t *testing.T) {
	item, err := DecodeSingle([]byte(`{"data":{"type":"gif","id":"one","images":{"original":{"url":"https://e.com/1.gif"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, "one", item.ID)

	_, err = DecodeSingle([]byte(`{"data":[]}`))
	assert.ErrorIs(t, err, ErrSkip)
}
