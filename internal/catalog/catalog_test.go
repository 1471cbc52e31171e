// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/gifctl/internal/fetch"
)

const listBody = `{
  "data": [
    {"type":"gif","id":"a","images":{"original":{"url":"https://media.example.com/a.gif"}}},
    {"type":"sticker","id":"s","images":{"original":{"url":"https://media.example.com/s.gif"}}},
    {"type":"gif","images":{"original":{"url":"https://media.example.com/noid.gif"}}},
    {"type":"gif","id":"nourl","images":{}},
    {"type":"gif","id":"b","images":{"original":{"url":"https://media.example.com/b.gif"}}}
  ],
  "pagination": {"count": 5}
}`

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cats", "cats"},
		{"Cats42", "Cats42"},
		{"cats & dogs", "cats%20%26%20dogs"},
		{"a-b_c.d~e", "a%2Db%5Fc%2Ed%7Ee"},
		{"é", "%C3%A9"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "Escape(%q)", tt.in)
	}
}

func TestClient_Trending(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte(listBody))
	}))
	defer srv.Close()

	c := New("KEY", WithBaseURL(srv.URL+"/"))
	items, err := c.Trending(context.Background(), Query{})
	require.NoError(t, err)

	assert.Equal(t, "/v1/gifs/trending", gotPath)
	assert.Equal(t, "api_key=KEY&limit=25&rating=g", gotQuery)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "https://media.example.com/b.gif", items[1].URL())
}

func TestClient_Search(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte(listBody))
	}))
	defer srv.Close()

	c := New("KEY", WithBaseURL(srv.URL), WithDefaults(10, "pg", "fr"))

	_, err := c.Search(context.Background(), "  happy cats ", Query{Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, "/v1/gifs/search", gotPath)
	assert.Equal(t, "api_key=KEY&q=happy%20cats&limit=10&offset=20&rating=pg&lang=fr", gotQuery)

	_, err = c.Search(context.Background(), "   ", Query{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "/v1/gifs/trending", gotPath, "blank search lists trending")
	assert.Equal(t, "api_key=KEY&limit=5&rating=pg", gotQuery)
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/gifs/abc":
			_, _ = w.Write([]byte(`{"data":{"type":"gif","id":"abc","images":{"original":{"url":"https://media.example.com/abc.gif"}}}}`))
		case "/v1/gifs/empty":
			_, _ = w.Write([]byte(`{"data":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New("KEY", WithBaseURL(srv.URL))

	item, ok, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", item.ID)

	_, ok, err = c.Get(context.Background(), "empty")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = c.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_StatusIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("KEY", WithBaseURL(srv.URL))
	_, err := c.Trending(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_TransportRetriedOnce(t *testing.T) {
	var calls int32
	flaky := fetch.Func(func(context.Context, string) ([]byte, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("connection reset")
		}
		return []byte(listBody), nil
	})
	c := New("KEY", WithFetcher(flaky))
	items, err := c.Trending(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, 0)
	down := fetch.Func(func(context.Context, string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("no route to host")
	})
	c = New("KEY", WithFetcher(down))
	_, err = c.Trending(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "one try plus one retry")
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(listBody))
	}))
	defer srv.Close()

	c := New("KEY", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := c.Trending(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := New("KEY", WithBaseURL(srv.URL))
	_, err := c.Trending(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrDecode)

	_, _, err = c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestClient_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"status":200}}`))
	}))
	defer srv.Close()

	items, err := New("KEY", WithBaseURL(srv.URL)).Trending(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, items)
}
