// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.gif":
			assert.Equal(t, "gifctl", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("GIF89a"))
		case "/slow.gif":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(0)

	got, err := c.Fetch(context.Background(), srv.URL+"/ok.gif")
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), got)

	_, err = c.Fetch(context.Background(), srv.URL+"/missing.gif")
	assert.ErrorIs(t, err, ErrStatus)

	short := New(20 * time.Millisecond)
	_, err = short.Fetch(context.Background(), srv.URL+"/slow.gif")
	assert.Error(t, err)

	_, err = c.Fetch(context.Background(), "::bad::")
	assert.Error(t, err)
}

func TestClient_FetchRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 16)))
	}))
	defer srv.Close()

	c := New(0)
	c.MaxBody = 16
	got, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, got, 16)

	c.MaxBody = 15
	got, err = c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Nil(t, got)
}

func TestFunc(t *testing.T) {
	f := Func(func(_ context.Context, url string) ([]byte, error) {
		return []byte(url), nil
	})
	got, err := f.Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
