// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package diskstore

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/gifctl/internal/fetch"
	"github.com/staranto/gifctl/internal/worker"
)

// countingFetcher serves body for every url and counts calls. When gate is
// non-nil each call blocks until it is closed.
type countingFetcher struct {
	calls int32
	body  []byte
	err   error
	gate  chan struct{}
}

func (f *countingFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.body, f.err
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestStore_Path(t *testing.T) {
	root := t.TempDir()
	s := New(NewDir(root), nil, worker.New(1))

	assert.Equal(t, filepath.Join(root, "abc.gif"), s.Path("abc"))
	assert.Equal(t, s.Path("abc"), s.Path("abc"))
	assert.Empty(t, s.Path("../abc"))
	assert.Empty(t, s.Path(""))
}

func TestStore_ReadMissing(t *testing.T) {
	s := New(NewDir(t.TempDir()), nil, worker.New(1))

	data, ok := s.Read(context.Background(), "nope")
	assert.False(t, ok)
	assert.Nil(t, data)

	_, ok = s.Read(context.Background(), "a/b")
	assert.False(t, ok)
	assert.False(t, s.Exists(context.Background(), "nope"))
}

func TestStore_ReadEmptyBlobIsMiss(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty.gif"), nil, 0o600))
	s := New(NewDir(root), nil, worker.New(1))

	_, ok := s.Read(context.Background(), "empty")
	assert.False(t, ok)
}

func TestStore_WriteIfAbsent(t *testing.T) {
	root := t.TempDir()
	f := &countingFetcher{body: []byte("GIF89a-bytes")}
	pool := worker.New(2)
	s := New(NewDir(root), f, pool)

	s.WriteIfAbsent("abc", mustURL(t, "https://media.example.com/abc/giphy.gif"))
	pool.Idle()

	data, ok := s.Read(context.Background(), "abc")
	require.True(t, ok)
	assert.Equal(t, []byte("GIF89a-bytes"), data)
	assert.True(t, s.Exists(context.Background(), "abc"))

	// Present already, so no second fetch.
	s.WriteIfAbsent("abc", mustURL(t, "https://media.example.com/abc/giphy.gif"))
	pool.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestStore_WriteIfAbsentReturnsImmediately(t *testing.T) {
	f := &countingFetcher{body: []byte("x"), gate: make(chan struct{})}
	pool := worker.New(1)
	s := New(NewDir(t.TempDir()), f, pool)

	done := make(chan struct{})
	go func() {
		s.WriteIfAbsent("slow", mustURL(t, "https://media.example.com/slow.gif"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WriteIfAbsent blocked on the fetch")
	}

	close(f.gate)
	pool.Wait()
	assert.True(t, s.Exists(context.Background(), "slow"))
}

func TestStore_ConcurrentWritesShareOneFetch(t *testing.T) {
	f := &countingFetcher{body: []byte("once"), gate: make(chan struct{})}
	pool := worker.New(8)
	s := New(NewDir(t.TempDir()), f, pool)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.WriteIfAbsent("same", mustURL(t, "https://media.example.com/same.gif"))
		}()
	}
	wg.Wait()

	// Let the in-flight fetch gather its followers before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	pool.Wait()

	data, ok := s.Read(context.Background(), "same")
	require.True(t, ok)
	assert.Equal(t, []byte("once"), data)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestStore_WriteFailureIsSwallowed(t *testing.T) {
	f := &countingFetcher{err: fetch.ErrStatus}
	pool := worker.New(1)
	s := New(NewDir(t.TempDir()), f, pool)

	s.WriteIfAbsent("broken", mustURL(t, "https://media.example.com/broken.gif"))
	s.WriteIfAbsent("no-url", nil)
	s.WriteIfAbsent("../escape", mustURL(t, "https://media.example.com/x.gif"))
	pool.Wait()

	assert.False(t, s.Exists(context.Background(), "broken"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestStore_WriteAfterPoolClosed(t *testing.T) {
	f := &countingFetcher{body: []byte("x")}
	pool := worker.New(1)
	pool.Wait()
	s := New(NewDir(t.TempDir()), f, pool)

	s.WriteIfAbsent("late", mustURL(t, "https://media.example.com/late.gif"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.calls))
}

func TestStore_WriteTimeout(t *testing.T) {
	f := &countingFetcher{gate: make(chan struct{})}
	pool := worker.New(1)
	s := New(NewDir(t.TempDir()), f, pool, WithWriteTimeout(20*time.Millisecond))

	s.WriteIfAbsent("stuck", mustURL(t, "https://media.example.com/stuck.gif"))
	pool.Wait()

	assert.False(t, s.Exists(context.Background(), "stuck"))
	close(f.gate)
}

func TestDir_Put(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested")
	d := NewDir(root)
	ctx := context.Background()

	_, err := d.Get(ctx, "a.gif")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, d.Put(ctx, "a.gif", []byte("one")))
	require.NoError(t, d.Put(ctx, "a.gif", []byte("two")))

	data, err := d.Get(ctx, "a.gif")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}
