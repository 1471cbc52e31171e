// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/gifctl/internal/config"
	"github.com/staranto/gifctl/internal/favorites"
	"github.com/staranto/gifctl/internal/fetch"
	"github.com/staranto/gifctl/internal/gifimage"
	"github.com/staranto/gifctl/internal/library"
	"github.com/staranto/gifctl/internal/meta"
	"github.com/staranto/gifctl/internal/settings"
)

func gifJSON(id string) string {
	return fmt.Sprintf(`{"type":"gif","id":%q,"images":{"original":{"url":"https://media.example.com/%s/giphy.gif"}}}`, id, id)
}

type harness struct {
	settings config.Settings
	fetches  *int32
	paths    chan string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("GIFCTL_CFG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("GIFCTL_CACHE", "")

	h := &harness{fetches: new(int32), paths: make(chan string, 16)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case h.paths <- r.URL.Path + "?" + r.URL.RawQuery:
		default:
		}
		switch r.URL.Path {
		case "/v1/gifs/trending":
			fmt.Fprintf(w, `{"data":[%s,%s]}`, gifJSON("t1"), gifJSON("t2"))
		case "/v1/gifs/search":
			fmt.Fprintf(w, `{"data":[%s,{"type":"sticker","id":"s2"}]}`, gifJSON("s1"))
		case "/v1/gifs/c1":
			fmt.Fprintf(w, `{"data":%s}`, gifJSON("c1"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	h.settings = config.Settings{
		APIKey:          "key",
		BaseURL:         srv.URL,
		Limit:           25,
		Rating:          "g",
		Lang:            "en",
		Timeout:         time.Second,
		FetchTimeout:    time.Second,
		MemoryEntries:   8,
		Workers:         2,
		StoreBackend:    "dir",
		StoreDir:        filepath.Join(dir, "blobs"),
		SettingsBackend: "file",
		SettingsPath:    filepath.Join(dir, "settings.json"),
	}

	orig := openLibrary
	openLibrary = func(ctx context.Context, m meta.Meta) (*library.Library, error) {
		return library.New(ctx, library.Options{
			Settings: m.Settings,
			Fetcher: fetch.Func(func(context.Context, string) ([]byte, error) {
				atomic.AddInt32(h.fetches, 1)
				return gifimage.Sample(), nil
			}),
		})
	}
	t.Cleanup(func() { openLibrary = orig })

	return h
}

// run executes one gifctl invocation and returns stdout and stderr.
func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	args = append([]string{"gifctl"}, args...)

	app, err := InitApp(context.Background(), args, h.settings)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut

	err = app.Run(context.Background(), args)
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := h.run(t, args...)
	require.NoError(t, err)
	return out
}

func TestTrending(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "trending", "-o", "json", "-l", "2", "-r", "pg")
	assert.JSONEq(t, `[
		{"id":"t1","url":"https://media.example.com/t1/giphy.gif","favorited":false},
		{"id":"t2","url":"https://media.example.com/t2/giphy.gif","favorited":false}
	]`, out)

	got := <-h.paths
	assert.Contains(t, got, "/v1/gifs/trending?")
	assert.Contains(t, got, "limit=2")
	assert.Contains(t, got, "rating=pg")

	_, _, err := h.run(t, "trending", "-r", "nc-17")
	assert.Error(t, err)

	_, _, err = h.run(t, "trending", "-o", "xml")
	assert.Error(t, err)
}

func TestTrending_NoAPIKey(t *testing.T) {
	h := newHarness(t)
	h.settings.APIKey = ""

	_, _, err := h.run(t, "trending")
	assert.ErrorIs(t, err, library.ErrNoAPIKey)
}

func TestSearch(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "search", "-o", "json", "-a", "id", "--offset", "5", "happy", "dance")
	assert.JSONEq(t, `[{"id":"s1","url":"https://media.example.com/s1/giphy.gif","favorited":false}]`, out)

	got := <-h.paths
	assert.Contains(t, got, "/v1/gifs/search?")
	assert.Contains(t, got, "q=happy%20dance")
	assert.Contains(t, got, "offset=5")

	// No term lists trending.
	out = h.mustRun(t, "search", "-o", "json", "-a", "id")
	assert.Contains(t, out, `"t1"`)
	assert.Contains(t, <-h.paths, "/v1/gifs/trending?")
}

func TestFavLifecycle(t *testing.T) {
	h := newHarness(t)
	blob := filepath.Join(h.settings.StoreDir, "x1.gif")

	out := h.mustRun(t, "fav", "add", "--url", "https://media.example.com/x1.gif", "x1")
	assert.Equal(t, "added x1\n", out)
	assert.FileExists(t, blob, "blob is written before the command returns")
	assert.EqualValues(t, 1, atomic.LoadInt32(h.fetches))

	out = h.mustRun(t, "fav", "add", "--url", "https://media.example.com/x1.gif", "x1")
	assert.Equal(t, "x1 is already a favorite\n", out)
	assert.EqualValues(t, 1, atomic.LoadInt32(h.fetches))

	// Looked up in the catalog.
	out = h.mustRun(t, "fav", "add", "c1")
	assert.Equal(t, "added c1\n", out)

	out = h.mustRun(t, "fav", "ls", "-o", "json")
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, true, row["local"])
		assert.NotEmpty(t, row["favorited"])
		assert.NotContains(t, row, "path")
	}

	out = h.mustRun(t, "fav", "ls", "-o", "json", "-f", "id=x1", "-a", "path")
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, blob, rows[0]["path"])

	out = h.mustRun(t, "fav", "rm", "x1")
	assert.Equal(t, "removed x1\n", out)
	out = h.mustRun(t, "fav", "rm", "x1")
	assert.Equal(t, "x1 is not a favorite\n", out)
	assert.FileExists(t, blob, "removing a favorite keeps its blob")

	out = h.mustRun(t, "fav", "ls", "-o", "json", "-a", "id")
	assert.Contains(t, out, `"c1"`)
	assert.NotContains(t, out, `"x1"`)
}

func TestFavRm_UndatedEntry(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "fav", "add", "--url", "https://media.example.com/x1.gif", "x1")

	st, err := settings.OpenFile(h.settings.SettingsPath)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Update(context.Background(), favorites.Key, func(raw []byte, _ bool) ([]byte, error) {
		m := map[string]json.RawMessage{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		m["badts"] = json.RawMessage(`{"type":"gif","id":"badts","images":{"original":{"url":"https://media.example.com/b.gif"}},"dateFavorited":"yesterday"}`)
		return json.Marshal(m)
	}))

	out := h.mustRun(t, "fav", "ls", "-o", "json", "-a", "id")
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "badts", rows[0]["id"], "undated entries list first")
	assert.Nil(t, rows[0]["favorited"])

	out = h.mustRun(t, "fav", "rm", "badts")
	assert.Equal(t, "removed badts\n", out)
	out = h.mustRun(t, "fav", "ls", "-o", "json", "-a", "id")
	assert.NotContains(t, out, `"badts"`)
}

func TestFavAdd_Errors(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run(t, "fav", "add")
	assert.Error(t, err)

	_, _, err = h.run(t, "fav", "add", "nope")
	assert.Error(t, err)

	_, _, err = h.run(t, "fav", "add", "--url", "not-a-url", "x1")
	assert.Error(t, err)
}

func TestFavWatch_StopsWithContext(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "fav", "add", "--url", "https://media.example.com/x1.gif", "x1")

	args := []string{"gifctl", "fav", "watch", "-o", "json", "-a", "id"}
	app, err := InitApp(context.Background(), args, h.settings)
	require.NoError(t, err)
	var out bytes.Buffer
	app.Writer = &out

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Run(ctx, args))
	assert.Contains(t, out.String(), `"x1"`)
}

func TestImageGet(t *testing.T) {
	h := newHarness(t)
	url := "https://media.example.com/i1.gif"

	// Not local yet.
	out, errOut, err := h.run(t, "image", "get", "--url", url, "i1")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, downloadingMessage+"\n", errOut)

	out = h.mustRun(t, "image", "get", "--url", url, "--wait", "-o", "json", "i1")
	assert.JSONEq(t, `[{"id":"i1","frames":2,"width":2,"height":2,"bytes":`+
		fmt.Sprint(len(gifimage.Sample()))+`}]`, out)

	dst := filepath.Join(t.TempDir(), "i1.gif")
	h.mustRun(t, "image", "get", "--url", url, "--wait", "--out", dst, "i1")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, gifimage.Sample(), data)

	out = h.mustRun(t, "image", "get", "--url", url, "-w", "--out", "-", "i1")
	assert.Equal(t, string(gifimage.Sample()), out)
}

func TestImageGet_FromDisk(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "fav", "add", "--url", "https://media.example.com/x1.gif", "x1")
	before := atomic.LoadInt32(h.fetches)

	out := h.mustRun(t, "image", "get", "-o", "json", "-a", "local,favorited", "x1")
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, true, rows[0]["local"])
	assert.Equal(t, true, rows[0]["favorited"])
	assert.Equal(t, before, atomic.LoadInt32(h.fetches), "disk hit needs no fetch")
}

func TestExamples(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "trending", "--examples")
	assert.Contains(t, out, "gifctl trending -l 5 -r pg")
}

func TestCompletion(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun(t, "completion", "bash"), "complete -F _gifctl gifctl")
	assert.Contains(t, h.mustRun(t, "completion", "zsh"), "compdef _gifctl gifctl")

	t.Setenv("SHELL", "/bin/fish")
	_, errOut, err := h.run(t, "completion")
	require.NoError(t, err)
	assert.Contains(t, errOut, "usage: gifctl completion")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, OutputValidator("yaml"))
	assert.Error(t, OutputValidator("xml"))

	assert.NoError(t, RatingValidator(""))
	assert.NoError(t, RatingValidator("pg-13"))
	assert.Error(t, RatingValidator("x"))

	assert.NoError(t, LimitValidator(0))
	assert.NoError(t, LimitValidator(50))
	assert.Error(t, LimitValidator(51))
	assert.Error(t, LimitValidator(-1))

	assert.Error(t, OffsetValidator(-1))

	assert.NoError(t, URLValidator(""))
	assert.NoError(t, URLValidator("https://media.example.com/a.gif"))
	assert.Error(t, URLValidator("/relative.gif"))

	assert.Error(t, JammedFlagValidator("--output"))
	assert.NoError(t, FlagValidators("text", JammedFlagValidator, OutputValidator))
}
