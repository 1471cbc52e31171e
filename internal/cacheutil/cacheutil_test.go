// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cacheutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir(t *testing.T) {
	t.Setenv("GIFCTL_CACHE_DIR", "/somewhere/else")
	assert.Equal(t, "/somewhere/else", Dir())

	t.Setenv("GIFCTL_CACHE_DIR", "")
	assert.Equal(t, filepath.Join(os.TempDir(), "gifctl"), Dir())
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"1", true},
		{"true", true},
		{"0", false},
		{"false", false},
	}
	for _, tt := range tests {
		t.Setenv("GIFCTL_CACHE", tt.value)
		assert.Equal(t, tt.want, Enabled(), "GIFCTL_CACHE=%q", tt.value)
	}
}

func TestEnsureBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "a", "b")

	got, ok, err := EnsureBaseDir(base)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base, got)
	assert.DirExists(t, base)

	t.Setenv("GIFCTL_CACHE", "0")
	_, ok, err = EnsureBaseDir(base)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobName(t *testing.T) {
	name, err := BlobName("3o7TKSjRrfIPjeiVyM", ".gif")
	require.NoError(t, err)
	assert.Equal(t, "3o7TKSjRrfIPjeiVyM.gif", name)

	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "../etc/passwd", "a\x00b"} {
		_, err := BlobName(bad, ".gif")
		assert.ErrorIs(t, err, ErrBadKey, "key %q", bad)
	}
}
