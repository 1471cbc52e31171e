// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBadKey is returned for keys that cannot be used as a single file name.
var ErrBadKey = errors.New("key is not a usable file name")

// Dir resolves the scratch directory that holds cached blobs.
// Precedence:
//  1. GIFCTL_CACHE_DIR, if set and non-empty
//  2. os.TempDir()/gifctl
//
// The temp dir is not often purged by the OS, which is good enough for a
// cache that can always be refilled from the network.
func Dir() string {
	if c, ok := os.LookupEnv("GIFCTL_CACHE_DIR"); ok && c != "" {
		return c
	}
	return filepath.Join(os.TempDir(), "gifctl")
}

// Enabled returns true unless GIFCTL_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("GIFCTL_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureBaseDir creates base (or Dir() when base is empty) if caching is
// enabled. Returns the path, whether it is usable, and an error if creation
// failed.
func EnsureBaseDir(base string) (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	if base == "" {
		base = Dir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// BlobName returns the file name for key with ext appended. The key is used
// verbatim so the name stays a pure function of it; keys that would escape the
// directory are refused.
func BlobName(key, ext string) (string, error) {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || strings.ContainsRune(key, 0) {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return key + ext, nil
}
