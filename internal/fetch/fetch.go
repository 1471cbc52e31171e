// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package fetch performs the plain HTTP GETs used to pull image bytes and
// catalog documents.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultTimeout bounds a single request, body included.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBody caps how much of a response is read.
	DefaultMaxBody = 64 << 20
)

var (
	// ErrStatus is returned for any response other than 200 OK.
	ErrStatus = errors.New("unexpected http status")
	// ErrTooLarge is returned for a body longer than the client's limit.
	ErrTooLarge = errors.New("response body too large")
)

// Fetcher retrieves the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client is the HTTP Fetcher.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	// MaxBody is the longest body accepted. Zero means DefaultMaxBody.
	MaxBody int64
}

// New returns a Client whose requests time out after timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: "gifctl",
		MaxBody:   DefaultMaxBody,
	}
}

// Fetch GETs url and returns the whole body. Non-200 responses return an
// error wrapping ErrStatus and bodies over MaxBody one wrapping ErrTooLarge;
// a partial body is never returned.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	log.Debugf("GET %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:mnd
		return nil, fmt.Errorf("%w: %d from %s", ErrStatus, resp.StatusCode, url)
	}

	limit := c.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}

	var doc bytes.Buffer
	n, err := doc.ReadFrom(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrTooLarge, limit, url)
	}

	return doc.Bytes(), nil
}

// Func adapts a plain function to Fetcher.
type Func func(ctx context.Context, url string) ([]byte, error)

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
