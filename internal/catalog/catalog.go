// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package catalog queries the Giphy catalog for trending and searched GIFs.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/cenkalti/backoff/v4"

	"github.com/staranto/gifctl/internal/fetch"
	"github.com/staranto/gifctl/internal/gifitem"
)

const (
	DefaultBaseURL = "https://api.giphy.com"
	DefaultLimit   = 25
	DefaultRating  = "g"
	DefaultLang    = "en"
	DefaultTimeout = 5 * time.Second

	// retryDelay is the pause before the single retry.
	retryDelay = 250 * time.Millisecond
)

var (
	// ErrTransport covers network failures, timeouts and non-200 answers.
	ErrTransport = errors.New("catalog request failed")
	// ErrDecode is returned for answers that are not JSON.
	ErrDecode = errors.New("catalog answer unreadable")
)

// Query narrows a list request. Zero values take the client defaults.
type Query struct {
	Limit  int
	Offset int
	Rating string
	Lang   string
}

// Client talks to the catalog API.
type Client struct {
	BaseURL string
	APIKey  string
	Rating  string
	Lang    string
	Limit   int
	Timeout time.Duration

	fetcher fetch.Fetcher
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client somewhere other than DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.BaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDefaults sets the limit, rating and language used when a Query leaves
// them empty.
func WithDefaults(limit int, rating, lang string) Option {
	return func(c *Client) {
		if limit > 0 {
			c.Limit = limit
		}
		if rating != "" {
			c.Rating = rating
		}
		if lang != "" {
			c.Lang = lang
		}
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(c *Client) { c.fetcher = f }
}

// New returns a Client using apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Rating:  DefaultRating,
		Lang:    DefaultLang,
		Limit:   DefaultLimit,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		// The per-attempt deadline comes from the context.
		c.fetcher = fetch.New(0)
	}
	return c
}

// Trending lists the currently trending GIFs.
func (c *Client) Trending(ctx context.Context, q Query) ([]gifitem.Item, error) {
	params := [][2]string{
		{"api_key", c.APIKey},
		{"limit", strconv.Itoa(c.limit(q))},
		{"rating", c.rating(q)},
	}
	if q.Offset > 0 {
		params = append(params, [2]string{"offset", strconv.Itoa(q.Offset)})
	}
	return c.list(ctx, "/v1/gifs/trending", params)
}

// Search lists GIFs matching term. Surrounding whitespace is ignored and an
// empty term lists trending instead.
func (c *Client) Search(ctx context.Context, term string, q Query) ([]gifitem.Item, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return c.Trending(ctx, q)
	}

	lang := q.Lang
	if lang == "" {
		lang = c.Lang
	}
	params := [][2]string{
		{"api_key", c.APIKey},
		{"q", term},
		{"limit", strconv.Itoa(c.limit(q))},
		{"offset", strconv.Itoa(q.Offset)},
		{"rating", c.rating(q)},
		{"lang", lang},
	}
	return c.list(ctx, "/v1/gifs/search", params)
}

// Get looks up one GIF by id. The bool is false when the catalog has no usable
// gif for id.
func (c *Client) Get(ctx context.Context, id string) (gifitem.Item, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return gifitem.Item{}, false, nil
	}

	body, err := c.do(ctx, "/v1/gifs/"+Escape(id), [][2]string{{"api_key", c.APIKey}})
	if err != nil {
		return gifitem.Item{}, false, err
	}

	item, err := gifitem.DecodeSingle(body)
	switch {
	case errors.Is(err, gifitem.ErrMalformed):
		return gifitem.Item{}, false, fmt.Errorf("%w: %v", ErrDecode, err)
	case err != nil:
		log.Debugf("catalog has no usable gif %s: %v", id, err)
		return gifitem.Item{}, false, nil
	}
	return item, true, nil
}

func (c *Client) list(ctx context.Context, path string, params [][2]string) ([]gifitem.Item, error) {
	body, err := c.do(ctx, path, params)
	if err != nil {
		return nil, err
	}
	items, err := gifitem.DecodeCatalog(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	log.Debugf("catalog %s: %d items", path, len(items))
	return items, nil
}

// do GETs path with params. Transport failures are retried once; status
// failures are not.
func (c *Client) do(ctx context.Context, path string, params [][2]string) ([]byte, error) {
	u := c.BaseURL + path + "?" + encode(params)

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, c.Timeout)
		defer cancel()

		b, err := c.fetcher.Fetch(actx, u)
		if err != nil {
			if errors.Is(err, fetch.ErrStatus) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			log.WithError(err).Debugf("catalog attempt %d failed", attempt)
			return err
		}
		body = b
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return body, nil
}

func (c *Client) limit(q Query) int {
	if q.Limit > 0 {
		return q.Limit
	}
	return c.Limit
}

func (c *Client) rating(q Query) string {
	if q.Rating != "" {
		return q.Rating
	}
	return c.Rating
}

func encode(params [][2]string) string {
	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p[0])
		sb.WriteByte('=')
		sb.WriteString(Escape(p[1]))
	}
	return sb.String()
}

// Escape percent-encodes every byte of s except ASCII letters and digits.
func Escape(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		b := s[i]
		if ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9') {
			sb.WriteByte(b)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[b>>4])
		sb.WriteByte(hex[b&0x0f])
	}
	return sb.String()
}
