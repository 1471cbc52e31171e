// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/gifctl/internal/attrs"
	"github.com/staranto/gifctl/internal/gifitem"
	"github.com/staranto/gifctl/internal/library"
	"github.com/staranto/gifctl/internal/meta"
	"github.com/staranto/gifctl/internal/output"
)

// openLibrary builds the Library a command works against. Tests swap it out to
// inject fakes.
var openLibrary = func(ctx context.Context, m meta.Meta) (*library.Library, error) {
	return library.New(ctx, library.Options{Settings: m.Settings})
}

// WithLibrary opens the Library, runs fn and closes the Library again. Closing
// waits for background disk writes, so a favorite added by fn has its blob on
// disk when WithLibrary returns.
func WithLibrary(ctx context.Context, cmd *cli.Command, fn func(*library.Library) error) (err error) {
	lib, err := openLibrary(ctx, GetMeta(cmd))
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer func() {
		if cerr := lib.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close library: %w", cerr))
		}
	}()

	return fn(lib)
}

// ShortCircuitExamples checks the --examples flag and, if present, prints the
// command's examples and returns true so the caller can exit early.
func ShortCircuitExamples(cmd *cli.Command, examples [][2]string) bool {
	if cmd.Bool("examples") {
		output.DumpExamples(stdout(cmd), examples)
		return true
	}
	return false
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList) {
	//nolint:errcheck
	{
		for _, d := range defaults {
			al.Set(d)
		}
		if extras := cmd.String("attrs"); extras != "" {
			al.Set(extras)
		}
		al.SetGlobalTransformSpec()
	}
	return
}

// GetMeta returns the meta.Meta stored in the Metadata of the command or its
// nearest ancestor. If missing, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil {
		return meta.Meta{}
	}
	for _, c := range cmd.Lineage() {
		if m, ok := c.Metadata["meta"].(meta.Meta); ok {
			return m
		}
	}
	return meta.Meta{}
}

// lookupItem turns an id, and optionally a URL, into an Item. Without a URL
// the favorites index and then the catalog are asked.
func lookupItem(ctx context.Context, lib *library.Library, id, rawURL string) (gifitem.Item, error) {
	if rawURL != "" {
		return gifitem.New(id, rawURL)
	}

	item, ok, err := lib.Lookup(ctx, id)
	if err != nil {
		return gifitem.Item{}, fmt.Errorf("failed to look up %s: %w", id, err)
	}
	if !ok {
		return gifitem.Item{}, fmt.Errorf("no gif with id %s", id)
	}
	return item, nil
}

// itemRows are the output rows for a catalog listing.
func itemRows(lib *library.Library, items []gifitem.Item) []output.Row {
	rows := make([]output.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, output.Row{
			"id":        item.ID,
			"url":       item.URL(),
			"favorited": lib.IsFavorited(item),
		})
	}
	return rows
}

// favoriteRows are the output rows for the favorites index.
func favoriteRows(ctx context.Context, lib *library.Library) []output.Row {
	favs := lib.Favorites()
	rows := make([]output.Row, 0, len(favs))
	for _, f := range favs {
		var at interface{}
		if f.Dated {
			at = f.FavoritedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, output.Row{
			"id":        f.Item.ID,
			"url":       f.Item.URL(),
			"favorited": at,
			"local":     lib.HasBlob(ctx, f.Item.ID),
			"path":      lib.BlobPath(f.Item.ID),
		})
	}
	return rows
}

// firstArg returns the command's first positional argument or an error
// naming what is missing.
func firstArg(cmd *cli.Command, what string) (string, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return "", fmt.Errorf("missing %s", what)
	}
	if err := JammedFlagValidator(arg); err != nil {
		return "", fmt.Errorf("%s %w", what, err)
	}
	return arg, nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// emit runs rows through the common output pipeline.
func emit(cmd *cli.Command, rows []output.Row, al attrs.AttrList) error {
	log.Debugf("attrs: %v", al.String())
	return output.SliceDiceSpit(rows, al, cmd, stdout(cmd))
}
