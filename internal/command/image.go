// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/gifctl/internal/gifimage"
	"github.com/staranto/gifctl/internal/gifitem"
	"github.com/staranto/gifctl/internal/library"
	"github.com/staranto/gifctl/internal/meta"
	"github.com/staranto/gifctl/internal/output"
)

// downloadingMessage is shown when an image is neither in memory nor on disk.
const downloadingMessage = "Image Downloading\nPlease try again in a bit"

var imageExamples = [][2]string{
	{"gifctl image get 3o7TKSjRrfIPjeiVyM", "describe a favorite's locally saved image"},
	{"gifctl image get 3o7TKSjRrfIPjeiVyM --wait", "download it if it is not local"},
	{"gifctl image get 3o7TKSjRrfIPjeiVyM --wait --out cat.gif", "save the image bytes"},
	{"gifctl image get x1 --url https://media.example.com/x1.gif --wait --out -", "write the bytes to stdout"},
}

// ImageGetCommandAction resolves the image for the first arg. Without --wait
// only memory and disk are consulted.
func ImageGetCommandAction(ctx context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %v", cmd.FullName())

	if ShortCircuitExamples(cmd, imageExamples) {
		return nil
	}

	id, err := firstArg(cmd, "gif id")
	if err != nil {
		return err
	}

	attrs := BuildAttrs(cmd, "id", "frames", "width", "height", "bytes")

	return WithLibrary(ctx, cmd, func(lib *library.Library) error {
		item, err := lookupItem(ctx, lib, id, cmd.String("url"))
		if err != nil {
			return err
		}

		var img *gifimage.Image
		if cmd.Bool("wait") {
			if img, err = lib.FetchImage(ctx, item); err != nil {
				return fmt.Errorf("failed to fetch image %s: %w", id, err)
			}
		} else if img = lib.LocalImage(item); img == nil {
			fmt.Fprintln(stderr(cmd), downloadingMessage)
			return nil
		}

		if out := cmd.String("out"); out != "" {
			return writeImage(cmd, out, img)
		}

		return emit(cmd, []output.Row{imageRow(ctx, lib, item, img)}, attrs)
	})
}

func imageRow(ctx context.Context, lib *library.Library, item gifitem.Item, img *gifimage.Image) output.Row {
	w, h := img.Size()
	return output.Row{
		"id":        item.ID,
		"url":       item.URL(),
		"frames":    img.Frames(),
		"width":     w,
		"height":    h,
		"bytes":     len(img.Data),
		"favorited": lib.IsFavorited(item),
		"local":     lib.HasBlob(ctx, item.ID),
		"path":      lib.BlobPath(item.ID),
	}
}

// writeImage writes the raw image bytes to path, or stdout for "-".
func writeImage(cmd *cli.Command, path string, img *gifimage.Image) error {
	if path == "-" {
		_, err := stdout(cmd).Write(img.Data)
		return err
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil { //nolint:gosec,mnd
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Debugf("wrote %d bytes to %s", len(img.Data), path)
	return nil
}

// ImageCommandBuilder constructs the "image" command and its subcommands.
func ImageCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	metadata := map[string]any{
		"meta": meta,
	}

	return &cli.Command{
		Name:     "image",
		Usage:    "work with gif images",
		Metadata: metadata,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "resolve a gif's image from memory, disk or the network",
				UsageText: `gifctl image get ID [--url URL] [--wait] [--out FILE]`,
				Metadata:  metadata,
				Flags: append([]cli.Flag{
					NewURLFlag(),
					&cli.BoolFlag{
						Name:    "wait",
						Aliases: []string{"w"},
						Usage:   "download the image if it is not local",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "write the image bytes to FILE, - for stdout",
						Validator: func(value string) error {
							return FlagValidators(value, JammedFlagValidator)
						},
					},
					examplesFlag,
				}, NewGlobalFlags("image", meta.Config.Source)...),
				Action: ImageGetCommandAction,
			},
		},
	}
}
