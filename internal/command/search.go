// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"strings"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/gifctl/internal/catalog"
	"github.com/staranto/gifctl/internal/library"
	"github.com/staranto/gifctl/internal/meta"
)

var searchExamples = [][2]string{
	{"gifctl search cats", "gifs matching cats"},
	{"gifctl search happy dance -l 10", "a multi word term, ten results"},
	{"gifctl search cats --offset 25", "the second page"},
	{"gifctl search", "no term shows trending instead"},
}

// SearchCommandAction is the action handler for the "search" subcommand. All
// positional args are joined into one term.
func SearchCommandAction(ctx context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %v", cmd.FullName())

	if ShortCircuitExamples(cmd, searchExamples) {
		return nil
	}

	attrs := BuildAttrs(cmd, "id", "url", "favorited")
	term := strings.Join(cmd.Args().Slice(), " ")

	return WithLibrary(ctx, cmd, func(lib *library.Library) error {
		items, err := lib.Search(ctx, term, catalog.Query{
			Limit:  cmd.Int("limit"),
			Offset: cmd.Int("offset"),
			Rating: cmd.String("rating"),
			Lang:   cmd.String("lang"),
		})
		if err != nil {
			return err
		}
		log.Debugf("search %q: %d items", term, len(items))
		return emit(cmd, itemRows(lib, items), attrs)
	})
}

// SearchCommandBuilder constructs the cli.Command for "search".
func SearchCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search the catalog",
		UsageText: `gifctl search [TERM...] [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			NewLimitFlag("search", meta.Config.Source),
			NewRatingFlag("search", meta.Config.Source),
			&cli.IntFlag{
				Name:  "offset",
				Usage: "number of results to skip",
				Validator: func(value int) error {
					return FlagValidators(value, OffsetValidator)
				},
			},
			&cli.StringFlag{
				Name:  "lang",
				Usage: "language of the search term",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("search.lang", altsrc.StringSourcer(meta.Config.Source)),
				),
			},
			examplesFlag,
		}, NewGlobalFlags("search", meta.Config.Source)...),
		Action: SearchCommandAction,
	}
}
