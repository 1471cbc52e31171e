// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/gifctl/internal/catalog"
	"github.com/staranto/gifctl/internal/library"
	"github.com/staranto/gifctl/internal/meta"
)

var trendingExamples = [][2]string{
	{"gifctl trending", "today's trending gifs"},
	{"gifctl trending -l 5 -r pg", "the top five, rated pg or milder"},
	{"gifctl trending -f favorited=true", "trending gifs you have already favorited"},
	{"gifctl trending -o json -a id,url", "ids and urls as json"},
}

// TrendingCommandAction is the action handler for the "trending" subcommand.
func TrendingCommandAction(ctx context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %v", cmd.FullName())

	if ShortCircuitExamples(cmd, trendingExamples) {
		return nil
	}

	attrs := BuildAttrs(cmd, "id", "url", "favorited")

	return WithLibrary(ctx, cmd, func(lib *library.Library) error {
		items, err := lib.Trending(ctx, catalog.Query{
			Limit:  cmd.Int("limit"),
			Rating: cmd.String("rating"),
		})
		if err != nil {
			return err
		}
		log.Debugf("trending: %d items", len(items))
		return emit(cmd, itemRows(lib, items), attrs)
	})
}

// TrendingCommandBuilder constructs the cli.Command for "trending".
func TrendingCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "trending",
		Usage:     "list trending gifs",
		UsageText: `gifctl trending [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			NewLimitFlag("trending", meta.Config.Source),
			NewRatingFlag("trending", meta.Config.Source),
			examplesFlag,
		}, NewGlobalFlags("trending", meta.Config.Source)...),
		Action: TrendingCommandAction,
	}
}
