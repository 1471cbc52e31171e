// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/gifctl/internal/gifitem"
	"github.com/staranto/gifctl/internal/library"
	"github.com/staranto/gifctl/internal/meta"
	"github.com/staranto/gifctl/internal/notifier"
)

var favExamples = [][2]string{
	{"gifctl fav add 3o7TKSjRrfIPjeiVyM", "favorite a gif by id, its image is saved locally"},
	{"gifctl fav add x1 --url https://media.example.com/x1.gif", "favorite a gif without a catalog lookup"},
	{"gifctl fav rm 3o7TKSjRrfIPjeiVyM", "forget a favorite, the local image stays"},
	{"gifctl fav ls -a favorited::h", "favorites, newest first, with relative times"},
	{"gifctl fav ls -f local=false", "favorites whose image has not been saved"},
	{"gifctl fav watch", "print the list again whenever it changes"},
}

// favDefaultAttrs are the columns of a favorites listing.
var favDefaultAttrs = []string{"id", "url", "favorited", "local", "!path"}

// FavAddCommandAction favorites the gif named by the first arg.
func FavAddCommandAction(ctx context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %v", cmd.FullName())

	id, err := firstArg(cmd, "gif id")
	if err != nil {
		return err
	}

	return WithLibrary(ctx, cmd, func(lib *library.Library) error {
		item, err := lookupItem(ctx, lib, id, cmd.String("url"))
		if err != nil {
			return err
		}

		added, err := lib.AddToFavorite(item)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", id, err)
		}
		if !added {
			fmt.Fprintf(stdout(cmd), "%s is already a favorite\n", id)
			return nil
		}
		fmt.Fprintf(stdout(cmd), "added %s\n", id)
		return nil
	})
}

// FavRmCommandAction removes the favorite named by the first arg. The local
// image, if any, is kept.
func FavRmCommandAction(ctx context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %v", cmd.FullName())

	id, err := firstArg(cmd, "gif id")
	if err != nil {
		return err
	}

	return WithLibrary(ctx, cmd, func(lib *library.Library) error {
		// Removal is by id alone, so entries List cannot decode go too.
		removed, err := lib.RemoveFromFavorite(gifitem.Item{ID: id})
		if err != nil {
			return fmt.Errorf("failed to remove %s: %w", id, err)
		}
		if !removed {
			fmt.Fprintf(stdout(cmd), "%s is not a favorite\n", id)
			return nil
		}
		fmt.Fprintf(stdout(cmd), "removed %s\n", id)
		return nil
	})
}

// FavLsCommandAction lists the favorites index.
func FavLsCommandAction(ctx context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %v", cmd.FullName())

	if ShortCircuitExamples(cmd, favExamples) {
		return nil
	}

	attrs := BuildAttrs(cmd, favDefaultAttrs...)

	return WithLibrary(ctx, cmd, func(lib *library.Library) error {
		return emit(cmd, favoriteRows(ctx, lib), attrs)
	})
}

// FavWatchCommandAction prints the favorites list, then prints it again every
// time it changes, whether by this process or another one, until ctx is done.
func FavWatchCommandAction(ctx context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %v", cmd.FullName())

	attrs := BuildAttrs(cmd, favDefaultAttrs...)

	return WithLibrary(ctx, cmd, func(lib *library.Library) error {
		if err := emit(cmd, favoriteRows(ctx, lib), attrs); err != nil {
			return err
		}

		sub := lib.Subscribe(notifier.AnyFavorite, func(evt notifier.Event) {
			log.Debugf("favorites event: %v %s", evt.Kind, evt.ID)
			fmt.Fprintln(stdout(cmd), "--")
			if err := emit(cmd, favoriteRows(ctx, lib), attrs); err != nil {
				log.WithError(err).Warn("failed to print favorites")
			}
		})
		defer sub.Unsubscribe()

		err := lib.Watch(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
}

// FavCommandBuilder constructs the "fav" command and its subcommands.
func FavCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	metadata := map[string]any{
		"meta": meta,
	}

	return &cli.Command{
		Name:     "fav",
		Usage:    "manage favorite gifs",
		Metadata: metadata,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "favorite a gif and save its image locally",
				UsageText: `gifctl fav add ID [--url URL]`,
				Metadata:  metadata,
				Flags:     []cli.Flag{NewURLFlag()},
				Action:    FavAddCommandAction,
			},
			{
				Name:      "rm",
				Usage:     "remove a favorite",
				UsageText: `gifctl fav rm ID`,
				Metadata:  metadata,
				Action:    FavRmCommandAction,
			},
			{
				Name:      "ls",
				Usage:     "list favorites, newest first",
				UsageText: `gifctl fav ls [options]`,
				Metadata:  metadata,
				Flags:     append([]cli.Flag{examplesFlag}, NewGlobalFlags("fav", src)...),
				Action:    FavLsCommandAction,
			},
			{
				Name:      "watch",
				Usage:     "list favorites and relist on every change",
				UsageText: `gifctl fav watch [options]`,
				Metadata:  metadata,
				Flags:     NewGlobalFlags("fav", src),
				Action:    FavWatchCommandAction,
			},
		},
	}
}
