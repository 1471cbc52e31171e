// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/gifctl/internal/config"
	"github.com/staranto/gifctl/internal/meta"
)

// Version is stamped at build time.
var Version = "dev"

func InitApp(ctx context.Context, args []string, settings config.Settings) (*cli.Command, error) {
	// The arg[1] immediately following the binary (arg[0]) is the gifctl
	// subcommand and also represents the namespace key to be used when retrieving
	// config values. arg[1] could be -h/--help, so ignore it if it appears to be
	// a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}
	config.Config.Namespace = ns

	meta := meta.Meta{
		Args:     args,
		Config:   config.Config,
		Context:  ctx,
		Settings: settings,
	}

	app := &cli.Command{
		Name:    "gifctl",
		Usage:   "GIF catalog browser with a local favorites cache",
		Version: Version,
	}

	app.Commands = append(app.Commands,
		TrendingCommandBuilder(app, meta),
		SearchCommandBuilder(app, meta),
		FavCommandBuilder(app, meta),
		ImageCommandBuilder(app, meta),
		CompletionCommandBuilder(app, meta),
	)

	// Make sure flags are sorted for the --help text.
	var sortFlags func(cmds []*cli.Command)
	sortFlags = func(cmds []*cli.Command) {
		for _, cmd := range cmds {
			sort.Slice(cmd.Flags, func(i, j int) bool {
				return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
			})
			sortFlags(cmd.Commands)
		}
	}
	sortFlags(app.Commands)

	return app, nil
}
