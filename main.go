// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/apex/log"

	"github.com/staranto/gifctl/internal/command"
	"github.com/staranto/gifctl/internal/config"
	mylog "github.com/staranto/gifctl/internal/log"
)

// commandGroups are the commands whose first argument names a subcommand.
var commandGroups = map[string]bool{
	"fav":   true,
	"image": true,
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := config.Load(); err != nil && !errors.Is(err, config.ErrNotFound) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(command.Version)
			return 0
		}
	}

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	app, err := command.InitApp(ctx, args, settings)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an argument preset. "@name" anywhere after the
// command selects the config list <command path>.<name>, such as
// fav.ls.name; without one the list <command path>.defaults is used if it
// exists. The preset's args are inserted
// right after the command, so explicit args still win.
func mangleArguments(args []string) []string {
	// The preamble is the executable and the command path.
	end := 2
	if commandGroups[args[1]] && len(args) > 2 && !strings.HasPrefix(args[2], "-") {
		end = 3
	}
	preamble := slices.Clone(args[:end])

	// Short-circuit for --help/-h. If help is requested, just keep the preamble
	// and add --help flag.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	set := "defaults"
	rest := make([]string, 0, len(args)-end)
	for _, a := range args[end:] {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			set = a[1:]
			continue
		}
		rest = append(rest, a)
	}

	key := strings.Join(append(slices.Clone(preamble[1:]), set), ".")
	setArgs, _ := config.GetStringSlice(key, nil)

	result := preamble
	for _, arg := range setArgs {
		result = append(result, strings.Fields(arg)...)
	}
	result = append(result, rest...)

	log.Debugf("set=%s, args=%v", set, result)
	return result
}
