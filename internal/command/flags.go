// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

var examplesFlag *cli.BoolFlag = &cli.BoolFlag{
	Name:        "examples",
	Usage:       "show usage examples",
	HideDefault: true,
}

// NewGlobalFlags returns the output flags shared by every listing command.
// params[0] is the command namespace and params[1] the config file.
func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	ns, src := params[0], ""
	if len(params) > 1 {
		src = params[1]
	}

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of attributes to include in results",
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"color", altsrc.StringSourcer(src)),
				yaml.YAML("color", altsrc.StringSourcer(src)),
			),
			Value: false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"output", altsrc.StringSourcer(src)),
				yaml.YAML("output", altsrc.StringSourcer(src)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"sort", altsrc.StringSourcer(src)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"titles", altsrc.StringSourcer(src)),
				yaml.YAML("titles", altsrc.StringSourcer(src)),
			),
			Value: false,
		},
	}

	return
}

// NewLimitFlag constructs the --limit flag. Zero leaves the configured
// api.limit in charge.
func NewLimitFlag(ns string, src string) *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"l"},
		Usage:   "number of gifs to return (1-50)",
		Sources: cli.NewValueSourceChain(
			yaml.YAML(ns+".limit", altsrc.StringSourcer(src)),
		),
		Validator: func(value int) error {
			return FlagValidators(value, LimitValidator)
		},
	}
}

// NewRatingFlag constructs the --rating flag.
func NewRatingFlag(ns string, src string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
		Name:    "rating",
		Aliases: []string{"r"},
		Usage:   "content rating (g, pg, pg-13, r)",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("GIFCTL_RATING"),
		),
		Validator: func(value string) error {
			return FlagValidators(value, RatingValidator)
		},
	})
}

// NewURLFlag constructs the --url flag used to name an image source directly
// instead of looking the id up.
func NewURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "url",
		Usage: "original image url, skips the lookup by id",
		Validator: func(value string) error {
			return FlagValidators(value, JammedFlagValidator, URLValidator)
		},
	}
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}
