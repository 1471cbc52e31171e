// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/gifctl/internal/meta"
)

const bashCompletionScript = `# bash completion for gifctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_gifctl()
{
    local cur prev cmd sub
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "trending search fav image completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    sub=${COMP_WORDS[2]}
    local common="--attrs -a --color -c --filter -f --output -o --sort -s --titles -t"

    case "$cmd" in
        trending)
            local opts="$common --limit -l --rating -r --examples"
            ;;
        search)
            local opts="$common --limit -l --rating -r --offset --lang --examples"
            ;;
        fav)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "add rm ls watch" -- "$cur") )
                return 0
            fi
            case "$sub" in
                add) local opts="--url" ;;
                ls) local opts="$common --examples" ;;
                watch) local opts="$common" ;;
                *) local opts="" ;;
            esac
            ;;
        image)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "get" -- "$cur") )
                return 0
            fi
            local opts="$common --url --wait -w --out --examples"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
            return 0
            ;;
        --rating|-r)
            COMPREPLY=( $(compgen -W "g pg pg-13 r" -- "$cur") )
            return 0
            ;;
        --out)
            COMPREPLY=( $(compgen -f -- "$cur") )
            return 0
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _gifctl gifctl
`

const zshCompletionScript = `#compdef gifctl

_gifctl() {
  local -a cmds
  cmds=(
    'trending:list trending gifs'
    'search:search the catalog'
    'fav:manage favorite gifs'
    'image:work with gif images'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'gifctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    trending)
      _arguments -C \
        $common \
        '(-l --limit)'{-l,--limit}'[number of gifs]:limit' \
        '(-r --rating)'{-r,--rating}'[content rating]:rating:(g pg pg-13 r)' \
        '--examples[show usage examples]'
      ;;
    search)
      _arguments -C \
        $common \
        '(-l --limit)'{-l,--limit}'[number of gifs]:limit' \
        '(-r --rating)'{-r,--rating}'[content rating]:rating:(g pg pg-13 r)' \
        '--offset[results to skip]:offset' \
        '--lang[term language]:lang' \
        '--examples[show usage examples]' \
        '*:term'
      ;;
    fav)
      if (( CURRENT == 3 )); then
        _values 'fav commands' add rm ls watch
        return
      fi
      case $words[3] in
        add)
          _arguments '--url[original image url]:url' '1:id'
          ;;
        rm)
          _arguments '1:id'
          ;;
        *)
          _arguments -C $common '--examples[show usage examples]'
          ;;
      esac
      ;;
    image)
      if (( CURRENT == 3 )); then
        _values 'image commands' get
        return
      fi
      _arguments -C \
        $common \
        '--url[original image url]:url' \
        '(-w --wait)'{-w,--wait}'[download if not local]' \
        '--out[write image bytes]:file:_files' \
        '--examples[show usage examples]' \
        '1:id'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _gifctl gifctl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := stdout(cmd)

	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(stderr(cmd), "usage: gifctl completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "gifctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
