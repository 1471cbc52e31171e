// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package filters implements --filter over gifctl result rows.
//
// A spec is a delimited list of key<op>target terms. The op is one of
// = ~ ^ < > @ / and may be negated with a leading !. How a term compares
// depends on the JSON type of the row's value: booleans (local, favorited in
// catalog listings) compare as booleans, numbers (frames, width, bytes)
// numerically, RFC3339 strings (the favorited time of a favorite) as times
// and everything else as strings.
package filters

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/gifctl/internal/attrs"
)

// DelimEnv overrides the "," between terms.
const DelimEnv = "GIFCTL_FILTER_DELIM"

var termRegex = regexp.MustCompile(`^(.*?)(!?[=~^<>@/])(.*)$`)

// dateLayouts are the target forms accepted when comparing against a time.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// Filter is one parsed term.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string

	re *regexp.Regexp
}

// BuildFilters parses spec. Malformed terms, and / terms whose target is not
// a valid regex, are logged and dropped.
func BuildFilters(spec string) []Filter {
	if spec == "" {
		return nil
	}

	delim := ","
	if d, ok := os.LookupEnv(DelimEnv); ok && d != "" {
		delim = d
	}

	var filters []Filter
	for _, term := range strings.Split(spec, delim) {
		m := termRegex.FindStringSubmatch(term)
		if m == nil || m[1] == "" {
			log.Errorf("invalid filter: %s", term)
			continue
		}

		f := Filter{
			Key:     m[1],
			Negate:  strings.HasPrefix(m[2], "!"),
			Operand: strings.TrimPrefix(m[2], "!"),
			Target:  m[3],
		}
		if f.Operand == "/" {
			re, err := regexp.Compile(f.Target)
			if err != nil {
				log.WithError(err).Errorf("invalid filter regex: %s", f.Target)
				continue
			}
			f.re = re
		}
		filters = append(filters, f)
	}

	return filters
}

// FilterDataset returns the rows of candidates, a JSON array, that pass every
// term of spec, each reduced to the attrs' output keys. Terms naming a key
// that is not among attrs are ignored with a warning.
func FilterDataset(candidates gjson.Result, al attrs.AttrList, spec string) []map[string]interface{} {
	filters := bind(BuildFilters(spec), al)

	var rows []map[string]interface{}
	for _, candidate := range candidates.Array() {
		if !matchAll(candidate, filters) {
			continue
		}

		row := make(map[string]interface{}, len(al))
		for _, attr := range al {
			row[attr.OutputKey] = candidate.Get(attr.Key).Value()
		}
		rows = append(rows, row)
	}

	return rows
}

// bound pairs a term with the row path it reads.
type bound struct {
	Filter
	path string
}

func bind(filters []Filter, al attrs.AttrList) []bound {
	result := make([]bound, 0, len(filters))
	for _, f := range filters {
		path := ""
		for _, attr := range al {
			if attr.OutputKey == f.Key {
				path = attr.Key
				break
			}
		}
		if path == "" {
			log.Warnf("filter key not found: %s", f.Key)
			continue
		}
		result = append(result, bound{Filter: f, path: path})
	}
	return result
}

func matchAll(row gjson.Result, filters []bound) bool {
	for _, f := range filters {
		if !f.Match(row.Get(f.path)) {
			return false
		}
	}
	return true
}

// Match reports whether value passes f. A missing or null value never
// passes, negated or not.
func (f Filter) Match(value gjson.Result) bool {
	if !value.Exists() || value.Type == gjson.Null {
		return false
	}

	var ok bool
	switch {
	case value.IsBool():
		ok = f.matchBool(value.Bool())
	case value.Type == gjson.Number:
		ok = f.matchNumber(value.Float())
	case value.IsArray():
		ok = f.matchList(value.Array())
	case value.Type == gjson.String:
		if t, err := time.Parse(time.RFC3339, value.Str); err == nil {
			ok = f.matchTime(t)
		} else {
			ok = f.matchString(value.Str)
		}
	default:
		ok = f.matchString(value.Raw)
	}
	return ok != f.Negate
}

func (f Filter) matchBool(v bool) bool {
	if f.Operand != "=" && f.Operand != "~" {
		return f.matchString(strconv.FormatBool(v))
	}
	want, err := strconv.ParseBool(strings.TrimSpace(f.Target))
	if err != nil {
		log.Errorf("invalid boolean target: %s", f.Target)
		return false
	}
	return v == want
}

func (f Filter) matchNumber(v float64) bool {
	want, err := strconv.ParseFloat(strings.TrimSpace(f.Target), 64)
	if err != nil {
		log.Errorf("invalid numeric target: %s", f.Target)
		return false
	}
	switch f.Operand {
	case "=":
		return v == want
	case ">":
		return v > want
	case "<":
		return v < want
	default:
		return f.matchString(strconv.FormatFloat(v, 'f', -1, 64))
	}
}

func (f Filter) matchTime(v time.Time) bool {
	switch f.Operand {
	case "=", ">", "<":
	default:
		return f.matchString(v.Format(time.RFC3339))
	}

	want, err := parseDate(f.Target)
	if err != nil {
		log.WithError(err).Errorf("invalid time target: %s", f.Target)
		return false
	}
	switch f.Operand {
	case ">":
		return v.After(want)
	case "<":
		return v.Before(want)
	default:
		return v.Equal(want)
	}
}

func (f Filter) matchList(items []gjson.Result) bool {
	if f.Operand != "@" {
		log.Errorf("unsupported operand for a list: %s", f.Operand)
		return false
	}
	for _, item := range items {
		if item.String() == f.Target {
			return true
		}
	}
	return false
}

func (f Filter) matchString(v string) bool {
	switch f.Operand {
	case "=":
		return v == f.Target
	case "~":
		return strings.EqualFold(v, f.Target)
	case "^":
		return strings.HasPrefix(v, f.Target)
	case ">":
		return v > f.Target
	case "<":
		return v < f.Target
	case "@":
		return strings.Contains(v, f.Target)
	case "/":
		if f.re == nil {
			return false
		}
		return f.re.MatchString(v)
	default:
		log.Errorf("unsupported filter operand: %s", f.Operand)
		return false
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("want one of %s", strings.Join(dateLayouts, ", "))
}
