// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"fmt"
	"sort"
	"strings"
)

type sortKey struct {
	key           string
	descending    bool
	caseSensitive bool
}

// parseSortSpec splits a --sort value. Each comma separated key may carry a
// leading - for descending and a leading ! for case sensitive order, in
// either sequence.
func parseSortSpec(spec string) []sortKey {
	var keys []sortKey
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		k := sortKey{}
		for len(part) > 0 && (part[0] == '-' || part[0] == '!') {
			if part[0] == '-' {
				k.descending = true
			} else {
				k.caseSensitive = true
			}
			part = part[1:]
		}
		if part == "" {
			continue
		}
		k.key = part
		keys = append(keys, k)
	}
	return keys
}

// SortDataset orders dataset in place by spec. Numbers compare numerically,
// everything else as strings. Missing values sort first. The sort is stable
// so an empty spec keeps the incoming order.
func SortDataset(dataset []Row, spec string) {
	keys := parseSortSpec(spec)
	if len(keys) == 0 {
		return
	}

	sort.SliceStable(dataset, func(i, j int) bool {
		for _, k := range keys {
			c := compareValues(dataset[i][k.key], dataset[j][k.key], k.caseSensitive)
			if c == 0 {
				continue
			}
			if k.descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b interface{}, caseSensitive bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if an, ok := a.(float64); ok {
		if bn, ok := b.(float64); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}

	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	if !caseSensitive {
		as, bs = strings.ToLower(as), strings.ToLower(bs)
	}
	return strings.Compare(as, bs)
}
