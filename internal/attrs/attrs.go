// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package attrs

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
)

var lengthRegex = regexp.MustCompile(`-?\d+`)

// Attr represents each of the row keys to be included in the output.
type Attr struct {
	// The row key to extract. Dotted paths reach into nested values.
	Key string
	// Should this Attr be included in output or is it just
	// intended for filtering and sorting?
	Include bool
	// The key to use in the output. This is also the column title when
	// output=text.
	OutputKey string
	// Transformation spec to apply to the output value.
	TransformSpec string
}

// Transform applies the spec to value. Supported specs, which may be combined:
//
//	t  RFC3339 time to local time (TZ)
//	h  RFC3339 time to a relative "3 hours ago", or a byte count to "1.2 kB"
//	l  lower case
//	u  upper case
//	N  truncate to N characters, -N to elide the middle
func (a *Attr) Transform(value interface{}) interface{} {
	if strings.ContainsAny(a.TransformSpec, "hH") {
		switch v := value.(type) {
		case float64:
			if v >= 0 {
				return humanize.Bytes(uint64(v))
			}
		case int:
			if v >= 0 {
				return humanize.Bytes(uint64(v))
			}
		case int64:
			if v >= 0 {
				return humanize.Bytes(uint64(v))
			}
		}
	}

	result, ok := value.(string)
	if !ok {
		return value
	}

	if strings.ContainsAny(a.TransformSpec, "hH") {
		if t, err := time.Parse(time.RFC3339, result); err == nil {
			return humanize.Time(t)
		}
	}

	// Convert UTC time to local, but only when told which zone to use.
	if strings.ContainsAny(a.TransformSpec, "tT") {
		if tz := os.Getenv("TZ"); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err == nil {
				t, err := time.Parse(time.RFC3339, result)
				if err == nil {
					result = t.In(loc).Format("2006-01-02T15:04:05MST")
				} else {
					log.Debugf("not a time: %s", result)
				}
			}
		}
	}

	// The case transformation appearing last wins. That lets an attr's own
	// spec override a global one prepended to it.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	if lastL > lastU {
		result = strings.ToLower(result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
	}

	// Same rule for length: the last number wins.
	if a.TransformSpec != "" {
		match := lengthRegex.FindAllString(a.TransformSpec, -1)
		if len(match) != 0 {
			l, _ := strconv.Atoi(match[len(match)-1])
			abs := int(math.Abs(float64(l)))
			if len(result) > abs {
				if l < 0 {
					lr := abs/2 - 1
					if lr < 1 {
						lr = 1
					}
					result = result[0:lr] + ".." + result[len(result)-lr:]
				} else {
					result = result[:l]
				}
			}
		}
	}

	return result
}

type AttrList []Attr

// Return a string representation of the AttrList. This should match the format
// of the original --attrs flag.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses each spec of an --attrs value and adds it to the AttrList.
func (a *AttrList) Set(value string) error {
	if value == "" {
		return nil
	}

	const (
		keyIdx = iota
		outputIdx
		transformIdx
	)

	// Each spec is key[:outputKey[:transform]]. The output key defaults to the
	// last segment of a dotted key.
	specs := strings.Split(value, ",")
specloop:
	for _, spec := range specs {
		attr := Attr{
			Include: true,
		}

		fields := strings.Split(spec, ":")

		// A leading ! keeps the attribute for filtering and sorting only.
		attr.Key = strings.TrimSpace(fields[keyIdx])
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}
		attr.Key = strings.TrimPrefix(attr.Key, ".")
		if attr.Key == "" {
			return fmt.Errorf("empty attribute in %q", value)
		}

		if attr.Key == "*" {
			attr.Include = false
		}

		if len(fields) == 1 {
			segments := strings.Split(attr.Key, ".")
			attr.OutputKey = segments[len(segments)-1]
		} else {
			if fields[outputIdx] != "" {
				attr.OutputKey = strings.TrimSpace(fields[outputIdx])
			} else {
				attr.OutputKey = attr.Key
			}
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		// An attr already in the list, because it is a command default or was
		// given twice, is updated in place.
		for i := range *a {
			if (*a)[i].Key == attr.Key || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				(*a)[i].OutputKey = attr.OutputKey
				(*a)[i].TransformSpec = attr.TransformSpec
				continue specloop
			}
		}

		*a = append(*a, attr)
	}

	return nil
}

// SetGlobalTransformSpec prepends the spec of the "*" attr, if any, to every
// attr in the list.
func (alist *AttrList) SetGlobalTransformSpec() error {
	spec := ""

	for a := range *alist {
		if (*alist)[a].Key == "*" {
			spec = (*alist)[a].TransformSpec
			break
		}
	}

	if spec == "" {
		return nil
	}

	for a := range *alist {
		(*alist)[a].TransformSpec = spec + "," + (*alist)[a].TransformSpec
	}

	return nil
}

func (a *AttrList) Type() string {
	return "list"
}
