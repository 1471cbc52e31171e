// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	var validOutputFlagValues = []string{"text", "json", "raw", "yaml"}
	if !slices.Contains(validOutputFlagValues, value.(string)) {
		return fmt.Errorf("must be one of %v", validOutputFlagValues)
	}
	return nil
}

// RatingValidator accepts an empty value, which means the configured rating.
func RatingValidator(value any) error {
	var validRatings = []string{"", "g", "pg", "pg-13", "r"}
	if !slices.Contains(validRatings, value.(string)) {
		return fmt.Errorf("must be one of %v", validRatings[1:])
	}
	return nil
}

// LimitValidator accepts 0, which means the configured limit.
func LimitValidator(value any) error {
	if n := value.(int); n < 0 || n > 50 {
		return errors.New("must be between 1 and 50")
	}
	return nil
}

func OffsetValidator(value any) error {
	if value.(int) < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

// URLValidator requires an absolute url.
func URLValidator(value any) error {
	s := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.New("must be an absolute url")
	}
	return nil
}
