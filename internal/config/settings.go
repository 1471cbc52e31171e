// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/staranto/gifctl/internal/cacheutil"
)

// Settings are the resolved, typed options every command builds its library
// from. yaml tags name the config key each field is read from.
type Settings struct {
	APIKey  string        `yaml:"api.key"`
	BaseURL string        `yaml:"api.base_url" validate:"required,url"`
	Limit   int           `yaml:"api.limit" validate:"gte=1,lte=50"`
	Rating  string        `yaml:"api.rating" validate:"oneof=g pg pg-13 r"`
	Lang    string        `yaml:"api.lang" validate:"min=2,max=5"`
	Timeout time.Duration `yaml:"api.timeout" validate:"gt=0"`

	FetchTimeout  time.Duration `yaml:"image.timeout" validate:"gt=0"`
	MemoryEntries int           `yaml:"memory.entries" validate:"gte=1"`
	Workers       int           `yaml:"workers" validate:"gte=1,lte=64"`

	StoreBackend string `yaml:"store.backend" validate:"oneof=dir s3"`
	StoreDir     string `yaml:"store.dir"`
	S3Bucket     string `yaml:"store.s3.bucket" validate:"required_if=StoreBackend s3"`
	S3Prefix     string `yaml:"store.s3.prefix"`
	S3Region     string `yaml:"store.s3.region"`
	S3Profile    string `yaml:"store.s3.profile"`
	S3Endpoint   string `yaml:"store.s3.endpoint" validate:"omitempty,url"`

	SettingsBackend string `yaml:"settings.backend" validate:"oneof=file sqlite"`
	SettingsPath    string `yaml:"settings.path" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("yaml")
	})
	return v
}

// DefaultSettingsPath is where favorites live when nothing says otherwise.
func DefaultSettingsPath(backend string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = cacheutil.Dir()
	}
	name := "settings.json"
	if backend == "sqlite" {
		name = "settings.db"
	}
	return filepath.Join(dir, "gifctl", name)
}

// LoadSettings resolves Settings from the config file, then environment, and
// validates the result.
func LoadSettings() (Settings, error) {
	var s Settings
	var err error

	get := func(key, def string) string {
		if err != nil {
			return def
		}
		var v string
		v, err = GetString(key, def)
		return v
	}
	getInt := func(key string, def int) int {
		if err != nil {
			return def
		}
		var v int
		v, err = GetInt(key, def)
		return v
	}
	getDur := func(key string, def time.Duration) time.Duration {
		if err != nil {
			return def
		}
		var v time.Duration
		v, err = GetDuration(key, def)
		return v
	}

	s.APIKey = get("api.key", "")
	s.BaseURL = get("api.base_url", "https://api.giphy.com")
	s.Limit = getInt("api.limit", 25)
	s.Rating = get("api.rating", "g")
	s.Lang = get("api.lang", "en")
	s.Timeout = getDur("api.timeout", 5*time.Second)
	s.FetchTimeout = getDur("image.timeout", 30*time.Second)
	s.MemoryEntries = getInt("memory.entries", 128)
	s.Workers = getInt("workers", 4)
	s.StoreBackend = get("store.backend", "dir")
	s.StoreDir = get("store.dir", "")
	s.S3Bucket = get("store.s3.bucket", "")
	s.S3Prefix = get("store.s3.prefix", "gifctl")
	s.S3Region = get("store.s3.region", "")
	s.S3Profile = get("store.s3.profile", "")
	s.S3Endpoint = get("store.s3.endpoint", "")
	s.SettingsBackend = get("settings.backend", "file")
	s.SettingsPath = get("settings.path", "")
	if err != nil {
		return Settings{}, err
	}

	if v := os.Getenv("GIFCTL_API_KEY"); v != "" {
		s.APIKey = v
	}
	if v := os.Getenv("GIFCTL_CACHE_DIR"); v != "" {
		s.StoreDir = v
	}
	if s.StoreDir == "" {
		s.StoreDir = cacheutil.Dir()
	}
	if s.SettingsPath == "" {
		s.SettingsPath = DefaultSettingsPath(s.SettingsBackend)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every field against its constraints.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a url", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
