// Package config implements the default configuration collaborator: a
// map[string]string-backed Source, populated from the process environment,
// generalized from friendsincode-grimnir_radio/internal/config.go's
// getEnvAny/getEnvIntAny typed-parse-with-default pattern. Unlike the
// teacher's Config struct (fixed fields, validated once at startup), this
// engine's keys are arbitrary strings resolved lazily per call, so tests can
// substitute fixed values without touching the environment.
package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is prepended (upper-snake-cased) to every key when reading the
// process environment, e.g. "headroom" -> "AUDIOENGINE_HEADROOM".
const EnvPrefix = "AUDIOENGINE_"

// Source is the reference boundary.ConfigSource: values are looked up first
// in an in-memory override map, then in the environment under EnvPrefix,
// falling back to the caller-supplied default.
type Source struct {
	values map[string]string
}

// New builds a Source that reads from the process environment.
func New() *Source {
	return &Source{values: map[string]string{}}
}

// NewFromMap builds a Source seeded with values. Keys absent from values
// still fall back to the environment. Intended for tests.
func NewFromMap(values map[string]string) *Source {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Source{values: cp}
}

// Set overrides key in-memory, taking precedence over the environment.
func (s *Source) Set(key, value string) {
	s.values[key] = value
}

func (s *Source) lookup(key string) (string, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	envKey := EnvPrefix + strings.ToUpper(key)
	if v := os.Getenv(envKey); v != "" {
		return v, true
	}
	return "", false
}

func (s *Source) GetString(key string, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

func (s *Source) GetInt(key string, def int) int {
	if v, ok := s.lookup(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func (s *Source) GetInt64(key string, def int64) int64 {
	if v, ok := s.lookup(key); ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func (s *Source) GetFloat(key string, def float64) float64 {
	if v, ok := s.lookup(key); ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
