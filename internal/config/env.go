// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/timelinesink/internal/log"
)

// ParseString reads a string from the environment or returns defaultValue.
// An empty variable counts as unset.
func ParseString(key, defaultValue string) string {
	return parseEnv(key, defaultValue, "string",
		func(v string) (string, bool) { return v, true },
		func(e *zerolog.Event, k, v string) *zerolog.Event { return e.Str(k, v) })
}

// ParseInt reads an integer from the environment. Invalid values fall back
// to defaultValue with a warning.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, "integer",
		func(v string) (int, bool) {
			i, err := strconv.Atoi(v)
			return i, err == nil
		},
		func(e *zerolog.Event, k string, v int) *zerolog.Event { return e.Int(k, v) })
}

// ParseFloat reads a float64 from the environment.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, "float",
		func(v string) (float64, bool) {
			f, err := strconv.ParseFloat(v, 64)
			return f, err == nil
		},
		func(e *zerolog.Event, k string, v float64) *zerolog.Event { return e.Float64(k, v) })
}

// ParseDuration reads a duration in Go format (e.g. "5s") from the environment.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, "duration",
		func(v string) (time.Duration, bool) {
			d, err := time.ParseDuration(v)
			return d, err == nil
		},
		func(e *zerolog.Event, k string, v time.Duration) *zerolog.Event { return e.Dur(k, v) })
}

// ParseBool reads a boolean from the environment. It accepts "true", "false",
// "1", "0", "yes" and "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, "boolean",
		func(v string) (bool, bool) {
			switch strings.ToLower(v) {
			case "true", "1", "yes":
				return true, true
			case "false", "0", "no":
				return false, true
			}
			return false, false
		},
		func(e *zerolog.Event, k string, v bool) *zerolog.Event { return e.Bool(k, v) })
}

func parseEnv[T any](
	key string,
	defaultValue T,
	kind string,
	parse func(string) (T, bool),
	field func(*zerolog.Event, string, T) *zerolog.Event,
) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		field(logger.Debug().Str("key", key), "default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	parsed, ok := parse(v)
	if !ok {
		field(logger.Warn().Str("key", key).Str("value", v), "default", defaultValue).
			Msgf("invalid %s in environment variable, using default", kind)
		return defaultValue
	}
	field(logger.Debug().Str("key", key), "value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}
