// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     string
	}{
		{name: "environment variable set", envValue: "from-env", envSet: true, want: "from-env"},
		{name: "environment variable not set", want: "default"},
		{name: "environment variable empty string", envValue: "", envSet: true, want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "TIMELINE_TEST_STRING"
			if tt.envSet {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseString(key, "default"); got != tt.want {
				t.Errorf("ParseString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{name: "valid", envValue: "42", want: 42},
		{name: "negative", envValue: "-3", want: -3},
		{name: "invalid falls back", envValue: "forty", want: 7},
		{name: "empty falls back", envValue: "", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TIMELINE_TEST_INT", tt.envValue)
			if got := ParseInt("TIMELINE_TEST_INT", 7); got != tt.want {
				t.Errorf("ParseInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	t.Setenv("TIMELINE_TEST_FLOAT", "0.5")
	if got := ParseFloat("TIMELINE_TEST_FLOAT", 1); got != 0.5 {
		t.Errorf("ParseFloat() = %g, want 0.5", got)
	}
	t.Setenv("TIMELINE_TEST_FLOAT", "half")
	if got := ParseFloat("TIMELINE_TEST_FLOAT", 1); got != 1 {
		t.Errorf("ParseFloat() with invalid value = %g, want default 1", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{name: "seconds", envValue: "5s", want: 5 * time.Second},
		{name: "milliseconds", envValue: "250ms", want: 250 * time.Millisecond},
		{name: "bare number is invalid", envValue: "5", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TIMELINE_TEST_DURATION", tt.envValue)
			if got := ParseDuration("TIMELINE_TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("ParseDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		envValue string
		want     bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"0", false},
		{"No", false},
		{"maybe", true},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TIMELINE_TEST_BOOL", tt.envValue)
			if got := ParseBool("TIMELINE_TEST_BOOL", true); got != tt.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}
