package config

import (
	"strings"
	"time"

	"github.com/vshulcz/metricsnap/internal/misc"
)

// FromEnvOrFlag returns the environment value when present, otherwise falls back to a CLI flag then default.
func FromEnvOrFlag(envKey, flagVal, def string) string {
	if v := misc.Getenv(envKey, ""); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// FromEnvOrFlagDuration reads a duration (seconds or Go syntax) from ENV, then
// a positive flag value, then def.
func FromEnvOrFlagDuration(envKey string, flagVal, def time.Duration) time.Duration {
	if strings.TrimSpace(misc.Getenv(envKey, "")) != "" {
		return misc.GetDuration(envKey, def)
	}
	if flagVal > 0 {
		return flagVal
	}
	return def
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
