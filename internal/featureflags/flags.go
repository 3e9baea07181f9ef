package featureflags

import (
	"os"
	"strings"
)

// Known flags.
const (
	// AdmissionLock takes a Redis lock per user in front of the admission transaction.
	AdmissionLock = "admission_lock"
	// StaleWorker runs the supervisor that fails analyses stuck in flight.
	StaleWorker = "stale_worker"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	return parse(os.Getenv("FLAG_" + strings.ToUpper(name)))
}

// EnabledOr is Enabled with a default for flags that are unset.
func EnabledOr(name string, def bool) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok || v == "" {
		return def
	}
	return parse(v)
}

func parse(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
