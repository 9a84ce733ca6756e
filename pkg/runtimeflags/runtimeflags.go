// Package runtimeflags caches the three environment-driven kill switches
// apply_control consults, per spec.md §6/§9's design note: "read once and
// cache under an injected Config so tests can exercise all four env states
// deterministically" (the fourth state being "none of the three set").
//
// This mirrors the teacher's own env-var-for-testability convention —
// pkg/system/proc.ClockTicks and PageSize read CLK_TCK/PAGE_SIZE once per
// call rather than hardcoding sysconf, specifically so tests can override
// them — generalized here to a struct read once at construction instead of
// on every call, since these three flags gate an entire control loop
// rather than a single unit conversion.
package runtimeflags

import "os"

const (
	envDisableControl = "POET_DISABLE_CONTROL"
	envDisableApply   = "POET_DISABLE_APPLY"
	envDisableIdle    = "POET_DISABLE_IDLE"
)

// Flags is the cached, injectable snapshot of the three kill switches.
type Flags struct {
	DisableControl bool
	DisableApply   bool
	DisableIdle    bool
}

// FromEnv reads the three environment variables once and returns a Flags
// snapshot. Any non-empty value counts as "set", matching the shell
// convention the teacher's own tooling uses.
func FromEnv() Flags {
	return Flags{
		DisableControl: isSet(envDisableControl),
		DisableApply:   isSet(envDisableApply),
		DisableIdle:    isSet(envDisableIdle),
	}
}

func isSet(name string) bool {
	v, ok := os.LookupEnv(name)
	return ok && v != ""
}
