// Package states holds the immutable configuration table the engine
// searches: the discrete set of system states the host can switch between,
// each carrying a performance multiplier and a secondary-dimension cost.
//
// Per spec.md §3/§9, this table is owned and populated by the host — the
// core never chooses the states, only searches them — so Table is a plain
// read-only value type with no mutation methods once built.
package states

import "fmt"

// Entry is one control state: speedup (performance multiplier relative to a
// baseline, >= 0; < 1 marks an "idle" state realized by the host sleeping),
// cost (secondary-dimension multiplier: power or energy), and IdlePartner
// (the index of a companion non-idle state an idle entry may be hybridized
// with within a single iteration — ignored for non-idle entries).
type Entry struct {
	Speedup     float64 `yaml:"speedup"`
	Cost        float64 `yaml:"cost"`
	IdlePartner int     `yaml:"idle_partner,omitempty"`
}

// IsIdle reports whether this entry represents a throttled/sleeping state.
func (e Entry) IsIdle() bool { return e.Speedup < 1 }

// Table is the immutable, indexed set of control states borrowed by the
// engine for its lifetime. Table never mutates in place — Validate checks
// it once at construction.
type Table []Entry

// Validate checks the invariants spec.md §3 requires of a control-state
// table before it can back an engine: non-empty, every idle entry names a
// valid non-idle partner.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("states: table must have at least one entry")
	}
	for i, e := range t {
		if e.Speedup < 0 {
			return fmt.Errorf("states: entry %d has negative speedup %v", i, e.Speedup)
		}
		if e.Cost < 0 {
			return fmt.Errorf("states: entry %d has negative cost %v", i, e.Cost)
		}
		if e.IsIdle() {
			if e.IdlePartner < 0 || e.IdlePartner >= len(t) {
				return fmt.Errorf("states: idle entry %d has out-of-range idle_partner %d", i, e.IdlePartner)
			}
			if t[e.IdlePartner].IsIdle() {
				return fmt.Errorf("states: idle entry %d's idle_partner %d is itself idle", i, e.IdlePartner)
			}
		}
	}
	return nil
}

// Speedups returns the Speedup of every entry, in table order — the slice
// pkg/xup.Range consumes to derive the speedup controller's [umin, umax].
func (t Table) Speedups() []float64 {
	out := make([]float64, len(t))
	for i, e := range t {
		out[i] = e.Speedup
	}
	return out
}

// Costs returns the Cost of every entry, in table order — the slice
// pkg/xup.Range consumes to derive the powerup controller's [umin, umax].
func (t Table) Costs() []float64 {
	out := make([]float64, len(t))
	for i, e := range t {
		out[i] = e.Cost
	}
	return out
}
