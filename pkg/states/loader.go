package states

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk YAML shape: a flat list of entries under a
// top-level "states" key, mirroring apoc.Config's tagged-struct-over-yaml.v3
// loading pattern in straga-Mimir_lite.
type document struct {
	States Table `yaml:"states"`
}

// LoadTable reads and validates a control-state table from a YAML file.
//
// Example file:
//
//	states:
//	  - speedup: 0.1
//	    cost: 0.1
//	    idle_partner: 1
//	  - speedup: 1.0
//	    cost: 1.0
//	  - speedup: 2.0
//	    cost: 2.0
func LoadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("states: read %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("states: parse %s: %w", path, err)
	}

	if err := doc.States.Validate(); err != nil {
		return nil, fmt.Errorf("states: %s: %w", path, err)
	}

	return doc.States, nil
}

// DefaultTable returns a minimal, always-valid two-state table (a baseline
// state and a 2x-speedup/2x-cost state) — used by poetsim when no --states
// file is given, and as a fallback analogous to the teacher's
// _defaultConfig() for pkg/consumption.Config.
func DefaultTable() Table {
	return Table{
		{Speedup: 1.0, Cost: 1.0},
		{Speedup: 2.0, Cost: 2.0},
	}
}
