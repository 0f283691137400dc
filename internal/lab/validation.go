package lab

import (
	"fmt"
	"strings"
)

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid scene: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "scene validation errors: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// ValidateSceneConfig performs comprehensive validation of a SceneConfig
func ValidateSceneConfig(cfg SceneConfig) error {
	err := &ValidationError{}

	if cfg.Name == "" {
		err.Add("scene name is required")
	}

	// Build a map of vessel IDs for chemical references
	vesselIDs := make(map[string]bool)

	for i, vc := range cfg.Vessels {
		prefix := "vessel"
		if vc.ID != "" {
			prefix = "vessel '" + vc.ID + "'"
		} else {
			prefix = "vessel at index " + fmt.Sprintf("%d", i)
		}

		if vc.ID != "" {
			if vesselIDs[vc.ID] {
				err.Add("duplicate vessel ID: " + vc.ID)
			} else {
				vesselIDs[vc.ID] = true
			}
		}
		if vc.Capacity <= 0 {
			err.Add(prefix + ": capacity must be positive")
		}
		if vc.Volume < 0 {
			err.Add(prefix + ": volume cannot be negative")
		}
		if vc.Volume > vc.Capacity {
			err.Add(prefix + ": volume exceeds capacity")
		}
		for j, b := range vc.Bounds {
			if axisIndex(b.Axis) < 0 {
				err.Add(prefix + ": bound at index " + fmt.Sprintf("%d", j) + " has unknown axis '" + b.Axis + "'")
			}
			if b.Min > b.Max {
				err.Add(prefix + ": bound on axis '" + b.Axis + "' has min > max")
			}
		}
	}

	// Validate chemicals
	chemicalIDs := make(map[string]bool)
	for i, cc := range cfg.Chemicals {
		prefix := "chemical"
		if cc.ID != "" {
			prefix = "chemical '" + cc.ID + "'"
		} else {
			prefix = "chemical at index " + fmt.Sprintf("%d", i)
		}

		if cc.ID == "" {
			err.Add(prefix + ": chemical ID is required")
		} else if chemicalIDs[cc.ID] {
			err.Add("duplicate chemical ID: " + cc.ID)
		} else {
			chemicalIDs[cc.ID] = true
		}
		if cc.VesselID == "" {
			err.Add(prefix + ": vessel_id is required")
		} else if !vesselIDs[cc.VesselID] {
			err.Add(prefix + ": vessel '" + cc.VesselID + "' does not exist")
		}
		if cc.FlowRate < 0 {
			err.Add(prefix + ": flow_rate cannot be negative")
		}
	}

	// Validate experiments
	experimentIDs := make(map[string]bool)
	for i, ec := range cfg.Experiments {
		prefix := "experiment"
		if ec.ID != "" {
			prefix = "experiment '" + ec.ID + "'"
		} else {
			prefix = "experiment at index " + fmt.Sprintf("%d", i)
		}

		if ec.ID == "" {
			err.Add(prefix + ": experiment ID is required")
		} else if experimentIDs[ec.ID] {
			err.Add("duplicate experiment ID: " + ec.ID)
		} else {
			experimentIDs[ec.ID] = true
		}
	}

	// Validate sim tuning
	if cfg.Sim != nil {
		if cfg.Sim.MaxParticles < 0 {
			err.Add("sim: max_particles cannot be negative")
		}
		if cfg.Sim.SplashChance < 0 || cfg.Sim.SplashChance > 1 {
			err.Add("sim: splash_chance must be in [0,1]")
		}
		if cfg.Sim.SplashCount < 0 {
			err.Add("sim: splash_count cannot be negative")
		}
	}

	if err.HasIssues() {
		return err
	}
	return nil
}
