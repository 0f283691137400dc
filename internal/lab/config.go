package lab

// SceneConfig is the JSON description of a lab scene: the glassware on the
// bench, the chemicals, the experiments in play, and the simulation tuning.
// It is what clients POST to create or replace a session's scene.
type SceneConfig struct {
	Name        string             `json:"name"`
	Camera      *CameraConfig      `json:"camera,omitempty"`
	Vessels     []VesselConfig     `json:"vessels"`
	Chemicals   []ChemicalConfig   `json:"chemicals,omitempty"`
	Experiments []ExperimentConfig `json:"experiments,omitempty"`
	Sim         *SimConfig         `json:"sim,omitempty"`
}

// CameraConfig overrides parts of the default camera.
type CameraConfig struct {
	Position [3]float32 `json:"position"`
	Target   [3]float32 `json:"target"`
	FovYDeg  float32    `json:"fov_y_deg,omitempty"`
	Width    int        `json:"width,omitempty"`
	Height   int        `json:"height,omitempty"`
}

// VesselConfig describes one piece of glassware and its interaction limits.
type VesselConfig struct {
	ID       string       `json:"id,omitempty"`
	Kind     string       `json:"kind"`
	Label    string       `json:"label"`
	Capacity float32      `json:"capacity"`
	Volume   float32      `json:"volume,omitempty"`
	Color    *Color       `json:"color,omitempty"`
	Capped   bool         `json:"capped,omitempty"`
	Position [3]float32   `json:"position"`
	Fixed    bool         `json:"fixed,omitempty"` // not draggable
	Bounds   []AxisBound  `json:"bounds,omitempty"`
}

// AxisBound is the JSON form of a per-axis clamp range.
type AxisBound struct {
	Axis string  `json:"axis"` // "x", "y" or "z"
	Min  float32 `json:"min"`
	Max  float32 `json:"max"`
}

// ChemicalConfig describes a pourable chemical bound to a source vessel.
type ChemicalConfig struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	VesselID string  `json:"vessel_id"`
	Color    *Color  `json:"color,omitempty"`
	FlowRate float32 `json:"flow_rate,omitempty"`
}

// ExperimentConfig seeds one experiment into the session's reaction table.
type ExperimentConfig struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// axisIndex maps an axis name to its vector index. Unknown names return -1.
func axisIndex(axis string) int {
	switch axis {
	case "x", "X":
		return 0
	case "y", "Y":
		return 1
	case "z", "Z":
		return 2
	default:
		return -1
	}
}
