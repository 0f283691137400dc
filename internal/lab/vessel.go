package lab

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// VesselID is a unique identifier for a vessel instance.
type VesselID string

// VesselKind is the shape family of a piece of glassware.
type VesselKind int

const (
	KindBeaker VesselKind = iota
	KindFlask
	KindBottle
	KindTestTube
)

// String returns the string representation of the vessel kind.
func (k VesselKind) String() string {
	switch k {
	case KindBeaker:
		return "beaker"
	case KindFlask:
		return "flask"
	case KindBottle:
		return "bottle"
	case KindTestTube:
		return "test-tube"
	default:
		return "unknown"
	}
}

// ParseVesselKind parses a kind string (case-insensitive on the canonical
// spellings). Unknown strings fall back to a beaker, never an error.
func ParseVesselKind(s string) VesselKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beaker":
		return KindBeaker
	case "flask":
		return KindFlask
	case "bottle":
		return KindBottle
	case "test-tube", "testtube", "test_tube":
		return KindTestTube
	default:
		return KindBeaker
	}
}

// Vessel represents one piece of glassware in the scene: its kind, how much
// liquid it holds, the liquid color, and whether it is capped. Volume is only
// mutated by pour-end events, never during a gesture.
type Vessel struct {
	ID       VesselID   `json:"id"`
	Kind     VesselKind `json:"kind"`
	Label    string     `json:"label"`
	Capacity float32    `json:"capacity"`
	Volume   float32    `json:"volume"`
	Color    Color      `json:"color"`
	Capped   bool       `json:"capped"`
	Position mgl32.Vec3 `json:"position"`
}

// NewVessel creates a vessel with the given kind and capacity, initially
// empty and uncapped. The vessel is assigned a random ID.
func NewVessel(kind VesselKind, label string, capacity float32) *Vessel {
	return &Vessel{
		ID:       VesselID(NewRandomID()),
		Kind:     kind,
		Label:    label,
		Capacity: capacity,
	}
}

// FillFraction returns the normalized fill level in [0,1] for renderers.
// An empty or zero-capacity vessel reports 0.
func (v *Vessel) FillFraction() float32 {
	if v.Capacity <= 0 {
		return 0
	}
	return clamp(v.Volume/v.Capacity, 0, 1)
}

// Pour removes up to amount from the vessel and returns the quantity actually
// removed. Volume never goes below zero.
func (v *Vessel) Pour(amount float32) float32 {
	if amount <= 0 {
		return 0
	}
	poured := amount
	if poured > v.Volume {
		poured = v.Volume
	}
	v.Volume -= poured
	return poured
}

// Fill adds up to amount to the vessel and returns the quantity actually
// added. Volume never exceeds capacity.
func (v *Vessel) Fill(amount float32) float32 {
	if amount <= 0 {
		return 0
	}
	space := v.Capacity - v.Volume
	if space < 0 {
		space = 0
	}
	added := amount
	if added > space {
		added = space
	}
	v.Volume += added
	return added
}

// CanPour reports whether a pour gesture may start from this vessel.
func (v *Vessel) CanPour() bool {
	return !v.Capped && v.Volume > 0
}

// Color is an RGB liquid color with components in [0,1].
type Color struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
}
