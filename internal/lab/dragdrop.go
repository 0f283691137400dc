package lab

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// HandleID is a unique identifier for a drag handle.
type HandleID string

// HandleKind classifies what a drag handle is attached to.
type HandleKind int

const (
	HandleEquipment HandleKind = iota
	HandleChemical
	HandleTool
)

// String returns the string representation of the handle kind.
func (k HandleKind) String() string {
	switch k {
	case HandleChemical:
		return "chemical"
	case HandleTool:
		return "tool"
	default:
		return "equipment"
	}
}

// AxisRange is a closed [Min,Max] clamp interval for one axis.
type AxisRange struct {
	Min float32 `json:"min"`
	Max float32 `json:"max"`
}

// DragHandle is the interactive proxy for one scene object. Pointer rays are
// resolved against its pick sphere; drags move Position and the optional
// per-axis bounds clamp it on release. Axes without a configured range are
// left unclamped.
type DragHandle struct {
	ID        HandleID   `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Kind      HandleKind `json:"kind"`
	Position  mgl32.Vec3 `json:"position"`
	Draggable bool       `json:"draggable"`
	PickRadius float32   `json:"pick_radius"`

	// Bounds indexes X=0, Y=1, Z=2; nil means the axis is unconstrained.
	Bounds [3]*AxisRange `json:"bounds"`
}

// NewDragHandle creates a draggable handle at the given position with a
// default pick radius.
func NewDragHandle(ownerID string, kind HandleKind, pos mgl32.Vec3) *DragHandle {
	return &DragHandle{
		ID:         HandleID(NewRandomID()),
		OwnerID:    ownerID,
		Kind:       kind,
		Position:   pos,
		Draggable:  true,
		PickRadius: 0.6,
	}
}

// WithBounds sets the clamp range for one axis (0=X, 1=Y, 2=Z) and returns
// the handle for chaining.
func (h *DragHandle) WithBounds(axis int, min, max float32) *DragHandle {
	if axis >= 0 && axis < 3 {
		h.Bounds[axis] = &AxisRange{Min: min, Max: max}
	}
	return h
}

// clampToBounds clamps the position into the configured per-axis ranges.
func (h *DragHandle) clampToBounds() {
	for axis, r := range h.Bounds {
		if r == nil {
			continue
		}
		h.Position[axis] = clamp(h.Position[axis], r.Min, r.Max)
	}
}

// Registry tracks every interactive handle in a scene plus the single
// selection state: at most one dragged handle and at most one hover target.
// The selection is owned here and passed around explicitly, never ambient.
type Registry struct {
	mu      sync.RWMutex
	camera  Camera
	handles map[HandleID]*DragHandle

	dragged      *DragHandle
	dragStartPos mgl32.Vec3
	hovered      *DragHandle

	// DragPlaneHeight is the y of the horizontal plane drags are projected
	// onto.
	DragPlaneHeight float32
}

// NewRegistry creates an empty registry using the given camera for pointer
// ray casting.
func NewRegistry(camera Camera) *Registry {
	return &Registry{
		camera:          camera,
		handles:         make(map[HandleID]*DragHandle),
		DragPlaneHeight: 0.5,
	}
}

// SetCamera replaces the camera used for ray casting.
func (reg *Registry) SetCamera(camera Camera) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.camera = camera
}

// Register inserts a handle. Re-registering an existing ID replaces the
// previous handle.
func (reg *Registry) Register(h *DragHandle) {
	if h == nil {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if h.ID == "" {
		h.ID = HandleID(NewRandomID())
	}
	reg.handles[h.ID] = h
}

// Unregister removes a handle by ID. Unknown IDs are a no-op. If the handle
// is currently dragged or hovered, that selection is cleared too.
func (reg *Registry) Unregister(id HandleID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	h, ok := reg.handles[id]
	if !ok {
		return
	}
	delete(reg.handles, id)
	if reg.dragged == h {
		reg.dragged = nil
	}
	if reg.hovered == h {
		reg.hovered = nil
	}
}

// Get retrieves a handle by ID.
func (reg *Registry) Get(id HandleID) (*DragHandle, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	h, ok := reg.handles[id]
	return h, ok
}

// Handles returns a snapshot of all registered handles.
func (reg *Registry) Handles() []*DragHandle {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*DragHandle, 0, len(reg.handles))
	for _, h := range reg.handles {
		out = append(out, h)
	}
	return out
}

// ResolvePointer casts a ray from the pointer through the camera and returns
// the nearest handle whose pick sphere it hits, or nil. The result also
// becomes the hover target unless a drag is in progress, in which case hover
// resolution is skipped entirely.
func (reg *Registry) ResolvePointer(x, y float32) *DragHandle {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.dragged != nil {
		return nil
	}
	hit := reg.resolveLocked(x, y)
	reg.hovered = hit
	return hit
}

func (reg *Registry) resolveLocked(x, y float32) *DragHandle {
	ray, ok := reg.camera.ScreenRay(x, y)
	if !ok {
		return nil
	}
	var nearest *DragHandle
	var nearestT float32
	for _, h := range reg.handles {
		t, hit := ray.IntersectSphere(h.Position, h.PickRadius)
		if !hit {
			continue
		}
		if nearest == nil || t < nearestT {
			nearest = h
			nearestT = t
		}
	}
	return nearest
}

// Hovered returns the current hover target, or nil.
func (reg *Registry) Hovered() *DragHandle {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.hovered
}

// Dragged returns the handle currently being dragged, or nil.
func (reg *Registry) Dragged() *DragHandle {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.dragged
}

// StartDrag begins dragging the given handle. It is refused (returns false)
// if the handle is not draggable, not registered, or another drag is already
// in progress. The pre-drag position is recorded for constraint clamping.
func (reg *Registry) StartDrag(id HandleID) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	h, ok := reg.handles[id]
	if !ok || !h.Draggable || reg.dragged != nil {
		return false
	}
	reg.dragged = h
	reg.dragStartPos = h.Position
	reg.hovered = nil
	return true
}

// UpdateDrag moves the dragged handle to the intersection of the pointer ray
// with the drag plane. An invalid intersection (parallel ray, non-finite
// result) leaves the handle where it is; the next valid pointer event picks
// the drag back up.
func (reg *Registry) UpdateDrag(x, y float32) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.dragged == nil {
		return
	}
	ray, ok := reg.camera.ScreenRay(x, y)
	if !ok {
		return
	}
	p, ok := ray.IntersectPlaneY(reg.DragPlaneHeight)
	if !ok {
		return
	}
	reg.dragged.Position = p
}

// EndDrag finishes the drag: the handle's final position is clamped into its
// configured per-axis bounds and the dragged reference is cleared. Returns
// the released handle, or nil if no drag was active.
func (reg *Registry) EndDrag() *DragHandle {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	h := reg.dragged
	if h == nil {
		return nil
	}
	h.clampToBounds()
	reg.dragged = nil
	return h
}

// CancelDrag aborts an in-progress drag and restores the pre-drag position.
func (reg *Registry) CancelDrag() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.dragged == nil {
		return
	}
	reg.dragged.Position = reg.dragStartPos
	reg.dragged = nil
}
