package lab

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// SessionID is a unique identifier for a lab session.
type SessionID string

// Chemical is a pourable substance bound to its source vessel.
type Chemical struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	VesselID VesselID `json:"vessel_id"`
	Color    Color    `json:"color"`
	FlowRate float32  `json:"flow_rate"`
}

// activePour tracks a pour gesture from double-click to pointer-up.
type activePour struct {
	streamID StreamID
	chemID   string
	fromID   VesselID
	toID     VesselID
	duration float32
}

// Session is one live lab scene: the glassware, the drag registry, the
// particle simulator and the reaction table, advanced by a single frame
// loop. Pointer events and frame steps arrive serialized from the host, so
// the mutex only guards against observers on other goroutines.
type Session struct {
	mu        sync.Mutex
	id        SessionID
	name      string
	camera    Camera
	registry  *Registry
	sim       *Simulator
	vessels   map[VesselID]*Vessel
	handles   map[VesselID]HandleID
	chemicals map[string]*Chemical
	reactions *ReactionTable
	activeExp ExperimentID
	pour      *activePour
	tick      int64

	logger      Logger
	notifier    *NotificationManager
	notifierIDs []string

	snapshotDir    string
	snapshotEveryN int

	stopCh    chan struct{}
	isRunning bool
}

// NewSession creates an empty session with the default camera and sim tuning.
func NewSession(name string) *Session {
	camera := DefaultCamera()
	return &Session{
		id:        SessionID(NewRandomID()),
		name:      name,
		camera:    camera,
		registry:  NewRegistry(camera),
		sim:       NewSimulator(DefaultSimConfig()),
		vessels:   make(map[VesselID]*Vessel),
		handles:   make(map[VesselID]HandleID),
		chemicals: make(map[string]*Chemical),
		reactions: NewReactionTable(nil),
		stopCh:    make(chan struct{}),
	}
}

// BuildSessionFromConfig validates a scene config and constructs a session
// from it: vessels get drag handles (fixed vessels are registered but not
// draggable), chemicals bind to their vessels, and experiments seed the
// reaction table.
func BuildSessionFromConfig(cfg SceneConfig) (*Session, error) {
	if err := ValidateSceneConfig(cfg); err != nil {
		return nil, err
	}

	s := NewSession(cfg.Name)

	if cfg.Camera != nil {
		cam := s.camera
		cam.Position = mgl32.Vec3(cfg.Camera.Position)
		cam.Target = mgl32.Vec3(cfg.Camera.Target)
		if cfg.Camera.FovYDeg > 0 {
			cam.FovY = mgl32.DegToRad(cfg.Camera.FovYDeg)
		}
		if cfg.Camera.Width > 0 && cfg.Camera.Height > 0 {
			cam.Width = cfg.Camera.Width
			cam.Height = cfg.Camera.Height
			cam.Aspect = float32(cfg.Camera.Width) / float32(cfg.Camera.Height)
		}
		s.camera = cam
		s.registry.SetCamera(cam)
	}

	if cfg.Sim != nil {
		s.sim = NewSimulator(*cfg.Sim)
	}

	for _, vc := range cfg.Vessels {
		v := NewVessel(ParseVesselKind(vc.Kind), vc.Label, vc.Capacity)
		if vc.ID != "" {
			v.ID = VesselID(vc.ID)
		}
		v.Volume = clamp(vc.Volume, 0, vc.Capacity)
		v.Capped = vc.Capped
		v.Position = mgl32.Vec3(vc.Position)
		if vc.Color != nil {
			v.Color = *vc.Color
		}

		h := NewDragHandle(string(v.ID), HandleEquipment, v.Position)
		h.Draggable = !vc.Fixed
		for _, b := range vc.Bounds {
			if idx := axisIndex(b.Axis); idx >= 0 {
				h.Bounds[idx] = &AxisRange{Min: b.Min, Max: b.Max}
			}
		}

		s.vessels[v.ID] = v
		s.handles[v.ID] = h.ID
		s.registry.Register(h)
	}

	for _, cc := range cfg.Chemicals {
		chem := &Chemical{
			ID:       cc.ID,
			Name:     cc.Name,
			VesselID: VesselID(cc.VesselID),
			FlowRate: cc.FlowRate,
		}
		if chem.FlowRate <= 0 {
			chem.FlowRate = 1
		}
		if cc.Color != nil {
			chem.Color = *cc.Color
		}
		s.chemicals[chem.ID] = chem
	}

	experiments := make([]Experiment, 0, len(cfg.Experiments))
	for _, ec := range cfg.Experiments {
		experiments = append(experiments, Experiment{
			ID:       ExperimentID(ec.ID),
			Title:    ec.Title,
			Category: ParseCategory(ec.Category),
		})
	}
	s.reactions = NewReactionTable(experiments)
	if len(experiments) > 0 {
		s.activeExp = experiments[0].ID
	}

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() SessionID {
	return s.id
}

// SetID overrides the generated session ID (used by the session manager).
func (s *Session) SetID(id SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// SetLogger injects a logger. A nil logger silences the session.
func (s *Session) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger == nil {
		logger = NewNoOpLogger()
	}
	s.logger = logger
}

// SetNotificationManager wires the session's events to a notification
// manager; notifierIDs selects which notifiers receive them.
func (s *Session) SetNotificationManager(nm *NotificationManager, notifierIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = nm
	s.notifierIDs = notifierIDs
}

// SetSnapshotDir sets the directory periodic snapshots are written to.
func (s *Session) SetSnapshotDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotDir = dir
}

// SetSnapshotEveryNTicks sets the snapshot frequency; 0 disables periodic
// snapshots.
func (s *Session) SetSnapshotEveryNTicks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotEveryN = n
}

// SetActiveExperiment selects which experiment pours are recorded against.
func (s *Session) SetActiveExperiment(id ExperimentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeExp = id
}

// Registry exposes the drag-drop registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Simulator exposes the particle simulator.
func (s *Session) Simulator() *Simulator {
	return s.sim
}

// LiveParticles reports the simulator's live particle count under the
// session mutex, so it is safe to call from another goroutine while the
// frame loop is running.
func (s *Session) LiveParticles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.LiveParticles()
}

// Reactions exposes the reaction table.
func (s *Session) Reactions() *ReactionTable {
	return s.reactions
}

// Vessel retrieves a vessel by ID.
func (s *Session) Vessel(id VesselID) (*Vessel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vessels[id]
	return v, ok
}

// Vessels returns a snapshot of all vessels.
func (s *Session) Vessels() []*Vessel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Vessel, 0, len(s.vessels))
	for _, v := range s.vessels {
		out = append(out, v)
	}
	return out
}

// PointerDown starts a drag if the pointer hits a draggable handle.
// Returns the hit handle, or nil.
func (s *Session) PointerDown(x, y float32) *DragHandle {
	h := s.registry.ResolvePointer(x, y)
	if h == nil {
		return nil
	}
	if h.Draggable {
		s.registry.StartDrag(h.ID)
	}
	return h
}

// PointerMove updates an in-progress drag, or resolves the hover target when
// nothing is dragged.
func (s *Session) PointerMove(x, y float32) {
	if s.registry.Dragged() != nil {
		s.registry.UpdateDrag(x, y)
		return
	}
	s.registry.ResolvePointer(x, y)
}

// PointerUp ends an in-progress drag (clamping the handle into its bounds
// and syncing the owning vessel's position) and finishes any active pour.
func (s *Session) PointerUp() {
	if h := s.registry.EndDrag(); h != nil {
		s.mu.Lock()
		if v, ok := s.vessels[VesselID(h.OwnerID)]; ok {
			v.Position = h.Position
		}
		s.mu.Unlock()
	}
	s.EndPour()
}

// DoubleClick starts a pour when the pointer hits a vessel holding a
// pourable chemical. The pour target is the nearest other uncapped vessel
// with free capacity. Returns the started stream ID, or false.
func (s *Session) DoubleClick(x, y float32) (StreamID, bool) {
	h := s.registry.ResolvePointer(x, y)
	if h == nil {
		return "", false
	}
	chem := s.chemicalForVessel(VesselID(h.OwnerID))
	if chem == nil {
		return "", false
	}
	target := s.nearestPourTarget(chem.VesselID)
	if target == "" {
		return "", false
	}
	return s.StartPour(chem.ID, target)
}

// StartPour begins pouring the given chemical from its vessel into the
// target vessel. Only one pour may be active at a time.
func (s *Session) StartPour(chemicalID string, target VesselID) (StreamID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pour != nil {
		return "", false
	}
	chem, ok := s.chemicals[chemicalID]
	if !ok {
		return "", false
	}
	from, ok := s.vessels[chem.VesselID]
	if !ok || !from.CanPour() {
		return "", false
	}
	to, ok := s.vessels[target]
	if !ok || to.Capped || target == chem.VesselID {
		return "", false
	}

	// Stream runs from the source lip down to the target mouth.
	source := from.Position.Add(mgl32.Vec3{0, 0.6, 0})
	dest := to.Position.Add(mgl32.Vec3{0, 0.4, 0})
	color := chem.Color
	if color == (Color{}) {
		color = from.Color
	}
	st := s.sim.StartStream(source, dest, color, chem.FlowRate)
	s.pour = &activePour{
		streamID: st.ID,
		chemID:   chem.ID,
		fromID:   chem.VesselID,
		toID:     target,
	}
	return st.ID, true
}

// EndPour finishes the active pour: the stream is deactivated, the poured
// volume (flow rate x pour duration, clamped into both vessels) is
// transferred, the chemical is recorded as combined for the active
// experiment, and the reaction trigger is checked. A no-op when no pour is
// active.
func (s *Session) EndPour() {
	s.mu.Lock()
	p := s.pour
	if p == nil {
		s.mu.Unlock()
		return
	}
	s.pour = nil
	s.sim.EndStream(p.streamID)

	chem := s.chemicals[p.chemID]
	from, okFrom := s.vessels[p.fromID]
	to, okTo := s.vessels[p.toID]

	var amount float32
	if chem != nil && okFrom && okTo {
		removed := from.Pour(chem.FlowRate * p.duration)
		amount = to.Fill(removed)
		// Overshoot past the target's capacity is spilled, not returned.
	}

	expID := s.activeExp
	if expID != "" && chem != nil {
		s.reactions.AddChemical(expID, chem.ID)
	}
	result, fired := s.reactions.Trigger(expID)
	tick := s.tick
	s.mu.Unlock()

	s.emit(LabEvent{
		Type:       EventPourCompleted,
		SessionID:  s.id,
		Timestamp:  time.Now().Unix(),
		Tick:       tick,
		ChemicalID: p.chemID,
		FromVessel: string(p.fromID),
		ToVessel:   string(p.toID),
		Amount:     amount,
	})
	if fired {
		s.emit(LabEvent{
			Type:         EventReactionFired,
			SessionID:    s.id,
			Timestamp:    time.Now().Unix(),
			Tick:         tick,
			ExperimentID: expID,
			Outcome:      result.Outcome,
			Effects:      result.Effects,
		})
	}
}

// Step advances the session by dt seconds: the particle simulation runs, the
// active pour accumulates duration, and a periodic snapshot may be written.
func (s *Session) Step(dt float32) {
	s.mu.Lock()
	s.tick++
	if s.pour != nil {
		s.pour.duration += dt
	}
	s.sim.Step(dt)

	writeSnap := s.snapshotDir != "" && s.snapshotEveryN > 0 && s.tick%int64(s.snapshotEveryN) == 0
	var snap Snapshot
	if writeSnap {
		snap = s.snapshotLocked()
	}
	dir := s.snapshotDir
	logger := s.logger
	s.mu.Unlock()

	if writeSnap {
		if err := WriteSnapshotFile(dir, snap); err != nil && logger != nil {
			logger.Warnf("snapshot write failed: session=%s error=%v", s.id, err)
		}
	}
}

// Run starts the session frame loop in a goroutine, stepping once per
// interval until Stop is called. It can be called again to restart after
// stopping.
func (s *Session) Run(interval time.Duration) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.isRunning = true
	s.mu.Unlock()

	dt := float32(interval.Seconds())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Step(dt)
			case <-s.stopCh:
				s.mu.Lock()
				s.isRunning = false
				s.mu.Unlock()
				return
			}
		}
	}()
}

// Stop stops the frame loop. After stopping, Run can be called again.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	close(s.stopCh)
}

// emit hands an event to the notification manager, if one is wired.
func (s *Session) emit(event LabEvent) {
	if s.notifier == nil || len(s.notifierIDs) == 0 {
		return
	}
	s.notifier.Enqueue(event, s.notifierIDs)
}

// chemicalForVessel finds the chemical whose source is the given vessel.
func (s *Session) chemicalForVessel(id VesselID) *Chemical {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chemicals {
		if c.VesselID == id {
			return c
		}
	}
	return nil
}

// nearestPourTarget picks the closest other uncapped vessel with free
// capacity, or "" when none qualifies.
func (s *Session) nearestPourTarget(from VesselID) VesselID {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.vessels[from]
	if !ok {
		return ""
	}
	var best VesselID
	var bestDist float32
	for id, v := range s.vessels {
		if id == from || v.Capped || v.Volume >= v.Capacity {
			continue
		}
		d := v.Position.Sub(src.Position).Len()
		if best == "" || d < bestDist {
			best = id
			bestDist = d
		}
	}
	return best
}

// SessionState is the JSON view of a session a renderer polls each frame.
type SessionState struct {
	SessionID SessionID  `json:"session_id"`
	Name      string     `json:"name"`
	Tick      int64      `json:"tick"`
	Vessels   []Vessel   `json:"vessels"`
	Streams   []Stream   `json:"streams"`
	Particles []Particle `json:"particles"`
	Dragged   HandleID   `json:"dragged,omitempty"`
	Hovered   HandleID   `json:"hovered,omitempty"`
}

// State captures the renderable state of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := SessionState{
		SessionID: s.id,
		Name:      s.name,
		Tick:      s.tick,
		Vessels:   make([]Vessel, 0, len(s.vessels)),
		Streams:   make([]Stream, 0),
		Particles: s.sim.Particles(),
	}
	for _, v := range s.vessels {
		state.Vessels = append(state.Vessels, *v)
	}
	for _, st := range s.sim.Streams() {
		state.Streams = append(state.Streams, *st)
	}
	if h := s.registry.Dragged(); h != nil {
		state.Dragged = h.ID
	}
	if h := s.registry.Hovered(); h != nil {
		state.Hovered = h.ID
	}
	return state
}

// snapshotLocked builds a Snapshot; callers hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Tick:      s.tick,
		Vessels:   make([]Vessel, 0, len(s.vessels)),
		Combined:  make(map[ExperimentID][]string),
	}
	for _, v := range s.vessels {
		snap.Vessels = append(snap.Vessels, *v)
	}
	for id, set := range s.reactions.combined {
		chems := make([]string, 0, len(set))
		for c := range set {
			chems = append(chems, c)
		}
		snap.Combined[id] = chems
	}
	return snap
}

// SaveSnapshot writes the current snapshot synchronously to the configured
// snapshot directory.
func (s *Session) SaveSnapshot() error {
	s.mu.Lock()
	dir := s.snapshotDir
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if dir == "" {
		return fmt.Errorf("snapshot directory not configured")
	}
	return WriteSnapshotFile(dir, snap)
}

// SnapshotPath returns the path the session's snapshot is written to, or ""
// when no snapshot directory is configured.
func (s *Session) SnapshotPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshotDir == "" {
		return ""
	}
	return SnapshotPath(s.snapshotDir, s.id)
}

// Snapshot captures the persistent state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// RestoreSnapshot applies a snapshot's vessel volumes and combined-chemical
// sets back onto the session. Vessels unknown to the session are skipped.
func (s *Session) RestoreSnapshot(snap Snapshot) error {
	if err := ValidateSnapshot(snap); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = snap.Tick
	for _, sv := range snap.Vessels {
		v, ok := s.vessels[sv.ID]
		if !ok {
			continue
		}
		v.Volume = clamp(sv.Volume, 0, v.Capacity)
		v.Color = sv.Color
		v.Capped = sv.Capped
		v.Position = sv.Position
		if hid, ok := s.handles[sv.ID]; ok {
			if h, ok := s.registry.Get(hid); ok {
				h.Position = sv.Position
			}
		}
	}
	for expID, chems := range snap.Combined {
		for _, c := range chems {
			s.reactions.AddChemical(expID, c)
		}
	}
	return nil
}
