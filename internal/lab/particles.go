package lab

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// StreamID is a unique identifier for a liquid stream.
type StreamID string

// SimConfig holds the tuning constants of the particle simulation. The spawn
// and splash numbers are cosmetic tuning values with no physical derivation;
// they are kept configurable rather than hard-coded.
type SimConfig struct {
	Gravity          float32 `json:"gravity"`            // units/s^2, applied downward
	MaxParticles     int     `json:"max_particles"`      // hard budget across all populations
	SpawnFactor      float32 `json:"spawn_factor"`       // particles per flow unit per second
	ParticleLifetime float32 `json:"particle_lifetime"`  // seconds
	ParticleSize     float32 `json:"particle_size"`
	CaptureRadius    float32 `json:"capture_radius"`     // retire stream particles this close to target
	SplashChance     float64 `json:"splash_chance"`      // probability a capture spawns a burst
	SplashCount      int     `json:"splash_count"`       // particles per burst
	SplashSpeed      float32 `json:"splash_speed"`       // radial ejection speed
	SplashDamping    float32 `json:"splash_damping"`     // per-step velocity multiplier
	Restitution      float32 `json:"restitution"`        // velocity retained on ground contact
	GroundHeight     float32 `json:"ground_height"`
	StreamGrace      float32 `json:"stream_grace"`       // seconds an inactive stream lingers
}

// DefaultSimConfig returns the tuning used by the stock scene.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Gravity:          9.8,
		MaxParticles:     512,
		SpawnFactor:      5,
		ParticleLifetime: 1.2,
		ParticleSize:     0.05,
		CaptureRadius:    0.15,
		SplashChance:     0.3,
		SplashCount:      3,
		SplashSpeed:      1.5,
		SplashDamping:    0.94,
		Restitution:      0.35,
		GroundHeight:     0,
		StreamGrace:      0.5,
	}
}

// Particle is one liquid droplet. Age counts up toward Lifetime.
type Particle struct {
	ID       uint64     `json:"id"`
	Pos      mgl32.Vec3 `json:"pos"`
	Vel      mgl32.Vec3 `json:"vel"`
	Color    Color      `json:"color"`
	Size     float32    `json:"size"`
	Lifetime float32    `json:"lifetime"`
	Age      float32    `json:"age"`
}

// slot is one arena cell. Freed slots go on the free-list and are reused, so
// steady-state stepping does no allocation.
type slot struct {
	Particle
	alive  bool
	splash bool
	stream StreamID // owning stream, empty for splash particles
}

// Stream is a pour in progress: particles flow from Source to Target while
// Active. Once ended it lingers for the configured grace period and is
// removed when its particles are gone.
type Stream struct {
	ID       StreamID   `json:"id"`
	Source   mgl32.Vec3 `json:"source"`
	Target   mgl32.Vec3 `json:"target"`
	Color    Color      `json:"color"`
	FlowRate float32    `json:"flow_rate"` // volume units per second
	Active   bool       `json:"active"`

	spawnAccum float32
	graceLeft  float32
	liveCount  int
}

// Simulator advances every stream and splash particle each frame. It is a
// best-effort visual simulation: no conservation law, particle counts bounded
// by the configured budget.
type Simulator struct {
	cfg     SimConfig
	rng     *rand.Rand
	streams map[StreamID]*Stream
	slots   []slot
	free    []int
	live    int
	nextID  uint64
}

// NewSimulator creates a simulator with the given tuning. The arena is sized
// up front to the particle budget.
func NewSimulator(cfg SimConfig) *Simulator {
	if cfg.MaxParticles <= 0 {
		cfg.MaxParticles = DefaultSimConfig().MaxParticles
	}
	return &Simulator{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		streams: make(map[StreamID]*Stream),
		slots:   make([]slot, 0, cfg.MaxParticles),
	}
}

// Seed reseeds the internal random source, for deterministic runs.
func (s *Simulator) Seed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
}

// Config returns the simulator tuning.
func (s *Simulator) Config() SimConfig {
	return s.cfg
}

// StartStream begins a pour between two points and returns the new stream.
func (s *Simulator) StartStream(source, target mgl32.Vec3, color Color, flowRate float32) *Stream {
	st := &Stream{
		ID:       StreamID(NewRandomID()),
		Source:   source,
		Target:   target,
		Color:    color,
		FlowRate: flowRate,
		Active:   true,
	}
	s.streams[st.ID] = st
	return st
}

// EndStream marks a stream inactive. It keeps advancing its in-flight
// particles and is garbage-collected once the grace period elapses and the
// particle set empties. Unknown IDs are a no-op.
func (s *Simulator) EndStream(id StreamID) {
	st, ok := s.streams[id]
	if !ok || !st.Active {
		return
	}
	st.Active = false
	st.graceLeft = s.cfg.StreamGrace
}

// Stream retrieves a live stream by ID.
func (s *Simulator) Stream(id StreamID) (*Stream, bool) {
	st, ok := s.streams[id]
	return st, ok
}

// Streams returns the live stream set.
func (s *Simulator) Streams() []*Stream {
	out := make([]*Stream, 0, len(s.streams))
	for _, st := range s.streams {
		out = append(out, st)
	}
	return out
}

// LiveParticles returns how many particles are currently alive.
func (s *Simulator) LiveParticles() int {
	return s.live
}

// Particles copies out every live particle, for renderers and tests.
func (s *Simulator) Particles() []Particle {
	out := make([]Particle, 0, s.live)
	for i := range s.slots {
		if s.slots[i].alive {
			out = append(out, s.slots[i].Particle)
		}
	}
	return out
}

// Step advances the simulation by dt seconds: spawn from active streams,
// advect everything under gravity, retire expired and captured particles,
// and drop finished streams.
func (s *Simulator) Step(dt float32) {
	if dt <= 0 {
		return
	}

	for _, st := range s.streams {
		if st.Active {
			s.spawnStream(st, dt)
		}
	}

	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.alive {
			continue
		}
		sl.Vel[1] -= s.cfg.Gravity * dt
		if sl.splash {
			sl.Vel = sl.Vel.Mul(s.cfg.SplashDamping)
		}
		sl.Pos = sl.Pos.Add(sl.Vel.Mul(dt))
		sl.Age += dt

		if sl.splash && sl.Pos.Y() < s.cfg.GroundHeight {
			sl.Pos[1] = s.cfg.GroundHeight
			sl.Vel[1] = -sl.Vel.Y() * s.cfg.Restitution
		}

		if sl.Age > sl.Lifetime {
			s.retire(i)
			continue
		}
		if !sl.splash {
			if st, ok := s.streams[sl.stream]; ok {
				if sl.Pos.Sub(st.Target).Len() < s.cfg.CaptureRadius {
					captureAt := st.Target
					color := sl.Color
					s.retire(i)
					if s.rng.Float64() < s.cfg.SplashChance {
						s.spawnSplash(captureAt, color)
					}
				}
			}
		}
	}

	for id, st := range s.streams {
		if st.Active {
			continue
		}
		st.graceLeft -= dt
		if st.graceLeft <= 0 && st.liveCount == 0 {
			delete(s.streams, id)
		}
	}
}

// spawnStream emits new particles proportional to flow rate and dt, carrying
// the fractional remainder across frames.
func (s *Simulator) spawnStream(st *Stream, dt float32) {
	st.spawnAccum += st.FlowRate * dt * s.cfg.SpawnFactor
	n := int(st.spawnAccum)
	st.spawnAccum -= float32(n)

	seg := st.Target.Sub(st.Source)
	for i := 0; i < n; i++ {
		if s.live >= s.cfg.MaxParticles {
			return
		}
		frac := float32(s.rng.Float64())
		pos := st.Source.Add(seg.Mul(frac))
		// Initial velocity follows the pour arc toward the target.
		vel := seg.Mul(0.5)
		vel[0] += s.jitter(0.1)
		vel[2] += s.jitter(0.1)
		s.alloc(slot{
			Particle: Particle{
				ID:       s.allocID(),
				Pos:      pos,
				Vel:      vel,
				Color:    st.Color,
				Size:     s.cfg.ParticleSize,
				Lifetime: s.cfg.ParticleLifetime,
			},
			alive:  true,
			stream: st.ID,
		})
		st.liveCount++
	}
}

// spawnSplash ejects a small radial burst at the capture point.
func (s *Simulator) spawnSplash(at mgl32.Vec3, color Color) {
	for i := 0; i < s.cfg.SplashCount; i++ {
		if s.live >= s.cfg.MaxParticles {
			return
		}
		ang := s.rng.Float64() * 2 * math.Pi
		speed := s.cfg.SplashSpeed * (0.5 + 0.5*float32(s.rng.Float64()))
		vel := mgl32.Vec3{
			float32(math.Cos(ang)) * speed,
			s.cfg.SplashSpeed * (0.3 + 0.4*float32(s.rng.Float64())),
			float32(math.Sin(ang)) * speed,
		}
		s.alloc(slot{
			Particle: Particle{
				ID:       s.allocID(),
				Pos:      at,
				Vel:      vel,
				Color:    color,
				Size:     s.cfg.ParticleSize * 0.8,
				Lifetime: s.cfg.ParticleLifetime * 0.6,
			},
			alive:  true,
			splash: true,
		})
	}
}

func (s *Simulator) jitter(scale float32) float32 {
	return (float32(s.rng.Float64())*2 - 1) * scale
}

func (s *Simulator) allocID() uint64 {
	s.nextID++
	return s.nextID
}

// alloc places a particle into a free arena slot, growing the arena only
// while it is below the budget.
func (s *Simulator) alloc(sl slot) {
	s.live++
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[idx] = sl
		return
	}
	s.slots = append(s.slots, sl)
}

// retire frees a slot and returns it to the free-list.
func (s *Simulator) retire(i int) {
	sl := &s.slots[i]
	if !sl.alive {
		return
	}
	if !sl.splash {
		if st, ok := s.streams[sl.stream]; ok {
			st.liveCount--
		}
	}
	*sl = slot{}
	s.free = append(s.free, i)
	s.live--
}
