package lab

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testSimConfig() SimConfig {
	cfg := DefaultSimConfig()
	cfg.SplashChance = 0 // deterministic unless a test opts in
	return cfg
}

func TestSimulator_SpawnFromStream(t *testing.T) {
	sim := NewSimulator(testSimConfig())
	sim.Seed(1)

	st := sim.StartStream(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0.5, 0}, Color{B: 1}, 2)
	if !st.Active {
		t.Fatal("Expected new stream to be active")
	}

	// FlowRate 2 * SpawnFactor 5 = 10 particles/second.
	sim.Step(0.5)
	if got := sim.LiveParticles(); got != 5 {
		t.Errorf("Expected 5 particles after 0.5s, got %d", got)
	}

	for _, p := range sim.Particles() {
		if p.Color != (Color{B: 1}) {
			t.Errorf("Expected particle to carry the stream color, got %+v", p.Color)
		}
		if p.Lifetime != sim.Config().ParticleLifetime {
			t.Errorf("Unexpected lifetime %f", p.Lifetime)
		}
	}
}

func TestSimulator_SpawnAccumulatorCarriesFraction(t *testing.T) {
	cfg := testSimConfig()
	cfg.CaptureRadius = 0 // keep capture out of the count
	sim := NewSimulator(cfg)
	sim.Seed(1)

	// 10 particles/second at 0.05s per frame is 0.5 per frame: one particle
	// every second frame, never zero forever and never rounding up early.
	sim.StartStream(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0.5, 0}, Color{}, 2)

	sim.Step(0.05)
	if got := sim.LiveParticles(); got != 0 {
		t.Errorf("Expected 0 particles after one half-step, got %d", got)
	}
	sim.Step(0.05)
	if got := sim.LiveParticles(); got != 1 {
		t.Errorf("Expected 1 particle after two half-steps, got %d", got)
	}
}

func TestSimulator_ParticleBudget(t *testing.T) {
	cfg := testSimConfig()
	cfg.MaxParticles = 8
	sim := NewSimulator(cfg)
	sim.Seed(1)

	// A torrent: 100 units/s * 5 = 500 particles/s.
	sim.StartStream(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 0.5, 0}, Color{}, 100)

	for i := 0; i < 10; i++ {
		sim.Step(0.1)
		if got := sim.LiveParticles(); got > cfg.MaxParticles {
			t.Fatalf("Budget exceeded: %d > %d", got, cfg.MaxParticles)
		}
	}
}

func TestSimulator_AgeRetirement(t *testing.T) {
	cfg := testSimConfig()
	cfg.ParticleLifetime = 0.2
	cfg.CaptureRadius = 0 // keep capture out of this test
	sim := NewSimulator(cfg)
	sim.Seed(1)

	id := sim.StartStream(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 4, 0}, Color{}, 2).ID
	sim.Step(0.1) // spawns 1
	sim.EndStream(id)
	if sim.LiveParticles() != 1 {
		t.Fatalf("Expected 1 particle, got %d", sim.LiveParticles())
	}

	sim.Step(0.1)
	sim.Step(0.1) // age 0.3 > lifetime 0.2
	if sim.LiveParticles() != 0 {
		t.Errorf("Expected expired particle retired, got %d live", sim.LiveParticles())
	}
}

func TestSimulator_CaptureNearTarget(t *testing.T) {
	cfg := testSimConfig()
	cfg.CaptureRadius = 10 // everything is captured on the first step
	sim := NewSimulator(cfg)
	sim.Seed(1)

	sim.StartStream(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0.5, 0}, Color{}, 2)
	sim.Step(0.5)

	if got := sim.LiveParticles(); got != 0 {
		t.Errorf("Expected all particles captured, got %d live", got)
	}
}

func TestSimulator_CaptureSplash(t *testing.T) {
	cfg := testSimConfig()
	cfg.CaptureRadius = 10
	cfg.SplashChance = 1
	cfg.SplashCount = 3
	sim := NewSimulator(cfg)
	sim.Seed(1)

	sim.StartStream(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0.5, 0}, Color{R: 1}, 2)
	sim.Step(0.5) // 5 spawned, all captured, each bursting 3 splash particles

	if got := sim.LiveParticles(); got != 15 {
		t.Errorf("Expected 15 splash particles, got %d", got)
	}
	for _, p := range sim.Particles() {
		if p.Color != (Color{R: 1}) {
			t.Errorf("Expected splash to inherit the stream color, got %+v", p.Color)
		}
	}
}

func TestSimulator_SplashStaysAboveGround(t *testing.T) {
	cfg := testSimConfig()
	cfg.CaptureRadius = 10
	cfg.SplashChance = 1
	cfg.ParticleLifetime = 10 // keep splash alive across many bounces
	sim := NewSimulator(cfg)
	sim.Seed(1)

	id := sim.StartStream(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0.5, 0}, Color{}, 2).ID
	sim.Step(0.5)
	sim.EndStream(id)

	for i := 0; i < 200; i++ {
		sim.Step(0.05)
		for _, p := range sim.Particles() {
			if p.Pos.Y() < cfg.GroundHeight-1e-3 {
				t.Fatalf("Splash particle sank below ground: y=%f", p.Pos.Y())
			}
		}
	}
}

func TestSimulator_StreamLifecycle(t *testing.T) {
	cfg := testSimConfig()
	cfg.StreamGrace = 0.1
	cfg.ParticleLifetime = 0.2
	cfg.CaptureRadius = 0
	sim := NewSimulator(cfg)
	sim.Seed(1)

	st := sim.StartStream(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 4, 0}, Color{}, 2)
	sim.Step(0.1)
	sim.EndStream(st.ID)

	if got, ok := sim.Stream(st.ID); !ok || got.Active {
		t.Fatal("Expected ended stream to linger inactive")
	}

	// Ending twice is a no-op.
	sim.EndStream(st.ID)
	sim.EndStream("missing")

	// Grace elapses and its particles expire; the stream is dropped.
	sim.Step(0.1)
	sim.Step(0.1)
	sim.Step(0.1)
	if _, ok := sim.Stream(st.ID); ok {
		t.Error("Expected finished stream to be garbage-collected")
	}
	if len(sim.Streams()) != 0 {
		t.Errorf("Expected no live streams, got %d", len(sim.Streams()))
	}
}

func TestSimulator_ArenaReusesSlots(t *testing.T) {
	cfg := testSimConfig()
	cfg.ParticleLifetime = 0.15
	cfg.CaptureRadius = 0
	cfg.MaxParticles = 64
	sim := NewSimulator(cfg)
	sim.Seed(1)

	sim.StartStream(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 4, 0}, Color{}, 4)

	// Long run with short lifetimes: the arena must stay within budget even
	// though far more particles than MaxParticles are spawned in total.
	for i := 0; i < 100; i++ {
		sim.Step(0.05)
	}
	if len(sim.Particles()) != sim.LiveParticles() {
		t.Errorf("Live count %d disagrees with particle snapshot %d",
			sim.LiveParticles(), len(sim.Particles()))
	}
	if sim.LiveParticles() > cfg.MaxParticles {
		t.Errorf("Budget exceeded: %d", sim.LiveParticles())
	}
}

func TestSimulator_StepZeroDt(t *testing.T) {
	sim := NewSimulator(testSimConfig())
	sim.StartStream(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0.5, 0}, Color{}, 100)

	sim.Step(0)
	sim.Step(-1)
	if sim.LiveParticles() != 0 {
		t.Errorf("Expected no particles for non-positive dt, got %d", sim.LiveParticles())
	}
}
