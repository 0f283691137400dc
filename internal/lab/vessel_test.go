package lab

import "testing"

func TestNewVessel(t *testing.T) {
	v := NewVessel(KindFlask, "Flask A", 250)

	if v.ID == "" {
		t.Error("Expected vessel to get a generated ID")
	}
	if v.Kind != KindFlask {
		t.Errorf("Expected kind flask, got %s", v.Kind)
	}
	if v.Volume != 0 {
		t.Errorf("Expected new vessel to be empty, got %f", v.Volume)
	}
	if v.Capped {
		t.Error("Expected new vessel to be uncapped")
	}
}

func TestVessel_Pour(t *testing.T) {
	v := &Vessel{Capacity: 100, Volume: 30}

	removed := v.Pour(10)
	if removed != 10 {
		t.Errorf("Expected 10 removed, got %f", removed)
	}
	if v.Volume != 20 {
		t.Errorf("Expected volume 20, got %f", v.Volume)
	}

	// Pouring more than remains drains the vessel, never below zero.
	removed = v.Pour(50)
	if removed != 20 {
		t.Errorf("Expected 20 removed, got %f", removed)
	}
	if v.Volume != 0 {
		t.Errorf("Expected empty vessel, got %f", v.Volume)
	}

	if removed = v.Pour(-5); removed != 0 {
		t.Errorf("Expected negative pour to be a no-op, got %f", removed)
	}
}

func TestVessel_Fill(t *testing.T) {
	v := &Vessel{Capacity: 100, Volume: 90}

	added := v.Fill(5)
	if added != 5 {
		t.Errorf("Expected 5 added, got %f", added)
	}

	// Overfilling clamps at capacity.
	added = v.Fill(50)
	if added != 5 {
		t.Errorf("Expected 5 added (clamped), got %f", added)
	}
	if v.Volume != 100 {
		t.Errorf("Expected volume 100, got %f", v.Volume)
	}

	if added = v.Fill(0); added != 0 {
		t.Errorf("Expected zero fill to be a no-op, got %f", added)
	}
}

func TestVessel_FillFraction(t *testing.T) {
	tests := []struct {
		name     string
		vessel   Vessel
		expected float32
	}{
		{"half full", Vessel{Capacity: 100, Volume: 50}, 0.5},
		{"empty", Vessel{Capacity: 100, Volume: 0}, 0},
		{"full", Vessel{Capacity: 100, Volume: 100}, 1},
		{"zero capacity", Vessel{Capacity: 0, Volume: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vessel.FillFraction(); got != tt.expected {
				t.Errorf("Expected fraction %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestVessel_CanPour(t *testing.T) {
	full := &Vessel{Capacity: 100, Volume: 50}
	if !full.CanPour() {
		t.Error("Expected uncapped vessel with liquid to pour")
	}

	capped := &Vessel{Capacity: 100, Volume: 50, Capped: true}
	if capped.CanPour() {
		t.Error("Expected capped vessel to refuse pouring")
	}

	empty := &Vessel{Capacity: 100}
	if empty.CanPour() {
		t.Error("Expected empty vessel to refuse pouring")
	}
}

func TestParseVesselKind(t *testing.T) {
	tests := []struct {
		input    string
		expected VesselKind
	}{
		{"beaker", KindBeaker},
		{"flask", KindFlask},
		{"FLASK", KindFlask},
		{"bottle", KindBottle},
		{" Bottle ", KindBottle},
		{"test-tube", KindTestTube},
		{"Test-Tube", KindTestTube},
		{"test_tube", KindTestTube},
		{"unknown-shape", KindBeaker},
		{"", KindBeaker},
	}

	for _, tt := range tests {
		if got := ParseVesselKind(tt.input); got != tt.expected {
			t.Errorf("ParseVesselKind(%q) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}
