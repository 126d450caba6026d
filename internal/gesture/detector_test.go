package gesture

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

const epsilon = 1e-9

func calibrated(top, bottom float64) Calibration {
	var c Calibration
	c.Set(BoundTop, top)
	c.Set(BoundBottom, bottom)
	return c
}

func TestDetector_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		cal        Calibration
		position   float64
		wantAction Action
		wantCal    bool
		wantGauge  bool
	}{
		{
			name:       "above top fires scroll up",
			cal:        calibrated(0.30, 0.45),
			position:   0.25,
			wantAction: ActionScrollUp,
			wantCal:    true,
		},
		{
			name:       "below bottom fires scroll down",
			cal:        calibrated(0.30, 0.45),
			position:   0.50,
			wantAction: ActionScrollDown,
			wantCal:    true,
		},
		{
			name:       "between bounds does nothing",
			cal:        calibrated(0.30, 0.45),
			position:   0.37,
			wantAction: ActionNone,
			wantCal:    true,
			wantGauge:  true,
		},
		{
			name:       "inside top dead zone does nothing",
			cal:        calibrated(0.30, 0.45),
			position:   0.28,
			wantAction: ActionNone,
			wantCal:    true,
		},
		{
			name:       "inside bottom dead zone does nothing",
			cal:        calibrated(0.30, 0.45),
			position:   0.47,
			wantAction: ActionNone,
			wantCal:    true,
		},
		{
			name:       "uncalibrated does nothing",
			cal:        Calibration{},
			position:   0.10,
			wantAction: ActionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultConfig())

			got := d.Evaluate(tt.position, tt.cal, DefaultSettings(), time.Now())

			if got.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", got.Action, tt.wantAction)
			}
			if got.Calibrated != tt.wantCal {
				t.Errorf("Calibrated = %v, want %v", got.Calibrated, tt.wantCal)
			}
			if got.ShowGauge != tt.wantGauge {
				t.Errorf("ShowGauge = %v, want %v", got.ShowGauge, tt.wantGauge)
			}
		})
	}
}

func TestDetector_ProximityBetweenBounds(t *testing.T) {
	d := NewDetector(DefaultConfig())

	got := d.Evaluate(0.37, calibrated(0.30, 0.45), DefaultSettings(), time.Now())

	if math.Abs(got.Proximity.Top-0.4667) > 1e-3 {
		t.Errorf("Proximity.Top = %f, want ~0.467", got.Proximity.Top)
	}
	if math.Abs(got.Proximity.Bottom-0.5333) > 1e-3 {
		t.Errorf("Proximity.Bottom = %f, want ~0.533", got.Proximity.Bottom)
	}
}

func TestDetector_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	settings := DefaultSettings()

	for i := 0; i < 500; i++ {
		top := 0.1 + rng.Float64()*0.4
		bottom := top + 0.05 + rng.Float64()*0.4
		cal := calibrated(top, bottom)

		t.Run("dead zone between bounds", func(t *testing.T) {
			cur := top + (bottom-top)*(0.01+0.98*rng.Float64())
			got := NewDetector(DefaultConfig()).Evaluate(cur, cal, settings, time.Now())

			if got.Fired() {
				t.Fatalf("top=%f bottom=%f cur=%f fired %q", top, bottom, cur, got.Action)
			}
			if !got.Proximity.InRange() {
				t.Fatalf("proximity %+v out of [0,1]", got.Proximity)
			}
			if sum := got.Proximity.Top + got.Proximity.Bottom; math.Abs(sum-1) > epsilon {
				t.Fatalf("proximity sum = %f, want 1", sum)
			}
		})

		t.Run("above top scrolls up", func(t *testing.T) {
			cur := top - DefaultDeadZone - 0.001 - rng.Float64()*0.1
			got := NewDetector(DefaultConfig()).Evaluate(cur, cal, settings, time.Now())
			if got.Action != ActionScrollUp {
				t.Fatalf("top=%f cur=%f got %q, want scroll up", top, cur, got.Action)
			}
		})

		t.Run("below bottom scrolls down", func(t *testing.T) {
			cur := bottom + DefaultDeadZone + 0.001 + rng.Float64()*0.1
			got := NewDetector(DefaultConfig()).Evaluate(cur, cal, settings, time.Now())
			if got.Action != ActionScrollDown {
				t.Fatalf("bottom=%f cur=%f got %q, want scroll down", bottom, cur, got.Action)
			}
		})

		t.Run("missing bound never fires", func(t *testing.T) {
			var half Calibration
			if rng.Intn(2) == 0 {
				half.Set(BoundTop, top)
			} else {
				half.Set(BoundBottom, bottom)
			}
			cur := rng.Float64()
			got := NewDetector(DefaultConfig()).Evaluate(cur, half, settings, time.Now())
			if got.Fired() || got.Calibrated {
				t.Fatalf("half calibration %+v fired %q", half, got.Action)
			}
		})
	}
}

func TestDetector_Cooldown(t *testing.T) {
	d := NewDetector(DefaultConfig())
	cal := calibrated(0.30, 0.45)
	settings := DefaultSettings()
	settings.CooldownMs = 1000

	start := time.Now()

	first := d.Evaluate(0.20, cal, settings, start)
	if first.Action != ActionScrollUp {
		t.Fatalf("first evaluation = %q, want scroll up", first.Action)
	}

	second := d.Evaluate(0.20, cal, settings, start.Add(500*time.Millisecond))
	if second.Fired() {
		t.Errorf("evaluation inside cooldown fired %q", second.Action)
	}
	if !second.CoolingDown {
		t.Error("expected CoolingDown inside the cooldown window")
	}

	other := d.Evaluate(0.60, cal, settings, start.Add(900*time.Millisecond))
	if other.Fired() {
		t.Errorf("opposite direction inside cooldown fired %q", other.Action)
	}

	third := d.Evaluate(0.60, cal, settings, start.Add(1000*time.Millisecond))
	if third.Action != ActionScrollDown {
		t.Errorf("evaluation after cooldown = %q, want scroll down", third.Action)
	}

	d.Reset()
	fourth := d.Evaluate(0.20, cal, settings, start.Add(1100*time.Millisecond))
	if fourth.Action != ActionScrollUp {
		t.Errorf("evaluation after Reset = %q, want scroll up", fourth.Action)
	}
}

func TestDetector_SensitivityDeadZone(t *testing.T) {
	cal := calibrated(0.30, 0.45)
	settings := DefaultSettings()
	settings.Sensitivity = 0.10

	fixed := NewDetector(DefaultConfig())
	if got := fixed.Evaluate(0.25, cal, settings, time.Now()); got.Action != ActionScrollUp {
		t.Errorf("fixed dead zone: got %q, want scroll up", got.Action)
	}
	if dz := fixed.DeadZone(settings); dz != DefaultDeadZone {
		t.Errorf("fixed DeadZone() = %f, want %f", dz, DefaultDeadZone)
	}

	scaled := NewDetector(Config{DeadZone: DefaultDeadZone, SensitivityDeadZone: true})
	if got := scaled.Evaluate(0.25, cal, settings, time.Now()); got.Fired() {
		t.Errorf("sensitivity dead zone 0.10: got %q, want none", got.Action)
	}
	if got := scaled.Evaluate(0.19, cal, settings, time.Now()); got.Action != ActionScrollUp {
		t.Errorf("sensitivity dead zone 0.10: got %q, want scroll up", got.Action)
	}
}

func TestComputeProximity_Degenerate(t *testing.T) {
	if _, ok := ComputeProximity(0.3, calibrated(0.3, 0.3)); ok {
		t.Error("expected no proximity for equal bounds")
	}
	if _, ok := ComputeProximity(0.3, Calibration{}); ok {
		t.Error("expected no proximity without calibration")
	}
}

func TestAction_Key(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionScrollUp, "up"},
		{ActionScrollDown, "down"},
		{ActionNone, ""},
	}
	for _, tt := range tests {
		if got := tt.action.Key(); got != tt.want {
			t.Errorf("%q.Key() = %q, want %q", tt.action, got, tt.want)
		}
	}
}
