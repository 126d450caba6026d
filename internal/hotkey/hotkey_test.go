package hotkey

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ayusman/gazescroll/internal/gesture"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		combo   string
		want    []string
		wantErr bool
	}{
		{combo: "ctrl+shift+t", want: []string{"t", "ctrl", "shift"}},
		{combo: "Shift + Ctrl + B", want: []string{"b", "shift", "ctrl"}},
		{combo: "command+s", want: []string{"s", "cmd"}},
		{combo: "ctrl+shift", wantErr: true},
		{combo: "", wantErr: true},
		{combo: "a+b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.combo, func(t *testing.T) {
			got, err := ParseCombo(tt.combo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCombo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCombo() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseCombo("ctrl"); !errors.Is(err, ErrEmptyCombo) {
		t.Errorf("ParseCombo(ctrl) error = %v, want ErrEmptyCombo", err)
	}
}

type fakeController struct {
	requested []gesture.Bound
	toggles   int
}

func (f *fakeController) RequestCalibration(b gesture.Bound) time.Time {
	f.requested = append(f.requested, b)
	return time.Now()
}

func (f *fakeController) ToggleActive() bool {
	f.toggles++
	return f.toggles%2 == 1
}

func TestDefaultBindings(t *testing.T) {
	ctrl := &fakeController{}
	bindings := DefaultBindings(ctrl)

	if len(bindings) != 3 {
		t.Fatalf("len(bindings) = %d, want 3", len(bindings))
	}
	for _, b := range bindings {
		if _, err := ParseCombo(b.Combo); err != nil {
			t.Errorf("binding %s has invalid combo: %v", b.Name, err)
		}
		b.Action()
	}

	if !reflect.DeepEqual(ctrl.requested, []gesture.Bound{gesture.BoundTop, gesture.BoundBottom}) {
		t.Errorf("requested = %v, want [top bottom]", ctrl.requested)
	}
	if ctrl.toggles != 1 {
		t.Errorf("toggles = %d, want 1", ctrl.toggles)
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(DefaultBindings(&fakeController{}))
	m.Stop()
	if len(m.Bindings()) != 3 {
		t.Errorf("Bindings() = %d, want 3", len(m.Bindings()))
	}
}
