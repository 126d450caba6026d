package main

import "testing"

func TestBuildKeyScript(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		modifiers []string
		want      string
	}{
		{
			name: "arrow up uses key code",
			key:  "up",
			want: `tell application "System Events" to key code 126`,
		},
		{
			name: "arrow down uses key code",
			key:  "down",
			want: `tell application "System Events" to key code 125`,
		},
		{
			name:      "character with modifiers",
			key:       "a",
			modifiers: []string{"cmd", "Shift", "hyper"},
			want:      `tell application "System Events" to keystroke "a" using {command down, shift down}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildKeyScript(tt.key, tt.modifiers); got != tt.want {
				t.Errorf("buildKeyScript() = %q, want %q", got, tt.want)
			}
		})
	}
}
