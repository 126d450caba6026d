// Package main provides a keyboard plugin that presses scroll keys.
// It uses AppleScript on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Source string          `json:"source,omitempty"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// KeystrokeParams defines parameters for the keystroke action.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// macKeyCodes maps named keys to macOS virtual key codes.
var macKeyCodes = map[string]int{
	"up":       126,
	"down":     125,
	"left":     123,
	"right":    124,
	"pageup":   116,
	"pagedown": 121,
	"space":    49,
}

// xdotoolKeys maps named keys to X keysyms.
var xdotoolKeys = map[string]string{
	"up":       "Up",
	"down":     "Down",
	"left":     "Left",
	"right":    "Right",
	"pageup":   "Prior",
	"pagedown": "Next",
	"space":    "space",
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "keystroke":
		key, err := handleKeystroke(req.Params)
		if err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
		writeSuccessResponse(key)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
	}
}

// handleKeystroke presses the requested key and returns its name.
func handleKeystroke(params json.RawMessage) (string, error) {
	var p KeystrokeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return "", fmt.Errorf("failed to parse params: %w", err)
	}

	key := strings.ToLower(p.Key)
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	switch runtime.GOOS {
	case "darwin":
		return key, runCommand("osascript", "-e", buildKeyScript(key, p.Modifiers))
	case "linux":
		sym, ok := xdotoolKeys[key]
		if !ok {
			sym = key
		}
		return key, runCommand("xdotool", "key", sym)
	default:
		return "", fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// buildKeyScript generates an AppleScript for the given key and modifiers.
// Named keys are sent as key codes, anything else as a keystroke.
func buildKeyScript(key string, modifiers []string) string {
	var press string
	if code, ok := macKeyCodes[key]; ok {
		press = fmt.Sprintf("key code %d", code)
	} else {
		press = fmt.Sprintf("keystroke %q", key)
	}

	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to %s`, press)
	}
	return fmt.Sprintf(`tell application "System Events" to %s using {%s}`, press, strings.Join(appleModifiers, ", "))
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

func writeSuccessResponse(key string) {
	data, _ := json.Marshal(map[string]string{"pressed": key})
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: true,
		Data:    data,
	})
}

func runCommand(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
