// Package action injects the synthetic key presses that scroll the focused window.
package action

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
)

// Key is a logical key identifier understood by every executor.
type Key string

const (
	KeyUp   Key = "up"
	KeyDown Key = "down"
)

// ErrUnknownKey is returned for keys no executor supports.
var ErrUnknownKey = errors.New("unknown key")

// ParseKey validates a logical key name.
func ParseKey(s string) (Key, error) {
	switch Key(s) {
	case KeyUp, KeyDown:
		return Key(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// Executor performs a platform-level key press.
type Executor interface {
	Press(ctx context.Context, key Key) error
}

// RobotgoExecutor presses keys directly through robotgo.
type RobotgoExecutor struct{}

// NewRobotgoExecutor creates a new RobotgoExecutor.
func NewRobotgoExecutor() *RobotgoExecutor {
	return &RobotgoExecutor{}
}

// Press taps key once.
func (e *RobotgoExecutor) Press(ctx context.Context, key Key) error {
	if _, err := ParseKey(string(key)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := robotgo.KeyTap(string(key)); err != nil {
		return fmt.Errorf("key tap %s: %w", key, err)
	}
	return nil
}

// Recorder is an Executor that records presses instead of performing them.
type Recorder struct {
	mu      sync.Mutex
	presses []Key
	err     error
}

// NewRecorder creates a new Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetError makes subsequent presses fail with err.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Press records key.
func (r *Recorder) Press(ctx context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.presses = append(r.presses, key)
	return nil
}

// Presses returns a copy of the recorded keys.
func (r *Recorder) Presses() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Key(nil), r.presses...)
}
