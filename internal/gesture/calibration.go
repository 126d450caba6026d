package gesture

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultCalibrationDelay gives the user time to move their gaze before a bound is read.
const DefaultCalibrationDelay = 2 * time.Second

// ErrUnknownBound is returned when parsing a bound name that does not exist.
var ErrUnknownBound = errors.New("unknown calibration bound")

// Bound identifies one of the two calibrated screen extremes.
type Bound string

const (
	// BoundTop is the position recorded while looking at the top of the screen.
	BoundTop Bound = "top"
	// BoundBottom is the position recorded while looking at the bottom of the screen.
	BoundBottom Bound = "bottom"
)

// ParseBound parses a bound name.
func ParseBound(s string) (Bound, error) {
	switch Bound(s) {
	case BoundTop, BoundBottom:
		return Bound(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBound, s)
}

// Calibration holds the two reference positions. Smaller values are higher
// on screen, so a usable calibration has Top < Bottom; this is not enforced.
type Calibration struct {
	Top       float64 `json:"top"`
	Bottom    float64 `json:"bottom"`
	HasTop    bool    `json:"has_top"`
	HasBottom bool    `json:"has_bottom"`
}

// IsCalibrated reports whether both bounds are set.
func (c Calibration) IsCalibrated() bool {
	return c.HasTop && c.HasBottom
}

// Value returns the position stored for b.
func (c Calibration) Value(b Bound) (float64, bool) {
	switch b {
	case BoundTop:
		return c.Top, c.HasTop
	case BoundBottom:
		return c.Bottom, c.HasBottom
	}
	return 0, false
}

// Set stores v for b, overwriting any previous value.
func (c *Calibration) Set(b Bound, v float64) {
	switch b {
	case BoundTop:
		c.Top, c.HasTop = v, true
	case BoundBottom:
		c.Bottom, c.HasBottom = v, true
	}
}

// PendingRequest is a calibration waiting for its deadline.
type PendingRequest struct {
	Bound    Bound     `json:"bound"`
	Deadline time.Time `json:"deadline"`
}

// Resolution is the outcome of a pending request whose deadline passed.
type Resolution struct {
	Bound    Bound
	Position float64
	// OK is false when no face was visible at the deadline and the request was dropped.
	OK bool
}

// Calibrator records calibration bounds through a two-step flow: a request
// arms a deadline, and the first frame processed after the deadline supplies
// the position. It is safe for concurrent use.
type Calibrator struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[Bound]time.Time
	cal     Calibration
}

// NewCalibrator creates a Calibrator that waits delay before reading a bound.
// A non-positive delay uses DefaultCalibrationDelay.
func NewCalibrator(delay time.Duration) *Calibrator {
	if delay <= 0 {
		delay = DefaultCalibrationDelay
	}
	return &Calibrator{
		delay:   delay,
		pending: make(map[Bound]time.Time),
	}
}

// Delay returns the wait between a request and the position read.
func (c *Calibrator) Delay() time.Duration {
	return c.delay
}

// Request arms a calibration of b and returns its deadline.
// Requesting a bound that is already pending restarts its deadline.
func (c *Calibrator) Request(b Bound, now time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := now.Add(c.delay)
	c.pending[b] = deadline

	calLog.Info().Str("bound", string(b)).Dur("delay", c.delay).Msgf("look at the %s of the screen", b)
	return deadline
}

// Due reports whether at least one pending request has reached its deadline.
func (c *Calibrator) Due(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, deadline := range c.pending {
		if !now.Before(deadline) {
			return true
		}
	}
	return false
}

// Resolve completes every request whose deadline has passed using position.
// When ok is false no face was found and the due requests are dropped.
func (c *Calibrator) Resolve(now time.Time, position float64, ok bool) []Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()

	var resolved []Resolution
	for b, deadline := range c.pending {
		if now.Before(deadline) {
			continue
		}
		delete(c.pending, b)

		if !ok {
			calLog.Warn().Str("bound", string(b)).Msg("no face position at calibration time, request dropped")
			resolved = append(resolved, Resolution{Bound: b})
			continue
		}

		c.cal.Set(b, position)
		calLog.Info().Str("bound", string(b)).Float64("position", position).Msg("bound calibrated")
		resolved = append(resolved, Resolution{Bound: b, Position: position, OK: true})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Bound > resolved[j].Bound
	})
	return resolved
}

// Pending returns the outstanding requests ordered by deadline.
func (c *Calibrator) Pending() []PendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	requests := make([]PendingRequest, 0, len(c.pending))
	for b, deadline := range c.pending {
		requests = append(requests, PendingRequest{Bound: b, Deadline: deadline})
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].Deadline.Before(requests[j].Deadline)
	})
	return requests
}

// Calibration returns a copy of the current bounds.
func (c *Calibrator) Calibration() Calibration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cal
}

// Set stores a bound directly, bypassing the deadline.
func (c *Calibrator) Set(b Bound, position float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cal.Set(b, position)
}

// Reset clears both bounds and any pending request.
func (c *Calibrator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cal = Calibration{}
	c.pending = make(map[Bound]time.Time)
}
