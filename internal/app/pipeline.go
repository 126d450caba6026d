package app

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gazescroll/internal/action"
	"github.com/ayusman/gazescroll/internal/capture"
	"github.com/ayusman/gazescroll/internal/detector"
	"github.com/ayusman/gazescroll/internal/gesture"
	"github.com/ayusman/gazescroll/internal/overlay"
	"github.com/ayusman/gazescroll/internal/store"
)

// actionTimeout bounds a single key press.
const actionTimeout = 2 * time.Second

// frameSink receives every processed frame; returning false ends the loop.
type frameSink func(frame *gocv.Mat) bool

// run is the frame loop. It is the only reader of the camera.
//
// Per tick:
// 1. Skip unless tracking is active, a calibration is due, or a sink wants frames
// 2. Read and mirror a frame
// 3. Detect faces and resolve due calibrations with the eye position
// 4. When active, extract the position for the mode and evaluate the detector
// 5. Press the scroll key for a fired action and record it
// 6. Draw the overlay and publish the snapshot and JPEG frame
func (a *App) run(stop <-chan struct{}, done chan<- struct{}, sink frameSink) {
	defer close(done)

	ticker := time.NewTicker(a.config.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			frame, ok := a.tick(now, sink != nil)
			if !ok {
				continue
			}
			keep := sink(frame)
			frame.Close()
			if !keep {
				return
			}
		}
	}
}

// tick runs one loop cycle. When keep is true and a frame was read, the
// frame is returned to the caller, which must close it.
func (a *App) tick(now time.Time, keep bool) (*gocv.Mat, bool) {
	active := a.IsActive()
	if !active && !keep && !a.calibrator.Due(now) {
		return nil, false
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		appLog.Warn().Err(err).Msg("failed to read frame")
		return nil, false
	}
	capture.Mirror(frame)

	a.processFrame(frame, active, now)

	if !keep {
		frame.Close()
		return nil, false
	}
	return frame, true
}

// processFrame runs detection on one mirrored frame and draws the overlay onto it.
func (a *App) processFrame(frame *gocv.Mat, active bool, now time.Time) {
	faces, err := a.detector.Detect(frame)
	if err != nil {
		if errors.Is(err, detector.ErrServiceUnavailable) {
			appLog.Debug().Err(err).Msg("face detection unavailable")
		} else {
			appLog.Warn().Err(err).Msg("face detection failed")
		}
		// A due calibration cannot read a position this cycle; drop it so the
		// loop does not keep reading frames while tracking is off.
		if a.calibrator.Due(now) {
			a.calibrator.Resolve(now, 0, false)
		}
		return
	}

	var face *detector.FaceLandmarks
	if len(faces) > 0 {
		face = &faces[0]
	}

	if a.calibrator.Due(now) {
		var position float64
		var ok bool
		if face != nil {
			position, ok = gesture.EyePosition(face)
		}
		a.calibrator.Resolve(now, position, ok)
	}

	snap := a.buildSnapshot()
	snap.FacePresent = face != nil

	var result gesture.Result
	if active && face != nil {
		settings := snap.Settings
		if position, ok := gesture.Position(face, settings.Mode); ok {
			snap.HasPosition = true
			snap.Position = position

			if settings.Mode.DetectsGestures() {
				result = a.gestures.Evaluate(position, snap.Calibration, settings, now)
				snap.Proximity = result.Proximity
				snap.ShowGauge = result.ShowGauge
				snap.CoolingDown = result.CoolingDown

				if result.Fired() {
					a.fire(result, snap.Calibration, now)
					snap.LastAction = result.Action
					snap.LastFiredAt = &now
				}
			}
		}
	}

	overlay.Draw(frame, result, overlay.Status{
		Mode:       snap.Mode,
		Active:     active,
		Calibrated: snap.Calibrated,
		Pending:    pendingBounds(snap.Pending),
	})

	a.publish(snap, encodeJPEG(frame))
}

// fire presses the key for a fired action and records it. Failures are
// logged and never stop the loop.
func (a *App) fire(result gesture.Result, cal gesture.Calibration, now time.Time) {
	a.mu.Lock()
	a.lastAction = result.Action
	a.lastFired = now
	a.mu.Unlock()

	key, err := action.ParseKey(result.Action.Key())
	if err != nil {
		appLog.Error().Err(err).Str("action", string(result.Action)).Msg("no key for action")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := a.executor.Press(ctx, key); err != nil {
		appLog.Error().Err(err).Str("key", string(key)).Msg("failed to press key")
	}

	if a.config.Store == nil {
		return
	}
	event := &store.ScrollEvent{
		SessionID: a.sessionID,
		Action:    result.Action,
		Position:  result.Position,
		Top:       cal.Top,
		Bottom:    cal.Bottom,
	}
	if err := a.config.Store.Events().Create(event); err != nil {
		appLog.Error().Err(err).Msg("failed to record scroll event")
	}
}

func pendingBounds(pending []gesture.PendingRequest) []gesture.Bound {
	bounds := make([]gesture.Bound, 0, len(pending))
	for _, p := range pending {
		bounds = append(bounds, p.Bound)
	}
	return bounds
}

func encodeJPEG(frame *gocv.Mat) []byte {
	if frame == nil || frame.Empty() {
		return nil
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		appLog.Debug().Err(err).Msg("failed to encode frame")
		return nil
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...)
}
