// Package overlay draws the proximity gauge and status line onto camera frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/gazescroll/internal/gesture"
)

// Gauge geometry, measured from the right edge of the frame.
const (
	GaugeRightMargin = 10
	GaugeWidth       = 10
)

var (
	topColor    = color.RGBA{255, 0, 0, 0}
	bottomColor = color.RGBA{0, 255, 0, 0}
	textColor   = color.RGBA{255, 255, 255, 0}
)

// Status is the information shown in the status line.
type Status struct {
	Mode       gesture.Mode
	Active     bool
	Calibrated bool
	Pending    []gesture.Bound
}

// Text renders the status line.
func (s Status) Text() string {
	state := "paused"
	if s.Active {
		state = "tracking"
	}
	cal := "not calibrated"
	if s.Calibrated {
		cal = "calibrated"
	}
	text := fmt.Sprintf("%s | %s | %s", s.Mode, state, cal)
	for _, b := range s.Pending {
		text += " | look " + string(b)
	}
	return text
}

// GaugeRects returns the top and bottom bars for a frame of the given size.
// The red bar spans proximityTop*h to h, the green bar 0 to proximityBottom*h.
func GaugeRects(width, height int, p gesture.Proximity) (top, bottom image.Rectangle) {
	x0 := width - GaugeRightMargin - GaugeWidth
	x1 := width - GaugeRightMargin

	top = image.Rect(x0, int(p.Top*float64(height)), x1, height)
	bottom = image.Rect(x0, 0, x1, int(p.Bottom*float64(height)))
	return top, bottom
}

// DrawGauge draws the proximity bars onto frame.
func DrawGauge(frame *gocv.Mat, p gesture.Proximity) {
	if frame == nil || frame.Empty() {
		return
	}
	top, bottom := GaugeRects(frame.Cols(), frame.Rows(), p)
	gocv.Rectangle(frame, top, topColor, -1)
	gocv.Rectangle(frame, bottom, bottomColor, -1)
}

// DrawStatus writes the status line at the top left of frame.
func DrawStatus(frame *gocv.Mat, s Status) {
	if frame == nil || frame.Empty() {
		return
	}
	gocv.PutText(frame, s.Text(), image.Pt(10, 20), gocv.FontHersheySimplex, 0.5, textColor, 1)
}

// Draw renders the full overlay for one evaluated frame. The gauge is drawn
// only while the position lies between the calibrated bounds.
func Draw(frame *gocv.Mat, r gesture.Result, s Status) {
	if r.ShowGauge {
		DrawGauge(frame, r.Proximity)
	}
	DrawStatus(frame, s)
}
