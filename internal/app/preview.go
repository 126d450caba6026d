package app

import (
	"context"

	"gocv.io/x/gocv"
)

// PreviewWindow is the title of the local preview window.
const PreviewWindow = "Eye Tracking Scroll"

// EscapeKey closes the preview window.
const EscapeKey = 27

// RunPreview runs the frame loop on the calling goroutine and shows every
// overlay frame in a local window. It returns when Escape is pressed or ctx
// is canceled, after releasing the camera and detector. GUI toolkits require
// this to be called from the main thread.
func (a *App) RunPreview(ctx context.Context) error {
	window := gocv.NewWindow(PreviewWindow)
	defer window.Close()

	appLog.Info().Msg("preview started, press Escape to quit")
	return a.runForeground(ctx, func(frame *gocv.Mat) bool {
		window.IMShow(*frame)
		if window.WaitKey(1) == EscapeKey {
			appLog.Info().Msg("escape pressed")
			return false
		}
		return true
	})
}

// runForeground runs the loop on the calling goroutine, feeding every frame
// to sink, until sink returns false, ctx is canceled or Stop is called. The
// camera and detector are released before it returns.
func (a *App) runForeground(ctx context.Context, sink frameSink) error {
	stop, done, err := a.open()
	if err != nil {
		return err
	}

	// quit is closed once, by this goroutine only; Stop owns stop.
	quit := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		case <-done:
			return
		}
		close(quit)
	}()

	a.run(quit, done, sink)

	a.Stop()
	return nil
}
