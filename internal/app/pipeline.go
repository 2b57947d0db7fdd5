package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ayusman/handstream/internal/capture"
	"github.com/ayusman/handstream/internal/tracker"
	"github.com/ayusman/handstream/internal/wire"
)

// runPipeline is the only writer of the slot. It returns when the source
// is exhausted or closed, or when ctx is done.
//
// Pipeline logic:
// 1. Read the next source frame
// 2. Skip it while paused or when it carries no hand
// 3. Track the hand (calibration, flexion, palm pose)
// 4. Encode the record and replace the slot contents
func (a *App) runPipeline(ctx context.Context) {
	src := a.config.Source

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Println("Source exhausted, last frame stays available")
				return
			}
			if errors.Is(err, capture.ErrSourceClosed) {
				return
			}
			log.Printf("Error reading frame: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(a.config.Relay.PollInterval):
			}
			continue
		}

		if !a.IsEnabled() {
			continue
		}

		a.processFrame(frame)
	}
}

// processFrame tracks and publishes a single frame.
func (a *App) processFrame(frame *capture.RawFrame) {
	rec, ok := a.tracker.Process(frame)
	if !ok {
		return
	}

	wasCalibrated := a.calibrated.Load()
	calibrated := a.tracker.State() == tracker.Calibrated
	a.calibrated.Store(calibrated)
	if calibrated != wasCalibrated {
		log.Printf("Tracker %s, finger slots %v", a.tracker.State(), a.tracker.Slots())
	}

	text, err := wire.Encode(rec)
	if err != nil {
		log.Printf("Frame %d dropped: %v", rec.FrameID, err)
		return
	}

	a.slot.Store(text)
	a.frames.Add(1)
}
