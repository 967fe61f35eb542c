package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"emolens/internal/camera"
	"emolens/internal/config"
	"emolens/internal/logger"
	"emolens/internal/render"
)

// worker holds the per-run resources. Only the run goroutine touches it.
type worker struct {
	cfg     config.LoopConfig
	sampler *Sampler
	surface *image.RGBA
	encoded bytes.Buffer
}

// run pumps ticks until ctx is cancelled. Each tick completes, including its
// state writes and render, before the next one is scheduled.
func (c *Controller) run(ctx context.Context, gen uint64, cfg config.LoopConfig, done chan struct{}) {
	defer close(done)

	w := &worker{
		cfg:     cfg,
		sampler: NewSampler(cfg.InferenceSize, cfg.JPEGQuality),
	}

	c.log.Debug("Processing loop started")
	defer c.log.Debug("Processing loop exited")

	for {
		delay, ok := c.tick(ctx, gen, w)
		if !ok {
			return
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// tick runs one iteration and returns the delay before the next one.
// ok is false once the run has been stopped.
func (c *Controller) tick(ctx context.Context, gen uint64, w *worker) (delay time.Duration, ok bool) {
	if ctx.Err() != nil {
		return 0, false
	}

	frame := c.capture.Latest()
	if frame == nil {
		// nothing bound yet: retry the same tick without work
		return w.cfg.DeferDelay, true
	}

	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		c.log.WithError(err).Warn("Failed to decode frame")
		return w.cfg.TickInterval, true
	}

	dw, dh := surfaceSize(frame, w.cfg.FallbackSize)
	w.surface = render.Resize(w.surface, dw, dh)
	render.Clear(w.surface)
	render.DrawMirrored(w.surface, img)

	dataURI, err := w.sampler.Sample(img)
	if err != nil {
		c.log.WithError(err).Warn("Failed to sample frame")
		return w.cfg.TickInterval, true
	}

	started := time.Now()
	resp, inferErr := c.inferencer.Detect(ctx, dataURI)
	elapsed := time.Since(started)

	// stop observed while awaiting: drop the result
	if ctx.Err() != nil {
		return 0, false
	}

	tick := &TickResult{
		SessionID:   c.currentSessionID(),
		FrameSeq:    frame.Seq,
		Timestamp:   time.Now(),
		Width:       dw,
		Height:      dh,
		InferenceMs: float64(elapsed.Microseconds()) / 1000,
	}

	if inferErr != nil {
		c.log.WithError(inferErr).WithFields(logger.Fields{"frame": frame.Seq}).Warn("Detection error")
		live, st, seq, applied := c.current(gen)
		if !applied {
			return 0, false
		}
		tick.Seq = seq
		tick.Detections = live
		tick.Stats = st
		tick.Error = inferErr.Error()
	} else {
		results := TransformAll(resp.Emotions, dw, dh, w.sampler.Size())
		st, seq, applied := c.apply(gen, results)
		if !applied {
			return 0, false
		}
		render.DrawAll(c.renderer, w.surface, results)

		tick.Seq = seq
		tick.Detections = results
		tick.Stats = st
		tick.FacesCount = resp.FacesCount
	}

	if data, err := w.encode(); err != nil {
		c.log.WithError(err).Warn("Failed to encode surface")
	} else {
		tick.ImageData = data
	}

	c.bus.Publish(&Event{Kind: EventTick, Tick: tick})
	return w.cfg.TickInterval, true
}

// surfaceSize returns the frame's reported size, or a square fallback
func surfaceSize(frame *camera.Frame, fallback int) (int, int) {
	w, h := frame.Width, frame.Height
	if w <= 0 {
		w = fallback
	}
	if h <= 0 {
		h = fallback
	}
	return w, h
}

func (w *worker) encode() ([]byte, error) {
	w.encoded.Reset()
	if err := jpeg.Encode(&w.encoded, w.surface, &jpeg.Options{Quality: w.cfg.StreamQuality}); err != nil {
		return nil, fmt.Errorf("error encoding surface: %w", err)
	}
	out := make([]byte, w.encoded.Len())
	copy(out, w.encoded.Bytes())
	return out, nil
}
