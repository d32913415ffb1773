package docmap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"time"

	"go.uber.org/zap"
)

// captureTarget is one visual block living in the display surface.
type captureTarget interface {
	// Area returns the block's current width and height in surface pixels.
	// Detached or hidden blocks report an error or a zero dimension.
	Area(ctx context.Context) (w, h float64, err error)

	// Shoot rasterizes the block at the given fidelity multiplier. The
	// context carries the rung deadline; implementations must honor it.
	Shoot(ctx context.Context, fidelity float64) ([]byte, error)

	// PushFont applies a transient font-family override to the block and
	// returns a restore function. The restore function must work even
	// after the rung deadline has expired.
	PushFont(ctx context.Context, family string) (restore func(), err error)
}

// captureOrchestrator walks the quality ladder for each block: rasterize
// under the rung's deadline, degrade fidelity on timeout or fault, pause
// for the surface to settle, and classify exhaustion by the last cause.
type captureOrchestrator struct {
	ladder      []CaptureRung
	settleDelay time.Duration
	fontFamily  string
	logger      *zap.Logger
}

func newCaptureOrchestrator(cfg exporterConfig, logger *zap.Logger) *captureOrchestrator {
	return &captureOrchestrator{
		ladder:      cfg.ladder,
		settleDelay: cfg.settleDelay,
		fontFamily:  cfg.fontFamily,
		logger:      logger,
	}
}

// capture rasterizes one block. Per-block failures come back as
// *RenderTimeoutError or *RenderFailureError (or ErrBlockNotCapturable for
// pre-flight rejections); the caller contains them as inline markers.
// Only context cancellation aborts the export.
func (o *captureOrchestrator) capture(ctx context.Context, target captureTarget, section int, kind BlockKind) (*Raster, error) {
	// Fail fast on blocks that cannot produce pixels at any fidelity.
	// No rung budget is spent on them.
	w, h, err := target.Area(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: section %d %s: %v", ErrBlockNotCapturable, section, kind, err)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: section %d %s: zero area (%gx%g)", ErrBlockNotCapturable, section, kind, w, h)
	}

	var lastCause error
	var lastTimedOut bool

	for i, rung := range o.ladder {
		if i > 0 {
			if err := sleepCtx(ctx, o.settleDelay); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, timedOut, err := o.attempt(ctx, target, rung)
		if err == nil {
			raster, derr := decodeRaster(data, rung.Fidelity)
			if derr == nil {
				if i > 0 {
					o.logger.Debug("block captured after degradation",
						zap.Int("section", section),
						zap.String("block", string(kind)),
						zap.Float64("fidelity", rung.Fidelity),
						zap.Int("rung", i+1))
				}
				return raster, nil
			}
			err = derr
		}

		if ctx.Err() != nil {
			// The whole export was canceled; don't misread it as a rung
			// timeout.
			return nil, ctx.Err()
		}

		lastCause = err
		lastTimedOut = timedOut
		o.logger.Warn("capture rung failed, degrading",
			zap.Int("section", section),
			zap.String("block", string(kind)),
			zap.Float64("fidelity", rung.Fidelity),
			zap.Duration("budget", rung.Budget),
			zap.Bool("timeout", lastTimedOut),
			zap.Error(err))
	}

	if lastTimedOut {
		return nil, &RenderTimeoutError{Section: section, Block: kind, Rungs: len(o.ladder), Cause: lastCause}
	}
	return nil, &RenderFailureError{Section: section, Block: kind, Rungs: len(o.ladder), Cause: lastCause}
}

// attempt runs a single rung: transient font override, rasterization under
// an explicit deadline, override reverted before the outcome is judged.
// Renderer panics are contained as rung errors. timedOut reports whether
// the rung's own deadline expired; some renderers swallow the context
// error, so the verdict comes from the rung context rather than err alone.
func (o *captureOrchestrator) attempt(ctx context.Context, target captureTarget, rung CaptureRung) (data []byte, timedOut bool, err error) {
	rungCtx, cancel := context.WithTimeout(ctx, rung.Budget)
	defer cancel()

	defer func() {
		if err != nil && ctx.Err() == nil {
			timedOut = errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(rungCtx.Err(), context.DeadlineExceeded)
		}
	}()

	if o.fontFamily != "" {
		restore, ferr := target.PushFont(rungCtx, o.fontFamily)
		if ferr != nil {
			return nil, false, fmt.Errorf("applying font override: %w", ferr)
		}
		defer restore()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()
	data, err = target.Shoot(rungCtx, rung.Fidelity)
	return data, false, err
}

// decodeRaster validates the PNG header and extracts pixel dimensions.
// Pagination needs the dimensions before the image is embedded.
func decodeRaster(data []byte, fidelity float64) (*Raster, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding captured image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("decoding captured image: empty %dx%d", cfg.Width, cfg.Height)
	}
	return &Raster{Data: data, Width: cfg.Width, Height: cfg.Height, Fidelity: fidelity}, nil
}
