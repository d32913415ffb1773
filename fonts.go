package docmap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// fontHost is the surface-side API the readiness gate polls. The probe is
// a throwaway element styled in the target family; it turns "the font
// subsystem says loaded" into "glyphs actually measure on screen".
type fontHost interface {
	FontsReady(ctx context.Context) (bool, error)
	InsertProbe(ctx context.Context, family string) error
	ProbeRendered(ctx context.Context) (bool, error)
	RemoveProbe(ctx context.Context) error
}

// fontGate polls the surface a bounded number of rounds before the first
// capture. Exhaustion surfaces as ErrFontGateTimeout; the exporter treats
// it as a warning because degraded glyphs beat a dead export.
type fontGate struct {
	rounds   int
	interval time.Duration
	logger   *zap.Logger
}

func newFontGate(rounds int, interval time.Duration, logger *zap.Logger) *fontGate {
	return &fontGate{rounds: rounds, interval: interval, logger: logger}
}

// Await blocks until the surface reports the family ready, the rounds run
// out, or ctx is canceled. Context cancellation returns ctx.Err(); every
// other failure mode returns an error matching ErrFontGateTimeout. The
// probe is removed on every exit path. An empty family skips the gate.
func (g *fontGate) Await(ctx context.Context, host fontHost, family string) error {
	if family == "" {
		return nil
	}

	if err := host.InsertProbe(ctx, family); err != nil {
		return fmt.Errorf("%w: probe insertion: %v", ErrFontGateTimeout, err)
	}
	defer func() {
		// Best effort with the export's context; the board page is torn
		// down at the end of the export anyway.
		_ = host.RemoveProbe(ctx)
	}()

	for round := 1; round <= g.rounds; round++ {
		ready, err := host.FontsReady(ctx)
		if err != nil {
			return fmt.Errorf("%w: readiness check: %v", ErrFontGateTimeout, err)
		}
		if ready {
			rendered, err := host.ProbeRendered(ctx)
			if err != nil {
				return fmt.Errorf("%w: probe measurement: %v", ErrFontGateTimeout, err)
			}
			if rendered {
				g.logger.Debug("fonts ready",
					zap.String("family", family), zap.Int("round", round))
				return nil
			}
		}

		if round < g.rounds {
			if err := sleepCtx(ctx, g.interval); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w: %q not ready after %d rounds", ErrFontGateTimeout, family, g.rounds)
}

// sleepCtx sleeps for d or until ctx is canceled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
