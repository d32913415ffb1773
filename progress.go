package docmap

import "go.uber.org/zap"

// progressReporter wraps the user callback with the engine's delivery
// guarantees: safe with no callback, percent clamped to [0, 100], never
// regressing within one export, and caller panics contained. The callback
// runs inline, so the contract on the callee is to return fast.
type progressReporter struct {
	fn     ProgressFunc
	last   int
	logger *zap.Logger
}

func newProgressReporter(fn ProgressFunc, logger *zap.Logger) *progressReporter {
	return &progressReporter{fn: fn, logger: logger}
}

// report delivers one progress update. Regressions are raised to the high
// water mark rather than dropped so every phase label still reaches the
// caller.
func (p *progressReporter) report(phase string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < p.last {
		percent = p.last
	}
	p.last = percent

	if p.fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("progress callback panicked",
				zap.String("phase", phase),
				zap.Int("percent", percent),
				zap.Any("panic", r))
		}
	}()
	p.fn(phase, percent)
}

// scaled maps done/total onto the (lo, hi] percent span of a phase.
func scaled(lo, hi, done, total int) int {
	if total <= 0 {
		return hi
	}
	return lo + (hi-lo)*done/total
}
