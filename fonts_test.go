package docmap

// Notes:
// - Await: tests immediate success, late success, exhaustion, and host errors
// - The probe must be removed on every exit path, including failures
// - Context cancellation surfaces as ctx.Err(), not as gate exhaustion

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubFontHost scripts FontsReady/ProbeRendered answers round by round.
type stubFontHost struct {
	readyAt      int // round at which FontsReady flips true; 0 = never
	renderedAt   int // round at which ProbeRendered flips true; 0 = never
	insertErr    error
	readyErr     error
	renderedErr  error
	calls        int
	probeActive  bool
	probeRemoved bool
}

func (h *stubFontHost) FontsReady(ctx context.Context) (bool, error) {
	h.calls++
	if h.readyErr != nil {
		return false, h.readyErr
	}
	return h.readyAt > 0 && h.calls >= h.readyAt, nil
}

func (h *stubFontHost) InsertProbe(ctx context.Context, family string) error {
	if h.insertErr != nil {
		return h.insertErr
	}
	h.probeActive = true
	return nil
}

func (h *stubFontHost) ProbeRendered(ctx context.Context) (bool, error) {
	if h.renderedErr != nil {
		return false, h.renderedErr
	}
	return h.renderedAt > 0 && h.calls >= h.renderedAt, nil
}

func (h *stubFontHost) RemoveProbe(ctx context.Context) error {
	h.probeActive = false
	h.probeRemoved = true
	return nil
}

func TestFontGate_ImmediateSuccess(t *testing.T) {
	host := &stubFontHost{readyAt: 1, renderedAt: 1}
	gate := newFontGate(10, time.Millisecond, zap.NewNop())

	if err := gate.Await(context.Background(), host, "Inter"); err != nil {
		t.Fatalf("Await() unexpected error: %v", err)
	}
	if host.calls != 1 {
		t.Errorf("FontsReady called %d times, want 1", host.calls)
	}
	if !host.probeRemoved {
		t.Error("probe was not removed after success")
	}
}

func TestFontGate_SucceedsOnLaterRound(t *testing.T) {
	host := &stubFontHost{readyAt: 3, renderedAt: 3}
	gate := newFontGate(5, time.Millisecond, zap.NewNop())

	if err := gate.Await(context.Background(), host, "Inter"); err != nil {
		t.Fatalf("Await() unexpected error: %v", err)
	}
	if host.calls != 3 {
		t.Errorf("FontsReady called %d times, want 3", host.calls)
	}
}

func TestFontGate_Exhaustion(t *testing.T) {
	host := &stubFontHost{} // never ready
	gate := newFontGate(4, time.Millisecond, zap.NewNop())

	err := gate.Await(context.Background(), host, "Inter")
	if !errors.Is(err, ErrFontGateTimeout) {
		t.Fatalf("Await() error = %v, want ErrFontGateTimeout", err)
	}
	if host.calls != 4 {
		t.Errorf("FontsReady called %d times, want 4 (bounded polling)", host.calls)
	}
	if !host.probeRemoved {
		t.Error("probe was not removed after exhaustion")
	}
}

func TestFontGate_SubsystemReadyButProbeNotRendered(t *testing.T) {
	// document.fonts may report loaded while the probe still measures
	// empty; the gate must keep polling.
	host := &stubFontHost{readyAt: 1, renderedAt: 0}
	gate := newFontGate(3, time.Millisecond, zap.NewNop())

	err := gate.Await(context.Background(), host, "Inter")
	if !errors.Is(err, ErrFontGateTimeout) {
		t.Fatalf("Await() error = %v, want ErrFontGateTimeout", err)
	}
	if host.calls != 3 {
		t.Errorf("FontsReady called %d times, want 3", host.calls)
	}
}

func TestFontGate_EmptyFamilySkips(t *testing.T) {
	host := &stubFontHost{}
	gate := newFontGate(10, time.Millisecond, zap.NewNop())

	if err := gate.Await(context.Background(), host, ""); err != nil {
		t.Fatalf("Await() unexpected error: %v", err)
	}
	if host.calls != 0 {
		t.Errorf("FontsReady called %d times, want 0 (gate skipped)", host.calls)
	}
	if host.probeActive || host.probeRemoved {
		t.Error("probe was touched even though the gate was skipped")
	}
}

func TestFontGate_InsertProbeError(t *testing.T) {
	host := &stubFontHost{insertErr: errors.New("detached document")}
	gate := newFontGate(10, time.Millisecond, zap.NewNop())

	err := gate.Await(context.Background(), host, "Inter")
	if !errors.Is(err, ErrFontGateTimeout) {
		t.Fatalf("Await() error = %v, want ErrFontGateTimeout", err)
	}
	if host.calls != 0 {
		t.Error("polling started despite probe insertion failure")
	}
}

func TestFontGate_HostErrorsWrapped(t *testing.T) {
	tests := []struct {
		name string
		host *stubFontHost
	}{
		{
			name: "readiness check error",
			host: &stubFontHost{readyErr: errors.New("eval failed")},
		},
		{
			name: "probe measurement error",
			host: &stubFontHost{readyAt: 1, renderedErr: errors.New("eval failed")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := newFontGate(5, time.Millisecond, zap.NewNop())
			err := gate.Await(context.Background(), tt.host, "Inter")
			if !errors.Is(err, ErrFontGateTimeout) {
				t.Fatalf("Await() error = %v, want ErrFontGateTimeout", err)
			}
			if !tt.host.probeRemoved {
				t.Error("probe was not removed after host error")
			}
		})
	}
}

func TestFontGate_ContextCanceled(t *testing.T) {
	host := &stubFontHost{} // never ready, forces the gate to sleep
	gate := newFontGate(10, 50*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := gate.Await(ctx, host, "Inter")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Await() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrFontGateTimeout) {
		t.Error("cancellation must not be reported as gate exhaustion")
	}
}

func TestSleepCtx(t *testing.T) {
	t.Run("returns after duration", func(t *testing.T) {
		if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
			t.Errorf("sleepCtx() unexpected error: %v", err)
		}
	})

	t.Run("canceled context wins", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := sleepCtx(ctx, time.Minute); !errors.Is(err, context.Canceled) {
			t.Errorf("sleepCtx() error = %v, want context.Canceled", err)
		}
	})

	t.Run("nonpositive duration checks context only", func(t *testing.T) {
		if err := sleepCtx(context.Background(), 0); err != nil {
			t.Errorf("sleepCtx() unexpected error: %v", err)
		}
	})
}
