package process

// Notes:
// - KillProcessGroup: we only test PIDs that cannot touch a real process.
//   Real kill behavior is covered by browser cleanup integration tests since
//   unit tests cannot safely terminate processes.

import "testing"

// ---------------------------------------------------------------------------
// TestKillProcessGroup - PID guard behavior
// ---------------------------------------------------------------------------

func TestKillProcessGroup_InvalidPID(t *testing.T) {
	t.Parallel()

	// Non-existent PID must not panic.
	KillProcessGroup(999999999)
}

func TestKillProcessGroup_NonPositivePID(t *testing.T) {
	t.Parallel()

	// Zero would resolve to the caller's own process group; the guard
	// must drop it before the syscall.
	KillProcessGroup(0)
	KillProcessGroup(-42)
}
