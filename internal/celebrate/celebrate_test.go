package celebrate

import (
	"testing"
	"time"
)

func TestTrigger_AutoClears(t *testing.T) {
	s := NewWithDuration(20 * time.Millisecond)

	s.Trigger()
	if !s.Active() {
		t.Fatal("signal not active after Trigger")
	}

	time.Sleep(100 * time.Millisecond)
	if s.Active() {
		t.Error("signal still active after duration elapsed")
	}
}

func TestTrigger_RestartExtendsWindow(t *testing.T) {
	s := NewWithDuration(60 * time.Millisecond)

	s.Trigger()
	time.Sleep(40 * time.Millisecond)
	s.Trigger()
	time.Sleep(40 * time.Millisecond)

	// 80ms after the first trigger, but only 40ms after the second: the
	// restarted clock keeps it active.
	if !s.Active() {
		t.Error("second trigger did not restart the clock")
	}

	time.Sleep(100 * time.Millisecond)
	if s.Active() {
		t.Error("signal never cleared")
	}
}
