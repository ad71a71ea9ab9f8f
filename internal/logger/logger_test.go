package logger

import "testing"

func TestNew(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		log, cleanup, err := New(verbose)
		if err != nil {
			t.Fatalf("New(%v): %v", verbose, err)
		}
		if log == nil || cleanup == nil {
			t.Fatalf("New(%v) returned nil logger or cleanup", verbose)
		}
		cleanup()
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	// Must not panic with arbitrary key/value pairs.
	log.Debug("debug", "k", 1)
	log.Info("info", "k", "v", "n", 2)
	log.Warn("warn")
	log.Error("error", "err", "boom")
}
