package config

import "testing"

func TestConstants(t *testing.T) {
	if MinGracePeriod >= MaxGracePeriod {
		t.Fatalf("grace bounds inverted")
	}
	if DefaultGracePeriod < MinGracePeriod || DefaultGracePeriod > MaxGracePeriod {
		t.Fatalf("default grace period out of bounds")
	}
	if DefaultInterruptInterval < MinInterruptInterval || DefaultInterruptInterval > MaxInterruptInterval {
		t.Fatalf("default interrupt interval out of bounds")
	}
	if DefaultStaleThreshold < MinStaleThreshold {
		t.Fatalf("default stale threshold below minimum")
	}
	if AppName == "" {
		t.Fatalf("AppName should not be empty")
	}
	if DBFileName == "" || JobsFileName == "" {
		t.Fatalf("file names should not be empty")
	}
	if HeartbeatEvery <= 0 {
		t.Fatalf("HeartbeatEvery must be positive")
	}
}
