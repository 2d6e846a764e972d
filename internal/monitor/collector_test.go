package monitor

import (
	"math"
	"testing"
)

func TestParseMeminfo(t *testing.T) {
	content := `MemTotal:       16284028 kB
MemFree:         1034512 kB
MemAvailable:    8142014 kB
Buffers:          512340 kB
Cached:          4821004 kB
`
	used, err := parseMeminfo(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (16284028 - 8142014) / 16284028 = 50.000043...%
	if math.Abs(used-50.0) > 0.01 {
		t.Errorf("used = %v, want ~50.0", used)
	}
}

func TestParseMeminfo_NoAvailable(t *testing.T) {
	// Без MemAvailable вся память считается занятой.
	used, err := parseMeminfo("MemTotal: 1000 kB\nMemFree: 100 kB\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 100.0 {
		t.Errorf("used = %v, want 100.0", used)
	}
}

func TestParseMeminfo_NoTotal(t *testing.T) {
	if _, err := parseMeminfo("MemFree: 100 kB\n"); err == nil {
		t.Error("expected error for missing MemTotal")
	}
}

func TestParseMeminfo_SkipsMalformedLines(t *testing.T) {
	content := "garbage\nMemTotal: not-a-number kB\nMemTotal: 2000 kB\nMemAvailable: 500 kB\n"
	used, err := parseMeminfo(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 75.0 {
		t.Errorf("used = %v, want 75.0", used)
	}
}
