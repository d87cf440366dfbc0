package diagnostics

import (
	"context"
	"testing"
)

func TestSnapshot(t *testing.T) {
	snap := NewResourceMonitor().Snapshot(context.Background())

	if snap.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if snap.Goroutines <= 0 {
		t.Errorf("Goroutines = %d, want positive", snap.Goroutines)
	}
	if snap.MemUsedPercent < 0 || snap.MemUsedPercent > 100 {
		t.Errorf("MemUsedPercent = %v, out of range", snap.MemUsedPercent)
	}
}
