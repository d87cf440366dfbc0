// Package diagnostics exposes host resource snapshots for the deep health
// check of the read API.
package diagnostics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time view of host resources.
type Snapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	CPUPercent     float64   `json:"cpu_percent"`
	MemUsedPercent float64   `json:"mem_used_percent"`
	MemTotalBytes  uint64    `json:"mem_total_bytes"`
	MemUsedBytes   uint64    `json:"mem_used_bytes"`
	Goroutines     int       `json:"goroutines"`
}

// ResourceMonitor samples host resources.
type ResourceMonitor struct {
	sampleWindow time.Duration
}

// NewResourceMonitor creates a monitor with a short CPU sampling window.
func NewResourceMonitor() *ResourceMonitor {
	return &ResourceMonitor{sampleWindow: 200 * time.Millisecond}
}

// Snapshot samples the host. Individual probe failures leave zero values;
// health reporting degrades rather than fails.
func (m *ResourceMonitor) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		Timestamp:  time.Now().UTC(),
		Goroutines: runtime.NumGoroutine(),
	}

	if percents, err := cpu.PercentWithContext(ctx, m.sampleWindow, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemUsedPercent = vm.UsedPercent
		snap.MemTotalBytes = vm.Total
		snap.MemUsedBytes = vm.Used
	}
	return snap
}
