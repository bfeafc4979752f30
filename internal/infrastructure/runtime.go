package infrastructure

import (
	"runtime"
	"time"
)

// RuntimeStats is a point-in-time view of the Go runtime, served by the health endpoint
type RuntimeStats struct {
	Goroutines     int     `json:"goroutines"`
	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
	SysBytes       uint64  `json:"sys_bytes"`
	NumGC          uint32  `json:"num_gc"`
	CPUCount       int     `json:"cpu_count"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// ReadRuntimeStats collects runtime statistics since startTime
func ReadRuntimeStats(startTime time.Time) RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: memStats.HeapAlloc,
		SysBytes:       memStats.Sys,
		NumGC:          memStats.NumGC,
		CPUCount:       runtime.NumCPU(),
		UptimeSeconds:  time.Since(startTime).Seconds(),
	}
}
