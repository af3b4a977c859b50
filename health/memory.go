package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap ratio that reports degraded.
	// Must be in (0, 1). Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the heap ratio that reports unhealthy.
	// Must be in (0, 1). Default: 0.95
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes. Zero means the memory
	// obtained from the OS.
	MaxAlloc uint64
}

// MemoryChecker reports heap usage against a budget.
type MemoryChecker struct {
	config MemoryCheckerConfig
	read   func(*runtime.MemStats)
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &MemoryChecker{config: config, read: runtime.ReadMemStats}
}

// Name returns "memory".
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check compares the current heap allocation with the budget.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	m.read(&stats)

	budget := m.config.MaxAlloc
	if budget == 0 {
		budget = stats.Sys
	}
	if budget == 0 {
		return Healthy("memory stats unavailable")
	}

	ratio := float64(stats.Alloc) / float64(budget)
	details := map[string]any{
		"alloc_bytes":   stats.Alloc,
		"budget_bytes":  budget,
		"usage_percent": ratio * 100,
		"num_gc":        stats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}
	msg := fmt.Sprintf("memory usage %.1f%%", ratio*100)

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(msg, ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(msg).WithDetails(details)
	}
	return Healthy(msg).WithDetails(details)
}
