package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// BuiltinCollector collects metrics in-process using gopsutil
type BuiltinCollector struct {
	logger *zap.Logger

	// Cache for CPU rate calculation
	mu           sync.Mutex
	lastCPUTimes cpu.TimesStat
	hasCPUTimes  bool
}

// NewBuiltinCollector creates a new gopsutil-based collector
func NewBuiltinCollector(logger *zap.Logger) *BuiltinCollector {
	return &BuiltinCollector{logger: logger}
}

func (c *BuiltinCollector) Name() string {
	return "builtin (gopsutil)"
}

func (c *BuiltinCollector) Collect(ctx context.Context) (*SystemMetrics, error) {
	metrics := &SystemMetrics{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	cpuPercent, err := c.cpuUsage(ctx)
	if err != nil {
		// CPU failures are logged, not fatal: memory is still worth
		// reporting
		c.logger.Warn("Failed to collect CPU usage", zap.Error(err))
	} else {
		metrics.CPUUsagePercent = cpuPercent
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect memory stats: %w", err)
	}
	metrics.MemoryUsedPercent = round(vm.UsedPercent)
	metrics.MemoryFreeGB = round(float64(vm.Available) / bytesPerGB)

	return metrics, nil
}

// cpuUsage computes aggregate CPU usage from the delta against the
// previous sample. The first call establishes the baseline and reports 0.
func (c *BuiltinCollector) cpuUsage(ctx context.Context) (float64, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("failed to read CPU times: %w", err)
	}
	if len(times) == 0 {
		return 0, fmt.Errorf("no CPU times returned")
	}
	current := times[0]

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasCPUTimes {
		c.lastCPUTimes = current
		c.hasCPUTimes = true
		return 0, nil
	}

	lastTotal := cpuTotal(c.lastCPUTimes)
	lastIdle := c.lastCPUTimes.Idle + c.lastCPUTimes.Iowait
	total := cpuTotal(current)
	idle := current.Idle + current.Iowait
	c.lastCPUTimes = current

	deltaTotal := total - lastTotal
	deltaIdle := idle - lastIdle
	if deltaTotal <= 0 {
		return 0, nil
	}

	usage := (1 - deltaIdle/deltaTotal) * 100
	if usage < 0 {
		usage = 0
	}
	if usage > 100 {
		usage = 100
	}
	return round(usage), nil
}

func cpuTotal(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq +
		t.Softirq + t.Steal + t.Guest + t.GuestNice
}
