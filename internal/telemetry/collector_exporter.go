package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"
)

// ExporterCollector collects metrics by scraping a Prometheus exporter
// (windows_exporter or node_exporter)
type ExporterCollector struct {
	exporterURL string
	logger      *zap.Logger
	httpClient  *http.Client

	// Cache for CPU rate calculation
	mu           sync.Mutex
	lastCPUTotal float64
	lastCPUIdle  float64
	hasCPUTotal  bool
}

// NewExporterCollector creates a collector that scrapes a Prometheus
// exporter endpoint
func NewExporterCollector(url string, logger *zap.Logger, httpClient *http.Client) *ExporterCollector {
	return &ExporterCollector{
		exporterURL: url,
		logger:      logger,
		httpClient:  httpClient,
	}
}

func (c *ExporterCollector) Name() string {
	return fmt.Sprintf("exporter (%s)", c.exporterURL)
}

func (c *ExporterCollector) Collect(ctx context.Context) (*SystemMetrics, error) {
	families, err := c.scrape(ctx)
	if err != nil {
		return nil, err
	}

	metrics := &SystemMetrics{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	metrics.CPUUsagePercent = c.cpuUsage(families)
	c.memory(families, metrics)
	return metrics, nil
}

// scrape fetches and parses the exporter's text exposition
func (c *ExporterCollector) scrape(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.exporterURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "winagent")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("metrics scrape cancelled: %w", err)
		}
		return nil, fmt.Errorf("metrics scrape failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("exporter returned %d", resp.StatusCode)
	}

	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse exposition: %w", err)
	}
	return families, nil
}

// cpuUsage sums the per-core counters and computes usage from the delta
// against the previous scrape. First scrape reports 0 (baseline).
func (c *ExporterCollector) cpuUsage(families map[string]*dto.MetricFamily) float64 {
	// windows_exporter and node_exporter expose the same shape under
	// different names
	family := families["windows_cpu_time_total"]
	if family == nil {
		family = families["node_cpu_seconds_total"]
	}
	if family == nil {
		c.logger.Debug("No CPU time metric family in scrape")
		return 0
	}

	var total, idle float64
	for _, m := range family.GetMetric() {
		v := m.GetCounter().GetValue()
		total += v
		for _, l := range m.GetLabel() {
			if l.GetName() == "mode" && l.GetValue() == "idle" {
				idle += v
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasCPUTotal {
		c.lastCPUTotal = total
		c.lastCPUIdle = idle
		c.hasCPUTotal = true
		return 0
	}

	deltaTotal := total - c.lastCPUTotal
	deltaIdle := idle - c.lastCPUIdle
	c.lastCPUTotal = total
	c.lastCPUIdle = idle

	if deltaTotal <= 0 {
		return 0
	}
	usage := (1 - deltaIdle/deltaTotal) * 100
	if usage < 0 {
		usage = 0
	}
	if usage > 100 {
		usage = 100
	}
	return round(usage)
}

// memory fills in memory metrics from whichever exporter family is present
func (c *ExporterCollector) memory(families map[string]*dto.MetricFamily, metrics *SystemMetrics) {
	free := gaugeValue(families, "windows_os_physical_memory_free_bytes")
	total := gaugeValue(families, "windows_cs_physical_memory_bytes")
	if free == 0 && total == 0 {
		free = gaugeValue(families, "node_memory_MemAvailable_bytes")
		total = gaugeValue(families, "node_memory_MemTotal_bytes")
	}

	if free > 0 {
		metrics.MemoryFreeGB = round(free / bytesPerGB)
	}
	if total > 0 {
		metrics.MemoryUsedPercent = round((1 - free/total) * 100)
	}
}

// gaugeValue returns the first sample of the named gauge family, or 0
func gaugeValue(families map[string]*dto.MetricFamily, name string) float64 {
	family := families[name]
	if family == nil || len(family.GetMetric()) == 0 {
		return 0
	}
	m := family.GetMetric()[0]
	if g := m.GetGauge(); g != nil {
		return g.GetValue()
	}
	return m.GetUntyped().GetValue()
}
