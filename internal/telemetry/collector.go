package telemetry

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SystemMetrics is one system metrics sample
type SystemMetrics struct {
	CPUUsagePercent   float64 `json:"cpu_usage_percent"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	MemoryFreeGB      float64 `json:"memory_free_gb"`
	Timestamp         string  `json:"timestamp"`
}

// Collector gathers system metrics from some source
type Collector interface {
	// Collect gathers one sample. CPU usage is 0 on the first call while
	// the baseline is established.
	Collect(ctx context.Context) (*SystemMetrics, error)

	// Name returns the collector name for logging
	Name() string
}

// NewCollector creates the collector selected by configuration
func NewCollector(source, exporterURL string, logger *zap.Logger) (Collector, error) {
	switch strings.ToLower(source) {
	case "", "builtin":
		logger.Info("Using builtin metrics collector (gopsutil)")
		return NewBuiltinCollector(logger), nil
	case "exporter":
		if exporterURL == "" {
			return nil, fmt.Errorf("exporter_url required for exporter source")
		}
		logger.Info("Using exporter metrics collector", zap.String("url", exporterURL))
		return NewExporterCollector(exporterURL, logger, newScrapeClient()), nil
	default:
		return nil, fmt.Errorf("unknown metrics source: %s", source)
	}
}

// newScrapeClient builds the HTTP client shared by all exporter scrapes
func newScrapeClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// round trims metrics to 2 decimal places; more precision is noise on the
// wire
func round(val float64) float64 {
	return math.Round(val*100) / 100
}

const bytesPerGB = 1024 * 1024 * 1024
