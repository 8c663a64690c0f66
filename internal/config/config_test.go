package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestValidateServiceName tests service name validation
func TestValidateServiceName(t *testing.T) {
	tests := []struct {
		name    string
		svcName string
		wantErr bool
		errText string
	}{
		// Valid names
		{
			name:    "alphanumeric",
			svcName: "winagent1",
		},
		{
			name:    "with dashes",
			svcName: "win-agent",
		},
		{
			name:    "with underscores",
			svcName: "win_agent",
		},
		{
			name:    "mixed case",
			svcName: "WinAgent",
		},

		// Invalid names
		{
			name:    "empty",
			svcName: "",
			wantErr: true,
			errText: "service.name is required",
		},
		{
			name:    "with spaces",
			svcName: "win agent",
			wantErr: true,
			errText: "must contain only alphanumeric",
		},
		{
			name:    "with backslash",
			svcName: `win\agent`,
			wantErr: true,
			errText: "must contain only alphanumeric",
		},
		{
			name:    "with dots",
			svcName: "win.agent",
			wantErr: true,
			errText: "must contain only alphanumeric",
		},
		{
			name:    "too long",
			svcName: strings.Repeat("a", 257),
			wantErr: true,
			errText: "exceeds 256 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceName(tt.svcName)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateServiceName(%q) error = %v, wantErr %v", tt.svcName, err, tt.wantErr)
			}
			if err != nil && tt.errText != "" && !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errText)
			}
		})
	}
}

// TestLoadDefaults tests that loading without a config file yields a valid
// configuration built from defaults
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() without config file error: %v", err)
	}

	if cfg.Service.Name != "winagent" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "winagent")
	}
	if cfg.Service.StartTimeout != 30*time.Second {
		t.Errorf("Service.StartTimeout = %v, want 30s", cfg.Service.StartTimeout)
	}
	if len(cfg.NATS.URLs) != 1 || cfg.NATS.URLs[0] != "nats://localhost:4222" {
		t.Errorf("NATS.URLs = %v, want default", cfg.NATS.URLs)
	}
	if cfg.NATS.Auth.Type != "none" {
		t.Errorf("NATS.Auth.Type = %q, want %q", cfg.NATS.Auth.Type, "none")
	}
	if cfg.Telemetry.Metrics.Source != "builtin" {
		t.Errorf("Telemetry.Metrics.Source = %q, want %q", cfg.Telemetry.Metrics.Source, "builtin")
	}
	if cfg.Logging.File == "" {
		t.Error("Logging.File not filled from platform defaults")
	}
}

// TestLoadFromFile tests loading and overriding from a YAML file
func TestLoadFromFile(t *testing.T) {
	content := `
service:
  name: test-agent
  stop_timeout: 45s
nats:
  urls:
    - nats://nats-1:4222
    - nats://nats-2:4222
  auth:
    type: token
    token: secret
logging:
  level: debug
telemetry:
  heartbeat_interval: 10s
  metrics:
    source: exporter
    exporter_url: http://localhost:9182/metrics
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Service.Name != "test-agent" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "test-agent")
	}
	if cfg.Service.StopTimeout != 45*time.Second {
		t.Errorf("Service.StopTimeout = %v, want 45s", cfg.Service.StopTimeout)
	}
	// Values absent from the file keep their defaults
	if cfg.Service.StartTimeout != 30*time.Second {
		t.Errorf("Service.StartTimeout = %v, want default 30s", cfg.Service.StartTimeout)
	}
	if len(cfg.NATS.URLs) != 2 {
		t.Errorf("NATS.URLs = %v, want 2 entries", cfg.NATS.URLs)
	}
	if cfg.NATS.Auth.Type != "token" || cfg.NATS.Auth.Token != "secret" {
		t.Errorf("NATS.Auth = %+v, want token auth", cfg.NATS.Auth)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Telemetry.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 10s", cfg.Telemetry.HeartbeatInterval)
	}
	if cfg.Telemetry.Metrics.Source != "exporter" {
		t.Errorf("Metrics.Source = %q, want %q", cfg.Telemetry.Metrics.Source, "exporter")
	}
}

// TestLoadValidation tests that invalid configurations are rejected
func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name: "bad service name",
			content: `
service:
  name: "win agent"
`,
			errText: "must contain only alphanumeric",
		},
		{
			name: "bad auth type",
			content: `
nats:
  auth:
    type: kerberos
`,
			errText: "invalid nats.auth.type",
		},
		{
			name: "creds auth without file",
			content: `
nats:
  auth:
    type: creds
`,
			errText: "creds_file is required",
		},
		{
			name: "bad log level",
			content: `
logging:
  level: verbose
`,
			errText: "invalid logging.level",
		},
		{
			name: "heartbeat too fast",
			content: `
telemetry:
  heartbeat_interval: 100ms
`,
			errText: "heartbeat_interval",
		},
		{
			name: "exporter source without url",
			content: `
telemetry:
  metrics:
    source: exporter
    exporter_url: ""
`,
			errText: "exporter_url is required",
		},
		{
			name: "unknown metrics source",
			content: `
telemetry:
  metrics:
    source: snmp
`,
			errText: "unknown telemetry.metrics.source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errText)
			}
		})
	}
}
