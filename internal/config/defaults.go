package config

import (
	"runtime"

	"github.com/spf13/viper"
)

// PlatformDefaults returns platform-specific default values
type PlatformDefaults struct {
	LogFile     string
	ConfigPath  string
	ExporterURL string
}

// GetPlatformDefaults returns platform-specific defaults based on runtime.GOOS
func GetPlatformDefaults() PlatformDefaults {
	switch runtime.GOOS {
	case "windows":
		return PlatformDefaults{
			LogFile:     `C:\ProgramData\WinAgent\winagent.log`,
			ConfigPath:  `C:\ProgramData\WinAgent\config.yaml`,
			ExporterURL: "http://localhost:9182/metrics", // windows_exporter
		}
	default:
		// The agent only attaches to the SCM on Windows, but it runs
		// interactively everywhere for development
		return PlatformDefaults{
			LogFile:     "/var/log/winagent/winagent.log",
			ConfigPath:  "/etc/winagent/config.yaml",
			ExporterURL: "http://localhost:9100/metrics", // node_exporter
		}
	}
}

// GetDefaultConfigPath returns the platform-specific default config path
func GetDefaultConfigPath() string {
	return GetPlatformDefaults().ConfigPath
}

// UpdateConfigDefaults overlays platform-specific values onto the viper
// defaults
func UpdateConfigDefaults(v *viper.Viper) {
	defaults := GetPlatformDefaults()
	v.SetDefault("logging.file", defaults.LogFile)
	v.SetDefault("telemetry.metrics.exporter_url", defaults.ExporterURL)
}
