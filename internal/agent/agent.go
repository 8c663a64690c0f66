package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/stone-age-io/winsvc/internal/config"
	natsclient "github.com/stone-age-io/winsvc/internal/nats"
	"github.com/stone-age-io/winsvc/internal/sched"
	"github.com/stone-age-io/winsvc/internal/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Agent publishes service telemetry over NATS and answers status queries.
// It runs either under the service control manager (see RunService) or
// interactively (see Run).
type Agent struct {
	config     *config.Config
	configPath string
	logger     *zap.Logger
	version    string

	// Built by start, torn down by shutdown
	nats      *natsclient.Client
	sched     *sched.Scheduler
	collector telemetry.Collector

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       string
	startedAt   time.Time
	lastMetrics *telemetry.SystemMetrics
}

// New loads configuration and sets up logging. Connections and scheduled
// work are deferred to start so the service can report StartPending while
// they happen.
func New(configPath, version string) (*Agent, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Agent created",
		zap.String("service", cfg.Service.Name),
		zap.String("version", version))

	return &Agent{
		config:     cfg,
		configPath: configPath,
		logger:     logger,
		version:    version,
		state:      "stopped",
	}, nil
}

// Config returns the loaded configuration
func (a *Agent) Config() *config.Config {
	return a.config
}

// Logger returns the agent logger
func (a *Agent) Logger() *zap.Logger {
	return a.logger
}

// start connects to NATS, wires the status responder, and begins the
// telemetry schedule
func (a *Agent) start() error {
	a.setState("starting")

	ctx, cancel := context.WithCancel(context.Background())
	a.ctx = ctx
	a.cancel = cancel

	a.logger.Info("Connecting to NATS...")
	client, err := natsclient.NewClient(&a.config.NATS, a.logger)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.nats = client

	collector, err := telemetry.NewCollector(
		a.config.Telemetry.Metrics.Source,
		a.config.Telemetry.Metrics.ExporterURL,
		a.logger,
	)
	if err != nil {
		client.Close()
		cancel()
		return fmt.Errorf("failed to create metrics collector: %w", err)
	}
	a.collector = collector
	a.logger.Info("Metrics collector ready", zap.String("source", collector.Name()))

	responder := natsclient.NewStatusResponder(
		a.logger,
		a.config.NATS.SubjectPrefix,
		a.config.Service.Name,
		a.statusSnapshot,
	)
	if err := responder.Subscribe(client); err != nil {
		client.Close()
		cancel()
		return fmt.Errorf("failed to subscribe status responder: %w", err)
	}

	scheduler, err := sched.New(a.logger)
	if err != nil {
		client.Close()
		cancel()
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	a.sched = scheduler

	if err := scheduler.Every(a.config.Telemetry.Metrics.Interval, "metrics", a.collectMetrics); err != nil {
		client.Close()
		cancel()
		return err
	}
	if err := scheduler.Every(a.config.Telemetry.HeartbeatInterval, "heartbeat", a.publishHeartbeat); err != nil {
		client.Close()
		cancel()
		return err
	}

	a.mu.Lock()
	a.startedAt = time.Now()
	a.mu.Unlock()

	scheduler.Start()
	a.setState("running")

	a.logger.Info("Agent running",
		zap.String("service", a.config.Service.Name),
		zap.String("version", a.version))
	return nil
}

// pause stops the telemetry schedule without dropping the NATS connection,
// so status queries still answer while paused
func (a *Agent) pause() error {
	if err := a.sched.Pause(); err != nil {
		return err
	}
	a.setState("paused")
	a.logger.Info("Agent paused")
	return nil
}

// resume restarts the telemetry schedule after a pause
func (a *Agent) resume() error {
	a.sched.Resume()
	a.setState("running")
	a.logger.Info("Agent resumed")
	return nil
}

// reload re-reads the configuration file. Only settings that apply without
// rebuilding connections take effect; the rest need a restart.
func (a *Agent) reload() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		a.logger.Error("Config reload failed, keeping current settings", zap.Error(err))
		return err
	}
	a.logger.Info("Config reloaded",
		zap.Duration("heartbeat_interval", cfg.Telemetry.HeartbeatInterval),
		zap.Duration("metrics_interval", cfg.Telemetry.Metrics.Interval))

	// Push a fresh heartbeat so the reload is visible upstream
	a.publishHeartbeat()
	return nil
}

// shutdown tears down the schedule and connection, publishing a final
// heartbeat so upstream sees the stop rather than inferring it from silence
func (a *Agent) shutdown() error {
	a.setState("stopping")
	a.logger.Info("Shutting down agent")

	if a.sched != nil {
		if err := a.sched.Shutdown(); err != nil {
			a.logger.Error("Error shutting down scheduler", zap.Error(err))
		}
	}

	if a.nats != nil {
		a.publishFinalHeartbeat()
		if err := a.nats.Drain(a.config.NATS.DrainTimeout); err != nil {
			a.logger.Error("Error draining NATS", zap.Error(err))
		}
	}

	if a.cancel != nil {
		a.cancel()
	}

	a.setState("stopped")
	a.logger.Info("Agent shutdown complete")
	a.logger.Sync()
	return nil
}

// Run starts the agent in the foreground and blocks until an interrupt.
// This is the fallback path when the process was not started by the service
// control manager.
func (a *Agent) Run() error {
	a.logger.Info("Running interactively")

	if err := a.start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	return a.shutdown()
}

// State returns the agent's lifecycle state string
func (a *Agent) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(state string) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}

// statusSnapshot feeds the NATS status responder
func (a *Agent) statusSnapshot() natsclient.StatusSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	var uptime float64
	if !a.startedAt.IsZero() {
		uptime = time.Since(a.startedAt).Seconds()
	}
	return natsclient.StatusSnapshot{
		State:         a.state,
		Version:       a.version,
		UptimeSeconds: uptime,
	}
}

// collectMetrics samples system metrics and publishes them
func (a *Agent) collectMetrics() {
	ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
	defer cancel()

	metrics, err := a.collector.Collect(ctx)
	if err != nil {
		a.logger.Warn("Metrics collection failed", zap.Error(err))
		return
	}

	a.mu.Lock()
	a.lastMetrics = metrics
	a.mu.Unlock()

	data, err := json.Marshal(metrics)
	if err != nil {
		a.logger.Error("Failed to marshal metrics", zap.Error(err))
		return
	}
	subject := fmt.Sprintf("%s.svc.%s.metrics", a.config.NATS.SubjectPrefix, a.config.Service.Name)
	if err := a.nats.PublishTelemetry(subject, data); err != nil {
		a.logger.Warn("Failed to publish metrics", zap.Error(err))
	}
}

// publishHeartbeat publishes a heartbeat with the most recent metrics sample
func (a *Agent) publishHeartbeat() {
	a.mu.Lock()
	state := a.state
	startedAt := a.startedAt
	metrics := a.lastMetrics
	a.mu.Unlock()

	hb := telemetry.NewHeartbeat(a.config.Service.Name, state, a.version, startedAt, metrics)
	data, err := json.Marshal(hb)
	if err != nil {
		a.logger.Error("Failed to marshal heartbeat", zap.Error(err))
		return
	}
	subject := fmt.Sprintf("%s.svc.%s.heartbeat", a.config.NATS.SubjectPrefix, a.config.Service.Name)
	if err := a.nats.PublishTelemetry(subject, data); err != nil {
		a.logger.Warn("Failed to publish heartbeat", zap.Error(err))
	}
}

// publishFinalHeartbeat synchronously reports the stopping state so the
// stop is observable before the connection drains
func (a *Agent) publishFinalHeartbeat() {
	a.mu.Lock()
	startedAt := a.startedAt
	a.mu.Unlock()

	hb := telemetry.NewHeartbeat(a.config.Service.Name, "stopping", a.version, startedAt, nil)
	data, err := json.Marshal(hb)
	if err != nil {
		return
	}
	subject := fmt.Sprintf("%s.svc.%s.heartbeat", a.config.NATS.SubjectPrefix, a.config.Service.Name)
	if err := a.nats.PublishTelemetrySync(subject, data, 5*time.Second); err != nil {
		a.logger.Warn("Failed to publish final heartbeat", zap.Error(err))
	}
}

// initLogger creates the logger with file rotation and optional console
// output
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core

	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(fileWriter),
			level,
		))
	}

	if cfg.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, nil
}
