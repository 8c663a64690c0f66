package agent

import (
	"time"

	"github.com/stone-age-io/winsvc"
	"go.uber.org/zap"
)

// acceptedControls is what the agent reports while running. Power and
// session events are logged for telemetry; the rest drive the lifecycle.
const acceptedControls = winsvc.AcceptStop |
	winsvc.AcceptShutdown |
	winsvc.AcceptPreShutdown |
	winsvc.AcceptPauseAndContinue |
	winsvc.AcceptParamChange |
	winsvc.AcceptPowerEvent |
	winsvc.AcceptSessionChange

// errorServiceCannotAcceptCtrl is returned when the control queue is full
// and the lifecycle loop cannot take another request right now
const errorServiceCannotAcceptCtrl = 1061 // ERROR_SERVICE_CANNOT_ACCEPT_CTRL

// controlReload is the user-defined control the agent maps to a config
// reload (sc control <name> 128)
const controlReload winsvc.ControlCode = 128

// RunService hands the process to the service control manager and runs the
// agent as the named service. It fails with winsvc.ErrNotService when the
// process was started from a console, letting main fall back to Run.
func RunService(a *Agent) error {
	return winsvc.Run(a.config.Service.Name, a.serviceMain)
}

// serviceMain is the dispatch entry. It registers the control handler,
// then walks the agent through the reported lifecycle until stop.
func (a *Agent) serviceMain(args []string) {
	events := make(chan winsvc.ControlEvent, 16)

	handle, err := winsvc.RegisterHandler(a.config.Service.Name, a.controlHandler(events))
	if err != nil {
		a.logger.Error("Failed to register control handler", zap.Error(err))
		return
	}

	lc := &lifecycle{
		report:             handle,
		events:             events,
		logger:             a.logger,
		startTimeout:       a.config.Service.StartTimeout,
		stopTimeout:        a.config.Service.StopTimeout,
		checkpointInterval: time.Second,
		start:              a.start,
		stop:               a.shutdown,
		pause:              a.pause,
		resume:             a.resume,
		reload:             a.reload,
	}
	lc.run()
}

// controlHandler builds the callback the control manager invokes. It must
// return quickly: lifecycle controls are queued for the service loop, and
// informational notifications are handled inline.
func (a *Agent) controlHandler(events chan<- winsvc.ControlEvent) winsvc.Handler {
	return func(ev winsvc.ControlEvent) winsvc.HandlerResult {
		switch {
		case ev.Code == winsvc.ControlInterrogate:
			// Current status is re-reported by the lifecycle loop; the
			// acknowledgment alone satisfies the controller
			return winsvc.ResultOK

		case ev.Code == winsvc.ControlStop,
			ev.Code == winsvc.ControlShutdown,
			ev.Code == winsvc.ControlPreShutdown,
			ev.Code == winsvc.ControlPause,
			ev.Code == winsvc.ControlContinue,
			ev.Code == winsvc.ControlParamChange,
			ev.Code == controlReload:
			select {
			case events <- ev:
				return winsvc.ResultOK
			default:
				a.logger.Warn("Control queue full, rejecting control",
					zap.String("control", ev.Code.String()))
				return winsvc.ResultError(errorServiceCannotAcceptCtrl)
			}

		case ev.Code == winsvc.ControlPowerEvent:
			a.logPowerEvent(ev)
			return winsvc.ResultOK

		case ev.Code == winsvc.ControlSessionChange:
			if ev.Session != nil {
				a.logger.Info("Session change",
					zap.String("reason", ev.Session.Reason.String()),
					zap.Uint32("session_id", ev.Session.SessionID))
			}
			return winsvc.ResultOK

		default:
			return winsvc.ResultNotHandled
		}
	}
}

func (a *Agent) logPowerEvent(ev winsvc.ControlEvent) {
	if ev.Power == nil {
		return
	}
	fields := []zap.Field{zap.String("event", ev.Power.Event.String())}
	if s := ev.Power.Setting; s != nil {
		fields = append(fields,
			zap.String("setting", s.Kind().String()),
			zap.Uint32("value", s.Uint32()))
	}
	a.logger.Info("Power event", fields...)
}

// statusReporter is the slice of the status handle the lifecycle needs,
// kept narrow so tests can substitute a recorder
type statusReporter interface {
	Report(winsvc.Status) error
}

// lifecycle drives the reported service states around the agent's start,
// pause, resume, and stop operations
type lifecycle struct {
	report             statusReporter
	events             <-chan winsvc.ControlEvent
	logger             *zap.Logger
	startTimeout       time.Duration
	stopTimeout        time.Duration
	checkpointInterval time.Duration

	start  func() error
	stop   func() error
	pause  func() error
	resume func() error
	reload func() error
}

// run executes the state machine. It always leaves the service reported as
// Stopped, carrying an exit code when startup failed.
func (l *lifecycle) run() {
	if err := l.pending(winsvc.StartPending, l.startTimeout, l.start); err != nil {
		l.logger.Error("Service start failed", zap.Error(err))
		l.reportStopped(winsvc.ExitCode{Code: 1, ServiceSpecific: true})
		return
	}
	l.reportState(winsvc.Running)

	for ev := range l.events {
		switch ev.Code {
		case winsvc.ControlStop, winsvc.ControlShutdown, winsvc.ControlPreShutdown:
			l.logger.Info("Stopping service", zap.String("control", ev.Code.String()))
			if err := l.pending(winsvc.StopPending, l.stopTimeout, l.stop); err != nil {
				l.logger.Error("Error during stop", zap.Error(err))
			}
			l.reportStopped(winsvc.ExitCode{})
			return

		case winsvc.ControlPause:
			if err := l.pending(winsvc.PausePending, l.stopTimeout, l.pause); err != nil {
				l.logger.Error("Pause failed", zap.Error(err))
				l.reportState(winsvc.Running)
				continue
			}
			l.reportState(winsvc.Paused)

		case winsvc.ControlContinue:
			if err := l.pending(winsvc.ContinuePending, l.startTimeout, l.resume); err != nil {
				l.logger.Error("Continue failed", zap.Error(err))
				l.reportState(winsvc.Paused)
				continue
			}
			l.reportState(winsvc.Running)

		case winsvc.ControlParamChange, controlReload:
			if err := l.reload(); err != nil {
				l.logger.Warn("Reload failed", zap.Error(err))
			}
		}
	}

	// Channel closed without a stop control; report the stop anyway so the
	// controller never sees a vanished-but-running service
	l.reportStopped(winsvc.ExitCode{})
}

// pending reports the transitional state and walks the checkpoint forward
// while op runs, so the controller sees progress instead of a stall
func (l *lifecycle) pending(state winsvc.State, hint time.Duration, op func() error) error {
	checkpoint := uint32(1)
	l.reportPending(state, checkpoint, hint)

	done := make(chan error, 1)
	go func() { done <- op() }()

	ticker := time.NewTicker(l.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			checkpoint++
			l.reportPending(state, checkpoint, hint)
		}
	}
}

func (l *lifecycle) reportPending(state winsvc.State, checkpoint uint32, hint time.Duration) {
	err := l.report.Report(winsvc.Status{
		State:      state,
		CheckPoint: checkpoint,
		WaitHint:   hint,
	})
	if err != nil {
		l.logger.Error("Failed to report status",
			zap.String("state", state.String()),
			zap.Error(err))
	}
}

func (l *lifecycle) reportState(state winsvc.State) {
	err := l.report.Report(winsvc.Status{
		State:   state,
		Accepts: acceptedControls,
	})
	if err != nil {
		l.logger.Error("Failed to report status",
			zap.String("state", state.String()),
			zap.Error(err))
	}
}

func (l *lifecycle) reportStopped(exit winsvc.ExitCode) {
	err := l.report.Report(winsvc.Status{
		State:    winsvc.Stopped,
		ExitCode: exit,
	})
	if err != nil {
		l.logger.Error("Failed to report stopped", zap.Error(err))
	}
}
