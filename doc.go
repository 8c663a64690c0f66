// Package winsvc lets a process run as a Windows service: it performs the
// dispatch handshake with the service control manager, reports lifecycle
// status, and bridges the SCM's raw control callbacks into typed
// ControlEvent values handled by application code.
//
// A minimal service:
//
//	func main() {
//		err := winsvc.Run("myservice", serviceEntry)
//		if errors.Is(err, winsvc.ErrNotService) {
//			runInteractive() // started from a console, not by the SCM
//			return
//		}
//		// ...
//	}
//
//	func serviceEntry(args []string) {
//		stop := make(chan struct{})
//		handle, err := winsvc.RegisterHandler("myservice", func(ev winsvc.ControlEvent) winsvc.HandlerResult {
//			switch ev.Code {
//			case winsvc.ControlInterrogate:
//				return winsvc.ResultOK
//			case winsvc.ControlStop, winsvc.ControlShutdown:
//				close(stop)
//				return winsvc.ResultOK
//			}
//			return winsvc.ResultNotHandled
//		})
//		if err != nil {
//			return
//		}
//		handle.Report(winsvc.Status{State: winsvc.StartPending, CheckPoint: 1, WaitHint: 10 * time.Second})
//		// ... initialize ...
//		handle.Report(winsvc.Status{State: winsvc.Running, Accepts: winsvc.AcceptStop | winsvc.AcceptShutdown})
//		<-stop
//		handle.Report(winsvc.Status{State: winsvc.Stopped})
//	}
//
// Timing is the controller's contract, not this package's: during a
// pending state the service must keep reporting increasing checkpoints
// within its wait hint or the controller assumes failure, and omitting the
// final Stopped report leaves the controller waiting until its own
// timeout. The package exposes the fields and delivers the reports; pacing
// them is the application's responsibility.
package winsvc
