package winsvc

import (
	"fmt"
	"math"
	"time"
)

// State is the lifecycle state a service reports to the service control
// manager.
type State uint32

// Service states, in SERVICE_STATUS.dwCurrentState encoding.
const (
	Stopped         State = 1
	StartPending    State = 2
	StopPending     State = 3
	Running         State = 4
	ContinuePending State = 5
	PausePending    State = 6
	Paused          State = 7
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case StartPending:
		return "start-pending"
	case StopPending:
		return "stop-pending"
	case Running:
		return "running"
	case ContinuePending:
		return "continue-pending"
	case PausePending:
		return "pause-pending"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// Pending reports whether s is a transitional state. While pending, the
// controller expects fresh checkpoints within the wait hint or it assumes
// the service hung.
func (s State) Pending() bool {
	switch s {
	case StartPending, StopPending, ContinuePending, PausePending:
		return true
	}
	return false
}

// Accepted is the set of controls a service declares it will handle, in
// SERVICE_STATUS.dwControlsAccepted encoding.
type Accepted uint32

const (
	AcceptStop                  Accepted = 1 << 0
	AcceptPauseAndContinue      Accepted = 1 << 1
	AcceptShutdown              Accepted = 1 << 2
	AcceptParamChange           Accepted = 1 << 3
	AcceptNetBindChange         Accepted = 1 << 4
	AcceptHardwareProfileChange Accepted = 1 << 5
	AcceptPowerEvent            Accepted = 1 << 6
	AcceptSessionChange         Accepted = 1 << 7
	AcceptPreShutdown           Accepted = 1 << 8
	AcceptTimeChange            Accepted = 1 << 9
	AcceptTriggerEvent          Accepted = 1 << 10
)

// ServiceType is the service kind bitset in SERVICE_STATUS.dwServiceType
// encoding.
type ServiceType uint32

const (
	KernelDriver      ServiceType = 0x01
	FileSystemDriver  ServiceType = 0x02
	Win32OwnProcess   ServiceType = 0x10
	Win32ShareProcess ServiceType = 0x20
)

// Windows error codes the wire encoding depends on.
const (
	errorInvalidFunction      = 1    // ERROR_INVALID_FUNCTION
	errorCallNotImplemented   = 120  // ERROR_CALL_NOT_IMPLEMENTED
	errorServiceSpecificError = 1066 // ERROR_SERVICE_SPECIFIC_ERROR
)

// ExitCode is the exit status carried in a status report. The zero value
// means no error. A service-specific code travels through the
// ERROR_SERVICE_SPECIFIC_ERROR indirection the controller requires: the
// win32 slot is set to that marker and the custom code rides in the
// service-specific slot.
type ExitCode struct {
	Code            uint32
	ServiceSpecific bool
}

// Status is one full status snapshot for a service. Every report carries
// the complete record; there are no deltas. Checkpoint pacing during
// pending states is the caller's job: the model never increments or
// validates it, and the wait hint is advisory data for the controller, not
// a locally enforced deadline.
type Status struct {
	// ServiceType defaults to Win32OwnProcess when left zero.
	ServiceType ServiceType

	State    State
	Accepts  Accepted
	ExitCode ExitCode

	// CheckPoint proves forward progress during a pending transition and
	// must be reset to zero on reaching a steady state.
	CheckPoint uint32

	// WaitHint tells the controller how long to wait for the next
	// checkpoint or state change before assuming failure.
	WaitHint time.Duration
}

// wireStatus mirrors the controller's fixed SERVICE_STATUS record layout.
type wireStatus struct {
	ServiceType             uint32
	CurrentState            uint32
	ControlsAccepted        uint32
	Win32ExitCode           uint32
	ServiceSpecificExitCode uint32
	CheckPoint              uint32
	WaitHint                uint32
}

// toWire converts the snapshot to the controller's record. The conversion
// is pure: it does not second-guess accepted controls against the state
// (the controller does not validate that either).
func (s Status) toWire() (wireStatus, error) {
	hint := s.WaitHint.Milliseconds()
	if hint < 0 || hint > math.MaxUint32 {
		return wireStatus{}, fmt.Errorf("wait hint %v does not fit the status record", s.WaitHint)
	}

	w := wireStatus{
		ServiceType:      uint32(s.ServiceType),
		CurrentState:     uint32(s.State),
		ControlsAccepted: uint32(s.Accepts),
		CheckPoint:       s.CheckPoint,
		WaitHint:         uint32(hint),
	}
	if w.ServiceType == 0 {
		w.ServiceType = uint32(Win32OwnProcess)
	}
	if s.ExitCode.ServiceSpecific {
		w.Win32ExitCode = errorServiceSpecificError
		w.ServiceSpecificExitCode = s.ExitCode.Code
	} else {
		w.Win32ExitCode = s.ExitCode.Code
	}
	return w, nil
}

// statusFromWire decodes a controller status record back into a snapshot.
func statusFromWire(w wireStatus) Status {
	s := Status{
		ServiceType: ServiceType(w.ServiceType),
		State:       State(w.CurrentState),
		Accepts:     Accepted(w.ControlsAccepted),
		CheckPoint:  w.CheckPoint,
		WaitHint:    time.Duration(w.WaitHint) * time.Millisecond,
	}
	if w.Win32ExitCode == errorServiceSpecificError {
		s.ExitCode = ExitCode{Code: w.ServiceSpecificExitCode, ServiceSpecific: true}
	} else {
		s.ExitCode = ExitCode{Code: w.Win32ExitCode}
	}
	return s
}
