package winsvc

import (
	"math"
	"testing"
	"time"
)

// TestStatusWireRoundTrip tests that a status snapshot survives conversion
// to the SCM record and back
func TestStatusWireRoundTrip(t *testing.T) {
	in := Status{
		State:    Running,
		Accepts:  AcceptStop,
		WaitHint: 3 * time.Second,
	}

	w, err := in.toWire()
	if err != nil {
		t.Fatalf("toWire() error: %v", err)
	}

	out := statusFromWire(w)

	if out.State != Running {
		t.Errorf("State = %v, want %v", out.State, Running)
	}
	if out.Accepts != AcceptStop {
		t.Errorf("Accepts = %v, want %v", out.Accepts, AcceptStop)
	}
	// Zero service type fills in the default on the wire
	if out.ServiceType != Win32OwnProcess {
		t.Errorf("ServiceType = %#x, want %#x", out.ServiceType, Win32OwnProcess)
	}
	if out.WaitHint != 3*time.Second {
		t.Errorf("WaitHint = %v, want %v", out.WaitHint, 3*time.Second)
	}
	if out.ExitCode != (ExitCode{}) {
		t.Errorf("ExitCode = %+v, want zero", out.ExitCode)
	}
}

// TestStatusExitCodes tests the win32 vs service-specific exit code wire split
func TestStatusExitCodes(t *testing.T) {
	tests := []struct {
		name         string
		exit         ExitCode
		wantWin32    uint32
		wantSpecific uint32
	}{
		{
			name:      "no error",
			exit:      ExitCode{},
			wantWin32: 0,
		},
		{
			name:      "win32 code",
			exit:      ExitCode{Code: 5},
			wantWin32: 5,
		},
		{
			name:         "service specific code",
			exit:         ExitCode{Code: 42, ServiceSpecific: true},
			wantWin32:    errorServiceSpecificError,
			wantSpecific: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Status{State: Stopped, ExitCode: tt.exit}.toWire()
			if err != nil {
				t.Fatalf("toWire() error: %v", err)
			}
			if w.Win32ExitCode != tt.wantWin32 {
				t.Errorf("Win32ExitCode = %d, want %d", w.Win32ExitCode, tt.wantWin32)
			}
			if w.ServiceSpecificExitCode != tt.wantSpecific {
				t.Errorf("ServiceSpecificExitCode = %d, want %d", w.ServiceSpecificExitCode, tt.wantSpecific)
			}

			back := statusFromWire(w)
			if back.ExitCode != tt.exit {
				t.Errorf("round trip ExitCode = %+v, want %+v", back.ExitCode, tt.exit)
			}
		})
	}
}

// TestStatusWaitHintOverflow tests that an unencodable wait hint is an error
func TestStatusWaitHintOverflow(t *testing.T) {
	s := Status{State: StartPending, WaitHint: time.Duration(math.MaxInt64)}
	if _, err := s.toWire(); err == nil {
		t.Error("toWire() accepted a wait hint that does not fit the record")
	}

	s.WaitHint = -time.Second
	if _, err := s.toWire(); err == nil {
		t.Error("toWire() accepted a negative wait hint")
	}
}

// TestStatePending tests the pending state classification
func TestStatePending(t *testing.T) {
	pending := []State{StartPending, StopPending, ContinuePending, PausePending}
	steady := []State{Stopped, Running, Paused}

	for _, s := range pending {
		if !s.Pending() {
			t.Errorf("%v.Pending() = false, want true", s)
		}
	}
	for _, s := range steady {
		if s.Pending() {
			t.Errorf("%v.Pending() = true, want false", s)
		}
	}
}

// TestPendingCheckpointSequence tests that the model layer accepts a normal
// start sequence without enforcing checkpoint monotonicity locally (the
// controller owns that contract)
func TestPendingCheckpointSequence(t *testing.T) {
	var reported []wireStatus
	restore := sysSetServiceStatus
	sysSetServiceStatus = func(handle uintptr, w *wireStatus) error {
		reported = append(reported, *w)
		return nil
	}
	defer func() { sysSetServiceStatus = restore }()

	h := &StatusHandle{name: "seq-test", sys: 1}
	sequence := []Status{
		{State: StartPending, CheckPoint: 1, WaitHint: 5 * time.Second},
		{State: StartPending, CheckPoint: 2, WaitHint: 5 * time.Second},
		{State: Running, Accepts: AcceptStop},
	}

	for i, s := range sequence {
		if err := h.Report(s); err != nil {
			t.Fatalf("Report(%d) error: %v", i, err)
		}
	}

	if len(reported) != len(sequence) {
		t.Fatalf("got %d reports, want %d", len(reported), len(sequence))
	}
	if reported[2].CheckPoint != 0 {
		t.Errorf("steady state checkpoint = %d, want 0", reported[2].CheckPoint)
	}
}
