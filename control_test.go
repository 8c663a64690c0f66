package winsvc

import (
	"encoding/binary"
	"testing"
)

// TestDecodeControlNamedCodes tests that every named control code decodes
// to exactly that code
func TestDecodeControlNamedCodes(t *testing.T) {
	codes := []ControlCode{
		ControlStop,
		ControlPause,
		ControlContinue,
		ControlInterrogate,
		ControlShutdown,
		ControlParamChange,
		ControlNetBindAdd,
		ControlNetBindRemove,
		ControlNetBindEnable,
		ControlNetBindDisable,
		ControlDeviceEvent,
		ControlHardwareProfileChange,
		ControlPowerEvent,
		ControlSessionChange,
		ControlPreShutdown,
		ControlTimeChange,
		ControlTriggerEvent,
	}

	for _, code := range codes {
		ev := DecodeControl(uint32(code), 0, nil)
		if ev.Code != code {
			t.Errorf("DecodeControl(%d) code = %v, want %v", uint32(code), ev.Code, code)
		}
	}
}

// TestDecodeControlUnknownCodes tests that unrecognized codes pass through
// instead of failing
func TestDecodeControlUnknownCodes(t *testing.T) {
	tests := []struct {
		name        string
		code        uint32
		userDefined bool
	}{
		{name: "unassigned low code", code: 25},
		{name: "custom range start", code: 128, userDefined: true},
		{name: "custom range middle", code: 200, userDefined: true},
		{name: "custom range end", code: 255, userDefined: true},
		{name: "above custom range", code: 300},
		{name: "large code", code: 0xFFFF0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := DecodeControl(tt.code, 0, nil)
			if uint32(ev.Code) != tt.code {
				t.Errorf("Code = %d, want the original %d", uint32(ev.Code), tt.code)
			}
			if ev.Code.IsUserDefined() != tt.userDefined {
				t.Errorf("IsUserDefined() = %v, want %v", ev.Code.IsUserDefined(), tt.userDefined)
			}
			if ev.Power != nil || ev.Session != nil {
				t.Error("unknown code carried a typed payload")
			}
		})
	}
}

// TestDecodeControlPowerEvents tests power event classification including
// the generic fallback for unrecognized event types
func TestDecodeControlPowerEvents(t *testing.T) {
	known := []PowerEventType{
		PowerQuerySuspend,
		PowerQuerySuspendFailed,
		PowerSuspend,
		PowerResumeCritical,
		PowerResumeSuspend,
		PowerBatteryLow,
		PowerStatusChange,
		PowerOemEvent,
		PowerResumeAutomatic,
	}

	for _, et := range known {
		ev := DecodeControl(uint32(ControlPowerEvent), uint32(et), nil)
		if ev.Power == nil {
			t.Fatalf("event type %#x: no power payload", uint32(et))
		}
		if ev.Power.Event != et {
			t.Errorf("event type %#x decoded as %#x", uint32(et), uint32(ev.Power.Event))
		}
		if ev.Power.Setting != nil {
			t.Errorf("event type %#x carried a setting payload", uint32(et))
		}
	}

	// Unrecognized event type still decodes to a generic power event
	// carrying the raw value
	ev := DecodeControl(uint32(ControlPowerEvent), 0x7777, nil)
	if ev.Power == nil || uint32(ev.Power.Event) != 0x7777 {
		t.Errorf("unknown event type not carried through: %+v", ev.Power)
	}
}

// TestDecodeControlPowerSettingChange tests the deep-copied setting payload
func TestDecodeControlPowerSettingChange(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 1)
	setting := &PowerSetting{GUID: GUIDACDCPowerSource, Data: data}

	ev := DecodeControl(uint32(ControlPowerEvent), uint32(PowerSettingChange), setting)
	if ev.Power == nil || ev.Power.Setting == nil {
		t.Fatal("setting change decoded without payload")
	}
	if got := ev.Power.Setting.Kind(); got != SettingACDCPowerSource {
		t.Errorf("Kind() = %v, want %v", got, SettingACDCPowerSource)
	}
	if got := ev.Power.Setting.Uint32(); got != 1 {
		t.Errorf("Uint32() = %d, want 1", got)
	}
}

// TestPowerSettingKinds tests GUID classification including the unknown
// fallback
func TestPowerSettingKinds(t *testing.T) {
	tests := []struct {
		guid GUID
		want PowerSettingKind
	}{
		{GUIDACDCPowerSource, SettingACDCPowerSource},
		{GUIDBatteryPercentageRemaining, SettingBatteryPercentageRemaining},
		{GUIDConsoleDisplayState, SettingConsoleDisplayState},
		{GUIDGlobalUserPresence, SettingGlobalUserPresence},
		{GUIDIdleBackgroundTask, SettingIdleBackgroundTask},
		{GUIDLidSwitchStateChange, SettingLidSwitchStateChange},
		{GUIDMonitorPowerOn, SettingMonitorPowerOn},
		{GUIDPowerSavingStatus, SettingPowerSavingStatus},
		{GUIDPowerSchemePersonality, SettingPowerSchemePersonality},
		{GUIDSystemAwayMode, SettingSystemAwayMode},
		{GUID{Data1: 0xDEADBEEF}, SettingUnknown},
	}

	for _, tt := range tests {
		s := &PowerSetting{GUID: tt.guid}
		if got := s.Kind(); got != tt.want {
			t.Errorf("Kind(%v) = %v, want %v", tt.guid, got, tt.want)
		}
	}
}

// TestPowerSettingUint32Short tests the short-payload guard
func TestPowerSettingUint32Short(t *testing.T) {
	s := &PowerSetting{GUID: GUIDBatteryPercentageRemaining, Data: []byte{0x63}}
	if got := s.Uint32(); got != 0 {
		t.Errorf("Uint32() on short payload = %d, want 0", got)
	}
}

// TestDecodeControlSessionChange tests session payload decoding and the
// open reason set
func TestDecodeControlSessionChange(t *testing.T) {
	n := &SessionNotification{Size: 8, SessionID: 42}

	ev := DecodeControl(uint32(ControlSessionChange), uint32(SessionLogon), n)
	if ev.Session == nil {
		t.Fatal("session change decoded without payload")
	}
	if ev.Session.Reason != SessionLogon {
		t.Errorf("Reason = %v, want %v", ev.Session.Reason, SessionLogon)
	}
	if ev.Session.SessionID != 42 {
		t.Errorf("SessionID = %d, want 42", ev.Session.SessionID)
	}

	// Unrecognized reason is carried through untouched
	ev = DecodeControl(uint32(ControlSessionChange), 99, n)
	if ev.Session == nil || uint32(ev.Session.Reason) != 99 {
		t.Errorf("unknown reason not carried through: %+v", ev.Session)
	}
}

// TestControlCodeString spot checks the code names used in logs
func TestControlCodeString(t *testing.T) {
	tests := []struct {
		code ControlCode
		want string
	}{
		{ControlStop, "stop"},
		{ControlPreShutdown, "pre-shutdown"},
		{ControlCode(150), "user-defined(150)"},
		{ControlCode(60), "control(60)"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", uint32(tt.code), got, tt.want)
		}
	}
}
