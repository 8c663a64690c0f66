package winsvc

import (
	"encoding/binary"
	"fmt"
)

// ControlCode identifies a control request delivered by the service control
// manager. The code space is open: controllers send codes this package does
// not name, including the user-defined range 128-255, and such codes pass
// through decoding untouched rather than failing.
type ControlCode uint32

const (
	ControlStop                  ControlCode = 1
	ControlPause                 ControlCode = 2
	ControlContinue              ControlCode = 3
	ControlInterrogate           ControlCode = 4
	ControlShutdown              ControlCode = 5
	ControlParamChange           ControlCode = 6
	ControlNetBindAdd            ControlCode = 7
	ControlNetBindRemove         ControlCode = 8
	ControlNetBindEnable         ControlCode = 9
	ControlNetBindDisable        ControlCode = 10
	ControlDeviceEvent           ControlCode = 11
	ControlHardwareProfileChange ControlCode = 12
	ControlPowerEvent            ControlCode = 13
	ControlSessionChange         ControlCode = 14
	ControlPreShutdown           ControlCode = 15
	ControlTimeChange            ControlCode = 16
	ControlTriggerEvent          ControlCode = 32
)

// IsUserDefined reports whether c falls in the range reserved for
// controller-defined custom codes.
func (c ControlCode) IsUserDefined() bool {
	return c >= 128 && c <= 255
}

func (c ControlCode) String() string {
	switch c {
	case ControlStop:
		return "stop"
	case ControlPause:
		return "pause"
	case ControlContinue:
		return "continue"
	case ControlInterrogate:
		return "interrogate"
	case ControlShutdown:
		return "shutdown"
	case ControlParamChange:
		return "param-change"
	case ControlNetBindAdd:
		return "netbind-add"
	case ControlNetBindRemove:
		return "netbind-remove"
	case ControlNetBindEnable:
		return "netbind-enable"
	case ControlNetBindDisable:
		return "netbind-disable"
	case ControlDeviceEvent:
		return "device-event"
	case ControlHardwareProfileChange:
		return "hardware-profile-change"
	case ControlPowerEvent:
		return "power-event"
	case ControlSessionChange:
		return "session-change"
	case ControlPreShutdown:
		return "pre-shutdown"
	case ControlTimeChange:
		return "time-change"
	case ControlTriggerEvent:
		return "trigger-event"
	}
	if c.IsUserDefined() {
		return fmt.Sprintf("user-defined(%d)", uint32(c))
	}
	return fmt.Sprintf("control(%d)", uint32(c))
}

// ControlEvent is one decoded control notification. All payloads are deep
// copies taken while the controller's raw buffers were still valid, so an
// event may be stored or handed to another goroutine after the control
// callback returns.
type ControlEvent struct {
	Code ControlCode

	// EventType is the raw secondary code as delivered. For power and
	// session events it is also reflected in the typed payloads below.
	EventType uint32

	Power   *PowerEvent    // set when Code is ControlPowerEvent
	Session *SessionChange // set when Code is ControlSessionChange
}

// PowerEventType classifies a power broadcast, in PBT_* encoding. The set
// is open: unrecognized event types are carried through as-is.
type PowerEventType uint32

const (
	PowerQuerySuspend       PowerEventType = 0x0000
	PowerQuerySuspendFailed PowerEventType = 0x0002
	PowerSuspend            PowerEventType = 0x0004
	PowerResumeCritical     PowerEventType = 0x0006
	PowerResumeSuspend      PowerEventType = 0x0007
	PowerBatteryLow         PowerEventType = 0x0009
	PowerStatusChange       PowerEventType = 0x000A
	PowerOemEvent           PowerEventType = 0x000B
	PowerResumeAutomatic    PowerEventType = 0x0012
	PowerSettingChange      PowerEventType = 0x8013
)

func (t PowerEventType) String() string {
	switch t {
	case PowerQuerySuspend:
		return "query-suspend"
	case PowerQuerySuspendFailed:
		return "query-suspend-failed"
	case PowerSuspend:
		return "suspend"
	case PowerResumeCritical:
		return "resume-critical"
	case PowerResumeSuspend:
		return "resume-suspend"
	case PowerBatteryLow:
		return "battery-low"
	case PowerStatusChange:
		return "power-status-change"
	case PowerOemEvent:
		return "oem-event"
	case PowerResumeAutomatic:
		return "resume-automatic"
	case PowerSettingChange:
		return "power-setting-change"
	}
	return fmt.Sprintf("power-event(0x%X)", uint32(t))
}

// PowerEvent is the payload of a ControlPowerEvent notification.
type PowerEvent struct {
	Event   PowerEventType
	Setting *PowerSetting // set when Event is PowerSettingChange
}

// GUID matches the in-memory layout of a Windows GUID.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

func (g GUID) String() string {
	return fmt.Sprintf("{%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X}",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3],
		g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// Well-known power setting GUIDs from the Windows SDK.
var (
	GUIDACDCPowerSource            = GUID{0x5D3E9A59, 0xE9D5, 0x4B00, [8]byte{0xA6, 0xBD, 0xFF, 0x34, 0xFF, 0x51, 0x65, 0x48}}
	GUIDBatteryPercentageRemaining = GUID{0xA7AD8041, 0xB45A, 0x4CAE, [8]byte{0x87, 0xA3, 0xEE, 0xCB, 0xB4, 0x68, 0xA9, 0xE1}}
	GUIDConsoleDisplayState        = GUID{0x6FE69556, 0x704A, 0x47A0, [8]byte{0x8F, 0x24, 0xC2, 0x8D, 0x93, 0x6F, 0xDA, 0x47}}
	GUIDGlobalUserPresence         = GUID{0x786E8A1D, 0xB427, 0x4344, [8]byte{0x92, 0x07, 0x09, 0xE7, 0x0B, 0xDC, 0xBE, 0xA9}}
	GUIDIdleBackgroundTask         = GUID{0x515C31D8, 0xF734, 0x163D, [8]byte{0xA0, 0xFD, 0x11, 0xA0, 0x8C, 0x91, 0xE8, 0xF1}}
	GUIDLidSwitchStateChange       = GUID{0xBA3E0F4D, 0xB817, 0x4094, [8]byte{0xA2, 0xD1, 0xD5, 0x63, 0x79, 0xE6, 0xA0, 0xF3}}
	GUIDMonitorPowerOn             = GUID{0x02731015, 0x4510, 0x4526, [8]byte{0x99, 0xE6, 0xE5, 0xA1, 0x7E, 0xBD, 0x1A, 0xEA}}
	GUIDPowerSavingStatus          = GUID{0xE00958C0, 0xC213, 0x4ACE, [8]byte{0xAC, 0x77, 0xFE, 0xCC, 0xED, 0x2E, 0xEE, 0xA5}}
	GUIDPowerSchemePersonality     = GUID{0x245D8541, 0x3943, 0x4422, [8]byte{0xB0, 0x25, 0x13, 0xA7, 0x84, 0xF6, 0x79, 0xB7}}
	GUIDSystemAwayMode             = GUID{0x98A7F580, 0x01F7, 0x48AA, [8]byte{0x9C, 0x0F, 0x44, 0x35, 0x2C, 0x29, 0xE5, 0xC0}}
)

// PowerSettingKind classifies a power setting change by its GUID.
type PowerSettingKind int

const (
	SettingUnknown PowerSettingKind = iota
	SettingACDCPowerSource
	SettingBatteryPercentageRemaining
	SettingConsoleDisplayState
	SettingGlobalUserPresence
	SettingIdleBackgroundTask
	SettingLidSwitchStateChange
	SettingMonitorPowerOn
	SettingPowerSavingStatus
	SettingPowerSchemePersonality
	SettingSystemAwayMode
)

func (k PowerSettingKind) String() string {
	switch k {
	case SettingACDCPowerSource:
		return "acdc-power-source"
	case SettingBatteryPercentageRemaining:
		return "battery-percentage-remaining"
	case SettingConsoleDisplayState:
		return "console-display-state"
	case SettingGlobalUserPresence:
		return "global-user-presence"
	case SettingIdleBackgroundTask:
		return "idle-background-task"
	case SettingLidSwitchStateChange:
		return "lid-switch-state-change"
	case SettingMonitorPowerOn:
		return "monitor-power-on"
	case SettingPowerSavingStatus:
		return "power-saving-status"
	case SettingPowerSchemePersonality:
		return "power-scheme-personality"
	case SettingSystemAwayMode:
		return "system-away-mode"
	}
	return "unknown"
}

var settingKinds = map[GUID]PowerSettingKind{
	GUIDACDCPowerSource:            SettingACDCPowerSource,
	GUIDBatteryPercentageRemaining: SettingBatteryPercentageRemaining,
	GUIDConsoleDisplayState:        SettingConsoleDisplayState,
	GUIDGlobalUserPresence:         SettingGlobalUserPresence,
	GUIDIdleBackgroundTask:         SettingIdleBackgroundTask,
	GUIDLidSwitchStateChange:       SettingLidSwitchStateChange,
	GUIDMonitorPowerOn:             SettingMonitorPowerOn,
	GUIDPowerSavingStatus:          SettingPowerSavingStatus,
	GUIDPowerSchemePersonality:     SettingPowerSchemePersonality,
	GUIDSystemAwayMode:             SettingSystemAwayMode,
}

// PowerSetting is the copied POWERBROADCAST_SETTING payload of a
// PowerSettingChange broadcast. Data owns its bytes; nothing references the
// controller's buffer.
type PowerSetting struct {
	GUID GUID
	Data []byte
}

// Kind classifies the setting by GUID. Settings this package does not know
// report SettingUnknown; the raw GUID and data remain available.
func (s *PowerSetting) Kind() PowerSettingKind {
	return settingKinds[s.GUID]
}

// Uint32 reads the common 4-byte little-endian payload most power settings
// carry (power source, percentage, display state, ...). Returns zero when
// the payload is shorter.
func (s *PowerSetting) Uint32() uint32 {
	if len(s.Data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(s.Data)
}

// SessionChangeReason is the WTS_* reason of a session change notification.
// The set is open; unrecognized reasons pass through.
type SessionChangeReason uint32

const (
	SessionConsoleConnect    SessionChangeReason = 1
	SessionConsoleDisconnect SessionChangeReason = 2
	SessionRemoteConnect     SessionChangeReason = 3
	SessionRemoteDisconnect  SessionChangeReason = 4
	SessionLogon             SessionChangeReason = 5
	SessionLogoff            SessionChangeReason = 6
	SessionLock              SessionChangeReason = 7
	SessionUnlock            SessionChangeReason = 8
	SessionRemoteControl     SessionChangeReason = 9
	SessionCreate            SessionChangeReason = 10
	SessionTerminate         SessionChangeReason = 11
)

func (r SessionChangeReason) String() string {
	switch r {
	case SessionConsoleConnect:
		return "console-connect"
	case SessionConsoleDisconnect:
		return "console-disconnect"
	case SessionRemoteConnect:
		return "remote-connect"
	case SessionRemoteDisconnect:
		return "remote-disconnect"
	case SessionLogon:
		return "logon"
	case SessionLogoff:
		return "logoff"
	case SessionLock:
		return "lock"
	case SessionUnlock:
		return "unlock"
	case SessionRemoteControl:
		return "remote-control"
	case SessionCreate:
		return "create"
	case SessionTerminate:
		return "terminate"
	}
	return fmt.Sprintf("session-reason(%d)", uint32(r))
}

// SessionChange is the payload of a ControlSessionChange notification.
type SessionChange struct {
	Reason    SessionChangeReason
	SessionID uint32
}

// SessionNotification is the copied WTSSESSION_NOTIFICATION record handed
// to DecodeControl for session change events.
type SessionNotification struct {
	Size      uint32
	SessionID uint32
}

// DecodeControl builds a typed ControlEvent from raw control callback
// parameters. It never fails: codes and event types outside the named sets
// are carried through unchanged so newer controllers keep working against
// this package.
//
// payload must already own its memory. The Windows control callback copies
// the controller's buffers into *PowerSetting or *SessionNotification
// before calling here; tests construct them directly.
func DecodeControl(code, eventType uint32, payload any) ControlEvent {
	ev := ControlEvent{Code: ControlCode(code), EventType: eventType}

	switch ev.Code {
	case ControlPowerEvent:
		pe := &PowerEvent{Event: PowerEventType(eventType)}
		if setting, ok := payload.(*PowerSetting); ok && pe.Event == PowerSettingChange {
			pe.Setting = setting
		}
		ev.Power = pe
	case ControlSessionChange:
		sc := &SessionChange{Reason: SessionChangeReason(eventType)}
		if n, ok := payload.(*SessionNotification); ok {
			sc.SessionID = n.SessionID
		}
		ev.Session = sc
	}
	return ev
}
