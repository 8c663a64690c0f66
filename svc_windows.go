//go:build windows

package winsvc

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// The two callbacks are created once per process: windows.NewCallback
// allocates from a small fixed pool and the pointers are never released.
var (
	callbackOnce   sync.Once
	serviceMainPtr uintptr
	ctrlHandlerPtr uintptr
)

func callbacks() (main, handler uintptr) {
	callbackOnce.Do(func() {
		serviceMainPtr = windows.NewCallback(serviceMain)
		ctrlHandlerPtr = windows.NewCallback(ctrlHandler)
	})
	return serviceMainPtr, ctrlHandlerPtr
}

var sysRegisterHandler = func(name string, cookie uintptr) (uintptr, error) {
	_, handler := callbacks()
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	h, err := windows.RegisterServiceCtrlHandlerEx(namep, handler, cookie)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

var sysSetServiceStatus = func(handle uintptr, w *wireStatus) error {
	st := windows.SERVICE_STATUS{
		ServiceType:             w.ServiceType,
		CurrentState:            w.CurrentState,
		ControlsAccepted:        w.ControlsAccepted,
		Win32ExitCode:           w.Win32ExitCode,
		ServiceSpecificExitCode: w.ServiceSpecificExitCode,
		CheckPoint:              w.CheckPoint,
		WaitHint:                w.WaitHint,
	}
	return windows.SetServiceStatus(windows.Handle(handle), &st)
}

func sysStartDispatcher(table []TableEntry) error {
	main, _ := callbacks()

	// Trailing zeroed entry is the terminator the controller requires.
	entries := make([]windows.SERVICE_TABLE_ENTRY, len(table)+1)
	for i, te := range table {
		namep, err := windows.UTF16PtrFromString(te.Name)
		if err != nil {
			return &RegistrationError{Name: te.Name, Err: err}
		}
		entries[i] = windows.SERVICE_TABLE_ENTRY{
			ServiceName: namep,
			ServiceProc: main,
		}
	}

	err := windows.StartServiceCtrlDispatcher(&entries[0])
	if err == windows.ERROR_FAILED_SERVICE_CONTROLLER_CONNECT {
		return ErrNotService
	}
	return err
}

// serviceMain runs on a controller-spawned thread, one per started service.
// Its return is the service's deregistration point: the handler installed
// by the entry is released here, exactly once.
func serviceMain(argc uint32, argv **uint16) uintptr {
	var args []string
	if argv != nil && argc > 0 {
		ptrs := unsafe.Slice(argv, argc)
		args = make([]string, 0, argc)
		for _, p := range ptrs {
			args = append(args, windows.UTF16PtrToString(p))
		}
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	entry := registry.entry(name)
	if entry == nil {
		return 0
	}

	entry(args)
	registry.remove(name)
	return 0
}

// ctrlHandler runs on a controller-owned thread, serialized per service.
// The context parameter is the registry cookie issued at registration.
func ctrlHandler(control, eventType uint32, eventData, context uintptr) uintptr {
	reg := registry.lookup(context)
	if reg == nil {
		return errorCallNotImplemented
	}

	ev := DecodeControl(control, eventType, copyEventPayload(control, eventType, eventData))
	return uintptr(resultToWire(reg.handler(ev)))
}

// powerBroadcastSetting mirrors POWERBROADCAST_SETTING.
type powerBroadcastSetting struct {
	PowerSetting GUID
	DataLength   uint32
	Data         [1]byte
}

// wtsSessionNotification mirrors WTSSESSION_NOTIFICATION.
type wtsSessionNotification struct {
	Size      uint32
	SessionID uint32
}

// copyEventPayload deep-copies the notification payload while the raw
// pointer is still valid. The controller owns eventData only for the
// duration of the callback; nothing here retains it.
func copyEventPayload(control, eventType uint32, eventData uintptr) any {
	switch ControlCode(control) {
	case ControlPowerEvent:
		if PowerEventType(eventType) != PowerSettingChange || eventData == 0 {
			return nil
		}
		raw := (*powerBroadcastSetting)(unsafe.Pointer(eventData))
		setting := &PowerSetting{GUID: raw.PowerSetting}
		if raw.DataLength > 0 {
			setting.Data = append([]byte(nil), unsafe.Slice(&raw.Data[0], raw.DataLength)...)
		}
		return setting
	case ControlSessionChange:
		if eventData == 0 {
			return nil
		}
		raw := (*wtsSessionNotification)(unsafe.Pointer(eventData))
		return &SessionNotification{Size: raw.Size, SessionID: raw.SessionID}
	}
	return nil
}
