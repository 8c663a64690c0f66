//go:build !windows

package winsvc

// There is no service control manager off Windows. Every dispatch or
// registration attempt reports ErrNotService so callers can share the
// fall-back-to-interactive logic across platforms.

var sysRegisterHandler = func(name string, cookie uintptr) (uintptr, error) {
	return 0, ErrNotService
}

var sysSetServiceStatus = func(handle uintptr, w *wireStatus) error {
	return ErrNotService
}

func sysStartDispatcher(table []TableEntry) error {
	return ErrNotService
}
