package winsvc

import "errors"

// Handler receives decoded control events for one registered service. The
// service control manager invokes it on a thread it owns and serializes
// invocations per service, so the closure may freely mutate captured state
// across calls. State it shares with other goroutines still needs the
// caller's own synchronization; the bridge only guarantees that no two
// control callbacks for the same service overlap.
type Handler func(ControlEvent) HandlerResult

// HandlerResult is the typed outcome of a control callback, mapped onto
// the controller's numeric acceptance codes.
type HandlerResult struct {
	code uint32
}

var (
	// ResultOK acknowledges the control, or grants permission for advance
	// notifications such as a suspend query.
	ResultOK = HandlerResult{0} // NO_ERROR

	// ResultNotHandled tells the controller the service does not implement
	// this control, letting it fall back to default processing.
	ResultNotHandled = HandlerResult{errorCallNotImplemented}
)

// ResultError reports a handled-with-error outcome carrying a Windows error
// code. Zero means success on the wire, so a zero code is coerced to
// ERROR_INVALID_FUNCTION to keep the report an error.
func ResultError(code uint32) HandlerResult {
	if code == 0 {
		code = errorInvalidFunction
	}
	return HandlerResult{code}
}

// resultToWire maps a handler result to the numeric code the raw control
// callback returns. NO_ERROR (0) means handled; ERROR_CALL_NOT_IMPLEMENTED
// (120) means not handled. Returning 0 for an unhandled control would claim
// success — the inversion this explicit mapping exists to rule out.
func resultToWire(r HandlerResult) uint32 {
	return r.code
}

// RegisterHandler installs h as the control handler for the named service
// and returns the status handle for it — the sole way to report status
// afterwards. Ownership of h moves into the process-wide registration
// table and is released when the service's dispatch entry returns.
//
// A duplicate name fails with ErrAlreadyRegistered. Any failure after the
// table slot was taken rolls the slot back before returning, so a failed
// registration leaves nothing behind.
func RegisterHandler(name string, h Handler) (*StatusHandle, error) {
	if name == "" {
		return nil, ErrEmptyServiceName
	}
	if h == nil {
		return nil, &RegistrationError{Name: name, Err: errors.New("nil handler")}
	}

	reg, err := registry.add(name, h)
	if err != nil {
		return nil, err
	}

	sys, err := sysRegisterHandler(name, reg.cookie)
	if err != nil {
		registry.remove(name)
		return nil, &RegistrationError{Name: name, Err: err}
	}

	reg.handle = &StatusHandle{name: name, sys: sys}
	return reg.handle, nil
}
