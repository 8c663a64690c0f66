package winsvc

// StatusHandle reports status for one registered service. It is a shared
// capability, not an exclusively owned resource: once RegisterHandler
// returns it, any goroutine may call Report, including the control handler
// itself.
//
// The handle stays valid from registration until the service's dispatch
// entry returns; deregistration happens at that point, never when the
// handle value is dropped, and the handle may be discarded early while the
// service keeps running. Reporting after the dispatch entry returned is
// outside the controller's contract and must be avoided by the caller —
// the type does not police it.
type StatusHandle struct {
	name string
	sys  uintptr
}

// Report submits one full status snapshot to the service control manager.
// Safe to call concurrently; every report is an independent complete
// record. Failures surface as *StatusReportError.
func (h *StatusHandle) Report(s Status) error {
	w, err := s.toWire()
	if err != nil {
		return &StatusReportError{Name: h.name, Err: err}
	}
	if err := sysSetServiceStatus(h.sys, &w); err != nil {
		return &StatusReportError{Name: h.name, Err: err}
	}
	return nil
}
