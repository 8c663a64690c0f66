package winsvc

import "errors"

// EntryFunc is a service entry point. The service control manager invokes
// it on a thread it owns, passing the arguments from the start request
// (args[0] is the service name). The entry must register a control handler
// and report StartPending promptly, and should not return until the
// service has reported Stopped.
type EntryFunc func(args []string)

// TableEntry pairs a service name with its entry point for processes
// hosting more than one service.
type TableEntry struct {
	Name  string
	Entry EntryFunc
}

// Run connects the process to the service control manager and blocks the
// calling thread until the controller releases the dispatch loop, i.e. for
// the lifetime of the process as a service. entry runs on a
// controller-spawned thread.
//
// When the process was not started by the controller, Run fails fast with
// ErrNotService before blocking — distinguishable from registration
// failures so callers can fall back to running interactively.
func Run(name string, entry EntryFunc) error {
	return RunAll([]TableEntry{{Name: name, Entry: entry}})
}

// RunAll is Run for processes hosting several services: every entry is
// handed to the controller's dispatch table and the call blocks until the
// controller releases all of them.
func RunAll(table []TableEntry) error {
	if len(table) == 0 {
		return errors.New("winsvc: empty dispatch table")
	}
	if err := registry.setEntries(table); err != nil {
		return err
	}
	defer registry.clearEntries()
	return sysStartDispatcher(table)
}
