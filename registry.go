package winsvc

import "sync"

// registration is one service's slot in the process-wide table.
type registration struct {
	name    string
	handler Handler
	cookie  uintptr
	handle  *StatusHandle
}

// serviceRegistry keys every service hosted by this process by name. The
// integer cookie stands in for a Go pointer on the controller's callback
// context parameter, so no Go memory crosses the callback boundary.
type serviceRegistry struct {
	mu         sync.Mutex
	byName     map[string]*registration
	byCookie   map[uintptr]*registration
	entries    map[string]EntryFunc
	nextCookie uintptr
}

func newServiceRegistry() *serviceRegistry {
	return &serviceRegistry{
		byName:   make(map[string]*registration),
		byCookie: make(map[uintptr]*registration),
		entries:  make(map[string]EntryFunc),
	}
}

var registry = newServiceRegistry()

func (r *serviceRegistry) add(name string, h Handler) (*registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return nil, ErrAlreadyRegistered
	}
	r.nextCookie++
	reg := &registration{name: name, handler: h, cookie: r.nextCookie}
	r.byName[name] = reg
	r.byCookie[reg.cookie] = reg
	return reg, nil
}

func (r *serviceRegistry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.byName[name]; ok {
		delete(r.byCookie, reg.cookie)
		delete(r.byName, name)
	}
}

func (r *serviceRegistry) lookup(cookie uintptr) *registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byCookie[cookie]
}

// count reports outstanding handler registrations. Test seam for the
// no-leak-on-failed-registration contract.
func (r *serviceRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}

func (r *serviceRegistry) setEntries(table []TableEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(table))
	for _, te := range table {
		if te.Name == "" {
			return ErrEmptyServiceName
		}
		if seen[te.Name] || r.entries[te.Name] != nil {
			return ErrAlreadyRegistered
		}
		seen[te.Name] = true
	}
	for _, te := range table {
		r.entries[te.Name] = te.Entry
	}
	return nil
}

func (r *serviceRegistry) clearEntries() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]EntryFunc)
}

func (r *serviceRegistry) entry(name string) EntryFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[name]
}
