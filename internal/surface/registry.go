package surface

// Registry owns the set of live surfaces. It is a process-wide structure
// with a single-threaded access contract: only the compositor loop
// goroutine may call it, and background readers go through snapshots taken
// on that goroutine. Constructed explicitly at compositor startup.
type Registry struct {
	surfaces map[uint64]*Surface
	nextID   uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{surfaces: make(map[uint64]*Surface)}
}

// New creates a surface owned by the given client and registers it under a
// fresh unique id. Never fails.
func (r *Registry) New(clientID uint64) *Surface {
	r.nextID++
	s := &Surface{id: r.nextID, clientID: clientID}
	r.surfaces[s.id] = s
	return s
}

// Get returns the surface with the given id.
func (r *Registry) Get(id uint64) (*Surface, bool) {
	s, ok := r.surfaces[id]
	return s, ok
}

// Alive reports whether id names a registered surface. Focus tracking
// holds ids, not pointers, and checks liveness here before dispatching.
func (r *Registry) Alive(id uint64) bool {
	_, ok := r.surfaces[id]
	return ok
}

// Remove unregisters the surface. Removing an unknown id is a no-op:
// explicit destroy and client disconnect can race, so destruction must be
// idempotent.
func (r *Registry) Remove(id uint64) {
	delete(r.surfaces, id)
}

// ForClient returns all surfaces owned by the given client, for
// disconnect teardown.
func (r *Registry) ForClient(clientID uint64) []*Surface {
	var out []*Surface
	for _, s := range r.surfaces {
		if s.clientID == clientID {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of live surfaces.
func (r *Registry) Len() int {
	return len(r.surfaces)
}
