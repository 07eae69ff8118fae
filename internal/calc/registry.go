package calc

import "fmt"

// Registry maps calculator ids to instances. It is populated once at process
// start; after that, reads are safe for concurrent callers without locking.
type Registry struct {
	byID  map[string]Calculator
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]Calculator),
	}
}

// Register adds a calculator. Registering the same id twice is a programming
// error and returns ErrConflict; callers treat it as fatal at startup.
func (r *Registry) Register(c Calculator) error {
	id := c.Info().ID
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrConflict, id)
	}
	r.byID[id] = c
	r.order = append(r.order, id)
	return nil
}

// Get returns the calculator with the given id.
func (r *Registry) Get(id string) (Calculator, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// List returns metadata for all calculators in registration order, the order
// the UI presents them in.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.byID[id].Info())
	}
	return infos
}

// Len returns the number of registered calculators.
func (r *Registry) Len() int {
	return len(r.byID)
}

// DefaultRegistry builds the registry with all built-in calculators. It
// panics on duplicate ids since that can only happen from a coding mistake.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []Calculator{
		NewMTBFCalculator(),
		NewDuaneCalculator(),
		NewSampleSizeCalculator(),
		NewAvailabilityCalculator(),
	} {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}
