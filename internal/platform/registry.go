package platform

// Registry holds the closed set of configured adapters, one per platform.
// Built once at wiring time; lookups of an unmapped tag fail loudly.
type Registry struct {
	adapters map[Platform]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[Platform]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Platform()] = a
	}
	return &Registry{adapters: m}
}

// For returns the adapter for a platform tag, or UnknownPlatformError.
func (r *Registry) For(p Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, &UnknownPlatformError{Tag: string(p)}
	}
	return a, nil
}

// ForTag parses the tag and resolves the adapter in one step.
func (r *Registry) ForTag(tag string) (Adapter, error) {
	p, err := Parse(tag)
	if err != nil {
		return nil, err
	}
	return r.For(p)
}

// Platforms lists the configured platform tags.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.adapters))
	for _, p := range All() {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
