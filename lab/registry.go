package lab

import "sort"

// Registry is a per-role table of selectable factories keyed by short
// name. The default key is fixed at construction and must resolve for the
// lifetime of the registry; Merge may overwrite it but never remove it.
// Registries are shared state for one launcher run: written during the
// configuration-loading stages, read-only afterwards.
type Registry[F any] struct {
	role       string
	defaultKey string
	entries    map[string]F
}

// NewRegistry builds a registry from its initial contents. Construction is
// rejected with InvalidDefaultError if defaultKey is absent.
func NewRegistry[F any](role, defaultKey string, entries map[string]F) (*Registry[F], error) {
	if _, ok := entries[defaultKey]; !ok {
		return nil, &InvalidDefaultError{Role: role, Key: defaultKey}
	}
	cp := make(map[string]F, len(entries))
	for key, factory := range entries {
		cp[key] = factory
	}
	return &Registry[F]{role: role, defaultKey: defaultKey, entries: cp}, nil
}

// Resolve looks up a factory, failing with UnknownKeyError if absent.
func (r *Registry[F]) Resolve(key string) (F, error) {
	factory, ok := r.entries[key]
	if !ok {
		var zero F
		return zero, &UnknownKeyError{Role: r.role, Key: key}
	}
	return factory, nil
}

// Merge inserts or overwrites entries. Entries not named in update are
// untouched, so merging is additive.
func (r *Registry[F]) Merge(update map[string]F) {
	for key, factory := range update {
		r.entries[key] = factory
	}
}

// Has reports whether key resolves.
func (r *Registry[F]) Has(key string) bool {
	_, ok := r.entries[key]
	return ok
}

// DefaultKey returns the key validated at construction time.
func (r *Registry[F]) DefaultKey() string { return r.defaultKey }

// Keys returns all registered keys, sorted.
func (r *Registry[F]) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
