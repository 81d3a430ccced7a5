// Package registry holds the addressable collection of mapping rules.
// Registration replaces whole rule snapshots copy-on-write, so concurrent
// readers always observe either the old or the new rule in full.
package registry

import (
	"errors"
	"sort"
	"sync"

	normalization "connector-hub/internal/normalization/domain"
)

// Registry is the shared index of registered mapping rules.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]*normalization.MappingRule
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]*normalization.MappingRule)}
}

// Register validates and stores an immutable snapshot of the rule.
// Re-registering the same identifier atomically supersedes the old rule;
// in-flight normalize calls keep the snapshot they already hold.
func (r *Registry) Register(rule normalization.MappingRule) error {
	if r == nil {
		return errors.New("registry: nil registry")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	snapshot := rule.Clone()
	r.mu.Lock()
	r.rules[snapshot.ID] = &snapshot
	r.mu.Unlock()
	return nil
}

// Get looks up a rule snapshot by identifier.
func (r *Registry) Get(id string) (*normalization.MappingRule, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	rule, ok := r.rules[id]
	r.mu.RUnlock()
	return rule, ok
}

// List returns all registered rules ordered by identifier.
func (r *Registry) List() []*normalization.MappingRule {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]*normalization.MappingRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}
