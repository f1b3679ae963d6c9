package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/platinummonkey/activitylens/pkg/activity"
)

// ErrUnknownEntityType is returned (or wrapped) by fetchers asked for a type they do not serve.
var ErrUnknownEntityType = errors.New("unknown entity type")

// FetchFunc loads the entities with the given identifiers. Identifiers that do not exist are
// omitted from the result.
type FetchFunc func(ctx context.Context, ids []string) (map[string]activity.Entity, error)

// Descriptor declares how one entity type is fetched and labelled.
type Descriptor struct {
	Fetch FetchFunc

	// LabelField is the entity field used as display label when no label attribute is
	// configured for the type.
	LabelField string

	// FailHard makes fetch errors for this type abort resolution.
	FailHard bool
}

// FetchError reports a failed bulk fetch.
type FetchError struct {
	EntityType string
	IDs        int
	Hard       bool
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %d %s entities: %v", e.IDs, e.EntityType, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Registry maps type tags to descriptors. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]Descriptor)}
}

// Register adds or replaces the descriptor for entityType.
func (r *Registry) Register(entityType string, d Descriptor) error {
	if entityType == "" {
		return errors.New("entity type is required")
	}
	if d.Fetch == nil {
		return fmt.Errorf("descriptor for %s has no fetch function", entityType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[entityType] = d
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(entityType string, d Descriptor) {
	if err := r.Register(entityType, d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered for entityType.
func (r *Registry) Lookup(entityType string) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[entityType]
	return d, ok
}

// LabelField returns the label field declared for entityType.
func (r *Registry) LabelField(entityType string) (string, bool) {
	d, ok := r.Lookup(entityType)
	if !ok || d.LabelField == "" {
		return "", false
	}
	return d.LabelField, true
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.descriptors))
	for t := range r.descriptors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// StoreFetch adapts an EntityStore to a FetchFunc for one entity type.
func StoreFetch(store activity.EntityStore, entityType string) FetchFunc {
	return func(ctx context.Context, ids []string) (map[string]activity.Entity, error) {
		return store.FetchByIDs(ctx, entityType, ids)
	}
}

// FetchByIDs implements activity.EntityStore over the registry, so a registry can stand in
// wherever a single store is expected.
func (r *Registry) FetchByIDs(ctx context.Context, entityType string, ids []string) (map[string]activity.Entity, error) {
	d, ok := r.Lookup(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}
	return d.Fetch(ctx, ids)
}
