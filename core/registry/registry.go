// Package registry holds the resources served by the admin channel and
// resolves them by slug. It rejects resources whose slug or model is
// already claimed.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/anvil/core/resource"
)

// ErrNotFound is returned when no resource is registered under a slug.
var ErrNotFound = errors.New("resource not found")

// Registry maps slugs to resources. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// resources by slug
	bySlug map[string]*resource.Resource

	// models to slugs
	models map[string]string

	// registration order
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		bySlug: make(map[string]*resource.Resource),
		models: make(map[string]string),
	}
}

// Register adds res. It returns a *ConflictError when its slug or model
// is already registered.
func (r *Registry) Register(res *resource.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var conflicts []Conflict
	if existing, ok := r.bySlug[res.Slug()]; ok {
		conflicts = append(conflicts, Conflict{Kind: "slug", Key: res.Slug(), Existing: existing.Model(), Incoming: res.Model()})
	}
	if slug, ok := r.models[res.Model()]; ok {
		conflicts = append(conflicts, Conflict{Kind: "model", Key: res.Model(), Existing: slug, Incoming: res.Slug()})
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	r.bySlug[res.Slug()] = res
	r.models[res.Model()] = res.Slug()
	r.order = append(r.order, res.Slug())
	return nil
}

// RegisterAll registers each resource in turn and stops at the first
// failure.
func (r *Registry) RegisterAll(resources ...*resource.Resource) error {
	for _, res := range resources {
		if err := r.Register(res); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes the resource with slug.
func (r *Registry) Unregister(slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.bySlug[slug]
	if !ok {
		return fmt.Errorf("unregister %q: %w", slug, ErrNotFound)
	}

	delete(r.bySlug, slug)
	delete(r.models, res.Model())
	for i, s := range r.order {
		if s == slug {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the resource registered under slug.
func (r *Registry) Get(slug string) (*resource.Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.bySlug[slug]
	return res, ok
}

// ByModel returns the resource declared for model.
func (r *Registry) ByModel(model string) (*resource.Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slug, ok := r.models[model]
	if !ok {
		return nil, false
	}
	return r.bySlug[slug], true
}

// List returns the registered resources in registration order.
func (r *Registry) List() []*resource.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*resource.Resource, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.bySlug[slug])
	}
	return out
}

// Slugs returns the registered slugs sorted alphabetically.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.bySlug))
	for slug := range r.bySlug {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySlug)
}

// Conflict is one clash between a registered resource and a new one.
type Conflict struct {
	Kind     string // "slug" or "model"
	Key      string
	Existing string
	Incoming string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %q already claimed by %q (wanted by %q)", c.Kind, c.Key, c.Existing, c.Incoming)
}

// ConflictError reports every conflict found for a registration.
type ConflictError struct {
	Conflicts []Conflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	msgs := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		msgs[i] = c.String()
	}
	return fmt.Sprintf("resource conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}
