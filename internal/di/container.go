// Package di provides a small typed service container used to wire modules.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves services by name.
type ServiceRegistry interface {
	Get(name string) any
	Has(name string) bool
}

// Container is a ServiceRegistry that also accepts registrations.
type Container interface {
	ServiceRegistry
	Register(name string, service any)
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

// Factory entries are built on first Get and cached, so every service is a
// process-wide singleton.
type entry struct {
	once    sync.Once
	factory func(ServiceRegistry) any
	value   any
}

type container struct {
	entries map[string]*entry
	mu      sync.RWMutex
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		entries: make(map[string]*entry),
	}
}

// Register stores an already-built service.
func (c *container) Register(name string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{value: service}
	e.once.Do(func() {})
	c.entries[name] = e
}

// RegisterFactory stores a lazily-built service.
func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[name] = &entry{factory: factory}
}

// Get resolves a service, building it on first access. Panics on unknown names.
func (c *container) Get(name string) any {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()

	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	e.once.Do(func() {
		e.value = e.factory(c)
	})
	return e.value
}

// Has reports whether a service is registered.
func (c *container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}
