package hxwire

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/pthm/hxwire/lib/idgen"
)

// Factory constructs a fresh, zero-state component instance.
type Factory func() Component

// Resolver maps an unregistered name to a factory. It returns nil when it
// does not know the name.
type Resolver func(name string) Factory

// Registry maps component names to factories.
//
// Registration belongs to startup; lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	resolvers []Resolver
	newID     idgen.Generator
}

// NewRegistry creates an empty registry that assigns ids from gen.
// A nil gen uses idgen.Default.
func NewRegistry(gen idgen.Generator) *Registry {
	if gen == nil {
		gen = idgen.Default
	}
	return &Registry{
		factories: make(map[string]Factory),
		newID:     gen,
	}
}

// Register binds name to factory. A later registration for the same name
// replaces the earlier one. Panics on a nil factory or empty name.
func (reg *Registry) Register(name string, factory Factory) {
	if name == "" {
		panic("hxwire: component name must not be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("hxwire: nil factory for %q", name))
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.factories[name] = factory
}

// AddFallbackResolver appends a resolver consulted for names without a
// direct registration. Resolvers are tried in the order they were added.
func (reg *Registry) AddFallbackResolver(r Resolver) {
	if r == nil {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.resolvers = append(reg.resolvers, r)
}

// Resolve returns the factory bound to name, falling back to the resolver
// chain. Returns ErrComponentNotFound when nothing knows the name.
func (reg *Registry) Resolve(name string) (Factory, error) {
	reg.mu.RLock()
	f, ok := reg.factories[name]
	resolvers := reg.resolvers
	reg.mu.RUnlock()

	if ok {
		return f, nil
	}
	for _, r := range resolvers {
		if f := r(name); f != nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, name)
}

// Instantiate resolves name and constructs an instance carrying id. An empty
// id is replaced by a fresh one. No lifecycle hooks run.
func (reg *Registry) Instantiate(name, id string) (Component, error) {
	f, err := reg.Resolve(name)
	if err != nil {
		return nil, err
	}

	c := f()
	if c == nil {
		return nil, fmt.Errorf("hxwire: factory for %q returned nil", name)
	}
	v := reflect.ValueOf(c)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hxwire: component %q must be a pointer to a struct, got %T", name, c)
	}
	propertiesOf(v.Elem().Type())

	if id == "" {
		id = reg.newID()
	}
	b := c.base()
	b.id = id
	b.name = name
	return c, nil
}

// Names returns the directly registered names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	names := make([]string, 0, len(reg.factories))
	for n := range reg.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FactoryOf returns a Factory producing a zero value of T.
//
//	m.Component("counter", hxwire.FactoryOf[Counter]())
func FactoryOf[T any, PT interface {
	*T
	Component
}]() Factory {
	return func() Component {
		return PT(new(T))
	}
}
