package hxwire

import (
	"testing"

	"github.com/pthm/hxwire/lib/idgen"
)

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(idgen.Sequence("r"))
	reg.Register("counter", FactoryOf[counter]())

	if _, err := reg.Resolve("counter"); err != nil {
		t.Fatalf("Resolve(counter) error = %v", err)
	}

	_, err := reg.Resolve("missing")
	if !IsNotFound(err) {
		t.Fatalf("Resolve(missing) = %v, want ErrComponentNotFound", err)
	}
}

func TestRegistryFallbackResolvers(t *testing.T) {
	reg := NewRegistry(idgen.Sequence("r"))

	var consulted []string
	reg.AddFallbackResolver(func(name string) Factory {
		consulted = append(consulted, "first:"+name)
		return nil
	})
	reg.AddFallbackResolver(func(name string) Factory {
		consulted = append(consulted, "second:"+name)
		if name == "dynamic" {
			return FactoryOf[recorder]()
		}
		return nil
	})

	c, err := reg.Instantiate("dynamic", "")
	if err != nil {
		t.Fatalf("Instantiate(dynamic) error = %v", err)
	}
	if _, ok := c.(*recorder); !ok {
		t.Errorf("Instantiate(dynamic) = %T, want *recorder", c)
	}
	if len(consulted) != 2 || consulted[0] != "first:dynamic" || consulted[1] != "second:dynamic" {
		t.Errorf("resolvers consulted = %v, want first then second", consulted)
	}

	if _, err := reg.Resolve("nobody"); !IsNotFound(err) {
		t.Errorf("Resolve(nobody) = %v, want ErrComponentNotFound", err)
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	reg := NewRegistry(idgen.Sequence("r"))
	reg.Register("thing", FactoryOf[counter]())
	reg.Register("thing", FactoryOf[recorder]())

	c, err := reg.Instantiate("thing", "")
	if err != nil {
		t.Fatalf("Instantiate error = %v", err)
	}
	if _, ok := c.(*recorder); !ok {
		t.Errorf("Instantiate(thing) = %T, want *recorder", c)
	}
}

func TestRegistryInstantiateIdentity(t *testing.T) {
	reg := NewRegistry(idgen.Sequence("r"))
	reg.Register("counter", FactoryOf[counter]())

	fresh, err := reg.Instantiate("counter", "")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.base().ID() != "r1" {
		t.Errorf("ID() = %q, want generated r1", fresh.base().ID())
	}
	if fresh.base().Name() != "counter" {
		t.Errorf("Name() = %q, want counter", fresh.base().Name())
	}

	kept, err := reg.Instantiate("counter", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if kept.base().ID() != "abc" {
		t.Errorf("ID() = %q, want abc", kept.base().ID())
	}

	// Construction never runs lifecycle logic
	if kept.(*counter).booted != 0 {
		t.Error("Instantiate should not boot the component")
	}
}

func TestRegistryPanicsOnBadRegistration(t *testing.T) {
	tests := []struct {
		name    string
		regName string
		factory Factory
	}{
		{"empty name", "", FactoryOf[counter]()},
		{"nil factory", "x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewRegistry(nil).Register(tt.regName, tt.factory)
		})
	}
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("b", FactoryOf[counter]())
	reg.Register("a", FactoryOf[recorder]())

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}
