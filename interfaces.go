package hxwire

import (
	"context"

	"github.com/a-h/templ"
)

// Params holds the initial values passed to Mount. Keys matching a public
// property are assigned before Mount runs; the rest are available to the
// Mounter.
type Params map[string]any

// Actions maps a client-callable method name to its Go function.
//
// Functions may take an optional leading context.Context followed by any
// number of hydratable arguments, and return nothing or a single error.
type Actions map[string]any

// Booter is implemented by components that need setup on every request,
// before either Mount or Hydrate.
type Booter interface {
	Boot(ctx context.Context) error
}

// Mounter is implemented by components to initialize state on first render.
// Mount runs once per component lifetime, never on updates.
//
//	func (c *Profile) Mount(ctx context.Context, p hxwire.Params) error {
//	    c.User = c.users.Get(p["id"].(string))
//	    return nil
//	}
type Mounter interface {
	Mount(ctx context.Context, params Params) error
}

// Hydrater is implemented by components to reconstruct runtime fields after
// the public state was restored from a snapshot. Mount logic never runs on
// this path.
type Hydrater interface {
	Hydrate(ctx context.Context) error
}

// Dehydrater is implemented by components to run logic right before their
// state is captured into a snapshot.
type Dehydrater interface {
	Dehydrate(ctx context.Context) error
}

// Renderer is implemented by components to produce templ output.
//
// Render should be pure: it reads public state and produces markup. Child
// components are mounted from the template through Manager.Child.
type Renderer interface {
	Render(ctx context.Context) templ.Component
}

// Updater is implemented by components that observe property writes.
// Updating may veto a write by returning an error; Updated runs after the
// value was assigned.
type Updater interface {
	Updating(ctx context.Context, path string, value any) error
	Updated(ctx context.Context, path string, value any) error
}

// Actioner exposes a component's callable methods. The hxwire generator
// produces Actions() from //hxwire:action directives.
type Actioner interface {
	Actions() Actions
}
