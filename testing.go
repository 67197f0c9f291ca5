package hxwire

import (
	"context"
	"fmt"
	"strings"
)

// Testable drives a component through real mount and update round trips.
// Every mutation goes through the snapshot codec exactly like a browser
// request would, so tests cover hydration and dehydration too.
//
//	tc, err := m.Test(ctx, "counter", nil)
//	if err := tc.Call("increment"); err != nil {
//	    t.Fatal(err)
//	}
//	if got := tc.Get("count"); got != 1 {
//	    t.Errorf("count = %v, want 1", got)
//	}
type Testable struct {
	m        *Manager
	ctx      context.Context
	html     string
	encoded  []byte
	snapshot *Snapshot
	comp     Component
	effects  Effects
	failures []error
}

// Test mounts name with params and returns a harness around it.
func (m *Manager) Test(ctx context.Context, name string, params Params) (*Testable, error) {
	res, err := m.Mount(ctx, name, params, "")
	if err != nil {
		return nil, err
	}
	if res.Snapshot == nil {
		return nil, fmt.Errorf("hxwire: mount of %q produced no snapshot", name)
	}
	return &Testable{
		m:        m,
		ctx:      ctx,
		html:     res.HTML,
		encoded:  res.Encoded,
		snapshot: res.Snapshot,
		comp:     res.Component,
		effects:  res.Effects,
	}, nil
}

// Update sends a full mutation batch.
func (t *Testable) Update(updates []PropertyUpdate, calls []MethodCall) error {
	res, err := t.m.Update(t.ctx, t.encoded, updates, calls)
	if err != nil {
		return err
	}
	t.html = res.HTML
	t.encoded = res.Encoded
	t.snapshot = res.Snapshot
	t.comp = res.Component
	t.effects = res.Effects
	t.failures = res.Failures
	return nil
}

// Set writes value to the property at path.
func (t *Testable) Set(path string, value any) error {
	return t.Update([]PropertyUpdate{{Path: path, Value: value}}, nil)
}

// Call invokes method with params.
func (t *Testable) Call(method string, params ...any) error {
	if params == nil {
		params = []any{}
	}
	return t.Update(nil, []MethodCall{{Method: method, Params: params}})
}

// Refresh re-renders without changes.
func (t *Testable) Refresh() error {
	return t.Call(methodRefresh)
}

// Get returns the value at a dotted property path, or nil when the path
// does not resolve.
func (t *Testable) Get(path string) any {
	v, err := readPath(structOf(t.comp), path)
	if err != nil || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

// HTML returns the last rendered markup.
func (t *Testable) HTML() string { return t.html }

// HTMLContains reports whether the last render contains substr.
func (t *Testable) HTMLContains(substr string) bool {
	return strings.Contains(t.html, substr)
}

// Snapshot returns the last snapshot.
func (t *Testable) Snapshot() *Snapshot { return t.snapshot }

// Encoded returns the last snapshot in transport form.
func (t *Testable) Encoded() []byte { return t.encoded }

// Component returns the instance hydrated by the last round trip.
func (t *Testable) Component() Component { return t.comp }

// Errors returns memo.errors of the last snapshot.
func (t *Testable) Errors() map[string]string {
	out := make(map[string]string, len(t.snapshot.Memo.Errors))
	for k, v := range t.snapshot.Memo.Errors {
		out[k] = v
	}
	return out
}

// HasError reports whether field has an error in the last snapshot.
func (t *Testable) HasError(field string) bool {
	_, ok := t.snapshot.Memo.Errors[field]
	return ok
}

// Effects returns the effects of the last round trip.
func (t *Testable) Effects() Effects { return t.effects }

// Failures returns the per-mutation failures of the last update.
func (t *Testable) Failures() []error { return t.failures }
