package hxwire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// PropertyUpdate is a client write to a dotted property path.
type PropertyUpdate struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// MethodCall is a client call of a component method.
type MethodCall struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// MountResult is the outcome of mounting a component.
type MountResult struct {
	HTML      string
	Snapshot  *Snapshot
	Encoded   []byte
	Component Component
	Effects   Effects
}

// UpdateResult is the outcome of applying a mutation batch. Failures lists
// the per-mutation errors that were recorded in the snapshot's memo.errors
// instead of failing the request.
type UpdateResult struct {
	HTML      string
	Snapshot  *Snapshot
	Encoded   []byte
	Component Component
	Effects   Effects
	Failures  []error
}

// Magic methods available on every component.
const (
	methodRefresh = "$refresh"
	methodSet     = "$set"
	methodToggle  = "$toggle"

	// callErrorKey holds the memo.errors entry for a rejected method call.
	callErrorKey = "$call"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Mount creates a component, runs boot and mount logic, renders it and
// captures its first snapshot. params matching public properties become
// their initial values. key identifies the component among its parent's
// children.
func (m *Manager) Mount(ctx context.Context, name string, params Params, key string) (*MountResult, error) {
	ctx, sc := withScope(ctx)
	inv := &Invocation{
		Phase:   PhaseMount,
		Name:    name,
		Key:     key,
		Params:  params,
		Request: sc.request,
	}

	if err := m.pipeline.Then(m.mount)(ctx, inv); err != nil {
		return nil, err
	}

	res := &MountResult{
		HTML:      inv.HTML,
		Snapshot:  inv.Snapshot,
		Component: inv.Component,
	}
	switch {
	case inv.encoded != nil:
		res.Encoded = inv.encoded
	case inv.Snapshot != nil:
		encoded, err := m.snapshots.Marshal(inv.Snapshot)
		if err != nil {
			return nil, err
		}
		res.Encoded = encoded
	}
	if inv.Component != nil {
		res.Effects = inv.Component.base().takeEffects()
	}
	return res, nil
}

func (m *Manager) mount(ctx context.Context, inv *Invocation) error {
	c, err := m.registry.Instantiate(inv.Name, "")
	if err != nil {
		return err
	}
	inv.Component = c

	cc := &ComponentContext{
		Component: c,
		Mounting:  true,
		Memo: Memo{
			Path:   inv.Request.Path,
			Method: inv.Request.Method,
			Locale: m.localeFor(inv.Request),
		},
	}

	if err := m.boot(ctx, cc); err != nil {
		return err
	}
	if err := m.applyParams(c, inv.Params); err != nil {
		return err
	}
	if mt, ok := c.(Mounter); ok {
		if err := mt.Mount(ctx, inv.Params); err != nil {
			return fmt.Errorf("hxwire: mount %s: %w", inv.Name, err)
		}
	}
	if err := m.hooks.fire(ctx, &HookEvent{Point: HookMount, Component: c, Params: inv.Params, Context: cc}); err != nil {
		return err
	}

	markup, err := m.renderPhase(ctx, cc)
	if err != nil {
		return err
	}
	snap, err := m.dehydratePhase(ctx, cc)
	if err != nil {
		return err
	}
	encoded, err := m.snapshots.Marshal(snap)
	if err != nil {
		return err
	}

	inv.Snapshot = snap
	inv.encoded = encoded
	inv.HTML = insertAttributes(markup, c.base().id, string(encoded))

	m.logger.Debug("mounted component",
		"name", inv.Name,
		"id", c.base().id,
		"key", inv.Key,
		"depth", Depth(ctx),
	)
	return nil
}

// FromSnapshot decodes raw, verifies it and hydrates the component it
// describes. Mount logic does not run; Booter and Hydrater do.
func (m *Manager) FromSnapshot(ctx context.Context, raw []byte) (Component, error) {
	ctx, sc := withScope(ctx)
	cc, err := m.fromSnapshot(ctx, sc, raw)
	if err != nil {
		return nil, err
	}
	return cc.Component, nil
}

func (m *Manager) fromSnapshot(ctx context.Context, sc *scope, raw []byte) (*ComponentContext, error) {
	snap, err := m.snapshots.Decode(raw)
	if err != nil {
		m.logger.Warn("rejected snapshot", "error", err)
		return nil, err
	}
	if sc.original == nil {
		sc.original = &snap.Memo
	}

	inv := &Invocation{
		Phase:    PhaseHydrate,
		Name:     snap.Memo.Name,
		Snapshot: snap,
		Request:  sc.request,
	}

	var cc *ComponentContext
	err = m.pipeline.Then(func(ctx context.Context, inv *Invocation) error {
		c, err := m.snapshots.HydrateInstance(inv.Snapshot)
		if err != nil {
			return err
		}
		inv.Component = c
		cc = hydratedContext(c, inv.Snapshot)

		if err := m.boot(ctx, cc); err != nil {
			return err
		}
		if h, ok := c.(Hydrater); ok {
			if err := h.Hydrate(ctx); err != nil {
				return fmt.Errorf("hxwire: hydrate %s: %w", inv.Name, err)
			}
		}
		if err := m.hooks.fire(ctx, &HookEvent{Point: HookHydrate, Component: c, Context: cc}); err != nil {
			return err
		}
		return nil
	})(ctx, inv)
	if err != nil {
		return nil, err
	}
	if cc == nil {
		// A middleware answered the phase itself.
		if inv.Component == nil {
			return nil, fmt.Errorf("hxwire: hydrate %s: phase produced no component", snap.Memo.Name)
		}
		if inv.Snapshot == nil {
			inv.Snapshot = snap
		}
		cc = hydratedContext(inv.Component, inv.Snapshot)
	}
	cc.state = StateHydrated
	return cc, nil
}

func hydratedContext(c Component, snap *Snapshot) *ComponentContext {
	previous := make(map[string]ChildRef, len(snap.Memo.Children))
	for _, ref := range snap.Memo.Children {
		previous[ref.Key] = ref
	}
	return &ComponentContext{
		Component: c,
		Memo:      snap.Memo,
		previous:  previous,
	}
}

// Update hydrates the snapshot in raw, applies every property write, then
// every method call in order, re-renders and returns the new snapshot.
//
// Per-mutation failures are recorded in memo.errors and returned in
// UpdateResult.Failures. An invalid method call stops the remaining calls;
// writes and errors collected so far are kept. Structural failures such as
// a tampered snapshot abort the whole update.
func (m *Manager) Update(ctx context.Context, raw []byte, updates []PropertyUpdate, calls []MethodCall) (*UpdateResult, error) {
	ctx, sc := withScope(ctx)
	inv := &Invocation{
		Phase:   PhaseUpdate,
		Request: sc.request,
	}

	var res *UpdateResult
	err := m.pipeline.Then(func(ctx context.Context, inv *Invocation) error {
		r, err := m.update(ctx, sc, raw, updates, calls)
		if err != nil {
			return err
		}
		res = r
		inv.Name = r.Component.base().name
		inv.Component = r.Component
		inv.HTML = r.HTML
		inv.Snapshot = r.Snapshot
		return nil
	})(ctx, inv)
	if err != nil {
		return nil, err
	}

	if res != nil {
		res.HTML = inv.HTML
		return res, nil
	}

	// A middleware answered without running the update.
	res = &UpdateResult{
		HTML:      inv.HTML,
		Snapshot:  inv.Snapshot,
		Component: inv.Component,
	}
	if inv.Snapshot != nil {
		if res.Encoded, err = m.snapshots.Marshal(inv.Snapshot); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (m *Manager) update(ctx context.Context, sc *scope, raw []byte, updates []PropertyUpdate, calls []MethodCall) (*UpdateResult, error) {
	cc, err := m.fromSnapshot(ctx, sc, raw)
	if err != nil {
		return nil, err
	}
	c := cc.Component
	b := c.base()

	var failures []error
	for _, u := range updates {
		err := m.updateProperty(ctx, cc, u.Path, u.Value)
		if err == nil {
			b.clearErrors(u.Path)
			continue
		}
		if !m.collect(b, u.Path, err) {
			return nil, err
		}
		failures = append(failures, err)
	}
	cc.state = StateUpdated

	if len(calls) > 0 {
		b.ResetErrors(callErrorKey)
	}
	for i, call := range calls {
		err := m.call(ctx, cc, i, call)
		if err == nil {
			continue
		}

		var mce *MethodCallError
		if errors.As(err, &mce) {
			b.AddError(callErrorKey, mce.Error())
			failures = append(failures, err)
			m.logger.Warn("method call rejected",
				"name", b.name,
				"id", b.id,
				"method", mce.Method,
				"index", mce.Index,
				"skipped", len(calls)-i-1,
			)
			break
		}
		if !m.collect(b, callErrorKey, err) {
			return nil, err
		}
		failures = append(failures, err)
	}

	markup, err := m.renderPhase(ctx, cc)
	if err != nil {
		return nil, err
	}
	snap, err := m.dehydratePhase(ctx, cc)
	if err != nil {
		return nil, err
	}
	encoded, err := m.snapshots.Marshal(snap)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("updated component",
		"name", b.name,
		"id", b.id,
		"updates", len(updates),
		"calls", len(calls),
		"failures", len(failures),
	)

	return &UpdateResult{
		HTML:      insertAttributes(markup, b.id, string(encoded)),
		Snapshot:  snap,
		Encoded:   encoded,
		Component: c,
		Effects:   b.takeEffects(),
		Failures:  failures,
	}, nil
}

// collect records a per-mutation failure in the error bag. It reports
// false for errors that must fail the request.
func (m *Manager) collect(b *Base, field string, err error) bool {
	var verrs ValidationErrors
	var ppe *PropertyPathError
	switch {
	case errors.As(err, &verrs):
		for f, msg := range verrs {
			b.AddError(f, msg)
		}
	case errors.As(err, &ppe):
		b.AddError(ppe.Path, ppe.Reason)
	default:
		return false
	}
	m.logger.Warn("mutation failed", "name", b.name, "id", b.id, "field", field, "error", err)
	return true
}

// UpdateProperty assigns value to the property at path on c, firing the
// update and updated hooks. path is dotted: "user.address.city",
// "items.2", "tags.label".
func (m *Manager) UpdateProperty(ctx context.Context, c Component, path string, value any) error {
	ctx, _ = withScope(ctx)
	return m.updateProperty(ctx, &ComponentContext{Component: c}, path, value)
}

func (m *Manager) updateProperty(ctx context.Context, cc *ComponentContext, path string, value any) error {
	c := cc.Component
	v := structOf(c)

	root, _, _ := strings.Cut(path, ".")
	if _, ok := lookupProperty(v.Type(), root); !ok {
		return &PropertyPathError{Path: path, Reason: fmt.Sprintf("no public property %q", root)}
	}

	if err := m.hooks.fire(ctx, &HookEvent{Point: HookUpdate, Component: c, Path: path, Value: value, Context: cc}); err != nil {
		return err
	}
	u, observes := c.(Updater)
	if observes {
		if err := u.Updating(ctx, path, value); err != nil {
			return err
		}
	}

	if err := m.assignPath(v, strings.Split(path, "."), path, value); err != nil {
		return err
	}

	if observes {
		if err := u.Updated(ctx, path, value); err != nil {
			return err
		}
	}
	return m.hooks.fire(ctx, &HookEvent{Point: HookUpdated, Component: c, Path: path, Value: value, Context: cc})
}

// assignPath walks segs below v and assigns value at the end. v must be
// settable. Intermediate maps and interfaces are copied, modified and
// stored back; nil pointers, nil maps and appended slice elements are only
// stored once the whole path succeeded.
func (m *Manager) assignPath(v reflect.Value, segs []string, path string, value any) error {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			nv := reflect.New(v.Type().Elem())
			if err := m.assignPath(nv.Elem(), segs, path, value); err != nil {
				return err
			}
			v.Set(nv)
			return nil
		}
		return m.assignPath(v.Elem(), segs, path, value)
	case reflect.Interface:
		if v.IsNil() {
			return &PropertyPathError{Path: path, Reason: "cannot descend into nil"}
		}
		cp := reflect.New(v.Elem().Type()).Elem()
		cp.Set(v.Elem())
		if err := m.assignPath(cp, segs, path, value); err != nil {
			return err
		}
		v.Set(cp)
		return nil
	}

	seg := segs[0]
	if seg == "" {
		return &PropertyPathError{Path: path, Reason: "empty segment"}
	}
	last := len(segs) == 1

	switch v.Kind() {
	case reflect.Struct:
		p, ok := lookupProperty(v.Type(), seg)
		if !ok {
			return &PropertyPathError{Path: path, Reason: fmt.Sprintf("%s has no property %q", v.Type(), seg)}
		}
		field := v.Field(p.index)
		if last {
			return m.assignLeaf(field, value)
		}
		return m.assignPath(field, segs[1:], path, value)

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return &PropertyPathError{Path: path, Reason: fmt.Sprintf("%s is not keyed by string", v.Type())}
		}
		key := reflect.ValueOf(seg).Convert(v.Type().Key())
		elem := reflect.New(v.Type().Elem()).Elem()
		if last {
			if err := m.assignLeaf(elem, value); err != nil {
				return err
			}
		} else {
			if !v.IsNil() {
				if cur := v.MapIndex(key); cur.IsValid() {
					elem.Set(cur)
				}
			}
			if err := m.assignPath(elem, segs[1:], path, value); err != nil {
				return err
			}
		}
		if v.IsNil() {
			v.Set(reflect.MakeMap(v.Type()))
		}
		v.SetMapIndex(key, elem)
		return nil

	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 {
			return &PropertyPathError{Path: path, Reason: fmt.Sprintf("%q is not an index", seg)}
		}
		target, grown := v, false
		switch {
		case idx < v.Len():
		case idx == v.Len() && v.Kind() == reflect.Slice:
			target, grown = reflect.Append(v, reflect.Zero(v.Type().Elem())), true
		default:
			return &PropertyPathError{Path: path, Reason: fmt.Sprintf("index %d out of range", idx)}
		}
		if last {
			err = m.assignLeaf(target.Index(idx), value)
		} else {
			err = m.assignPath(target.Index(idx), segs[1:], path, value)
		}
		if err != nil {
			return err
		}
		if grown {
			v.Set(target)
		}
		return nil
	}

	return &PropertyPathError{Path: path, Reason: fmt.Sprintf("cannot descend into %s", v.Type())}
}

func (m *Manager) assignLeaf(target reflect.Value, value any) error {
	hv, err := m.synth.Hydrate(target.Type(), value)
	if err != nil {
		return err
	}
	target.Set(hv)
	return nil
}

// readPath returns the value at a dotted path below v.
func readPath(v reflect.Value, path string) (reflect.Value, error) {
	for _, seg := range strings.Split(path, ".") {
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return reflect.Value{}, &PropertyPathError{Path: path, Reason: "cannot descend into nil"}
			}
			v = v.Elem()
		}

		switch v.Kind() {
		case reflect.Struct:
			p, ok := lookupProperty(v.Type(), seg)
			if !ok {
				return reflect.Value{}, &PropertyPathError{Path: path, Reason: fmt.Sprintf("%s has no property %q", v.Type(), seg)}
			}
			v = v.Field(p.index)
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return reflect.Value{}, &PropertyPathError{Path: path, Reason: fmt.Sprintf("%s is not keyed by string", v.Type())}
			}
			elem := v.MapIndex(reflect.ValueOf(seg).Convert(v.Type().Key()))
			if !elem.IsValid() {
				return reflect.Value{}, &PropertyPathError{Path: path, Reason: fmt.Sprintf("no key %q", seg)}
			}
			v = elem
		case reflect.Slice, reflect.Array:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= v.Len() {
				return reflect.Value{}, &PropertyPathError{Path: path, Reason: fmt.Sprintf("index %q out of range", seg)}
			}
			v = v.Index(idx)
		default:
			return reflect.Value{}, &PropertyPathError{Path: path, Reason: fmt.Sprintf("cannot descend into %s", v.Type())}
		}
	}
	return v, nil
}

func (m *Manager) call(ctx context.Context, cc *ComponentContext, index int, call MethodCall) error {
	c := cc.Component
	if err := m.hooks.fire(ctx, &HookEvent{
		Point:     HookCall,
		Component: c,
		Method:    call.Method,
		Args:      call.Params,
		Context:   cc,
	}); err != nil {
		return err
	}

	invalid := func(format string, args ...any) error {
		return &MethodCallError{Index: index, Method: call.Method, Reason: fmt.Sprintf(format, args...)}
	}

	switch call.Method {
	case methodRefresh:
		return nil
	case methodSet:
		if len(call.Params) != 2 {
			return invalid("want 2 arguments, got %d", len(call.Params))
		}
		path, ok := call.Params[0].(string)
		if !ok {
			return invalid("path must be a string")
		}
		return m.magicWrite(ctx, cc, path, call.Params[1], invalid)
	case methodToggle:
		if len(call.Params) != 1 {
			return invalid("want 1 argument, got %d", len(call.Params))
		}
		path, ok := call.Params[0].(string)
		if !ok {
			return invalid("path must be a string")
		}
		cur, err := readPath(structOf(c), path)
		if err != nil {
			return invalid("%v", err)
		}
		if cur.Kind() != reflect.Bool {
			return invalid("%s is not a bool", path)
		}
		return m.magicWrite(ctx, cc, path, !cur.Bool(), invalid)
	}

	a, ok := c.(Actioner)
	if !ok {
		return invalid("%s has no callable methods", c.base().name)
	}
	fn, ok := a.Actions()[call.Method]
	if !ok || fn == nil {
		return invalid("unknown method")
	}

	fv := reflect.ValueOf(fn)
	args, reason := m.bindArgs(ctx, fv, call.Params)
	if reason != "" {
		return invalid("%s", reason)
	}

	out := fv.Call(args)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// magicWrite applies a $set or $toggle write. Bad paths reject the call;
// other failures behave like property writes.
func (m *Manager) magicWrite(ctx context.Context, cc *ComponentContext, path string, value any, invalid func(string, ...any) error) error {
	err := m.updateProperty(ctx, cc, path, value)
	if IsPropertyPathError(err) {
		return invalid("%v", err)
	}
	if err == nil {
		cc.Component.base().clearErrors(path)
	}
	return err
}

// bindArgs converts wire params to fv's arguments. A leading
// context.Context parameter receives ctx. It returns a non-empty reason
// when the call does not fit the signature.
func (m *Manager) bindArgs(ctx context.Context, fv reflect.Value, params []any) ([]reflect.Value, string) {
	if fv.Kind() != reflect.Func {
		return nil, fmt.Sprintf("not a function: %s", fv.Type())
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, "variadic methods are not callable"
	}
	if ft.NumOut() > 1 || (ft.NumOut() == 1 && ft.Out(0) != errorType) {
		return nil, "method must return nothing or an error"
	}

	first := 0
	var args []reflect.Value
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		args = append(args, reflect.ValueOf(&ctx).Elem())
		first = 1
	}

	want := ft.NumIn() - first
	if len(params) != want {
		return nil, fmt.Sprintf("want %d arguments, got %d", want, len(params))
	}
	for i, p := range params {
		v, err := m.synth.Hydrate(ft.In(first+i), p)
		if err != nil {
			return nil, fmt.Sprintf("argument %d: %v", i, err)
		}
		args = append(args, v)
	}
	return args, ""
}

// Snapshot captures the current state of c without rendering it.
func (m *Manager) Snapshot(ctx context.Context, c Component) (*Snapshot, error) {
	ctx, sc := withScope(ctx)
	cc := &ComponentContext{
		Component: c,
		Memo: Memo{
			Path:   sc.request.Path,
			Method: sc.request.Method,
			Locale: m.localeFor(sc.request),
		},
	}
	return m.dehydratePhase(ctx, cc)
}

func (m *Manager) boot(ctx context.Context, cc *ComponentContext) error {
	c := cc.Component
	if b, ok := c.(Booter); ok {
		if err := b.Boot(ctx); err != nil {
			return fmt.Errorf("hxwire: boot %s: %w", c.base().name, err)
		}
	}
	if err := m.hooks.fire(ctx, &HookEvent{Point: HookBoot, Component: c, Context: cc}); err != nil {
		return err
	}
	cc.state = StateBooted
	return nil
}

// applyParams assigns mount params to matching public properties, in key
// order. Other params are left for the Mounter.
func (m *Manager) applyParams(c Component, params Params) error {
	if len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := structOf(c)
	for _, k := range keys {
		p, ok := lookupProperty(v.Type(), k)
		if !ok {
			continue
		}
		val, err := m.synth.Hydrate(p.typ, params[k])
		if err != nil {
			return fmt.Errorf("hxwire: mount %s param %q: %w", c.base().name, k, err)
		}
		v.Field(p.index).Set(val)
	}
	return nil
}

func (m *Manager) renderPhase(ctx context.Context, cc *ComponentContext) (string, error) {
	b := cc.Component.base()
	inv := &Invocation{
		Phase:     PhaseRender,
		Name:      b.name,
		Component: cc.Component,
		Request:   RequestFrom(ctx),
	}
	err := m.pipeline.Then(func(ctx context.Context, inv *Invocation) error {
		markup, err := m.render(ctx, cc)
		inv.HTML = markup
		return err
	})(ctx, inv)
	return inv.HTML, err
}

func (m *Manager) render(ctx context.Context, cc *ComponentContext) (string, error) {
	sc := scopeFrom(ctx)
	c := cc.Component

	cc.children = nil
	cc.childIndex = 0
	sc.stack.Push(cc)
	defer sc.stack.Pop()

	if err := m.hooks.fire(ctx, &HookEvent{Point: HookRender, Component: c, Context: cc}); err != nil {
		return "", err
	}

	r, ok := c.(Renderer)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRenderable, c.base().name)
	}
	var buf bytes.Buffer
	if tc := r.Render(ctx); tc != nil {
		if err := tc.Render(ctx, &buf); err != nil {
			return "", fmt.Errorf("hxwire: render %s: %w", c.base().name, err)
		}
	}
	cc.state = StateRendered
	return buf.String(), nil
}

func (m *Manager) dehydratePhase(ctx context.Context, cc *ComponentContext) (*Snapshot, error) {
	c := cc.Component
	inv := &Invocation{
		Phase:     PhaseDehydrate,
		Name:      c.base().name,
		Component: c,
		Request:   RequestFrom(ctx),
	}
	err := m.pipeline.Then(func(ctx context.Context, inv *Invocation) error {
		if d, ok := c.(Dehydrater); ok {
			if err := d.Dehydrate(ctx); err != nil {
				return fmt.Errorf("hxwire: dehydrate %s: %w", inv.Name, err)
			}
		}
		if err := m.hooks.fire(ctx, &HookEvent{Point: HookDehydrate, Component: c, Context: cc}); err != nil {
			return err
		}

		memo := cc.Memo
		memo.Children = cc.Children()
		memo.Errors = c.base().Errors()
		snap, err := m.snapshots.Encode(c, memo)
		if err != nil {
			return err
		}
		inv.Snapshot = snap
		cc.state = StateDehydrated
		return nil
	})(ctx, inv)
	if err != nil {
		return nil, err
	}
	if inv.Snapshot == nil {
		return nil, fmt.Errorf("hxwire: dehydrate %s: phase produced no snapshot", inv.Name)
	}
	return inv.Snapshot, nil
}

// Child mounts a nested component from inside a parent's template.
//
//	templ board(b *Board) {
//	    <div>
//	        for _, col := range b.Columns {
//	            @b.wire.Child("column", hxwire.Params{"title": col}, col)
//	        }
//	    </div>
//	}
//
// An empty key is replaced by a key derived from the parent id and the
// child's position. When the parent is being updated and a child with the
// same key was rendered before, the child is not mounted again; a
// placeholder carrying its id keeps the client-side element in place.
func (m *Manager) Child(name string, params Params, key string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		parent := Current(ctx)
		if parent == nil {
			return fmt.Errorf("hxwire: child %q rendered outside a component", name)
		}
		key := key
		if key == "" {
			key = parent.nextChildKey()
		}

		if ref, ok := parent.previous[key]; ok {
			parent.children = append(parent.children, ref)
			tag := ref.Tag
			if !validTag(tag) {
				tag = "div"
			}
			_, err := fmt.Fprintf(w, `<%s wire:id="%s"></%s>`, tag, html.EscapeString(ref.ID), tag)
			return err
		}

		res, err := m.Mount(ctx, name, params, key)
		if err != nil {
			return err
		}
		if res.Component != nil {
			parent.children = append(parent.children, ChildRef{
				ID:  res.Component.base().id,
				Tag: tagOf(res.HTML),
				Key: key,
			})
			parent.Component.base().effects.merge(res.Effects)
		}
		_, err = io.WriteString(w, res.HTML)
		return err
	})
}

// insertAttributes adds wire:id and wire:snapshot to the first element of
// markup. Markup without a root element is wrapped in a div.
func insertAttributes(markup, id, snapshot string) string {
	attrs := ` wire:id="` + html.EscapeString(id) + `" wire:snapshot="` + html.EscapeString(snapshot) + `"`

	start, end := rootTag(markup)
	if start < 0 {
		return "<div" + attrs + ">" + markup + "</div>"
	}
	return markup[:end] + attrs + markup[end:]
}

// tagOf returns the name of the first element of markup, or "div".
func tagOf(markup string) string {
	start, end := rootTag(markup)
	if start < 0 {
		return "div"
	}
	return markup[start:end]
}

// rootTag locates the name of the first element: markup[start:end].
func rootTag(markup string) (start, end int) {
	for i := 0; i < len(markup)-1; i++ {
		if markup[i] != '<' || !isTagByte(markup[i+1], true) {
			continue
		}
		j := i + 1
		for j < len(markup) && isTagByte(markup[j], false) {
			j++
		}
		return i + 1, j
	}
	return -1, -1
}

func isTagByte(c byte, first bool) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		return true
	}
	return !first && (c >= '0' && c <= '9' || c == '-')
}

func validTag(tag string) bool {
	if tag == "" || !isTagByte(tag[0], true) {
		return false
	}
	for i := 1; i < len(tag); i++ {
		if !isTagByte(tag[i], false) {
			return false
		}
	}
	return true
}
