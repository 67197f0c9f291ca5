package hxwire

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// Action builds the wire:<event> attribute that calls a component method.
//
// Only the directive is produced; the client runtime reads it and posts the
// call with the component's snapshot.
//
//	<button { hxwire.Call("increment").Attrs()... }>+</button>
//	<form { hxwire.Call("save").On("submit").Prevent().Attrs()... }>
type Action struct {
	method    string
	args      []any
	event     string
	modifiers []string
	confirm   string
}

// Call returns an action invoking method with args on click.
func Call(method string, args ...any) *Action {
	return &Action{method: method, args: args, event: "click"}
}

// Refresh returns an action that re-renders without changing state.
func Refresh() *Action {
	return Call("$refresh")
}

// SetTo returns an action assigning value to the property at path.
func SetTo(path string, value any) *Action {
	return Call("$set", path, value)
}

// Toggle returns an action flipping the boolean property at path.
func Toggle(path string) *Action {
	return Call("$toggle", path)
}

// On changes the DOM event that triggers the call.
func (a *Action) On(event string) *Action {
	a.event = event
	return a
}

// Prevent calls preventDefault on the triggering event.
func (a *Action) Prevent() *Action {
	a.modifiers = append(a.modifiers, "prevent")
	return a
}

// Stop stops propagation of the triggering event.
func (a *Action) Stop() *Action {
	a.modifiers = append(a.modifiers, "stop")
	return a
}

// Debounce delays the call until events stop for d.
func (a *Action) Debounce(d time.Duration) *Action {
	a.modifiers = append(a.modifiers, "debounce", formatDuration(d))
	return a
}

// Confirm asks the user before the call is sent.
func (a *Action) Confirm(message string) *Action {
	a.confirm = message
	return a
}

// Expr returns the call expression, e.g. `remove(3,"draft")`.
func (a *Action) Expr() string {
	if len(a.args) == 0 {
		return a.method
	}
	parts := make([]string, len(a.args))
	for i, arg := range a.args {
		data, err := json.Marshal(arg)
		if err != nil {
			data = []byte("null")
		}
		parts[i] = string(data)
	}
	return a.method + "(" + strings.Join(parts, ",") + ")"
}

// Attrs returns the templ attributes for the action.
func (a *Action) Attrs() templ.Attributes {
	attrs := templ.Attributes{
		directive("wire:"+a.event, a.modifiers): a.Expr(),
	}
	if a.confirm != "" {
		attrs["wire:confirm"] = a.confirm
	}
	return attrs
}

// Binding builds the wire:model attribute that writes an input's value to
// a property path.
type Binding struct {
	path      string
	modifiers []string
}

// Model binds an input to the property at path.
//
//	<input { hxwire.Model("user.name").Live().Attrs()... }/>
func Model(path string) *Binding {
	return &Binding{path: path}
}

// Live sends the write on every input event instead of with the next call.
func (b *Binding) Live() *Binding {
	b.modifiers = append(b.modifiers, "live")
	return b
}

// Blur sends the write when the input loses focus.
func (b *Binding) Blur() *Binding {
	b.modifiers = append(b.modifiers, "blur")
	return b
}

// Debounce delays live writes until input stops for d.
func (b *Binding) Debounce(d time.Duration) *Binding {
	b.modifiers = append(b.modifiers, "debounce", formatDuration(d))
	return b
}

// Attrs returns the templ attributes for the binding.
func (b *Binding) Attrs() templ.Attributes {
	return templ.Attributes{directive("wire:model", b.modifiers): b.path}
}

func directive(name string, modifiers []string) string {
	if len(modifiers) == 0 {
		return name
	}
	return name + "." + strings.Join(modifiers, ".")
}

func formatDuration(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}
