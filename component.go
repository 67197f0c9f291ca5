package hxwire

import (
	"strings"
)

// Base is the runtime state embedded by user components.
//
// Components embed Base by value to gain an identity, an error bag and
// the effect helpers. Base carries no public state of its own: the engine
// never serializes it, so only the embedding struct's exported fields reach
// the snapshot.
//
//	type Counter struct {
//	    hxwire.Base
//	    Count int `hx:"count"`
//	}
//
//	func (c *Counter) Increment() { c.Count++ }
type Base struct {
	id      string
	name    string
	errors  map[string]string
	effects Effects
}

// Component is implemented by any struct that embeds Base. A field or
// method named ID or Name on the embedding struct hides Base's and breaks
// the interface.
type Component interface {
	ID() string
	Name() string
	base() *Base
}

func (b *Base) base() *Base { return b }

// ID returns the component's stable id. It is assigned at mount and
// preserved across every update.
func (b *Base) ID() string {
	return b.id
}

// Name returns the registered name the component was instantiated under.
func (b *Base) Name() string {
	return b.name
}

// AddError records a client-visible error for a field path.
func (b *Base) AddError(field, message string) {
	if b.errors == nil {
		b.errors = make(map[string]string)
	}
	b.errors[field] = message
}

// Errors returns a copy of the component's error bag.
func (b *Base) Errors() map[string]string {
	out := make(map[string]string, len(b.errors))
	for k, v := range b.errors {
		out[k] = v
	}
	return out
}

// HasErrors reports whether any field, or any of the given fields, has an
// error recorded.
func (b *Base) HasErrors(fields ...string) bool {
	if len(fields) == 0 {
		return len(b.errors) > 0
	}
	for _, f := range fields {
		if _, ok := b.errors[f]; ok {
			return true
		}
	}
	return false
}

// ResetErrors clears the error bag, or only the given fields.
func (b *Base) ResetErrors(fields ...string) {
	if len(fields) == 0 {
		b.errors = nil
		return
	}
	for _, f := range fields {
		delete(b.errors, f)
	}
}

// Dispatch queues a client event. Listeners on the client receive params as
// the event detail.
func (b *Base) Dispatch(event string, params map[string]any) {
	b.effects.Dispatches = append(b.effects.Dispatches, Dispatch{
		Event:  event,
		Params: params,
	})
}

// Flash queues a one-time notification.
func (b *Base) Flash(level FlashLevel, message string) {
	b.effects.Flashes = append(b.effects.Flashes, Flash{
		Level:   level,
		Message: message,
	})
}

// Redirect asks the client to navigate to url after the response is applied.
func (b *Base) Redirect(url string) {
	b.effects.Redirect = url
}

// takeEffects returns the queued effects and resets the queue.
func (b *Base) takeEffects() Effects {
	e := b.effects
	b.effects = Effects{}
	return e
}

func (b *Base) restoreErrors(errs map[string]string) {
	b.errors = nil
	for k, v := range errs {
		b.AddError(k, v)
	}
}

// clearErrors drops errors recorded for path and for anything nested below it.
func (b *Base) clearErrors(path string) {
	for k := range b.errors {
		if k == path || strings.HasPrefix(k, path+".") {
			delete(b.errors, k)
		}
	}
}
