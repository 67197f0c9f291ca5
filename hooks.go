package hxwire

import (
	"context"
	"fmt"
	"sync"
)

// HookPoint names a lifecycle event observed by hooks.
type HookPoint string

const (
	HookBoot      HookPoint = "boot"
	HookMount     HookPoint = "mount"
	HookHydrate   HookPoint = "hydrate"
	HookUpdate    HookPoint = "update"  // before a property write; an error vetoes it
	HookUpdated   HookPoint = "updated" // after a property write
	HookCall      HookPoint = "call"    // before a method call; an error vetoes it
	HookRender    HookPoint = "render"
	HookDehydrate HookPoint = "dehydrate"
	HookFlush     HookPoint = "flush"
)

// HookEvent is passed to every hook. Only the fields relevant to Point
// are set.
type HookEvent struct {
	Point     HookPoint
	Component Component
	Params    Params
	Path      string
	Value     any
	Method    string
	Args      []any
	Context   *ComponentContext
}

// Hook observes lifecycle events. An error returned from a hook fails the
// phase it was fired from.
type Hook interface {
	Handle(ctx context.Context, ev *HookEvent) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, ev *HookEvent) error

func (f HookFunc) Handle(ctx context.Context, ev *HookEvent) error {
	return f(ctx, ev)
}

// On returns a hook that only sees events for point.
func On(point HookPoint, fn HookFunc) Hook {
	return HookFunc(func(ctx context.Context, ev *HookEvent) error {
		if ev.Point != point {
			return nil
		}
		return fn(ctx, ev)
	})
}

// Hooks is the append-only hook registry. Hooks run in registration order.
type Hooks struct {
	mu   sync.RWMutex
	list []Hook
}

// Register appends a hook.
func (h *Hooks) Register(hook Hook) {
	if hook == nil {
		panic("hxwire: nil hook")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list = append(h.list, hook)
}

// All returns a copy of the registered hooks.
func (h *Hooks) All() []Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Hook, len(h.list))
	copy(out, h.list)
	return out
}

// fire runs every hook for ev and stops at the first error.
func (h *Hooks) fire(ctx context.Context, ev *HookEvent) error {
	for _, hook := range h.All() {
		if err := hook.Handle(ctx, ev); err != nil {
			return fmt.Errorf("hxwire: %s hook: %w", ev.Point, err)
		}
	}
	return nil
}
