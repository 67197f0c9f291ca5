package hxwire

import (
	"context"
	"sync"
)

// Phase names a lifecycle phase wrapped by the middleware pipeline.
type Phase string

const (
	PhaseMount     Phase = "mount"
	PhaseHydrate   Phase = "hydrate"
	PhaseUpdate    Phase = "update"
	PhaseRender    Phase = "render"
	PhaseDehydrate Phase = "dehydrate"
)

// Invocation describes one phase passing through the pipeline. Fields the
// phase has not produced yet are zero; the core handler fills them in.
type Invocation struct {
	Phase     Phase
	Name      string
	Key       string
	Params    Params
	Component Component
	HTML      string
	Snapshot  *Snapshot
	Request   RequestInfo

	encoded []byte
}

// Handler runs a phase.
type Handler func(ctx context.Context, inv *Invocation) error

// Middleware wraps a Handler. A middleware short-circuits the phase by
// returning without calling next.
//
//	func timing(next hxwire.Handler) hxwire.Handler {
//	    return func(ctx context.Context, inv *hxwire.Invocation) error {
//	        start := time.Now()
//	        err := next(ctx, inv)
//	        log.Printf("%s %s took %v", inv.Phase, inv.Name, time.Since(start))
//	        return err
//	    }
//	}
type Middleware func(next Handler) Handler

// Pipeline is the ordered persistent middleware list. It may change at any
// time; each phase composes the order current at invocation.
type Pipeline struct {
	mu   sync.RWMutex
	list []Middleware
}

// Add appends middleware. The first middleware added is the outermost.
func (p *Pipeline) Add(mw ...Middleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range mw {
		if m != nil {
			p.list = append(p.list, m)
		}
	}
}

// Set replaces the whole list.
func (p *Pipeline) Set(list []Middleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.list = make([]Middleware, 0, len(list))
	for _, m := range list {
		if m != nil {
			p.list = append(p.list, m)
		}
	}
}

// Get returns a copy of the current list.
func (p *Pipeline) Get() []Middleware {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Middleware, len(p.list))
	copy(out, p.list)
	return out
}

// Then wraps h with the current list.
func (p *Pipeline) Then(h Handler) Handler {
	list := p.Get()
	for i := len(list) - 1; i >= 0; i-- {
		h = list[i](h)
	}
	return h
}
