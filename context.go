package hxwire

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// State is the lifecycle position of a component within one request.
type State int

const (
	StateUninitialized State = iota
	StateBooted
	StateHydrated
	StateUpdated
	StateRendered
	StateDehydrated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBooted:
		return "booted"
	case StateHydrated:
		return "hydrated"
	case StateUpdated:
		return "updated"
	case StateRendered:
		return "rendered"
	case StateDehydrated:
		return "dehydrated"
	}
	return "unknown"
}

// ComponentContext tracks one component through a single request.
type ComponentContext struct {
	Component Component
	Mounting  bool
	Memo      Memo

	state      State
	children   []ChildRef
	previous   map[string]ChildRef
	childIndex int
}

// State returns the component's current lifecycle state.
func (cc *ComponentContext) State() State {
	return cc.state
}

// Children returns the children recorded during the current render.
func (cc *ComponentContext) Children() []ChildRef {
	out := make([]ChildRef, len(cc.children))
	copy(out, cc.children)
	return out
}

func (cc *ComponentContext) nextChildKey() string {
	key := "lw-" + cc.Component.base().id + "-" + strconv.Itoa(cc.childIndex)
	cc.childIndex++
	return key
}

// Stack is the ordered stack of components currently rendering.
type Stack struct {
	items  []*ComponentContext
	pushes int
	pops   int
}

// Push makes cc the current component.
func (s *Stack) Push(cc *ComponentContext) {
	s.items = append(s.items, cc)
	s.pushes++
}

// Pop removes and returns the current component, or nil when empty.
func (s *Stack) Pop() *ComponentContext {
	if len(s.items) == 0 {
		return nil
	}
	cc := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	s.pops++
	return cc
}

// Current returns the top of the stack, or nil when empty.
func (s *Stack) Current() *ComponentContext {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

// Depth returns the number of components rendering.
func (s *Stack) Depth() int {
	return len(s.items)
}

// Counts returns how many pushes and pops the stack has seen.
func (s *Stack) Counts() (pushes, pops int) {
	return s.pushes, s.pops
}

// scope is the per-request engine state threaded through context.
type scope struct {
	stack    Stack
	request  RequestInfo
	original *Memo // memo of the snapshot being updated, nil when mounting
}

type scopeKey struct{}

// withScope returns ctx carrying a request scope, reusing an existing one
// so nested mounts share a single stack.
func withScope(ctx context.Context) (context.Context, *scope) {
	if sc, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return ctx, sc
	}
	sc := &scope{request: RequestFrom(ctx)}
	return context.WithValue(ctx, scopeKey{}, sc), sc
}

func scopeFrom(ctx context.Context) *scope {
	sc, _ := ctx.Value(scopeKey{}).(*scope)
	return sc
}

// Current returns the component rendering on ctx, or nil outside a render.
func Current(ctx context.Context) *ComponentContext {
	if sc := scopeFrom(ctx); sc != nil {
		return sc.stack.Current()
	}
	return nil
}

// Depth returns the number of components rendering on ctx.
func Depth(ctx context.Context) int {
	if sc := scopeFrom(ctx); sc != nil {
		return sc.stack.Depth()
	}
	return 0
}

// RequestInfo is the transport-independent view of the request that
// triggered a mount or update.
type RequestInfo struct {
	Path   string
	Method string
	Locale string
	Host   string
	Scheme string
}

type requestKey struct{}

// WithRequest attaches request info to ctx.
func WithRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestKey{}, info)
}

// RequestFrom returns the request info attached to ctx.
func RequestFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestKey{}).(RequestInfo)
	return info
}

// RequestInfoFromHTTP extracts request info from r. The locale is the first
// Accept-Language tag.
func RequestInfoFromHTTP(r *http.Request) RequestInfo {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}

	var locale string
	if al := r.Header.Get("Accept-Language"); al != "" {
		locale = strings.TrimSpace(strings.SplitN(strings.SplitN(al, ",", 2)[0], ";", 2)[0])
	}

	return RequestInfo{
		Path:   r.URL.Path,
		Method: r.Method,
		Locale: locale,
		Host:   r.Host,
		Scheme: scheme,
	}
}

// OriginalPath returns the path of the page a component lives on. During an
// update this is the path recorded when the component was first mounted.
func OriginalPath(ctx context.Context) string {
	if sc := scopeFrom(ctx); sc != nil && sc.original != nil {
		return sc.original.Path
	}
	return RequestFrom(ctx).Path
}

// OriginalMethod returns the method of the request that mounted the
// component. Updates without a recorded method report POST.
func OriginalMethod(ctx context.Context) string {
	if sc := scopeFrom(ctx); sc != nil && sc.original != nil {
		if sc.original.Method == "" {
			return http.MethodPost
		}
		return sc.original.Method
	}
	return RequestFrom(ctx).Method
}

// OriginalURL returns the absolute URL of the page a component lives on.
func OriginalURL(ctx context.Context) string {
	info := RequestFrom(ctx)
	path := OriginalPath(ctx)
	if info.Host == "" {
		return path
	}
	scheme := info.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + info.Host + path
}
