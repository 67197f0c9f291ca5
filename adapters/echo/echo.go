// Package hxwireecho provides Echo framework integration for hxwire
// components.
//
// Mount the update endpoint onto an Echo instance or group:
//
//	e := echo.New()
//	m := hxwireecho.Mount(e, hxwireecho.WithKey(secret))
//	m.Component("counter", hxwire.FactoryOf[Counter]())
//	e.GET("/", hxwireecho.Page(m, "counter", nil))
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	m := hxwireecho.MountGroup(g)
package hxwireecho

import (
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxwire"
)

// DefaultPath is where the update endpoint is mounted unless WithPath
// says otherwise.
const DefaultPath = "/hxwire/update"

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key     []byte
	path    string
	manager []hxwire.Option
}

// WithKey sets the snapshot signing key.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the URL path of the update endpoint.
// Defaults to DefaultPath.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithManagerOptions passes options through to hxwire.New.
func WithManagerOptions(opts ...hxwire.Option) Option {
	return func(o *options) {
		o.manager = append(o.manager, opts...)
	}
}

// Mount creates a Manager and mounts its update handler on an Echo instance.
//
//	e := echo.New()
//	m := hxwireecho.Mount(e)
//
//	// With options:
//	m := hxwireecho.Mount(e, hxwireecho.WithKey(key), hxwireecho.WithPath("/live"))
func Mount(e *echo.Echo, opts ...Option) *hxwire.Manager {
	m, path := newManager(opts)
	e.POST(path, echo.WrapHandler(m.Handler()))
	return m
}

// MountGroup creates a Manager and mounts its update handler on an Echo
// group. Updates then pass through the group's middleware (auth, logging,
// etc.).
//
//	g := e.Group("/app", authMiddleware)
//	m := hxwireecho.MountGroup(g)
func MountGroup(g *echo.Group, opts ...Option) *hxwire.Manager {
	m, path := newManager(opts)
	g.POST(path, echo.WrapHandler(m.Handler()))
	return m
}

func newManager(opts []Option) (*hxwire.Manager, string) {
	o := &options{path: DefaultPath}
	for _, opt := range opts {
		opt(o)
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("hxwireecho: failed to generate random key: %v", err))
		}
	}

	m, err := hxwire.New(key, o.manager...)
	if err != nil {
		panic(fmt.Sprintf("hxwireecho: %v", err))
	}
	return m, o.path
}

// Page returns a handler that mounts name and writes its markup as the
// response. params may be nil.
//
//	e.GET("/users/:id", hxwireecho.Page(m, "profile", func(c echo.Context) hxwire.Params {
//	    return hxwire.Params{"id": c.Param("id")}
//	}))
func Page(m *hxwire.Manager, name string, params func(echo.Context) hxwire.Params) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p hxwire.Params
		if params != nil {
			p = params(c)
		}
		r := c.Request()
		ctx := hxwire.WithRequest(r.Context(), hxwire.RequestInfoFromHTTP(r))
		res, err := m.Mount(ctx, name, p, "")
		if err != nil {
			m.OnError(c.Response(), r, err)
			return nil
		}
		return c.HTML(http.StatusOK, res.HTML)
	}
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxwireecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
