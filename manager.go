package hxwire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pthm/hxwire/lib/encoding"
	"github.com/pthm/hxwire/lib/idgen"
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger *slog.Logger
	locale string
	seal   bool
	newID  idgen.Generator
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLocale sets the locale recorded in snapshots when the request does
// not carry one. Defaults to "en".
func WithLocale(locale string) Option {
	return func(o *options) {
		o.locale = locale
	}
}

// WithSealing encrypts snapshots so their content is opaque to clients.
// By default snapshots are readable JSON protected by a checksum.
func WithSealing() Option {
	return func(o *options) {
		o.seal = true
	}
}

// WithIDGenerator sets the component id generator. Defaults to UUIDv7.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(o *options) {
		o.newID = gen
	}
}

// Manager owns the component registry, the synthesizer chain, the
// persistent middleware pipeline and the hook registry, and runs the
// component lifecycle. It is created once at startup and is safe for
// concurrent use by requests; registration belongs to startup.
type Manager struct {
	registry  *Registry
	synth     *Synthesizers
	snapshots *SnapshotCodec
	pipeline  Pipeline
	hooks     Hooks
	logger    *slog.Logger
	locale    string

	mu         sync.RWMutex
	jsFeatures []string

	// OnError writes the response for a failed update request.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// New creates a Manager that signs snapshots with key.
//
//	m, err := hxwire.New(secret, hxwire.WithLogger(logger))
//	m.Component("counter", hxwire.FactoryOf[Counter]())
//	http.Handle("/hxwire/update", m.Handler())
func New(key []byte, opts ...Option) (*Manager, error) {
	o := &options{locale: "en"}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	codec, err := encoding.NewCodec(key)
	if err != nil {
		return nil, fmt.Errorf("hxwire: %w", err)
	}

	reg := NewRegistry(o.newID)
	synth := NewSynthesizers(reg)
	m := &Manager{
		registry:  reg,
		synth:     synth,
		snapshots: NewSnapshotCodec(codec, synth, reg, o.seal),
		logger:    o.logger,
		locale:    o.locale,
	}
	m.OnError = m.defaultOnError
	return m, nil
}

// NewFromConfig creates a Manager from cfg. opts are applied after the
// config-derived options.
func NewFromConfig(cfg *Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []Option{WithLocale(cfg.Locale)}
	if cfg.Seal {
		base = append(base, WithSealing())
	}
	m, err := New([]byte(cfg.Secret), append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	for _, f := range cfg.JSFeatures {
		m.EnableJSFeature(f)
	}
	return m, nil
}

// Registry returns the component registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Synthesizers returns the synthesizer chain.
func (m *Manager) Synthesizers() *Synthesizers { return m.synth }

// Snapshots returns the snapshot codec.
func (m *Manager) Snapshots() *SnapshotCodec { return m.snapshots }

// Pipeline returns the persistent middleware pipeline.
func (m *Manager) Pipeline() *Pipeline { return &m.pipeline }

// Hooks returns the hook registry.
func (m *Manager) Hooks() *Hooks { return &m.hooks }

// Logger returns the manager's logger.
func (m *Manager) Logger() *slog.Logger { return m.logger }

// Component registers a component factory under name.
func (m *Manager) Component(name string, factory Factory) {
	m.registry.Register(name, factory)
}

// ResolveMissingComponent adds a fallback resolver for unregistered names.
func (m *Manager) ResolveMissingComponent(r Resolver) {
	m.registry.AddFallbackResolver(r)
}

// Instantiate creates a bare component by name without running any
// lifecycle logic.
func (m *Manager) Instantiate(name, id string) (Component, error) {
	return m.registry.Instantiate(name, id)
}

// ComponentHook registers a lifecycle hook.
func (m *Manager) ComponentHook(h Hook) {
	m.hooks.Register(h)
}

// Listen registers fn for a single hook point.
func (m *Manager) Listen(point HookPoint, fn HookFunc) {
	m.hooks.Register(On(point, fn))
}

// PropertySynthesizer registers a custom synthesizer ahead of the built-ins.
func (m *Manager) PropertySynthesizer(s Synthesizer) {
	m.synth.Register(s)
}

// AddPersistentMiddleware appends to the middleware pipeline.
func (m *Manager) AddPersistentMiddleware(mw ...Middleware) {
	m.pipeline.Add(mw...)
}

// SetPersistentMiddleware replaces the middleware pipeline.
func (m *Manager) SetPersistentMiddleware(list []Middleware) {
	m.pipeline.Set(list)
}

// PersistentMiddleware returns the current middleware list.
func (m *Manager) PersistentMiddleware() []Middleware {
	return m.pipeline.Get()
}

// EnableJSFeature marks a client runtime feature as enabled. Features are
// reported to page layouts through JSFeatures.
func (m *Manager) EnableJSFeature(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.jsFeatures {
		if f == name {
			return
		}
	}
	m.jsFeatures = append(m.jsFeatures, name)
}

// JSFeatures returns the enabled client features in the order enabled.
func (m *Manager) JSFeatures() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.jsFeatures))
	copy(out, m.jsFeatures)
	return out
}

// FlushState notifies flush listeners that request-scoped state should be
// dropped. Long-running workers call it between jobs.
func (m *Manager) FlushState(ctx context.Context) error {
	return m.hooks.fire(ctx, &HookEvent{Point: HookFlush})
}

// Decode parses and verifies an encoded snapshot.
func (m *Manager) Decode(raw []byte) (*Snapshot, error) {
	return m.snapshots.Decode(raw)
}

// HydrateInstance reconstructs the component snap describes without
// running any lifecycle logic.
func (m *Manager) HydrateInstance(snap *Snapshot) (Component, error) {
	return m.snapshots.HydrateInstance(snap)
}

func (m *Manager) localeFor(req RequestInfo) string {
	if req.Locale != "" {
		return req.Locale
	}
	return m.locale
}
