package hxwire

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/pthm/hxwire/lib/idgen"
)

// counter is the minimal stateful component.
type counter struct {
	Base
	Count int `hx:"count"`

	booted int
}

func (c *counter) Boot(ctx context.Context) error {
	c.booted++
	return nil
}

func (c *counter) Increment() { c.Count++ }

func (c *counter) Add(n int) { c.Count += n }

func (c *counter) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="counter"><span>%d</span></div>`, c.Count)
		return err
	})
}

func (c *counter) Actions() Actions {
	return Actions{
		"increment": c.Increment,
		"add":       c.Add,
		"boom": func() error {
			return errors.New("boom")
		},
		"variadic": func(xs ...int) {},
		"twoResults": func() (int, error) {
			return 0, nil
		},
	}
}

type user struct {
	Name  string `hx:"name"`
	Email string `hx:"email"`
	Age   int    `hx:"age"`
}

// profile exercises records, collections and validation.
type profile struct {
	Base
	User    user              `hx:"user"`
	Tags    []string          `hx:"tags"`
	Scores  map[string]int    `hx:"scores"`
	Joined  time.Time         `hx:"joined"`
	Boss    *user             `hx:"boss"`
	Notes   map[string]any    `hx:"notes"`
	Public  bool              `hx:"public"`
	Labels  map[string]string `hx:"-"`

	mounted  Params
	hydrated int
	writes   []string
}

func (p *profile) Mount(ctx context.Context, params Params) error {
	p.mounted = params
	return nil
}

func (p *profile) Hydrate(ctx context.Context) error {
	p.hydrated++
	return nil
}

func (p *profile) Updating(ctx context.Context, path string, value any) error {
	if path == "user.age" {
		if n, ok := value.(float64); ok && n < 0 {
			return Invalid("user.age", "Age must be positive")
		}
	}
	p.writes = append(p.writes, "updating:"+path)
	return nil
}

func (p *profile) Updated(ctx context.Context, path string, value any) error {
	p.writes = append(p.writes, "updated:"+path)
	return nil
}

func (p *profile) Save(ctx context.Context) error {
	if p.User.Name == "" {
		return Invalid("user.name", "Name is required")
	}
	p.Flash(FlashSuccess, "Saved "+p.User.Name)
	p.Dispatch("profile:saved", map[string]any{"name": p.User.Name})
	return nil
}

func (p *profile) Rename(name string, times int) {
	p.User.Name = strings.Repeat(name, times)
}

func (p *profile) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section><h1>%s</h1></section>`, html.EscapeString(p.User.Name))
		return err
	})
}

func (p *profile) Actions() Actions {
	return Actions{
		"save":   p.Save,
		"rename": p.Rename,
	}
}

// recorder records the state each call observes.
type recorder struct {
	Base
	Value string   `hx:"value"`
	Seen  []string `hx:"seen"`
}

func (p *recorder) Record() { p.Seen = append(p.Seen, p.Value) }

func (p *recorder) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p>`+html.EscapeString(strings.Join(p.Seen, ","))+`</p>`)
		return err
	})
}

func (p *recorder) Actions() Actions {
	return Actions{"record": p.Record}
}

// tree renders itself nested up to Max levels deep.
type tree struct {
	Base
	Level int `hx:"level"`
	Max   int `hx:"max"`

	wire *Manager
}

func (t *tree) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<ul data-level="%d">`, t.Level); err != nil {
			return err
		}
		if t.Level < t.Max {
			child := t.wire.Child("tree", Params{"level": t.Level + 1, "max": t.Max}, "")
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

// pair renders one child component value twice.
type pair struct {
	Base

	wire *Manager
}

func (p *pair) Render(ctx context.Context) templ.Component {
	child := p.wire.Child("counter", nil, "")
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<section>"); err != nil {
			return err
		}
		for i := 0; i < 2; i++ {
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</section>")
		return err
	})
}

// Origin is embedded by records to check nested properties.
type Origin struct {
	Source string `hx:"source"`
}

// ledger holds integers outside the float64 range.
type ledger struct {
	Base
	Origin
	Total  int64  `hx:"total"`
	Serial uint64 `hx:"serial"`
}

func (l *ledger) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<dl><dd>%d</dd><dd>%d</dd></dl>`, l.Total, l.Serial)
		return err
	})
}

// silent has state but no Renderer.
type silent struct {
	Base
	On bool `hx:"on"`
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()

	base := []Option{
		WithLogger(quietLogger()),
		WithIDGenerator(idgen.Sequence("c")),
	}
	m, err := New([]byte("test-secret-key-0123456789"), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m.Component("counter", FactoryOf[counter]())
	m.Component("profile", FactoryOf[profile]())
	m.Component("recorder", FactoryOf[recorder]())
	m.Component("silent", FactoryOf[silent]())
	m.Component("tree", func() Component { return &tree{wire: m} })
	m.Component("pair", func() Component { return &pair{wire: m} })
	m.Component("ledger", FactoryOf[ledger]())
	return m
}

func mustMount(t *testing.T, m *Manager, name string, params Params) *MountResult {
	t.Helper()
	res, err := m.Mount(context.Background(), name, params, "")
	if err != nil {
		t.Fatalf("Mount(%q) error = %v", name, err)
	}
	return res
}
