package main

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/pthm/hxwire"
)

// Counter steps a number up or down.
type Counter struct {
	hxwire.Base
	Count int `hx:"count"`
	Step  int `hx:"step"`
}

func (c *Counter) Mount(ctx context.Context, p hxwire.Params) error {
	if c.Step == 0 {
		c.Step = 1
	}
	return nil
}

//hxwire:action
func (c *Counter) Increment() { c.Count += c.Step }

//hxwire:action
func (c *Counter) Decrement() { c.Count -= c.Step }

func (c *Counter) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="counter"><button%s>-</button><span>%d</span><button%s>+</button></div>`,
			attrString(hxwire.Call("decrement").Attrs()),
			c.Count,
			attrString(hxwire.Call("increment").Attrs()),
		)
		return err
	})
}

// Card is one entry on a Board.
type Card struct {
	ID    int    `hx:"id"`
	Title string `hx:"title"`
	Done  bool   `hx:"done"`
}

// Board is a small task list with a nested Counter tallying additions.
type Board struct {
	hxwire.Base
	Title  string `hx:"title"`
	Draft  string `hx:"draft"`
	Cards  []Card `hx:"cards"`
	NextID int    `hx:"next_id"`

	wire *hxwire.Manager
}

func (b *Board) Mount(ctx context.Context, p hxwire.Params) error {
	if b.Title == "" {
		b.Title = "Board"
	}
	if b.NextID == 0 {
		b.NextID = 1
	}
	return nil
}

//hxwire:action
func (b *Board) AddCard(ctx context.Context) error {
	title := strings.TrimSpace(b.Draft)
	if title == "" {
		return hxwire.Invalid("draft", "Title is required")
	}
	b.Cards = append(b.Cards, Card{ID: b.NextID, Title: title})
	b.NextID++
	b.Draft = ""
	b.Dispatch("card:added", map[string]any{"title": title})
	return nil
}

//hxwire:action
func (b *Board) Complete(id int) error {
	for i := range b.Cards {
		if b.Cards[i].ID == id {
			b.Cards[i].Done = true
			b.Flash(hxwire.FlashSuccess, "Completed "+b.Cards[i].Title)
			return nil
		}
	}
	return hxwire.Invalid("cards", fmt.Sprintf("No card %d", id))
}

//hxwire:action
func (b *Board) Remove(id int) {
	kept := b.Cards[:0]
	for _, c := range b.Cards {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	b.Cards = kept
}

func (b *Board) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		fmt.Fprintf(&sb, `<section class="board"><h1>%s</h1>`, html.EscapeString(b.Title))
		fmt.Fprintf(&sb, `<form%s><input%s value="%s">`,
			attrString(hxwire.Call("addCard").On("submit").Prevent().Attrs()),
			attrString(hxwire.Model("draft").Attrs()),
			html.EscapeString(b.Draft),
		)
		if msg, ok := b.Errors()["draft"]; ok {
			fmt.Fprintf(&sb, `<p class="error">%s</p>`, html.EscapeString(msg))
		}
		sb.WriteString(`</form><ul>`)
		for _, c := range b.Cards {
			class := "card"
			if c.Done {
				class += " done"
			}
			fmt.Fprintf(&sb, `<li class="%s">%s<button%s>done</button><button%s>x</button></li>`,
				class,
				html.EscapeString(c.Title),
				attrString(hxwire.Call("complete", c.ID).Attrs()),
				attrString(hxwire.Call("remove", c.ID).Confirm("Remove this card?").Attrs()),
			)
		}
		sb.WriteString(`</ul>`)
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}

		if err := b.wire.Child("counter", hxwire.Params{"count": len(b.Cards)}, "tally").Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section>`)
		return err
	})
}

// registerDemo binds the demo components and their observers to m.
func registerDemo(m *hxwire.Manager, logger *slog.Logger) {
	m.Component("counter", hxwire.FactoryOf[Counter]())
	m.Component("board", func() hxwire.Component { return &Board{wire: m} })

	m.AddPersistentMiddleware(logPhases(logger))
	m.Listen(hxwire.HookCall, func(ctx context.Context, ev *hxwire.HookEvent) error {
		logger.Debug("call", "component", ev.Component.Name(), "method", ev.Method, "args", len(ev.Args))
		return nil
	})
}

// logPhases logs every lifecycle phase with its duration.
func logPhases(logger *slog.Logger) hxwire.Middleware {
	return func(next hxwire.Handler) hxwire.Handler {
		return func(ctx context.Context, inv *hxwire.Invocation) error {
			start := time.Now()
			err := next(ctx, inv)
			attrs := []any{"phase", inv.Phase, "component", inv.Name, "took", time.Since(start)}
			if err != nil {
				logger.Warn("phase failed", append(attrs, "error", err)...)
				return err
			}
			logger.Debug("phase", attrs...)
			return nil
		}
	}
}

// attrString renders attributes in a stable order.
func attrString(attrs templ.Attributes) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, ` %s="%s"`, k, html.EscapeString(fmt.Sprint(attrs[k])))
	}
	return sb.String()
}
