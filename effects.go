package hxwire

import (
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// FlashLevel classifies a flash notification.
type FlashLevel string

// Flash levels for toast notifications.
const (
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
	FlashWarning FlashLevel = "warning"
	FlashInfo    FlashLevel = "info"
)

// Flash is a one-time notification returned alongside a render.
type Flash struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}

// Dispatch is a client event queued by a component.
type Dispatch struct {
	Event  string         `json:"event"`
	Params map[string]any `json:"params,omitempty"`
}

// Effects are the side effects a component requested during a request.
// They travel next to the markup and never enter the snapshot.
type Effects struct {
	Dispatches []Dispatch `json:"dispatches,omitempty"`
	Flashes    []Flash    `json:"flashes,omitempty"`
	Redirect   string     `json:"redirect,omitempty"`
}

// IsZero reports whether no effect was requested.
func (e Effects) IsZero() bool {
	return len(e.Dispatches) == 0 && len(e.Flashes) == 0 && e.Redirect == ""
}

// merge appends other's effects to e. A redirect in other wins.
func (e *Effects) merge(other Effects) {
	e.Dispatches = append(e.Dispatches, other.Dispatches...)
	e.Flashes = append(e.Flashes, other.Flashes...)
	if other.Redirect != "" {
		e.Redirect = other.Redirect
	}
}

// RenderFlashes renders flashes as toast markup appended to the #toasts
// container.
func RenderFlashes(flashes []Flash) string {
	if len(flashes) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<div id="toasts" wire:swap="beforeend">`)

	for _, f := range flashes {
		sb.WriteString(`<div class="toast toast-`)
		sb.WriteString(html.EscapeString(string(f.Level)))
		sb.WriteString(`" data-auto-dismiss="3000">`)
		sb.WriteString(html.EscapeString(f.Message))
		sb.WriteString(`</div>`)
	}

	sb.WriteString(`</div>`)
	return sb.String()
}

// ToastContainer returns the container flashes are rendered into.
// Place it once in the page layout.
func ToastContainer() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div id="toasts" class="toast-container"></div>`)
		return err
	})
}
