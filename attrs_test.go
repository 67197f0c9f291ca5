package hxwire

import (
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/google/go-cmp/cmp"
)

func TestActionAttrs(t *testing.T) {
	tests := []struct {
		name   string
		action *Action
		want   templ.Attributes
	}{
		{
			name:   "plain call",
			action: Call("increment"),
			want:   templ.Attributes{"wire:click": "increment"},
		},
		{
			name:   "arguments",
			action: Call("remove", 3, "draft"),
			want:   templ.Attributes{"wire:click": `remove(3,"draft")`},
		},
		{
			name:   "submit with modifiers",
			action: Call("save").On("submit").Prevent().Stop(),
			want:   templ.Attributes{"wire:submit.prevent.stop": "save"},
		},
		{
			name:   "debounced input",
			action: Call("search").On("input").Debounce(300 * time.Millisecond),
			want:   templ.Attributes{"wire:input.debounce.300ms": "search"},
		},
		{
			name:   "confirmation",
			action: Call("delete", 7).Confirm("Really?"),
			want:   templ.Attributes{"wire:click": "delete(7)", "wire:confirm": "Really?"},
		},
		{
			name:   "refresh",
			action: Refresh(),
			want:   templ.Attributes{"wire:click": "$refresh"},
		},
		{
			name:   "set",
			action: SetTo("filter", "open"),
			want:   templ.Attributes{"wire:click": `$set("filter","open")`},
		},
		{
			name:   "toggle",
			action: Toggle("settings.dark"),
			want:   templ.Attributes{"wire:click": `$toggle("settings.dark")`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.action.Attrs()); diff != "" {
				t.Errorf("Attrs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBindingAttrs(t *testing.T) {
	tests := []struct {
		name    string
		binding *Binding
		want    templ.Attributes
	}{
		{"deferred", Model("user.name"), templ.Attributes{"wire:model": "user.name"}},
		{"live", Model("query").Live(), templ.Attributes{"wire:model.live": "query"}},
		{"blur", Model("email").Blur(), templ.Attributes{"wire:model.blur": "email"}},
		{"live debounced", Model("q").Live().Debounce(2 * time.Second), templ.Attributes{"wire:model.live.debounce.2s": "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.binding.Attrs()); diff != "" {
				t.Errorf("Attrs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{time.Second, "1s"},
		{1500 * time.Millisecond, "1500ms"},
		{250 * time.Millisecond, "250ms"},
		{0, "0s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
