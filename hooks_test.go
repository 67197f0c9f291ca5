package hxwire

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLifecycleHookOrder(t *testing.T) {
	m := newTestManager(t)

	var points []HookPoint
	m.ComponentHook(HookFunc(func(ctx context.Context, ev *HookEvent) error {
		points = append(points, ev.Point)
		return nil
	}))

	res := mustMount(t, m, "counter", nil)
	want := []HookPoint{HookBoot, HookMount, HookRender, HookDehydrate}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("mount hooks mismatch (-want +got):\n%s", diff)
	}

	points = nil
	_, err := m.Update(context.Background(), res.Encoded,
		[]PropertyUpdate{{Path: "count", Value: 2.0}},
		[]MethodCall{{Method: "increment"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	want = []HookPoint{HookBoot, HookHydrate, HookUpdate, HookUpdated, HookCall, HookRender, HookDehydrate}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("update hooks mismatch (-want +got):\n%s", diff)
	}
}

func TestHookEventFields(t *testing.T) {
	m := newTestManager(t)

	var (
		mountParams Params
		update      HookEvent
		call        HookEvent
		states      = map[HookPoint]State{}
	)
	m.ComponentHook(HookFunc(func(ctx context.Context, ev *HookEvent) error {
		switch ev.Point {
		case HookMount:
			mountParams = ev.Params
		case HookUpdate:
			update = *ev
		case HookCall:
			call = *ev
		}
		if ev.Context != nil {
			states[ev.Point] = ev.Context.State()
		}
		return nil
	}))

	res := mustMount(t, m, "counter", Params{"count": 1})
	if mountParams["count"] != 1 {
		t.Errorf("mount params = %v", mountParams)
	}
	if states[HookRender] != StateBooted || states[HookDehydrate] != StateRendered {
		t.Errorf("mount states = %v", states)
	}

	_, err := m.Update(context.Background(), res.Encoded,
		[]PropertyUpdate{{Path: "count", Value: 7.0}},
		[]MethodCall{{Method: "add", Params: []any{2.0}}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if update.Path != "count" || update.Value != 7.0 {
		t.Errorf("update event = %+v", update)
	}
	if call.Method != "add" || len(call.Args) != 1 || call.Args[0] != 2.0 {
		t.Errorf("call event = %+v", call)
	}
	if states[HookCall] != StateUpdated || states[HookRender] != StateUpdated {
		t.Errorf("update states = %v", states)
	}
}

func TestHookVetoes(t *testing.T) {
	readOnly := errors.New("read only")

	tests := []struct {
		name    string
		point   HookPoint
		updates []PropertyUpdate
		calls   []MethodCall
	}{
		{"write", HookUpdate, []PropertyUpdate{{Path: "count", Value: 9.0}}, nil},
		{"call", HookCall, nil, []MethodCall{{Method: "increment"}}},
		{"hydrate", HookHydrate, nil, nil},
		{"dehydrate", HookDehydrate, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			res := mustMount(t, m, "counter", nil)

			m.Listen(tt.point, func(ctx context.Context, ev *HookEvent) error {
				return readOnly
			})

			_, err := m.Update(context.Background(), res.Encoded, tt.updates, tt.calls)
			if !errors.Is(err, readOnly) {
				t.Fatalf("Update() = %v, want the hook's error", err)
			}
			want := "hxwire: " + string(tt.point) + " hook: read only"
			if err.Error() != want {
				t.Errorf("Error() = %q, want %q", err.Error(), want)
			}
		})
	}
}

func TestHookStopsAtFirstError(t *testing.T) {
	var h Hooks
	calls := 0
	h.Register(HookFunc(func(ctx context.Context, ev *HookEvent) error {
		calls++
		return errors.New("first")
	}))
	h.Register(HookFunc(func(ctx context.Context, ev *HookEvent) error {
		calls++
		return nil
	}))

	if err := h.fire(context.Background(), &HookEvent{Point: HookBoot}); err == nil {
		t.Fatal("fire() = nil, want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestOnFiltersByPoint(t *testing.T) {
	seen := 0
	hook := On(HookFlush, func(ctx context.Context, ev *HookEvent) error {
		seen++
		return nil
	})

	for _, p := range []HookPoint{HookBoot, HookRender, HookFlush} {
		if err := hook.Handle(context.Background(), &HookEvent{Point: p}); err != nil {
			t.Fatal(err)
		}
	}
	if seen != 1 {
		t.Errorf("seen = %d, want 1", seen)
	}
}

func TestFlushState(t *testing.T) {
	m := newTestManager(t)

	flushed := 0
	m.Listen(HookFlush, func(ctx context.Context, ev *HookEvent) error {
		flushed++
		return nil
	})

	for i := 0; i < 2; i++ {
		if err := m.FlushState(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if flushed != 2 {
		t.Errorf("flushed = %d, want 2", flushed)
	}
}

func TestHooksRegisterNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Register(nil) did not panic")
		}
	}()
	var h Hooks
	h.Register(nil)
}
