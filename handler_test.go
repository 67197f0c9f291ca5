package hxwire

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func postUpdate(t *testing.T, h http.Handler, req UpdateRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, "/hxwire/update", strings.NewReader(string(body)))
	r.Header.Set(UpdateHeader, "true")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandlerUpdate(t *testing.T) {
	m := newTestManager(t)
	first := mustMount(t, m, "counter", Params{"count": 1})
	second := mustMount(t, m, "profile", Params{"user": map[string]any{"name": "Ann"}})

	w := postUpdate(t, m.Handler(), UpdateRequest{Components: []ComponentUpdate{
		{Snapshot: string(first.Encoded), Calls: []MethodCall{{Method: "increment", Params: []any{}}}},
		{Snapshot: string(second.Encoded), Calls: []MethodCall{{Method: "save", Params: []any{}}}},
	}})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp UpdateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Components) != 2 {
		t.Fatalf("len(Components) = %d, want 2", len(resp.Components))
	}

	counterResp := resp.Components[0]
	if !strings.Contains(counterResp.Effects.HTML, "<span>2</span>") {
		t.Errorf("HTML = %q", counterResp.Effects.HTML)
	}
	snap, err := m.Decode([]byte(counterResp.Snapshot))
	if err != nil {
		t.Fatalf("Decode(response snapshot) error = %v", err)
	}
	if snap.Data["count"] != json.Number("2") {
		t.Errorf("count = %v, want 2", snap.Data["count"])
	}

	wantFlashes := []Flash{{Level: FlashSuccess, Message: "Saved Ann"}}
	if diff := cmp.Diff(wantFlashes, resp.Components[1].Effects.Flashes); diff != "" {
		t.Errorf("flashes mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerEffectsJSON(t *testing.T) {
	out, err := json.Marshal(ResponseEffects{
		HTML:    "ok",
		Effects: Effects{Redirect: "/done"},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Effects are flattened next to the markup; empty lists are omitted.
	want := `{"html":"ok","redirect":"/done"}`
	if string(out) != want {
		t.Errorf("json = %s, want %s", out, want)
	}
}

func TestHandlerRejections(t *testing.T) {
	m := newTestManager(t)
	valid := mustMount(t, m, "counter", nil)

	retired := newTestManager(t)
	retired.Component("legacy", FactoryOf[counter]())
	orphan := mustMount(t, retired, "legacy", nil)

	tests := []struct {
		name       string
		method     string
		header     bool
		body       string
		wantStatus int
	}{
		{"wrong method", http.MethodGet, true, "", http.StatusMethodNotAllowed},
		{"missing header", http.MethodPost, false, `{"components":[]}`, http.StatusForbidden},
		{"malformed body", http.MethodPost, true, `{"components":`, http.StatusBadRequest},
		{"no components", http.MethodPost, true, `{"components":[]}`, http.StatusBadRequest},
		{"tampered snapshot", http.MethodPost, true, updateBody(t, `{"memo":{},"data":{},"checksum":"x"}`, "increment"), http.StatusBadRequest},
		{"unknown component", http.MethodPost, true, updateBody(t, string(orphan.Encoded), "increment"), http.StatusNotFound},
		{"method failure", http.MethodPost, true, updateBody(t, string(valid.Encoded), "boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/hxwire/update", strings.NewReader(tt.body))
			if tt.header {
				r.Header.Set(UpdateHeader, "true")
			}
			w := httptest.NewRecorder()
			m.Handler().ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %q)", w.Code, tt.wantStatus, w.Body)
			}
		})
	}
}

func updateBody(t *testing.T, snapshot, method string) string {
	t.Helper()
	body, err := json.Marshal(UpdateRequest{Components: []ComponentUpdate{
		{Snapshot: snapshot, Calls: []MethodCall{{Method: method, Params: []any{}}}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestHandlerCustomOnError(t *testing.T) {
	m := newTestManager(t)

	var got error
	m.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}

	r := httptest.NewRequest(http.MethodPost, "/hxwire/update", strings.NewReader("nope"))
	r.Header.Set(UpdateHeader, "true")
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
	if !IsInvalidRequest(got) {
		t.Errorf("OnError got %v, want ErrInvalidRequest", got)
	}
}

func TestMountHandler(t *testing.T) {
	m := newTestManager(t)
	h := m.MountHandler("counter", func(r *http.Request) Params {
		return Params{"count": r.URL.Query().Get("start")}
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/counter?start=5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if !strings.Contains(w.Body.String(), "<span>5</span>") || !strings.Contains(w.Body.String(), `wire:id="c1"`) {
		t.Errorf("body = %s", w.Body)
	}

	snap, err := m.Decode([]byte(extractSnapshot(t, w.Body.String())))
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if snap.Memo.Path != "/counter" || snap.Memo.Method != http.MethodGet {
		t.Errorf("memo = %+v, want the mounting request", snap.Memo)
	}

	w = httptest.NewRecorder()
	m.MountHandler("ghost", nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// extractSnapshot pulls the wire:snapshot attribute out of markup.
func extractSnapshot(t *testing.T, markup string) string {
	t.Helper()
	_, rest, ok := strings.Cut(markup, `wire:snapshot="`)
	if !ok {
		t.Fatalf("no snapshot in %q", markup)
	}
	attr, _, _ := strings.Cut(rest, `"`)
	return strings.ReplaceAll(attr, "&#34;", `"`)
}

func TestIsUpdateRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	if IsUpdateRequest(r) {
		t.Error("plain request detected as update")
	}
	r.Header.Set(UpdateHeader, "true")
	if !IsUpdateRequest(r) {
		t.Error("update request not detected")
	}
}
