package hxwireecho

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxwire"
)

type counter struct {
	hxwire.Base
	Count int `hx:"count"`
}

func (c *counter) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div><span>%d</span></div>`, c.Count)
		return err
	})
}

func (c *counter) Actions() hxwire.Actions {
	return hxwire.Actions{"increment": func() { c.Count++ }}
}

func updateBody(t *testing.T, snapshot string) string {
	t.Helper()
	body, err := json.Marshal(hxwire.UpdateRequest{Components: []hxwire.ComponentUpdate{{
		Snapshot: snapshot,
		Calls:    []hxwire.MethodCall{{Method: "increment", Params: []any{}}},
	}}})
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func post(e *echo.Echo, path, body string, header bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if header {
		req.Header.Set(hxwire.UpdateHeader, "true")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMount(t *testing.T) {
	e := echo.New()
	m := Mount(e)

	if m == nil {
		t.Fatal("Mount returned nil manager")
	}
}

func TestMountWithKey(t *testing.T) {
	e := echo.New()
	key := []byte("0123456789abcdef0123456789abcdef")
	m := Mount(e, WithKey(key))
	m.Component("counter", hxwire.FactoryOf[counter]())

	res, err := m.Mount(context.Background(), "counter", nil, "")
	if err != nil {
		t.Fatal(err)
	}

	// A second manager with the same key accepts the snapshot.
	other := Mount(echo.New(), WithKey(key))
	if _, err := other.Decode(res.Encoded); err != nil {
		t.Errorf("Decode with the same key failed: %v", err)
	}
	// The random development key does not.
	if _, err := Mount(echo.New()).Decode(res.Encoded); !hxwire.IsTampered(err) {
		t.Errorf("Decode with a random key = %v, want ErrTamperedSnapshot", err)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	e := echo.New()
	m := Mount(e)
	m.Component("counter", hxwire.FactoryOf[counter]())

	res, err := m.Mount(context.Background(), "counter", hxwire.Params{"count": 41}, "")
	if err != nil {
		t.Fatal(err)
	}

	rec := post(e, DefaultPath, updateBody(t, string(res.Encoded)), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "\\u003cspan\\u003e42\\u003c/span\\u003e") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestMountWithPath(t *testing.T) {
	e := echo.New()
	m := Mount(e, WithPath("/live"))
	m.Component("counter", hxwire.FactoryOf[counter]())

	res, err := m.Mount(context.Background(), "counter", nil, "")
	if err != nil {
		t.Fatal(err)
	}

	if rec := post(e, "/live", updateBody(t, string(res.Encoded)), true); rec.Code != http.StatusOK {
		t.Errorf("status at /live = %d", rec.Code)
	}
	if rec := post(e, DefaultPath, updateBody(t, string(res.Encoded)), true); rec.Code != http.StatusNotFound {
		t.Errorf("status at default path = %d, want 404", rec.Code)
	}
}

func TestMountGroup(t *testing.T) {
	e := echo.New()
	var seen bool
	g := e.Group("/app", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			seen = true
			return next(c)
		}
	})
	m := MountGroup(g)

	if m == nil {
		t.Fatal("MountGroup returned nil manager")
	}

	post(e, "/app"+DefaultPath, `{"components":[]}`, true)
	if !seen {
		t.Error("group middleware did not run for the update endpoint")
	}
}

func TestWithManagerOptions(t *testing.T) {
	e := echo.New()
	m := Mount(e, WithManagerOptions(hxwire.WithLocale("de")))
	m.Component("counter", hxwire.FactoryOf[counter]())

	res, err := m.Mount(context.Background(), "counter", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Snapshot.Memo.Locale != "de" {
		t.Errorf("Locale = %q, want de", res.Snapshot.Memo.Locale)
	}
}

func TestUpdateHeaderRequired(t *testing.T) {
	e := echo.New()
	Mount(e)

	// POST without the X-Hxwire header should be forbidden
	rec := post(e, DefaultPath, `{"components":[]}`, false)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for POST without %s, got %d", hxwire.UpdateHeader, rec.Code)
	}
}

func TestPage(t *testing.T) {
	e := echo.New()
	m := Mount(e)
	m.Component("counter", hxwire.FactoryOf[counter]())

	e.GET("/counter/:n", Page(m, "counter", func(c echo.Context) hxwire.Params {
		return hxwire.Params{"count": c.Param("n")}
	}))
	e.GET("/ghost", Page(m, "ghost", nil))

	req := httptest.NewRequest(http.MethodGet, "/counter/9", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<span>9</span>") || !strings.Contains(rec.Body.String(), "wire:snapshot=") {
		t.Errorf("body = %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRender(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := Render(c, templ.Raw("<p>hi</p>")); err != nil {
		t.Fatal(err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != "<p>hi</p>" {
		t.Errorf("body = %q", rec.Body)
	}
}
