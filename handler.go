package hxwire

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
)

// UpdateHeader marks requests sent by the client runtime. Updates without
// it are rejected, which blocks cross-site form posts without a token.
const UpdateHeader = "X-Hxwire"

const maxUpdateBody = 1 << 20

// UpdateRequest is the body of an update request. Each entry is applied to
// its own component independently.
type UpdateRequest struct {
	Components []ComponentUpdate `json:"components"`
}

// ComponentUpdate is one component's mutation batch.
type ComponentUpdate struct {
	Snapshot string           `json:"snapshot"`
	Updates  []PropertyUpdate `json:"updates"`
	Calls    []MethodCall     `json:"calls"`
}

// UpdateResponse is the body of an update response, in request order.
type UpdateResponse struct {
	Components []ComponentResponse `json:"components"`
}

// ComponentResponse carries a component's new snapshot and its effects.
type ComponentResponse struct {
	Snapshot string          `json:"snapshot"`
	Effects  ResponseEffects `json:"effects"`
}

// ResponseEffects is the markup plus side effects of one component.
type ResponseEffects struct {
	HTML string `json:"html"`
	Effects
}

// IsUpdateRequest returns true if the request was sent by the client runtime.
func IsUpdateRequest(r *http.Request) bool {
	return r.Header.Get(UpdateHeader) == "true"
}

// Handler returns the HTTP handler for component updates. Mount it at the
// configured update path:
//
//	http.Handle("/hxwire/update", m.Handler())
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		// CSRF protection: the client runtime always sends the header
		if !IsUpdateRequest(r) {
			http.Error(w, "Forbidden: hxwire request required", http.StatusForbidden)
			return
		}

		var req UpdateRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody))
		if err := dec.Decode(&req); err != nil {
			m.OnError(w, r, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
			return
		}
		if len(req.Components) == 0 {
			m.OnError(w, r, fmt.Errorf("%w: no components", ErrInvalidRequest))
			return
		}

		ctx := WithRequest(r.Context(), RequestInfoFromHTTP(r))
		resp := UpdateResponse{Components: make([]ComponentResponse, 0, len(req.Components))}
		for _, cu := range req.Components {
			res, err := m.Update(ctx, []byte(cu.Snapshot), cu.Updates, cu.Calls)
			if err != nil {
				m.OnError(w, r, err)
				return
			}
			resp.Components = append(resp.Components, ComponentResponse{
				Snapshot: string(res.Encoded),
				Effects: ResponseEffects{
					HTML:    res.HTML,
					Effects: res.Effects,
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			m.logger.Error("write update response", "error", err)
		}
	})
}

func (m *Manager) defaultOnError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsNotFound(err):
		http.Error(w, "Not found", http.StatusNotFound)
	case IsTampered(err), IsHydrationError(err), IsInvalidRequest(err):
		http.Error(w, "Bad request", http.StatusBadRequest)
	default:
		m.logger.Error("component update failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// Render writes a templ component to the HTTP response.
//
//	func page(w http.ResponseWriter, r *http.Request) {
//	    hxwire.Render(w, r, layout(body))
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// MountHandler returns an http.Handler rendering name as a full response.
// params are built per request.
func (m *Manager) MountHandler(name string, params func(*http.Request) Params) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Params
		if params != nil {
			p = params(r)
		}
		ctx := WithRequest(r.Context(), RequestInfoFromHTTP(r))
		res, err := m.Mount(ctx, name, p, "")
		if err != nil {
			m.OnError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(res.HTML))
	})
}
