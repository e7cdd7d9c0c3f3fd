package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"dompet/internal/app"
	"dompet/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	application := app.New(store.NewMemoryStore(), app.Options{
		CountdownInterval: 10 * time.Millisecond,
	})
	srv := NewServer(":0", application)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func saveTx(t *testing.T, srv *Server, desc string) int64 {
	t.Helper()
	rr := postForm(srv, "/transactions", url.Values{
		"type":        {"expense"},
		"description": {desc},
		"amount":      {"12.34"},
		"category":    {"Food"},
		"date":        {"2024-05-01"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}

	var view struct {
		Items []struct {
			ID          int64  `json:"id"`
			Description string `json:"description"`
		} `json:"items"`
	}
	vr := get(srv, "/view")
	if err := json.Unmarshal(vr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	for _, item := range view.Items {
		if item.Description == desc {
			return item.ID
		}
	}
	t.Fatalf("saved transaction %q not in view: %s", desc, vr.Body.String())
	return 0
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := get(srv, path); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestSaveTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	// Wrong method
	if rr := get(srv, "/transactions"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Invalid amount
	rr := postForm(srv, "/transactions", url.Values{
		"type": {"expense"}, "description": {"x"}, "amount": {"abc"},
		"category": {"Food"}, "date": {"2024-05-01"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid amount: expected 422, got %d", rr.Code)
	}

	// Invalid date
	rr = postForm(srv, "/transactions", url.Values{
		"type": {"expense"}, "description": {"x"}, "amount": {"1.00"},
		"category": {"Food"}, "date": {"yesterday"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid date: expected 422, got %d", rr.Code)
	}

	// Missing description
	rr = postForm(srv, "/transactions", url.Values{
		"type": {"expense"}, "description": {"  "}, "amount": {"1.00"},
		"category": {"Food"}, "date": {"2024-05-01"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty description: expected 422, got %d", rr.Code)
	}

	// Success
	rr = postForm(srv, "/transactions", url.Values{
		"type": {"income"}, "description": {"Salary"}, "amount": {"1000"},
		"category": {"Job"}, "date": {"2024-05-01"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestViewReflectsMutations(t *testing.T) {
	srv := newTestServer(t)
	id := saveTx(t, srv, "Groceries")

	// The listener refreshed the cached view on save; a second read comes
	// from the cache and must still show the item.
	rr := get(srv, "/view")
	if !strings.Contains(rr.Body.String(), "Groceries") {
		t.Fatalf("cached view missing item: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"hide_nominal":false`) {
		t.Fatalf("view missing visibility flag: %s", rr.Body.String())
	}

	rr = postForm(srv, "/transactions/delete", url.Values{"id": {strconv.FormatInt(id, 10)}})
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = get(srv, "/view")
	if strings.Contains(rr.Body.String(), "Groceries") {
		t.Fatalf("deleted item still in view: %s", rr.Body.String())
	}
}

func TestTogglePinNotFoundStatus(t *testing.T) {
	srv := newTestServer(t)
	rr := postForm(srv, "/transactions/pin", url.Values{"id": {"12345"}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestArchiveFlow(t *testing.T) {
	srv := newTestServer(t)
	id := saveTx(t, srv, "Old bill")
	idStr := strconv.FormatInt(id, 10)

	if rr := postForm(srv, "/archive/move", url.Values{"id": {idStr}}); rr.Code != http.StatusOK {
		t.Fatalf("archive status=%d", rr.Code)
	}
	rr := get(srv, "/archive")
	if !strings.Contains(rr.Body.String(), "Old bill") {
		t.Fatalf("archive listing missing item: %s", rr.Body.String())
	}

	if rr := postForm(srv, "/archive/confirm-delete", url.Values{"id": {idStr}}); !strings.Contains(rr.Body.String(), `"started":true`) {
		t.Fatalf("confirm: %s", rr.Body.String())
	}
	rr = get(srv, "/archive")
	if !strings.Contains(rr.Body.String(), `"pending_delete":true`) {
		t.Fatalf("listing should flag the pending deletion: %s", rr.Body.String())
	}

	if rr := postForm(srv, "/archive/cancel-delete", url.Values{"id": {idStr}}); !strings.Contains(rr.Body.String(), `"cancelled":true`) {
		t.Fatalf("cancel: %s", rr.Body.String())
	}

	if rr := postForm(srv, "/archive/restore", url.Values{"id": {idStr}}); rr.Code != http.StatusOK {
		t.Fatalf("restore status=%d", rr.Code)
	}
	rr = get(srv, "/view")
	if !strings.Contains(rr.Body.String(), "Old bill") {
		t.Fatalf("restored item missing from view: %s", rr.Body.String())
	}
}

func TestSavingsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Clearing with no target set is a 404.
	if rr := postForm(srv, "/savings/target/delete", url.Values{}); rr.Code != http.StatusNotFound {
		t.Fatalf("clear without target: expected 404, got %d", rr.Code)
	}

	if rr := postForm(srv, "/savings/target", url.Values{"value": {"abc"}}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad target: expected 422, got %d", rr.Code)
	}
	if rr := postForm(srv, "/savings/target", url.Values{"value": {"20000"}}); rr.Code != http.StatusOK {
		t.Fatalf("set target status=%d", rr.Code)
	}

	rr := get(srv, "/savings")
	if !strings.Contains(rr.Body.String(), "2000000") {
		t.Fatalf("savings state missing target: %s", rr.Body.String())
	}

	if rr := postForm(srv, "/savings/target/delete", url.Values{}); rr.Code != http.StatusOK {
		t.Fatalf("clear target status=%d", rr.Code)
	}
}

func TestToggleVisibilityEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/visibility/toggle", url.Values{})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"hide_nominal":true`) {
		t.Fatalf("first toggle: status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = postForm(srv, "/visibility/toggle", url.Values{})
	if !strings.Contains(rr.Body.String(), `"hide_nominal":false`) {
		t.Fatalf("second toggle: %s", rr.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rr := get(srv, "/view")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers")
	}
}
