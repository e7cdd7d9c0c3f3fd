package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"dompet/internal/core"
	"dompet/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidDate):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"url", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func formID(r *http.Request) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(r.FormValue("id")), 10, 64)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, cached := s.viewCache.Get(viewCacheKey)
	if !cached {
		var err error
		view, err = s.app.Query(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.viewCache.Set(viewCacheKey, view)
	}

	hidden, err := s.app.HideNominal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ledger.View
		HideNominal bool `json:"hide_nominal"`
	}{View: view, HideNominal: hidden})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	totals, err := s.app.CurrentMonthOverview(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	cents, err := core.ParseDecimalToCents(r.FormValue("amount"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseDate(r.FormValue("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx := core.Transaction{
		Type:        core.Type(strings.TrimSpace(r.FormValue("type"))),
		Description: strings.TrimSpace(r.FormValue("description")),
		Amount:      core.Money{Cents: cents},
		Category:    strings.TrimSpace(r.FormValue("category")),
		Date:        date,
	}

	var editID int64
	if v := strings.TrimSpace(r.FormValue("edit_id")); v != "" {
		editID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, core.ErrNotFound)
			return
		}
	}

	if err := s.app.SaveTransaction(r.Context(), tx, editID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	id, err := formID(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}
	if err := s.app.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	id, err := formID(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}
	if err := s.app.TogglePin(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := s.app.Search(r.Context(), r.FormValue("keyword")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	page, err := strconv.Atoi(strings.TrimSpace(r.FormValue("page")))
	if err != nil || page < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page"})
		return
	}
	if err := s.app.SetPage(r.Context(), page); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	archived, err := s.app.Archived(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	type entry struct {
		core.Transaction
		PendingDelete bool `json:"pending_delete"`
	}
	entries := make([]entry, len(archived))
	for i, t := range archived {
		entries[i] = entry{Transaction: t, PendingDelete: s.app.PendingDelete(t.ID)}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleArchiveMove(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	id, err := formID(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}
	if err := s.app.Archive(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	id, err := formID(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}
	if err := s.app.Restore(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	id, err := formID(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}
	started := s.app.ConfirmDelete(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

func (s *Server) handleCancelDelete(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	id, err := formID(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}
	cancelled := s.app.CancelDelete(id)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.SavingsState(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	cents, err := core.ParseDecimalToCents(r.FormValue("value"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.app.SetSavingsTarget(r.Context(), core.Money{Cents: cents}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleClearTarget(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := s.app.ClearSavingsTarget(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	hidden, err := s.app.ToggleHideNominal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hide_nominal": hidden})
}
