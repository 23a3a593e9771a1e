package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"mess/internal/core"
	"mess/internal/export"
	applog "mess/internal/log"
	"mess/internal/metrics"
	"mess/internal/services"
)

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := s.billing.Period(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "get_period", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePeriod(w http.ResponseWriter, r *http.Request) {
	var in services.PeriodInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.billing.UpdatePeriod(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, "update_period", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	entry, err := s.billing.Calculate(r.Context())
	if err != nil {
		s.writeServiceError(w, r, applog.OpCalculate, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type historyResponse struct {
	Entries []core.HistoryEntry `json:"entries"`
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.billing.History(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list_history", err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Entries: nonNil(entries)})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entry, err := s.billing.HistoryEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, "get_history", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handlePrintPDF(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "pdf", "application/pdf", export.PDF)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.XLSX)
}

func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, format, contentType string, render func(core.HistoryEntry) ([]byte, error)) {
	start := time.Now()
	entry, err := s.billing.HistoryEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpExport, err)
		return
	}

	data, err := render(entry)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		s.writeServiceError(w, r, applog.OpExport, fmt.Errorf("render %s: %w", format, err))
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))

	filename := fmt.Sprintf("mess-bill-%s.%s", entry.CreatedAt.Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, entry.CreatedAt, bytes.NewReader(data))
}

type shareResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
	Text      string    `json:"text"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	entry, err := s.billing.HistoryEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, applog.OpShare, err)
		return
	}
	token, expiresAt := s.shares.Create(entry.ID)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Share link created",
		applog.FieldHistoryID, entry.ID,
		applog.FieldShareToken, token)
	writeJSON(w, http.StatusCreated, shareResponse{
		Token:     token,
		URL:       "/share/" + token,
		ExpiresAt: expiresAt,
		Text:      export.ShareText(entry),
	})
}

func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	id, ok := s.shares.Resolve(r.PathValue("token"))
	if !ok {
		http.Error(w, "share link expired or unknown", http.StatusNotFound)
		return
	}
	entry, err := s.billing.HistoryEntry(r.Context(), id)
	if err != nil {
		if services.IsNotFound(err) {
			http.Error(w, "calculation no longer available", http.StatusNotFound)
			return
		}
		s.writeServiceError(w, r, applog.OpShare, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(export.ShareText(entry)))
}

// handleRevokeShare is idempotent; unknown tokens also answer 204.
func (s *Server) handleRevokeShare(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	s.shares.Revoke(token)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Share link revoked",
		applog.FieldShareToken, token)
	w.WriteHeader(http.StatusNoContent)
}

type notifyRequest struct {
	Month      string               `json:"month"`
	Recipients []services.Recipient `json:"recipients"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Recipients) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "at least one recipient is required")
		return
	}
	report, err := s.billing.Notify(r.Context(), r.PathValue("id"), req.Month, req.Recipients)
	if err != nil {
		s.writeServiceError(w, r, applog.OpNotify, err)
		return
	}
	status := http.StatusOK
	if report.Queued > 0 {
		status = http.StatusAccepted
	}
	writeJSON(w, status, report)
}
