package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the store and reports limiter and traffic counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "in-memory"
	}

	total, failed := s.tracer.Counts()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Rejected(),
	}
	checks["requests"] = map[string]any{
		"total":      total,
		"failed":     failed,
		"suspicious": s.detector.SuspiciousRequests(),
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Dashboard.Stats(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(stats))
}

func (s *Server) handleExpenseByCategory(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Dashboard.CategoryBreakdown(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDataDTOs(cats))
}

func (s *Server) handleMonthlyAnalysis(w http.ResponseWriter, r *http.Request) {
	points, err := s.deps.Dashboard.MonthlyTrend(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyDataDTOs(points))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Dashboard.Report(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportDTO{
		Stats:      toStatsDTO(rep.Stats),
		Categories: toCategoryDataDTOs(rep.Categories),
		Monthly:    toMonthlyDataDTOs(rep.Trend),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	us, err := s.deps.Settings.GetSettings(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(us))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsDTO
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	us, err := s.deps.Settings.UpdateSettings(r.Context(), principalFrom(r.Context()), body.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(us))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Transactions.List(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionDTO
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := body.input(true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Create(r.Context(), principalFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionDTO
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := body.input(false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Update(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Transactions.Delete(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted successfully"})
}

func (s *Server) handleConvertTransaction(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("targetCurrency"))
	if target == "" {
		writeStatus(w, r, http.StatusBadRequest, "targetCurrency is required")
		return
	}
	amount, err := s.deps.Transactions.ConvertAmount(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id"), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, money(amount))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Transactions.ListCategories(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryDTO
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := body.category()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.deps.Transactions.CreateCategory(r.Context(), principalFrom(r.Context()), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(created))
}

