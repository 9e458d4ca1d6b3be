package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
)

func handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Money Manager API LIVE! 🚀"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
	defer cancel()

	if err := s.ledger.Ready(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, r, log.OpList, err, "")
		return
	}

	txs, err := s.ledger.List(r.Context(), f)
	if err != nil {
		s.respondError(w, r, log.OpList, err, "")
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, r, log.OpStats, err, "")
		return
	}

	st, err := s.ledger.Stats(r.Context(), f)
	if err != nil {
		s.respondError(w, r, log.OpStats, err, "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req services.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, log.OpCreate, err, "")
		return
	}

	tx, err := s.ledger.Create(r.Context(), req)
	if err != nil {
		s.respondError(w, r, log.OpCreate, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req services.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, log.OpUpdate, err, msgEditExpired)
		return
	}

	tx, err := s.ledger.Update(r.Context(), id, req)
	if err != nil {
		s.respondError(w, r, log.OpUpdate, err, msgEditExpired)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.ledger.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, log.OpDelete, err, msgDeleteExpired)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Transaction deleted"})
}
