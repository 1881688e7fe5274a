package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/harshdev/amazon-gpu-scraper/internal/models"
)

const defaultListLimit = 100

// RecordReader is the read-only store surface the API serves.
type RecordReader interface {
	List(ctx context.Context, limit int) ([]*models.Record, error)
	GetByKey(ctx context.Context, key string) (*models.Record, error)
	CountByKeyType(ctx context.Context) (map[string]int, error)
}

type Handlers struct {
	store  RecordReader
	logger *slog.Logger
}

func NewHandlers(store RecordReader, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:  store,
		logger: logger.With("component", "api"),
	}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/records", h.ListRecords)
		r.Get("/records/{key}", h.GetRecord)
		r.Get("/stats", h.Stats)
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list records", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []*models.Record{}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	record, err := h.store.GetByKey(r.Context(), key)
	if err != nil {
		h.logger.Error("failed to get record", "key", key, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get record")
		return
	}
	if record == nil {
		h.respondError(w, http.StatusNotFound, "record not found")
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByKeyType(r.Context())
	if err != nil {
		h.logger.Error("failed to count records", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to count records")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"total":       total,
		"by_key_type": counts,
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
