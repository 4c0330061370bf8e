package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"signbridge/internal/httpserver"
	"signbridge/internal/observability"
	"signbridge/internal/store"
	"signbridge/internal/util"
)

type Store interface {
	EntityTypeKnown(ctx context.Context, doctype string) (bool, error)
	GetRecord(ctx context.Context, doctype, name string) (store.Record, bool, error)
	ApplySignatureStatus(ctx context.Context, in store.SignatureStatusUpdate) (bool, error)
	InsertWebhookEvent(ctx context.Context, in store.WebhookEventInsert) error
}

type Handler struct {
	Store Store
	IDGen func() string
	Now   func() time.Time
}

func (h *Handler) Register(m *mux.Router) {
	m.HandleFunc("/v1/webhooks/docusign", h.handleConnect).Methods(http.MethodPost)
}

// handleConnect is the last line of defense for an unauthenticated endpoint:
// every code path returns a status/body pair and internal detail never leaks
// to the caller. Deliveries arrive out of order and may be replayed; applying
// the same status twice converges to the same record state.
func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	payload := ParseBody(r)
	f := Extract(payload)

	// Audit every delivery, valid or not. Best-effort: a failed insert must
	// not reject a notification the record update could still apply.
	if err := h.Store.InsertWebhookEvent(r.Context(), store.WebhookEventInsert{
		ID:         h.idgen(),
		EnvelopeID: f.EnvelopeID,
		Status:     f.Status,
		Doctype:    f.Doctype,
		Docname:    f.Docname,
		Payload:    payload,
		ReceivedAt: h.now(),
	}); err != nil {
		slog.Error("webhook audit insert failed", "err", err, "envelope_id", f.EnvelopeID)
	}

	if f.EnvelopeID == "" {
		h.reject(w, "missing_envelope_id", httpserver.ErrMissingEnvelopeID, http.StatusBadRequest)
		return
	}
	if f.Status == "" {
		h.reject(w, "missing_status", httpserver.ErrMissingStatus, http.StatusBadRequest)
		return
	}
	if f.Doctype == "" || f.Docname == "" {
		h.reject(w, "missing_correlation", httpserver.ErrMissingCorrelation, http.StatusBadRequest)
		return
	}

	known, err := h.Store.EntityTypeKnown(r.Context(), f.Doctype)
	if err != nil {
		slog.Error("webhook entity type lookup failed", "err", err, "doctype", f.Doctype)
		h.reject(w, "store_error", httpserver.ErrInternal, http.StatusInternalServerError)
		return
	}
	if !known {
		h.reject(w, "unknown_entity_type", httpserver.ErrUnknownEntityType, http.StatusBadRequest)
		return
	}

	rec, found, err := h.Store.GetRecord(r.Context(), f.Doctype, f.Docname)
	if err != nil {
		slog.Error("webhook record lookup failed", "err", err, "doctype", f.Doctype, "docname", f.Docname)
		h.reject(w, "store_error", httpserver.ErrInternal, http.StatusInternalServerError)
		return
	}
	if !found {
		h.reject(w, "record_not_found", httpserver.ErrNotFound, http.StatusNotFound)
		return
	}

	observability.WebhookEvents.WithLabelValues(strings.ToLower(f.Status)).Inc()
	slog.Info("webhook status transition",
		"doctype", f.Doctype,
		"docname", f.Docname,
		"envelope_id", f.EnvelopeID,
		"previous_status", rec.SignatureStatus,
		"new_status", f.Status,
	)

	applied, err := h.Store.ApplySignatureStatus(r.Context(), store.SignatureStatusUpdate{
		Doctype:    f.Doctype,
		Name:       f.Docname,
		EnvelopeID: f.EnvelopeID,
		Status:     f.Status,
		Now:        h.now(),
	})
	if err != nil {
		slog.Error("webhook status update failed", "err", err, "doctype", f.Doctype, "docname", f.Docname)
		h.reject(w, "store_error", httpserver.ErrInternal, http.StatusInternalServerError)
		return
	}
	if !applied {
		// Record vanished between lookup and update.
		h.reject(w, "record_not_found", httpserver.ErrNotFound, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "envelopeId": f.EnvelopeID})
}

func (h *Handler) reject(w http.ResponseWriter, reason, msg string, code int) {
	observability.WebhookRejects.WithLabelValues(reason).Inc()
	http.Error(w, msg, code)
}

func (h *Handler) idgen() string {
	if h.IDGen != nil {
		return h.IDGen()
	}
	return util.NewEventID()
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return util.NowUTC()
}
