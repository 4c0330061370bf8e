package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"signbridge/internal/domain"
	"signbridge/internal/errs"
	"signbridge/internal/providers/cms"
	"signbridge/internal/service"
)

type API struct {
	Signatures *service.SignatureService
	Tariffs    *service.TariffService
}

func (a *API) Register(m *mux.Router) {
	m.HandleFunc("/v1/signatures/send", a.handleSend(a.Signatures.SendForSignature)).Methods(http.MethodPost)
	m.HandleFunc("/v1/signatures/send-merged", a.handleSend(a.Signatures.SendMergedForSignature)).Methods(http.MethodPost)
	m.HandleFunc("/v1/records/{doctype}/{docname}", a.handleGetRecord).Methods(http.MethodGet)

	m.HandleFunc("/v1/tariffs/{name}/push", a.handlePushTariff).Methods(http.MethodPost)
	m.HandleFunc("/v1/tariffs/assign", a.handleAssignTariff).Methods(http.MethodPost)
	m.HandleFunc("/v1/cms/chargepoints", a.handleChargePoints).Methods(http.MethodGet)
	m.HandleFunc("/v1/cms/chargepoints/{id}/connectors", a.handleConnectors).Methods(http.MethodGet)
	m.HandleFunc("/v1/cms/taxes", a.handleTaxes).Methods(http.MethodGet)
}

type sendFunc func(ctx context.Context, doctype, docname string) (string, error)

// handleSend serves both envelope flows; only the service operation differs.
func (a *API) handleSend(send sendFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SendSignatureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if err := req.Validate(); err != nil {
			http.Error(w, ErrMissingFields, http.StatusBadRequest)
			return
		}

		envelopeID, err := send(r.Context(), req.Doctype, req.Docname)
		if err != nil {
			slog.Error("send for signature failed",
				"err", err,
				"doctype", req.Doctype,
				"docname", req.Docname,
			)
			writeSendError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(domain.SendSignatureResponse{
			EnvelopeID: envelopeID,
			Status:     string(domain.StatusSent),
		})
	}
}

// writeSendError maps the error taxonomy onto HTTP statuses. Provider errors
// keep their raw detail in the body so the operator sees what was rejected.
func writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrUnknownEntityType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errs.ErrConfiguration):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	case errors.Is(err, errs.ErrAuth), errors.Is(err, errs.ErrTemplateFetch),
		errors.Is(err, errs.ErrMerge), errors.Is(err, errs.ErrSubmission):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, ErrDependency, http.StatusBadGateway)
	}
}

func (a *API) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, found, err := a.Signatures.GetRecord(r.Context(), vars["doctype"], vars["docname"])
	if err != nil {
		slog.Error("get record failed", "err", err, "doctype", vars["doctype"], "docname", vars["docname"])
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"doctype":         rec.Doctype,
		"docname":         rec.Name,
		"envelopeId":      rec.EnvelopeID,
		"signatureStatus": rec.SignatureStatus,
		"completedAt":     rec.CompletedAt,
		"declinedAt":      rec.DeclinedAt,
		"voidedAt":        rec.VoidedAt,
	})
}

func (a *API) handlePushTariff(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cmsID, err := a.Tariffs.PushTariff(r.Context(), name)
	if err != nil {
		slog.Error("tariff push failed", "err", err, "tariff", name)
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, ErrNotFound, http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"cmsTariffId": cmsID})
}

func (a *API) handleAssignTariff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mappings []cms.TariffMapping `json:"mappings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if err := a.Tariffs.AssignTariff(r.Context(), req.Mappings); err != nil {
		slog.Error("tariff assign failed", "err", err)
		if errors.Is(err, errs.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func (a *API) handleChargePoints(w http.ResponseWriter, r *http.Request) {
	a.proxyCMSList(w, r, func(ctx context.Context) (any, error) {
		return a.Tariffs.CMS.FetchChargePoints(ctx)
	})
}

func (a *API) handleConnectors(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a.proxyCMSList(w, r, func(ctx context.Context) (any, error) {
		return a.Tariffs.CMS.FetchConnectors(ctx, id)
	})
}

func (a *API) handleTaxes(w http.ResponseWriter, r *http.Request) {
	a.proxyCMSList(w, r, func(ctx context.Context) (any, error) {
		return a.Tariffs.CMS.FetchTaxes(ctx)
	})
}

func (a *API) proxyCMSList(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context) (any, error)) {
	out, err := fetch(r.Context())
	if err != nil {
		slog.Error("cms fetch failed", "err", err, "path", r.URL.Path)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
