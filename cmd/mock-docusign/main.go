// mock-docusign is a local stand-in for the DocuSign eSignature API: token
// exchange, userinfo, template documents and envelope creation, plus Connect
// webhook emission with configurable outcome, delays and retries. Useful for
// exercising the full send/reconcile loop without a provider account.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
)

type config struct {
	Port      string `envconfig:"PORT" default:"8081"`
	AccountID string `envconfig:"MOCK_ACCOUNT_ID" default:"acct-mock-1"`

	// Where Connect notifications are POSTed after envelope creation.
	WebhookURL string `envconfig:"MOCK_WEBHOOK_URL" default:""`

	// Final envelope outcome: completed, declined or voided.
	Outcome string `envconfig:"MOCK_OUTCOME" default:"completed"`

	// PayloadShape picks the notification format: "nested" (Connect JSON with
	// data.envelopeSummary) or "flat" (legacy top-level fields).
	PayloadShape string `envconfig:"MOCK_PAYLOAD_SHAPE" default:"nested"`

	WebhookDelayMs     int `envconfig:"MOCK_WEBHOOK_DELAY_MS" default:"500"`
	WebhookMaxRetries  int `envconfig:"MOCK_WEBHOOK_MAX_RETRIES" default:"5"`
	WebhookRetryBaseMs int `envconfig:"MOCK_WEBHOOK_RETRY_BASE_MS" default:"250"`
}

type envelopeRecord struct {
	Doctype string
	Docname string
}

type server struct {
	cfg    config
	idx    uint64
	mu     sync.Mutex
	sent   map[string]envelopeRecord
	client *http.Client
}

func main() {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		slog.Error("mock docusign config load failed", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	s := &server{
		cfg:    cfg,
		sent:   make(map[string]envelopeRecord),
		client: &http.Client{Timeout: 5 * time.Second},
	}

	router := mux.NewRouter()
	router.HandleFunc("/oauth/token", s.handleToken).Methods(http.MethodPost)
	router.HandleFunc("/oauth/userinfo", s.handleUserInfo).Methods(http.MethodGet)
	router.HandleFunc("/restapi/v2.1/accounts/{accountId}/templates/{templateId}", s.handleTemplate).Methods(http.MethodGet)
	router.HandleFunc("/restapi/v2.1/accounts/{accountId}/templates/{templateId}/documents/{documentId}", s.handleTemplateDocument).Methods(http.MethodGet)
	router.HandleFunc("/restapi/v2.1/accounts/{accountId}/envelopes", s.handleCreateEnvelope).Methods(http.MethodPost)

	slog.Info("mock docusign listening", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		slog.Error("mock docusign server failed", "err", err)
		os.Exit(1)
	}
}

func (s *server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("assertion") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": fmt.Sprintf("mock-token-%d", time.Now().UnixNano()),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": []map[string]any{
			{"account_id": s.cfg.AccountID, "is_default": "true"},
		},
	})
}

func (s *server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"templateId": mux.Vars(r)["templateId"],
		"documents": []map[string]string{
			{"documentId": "1", "name": "terms.pdf"},
		},
	})
}

func (s *server) handleTemplateDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(minimalPDF())
}

func (s *server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	var env struct {
		Status       string `json:"status"`
		CustomFields *struct {
			TextCustomFields []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"textCustomFields"`
		} `json:"customFields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errorCode": "INVALID_REQUEST_BODY", "message": err.Error()})
		return
	}

	envelopeID := fmt.Sprintf("env-mock-%d", atomic.AddUint64(&s.idx, 1))
	rec := envelopeRecord{}
	if env.CustomFields != nil {
		for _, f := range env.CustomFields.TextCustomFields {
			switch f.Name {
			case "frappe_doctype":
				rec.Doctype = f.Value
			case "frappe_docname":
				rec.Docname = f.Value
			}
		}
	}
	s.mu.Lock()
	s.sent[envelopeID] = rec
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"envelopeId": envelopeID, "status": "sent"})

	if s.cfg.WebhookURL != "" {
		go s.emitWebhooks(envelopeID, rec)
	}
}

// emitWebhooks sends a delivered notification followed by the configured final
// outcome, retrying each delivery on failure with exponential backoff.
func (s *server) emitWebhooks(envelopeID string, rec envelopeRecord) {
	delay := time.Duration(s.cfg.WebhookDelayMs) * time.Millisecond
	time.Sleep(delay)
	s.postWithRetry(envelopeID, rec, "delivered")
	time.Sleep(delay)
	s.postWithRetry(envelopeID, rec, s.cfg.Outcome)
}

func (s *server) postWithRetry(envelopeID string, rec envelopeRecord, status string) {
	payload := s.buildPayload(envelopeID, rec, status)
	body, _ := json.Marshal(payload)

	for attempt := 0; attempt <= s.cfg.WebhookMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(s.cfg.WebhookRetryBaseMs) * time.Millisecond << (attempt - 1)
			time.Sleep(backoff + time.Duration(rand.Intn(100))*time.Millisecond)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		cancel()
		if err != nil {
			slog.Error("mock webhook delivery failed", "err", err, "envelope_id", envelopeID, "attempt", attempt)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 500 {
			slog.Info("mock webhook delivered", "envelope_id", envelopeID, "status", status, "http_status", resp.StatusCode)
			return
		}
		slog.Warn("mock webhook rejected, retrying", "envelope_id", envelopeID, "http_status", resp.StatusCode, "attempt", attempt)
	}
}

func (s *server) buildPayload(envelopeID string, rec envelopeRecord, status string) map[string]any {
	customFields := map[string]any{
		"textCustomFields": []map[string]string{
			{"name": "frappe_doctype", "value": rec.Doctype},
			{"name": "frappe_docname", "value": rec.Docname},
		},
	}

	if s.cfg.PayloadShape == "flat" {
		return map[string]any{
			"envelopeId":     envelopeID,
			"status":         status,
			"frappe_doctype": rec.Doctype,
			"frappe_docname": rec.Docname,
		}
	}
	return map[string]any{
		"event": "envelope-" + strings.ToLower(status),
		"data": map[string]any{
			"envelopeSummary": map[string]any{
				"envelopeId": envelopeID,
				"status":     status,
			},
			"customFields": customFields,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// minimalPDF returns a tiny single-page PDF with a correct xref table.
func minimalPDF() []byte {
	var buf bytes.Buffer
	offsets := make([]int, 4)
	write := func(i int, s string) {
		if i > 0 {
			offsets[i-1] = buf.Len()
		}
		buf.WriteString(s)
	}
	write(0, "%PDF-1.4\n")
	write(1, "1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	write(2, "2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	write(3, "3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n")
	xref := buf.Len()
	buf.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for _, off := range offsets[:3] {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref))
	return buf.Bytes()
}
