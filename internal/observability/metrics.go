package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signbridge_api_requests_total", Help: "API requests"},
		[]string{"endpoint", "status"},
	)
	EnvelopeSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signbridge_envelope_sends_total", Help: "Envelope submission outcomes"},
		[]string{"result", "mode"},
	)
	DocuSignLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "signbridge_docusign_latency_seconds", Help: "DocuSign call latency"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signbridge_webhook_events_total", Help: "Webhook notifications by provider status"},
		[]string{"status"},
	)
	WebhookRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signbridge_webhook_rejects_total", Help: "Webhook notifications rejected"},
		[]string{"reason"},
	)
	CMSPush = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signbridge_cms_push_total", Help: "CMS tariff push outcomes"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, EnvelopeSends, DocuSignLatency, WebhookEvents, WebhookRejects, CMSPush)
}
