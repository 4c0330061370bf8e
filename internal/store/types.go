package store

import "time"

// Record is the slice of a host record this core reads and writes.
type Record struct {
	Doctype       string
	Name          string
	Title         string
	CustomerEmail string
	CustomerName  string
	SupplierEmail string
	SupplierName  string

	EnvelopeID         string
	SignatureStatus    string
	CompletedAt        *time.Time
	DeclinedAt         *time.Time
	VoidedAt           *time.Time
	SignatureUpdatedAt *time.Time
}

type EnvelopeSentUpdate struct {
	Doctype    string
	Name       string
	EnvelopeID string
	Status     string
	Now        time.Time
}

// SignatureStatusUpdate applies a webhook-delivered status. The terminal
// timestamp column (completed/declined/voided) is derived from Status
// case-insensitively; reapplying the same update is safe.
type SignatureStatusUpdate struct {
	Doctype    string
	Name       string
	EnvelopeID string
	Status     string
	Now        time.Time
}

type WebhookEventInsert struct {
	ID         string
	EnvelopeID string
	Status     string
	Doctype    string
	Docname    string
	Payload    map[string]any
	ReceivedAt time.Time
}

// Tariff is the CMS push view of a tariff record.
type Tariff struct {
	Name          string
	TariffName    string
	Type          string
	Value         float64
	ServiceFee    float64
	Currency      string
	TaxIdentifier string
	CMSTariffID   string
	PushedToCMS   bool
}
