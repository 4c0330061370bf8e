package domain

import (
	"errors"
	"strings"
)

type SignatureStatus string

const (
	StatusNone      SignatureStatus = ""
	StatusSent      SignatureStatus = "Sent"
	StatusCompleted SignatureStatus = "Completed"
	StatusDeclined  SignatureStatus = "Declined"
	StatusVoided    SignatureStatus = "Voided"
)

// Terminal reports whether a provider status ends the signing flow.
// Providers deliver statuses in varying case, so the match is case-insensitive.
func Terminal(status string) bool {
	switch strings.ToLower(status) {
	case "completed", "declined", "voided":
		return true
	}
	return false
}

type SendSignatureRequest struct {
	Doctype string `json:"doctype"`
	Docname string `json:"docname"`
}

func (r SendSignatureRequest) Validate() error {
	if r.Doctype == "" || r.Docname == "" {
		return ErrMissingFields
	}
	return nil
}

var ErrMissingFields = errors.New("missing required fields")

type SendSignatureResponse struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}
