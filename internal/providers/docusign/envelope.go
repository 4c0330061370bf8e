package docusign

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"signbridge/internal/errs"
)

// Wire types for envelope creation. DocuSign expects numeric fields as strings.

type Document struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

type TabPosition struct {
	DocumentID string `json:"documentId"`
	PageNumber string `json:"pageNumber"`
	XPosition  string `json:"xPosition"`
	YPosition  string `json:"yPosition"`
}

type Tabs struct {
	SignHereTabs   []TabPosition `json:"signHereTabs,omitempty"`
	DateSignedTabs []TabPosition `json:"dateSignedTabs,omitempty"`
}

type Signer struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	Tabs         Tabs   `json:"tabs"`
}

type Recipients struct {
	Signers []Signer `json:"signers"`
}

type TextCustomField struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Required string `json:"required"`
	Show     string `json:"show"`
}

type CustomFields struct {
	TextCustomFields []TextCustomField `json:"textCustomFields"`
}

type EnvelopeDefinition struct {
	EmailSubject string        `json:"emailSubject"`
	Documents    []Document    `json:"documents"`
	Recipients   Recipients    `json:"recipients"`
	CustomFields *CustomFields `json:"customFields,omitempty"`
	Status       string        `json:"status"`
}

// RecordInfo is the slice of the host record the envelope builders consume.
type RecordInfo struct {
	Doctype       string
	Name          string
	CustomerEmail string
	CustomerName  string
	SupplierEmail string
	SupplierName  string
}

// Custom field names echoed back by DocuSign Connect in every notification;
// the only way a webhook maps back to the originating record.
const (
	CustomFieldDoctype = "frappe_doctype"
	CustomFieldDocname = "frappe_docname"
)

// Tab coordinates. Sender tabs sit in the left margin, receiver tabs in the
// right, so the two blocks never overlap on the shared signature page.
const (
	senderSignX   = "100"
	senderDateX   = "100"
	receiverSignX = "400"
	receiverDateX = "400"
	tabSignY      = "650"
	tabDateY      = "700"
)

// BuildSingleSignerEnvelope assembles a one-document, one-signer envelope with
// tabs on the first page of the generated PDF.
func BuildSingleSignerEnvelope(rec RecordInfo, pdf []byte) (EnvelopeDefinition, error) {
	if rec.CustomerEmail == "" {
		return EnvelopeDefinition{}, fmt.Errorf("recipient email is required: %w", errs.ErrValidation)
	}

	signer := Signer{
		Email:        rec.CustomerEmail,
		Name:         rec.CustomerName,
		RecipientID:  "1",
		RoutingOrder: "1",
		Tabs: Tabs{
			SignHereTabs:   []TabPosition{{DocumentID: "1", PageNumber: "1", XPosition: "100", YPosition: "100"}},
			DateSignedTabs: []TabPosition{{DocumentID: "1", PageNumber: "1", XPosition: "200", YPosition: "100"}},
		},
	}

	return EnvelopeDefinition{
		EmailSubject: "Document for Signature: " + rec.Name,
		Documents:    []Document{pdfDocument(rec.Name, pdf)},
		Recipients:   Recipients{Signers: []Signer{signer}},
		CustomFields: correlationFields(rec),
		Status:       "sent",
	}, nil
}

// BuildMergedEnvelope assembles the dual-party envelope around a merged
// template+contract PDF. The supplier signs first (routing order 1), then the
// customer (routing order 2); both sign on the last page. When the record has
// no supplier the customer is the sole signer.
func BuildMergedEnvelope(rec RecordInfo, merged []byte, totalPages int) (EnvelopeDefinition, error) {
	if rec.CustomerEmail == "" {
		return EnvelopeDefinition{}, fmt.Errorf("recipient email is required: %w", errs.ErrValidation)
	}
	if totalPages < 1 {
		return EnvelopeDefinition{}, fmt.Errorf("merged document has no pages: %w", errs.ErrValidation)
	}
	lastPage := strconv.Itoa(totalPages)

	var signers []Signer
	routing := 1
	if rec.SupplierEmail != "" {
		signers = append(signers, Signer{
			Email:        rec.SupplierEmail,
			Name:         rec.SupplierName,
			RecipientID:  strconv.Itoa(routing),
			RoutingOrder: strconv.Itoa(routing),
			Tabs:         lastPageTabs(lastPage, senderSignX, senderDateX),
		})
		routing++
	}
	signers = append(signers, Signer{
		Email:        rec.CustomerEmail,
		Name:         rec.CustomerName,
		RecipientID:  strconv.Itoa(routing),
		RoutingOrder: strconv.Itoa(routing),
		Tabs:         lastPageTabs(lastPage, receiverSignX, receiverDateX),
	})

	return EnvelopeDefinition{
		EmailSubject: "Contract for Signature: " + rec.Name,
		Documents:    []Document{pdfDocument(rec.Name, merged)},
		Recipients:   Recipients{Signers: signers},
		CustomFields: correlationFields(rec),
		Status:       "sent",
	}, nil
}

func pdfDocument(name string, pdf []byte) Document {
	return Document{
		DocumentBase64: base64.StdEncoding.EncodeToString(pdf),
		Name:           name,
		FileExtension:  "pdf",
		DocumentID:     "1",
	}
}

func lastPageTabs(page, signX, dateX string) Tabs {
	return Tabs{
		SignHereTabs:   []TabPosition{{DocumentID: "1", PageNumber: page, XPosition: signX, YPosition: tabSignY}},
		DateSignedTabs: []TabPosition{{DocumentID: "1", PageNumber: page, XPosition: dateX, YPosition: tabDateY}},
	}
}

func correlationFields(rec RecordInfo) *CustomFields {
	return &CustomFields{TextCustomFields: []TextCustomField{
		{Name: CustomFieldDoctype, Value: rec.Doctype, Required: "false", Show: "false"},
		{Name: CustomFieldDocname, Value: rec.Name, Required: "false", Show: "false"},
	}}
}
