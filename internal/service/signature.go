package service

import (
	"context"
	"fmt"
	"time"

	"signbridge/internal/errs"
	"signbridge/internal/observability"
	"signbridge/internal/pdfmerge"
	"signbridge/internal/providers/docusign"
	"signbridge/internal/render"
	"signbridge/internal/store"
	"signbridge/internal/util"
)

type Store interface {
	EntityTypeKnown(ctx context.Context, doctype string) (bool, error)
	GetRecord(ctx context.Context, doctype, name string) (store.Record, bool, error)
	MarkEnvelopeSent(ctx context.Context, in store.EnvelopeSentUpdate) error
}

type TokenSource interface {
	Token(ctx context.Context) (docusign.Credential, error)
	AccountID(ctx context.Context, token string) (string, error)
}

type EnvelopeAPI interface {
	FetchTemplateDocument(ctx context.Context, token, accountID, templateID string) ([]byte, error)
	CreateEnvelope(ctx context.Context, token, accountID string, env docusign.EnvelopeDefinition) (string, error)
}

// SignatureService orchestrates the outbound flow: credential, render, build,
// submit, persist. The record is mutated only after a successful submission.
type SignatureService struct {
	Store    Store
	Tokens   TokenSource
	API      EnvelopeAPI
	Renderer render.Renderer

	// TemplateID is the provider-hosted template merged in front of the
	// generated contract in the merged flow.
	TemplateID string

	// Merge and PageCount are overridable in tests; default to pdfmerge.
	Merge     func(first, second []byte) ([]byte, error)
	PageCount func(b []byte) (int, error)
}

// SendForSignature runs the single-signer flow: the generated contract PDF
// alone, customer signs on page one.
func (s *SignatureService) SendForSignature(ctx context.Context, doctype, docname string) (string, error) {
	rec, err := s.loadRecord(ctx, doctype, docname)
	if err != nil {
		return "", err
	}

	cred, accountID, err := s.credentials(ctx)
	if err != nil {
		return "", err
	}

	pdf, err := s.Renderer.RenderPDF(ctx, doctype, docname)
	if err != nil {
		return "", fmt.Errorf("render contract: %w", err)
	}

	env, err := docusign.BuildSingleSignerEnvelope(recordInfo(rec), pdf)
	if err != nil {
		return "", err
	}
	return s.submit(ctx, cred, accountID, rec, env, "single")
}

// SendMergedForSignature runs the template-merge flow: the provider-hosted
// template pages in front of the generated contract, supplier and customer
// signing in sequence on the last page.
func (s *SignatureService) SendMergedForSignature(ctx context.Context, doctype, docname string) (string, error) {
	if s.TemplateID == "" {
		return "", fmt.Errorf("template id not set: %w", errs.ErrConfiguration)
	}

	rec, err := s.loadRecord(ctx, doctype, docname)
	if err != nil {
		return "", err
	}

	cred, accountID, err := s.credentials(ctx)
	if err != nil {
		return "", err
	}

	generated, err := s.Renderer.RenderPDF(ctx, doctype, docname)
	if err != nil {
		return "", fmt.Errorf("render contract: %w", err)
	}

	template, err := s.API.FetchTemplateDocument(ctx, cred.Token, accountID, s.TemplateID)
	if err != nil {
		return "", err
	}

	merged, err := s.merge(template, generated)
	if err != nil {
		return "", err
	}
	totalPages, err := s.pageCount(merged)
	if err != nil {
		return "", err
	}

	env, err := docusign.BuildMergedEnvelope(recordInfo(rec), merged, totalPages)
	if err != nil {
		return "", err
	}
	return s.submit(ctx, cred, accountID, rec, env, "merged")
}

func (s *SignatureService) GetRecord(ctx context.Context, doctype, docname string) (store.Record, bool, error) {
	return s.Store.GetRecord(ctx, doctype, docname)
}

func (s *SignatureService) loadRecord(ctx context.Context, doctype, docname string) (store.Record, error) {
	known, err := s.Store.EntityTypeKnown(ctx, doctype)
	if err != nil {
		return store.Record{}, err
	}
	if !known {
		return store.Record{}, fmt.Errorf("doctype %q: %w", doctype, errs.ErrUnknownEntityType)
	}

	rec, found, err := s.Store.GetRecord(ctx, doctype, docname)
	if err != nil {
		return store.Record{}, err
	}
	if !found {
		return store.Record{}, fmt.Errorf("%s/%s: %w", doctype, docname, errs.ErrNotFound)
	}
	if rec.CustomerEmail == "" {
		return store.Record{}, fmt.Errorf("recipient email is required: %w", errs.ErrValidation)
	}
	return rec, nil
}

func (s *SignatureService) credentials(ctx context.Context) (docusign.Credential, string, error) {
	cred, err := s.Tokens.Token(ctx)
	if err != nil {
		return docusign.Credential{}, "", err
	}
	accountID, err := s.Tokens.AccountID(ctx, cred.Token)
	if err != nil {
		return docusign.Credential{}, "", err
	}
	return cred, accountID, nil
}

func (s *SignatureService) submit(ctx context.Context, cred docusign.Credential, accountID string, rec store.Record, env docusign.EnvelopeDefinition, mode string) (string, error) {
	start := time.Now()
	envelopeID, err := s.API.CreateEnvelope(ctx, cred.Token, accountID, env)
	observability.DocuSignLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.EnvelopeSends.WithLabelValues("error", mode).Inc()
		return "", err
	}
	observability.EnvelopeSends.WithLabelValues("ok", mode).Inc()

	if err := s.Store.MarkEnvelopeSent(ctx, store.EnvelopeSentUpdate{
		Doctype:    rec.Doctype,
		Name:       rec.Name,
		EnvelopeID: envelopeID,
		Status:     "Sent",
		Now:        util.NowUTC(),
	}); err != nil {
		// Envelope is out; the webhook flow will still reconcile it.
		return envelopeID, fmt.Errorf("persist envelope id: %w", err)
	}
	return envelopeID, nil
}

func (s *SignatureService) merge(template, generated []byte) ([]byte, error) {
	if s.Merge != nil {
		return s.Merge(template, generated)
	}
	return pdfmerge.Merge(template, generated)
}

func (s *SignatureService) pageCount(b []byte) (int, error) {
	if s.PageCount != nil {
		return s.PageCount(b)
	}
	return pdfmerge.PageCount(b)
}

func recordInfo(rec store.Record) docusign.RecordInfo {
	name := rec.CustomerName
	if name == "" {
		name = rec.CustomerEmail
	}
	return docusign.RecordInfo{
		Doctype:       rec.Doctype,
		Name:          rec.Name,
		CustomerEmail: rec.CustomerEmail,
		CustomerName:  name,
		SupplierEmail: rec.SupplierEmail,
		SupplierName:  rec.SupplierName,
	}
}
