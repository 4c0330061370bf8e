package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signbridge/internal/errs"
	"signbridge/internal/providers/docusign"
	"signbridge/internal/store"
)

type fakeSignatureStore struct {
	entityTypes map[string]bool
	records     map[string]store.Record
	markErr     error

	marked []store.EnvelopeSentUpdate
}

func (f *fakeSignatureStore) EntityTypeKnown(ctx context.Context, doctype string) (bool, error) {
	return f.entityTypes[doctype], nil
}

func (f *fakeSignatureStore) GetRecord(ctx context.Context, doctype, name string) (store.Record, bool, error) {
	rec, ok := f.records[doctype+"/"+name]
	return rec, ok, nil
}

func (f *fakeSignatureStore) MarkEnvelopeSent(ctx context.Context, in store.EnvelopeSentUpdate) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, in)
	return nil
}

type fakeTokens struct {
	tokenErr error
	calls    int
}

func (f *fakeTokens) Token(ctx context.Context) (docusign.Credential, error) {
	f.calls++
	if f.tokenErr != nil {
		return docusign.Credential{}, f.tokenErr
	}
	return docusign.Credential{Token: "tok-1", APIBasePath: "https://demo.docusign.net/restapi"}, nil
}

func (f *fakeTokens) AccountID(ctx context.Context, token string) (string, error) {
	return "acct-1", nil
}

type fakeEnvelopeAPI struct {
	template    []byte
	templateErr error
	createErr   error

	fetchedTemplateID string
	created           []docusign.EnvelopeDefinition
}

func (f *fakeEnvelopeAPI) FetchTemplateDocument(ctx context.Context, token, accountID, templateID string) ([]byte, error) {
	f.fetchedTemplateID = templateID
	if f.templateErr != nil {
		return nil, f.templateErr
	}
	return f.template, nil
}

func (f *fakeEnvelopeAPI) CreateEnvelope(ctx context.Context, token, accountID string, env docusign.EnvelopeDefinition) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, env)
	return "env-123", nil
}

type fakeRenderer struct {
	pdf []byte
	err error

	calls int
}

func (f *fakeRenderer) RenderPDF(ctx context.Context, doctype, docname string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pdf, nil
}

func newService() (*SignatureService, *fakeSignatureStore, *fakeTokens, *fakeEnvelopeAPI, *fakeRenderer) {
	st := &fakeSignatureStore{
		entityTypes: map[string]bool{"Contract": true},
		records: map[string]store.Record{
			"Contract/C-001": {
				Doctype:       "Contract",
				Name:          "C-001",
				CustomerEmail: "customer@example.com",
				CustomerName:  "Customer One",
				SupplierEmail: "supplier@example.com",
				SupplierName:  "Supplier One",
			},
		},
	}
	tokens := &fakeTokens{}
	api := &fakeEnvelopeAPI{template: []byte("template-pdf")}
	renderer := &fakeRenderer{pdf: []byte("generated-pdf")}

	svc := &SignatureService{
		Store:      st,
		Tokens:     tokens,
		API:        api,
		Renderer:   renderer,
		TemplateID: "tpl-1",
		Merge: func(first, second []byte) ([]byte, error) {
			return append(append([]byte{}, first...), second...), nil
		},
		PageCount: func(b []byte) (int, error) { return 5, nil },
	}
	return svc, st, tokens, api, renderer
}

func TestSendForSignature(t *testing.T) {
	svc, st, _, api, renderer := newService()

	id, err := svc.SendForSignature(context.Background(), "Contract", "C-001")
	require.NoError(t, err)
	require.Equal(t, "env-123", id)
	require.Equal(t, 1, renderer.calls)

	require.Len(t, api.created, 1)
	env := api.created[0]
	require.Len(t, env.Recipients.Signers, 1)
	assert.Equal(t, "1", env.Recipients.Signers[0].Tabs.SignHereTabs[0].PageNumber)

	require.Len(t, st.marked, 1)
	assert.Equal(t, "env-123", st.marked[0].EnvelopeID)
	assert.Equal(t, "Sent", st.marked[0].Status)
}

func TestSendMergedForSignature(t *testing.T) {
	svc, st, _, api, _ := newService()

	id, err := svc.SendMergedForSignature(context.Background(), "Contract", "C-001")
	require.NoError(t, err)
	require.Equal(t, "env-123", id)
	require.Equal(t, "tpl-1", api.fetchedTemplateID)

	require.Len(t, api.created, 1)
	env := api.created[0]
	require.Len(t, env.Recipients.Signers, 2)
	// Template pages sit in front of the generated contract; tabs land on the
	// last page of the merged document.
	assert.Equal(t, "5", env.Recipients.Signers[0].Tabs.SignHereTabs[0].PageNumber)
	assert.Equal(t, "1", env.Recipients.Signers[0].RoutingOrder)
	assert.Equal(t, "2", env.Recipients.Signers[1].RoutingOrder)

	require.Len(t, st.marked, 1)
}

func TestSendMergedRequiresTemplateID(t *testing.T) {
	svc, _, _, _, _ := newService()
	svc.TemplateID = ""

	_, err := svc.SendMergedForSignature(context.Background(), "Contract", "C-001")
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestSendUnknownEntityType(t *testing.T) {
	svc, _, tokens, _, renderer := newService()

	_, err := svc.SendForSignature(context.Background(), "Mystery", "M-1")
	require.ErrorIs(t, err, errs.ErrUnknownEntityType)
	assert.Zero(t, tokens.calls)
	assert.Zero(t, renderer.calls)
}

func TestSendRecordNotFound(t *testing.T) {
	svc, _, _, _, _ := newService()

	_, err := svc.SendForSignature(context.Background(), "Contract", "C-404")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSendMissingRecipientEmail(t *testing.T) {
	svc, st, _, _, _ := newService()
	rec := st.records["Contract/C-001"]
	rec.CustomerEmail = ""
	st.records["Contract/C-001"] = rec

	_, err := svc.SendForSignature(context.Background(), "Contract", "C-001")
	require.ErrorIs(t, err, errs.ErrValidation)
}

// An auth failure aborts the flow before any document is rendered or fetched
// and leaves the record untouched.
func TestSendAuthFailureAborts(t *testing.T) {
	svc, st, tokens, api, renderer := newService()
	tokens.tokenErr = errors.New("consent_required")

	_, err := svc.SendMergedForSignature(context.Background(), "Contract", "C-001")
	require.Error(t, err)
	assert.Zero(t, renderer.calls)
	assert.Empty(t, api.fetchedTemplateID)
	assert.Empty(t, api.created)
	assert.Empty(t, st.marked)
}

func TestSendSubmissionFailure(t *testing.T) {
	svc, st, _, api, _ := newService()
	api.createErr = errors.New("provider down")

	_, err := svc.SendForSignature(context.Background(), "Contract", "C-001")
	require.Error(t, err)
	assert.Empty(t, st.marked)
}

// When the envelope was submitted but the local write fails, the caller still
// gets the envelope id alongside the error.
func TestSendPersistFailureReturnsEnvelopeID(t *testing.T) {
	svc, st, _, _, _ := newService()
	st.markErr = errors.New("db down")

	id, err := svc.SendForSignature(context.Background(), "Contract", "C-001")
	require.Error(t, err)
	require.Equal(t, "env-123", id)
}

func TestRecordInfoFallsBackToEmail(t *testing.T) {
	info := recordInfo(store.Record{
		Doctype:       "Contract",
		Name:          "C-001",
		CustomerEmail: "customer@example.com",
	})
	require.Equal(t, "customer@example.com", info.CustomerName)
}
