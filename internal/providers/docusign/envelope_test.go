package docusign

import (
	"encoding/base64"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"signbridge/internal/errs"
)

func testRecord() RecordInfo {
	return RecordInfo{
		Doctype:       "Contract",
		Name:          "C-001",
		CustomerEmail: "customer@example.com",
		CustomerName:  "Customer One",
		SupplierEmail: "supplier@example.com",
		SupplierName:  "Supplier One",
	}
}

func requireCorrelation(t *testing.T, env EnvelopeDefinition, doctype, docname string) {
	t.Helper()
	require.NotNil(t, env.CustomFields)
	byName := map[string]TextCustomField{}
	for _, f := range env.CustomFields.TextCustomFields {
		byName[f.Name] = f
	}
	require.Equal(t, doctype, byName[CustomFieldDoctype].Value)
	require.Equal(t, docname, byName[CustomFieldDocname].Value)
	for _, f := range byName {
		require.Equal(t, "false", f.Required)
		require.Equal(t, "false", f.Show)
	}
}

func TestBuildSingleSignerEnvelope(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")
	env, err := BuildSingleSignerEnvelope(testRecord(), pdf)
	require.NoError(t, err)

	require.Equal(t, "sent", env.Status)
	require.Equal(t, "Document for Signature: C-001", env.EmailSubject)

	require.Len(t, env.Documents, 1)
	doc := env.Documents[0]
	require.Equal(t, "1", doc.DocumentID)
	require.Equal(t, "pdf", doc.FileExtension)
	decoded, err := base64.StdEncoding.DecodeString(doc.DocumentBase64)
	require.NoError(t, err)
	require.Equal(t, pdf, decoded)

	require.Len(t, env.Recipients.Signers, 1)
	s := env.Recipients.Signers[0]
	require.Equal(t, "customer@example.com", s.Email)
	require.Equal(t, "1", s.RoutingOrder)
	require.Len(t, s.Tabs.SignHereTabs, 1)
	require.Equal(t, "1", s.Tabs.SignHereTabs[0].PageNumber)
	require.Len(t, s.Tabs.DateSignedTabs, 1)
	require.Equal(t, "1", s.Tabs.DateSignedTabs[0].PageNumber)

	requireCorrelation(t, env, "Contract", "C-001")
}

func TestBuildSingleSignerEnvelopeMissingEmail(t *testing.T) {
	rec := testRecord()
	rec.CustomerEmail = ""
	_, err := BuildSingleSignerEnvelope(rec, []byte("pdf"))
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestBuildMergedEnvelopeDualSigner(t *testing.T) {
	const totalPages = 7
	env, err := BuildMergedEnvelope(testRecord(), []byte("merged"), totalPages)
	require.NoError(t, err)

	require.Equal(t, "sent", env.Status)
	require.Equal(t, "Contract for Signature: C-001", env.EmailSubject)
	require.Len(t, env.Recipients.Signers, 2)

	supplier, customer := env.Recipients.Signers[0], env.Recipients.Signers[1]
	require.Equal(t, "supplier@example.com", supplier.Email)
	require.Equal(t, "1", supplier.RoutingOrder)
	require.Equal(t, "customer@example.com", customer.Email)
	require.Equal(t, "2", customer.RoutingOrder)

	// Both sign on the last page of the merged document, in separate columns.
	lastPage := strconv.Itoa(totalPages)
	for _, s := range env.Recipients.Signers {
		require.Equal(t, lastPage, s.Tabs.SignHereTabs[0].PageNumber)
		require.Equal(t, lastPage, s.Tabs.DateSignedTabs[0].PageNumber)
	}
	require.NotEqual(t,
		supplier.Tabs.SignHereTabs[0].XPosition,
		customer.Tabs.SignHereTabs[0].XPosition)

	requireCorrelation(t, env, "Contract", "C-001")
}

func TestBuildMergedEnvelopeNoSupplier(t *testing.T) {
	rec := testRecord()
	rec.SupplierEmail = ""
	rec.SupplierName = ""

	env, err := BuildMergedEnvelope(rec, []byte("merged"), 3)
	require.NoError(t, err)
	require.Len(t, env.Recipients.Signers, 1)
	require.Equal(t, "customer@example.com", env.Recipients.Signers[0].Email)
	require.Equal(t, "1", env.Recipients.Signers[0].RoutingOrder)
}

func TestBuildMergedEnvelopeInvalid(t *testing.T) {
	rec := testRecord()
	rec.CustomerEmail = ""
	_, err := BuildMergedEnvelope(rec, []byte("merged"), 3)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = BuildMergedEnvelope(testRecord(), []byte("merged"), 0)
	require.ErrorIs(t, err, errs.ErrValidation)
}
