package docusign

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"signbridge/internal/errs"
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block))
}

func newTokenSource(t *testing.T, baseURL string) *TokenSource {
	t.Helper()
	return &TokenSource{
		ClientID:             "client-1",
		ImpersonatedUserGUID: "user-guid-1",
		PrivateKeyPEM:        testPrivateKeyPEM(t),
		AuthHost:             "account-d.docusign.com",
		APIBasePath:          "https://demo.docusign.net/restapi",
		AuthBaseURL:          baseURL,
	}
}

func TestTokenMissingConfig(t *testing.T) {
	ts := &TokenSource{ClientID: "client-1"}
	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestTokenBadPrivateKey(t *testing.T) {
	ts := &TokenSource{
		ClientID:             "client-1",
		ImpersonatedUserGUID: "user-guid-1",
		PrivateKeyPEM:        "not a pem key",
	}
	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestTokenExchangeAndCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostForm.Get("grant_type"))
		require.NotEmpty(t, r.PostForm.Get("assertion"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	ts := newTokenSource(t, srv.URL)
	ts.Now = func() time.Time { return now }

	cred, err := ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", cred.Token)
	require.Equal(t, "https://demo.docusign.net/restapi", cred.APIBasePath)
	require.Equal(t, now.Add(time.Hour), cred.ExpiresAt)

	// Fresh token is served from cache.
	cred2, err := ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, cred.Token, cred2.Token)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Past expiry a new exchange happens.
	now = now.Add(2 * time.Hour)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTokenExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"consent_required"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	ts := newTokenSource(t, srv.URL)
	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, errs.ErrAuth)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Contains(t, string(apiErr.Body), "consent_required")
}

func TestTokenMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer srv.Close()

	ts := newTokenSource(t, srv.URL)
	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, errs.ErrAuth)
}

func TestAccountID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"accounts":[{"account_id":"acct-1","is_default":"true"}]}`))
	}))
	defer srv.Close()

	ts := newTokenSource(t, srv.URL)
	accountID, err := ts.AccountID(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Equal(t, "acct-1", accountID)
}

func TestAccountIDNoAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accounts":[]}`))
	}))
	defer srv.Close()

	ts := newTokenSource(t, srv.URL)
	_, err := ts.AccountID(context.Background(), "tok-1")
	require.ErrorIs(t, err, errs.ErrAuth)
}
