package docusign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"signbridge/internal/errs"
)

const (
	jwtBearerGrant     = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	impersonationScope = "signature impersonation"
	assertionLifetime  = time.Hour

	// A cached token is considered stale this long before its actual expiry.
	expirySkew = 60 * time.Second
)

// Credential is a short-lived bearer token plus the API root it is valid for.
// Never persisted; discarded once stale.
type Credential struct {
	Token       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	APIBasePath string
}

func (c Credential) valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt.Add(-expirySkew))
}

// TokenSource exchanges a signed RS256 assertion for a bearer token and caches
// it until near expiry. Safe for concurrent use.
type TokenSource struct {
	ClientID             string
	ImpersonatedUserGUID string
	PrivateKeyPEM        string
	AuthHost             string
	APIBasePath          string
	HTTP                 *http.Client

	// AuthBaseURL overrides the https://{AuthHost} endpoint root. Test hook.
	AuthBaseURL string

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time

	mu     sync.Mutex
	cached Credential
}

type assertionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns a bearer credential, reusing the cached one while fresh.
func (t *TokenSource) Token(ctx context.Context) (Credential, error) {
	if t.ClientID == "" || t.ImpersonatedUserGUID == "" || t.PrivateKeyPEM == "" {
		return Credential{}, fmt.Errorf("docusign credentials not set: %w", errs.ErrConfiguration)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.cached.valid(now) {
		return t.cached, nil
	}

	assertion, err := t.signAssertion(now)
	if err != nil {
		return Credential{}, err
	}
	cred, err := t.exchange(ctx, now, assertion)
	if err != nil {
		return Credential{}, err
	}
	t.cached = cred
	return cred, nil
}

func (t *TokenSource) signAssertion(now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(t.PrivateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("docusign private key unreadable: %w", errs.ErrConfiguration)
	}

	claims := assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.ClientID,
			Subject:   t.ImpersonatedUserGUID,
			Audience:  jwt.ClaimStrings{t.authHost()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		},
		Scope: impersonationScope,
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

func (t *TokenSource) exchange(ctx context.Context, now time.Time, assertion string) (Credential, error) {
	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	endpoint := t.authBaseURL() + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient().Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Credential{}, &APIError{Op: "token exchange", StatusCode: resp.StatusCode, Body: b, Err: errs.ErrAuth}
	}

	var out tokenResponse
	if err := json.Unmarshal(b, &out); err != nil || out.AccessToken == "" {
		return Credential{}, fmt.Errorf("token response malformed: %w", errs.ErrAuth)
	}

	expiresIn := out.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = int64(assertionLifetime / time.Second)
	}
	return Credential{
		Token:       out.AccessToken,
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Duration(expiresIn) * time.Second),
		APIBasePath: t.apiBasePath(),
	}, nil
}

type userInfo struct {
	Accounts []struct {
		AccountID string `json:"account_id"`
		IsDefault string `json:"is_default"`
	} `json:"accounts"`
}

// AccountID resolves the impersonated user's account via the userinfo endpoint.
func (t *TokenSource) AccountID(ctx context.Context, token string) (string, error) {
	endpoint := t.authBaseURL() + "/oauth/userinfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Op: "userinfo", StatusCode: resp.StatusCode, Body: b, Err: errs.ErrAuth}
	}

	var out userInfo
	if err := json.Unmarshal(b, &out); err != nil || len(out.Accounts) == 0 {
		return "", fmt.Errorf("userinfo has no accounts: %w", errs.ErrAuth)
	}
	return out.Accounts[0].AccountID, nil
}

func (t *TokenSource) authBaseURL() string {
	if t.AuthBaseURL != "" {
		return strings.TrimRight(t.AuthBaseURL, "/")
	}
	return "https://" + t.authHost()
}

func (t *TokenSource) authHost() string {
	if t.AuthHost == "" {
		return "account-d.docusign.com"
	}
	return t.AuthHost
}

func (t *TokenSource) apiBasePath() string {
	if t.APIBasePath == "" {
		return "https://demo.docusign.net/restapi"
	}
	return t.APIBasePath
}

func (t *TokenSource) httpClient() *http.Client {
	if t.HTTP != nil {
		return t.HTTP
	}
	return http.DefaultClient
}

func (t *TokenSource) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
