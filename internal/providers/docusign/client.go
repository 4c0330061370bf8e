// Package docusign is a thin client for the DocuSign eSignature REST API:
// JWT-grant authentication, template document retrieval and envelope creation.
package docusign

import (
	"fmt"
	"net/http"
	"strings"
)

type Client struct {
	// BasePath is the account's REST API root, e.g. https://demo.docusign.net/restapi.
	BasePath string
	HTTP     *http.Client
}

func (c *Client) basePath() string {
	base := strings.TrimRight(c.BasePath, "/")
	if base == "" {
		base = "https://demo.docusign.net/restapi"
	}
	return base
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// APIError carries the provider's HTTP status and raw error body. It unwraps
// to the sentinel for the operation that failed, so callers can match with
// errors.Is while still surfacing the provider detail.
type APIError struct {
	Op         string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docusign %s: status %d: %s", e.Op, e.StatusCode, string(e.Body))
}

func (e *APIError) Unwrap() error { return e.Err }
