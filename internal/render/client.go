// Package render fetches a record's printed PDF from the host system.
package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Renderer produces the raw PDF bytes for a host record. The host system owns
// rendering; this core consumes it as an opaque byte-producing service.
type Renderer interface {
	RenderPDF(ctx context.Context, doctype, docname string) ([]byte, error)
}

// Client renders via the host system's print endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	// Format is the print format to render with, e.g. "Standard".
	Format string
	HTTP   *http.Client
}

func (c *Client) RenderPDF(ctx context.Context, doctype, docname string) ([]byte, error) {
	q := url.Values{}
	q.Set("doctype", doctype)
	q.Set("name", docname)
	q.Set("format", c.printFormat())

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/api/method/frappe.utils.print_format.download_pdf?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "token "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("render pdf: status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) printFormat() string {
	if c.Format == "" {
		return "Standard"
	}
	return c.Format
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
