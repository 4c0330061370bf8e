package docusign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"signbridge/internal/errs"
)

type templateMeta struct {
	Documents []struct {
		DocumentID string `json:"documentId"`
		Name       string `json:"name"`
	} `json:"documents"`
}

// FetchTemplateDocument downloads the raw PDF bytes of a template's first
// document. Templates with zero documents are a configuration problem on the
// provider side and surface as a fetch error.
func (c *Client) FetchTemplateDocument(ctx context.Context, token, accountID, templateID string) ([]byte, error) {
	metaURL := fmt.Sprintf("%s/v2.1/accounts/%s/templates/%s", c.basePath(), accountID, templateID)
	b, err := c.authedGet(ctx, token, metaURL, "template metadata")
	if err != nil {
		return nil, err
	}

	var meta templateMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("template metadata malformed: %w", errs.ErrTemplateFetch)
	}
	if len(meta.Documents) == 0 {
		return nil, fmt.Errorf("template %s has no documents: %w", templateID, errs.ErrTemplateFetch)
	}

	docURL := fmt.Sprintf("%s/documents/%s", metaURL, meta.Documents[0].DocumentID)
	return c.authedGet(ctx, token, docURL, "template document")
}

func (c *Client) authedGet(ctx context.Context, token, endpoint, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: b, Err: errs.ErrTemplateFetch}
	}
	return b, nil
}
