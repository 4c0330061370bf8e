package docusign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"signbridge/internal/errs"
)

type createEnvelopeResponse struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

// CreateEnvelope submits the assembled envelope for immediate dispatch and
// returns the provider-assigned envelope id. At-most-once: a failure is
// surfaced to the caller and never retried here, so a flaky response cannot
// produce a duplicate envelope.
func (c *Client) CreateEnvelope(ctx context.Context, token, accountID string, env EnvelopeDefinition) (string, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes", c.basePath(), accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("create envelope: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Op: "create envelope", StatusCode: resp.StatusCode, Body: b, Err: errs.ErrSubmission}
	}

	var out createEnvelopeResponse
	if err := json.Unmarshal(b, &out); err != nil || out.EnvelopeID == "" {
		return "", fmt.Errorf("create envelope response malformed: %w", errs.ErrSubmission)
	}
	return out.EnvelopeID, nil
}
