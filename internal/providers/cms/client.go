// Package cms is the charge-point CMS client used by the tariff push
// integration. Calls are fire-and-forget POST/GET exchanges guarded by a rate
// limiter and a circuit breaker, since the CMS is a shared third-party system.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker
}

type ChargePoint struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

type Tax struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

type TariffService struct {
	Type string  `json:"type"`
	Rate float64 `json:"rate"`
}

type TariffPayload struct {
	Name         string          `json:"name"`
	TaxID        string          `json:"taxId"`
	CurrencyType string          `json:"currencyType"`
	Numotype     string          `json:"numotype"`
	Services     []TariffService `json:"services"`
}

type TariffMapping struct {
	TariffID      string `json:"tariffId"`
	ChargePointID string `json:"chargePointId"`
	ConnectorID   string `json:"connectorId"`
}

// FetchChargePoints lists charge points for dropdown mapping.
// Response shape: {"Document": {"<cp_name>": "<display_name>", ...}}.
func (c *Client) FetchChargePoints(ctx context.Context) ([]ChargePoint, error) {
	b, err := c.do(ctx, http.MethodGet, "/frapeencmsasset/chargepoint/get/cpDisplayName", nil, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Document map[string]string `json:"Document"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("chargepoint list malformed: %w", err)
	}
	points := make([]ChargePoint, 0, len(out.Document))
	for cpName, display := range out.Document {
		points = append(points, ChargePoint{Name: display, Identifier: cpName})
	}
	return points, nil
}

func (c *Client) FetchTaxes(ctx context.Context) ([]Tax, error) {
	b, err := c.do(ctx, http.MethodGet, "/frapeetariff/api/fetch-tax", url.Values{"numotype": {"ocpp"}}, nil)
	if err != nil {
		return nil, err
	}
	var raw []Tax
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("tax list malformed: %w", err)
	}
	taxes := raw[:0]
	for _, t := range raw {
		if t.Name != "" && t.Identifier != "" {
			taxes = append(taxes, t)
		}
	}
	return taxes, nil
}

// FetchConnectors lists connector numbers for one charge point.
func (c *Client) FetchConnectors(ctx context.Context, cpID string) ([]string, error) {
	b, err := c.do(ctx, http.MethodGet, "/frapeencmsasset/chargepoint/connectors", url.Values{"cpId": {cpID}}, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Document []struct {
			ChargePointConnectorNumber string `json:"ChargePointConnectorNumber"`
		} `json:"Document"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("connector list malformed: %w", err)
	}
	var connectors []string
	for _, d := range out.Document {
		if d.ChargePointConnectorNumber != "" {
			connectors = append(connectors, d.ChargePointConnectorNumber)
		}
	}
	return connectors, nil
}

// PushTariff creates the tariff in the CMS and returns the CMS identifier.
func (c *Client) PushTariff(ctx context.Context, payload TariffPayload) (string, error) {
	b, err := c.do(ctx, http.MethodPost, "/frapeetariff/api/tariff", nil, payload)
	if err != nil {
		return "", err
	}
	var out struct {
		Identifier string `json:"identifier"`
	}
	if err := json.Unmarshal(b, &out); err != nil || out.Identifier == "" {
		return "", errors.New("tariff push response missing identifier")
	}
	return out.Identifier, nil
}

// AssignTariff maps tariffs onto charge-point connectors.
func (c *Client) AssignTariff(ctx context.Context, mappings []TariffMapping) error {
	if len(mappings) == 0 {
		return errors.New("no valid connector mappings")
	}
	payload := map[string]any{"numotype": "ocpp", "tariff": mappings}
	_, err := c.do(ctx, http.MethodPost, "/frapeetariff/api/tariffChargePointMapping", nil, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if c.Limiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("cms rate limit: %w", err)
		}
	}

	call := func() (any, error) { return c.roundTrip(ctx, method, path, query, body) }
	if c.Breaker == nil {
		b, err := call()
		if err != nil {
			return nil, err
		}
		return b.([]byte), nil
	}

	res, err := c.Breaker.Execute(call)
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cms %s %s: status %d: %s", method, path, resp.StatusCode, string(b))
	}
	return b, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}
