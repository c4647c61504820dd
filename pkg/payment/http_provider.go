package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider talks to the hosted payment-processor merchant API.
type HTTPProvider struct {
	BaseURL   string
	APIKey    string
	APISecret string
	client    *http.Client
}

func NewHTTPProvider(baseURL, apiKey, apiSecret string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		APISecret: apiSecret,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type createAddressReq struct {
	InvoiceNumber  string `json:"invoice_number"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	WebhookURL     string `json:"webhook_url"`
	IdempotencyKey string `json:"idempotency_key"`
	TTLSeconds     int    `json:"ttl_seconds"`
}

type createAddressResp struct {
	Address   string `json:"address"`
	Reference string `json:"reference"`
	ExpiresAt string `json:"expires_at"`
}

func (p *HTTPProvider) CreateAddress(ctx context.Context, req AddressRequest) (*AddressResponse, error) {
	payload := createAddressReq{
		InvoiceNumber:  req.InvoiceNumber,
		Amount:         req.Amount,
		Currency:       req.Currency,
		WebhookURL:     req.CallbackURL,
		IdempotencyKey: req.IdempotencyKey,
		TTLSeconds:     int(req.ExpiresIn.Seconds()),
	}
	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/addresses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", p.APIKey)
	httpReq.Header.Set("X-Api-Secret", p.APISecret)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment processor: %d %s", resp.StatusCode, string(respBody))
	}
	var out createAddressResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if out.Address == "" {
		return nil, fmt.Errorf("payment processor returned empty address for invoice %s", req.InvoiceNumber)
	}
	expires, _ := time.Parse(time.RFC3339, out.ExpiresAt)
	return &AddressResponse{Address: out.Address, Reference: out.Reference, ExpiresAt: expires}, nil
}
