/**
 * @description
 * This package provides a client for the Stripe Connect transfer API. It
 * encapsulates the logic for making authenticated HTTP requests to Stripe's
 * /v1/transfers endpoint, including the idempotency key handling that makes
 * retried disbursements safe against double payment.
 *
 * @dependencies
 * - context, net/http, net/url, time: Standard Go libraries.
 */
package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a client for the Stripe API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new Stripe API client.
func NewClient(baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TransferRequest represents a transfer to a connected account.
type TransferRequest struct {
	Amount             int64  // in the smallest currency unit
	Currency           string // e.g. "usd"
	DestinationAccount string // connected account id, e.g. "acct_..."
	TransferGroup      string // groups transfers belonging to one booking
	Description        string
	IdempotencyKey     string // required; Stripe dedupes retries on this key
}

// Transfer is the response from Stripe's transfer endpoint.
type Transfer struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Destination   string `json:"destination"`
	TransferGroup string `json:"transfer_group"`
	Created       int64  `json:"created"`
}

// APIError represents an error returned by the Stripe API.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("stripe api error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe api error (status %d)", e.StatusCode)
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// CreateTransfer moves funds from the platform balance to a connected
// account. The idempotency key must be stable per payout so Stripe collapses
// network-level retries into a single transfer.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required for transfers")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	form.Set("destination", req.DestinationAccount)
	if req.TransferGroup != "" {
		form.Set("transfer_group", req.TransferGroup)
	}
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/transfers", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute transfer request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=stripe_client op=transfer status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return nil, &APIError{StatusCode: resp.StatusCode}
		}
		apiErr := errResp.Error
		apiErr.StatusCode = resp.StatusCode
		log.Printf("level=warn component=stripe_client op=transfer status=%d code=%q msg=%q", resp.StatusCode, apiErr.Code, apiErr.Message)
		return nil, &apiErr
	}

	var transfer Transfer
	if err := json.Unmarshal(bodyBytes, &transfer); err != nil {
		return nil, fmt.Errorf("failed to decode transfer response: %w", err)
	}

	return &transfer, nil
}
