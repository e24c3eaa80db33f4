package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"invofi/internal/config"
)

// horizonClient implements ActivityFetcher against a Stellar Horizon REST
// endpoint. It only reads the payments feed; no transaction signing happens
// here.
type horizonClient struct {
	baseURL string
	limit   int
	client  *http.Client
}

// NewHorizon creates an ActivityFetcher backed by a Horizon server.
func NewHorizon(cfg config.HorizonConfig) (ActivityFetcher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("horizon url is required")
	}
	limit := cfg.PaymentsLimit
	if limit <= 0 {
		limit = 50
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &horizonClient{
		baseURL: cfg.URL,
		limit:   limit,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// paymentsPage mirrors the subset of Horizon's HAL response we consume.
type paymentsPage struct {
	Embedded struct {
		Records []json.RawMessage `json:"records"`
	} `json:"_embedded"`
}

// FetchActivity counts recent payments for the account. A 404 means the
// account has never been funded on the ledger; that is a valid empty result,
// not an error.
func (h *horizonClient) FetchActivity(ctx context.Context, accountID string) (*Activity, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}

	u := fmt.Sprintf("%s/accounts/%s/payments?limit=%d&order=desc",
		h.baseURL, url.PathEscape(accountID), h.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build horizon request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("horizon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Activity{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("horizon returned status %d", resp.StatusCode)
	}

	var page paymentsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode horizon response: %w", err)
	}
	return &Activity{RecentTransactionCount: len(page.Embedded.Records)}, nil
}
