package merits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jagnani73/daoscape-sub001/src/webclient"
)

// Client talks to the external merit-distribution endpoint. Distribution is
// best effort: callers commit their own state first and only log failures.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type Distribution struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type DistributeRequest struct {
	ID                    string         `json:"id"`
	Description           string         `json:"description"`
	Distributions         []Distribution `json:"distributions"`
	CreateMissingAccounts bool           `json:"create_missing_accounts"`
	ExpectedTotal         string         `json:"expected_total"`
}

type DistributeReceipt struct {
	AccountsDistributed uint64 `json:"accounts_distributed"`
	AccountsCreated     uint64 `json:"accounts_created"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  webclient.NewDefault(0),
	}
}

// BuildDistributions maps a flat per-address amount over a recipient list.
func BuildDistributions(addresses []string, amount int) ([]Distribution, string) {
	dists := make([]Distribution, 0, len(addresses))
	for _, addr := range addresses {
		dists = append(dists, Distribution{Address: addr, Amount: strconv.Itoa(amount)})
	}
	return dists, strconv.Itoa(amount * len(addresses))
}

// Distribute submits a distribution under the given idempotency id. No retry
// here: a committed conclusion must not block on reward delivery.
func (c *Client) Distribute(ctx context.Context, req DistributeRequest) (*DistributeReceipt, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/partner/api/v1/distribute", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("merits distribute: status %d: %s", resp.StatusCode, raw)
	}

	var receipt DistributeReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
