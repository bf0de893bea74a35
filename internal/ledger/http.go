package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pharmatrust/drugtrace/internal/models"
)

// HTTPClient talks to the ledger gateway over its REST API. Every call is
// bounded by the configured timeout; a timed-out read surfaces as an error
// for the caller to classify, never as a hang.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a ledger client for the gateway at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Register anchors a new batch on the ledger.
func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (*TxResult, error) {
	var tx TxResult
	if err := c.post(ctx, "/batches", req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Transfer records a custody transfer on the ledger.
func (c *HTTPClient) Transfer(ctx context.Context, req TransferRequest) (*TxResult, error) {
	path := fmt.Sprintf("/batches/%s/transfers", url.PathEscape(req.BatchID))
	var tx TxResult
	if err := c.post(ctx, path, req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Verify fetches the on-chain snapshot of a batch. Returns ErrNotFound when
// the ledger has no record for the id.
func (c *HTTPClient) Verify(ctx context.Context, batchID string) (*VerifyResult, error) {
	path := fmt.Sprintf("/batches/%s", url.PathEscape(batchID))
	var result VerifyResult
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History fetches the ordered custody chain of a batch.
func (c *HTTPClient) History(ctx context.Context, batchID string) ([]models.OwnershipRecord, error) {
	path := fmt.Sprintf("/batches/%s/history", url.PathEscape(batchID))
	var records []models.OwnershipRecord
	if err := c.get(ctx, path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ledger: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		var gwErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&gwErr)
		if gwErr.Error != "" {
			return fmt.Errorf("ledger: gateway returned %d: %s", resp.StatusCode, gwErr.Error)
		}
		return fmt.Errorf("ledger: gateway returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledger: decode response: %w", err)
	}
	return nil
}
