package ledger

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config controls how the Client connects to the ledger full-node RPC
// endpoint.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	AllowInsecure bool
}

// Client implements the minimal subset of JSON-RPC 2.0 the engine consumes:
// coin and object reads plus the finalization wait. The wait is bounded by
// the HTTP client's timeout, so a hung node surfaces as an error instead of
// an indefinitely pending submission.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client from the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("ledger: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{}
	if cfg.AllowInsecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Transport: transport},
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	if c == nil {
		return fmt.Errorf("ledger: client is nil")
	}
	reqBody := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Client", "lendboard")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s failed with status %s", method, resp.Status)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// GetCoins returns the owner's spendable objects of the given coin type.
func (c *Client) GetCoins(ctx context.Context, owner Address, coinType string) (Coins, error) {
	params := map[string]any{"owner": owner, "assetType": coinType}
	var coins Coins
	if err := c.call(ctx, "getCoins", params, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// GetOwnedObjects returns the identifiers of the owner's objects whose type
// matches the filter exactly.
func (c *Client) GetOwnedObjects(ctx context.Context, owner Address, typeFilter string) ([]ObjectID, error) {
	params := map[string]any{"owner": owner, "filter": typeFilter}
	var raw []struct {
		ID ObjectID `json:"id"`
	}
	if err := c.call(ctx, "getOwnedObjects", params, &raw); err != nil {
		return nil, err
	}
	ids := make([]ObjectID, len(raw))
	for i, entry := range raw {
		ids[i] = entry.ID
	}
	return ids, nil
}

// GetObject returns the type metadata for a single object.
func (c *Client) GetObject(ctx context.Context, id ObjectID) (ObjectInfo, error) {
	params := map[string]any{"id": id}
	var info ObjectInfo
	if err := c.call(ctx, "getObject", params, &info); err != nil {
		return ObjectInfo{}, err
	}
	if info.ID == "" {
		info.ID = id
	}
	return info, nil
}

// WaitForTransaction blocks until the ledger reports a terminal execution
// status for the submission, or until the client's timeout or the context
// expires.
func (c *Client) WaitForTransaction(ctx context.Context, submissionID string) (ExecutionResult, error) {
	params := map[string]any{"submissionId": submissionID}
	var result ExecutionResult
	if err := c.call(ctx, "waitForTransaction", params, &result); err != nil {
		return ExecutionResult{}, err
	}
	switch result.Status {
	case ExecutionSuccess, ExecutionFailure:
		return result, nil
	default:
		return ExecutionResult{}, fmt.Errorf("ledger: non-terminal status %q for %s", result.Status, submissionID)
	}
}
