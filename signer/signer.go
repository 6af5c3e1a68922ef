// Package signer submits assembled call units to the external wallet bridge
// for authorization and execution. The bridge is opaque to the engine: it
// either returns a submission identifier or an error, and rejections are
// never retried.
package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lendboard/engine/txbuild"
)

// Config controls how the Remote signer reaches the wallet bridge.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Remote is a Signer backed by an HTTP wallet bridge.
type Remote struct {
	baseURL string
	http    *http.Client
}

// NewRemote constructs a Remote signer from the configuration.
func NewRemote(cfg Config) (*Remote, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("signer: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Remote{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type signRequest struct {
	Network string        `json:"chain"`
	Unit    *txbuild.Unit `json:"unit"`
}

type signResponse struct {
	SubmissionID string `json:"submissionId"`
	Error        string `json:"error,omitempty"`
}

// SignAndExecute posts the unit to the bridge and returns the submission
// identifier the ledger assigned.
func (r *Remote) SignAndExecute(ctx context.Context, unit *txbuild.Unit, network string) (string, error) {
	if unit == nil {
		return "", fmt.Errorf("signer: nil unit")
	}
	body, err := json.Marshal(signRequest{Network: network, Unit: unit})
	if err != nil {
		return "", fmt.Errorf("signer: encode unit: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("signer: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("signer: call bridge: %w", err)
	}
	defer resp.Body.Close()

	var decoded signResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("signer: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decoded.Error != "" {
			return "", fmt.Errorf("signer: %s", decoded.Error)
		}
		return "", fmt.Errorf("signer: bridge returned status %s", resp.Status)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("signer: %s", decoded.Error)
	}
	if decoded.SubmissionID == "" {
		return "", fmt.Errorf("signer: bridge returned no submission id")
	}
	return decoded.SubmissionID, nil
}
