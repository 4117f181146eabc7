// Package contentserver fetches active entities by pointer.
package contentserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/retry"
)

const (
	defaultTimeout     = 10 * time.Second
	maxPointersPerCall = 100
)

// Fetcher is what the on-chain checker needs from the content server.
type Fetcher interface {
	ActiveEntities(ctx context.Context, pointers []string) ([]model.Entity, error)
}

type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content server status %d: %s", e.Status, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.Status
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	policy     retry.Policy
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		policy:     retry.Policy{MaxAttempts: 2, BackoffInitial: 200 * time.Millisecond},
		logger:     logger.With("component", "content_server"),
	}
}

type activeRequest struct {
	Pointers []string `json:"pointers"`
}

// ActiveEntities posts the pointers to /entities/active, in chunks of at most
// maxPointersPerCall, and returns every entity found. Missing pointers are
// simply absent from the result.
func (c *Client) ActiveEntities(ctx context.Context, pointers []string) ([]model.Entity, error) {
	if len(pointers) == 0 {
		return []model.Entity{}, nil
	}

	var out []model.Entity
	for start := 0; start < len(pointers); start += maxPointersPerCall {
		end := start + maxPointersPerCall
		if end > len(pointers) {
			end = len(pointers)
		}

		var chunk []model.Entity
		err := retry.Do(ctx, c.policy, c.logger, "content_active_entities", func(ctx context.Context) error {
			var err error
			chunk, err = c.post(ctx, pointers[start:end])
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch active entities: %w", err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, pointers []string) ([]model.Entity, error) {
	body, err := json.Marshal(activeRequest{Pointers: pointers})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/entities/active", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var entities []model.Entity
	if err := json.Unmarshal(respBody, &entities); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	return entities, nil
}
