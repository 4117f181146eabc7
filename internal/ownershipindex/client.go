// Package ownershipindex talks to the secondary ownership-index service used
// to cross-check indexer verdicts.
package ownershipindex

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

	"github.com/emperorhan/ownership-indexer/internal/circuitbreaker"
	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
)

const DefaultTimeout = time.Second

type addressItems struct {
	Address  string   `json:"address"`
	ItemURNs []string `json:"itemUrns"`
}

type ownsItemsPayload struct {
	ItemURNsByAddress []addressItems `json:"itemUrnsByAddress"`
}

type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ownership index status %d", e.Status)
}

func (e *StatusError) HTTPStatus() int {
	return e.Status
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name: "ownership_index",
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				logger.Warn("circuit breaker state change", "target", name, "from", from.String(), "to", to.String())
			},
		}),
		logger: logger.With("component", "ownership_index"),
	}
}

// OwnsItemsByAddress asks which of the claimed items each address owns.
// Every call is bounded by the client timeout and guarded by a breaker.
func (c *Client) OwnsItemsByAddress(ctx context.Context, claims *model.Claims) (*model.Claims, error) {
	payload := ownsItemsPayload{ItemURNsByAddress: make([]addressItems, 0, claims.Len())}
	for _, e := range claims.Entries() {
		payload.ItemURNsByAddress = append(payload.ItemURNsByAddress, addressItems{Address: e.Address, ItemURNs: e.Items})
	}

	var out *model.Claims
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var err error
		out, err = c.post(ctx, payload)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ownsItemsByAddress: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, payload ownsItemsPayload) (*model.Claims, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ownsItemsByAddress", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Status: resp.StatusCode}
	}

	var decoded ownsItemsPayload
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out := model.NewClaims()
	for _, entry := range decoded.ItemURNsByAddress {
		out.Add(entry.Address, entry.ItemURNs...)
	}
	return out, nil
}
