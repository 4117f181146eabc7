// Package subgraph queries GraphQL indexers for item ownership.
package subgraph

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

	"github.com/emperorhan/ownership-indexer/internal/retry"
)

const defaultTimeout = 10 * time.Second

type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLErrors is returned when the response carries an errors array.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("subgraph status %d: %s", e.Status, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.Status
}

type request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors GraphQLErrors   `json:"errors,omitempty"`
}

// Querier runs one GraphQL query and decodes its data field into out.
type Querier interface {
	Query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error
}

type Client struct {
	httpClient *http.Client
	url        string
	policy     retry.Policy
	logger     *slog.Logger
}

func NewClient(url string, timeout time.Duration, maxAttempts int, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		policy:     retry.Policy{MaxAttempts: maxAttempts, BackoffInitial: 200 * time.Millisecond, BackoffMax: 2 * time.Second},
		logger:     logger.With("component", "subgraph_client", "url", url),
	}
}

// Query retries transient failures per the client's policy.
func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	return retry.Do(ctx, c.policy, c.logger, "subgraph_query", func(ctx context.Context) error {
		return c.query(ctx, query, variables, out)
	})
}

func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var decoded response
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return decoded.Errors
	}
	if out == nil || len(decoded.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}
