package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/chain/ratelimit"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// Caller is the batch surface the contract registry and on-chain checker use.
type Caller interface {
	Network() string
	EthCallBatch(ctx context.Context, calls []CallMsg) ([]CallResult, error)
}

type Client struct {
	httpClient *http.Client
	rpcURL     string
	network    string
	requestID  atomic.Int64
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(rpcURL, network string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		rpcURL:     rpcURL,
		network:    network,
		logger:     logger.With("component", "evm_rpc", "network", network),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Network() string {
	return c.network
}

func (c *Client) newRequest(method string, params []interface{}) Request {
	return Request{
		JSONRPC: "2.0",
		ID:      int(c.requestID.Add(1)),
		Method:  method,
		Params:  params,
	}
}

func (c *Client) post(ctx context.Context, method string, payload interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(httpReq)
	ratelimit.RecordRPCCall(c.network, method, err)
	return respBody, err
}

func (c *Client) do(httpReq *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	respBody, err := c.post(ctx, method, c.newRequest(method, params))
	if err != nil {
		return nil, err
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// CallBatch sends requests as one JSON-RPC batch and returns the responses in
// request order, matched by id. A response missing from the reply is an error.
func (c *Client) CallBatch(ctx context.Context, requests []Request) ([]Response, error) {
	if len(requests) == 0 {
		return []Response{}, nil
	}
	metrics.RPCBatchSize.WithLabelValues(c.network).Observe(float64(len(requests)))

	respBody, err := c.post(ctx, "batch:"+requests[0].Method, requests)
	if err != nil {
		return nil, err
	}

	var responses []Response
	if err := json.Unmarshal(respBody, &responses); err != nil {
		// Some providers answer a rejected batch with a single error object.
		var single Response
		if singleErr := json.Unmarshal(respBody, &single); singleErr == nil && single.Error != nil {
			return nil, single.Error
		}
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}

	byID := make(map[int]Response, len(responses))
	for _, resp := range responses {
		byID[resp.ID] = resp
	}

	ordered := make([]Response, len(requests))
	for i, req := range requests {
		resp, ok := byID[req.ID]
		if !ok {
			return nil, fmt.Errorf("batch response missing id %d", req.ID)
		}
		ordered[i] = resp
	}
	return ordered, nil
}
