package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const blockLatest = "latest"

// EthCall performs a single eth_call against the latest block.
func (c *Client) EthCall(ctx context.Context, call CallMsg) ([]byte, error) {
	result, err := c.call(ctx, "eth_call", []interface{}{call, blockLatest})
	if err != nil {
		return nil, fmt.Errorf("eth_call(%s): %w", call.To, err)
	}
	if string(result) == "null" {
		return nil, nil
	}
	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return nil, fmt.Errorf("unmarshal eth_call result: %w", err)
	}
	return decodeHex(hex)
}

// EthCallBatch sends every call in one JSON-RPC batch. Per-call errors and
// empty results are reported positionally in CallResult; only transport or
// framing failures are returned as error.
func (c *Client) EthCallBatch(ctx context.Context, calls []CallMsg) ([]CallResult, error) {
	if len(calls) == 0 {
		return []CallResult{}, nil
	}

	requests := make([]Request, len(calls))
	for i, call := range calls {
		requests[i] = c.newRequest("eth_call", []interface{}{call, blockLatest})
	}

	responses, err := c.CallBatch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("eth_call batch: %w", err)
	}

	results := make([]CallResult, len(calls))
	for i, resp := range responses {
		if resp.Error != nil {
			results[i] = CallResult{Err: resp.Error}
			continue
		}
		if resp.IsEmpty() {
			continue
		}
		var hex string
		if err := json.Unmarshal(resp.Result, &hex); err != nil {
			c.logger.Debug("undecodable eth_call result", "to", calls[i].To, "error", err)
			continue
		}
		data, err := decodeHex(hex)
		if err != nil {
			c.logger.Debug("undecodable eth_call result", "to", calls[i].To, "error", err)
			continue
		}
		results[i] = CallResult{Data: data}
	}
	return results, nil
}

func decodeHex(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return nil, nil
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return data, nil
}
