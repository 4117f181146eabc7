package rpc

import (
	"encoding/json"
	"fmt"
)

type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// IsEmpty reports a missing, null, or "0x" result.
func (r Response) IsEmpty() bool {
	s := string(r.Result)
	return len(r.Result) == 0 || s == "null" || s == `"0x"` || s == `""`
}

type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

func (e *RPCError) JSONRPCCode() int {
	return e.Code
}

// HTTPStatusError is returned for non-200 responses.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

func (e *HTTPStatusError) HTTPStatus() int {
	return e.Status
}

// CallMsg is the eth_call transaction object.
type CallMsg struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// CallResult is one positional eth_call outcome of a batch. Data is nil
// when the node answered with an error or an empty result.
type CallResult struct {
	Data []byte
	Err  *RPCError
}
