// Package envelope defines the JSON-RPC 2.0 request/response wire shapes
// the gateway speaks to its clients (spec §3).
package envelope

import "encoding/json"

// Request is the canonical inbound envelope. ID is kept as a raw message so
// it can be echoed back unchanged regardless of whether the client used a
// number, a string, or null (invariant I1).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Error is the JSON-RPC error object. Data is optional and carries
// backend-supplied context (§7).
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response is the canonical outbound envelope. Exactly one of Result/Error
// is populated (invariant I2); the omitempty tags leave whichever field is
// unset out of the encoded JSON.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResult builds a success envelope, echoing id.
func NewResult(id json.RawMessage, result json.RawMessage) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError builds a failure envelope, echoing id.
func NewError(id json.RawMessage, code int, message string, data json.RawMessage) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message, Data: data}}
}

// ParamAt decodes the params array element at index i into v. Missing
// elements are not an error; v is left at its zero value.
func ParamAt(params json.RawMessage, i int, v interface{}) error {
	var raw []json.RawMessage
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, &raw); err != nil {
		return err
	}
	if i >= len(raw) {
		return nil
	}
	return json.Unmarshal(raw[i], v)
}

// ParamCount returns the number of elements in a params array, or 0 if
// params is empty/absent.
func ParamCount(params json.RawMessage) int {
	var raw []json.RawMessage
	if len(params) == 0 {
		return 0
	}
	if err := json.Unmarshal(params, &raw); err != nil {
		return 0
	}
	return len(raw)
}

// MustRaw marshals v and panics on failure; used for values the gateway
// constructs itself (addresses, hex integers) where a marshal error would
// indicate a programming bug, not bad input.
func MustRaw(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
