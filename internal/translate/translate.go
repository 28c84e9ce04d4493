// Package translate implements the bidirectional Ethereum↔backend
// converters spec §4.4/§4.5 describe: request-parameter rewriting ahead of
// dispatch, and response-body rewriting (field renames, hex-normalization,
// status inversion, log projection) after a backend call returns.
package translate

import (
	"context"
	"encoding/json"
)

// ParamTranslator rewrites an inbound method's params before dispatch
// (§4.1 step 2). Translators are keyed by the *original* Ethereum method
// name and are side-effect-free except for tracing.
type ParamTranslator interface {
	TranslateParams(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
}

// ResponseTranslator rewrites a backend result into Ethereum-native shape
// after dispatch (§4.1 step 4). Only invoked when the *original* method
// was an eth_* method and result is a structured object.
type ResponseTranslator interface {
	TranslateResponse(ctx context.Context, method string, result json.RawMessage) (json.RawMessage, error)
}

// Translator composes both directions; a backend that needs no rewriting
// (generic EVM, Infura, Celo, zkSync) is registered with Identity.
type Translator interface {
	ParamTranslator
	ResponseTranslator
}

// ParamTranslatorFunc adapts a function to ParamTranslator.
type ParamTranslatorFunc func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

func (f ParamTranslatorFunc) TranslateParams(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return f(ctx, method, params)
}

// Identity passes params/response through unchanged in both directions;
// used for backends that need no rewriting.
type Identity struct{}

func (Identity) TranslateParams(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return params, nil
}

func (Identity) TranslateResponse(ctx context.Context, method string, result json.RawMessage) (json.RawMessage, error) {
	return result, nil
}

// paramsToArray decodes a JSON-RPC params array into its raw elements,
// tolerating an empty/absent array.
func paramsToArray(params json.RawMessage) ([]json.RawMessage, error) {
	if len(params) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func arrayToParams(raw []json.RawMessage) json.RawMessage {
	b, _ := json.Marshal(raw)
	return b
}
