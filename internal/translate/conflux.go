package translate

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/witnet/ethrpc-gateway/internal/cip37"
	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
)

// MethodAlias is the Eth→Cfx method-name mapping (§4.4, full set). Keyed
// by the *original* Ethereum method name; the Router looks up the
// rewritten name to select a handler.
var MethodAlias = map[string]string{
	"eth_blockNumber":           "cfx_epochNumber",
	"eth_call":                  "cfx_call",
	"eth_gasPrice":               "cfx_gasPrice",
	"eth_getBalance":             "cfx_getBalance",
	"eth_getBlockByHash":         "cfx_getBlockByHash",
	"eth_getBlockByNumber":       "cfx_getBlockByEpochNumber",
	"eth_getCode":                "cfx_getCode",
	"eth_getLogs":                "cfx_getLogs",
	"eth_getStorageAt":           "cfx_getStorageAt",
	"eth_getTransactionByHash":   "cfx_getTransactionByHash",
	"eth_getTransactionCount":    "cfx_getNextNonce",
	"eth_getTransactionReceipt":  "cfx_getTransactionReceipt",
}

// ConfluxTranslator implements the Conflux specialization (§4.4): CIP-37
// address translation for parameters and responses, epoch-tag translation,
// and the recursive-descent field-rename/status-inversion response rewrite.
type ConfluxTranslator struct {
	NetworkID uint32
	cfg       config.BackendConfig
}

func NewConfluxTranslator(networkID uint32, cfg config.BackendConfig) *ConfluxTranslator {
	return &ConfluxTranslator{NetworkID: networkID, cfg: cfg}
}

// TranslateParams implements §4.4 "Parameter rewriting".
func (t *ConfluxTranslator) TranslateParams(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	raw, err := paramsToArray(params)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode params for %s", method)
	}
	if len(raw) == 0 {
		return params, nil
	}

	switch method {
	case "eth_call", "eth_estimateGas", "eth_sendTransaction":
		if len(raw) >= 1 {
			obj, err := t.translateTxObject(raw[0])
			if err != nil {
				return nil, err
			}
			raw[0] = obj
		}
		if len(raw) >= 2 {
			raw[1] = t.translateTagRaw(raw[1])
		}
	case "eth_getBalance", "eth_getCode", "eth_getTransactionCount":
		if len(raw) >= 1 {
			addr, err := t.translateAddressRaw(raw[0])
			if err != nil {
				return nil, err
			}
			raw[0] = addr
		}
		if len(raw) >= 2 {
			raw[1] = t.translateTagRaw(raw[1])
		}
	case "eth_getBlockByNumber":
		if len(raw) >= 1 {
			raw[0] = t.translateTagRaw(raw[0])
		}
	case "eth_sign":
		if len(raw) >= 1 {
			addr, err := t.translateAddressRaw(raw[0])
			if err != nil {
				return nil, err
			}
			raw[0] = addr
		}
	}
	return arrayToParams(raw), nil
}

// translateTxObject rewrites the from/to fields of a call/tx params object.
func (t *ConfluxTranslator) translateTxObject(raw json.RawMessage) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw, nil // not an object; leave untouched
	}
	for _, field := range []string{"from", "to"} {
		v, ok := obj[field]
		if !ok {
			continue
		}
		translated, err := t.translateAddressRaw(v)
		if err != nil {
			return nil, err
		}
		obj[field] = translated
	}
	return json.Marshal(obj)
}

func (t *ConfluxTranslator) translateAddressRaw(raw json.RawMessage) (json.RawMessage, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw, nil
	}
	if s == "" {
		return raw, nil
	}
	addr, err := cip37.FromCIP37(s)
	if err == nil {
		// Already CIP-37, the form the backend expects: forward the value
		// unchanged.
		_ = addr
		return raw, nil
	}
	if !strings.HasPrefix(s, "0x") {
		return raw, nil
	}
	if !common.IsHexAddress(s) {
		return nil, gwerrors.New(gwerrors.KindInvalidAddress, "invalid address %q", s)
	}
	encoded := cip37.ToCIP37(common.HexToAddress(s), t.NetworkID)
	return json.Marshal(encoded)
}

func (t *ConfluxTranslator) translateTagRaw(raw json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	translated := t.translateTag(s)
	out, _ := json.Marshal(translated)
	return out
}

// translateTag implements §4.4 "Tag translation".
func (t *ConfluxTranslator) translateTag(tag string) string {
	switch tag {
	case "latest":
		return string(t.cfg.EpochLabel)
	case "pending":
		return string(config.EpochLatestCheckpoint)
	default:
		return tag
	}
}

// responseRenameTable implements §4.4 "Field renames / duplications" as a
// data-driven table (§9, "the field-renaming rules become a data-driven
// table (fromKey → [derivedKey…])").
var responseRenameTable = map[string][]string{
	"epochNumber":     {"number", "blockNumber"},
	"index":           {"transactionIndex"},
	"gasUsed":         {"cumulativeGasUsed"},
	"contractCreated": {"contractAddress"},
	"stateRoot":       {"root"},
}

// TranslateResponse implements §4.4 "Response rewriting": a recursive
// descent over the JSON object, renaming/duplicating fields per the table
// above, inverting outcomeStatus/status (I6), and replacing any CIP-37
// address-shaped string with its hex form.
func (t *ConfluxTranslator) TranslateResponse(ctx context.Context, method string, result json.RawMessage) (json.RawMessage, error) {
	if !gjson.ValidBytes(result) {
		return result, nil
	}
	parsed := gjson.ParseBytes(result)
	if !parsed.IsObject() && !parsed.IsArray() {
		return result, nil
	}
	out, err := t.rewriteValue(result, "")
	if err != nil {
		return nil, err
	}
	if method == "eth_getTransactionReceipt" {
		out, err = EnrichLogs(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rewriteValue performs one recursive-descent pass over raw, producing a
// rebuilt tree rather than mutating in place (§9).
func (t *ConfluxTranslator) rewriteValue(raw json.RawMessage, path string) (json.RawMessage, error) {
	parsed := gjson.ParseBytes(raw)
	switch {
	case parsed.IsObject():
		return t.rewriteObject(raw)
	case parsed.IsArray():
		var out json.RawMessage = []byte("[]")
		idx := 0
		var walkErr error
		parsed.ForEach(func(_, v gjson.Result) bool {
			child, err := t.rewriteValue([]byte(v.Raw), "")
			if err != nil {
				walkErr = err
				return false
			}
			out, err = sjson.SetRawBytes(out, strconv.Itoa(idx), child)
			if err != nil {
				walkErr = err
				return false
			}
			idx++
			return true
		})
		if walkErr != nil {
			return nil, walkErr
		}
		return out, nil
	default:
		if parsed.Type == gjson.String && strings.HasPrefix(strings.ToLower(parsed.Str), "cfx") {
			if addr, err := cip37.FromCIP37(parsed.Str); err == nil {
				b, _ := json.Marshal(addr.Hex())
				return b, nil
			}
		}
		return raw, nil
	}
}

func (t *ConfluxTranslator) rewriteObject(raw json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage = []byte("{}")
	parsed := gjson.ParseBytes(raw)

	var walkErr error
	parsed.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		child, err := t.rewriteValue([]byte(v.Raw), "")
		if err != nil {
			walkErr = err
			return false
		}
		out, err = sjson.SetRawBytes(out, key, child)
		if err != nil {
			walkErr = err
			return false
		}
		for _, derived := range responseRenameTable[key] {
			out, err = sjson.SetRawBytes(out, derived, child)
			if err != nil {
				walkErr = err
				return false
			}
		}
		if key == "outcomeStatus" || key == "status" {
			status := invertStatus(v)
			b, _ := json.Marshal(status)
			out, err = sjson.SetRawBytes(out, "status", b)
			if err != nil {
				walkErr = err
				return false
			}
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

// invertStatus implements (I6): outcomeStatus/status values in
// {0, "0", "0x0"} expose status="0x1"; any other value exposes "0x0".
func invertStatus(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		if v.Num == 0 {
			return "0x1"
		}
		return "0x0"
	case gjson.String:
		switch v.Str {
		case "0", "0x0":
			return "0x1"
		default:
			return "0x0"
		}
	default:
		return "0x0"
	}
}
