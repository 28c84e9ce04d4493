package translate_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/witnet/ethrpc-gateway/internal/cip37"
	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/translate"
)

func newTranslator() *translate.ConfluxTranslator {
	cfg := config.BackendConfig{EpochLabel: config.EpochLatestFinalized}
	return translate.NewConfluxTranslator(1029, cfg)
}

// Scenario 4: eth_getBlockByNumber("latest", false) rewrites the tag per
// the backend's configured epoch label.
func TestTranslateParamsGetBlockByNumberRewritesLatestTag(t *testing.T) {
	tr := newTranslator()
	params, err := json.Marshal([]interface{}{"latest", false})
	require.NoError(t, err)

	out, err := tr.TranslateParams(context.Background(), "eth_getBlockByNumber", params)
	require.NoError(t, err)

	var rewritten []json.RawMessage
	require.NoError(t, json.Unmarshal(out, &rewritten))
	var tag string
	require.NoError(t, json.Unmarshal(rewritten[0], &tag))
	require.Equal(t, "latest_finalized", tag)
}

func TestTranslateParamsPendingTagMapsToLatestCheckpoint(t *testing.T) {
	tr := newTranslator()
	params, err := json.Marshal([]interface{}{"pending", false})
	require.NoError(t, err)

	out, err := tr.TranslateParams(context.Background(), "eth_getBlockByNumber", params)
	require.NoError(t, err)

	var rewritten []json.RawMessage
	require.NoError(t, json.Unmarshal(out, &rewritten))
	var tag string
	require.NoError(t, json.Unmarshal(rewritten[0], &tag))
	require.Equal(t, "latest_checkpoint", tag)
}

func TestTranslateParamsEthCallRewritesFromToAddresses(t *testing.T) {
	tr := newTranslator()
	txObj := map[string]string{
		"from": "0x627306090abaB3A6e1400e9345bC60c78a8BEf57",
		"to":   "0xf17f52151EbEF6C7334FAD080c5704D77216b732",
	}
	params, err := json.Marshal([]interface{}{txObj, "latest"})
	require.NoError(t, err)

	out, err := tr.TranslateParams(context.Background(), "eth_call", params)
	require.NoError(t, err)

	var rewritten []json.RawMessage
	require.NoError(t, json.Unmarshal(out, &rewritten))
	var obj map[string]string
	require.NoError(t, json.Unmarshal(rewritten[0], &obj))
	require.Regexp(t, "^cfx:", obj["from"])
	require.Regexp(t, "^cfx:", obj["to"])
}

func TestTranslateParamsRejectsMalformedAddress(t *testing.T) {
	tr := newTranslator()
	params, err := json.Marshal([]interface{}{"0xnotanaddress", "latest"})
	require.NoError(t, err)

	_, err = tr.TranslateParams(context.Background(), "eth_getBalance", params)
	require.Error(t, err)
}

// Scenario 4/5: response field renames (epochNumber -> number/blockNumber)
// and CIP-37 address flattening to hex.
func TestTranslateResponseRenamesFieldsAndFlattensAddresses(t *testing.T) {
	tr := newTranslator()
	minerAddr := common.HexToAddress("0x627306090abaB3A6e1400e9345bC60c78a8BEf57")
	minerCfx := cip37.ToCIP37(minerAddr, 1029)

	body, err := json.Marshal(map[string]interface{}{
		"epochNumber": "0x2a",
		"miner":       minerCfx,
	})
	require.NoError(t, err)

	out, err := tr.TranslateResponse(context.Background(), "eth_getBlockByNumber", body)
	require.NoError(t, err)

	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &obj))
	require.Equal(t, "0x2a", obj["number"])
	require.Equal(t, "0x2a", obj["blockNumber"])
	require.Equal(t, "0x2a", obj["epochNumber"])
	require.Equal(t, minerAddr.Hex(), obj["miner"])
}

// Scenario 5: outcomeStatus inversion. outcomeStatus=0 (success in
// Conflux's own convention) exposes status="0x1"; outcomeStatus itself is
// left untouched.
func TestTranslateResponseInvertsOutcomeStatus(t *testing.T) {
	tr := newTranslator()
	body, err := json.Marshal(map[string]interface{}{
		"outcomeStatus": 0,
	})
	require.NoError(t, err)

	out, err := tr.TranslateResponse(context.Background(), "eth_getTransactionReceipt", body)
	require.NoError(t, err)

	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &obj))
	require.Equal(t, float64(0), obj["outcomeStatus"])
	require.Equal(t, "0x1", obj["status"])
}

func TestTranslateResponseInvertsNonZeroOutcomeStatus(t *testing.T) {
	tr := newTranslator()
	body, err := json.Marshal(map[string]interface{}{
		"outcomeStatus": 1,
	})
	require.NoError(t, err)

	out, err := tr.TranslateResponse(context.Background(), "eth_getTransactionReceipt", body)
	require.NoError(t, err)

	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &obj))
	require.Equal(t, "0x0", obj["status"])
}

func TestMethodAliasCoversCoreMethods(t *testing.T) {
	require.Equal(t, "cfx_epochNumber", translate.MethodAlias["eth_blockNumber"])
	require.Equal(t, "cfx_getBlockByEpochNumber", translate.MethodAlias["eth_getBlockByNumber"])
	require.Equal(t, "cfx_getNextNonce", translate.MethodAlias["eth_getTransactionCount"])
}
