package handlers_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/witnet/ethrpc-gateway/internal/backend"
	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/handlers"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

// callStubWrapper adds blockNumberer/rollbacker to stubWrapper's surface
// so Call's interleave-binding path (§4.2) can be exercised the same way
// it runs for Conflux's BlockNumber/Rollback against cfx_epochNumber.
type callStubWrapper struct {
	*stubWrapper
	head       uint64
	rollback   *backend.RollbackState
	lastParams json.RawMessage
	lastMethod string
}

func newCallStubWrapper(t *testing.T, interleave uint64, confirmations uint64, head uint64) *callStubWrapper {
	ws, err := wallet.Build(wallet.BuildParams{SeedPhrase: testMnemonic, NumAddrs: 1})
	require.NoError(t, err)
	base := &stubWrapper{
		cfg: config.BackendConfig{
			DefaultGasPrice:    big.NewInt(20_000_000_000),
			DefaultGasLimit:    6_000_000,
			InterleaveBlocks:   interleave,
			ConfirmationEpochs: confirmations,
		},
		wallets:    ws,
		chainID:    big.NewInt(1),
		rawResults: map[string]json.RawMessage{},
	}
	return &callStubWrapper{stubWrapper: base, head: head, rollback: backend.NewRollbackState()}
}

func (s *callStubWrapper) BlockNumber(ctx context.Context) (uint64, error) { return s.head, nil }
func (s *callStubWrapper) Rollback() *backend.RollbackState                { return s.rollback }

func (s *callStubWrapper) RawSend(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	s.lastMethod = method
	s.lastParams = params
	return json.RawMessage(`"0x1"`), nil
}

func TestCallZeroInterleaveSkipsBinding(t *testing.T) {
	w := newCallStubWrapper(t, 0, 0, 100)
	params, err := json.Marshal([]json.RawMessage{json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, err = handlers.Call(context.Background(), w, "eth_call", params)
	require.NoError(t, err)

	var got []json.RawMessage
	require.NoError(t, json.Unmarshal(w.lastParams, &got))
	require.Len(t, got, 1, "zero interleaveBlocks must not append a block tag")
}

func TestCallBindsToHeadMinusInterleaveBlocks(t *testing.T) {
	w := newCallStubWrapper(t, 12, 12, 100)
	params, err := json.Marshal([]json.RawMessage{json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, err = handlers.Call(context.Background(), w, "eth_call", params)
	require.NoError(t, err)

	var got []json.RawMessage
	require.NoError(t, json.Unmarshal(w.lastParams, &got))
	require.Len(t, got, 2)
	var tag string
	require.NoError(t, json.Unmarshal(got[1], &tag))
	require.Equal(t, hexutil.EncodeUint64(88), tag)
}

// Scenario 6 through the handler: head regresses past confirmationEpochs
// and Call still forwards the (now compromising) rollback rather than
// aborting the read-only call.
func TestCallSurvivesCompromisingRollback(t *testing.T) {
	w := newCallStubWrapper(t, 12, 12, 100)
	params, err := json.Marshal([]json.RawMessage{json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = handlers.Call(context.Background(), w, "eth_call", params)
	require.NoError(t, err)
	require.Equal(t, backend.ObservationAdvance, w.rollback.CheckRollback(100, 12))

	w.head = 80
	_, err = handlers.Call(context.Background(), w, "eth_call", params)
	require.NoError(t, err)
	require.Equal(t, "eth_call", w.lastMethod)

	var got []json.RawMessage
	require.NoError(t, json.Unmarshal(w.lastParams, &got))
	var tag string
	require.NoError(t, json.Unmarshal(got[1], &tag))
	require.Equal(t, hexutil.EncodeUint64(68), tag)
}

// Call must forward under the dispatch-time method it is invoked with, not
// a hardcoded "eth_call" — this is what lets Conflux (dispatched under
// cfx_call via confluxHandlerTable/translate.MethodAlias) reach a real
// cfx_call downstream instead of a method its node does not implement.
func TestCallForwardsDispatchTimeMethodName(t *testing.T) {
	w := newCallStubWrapper(t, 0, 0, 100)
	params, err := json.Marshal([]json.RawMessage{json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, err = handlers.Call(context.Background(), w, "cfx_call", params)
	require.NoError(t, err)
	require.Equal(t, "cfx_call", w.lastMethod)
}

// Same for the interleave-binding branch, which rebuilds params before
// forwarding.
func TestCallWithInterleaveForwardsDispatchTimeMethodName(t *testing.T) {
	w := newCallStubWrapper(t, 12, 12, 100)
	params, err := json.Marshal([]json.RawMessage{json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, err = handlers.Call(context.Background(), w, "cfx_call", params)
	require.NoError(t, err)
	require.Equal(t, "cfx_call", w.lastMethod)
}
