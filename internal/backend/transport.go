package backend

import (
	"context"
	"encoding/json"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	pkgerrors "github.com/pkg/errors"

	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
)

// JSONRPCTransport is the shared downstream-connection handle for every
// backend kind that ultimately speaks JSON-RPC over HTTP/WebSocket (EVM,
// Infura, Celo, Conflux, zkSync-era) — only Reef's Substrate+GraphQL pair
// (internal/backend/reef.go) does not embed this. Grounded on the
// teacher's `Backend` struct (rpc/backend/tx_info.go) holding one client
// handle + logger that every method call reuses.
type JSONRPCTransport struct {
	RPC    *rpc.Client
	Client *ethclient.Client

	// SendRawMethod is the backend-native method name for submitting a
	// signed transaction (eth_sendRawTransaction, cfx_sendRawTransaction, …).
	SendRawMethod string
	// GasPriceMethod is the backend-native method name used for an
	// unestimated gas price lookup.
	GasPriceMethod string
}

// Dial connects to url using go-ethereum's generic JSON-RPC client — the
// contract §1 describes as "a generic Ethereum JSON-RPC client
// (Infura-style included)".
func Dial(ctx context.Context, url string, sendRawMethod, gasPriceMethod string) (*JSONRPCTransport, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "dial backend %s", url)
	}
	return &JSONRPCTransport{
		RPC:            rc,
		Client:         ethclient.NewClient(rc),
		SendRawMethod:  sendRawMethod,
		GasPriceMethod: gasPriceMethod,
	}, nil
}

func (t *JSONRPCTransport) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := t.Client.ChainID(ctx)
	if err != nil {
		return nil, translateBackendError(err)
	}
	return id, nil
}

// EstimateGasPrice asks the downstream for its current gas price via
// GasPriceMethod. The tx argument is accepted for symmetry with
// EstimateGasLimit; no implementation reads it (Celo takes feeCurrency from
// its configuration).
func (t *JSONRPCTransport) EstimateGasPrice(ctx context.Context, tx *Tx) (*big.Int, error) {
	var result hexutil.Big
	if err := t.RPC.CallContext(ctx, &result, t.GasPriceMethod); err != nil {
		return nil, translateBackendError(err)
	}
	return (*big.Int)(&result), nil
}

func (t *JSONRPCTransport) EstimateGasLimit(ctx context.Context, tx *Tx) (uint64, error) {
	msg := ethereum.CallMsg{}
	if tx.From != nil {
		msg.From = *tx.From
	}
	if tx.To != nil {
		msg.To = tx.To
	}
	if tx.Value != nil {
		msg.Value = (*big.Int)(tx.Value)
	}
	if tx.Data != nil {
		msg.Data = *tx.Data
	}
	limit, err := t.Client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, translateBackendError(err)
	}
	return limit, nil
}

func (t *JSONRPCTransport) RawSend(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	args, err := paramsToArgs(params)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode params for %s", method)
	}
	var result json.RawMessage
	if err := t.RPC.CallContext(ctx, &result, method, args...); err != nil {
		return nil, translateBackendError(err)
	}
	return result, nil
}

func (t *JSONRPCTransport) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	var hash common.Hash
	if err := t.RPC.CallContext(ctx, &hash, t.SendRawMethod, hexutil.Encode(raw)); err != nil {
		return "", translateBackendError(err)
	}
	return hash.Hex(), nil
}

func (t *JSONRPCTransport) PendingNonceAt(ctx context.Context, addr [20]byte) (uint64, error) {
	n, err := t.Client.PendingNonceAt(ctx, common.Address(addr))
	if err != nil {
		return 0, translateBackendError(err)
	}
	return n, nil
}

// BlockNumber returns the downstream's current head height, used by
// RollbackState checks.
func (t *JSONRPCTransport) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := t.Client.BlockNumber(ctx)
	if err != nil {
		return 0, translateBackendError(err)
	}
	return n, nil
}

func paramsToArgs(params json.RawMessage) ([]interface{}, error) {
	if len(params) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return nil, err
	}
	args := make([]interface{}, len(raw))
	for i, r := range raw {
		args[i] = r
	}
	return args, nil
}

// rpcError mirrors the subset of go-ethereum/rpc's unexported error
// interfaces the gateway needs to distinguish "backend sent a structured
// JSON-RPC error" from "transport/decode failure" (spec §7).
type rpcError interface {
	Error() string
	ErrorCode() int
}

type rpcDataError interface {
	ErrorData() interface{}
}

// translateBackendError converts errors surfaced by the downstream backend
// into gateway errors of KindExecutionError. A structured backend error
// keeps its message and, when present, its data; its own JSON-RPC code is
// not kept, so the client always sees the execution-error code.
func translateBackendError(err error) error {
	if err == nil {
		return nil
	}
	if rerr, ok := err.(rpcError); ok {
		data := interface{}(nil)
		if derr, ok := err.(rpcDataError); ok {
			data = derr.ErrorData()
		}
		gerr := &gwerrors.Error{Kind: gwerrors.KindExecutionError, Msg: rerr.Error()}
		if data != nil {
			return gerr.WithData(data)
		}
		return gerr
	}
	return gwerrors.Wrap(gwerrors.KindExecutionError, pkgerrors.WithStack(err), "backend call failed")
}
