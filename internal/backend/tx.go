// Package backend implements BackendWrapper (spec §4.3): transaction
// composition, gas price/limit resolution, rollback detection, and raw
// forwarding to one of the five downstream kinds.
package backend

import (
	"context"
	"encoding/json"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
)

// Tx is the logical transaction (spec §3). Pointer fields are optional;
// absence is distinct from zero.
type Tx struct {
	From                 *common.Address `json:"from,omitempty"`
	To                   *common.Address `json:"to,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Data                 *hexutil.Bytes  `json:"data,omitempty"`
	Nonce                *hexutil.Uint64 `json:"nonce,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	GasLimit             *hexutil.Uint64 `json:"gas,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
	Type                 *hexutil.Uint64 `json:"type,omitempty"`
	FeeCurrency          *common.Address `json:"feeCurrency,omitempty"`
}

// FromJSON decodes a single eth_call/eth_sendTransaction/eth_estimateGas
// parameter object into a Tx.
func FromJSON(raw json.RawMessage) (*Tx, error) {
	var tx Tx
	if len(raw) == 0 {
		return &tx, nil
	}
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInvalidParameter, err, "decode transaction params")
	}
	return &tx, nil
}

// GasEstimator asks the downstream backend for an estimate; EVM-family
// wrappers implement it against ethclient, Conflux/Reef wrappers against
// their respective native clients.
type GasEstimator interface {
	EstimateGasPrice(ctx context.Context, tx *Tx) (*big.Int, error)
	EstimateGasLimit(ctx context.Context, tx *Tx) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// ComposeTransaction implements §4.3, the most error-prone operation in
// the gateway. isReadOnly distinguishes eth_call and eth_estimateGas (no
// nonce, gas price may stay unset) from eth_sendTransaction.
func ComposeTransaction(ctx context.Context, cfg config.BackendConfig, est GasEstimator, in *Tx, isReadOnly bool) (*Tx, error) {
	tx := *in // shallow copy; pointer fields still alias caller's ints/bytes, which are never mutated in place.

	if cfg.ForceEIP155 {
		chainID, err := est.ChainID(ctx)
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "fetch chain id for EIP-155")
		}
		tx.ChainID = (*hexutil.Big)(chainID)
	}

	if cfg.ForceEIP1559 {
		two := hexutil.Uint64(2)
		tx.Type = &two
	}

	gasPrice, err := resolveGasPrice(ctx, cfg, est, &tx, isReadOnly)
	if err != nil {
		return nil, err
	}
	tx.GasPrice = gasPrice

	gasLimit, err := resolveGasLimit(ctx, cfg, est, &tx, isReadOnly)
	if err != nil {
		return nil, err
	}
	tx.GasLimit = gasLimit

	if cfg.ForceEIP1559 && tx.GasPrice != nil {
		if tx.MaxFeePerGas == nil {
			tx.MaxFeePerGas = tx.GasPrice
		}
		if tx.MaxPriorityFeePerGas == nil {
			tx.MaxPriorityFeePerGas = tx.GasPrice
		}
	}

	return &tx, nil
}

// resolveGasPrice implements §4.3 step 4/5.
func resolveGasPrice(ctx context.Context, cfg config.BackendConfig, est GasEstimator, tx *Tx, isReadOnly bool) (*hexutil.Big, error) {
	if isReadOnly && tx.From == nil && tx.GasPrice == nil {
		return nil, nil
	}
	if tx.GasPrice == nil {
		return getGasPrice(ctx, cfg, est)
	}
	price := (*big.Int)(tx.GasPrice)
	if price.Cmp(cfg.DefaultGasPrice) > 0 {
		return nil, gwerrors.New(gwerrors.KindGasPriceAboveThreshold,
			"supplied gas price %s exceeds threshold %s", price, cfg.DefaultGasPrice)
	}
	return tx.GasPrice, nil
}

// GetGasPrice exposes step 5's gas-price resolution for callers outside
// composeTransaction — specifically the eth_gasPrice handler (§4.2),
// which always wants the computed/default price regardless of
// read-only-ness.
func GetGasPrice(ctx context.Context, cfg config.BackendConfig, est GasEstimator) (*big.Int, error) {
	v, err := getGasPrice(ctx, cfg, est)
	if err != nil {
		return nil, err
	}
	return (*big.Int)(v), nil
}

// getGasPrice implements §4.3 step 5.
func getGasPrice(ctx context.Context, cfg config.BackendConfig, est GasEstimator) (*hexutil.Big, error) {
	if !cfg.EstimateGasPrice {
		return (*hexutil.Big)(cfg.DefaultGasPrice), nil
	}
	raw, err := est.EstimateGasPrice(ctx, nil)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUnpredictableGasPrice, err, "estimate gas price")
	}
	factored := applyFactorCeil(raw, cfg.GasPriceFactor)
	if factored.Cmp(cfg.DefaultGasPrice) > 0 {
		return nil, gwerrors.New(gwerrors.KindGasPriceAboveThreshold,
			"estimated gas price %s exceeds threshold %s", factored, cfg.DefaultGasPrice)
	}
	return (*hexutil.Big)(factored), nil
}

// resolveGasLimit mirrors resolveGasPrice symmetrically (§4.3 step 6).
func resolveGasLimit(ctx context.Context, cfg config.BackendConfig, est GasEstimator, tx *Tx, isReadOnly bool) (*hexutil.Uint64, error) {
	if isReadOnly && tx.From == nil && tx.GasLimit == nil {
		return nil, nil
	}
	if tx.GasLimit == nil {
		return getGasLimit(ctx, cfg, est, tx)
	}
	limit := uint64(*tx.GasLimit)
	if limit > cfg.DefaultGasLimit {
		return nil, gwerrors.New(gwerrors.KindGasLimitAboveThreshold,
			"supplied gas limit %d exceeds threshold %d", limit, cfg.DefaultGasLimit)
	}
	return tx.GasLimit, nil
}

func getGasLimit(ctx context.Context, cfg config.BackendConfig, est GasEstimator, tx *Tx) (*hexutil.Uint64, error) {
	if !cfg.EstimateGasLimit {
		v := hexutil.Uint64(cfg.DefaultGasLimit)
		return &v, nil
	}
	raw, err := est.EstimateGasLimit(ctx, tx)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUnpredictableGasLimit, err, "estimate gas limit")
	}
	factored := uint64(math.Ceil(float64(raw) * cfg.GasLimitFactor))
	if factored > cfg.DefaultGasLimit {
		return nil, gwerrors.New(gwerrors.KindGasLimitAboveThreshold,
			"estimated gas limit %d exceeds threshold %d", factored, cfg.DefaultGasLimit)
	}
	v := hexutil.Uint64(factored)
	return &v, nil
}

// applyFactorCeil multiplies raw by factor, taking the ceiling at two
// decimal places: ceil(raw*factor*100)/100, per §4.3 step 5.
func applyFactorCeil(raw *big.Int, factor float64) *big.Int {
	if factor == 1.0 {
		return new(big.Int).Set(raw)
	}
	scaled := new(big.Float).Mul(new(big.Float).SetInt(raw), big.NewFloat(factor*100))
	ceiled, _ := scaled.Float64()
	ceiled = math.Ceil(ceiled)
	result := big.NewInt(int64(ceiled))
	return result.Div(result, big.NewInt(100))
}
