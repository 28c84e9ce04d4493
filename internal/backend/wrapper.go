package backend

import (
	"context"
	"encoding/json"
	"math/big"
	"sync/atomic"

	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

// Wrapper is the BackendWrapper contract (spec §2, §4.3): it holds the
// wallet set, the downstream connection, the tuning knobs, composes and
// signs transactions, and performs raw forwards.
type Wrapper interface {
	GasEstimator

	// RawSend forwards method/params to the downstream verbatim and
	// returns its raw JSON result (§4.1 step 3, default dispatch).
	RawSend(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

	// SendRawTransaction submits a signed transaction and returns its hash.
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)

	// PendingNonceAt returns the next nonce for addr (§4.3, "Nonce is
	// fetched outside composeTransaction").
	PendingNonceAt(ctx context.Context, addr [20]byte) (uint64, error)

	Config() config.BackendConfig
	Wallets() *wallet.WalletSet
	Logger() *gwlog.Logger
}

// RollbackState tracks lastKnownBlock/lastKnownEpoch (spec §3). Mutated
// only by CheckRollback. Advisory only (§5): a stale write under race is
// acceptable, so a simple atomic int64 suffices instead of a mutex.
type RollbackState struct {
	lastKnown int64
}

// NewRollbackState seeds the tracker at zero; the first CheckRollback call
// always treats the observed head as the new baseline.
func NewRollbackState() *RollbackState { return &RollbackState{} }

// Observation describes what CheckRollback found.
type Observation int

const (
	ObservationAdvance Observation = iota
	ObservationFilteredRollback
	ObservationCompromisingRollback
)

// CheckRollback compares the freshly observed head against the last known
// one (spec §4.4). confirmationThreshold is compared against the gap to
// decide warn-vs-error severity; it is 0 for non-Conflux backends that
// still want advisory tracking without the Conflux-specific severity
// split.
func (rs *RollbackState) CheckRollback(observed int64, confirmationThreshold int64) Observation {
	prev := atomic.SwapInt64(&rs.lastKnown, observed)
	if prev == 0 || observed >= prev {
		return ObservationAdvance
	}
	gap := prev - observed
	if gap < confirmationThreshold {
		return ObservationFilteredRollback
	}
	return ObservationCompromisingRollback
}

// LastKnown returns the last observed head, 0 if none yet.
func (rs *RollbackState) LastKnown() int64 { return atomic.LoadInt64(&rs.lastKnown) }

var _ = big.NewInt
