package backend

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/witnet/ethrpc-gateway/internal/config"
)

// ApplyFeeCurrency is pure config-driven stamping (§4.6): it needs no
// dialed transport, so the test builds a CeloWrapper directly rather than
// going through Dial.
func TestCeloApplyFeeCurrencyStampsConfiguredAddress(t *testing.T) {
	feeCurrency := "0x765DE816845861e75A25fCA122bb6898B8B1282a"
	w := &CeloWrapper{cfg: config.BackendConfig{FeeCurrency: feeCurrency}}

	tx := &Tx{}
	w.ApplyFeeCurrency(tx)

	require.NotNil(t, tx.FeeCurrency)
	require.Equal(t, common.HexToAddress(feeCurrency), *tx.FeeCurrency)
}

func TestCeloApplyFeeCurrencyLeavesUnsetWhenNotConfigured(t *testing.T) {
	w := &CeloWrapper{cfg: config.BackendConfig{}}
	tx := &Tx{}
	w.ApplyFeeCurrency(tx)

	require.Nil(t, tx.FeeCurrency)
}
