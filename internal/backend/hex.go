package backend

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// hexBig renders n as a 0x-prefixed hex string, the wire shape every
// Ethereum JSON-RPC integer uses (spec §4.2's "eth_gasPrice ... returns
// ... raw gas price as 0x-hex").
func hexBig(n *big.Int) string {
	return (*hexutil.Big)(n).String()
}

func hexToAddr(s string) common.Address {
	return common.HexToAddress(s)
}
