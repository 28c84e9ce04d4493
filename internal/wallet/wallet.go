// Package wallet implements the gateway's signing identities: Wallet,
// WalletSet, and the per-address nonce-race mitigation the design notes
// (spec §9) invite (spec §3, §4.7, §5).
package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
)

// purpose, coinType, account and changeIndex form the Ethereum-standard
// derivation path prefix, m/44'/60'/0'/0/i (spec glossary).
const (
	purpose     = 44
	coinType    = 60
	account     = 0
	changeIndex = 0
)

const hardenedOffset = 0x80000000

// Wallet is a single signing identity (spec §3). Immutable after
// construction; the private key never leaves this package.
type Wallet struct {
	Address         common.Address
	DerivationIndex int
	priv            *ecdsa.PrivateKey
}

// SignMessage implements eth_sign/personal_sign-shaped message signing:
// prefix + keccak256, then an ECDSA signature over the digest.
func (w *Wallet) SignMessage(message []byte) ([]byte, error) {
	hash := accounts_TextHash(message)
	sig, err := crypto.Sign(hash, w.priv)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "sign message")
	}
	// crypto.Sign returns a recovery id in [0,1]; the Ethereum wire format
	// expects 27/28 (or 0/1 + 27 for EIP-155-aware tooling).
	sig[64] += 27
	return sig, nil
}

// accounts_TextHash mirrors go-ethereum's accounts.TextHash: the
// "\x19Ethereum Signed Message:\n"+len(message) prefix, then keccak256.
func accounts_TextHash(data []byte) []byte {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256([]byte(msg))
}

// SignTransaction signs tx with this wallet's key under the given signer
// (chain-id aware, per §4.7 "bind every wallet to the provider").
func (w *Wallet) SignTransaction(tx *types.Transaction, signer types.Signer) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, signer, w.priv)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "sign transaction")
	}
	return signed, nil
}

// WalletSet is the ordered, immutable collection of Wallets built at
// startup (spec §3). Index 0 is the default sender.
type WalletSet struct {
	wallets []*Wallet
	byAddr  map[common.Address]*Wallet

	nonces *NonceMonitor
}

// BuildParams mirrors config.WalletConfig plus a decoded private-key list,
// kept separate from internal/config so this package has no dependency on
// it (the private-key JSON decoding is the caller's job).
type BuildParams struct {
	SeedPhrase  string
	NumAddrs    int
	PrivateKeys []string // hex-encoded, with or without 0x prefix
}

// Build constructs a WalletSet per §4.7: derive NumAddrs wallets from
// SeedPhrase along m/44'/60'/0'/0/i, then append one wallet per raw
// private key. At least one wallet must result.
func Build(p BuildParams) (*WalletSet, error) {
	var wallets []*Wallet

	if p.SeedPhrase != "" {
		if !bip39.IsMnemonicValid(p.SeedPhrase) {
			return nil, gwerrors.New(gwerrors.KindInvalidParameter, "seed phrase is not a valid BIP-39 mnemonic")
		}
		seed := bip39.NewSeed(p.SeedPhrase, "")
		master, err := hdkeychain.NewMaster(seed, &hdParams)
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "derive master key")
		}
		for i := 0; i < p.NumAddrs; i++ {
			priv, err := derivePath(master, i)
			if err != nil {
				return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "derive wallet %d", i)
			}
			wallets = append(wallets, &Wallet{
				Address:         crypto.PubkeyToAddress(priv.PublicKey),
				DerivationIndex: i,
				priv:            priv,
			})
		}
	}

	for _, hexKey := range p.PrivateKeys {
		hexKey = strings.TrimPrefix(hexKey, "0x")
		priv, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindInvalidParameter, err, "parse private key")
		}
		wallets = append(wallets, &Wallet{
			Address:         crypto.PubkeyToAddress(priv.PublicKey),
			DerivationIndex: -1,
			priv:            priv,
		})
	}

	if len(wallets) == 0 {
		return nil, gwerrors.New(gwerrors.KindInvalidParameter, "wallet set must not be empty")
	}

	// Zeroize the sensitive strings we can still reach; the caller's
	// copies (env var origin) are outside this package's control (§4.7).
	p.SeedPhrase = ""
	for i := range p.PrivateKeys {
		p.PrivateKeys[i] = ""
	}

	byAddr := make(map[common.Address]*Wallet, len(wallets))
	for _, w := range wallets {
		byAddr[w.Address] = w
	}

	return &WalletSet{wallets: wallets, byAddr: byAddr, nonces: NewNonceMonitor()}, nil
}

// DecodePrivateKeysJSON decodes the ETHRPC_PRIVATE_KEYS env var (a JSON
// array of hex strings, per spec §6).
func DecodePrivateKeysJSON(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInvalidParameter, err, "ETHRPC_PRIVATE_KEYS is not a JSON array of strings")
	}
	return keys, nil
}

// Addresses returns the wallet set in order, lowest index first.
func (ws *WalletSet) Addresses() []common.Address {
	addrs := make([]common.Address, len(ws.wallets))
	for i, w := range ws.wallets {
		addrs[i] = w.Address
	}
	return addrs
}

// Default returns wallet index 0, the default sender (spec §3).
func (ws *WalletSet) Default() *Wallet { return ws.wallets[0] }

// Lookup finds a wallet by address, case-insensitively (spec §3).
func (ws *WalletSet) Lookup(addr common.Address) (*Wallet, bool) {
	w, ok := ws.byAddr[addr]
	return w, ok
}

// LookupHex parses a hex address string and looks it up.
func (ws *WalletSet) LookupHex(hexAddr string) (*Wallet, bool) {
	if !common.IsHexAddress(hexAddr) {
		return nil, false
	}
	return ws.Lookup(common.HexToAddress(hexAddr))
}

// Nonces returns the per-address nonce serialization monitor (§9).
func (ws *WalletSet) Nonces() *NonceMonitor { return ws.nonces }

// NonceMonitor serializes nonce-fetch-then-sign-then-submit for a given
// sending address while leaving distinct addresses fully concurrent — the
// fix the design notes (§9, "Per-wallet nonce race") invite.
type NonceMonitor struct {
	mu    sync.Mutex
	locks map[common.Address]*sync.Mutex
}

func NewNonceMonitor() *NonceMonitor {
	return &NonceMonitor{locks: make(map[common.Address]*sync.Mutex)}
}

// WithLock runs fn while holding the per-address lock for addr.
func (m *NonceMonitor) WithLock(ctx context.Context, addr common.Address, fn func() error) error {
	m.mu.Lock()
	l, ok := m.locks[addr]
	if !ok {
		l = &sync.Mutex{}
		m.locks[addr] = l
	}
	m.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}

// hdParams supplies just the two version-byte fields hdkeychain.NewMaster
// reads (HDPrivateKeyID/HDPublicKeyID); the gateway never derives a
// Bitcoin-style address from these keys, so the rest of chaincfg.Params is
// left at its zero value.
var hdParams = chaincfg.Params{
	HDPrivateKeyID: [4]byte{0x04, 0x88, 0xAD, 0xE4}, // xprv
	HDPublicKeyID:  [4]byte{0x04, 0x88, 0xB2, 0x1E}, // xpub
}

// derivePath walks m/44'/60'/0'/0/i from master.
func derivePath(master *hdkeychain.ExtendedKey, index int) (*ecdsa.PrivateKey, error) {
	steps := []uint32{
		hardenedOffset + purpose,
		hardenedOffset + coinType,
		hardenedOffset + account,
		changeIndex,
		uint32(index),
	}
	key := master
	for _, step := range steps {
		var err error
		key, err = key.Child(step)
		if err != nil {
			return nil, err
		}
	}
	ecPriv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return ecPriv.ToECDSA(), nil
}

var _ = big.NewInt // keep math/big import if signature helpers grow
