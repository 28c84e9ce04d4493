// Package cip37 implements Conflux's CIP-37 base32 address encoding, the
// network-tagged address format Conflux Core Space nodes speak natively
// (spec §4.4, glossary "CIP-37"). No retrieved example implements this
// codec, so it is original code written against the public CIP-37
// specification rather than grounded on a pack file (see DESIGN.md).
package cip37

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// charset is the CIP-37 base32 alphabet (a-z and 0-9 without i, l, o, q).
const charset = "abcdefghjkmnprstuvwxyz0123456789"

var charsetRev = func() [128]int8 {
	var rev [128]int8
	for i := range rev {
		rev[i] = -1
	}
	for i, c := range charset {
		rev[c] = int8(i)
	}
	return rev
}()

// addressTypeBits is the CIP-37 version byte (0) that precedes the 20-byte
// address in the encoded payload. The address type (user, contract,
// builtin, null) is not stored here: it is the first hex nibble of the
// address itself, so every address type encodes the same way.
const addressTypeBits = 0x00

// NetworkPrefix returns the CIP-37 network prefix for a given networkId,
// e.g. "cfx" for mainnet (1029), "cfxtest" for testnet (1), "net<N>"
// otherwise.
func NetworkPrefix(networkID uint32) string {
	switch networkID {
	case 1029:
		return "cfx"
	case 1:
		return "cfxtest"
	default:
		return fmt.Sprintf("net%d", networkID)
	}
}

// ToCIP37 encodes a 20-byte hex Ethereum-style address into its CIP-37
// base32 form under networkID, e.g. 0x85d80245dc02f5a89589e1f19c5c718e405b56cd
// on mainnet (1029) encodes as "cfx:acc7uawf5ubtnmezvhu9dhc6sghea0403y2dgpyfjp".
func ToCIP37(addr common.Address, networkID uint32) string {
	prefix := NetworkPrefix(networkID)
	payload := append([]byte{addressTypeBits}, addr.Bytes()...)
	data := convertBits(payload, 8, 5, true)
	checksum := createChecksum(prefix, data)
	combined := append(data, checksum...)

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, b := range combined {
		sb.WriteByte(charset[b])
	}
	return sb.String()
}

// FromCIP37 decodes a CIP-37 base32 address string back to its 20-byte
// hex Ethereum-style form. Returns an error if the string is not a
// well-formed CIP-37 address (bad checksum, bad charset, wrong payload
// length).
func FromCIP37(s string) (common.Address, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return common.Address{}, fmt.Errorf("cip37: missing network prefix in %q", s)
	}
	prefix := strings.ToLower(s[:idx])
	body := strings.ToLower(s[idx+1:])
	if len(body) < 8 {
		return common.Address{}, fmt.Errorf("cip37: address body too short in %q", s)
	}

	decoded := make([]byte, 0, len(body))
	for _, c := range body {
		if c >= 128 || charsetRev[c] == -1 {
			return common.Address{}, fmt.Errorf("cip37: invalid character %q in %q", c, s)
		}
		decoded = append(decoded, byte(charsetRev[c]))
	}

	data := decoded[:len(decoded)-8]
	checksum := decoded[len(decoded)-8:]
	if !verifyChecksum(prefix, data, checksum) {
		return common.Address{}, fmt.Errorf("cip37: checksum mismatch in %q", s)
	}

	payload := convertBits(data, 5, 8, false)
	if len(payload) != 21 {
		return common.Address{}, fmt.Errorf("cip37: unexpected payload length %d in %q", len(payload), s)
	}
	return common.BytesToAddress(payload[1:]), nil
}

// convertBits regroups a byte slice from fromBits-wide groups into
// toBits-wide groups, the standard Bech32/CIP-37 bit-regrouping step.
func convertBits(data []byte, fromBits, toBits uint, pad bool) []byte {
	var acc uint32
	var bits uint
	maxv := uint32(1<<toBits) - 1
	var out []byte
	for _, b := range data {
		acc = (acc << fromBits) | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}
	if pad && bits > 0 {
		out = append(out, byte((acc<<(toBits-bits))&maxv))
	}
	return out
}

func polymod(values []byte) uint64 {
	gen := []uint64{0x98f2bc8e61, 0x79b76d99e2, 0xf33e5fb3c4, 0xae2eabe2a8, 0x1e4f43e470}
	chk := uint64(1)
	for _, v := range values {
		top := chk >> 35
		chk = ((chk & 0x07ffffffff) << 5) ^ uint64(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk ^ 1
}

func prefixExpand(prefix string) []byte {
	out := make([]byte, 0, len(prefix)+1)
	for _, c := range prefix {
		out = append(out, byte(c)&0x1f)
	}
	out = append(out, 0)
	return out
}

func createChecksum(prefix string, data []byte) []byte {
	values := append(prefixExpand(prefix), data...)
	values = append(values, 0, 0, 0, 0, 0, 0, 0, 0)
	mod := polymod(values)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte((mod >> uint(5*(7-i))) & 0x1f)
	}
	return out
}

func verifyChecksum(prefix string, data, checksum []byte) bool {
	values := append(prefixExpand(prefix), data...)
	values = append(values, checksum...)
	return polymod(values) == 0
}
