package wallet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

// Known-answer BIP-44 derivation: the widely used ganache/testrpc default
// mnemonic derives these two addresses at m/44'/60'/0'/0/0 and .../0/1.
const testMnemonic = "candy maple cake sugar pudding cream honey rich smooth crumble sweet treat"

func TestBuildDerivesWalletsFromSeedPhrase(t *testing.T) {
	ws, err := wallet.Build(wallet.BuildParams{
		SeedPhrase: testMnemonic,
		NumAddrs:   2,
	})
	require.NoError(t, err)

	addrs := ws.Addresses()
	require.Len(t, addrs, 2)
	require.Equal(t, "0x627306090abaB3A6e1400e9345bC60c78a8BEf57", addrs[0].Hex())
	require.Equal(t, "0xf17f52151EbEF6C7334FAD080c5704D77216b732", addrs[1].Hex())
}

func TestBuildDefaultWalletIsIndexZero(t *testing.T) {
	ws, err := wallet.Build(wallet.BuildParams{SeedPhrase: testMnemonic, NumAddrs: 2})
	require.NoError(t, err)
	require.Equal(t, ws.Addresses()[0], ws.Default().Address)
}

func TestBuildRejectsInvalidMnemonic(t *testing.T) {
	_, err := wallet.Build(wallet.BuildParams{SeedPhrase: "not a real mnemonic", NumAddrs: 1})
	require.Error(t, err)
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	_, err := wallet.Build(wallet.BuildParams{})
	require.Error(t, err)
}

func TestBuildAppendsRawPrivateKeys(t *testing.T) {
	ws, err := wallet.Build(wallet.BuildParams{
		SeedPhrase:  testMnemonic,
		NumAddrs:    1,
		PrivateKeys: []string{"0xc87509a1c067bbde78beb793e6fa76530b6382a4c0241e5e4a9ec0a0f44dc0d"},
	})
	require.NoError(t, err)
	require.Len(t, ws.Addresses(), 2)
}

func TestLookupHexIsCaseInsensitive(t *testing.T) {
	ws, err := wallet.Build(wallet.BuildParams{SeedPhrase: testMnemonic, NumAddrs: 1})
	require.NoError(t, err)

	wlt, ok := ws.LookupHex("0x627306090ABAB3A6E1400E9345BC60C78A8BEF57")
	require.True(t, ok)
	require.Equal(t, ws.Default().Address, wlt.Address)
}

func TestLookupHexUnknownAddressNotFound(t *testing.T) {
	ws, err := wallet.Build(wallet.BuildParams{SeedPhrase: testMnemonic, NumAddrs: 1})
	require.NoError(t, err)

	_, ok := ws.LookupHex("0x0000000000000000000000000000000000dEaD")
	require.False(t, ok)
}

func TestLookupHexMalformedAddress(t *testing.T) {
	ws, err := wallet.Build(wallet.BuildParams{SeedPhrase: testMnemonic, NumAddrs: 1})
	require.NoError(t, err)

	_, ok := ws.LookupHex("not-an-address")
	require.False(t, ok)
}

func TestNonceMonitorSerializesPerAddress(t *testing.T) {
	ws, err := wallet.Build(wallet.BuildParams{SeedPhrase: testMnemonic, NumAddrs: 1})
	require.NoError(t, err)

	addr := ws.Default().Address
	var order []int
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{}, 2)

	go func() {
		_ = ws.Nonces().WithLock(nil, addr, func() error {
			order = append(order, 1)
			close(entered)
			<-release
			return nil
		})
		done <- struct{}{}
	}()
	<-entered

	go func() {
		_ = ws.Nonces().WithLock(nil, addr, func() error {
			order = append(order, 2)
			return nil
		})
		done <- struct{}{}
	}()

	// The second call waits while the first still holds the address lock.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, []int{1}, order)

	close(release)
	<-done
	<-done
	require.Equal(t, []int{1, 2}, order)
}
