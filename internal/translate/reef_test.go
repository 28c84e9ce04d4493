package translate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/witnet/ethrpc-gateway/internal/gqlclient"
	"github.com/witnet/ethrpc-gateway/internal/translate"
)

func newProjector(t *testing.T, body string) *translate.ReefProjector {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return translate.NewReefProjector(gqlclient.New(srv.URL))
}

func TestLatestBlockProjectsHexFields(t *testing.T) {
	body := `{"data":{"blocks":[{
		"hash":"0xblockhash",
		"parentHash":"0xparent",
		"number":42,
		"stateRoot":"0xroot",
		"timestamp":1690000000,
		"extrinsics":[{"hash":"0xtx1"},{"hash":"0xtx2"}]
	}]}}`
	p := newProjector(t, body)

	block, err := p.LatestBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0x2a", block.Number)
	require.Equal(t, []string{"0xtx1", "0xtx2"}, block.Transactions)
}

func TestLatestBlockErrorsWhenEmpty(t *testing.T) {
	p := newProjector(t, `{"data":{"blocks":[]}}`)
	_, err := p.LatestBlock(context.Background())
	require.Error(t, err)
}

func TestReceiptByHashInvertsStatusAndCollectsLogs(t *testing.T) {
	body := `{"data":{"extrinsics":[{
		"hash":"0xtx1",
		"index":3,
		"signer":"0xsigner",
		"status":"success",
		"partialFee":"2000000000",
		"block":{"hash":"0xblockhash","number":42},
		"events":[
			{"method":"Log","data":"0xlogdata1"},
			{"method":"Created","data":"0xcontract"},
			{"method":"Log","data":"0xlogdata2"}
		]
	}]}}`
	p := newProjector(t, body)

	receipt, err := p.ReceiptByHash(context.Background(), "0xtx1")
	require.NoError(t, err)
	require.Equal(t, "0x1", receipt.Status)
	require.Equal(t, "0xcontract", receipt.ContractAddress)
	require.Len(t, receipt.Logs, 2)
	require.Equal(t, "0x0", receipt.Logs[0].LogIndex)
	require.Equal(t, "0x1", receipt.Logs[1].LogIndex)
}

func TestReceiptByHashFailedStatus(t *testing.T) {
	body := `{"data":{"extrinsics":[{
		"hash":"0xtx1","index":0,"signer":"0xs","status":"failed","partialFee":"0",
		"block":{"hash":"0xb","number":1},"events":[]
	}]}}`
	p := newProjector(t, body)

	receipt, err := p.ReceiptByHash(context.Background(), "0xtx1")
	require.NoError(t, err)
	require.Equal(t, "0x0", receipt.Status)
}

func TestTransactionByHashProjectsFromSigner(t *testing.T) {
	body := `{"data":{"extrinsics":[{
		"hash":"0xtx1","index":1,"signer":"0xsigner","status":"success","partialFee":"0",
		"block":{"hash":"0xb","number":9},"events":[]
	}]}}`
	p := newProjector(t, body)

	tx, err := p.TransactionByHash(context.Background(), "0xtx1")
	require.NoError(t, err)
	require.Equal(t, "0xsigner", tx.From)
	require.Equal(t, "0x9", tx.BlockNumber)
}
