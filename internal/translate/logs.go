package translate

import (
	"encoding/json"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
)

// EnrichLogs stamps each entry of a receipt's "logs" array with
// logIndex/transactionIndex/transactionHash/blockHash/blockNumber copied
// down from the enclosing receipt (§4.4, §4.5 "Log-method events"). Both
// the Conflux and Reef receipt projections share this instead of
// duplicating the loop. raw must be a JSON object; entries missing a
// "logs" array are returned unchanged.
func EnrichLogs(raw json.RawMessage) (json.RawMessage, error) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return raw, nil
	}
	logs := parsed.Get("logs")
	if !logs.Exists() || !logs.IsArray() {
		return raw, nil
	}

	txHash := parsed.Get("transactionHash").String()
	txIndex := parsed.Get("transactionIndex").String()
	blockHash := parsed.Get("blockHash").String()
	blockNumber := parsed.Get("blockNumber").String()

	var rebuilt json.RawMessage = []byte("[]")
	idx := 0
	var walkErr error
	logs.ForEach(func(_, v gjson.Result) bool {
		entry := []byte(v.Raw)
		var err error
		entry, err = sjson.SetBytes(entry, "logIndex", hexutil.EncodeUint64(uint64(idx)))
		if err != nil {
			walkErr = err
			return false
		}
		entry, err = sjson.SetBytes(entry, "transactionIndex", txIndex)
		if err != nil {
			walkErr = err
			return false
		}
		entry, err = sjson.SetBytes(entry, "transactionHash", txHash)
		if err != nil {
			walkErr = err
			return false
		}
		entry, err = sjson.SetBytes(entry, "blockHash", blockHash)
		if err != nil {
			walkErr = err
			return false
		}
		entry, err = sjson.SetBytes(entry, "blockNumber", blockNumber)
		if err != nil {
			walkErr = err
			return false
		}
		rebuilt, err = sjson.SetRawBytes(rebuilt, strconv.Itoa(idx), entry)
		if err != nil {
			walkErr = err
			return false
		}
		idx++
		return true
	})
	if walkErr != nil {
		return nil, gwerrors.Wrap(gwerrors.KindGeneric, walkErr, "enrich receipt logs")
	}

	out, err := sjson.SetRawBytes(raw, "logs", rebuilt)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "set enriched logs")
	}
	return out, nil
}
