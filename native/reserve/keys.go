package reserve

import (
	"encoding/hex"
	"strings"
)

var (
	reserveRecordPrefix    = []byte("reserve/record/")
	reserveAssetIndexKey   = []byte("reserve/assets")
	reserveWhitelistKey    = []byte("reserve/whitelist")
	vestingRecordPrefix    = []byte("reserve/vesting/")
	freeReservePrefix      = []byte("reserve/free/")
	paramsKey              = []byte("reserve/params")
	withdrawalRecordPrefix = []byte("reserve/withdrawal/")
	withdrawalIndexKey     = []byte("reserve/withdrawal/index")
)

func reserveKey(asset [20]byte) []byte {
	return appendHexKey(reserveRecordPrefix, asset)
}

func vestingKey(account [20]byte) []byte {
	return appendHexKey(vestingRecordPrefix, account)
}

func freeReserveKey(asset [20]byte) []byte {
	return appendHexKey(freeReservePrefix, asset)
}

func withdrawalKey(receiptID string) []byte {
	trimmed := strings.TrimSpace(receiptID)
	buf := make([]byte, len(withdrawalRecordPrefix)+len(trimmed))
	copy(buf, withdrawalRecordPrefix)
	copy(buf[len(withdrawalRecordPrefix):], trimmed)
	return buf
}

func appendHexKey(prefix []byte, addr [20]byte) []byte {
	encoded := hex.EncodeToString(addr[:])
	buf := make([]byte, len(prefix)+len(encoded))
	copy(buf, prefix)
	copy(buf[len(prefix):], encoded)
	return buf
}
