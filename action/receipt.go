package action

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt 动作执行回执
type Receipt struct {
	Digest  Digest
	Signers []common.Address // 与签名顺序一致
	Return  []byte           // 目标调用返回数据（仅进程内执行）

	// Index 在执行历史中的位置，未知时为 -1
	Index      int
	ExecutedAt time.Time

	// 链上执行信息，进程内执行时为零值
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// OnChain 是否为链上交易回执
func (r *Receipt) OnChain() bool {
	return r.TxHash != (common.Hash{})
}
