package authorizer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/client"
	"github.com/xdao/dao-sdk-go/dao"
	"github.com/xdao/dao-sdk-go/signature"
)

// ExecutedEvent 链上 Executed 事件
type ExecutedEvent struct {
	Action      action.Action
	Digest      action.Digest
	Signatures  signature.Set
	TxHash      common.Hash
	BlockNumber uint64
}

// WatchExecuted 订阅 DAO 的 Executed 事件（需要 WebSocket 客户端）
//
// 通道在 ctx 结束或连接关闭时关闭；无法解码的日志被记录并跳过
func (r *RPCCollaborator) WatchExecuted(ctx context.Context) (<-chan *ExecutedEvent, error) {
	executed := dao.ParsedABI().Events["Executed"]
	logs, err := r.client.Subscribe(ctx, &client.EventFilter{
		Addresses: []common.Address{r.address},
		Topics:    [][]common.Hash{{executed.ID}},
	})
	if err != nil {
		return nil, err
	}

	out := make(chan *ExecutedEvent)
	go func() {
		defer close(out)
		for log := range logs {
			if log.Removed {
				continue
			}
			ev, err := r.DecodeExecuted(log)
			if err != nil {
				r.logger.Warn("skip undecodable Executed log", "tx", log.TxHash.Hex(), "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// DecodeExecuted 解码 Executed 日志并重新计算摘要
func (r *RPCCollaborator) DecodeExecuted(log *client.Event) (*ExecutedEvent, error) {
	executed := dao.ParsedABI().Events["Executed"]
	if len(log.Topics) < 2 || log.Topics[0] != executed.ID {
		return nil, fmt.Errorf("not an Executed log")
	}

	values, err := executed.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack Executed: %w", err)
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("unpack Executed: got %d values", len(values))
	}
	data, ok1 := values[0].([]byte)
	value, ok2 := values[1].(*big.Int)
	nonce, ok3 := values[2].(*big.Int)
	timestamp, ok4 := values[3].(*big.Int)
	sigs, ok5 := values[4].([][]byte)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("unpack Executed: unexpected value types")
	}

	a := action.Action{
		Target:    common.BytesToAddress(log.Topics[1].Bytes()),
		Data:      data,
		Value:     value,
		Nonce:     nonce,
		Timestamp: timestamp,
	}
	digest, err := a.Digest(r.address, r.chainID)
	if err != nil {
		return nil, err
	}

	return &ExecutedEvent{
		Action:      a,
		Digest:      digest,
		Signatures:  signature.Set(sigs),
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
	}, nil
}
