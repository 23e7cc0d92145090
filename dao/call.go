package dao

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call 延迟调用：目标、调用数据与附带金额，在授权管道中不做解释
type Call struct {
	Target common.Address
	Data   []byte
	Value  *big.Int
}

// Invocation 目标收到的调用上下文
type Invocation struct {
	From  common.Address // 发起调用的实体地址
	Data  []byte
	Value *big.Int
}

// Target 可被实体调用的外部合约
//
// 返回错误即视为 revert，实体不会产生任何状态变化。
// Invoke 在实体锁内调用，不能回调同一实体
type Target interface {
	Invoke(ctx context.Context, inv Invocation) ([]byte, error)
}

// TargetFunc 函数适配器
type TargetFunc func(ctx context.Context, inv Invocation) ([]byte, error)

// Invoke 实现 Target
func (f TargetFunc) Invoke(ctx context.Context, inv Invocation) ([]byte, error) {
	return f(ctx, inv)
}
