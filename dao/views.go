package dao

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/signature"
)

// IsConsumed 摘要是否已执行
func (e *Entity) IsConsumed(ctx context.Context, digest action.Digest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.consumed[digest]
	return ok, nil
}

// Members 当前持有治理代币的成员（按首次获得份额的顺序）
func (e *Entity) Members(ctx context.Context) ([]signature.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	members := make([]signature.Member, 0, len(e.holders))
	for _, h := range e.holders {
		bal := e.balances[h]
		if bal.Sign() == 0 {
			continue
		}
		members = append(members, signature.Member{Address: h, Weight: new(big.Int).Set(bal)})
	}
	return members, nil
}

// Quorum 法定人数百分比
func (e *Entity) Quorum(ctx context.Context) (uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quorum, nil
}

// TotalWeight 治理代币总量
func (e *Entity) TotalWeight(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.TotalSupply(), nil
}

// BalanceOf 治理代币余额
func (e *Entity) BalanceOf(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bal, ok := e.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// TotalSupply 治理代币总量
func (e *Entity) TotalSupply() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.totalSupply)
}

// Mintable 是否允许增发
func (e *Entity) Mintable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mintable
}

// Burnable 是否允许销毁
func (e *Entity) Burnable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.burnable
}

// NativeBalance 实体持有的原生币
func (e *Entity) NativeBalance() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.native)
}

// NativeBalanceOf 实体转出到某地址的原生币累计
func (e *Entity) NativeBalanceOf(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bal, ok := e.accounts[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// GetExecutedVoting 返回全部执行历史
func (e *Entity) GetExecutedVoting() []ExecutedVoting {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ExecutedVoting, len(e.executed))
	copy(out, e.executed)
	return out
}

// ExecutedVotingByIndex 按序号返回执行记录
func (e *Entity) ExecutedVotingByIndex(i int) (ExecutedVoting, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.executed) {
		return ExecutedVoting{}, fmt.Errorf("executed voting index %d out of range [0, %d)", i, len(e.executed))
	}
	return e.executed[i], nil
}

// GetPermitted 授权账户列表
func (e *Entity) GetPermitted() []common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]common.Address(nil), e.permitted...)
}

// ContainsPermitted 是否为授权账户
func (e *Entity) ContainsPermitted(p common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.containsPermittedLocked(p)
}

// NumberOfPermitted 授权账户数量
func (e *Entity) NumberOfPermitted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.permitted)
}

// GetExecutedPermitted 授权账户执行历史
func (e *Entity) GetExecutedPermitted() []ExecutedPermitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ExecutedPermitted, len(e.executedPermitted))
	copy(out, e.executedPermitted)
	return out
}
