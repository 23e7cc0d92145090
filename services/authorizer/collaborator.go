package authorizer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/dao"
	"github.com/xdao/dao-sdk-go/signature"
)

// Collaborator 授权实体（DAO）
//
// Submit 是唯一会修改状态的调用；其余为只读查询
type Collaborator interface {
	// Address 实体地址，参与摘要计算
	Address() common.Address
	// ChainID 参与摘要计算的链 ID
	ChainID() *big.Int

	// Submit 提交动作与签名集合；成功时返回非 nil 回执
	Submit(ctx context.Context, a action.Action, sigs signature.Set) (*action.Receipt, error)

	// IsConsumed 摘要是否已被执行
	IsConsumed(ctx context.Context, digest action.Digest) (bool, error)

	// Members 当前成员及其权重
	Members(ctx context.Context) ([]signature.Member, error)
	// Quorum 法定人数百分比（1..100）
	Quorum(ctx context.Context) (uint8, error)
	// TotalWeight 权重总量
	TotalWeight(ctx context.Context) (*big.Int, error)
}

var (
	_ Collaborator = (*dao.Entity)(nil)
	_ Collaborator = (*RPCCollaborator)(nil)
)
