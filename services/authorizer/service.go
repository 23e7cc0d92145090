// Package authorizer 多签授权服务：构建摘要、收集成员签名、本地预检并提交到 DAO。
package authorizer

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/client"
	"github.com/xdao/dao-sdk-go/services"
	"github.com/xdao/dao-sdk-go/signature"
	"github.com/xdao/dao-sdk-go/utils"
	"github.com/xdao/dao-sdk-go/wallet"
)

// Service 授权业务服务接口
type Service interface {
	// Digest 计算动作在当前实体下的摘要
	Digest(a action.Action) (action.Digest, error)

	// Sign 单个成员签名
	// wallet 参数可选：如果提供则使用，否则使用服务实例的默认 Wallet
	Sign(ctx context.Context, a action.Action, wallet ...wallet.Wallet) (*SignResult, error)

	// Collect 并发收集多个签名者的签名
	Collect(ctx context.Context, req *CollectRequest) (*CollectResult, error)

	// Verify 按实体当前状态本地预检签名集合（不提交）
	Verify(ctx context.Context, a action.Action, sigs signature.Set) (*signature.Verification, error)

	// Submit 提交已收集的签名
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)

	// Execute 收集签名、预检并提交
	Execute(ctx context.Context, req *ExecuteRequest) (*SubmitResult, error)

	// ExecuteRaw 以 nonce 0、当前时间戳构造动作，由单个钱包签名并提交
	ExecuteRaw(ctx context.Context, req *ExecuteRawRequest, wallet ...wallet.Wallet) (*SubmitResult, error)

	// IsConsumed 查询摘要是否已执行（不需要 Wallet）
	IsConsumed(ctx context.Context, digest action.Digest) (bool, error)

	// ConsumedMany 批量查询摘要状态，结果与输入一一对应
	ConsumedMany(ctx context.Context, digests []action.Digest) (*utils.BatchQueryResult[bool], error)
}

// authorizerService 授权服务实现
type authorizerService struct {
	collab      Collaborator
	wallet      wallet.Wallet // 可选：默认 Wallet
	recoverer   signature.Recoverer
	concurrency int
	maxAge      time.Duration
	logger      client.Logger
	now         func() time.Time
}

// NewService 创建授权服务（不带 Wallet）
func NewService(collab Collaborator) Service {
	return newService(collab, nil, nil)
}

// NewServiceWithWallet 创建带默认 Wallet 的授权服务
func NewServiceWithWallet(collab Collaborator, w wallet.Wallet) Service {
	return newService(collab, w, nil)
}

// NewServiceWithConfig 使用业务配置创建授权服务（并发数、动作有效期、日志）
func NewServiceWithConfig(collab Collaborator, w wallet.Wallet, cfg *services.Config) Service {
	return newService(collab, w, cfg)
}

func newService(collab Collaborator, w wallet.Wallet, cfg *services.Config) *authorizerService {
	s := &authorizerService{
		collab:      collab,
		wallet:      w,
		recoverer:   signature.DefaultRecoverer,
		concurrency: signature.DefaultConcurrency,
		logger:      client.NopLogger{},
		now:         time.Now,
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			s.concurrency = cfg.Concurrency
		}
		s.maxAge = cfg.MaxActionAge
		s.logger = client.OrNop(cfg.Logger)
	}
	return s
}

// getWallet 获取 Wallet（优先使用参数，其次使用默认 Wallet）
func (s *authorizerService) getWallet(wallets ...wallet.Wallet) wallet.Wallet {
	if len(wallets) > 0 && wallets[0] != nil {
		return wallets[0]
	}
	return s.wallet
}

// SignResult 签名结果
type SignResult struct {
	Digest    action.Digest
	Signer    common.Address
	Signature []byte
}

// CollectRequest 签名收集请求
type CollectRequest struct {
	Action  action.Action
	Signers []wallet.Signer
}

// CollectResult 签名收集结果
type CollectResult struct {
	Digest     action.Digest
	Signatures signature.Set // 与 Signers 顺序一致
}

// SubmitRequest 提交请求
type SubmitRequest struct {
	Action     action.Action
	Signatures signature.Set
	// SkipPrecheck 跳过本地预检，直接交给实体裁决
	SkipPrecheck bool
}

// ExecuteRequest 收集并提交请求
type ExecuteRequest struct {
	Action       action.Action
	Signers      []wallet.Signer
	SkipPrecheck bool
}

// ExecuteRawRequest 单签执行请求
type ExecuteRawRequest struct {
	Target common.Address
	Data   []byte
	Value  *big.Int
}

// SubmitResult 提交结果
type SubmitResult struct {
	Digest  action.Digest
	Signers []common.Address
	Receipt *action.Receipt
	// Verification 本地预检结果，跳过预检时为 nil
	Verification *signature.Verification
}
