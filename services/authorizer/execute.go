package authorizer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/signature"
	"github.com/xdao/dao-sdk-go/types"
	"github.com/xdao/dao-sdk-go/utils"
	"github.com/xdao/dao-sdk-go/wallet"
)

// Digest 计算摘要
func (s *authorizerService) Digest(a action.Action) (action.Digest, error) {
	if err := a.Validate(); err != nil {
		return action.Digest{}, err
	}
	return a.Digest(s.collab.Address(), s.collab.ChainID())
}

// Sign 单个成员签名
func (s *authorizerService) Sign(ctx context.Context, a action.Action, wallets ...wallet.Wallet) (*SignResult, error) {
	// 1. 获取 Wallet
	w := s.getWallet(wallets...)
	if w == nil {
		return nil, fmt.Errorf("wallet is required")
	}

	// 2. 计算摘要
	digest, err := s.Digest(a)
	if err != nil {
		return nil, err
	}

	// 3. 签名
	sigs, err := signature.Collect(ctx, digest, wallet.AsSigners(w), 1)
	if err != nil {
		return nil, fmt.Errorf("sign digest failed: %w", err)
	}

	return &SignResult{
		Digest:    digest,
		Signer:    w.Address(),
		Signature: sigs[0],
	}, nil
}

// Collect 并发收集签名
func (s *authorizerService) Collect(ctx context.Context, req *CollectRequest) (*CollectResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	digest, err := s.Digest(req.Action)
	if err != nil {
		return nil, err
	}

	sigs, err := signature.Collect(ctx, digest, req.Signers, s.concurrency)
	if err != nil {
		return nil, fmt.Errorf("collect signatures failed: %w", err)
	}

	s.logger.Debug("signatures collected", "digest", digest.Hex(), "count", len(sigs))
	return &CollectResult{Digest: digest, Signatures: sigs}, nil
}

// Verify 本地预检
//
// 顺序与实体一致：已执行、时间窗口、签名校验
func (s *authorizerService) Verify(ctx context.Context, a action.Action, sigs signature.Set) (*signature.Verification, error) {
	// 1. 摘要
	digest, err := s.Digest(a)
	if err != nil {
		return nil, err
	}

	// 2. 防重放
	consumed, err := s.collab.IsConsumed(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("query consumed state failed: %w", err)
	}
	if consumed {
		return nil, types.NewDaoError(types.KindVotingAlreadyExecuted, "", "digest "+digest.Hex()+" already executed")
	}

	// 3. 动作有效期
	// 超出 int64 的时间戳不会过期，交给实体的时间窗口判断
	if sec, ok := a.Unix(); ok && s.maxAge > 0 {
		if age := s.now().Sub(time.Unix(sec, 0)); age > s.maxAge {
			return nil, types.Errorf(types.KindActionExpired, "action is %s old, limit %s", age.Truncate(time.Second), s.maxAge)
		}
	}

	// 4. 成员快照
	roster, quorum, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	// 5. 签名校验
	return sigs.Verify(digest, roster, quorum, s.recoverer)
}

// snapshot 读取成员、权重总量与法定人数
func (s *authorizerService) snapshot(ctx context.Context) (*signature.Roster, uint8, error) {
	members, err := s.collab.Members(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("query members failed: %w", err)
	}
	total, err := s.collab.TotalWeight(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("query total weight failed: %w", err)
	}
	quorum, err := s.collab.Quorum(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("query quorum failed: %w", err)
	}
	roster, err := signature.NewRoster(members, total)
	if err != nil {
		return nil, 0, fmt.Errorf("build roster failed: %w", err)
	}
	return roster, quorum, nil
}

// Submit 提交已收集的签名
func (s *authorizerService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	// 1. 参数验证
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	digest, err := s.Digest(req.Action)
	if err != nil {
		return nil, err
	}

	// 2. 本地预检（失败时不消耗 gas）
	var verification *signature.Verification
	if !req.SkipPrecheck {
		verification, err = s.Verify(ctx, req.Action, req.Signatures)
		if err != nil {
			s.logger.Info("precheck rejected action", "digest", digest.Hex(), "kind", types.KindOf(err))
			return nil, err
		}
	}

	// 3. 提交到实体
	receipt, err := s.collab.Submit(ctx, req.Action, req.Signatures)
	if err != nil {
		s.logger.Warn("submit failed", "digest", digest.Hex(), "error", err)
		return nil, err
	}
	if receipt == nil {
		return nil, fmt.Errorf("collaborator returned no receipt for digest %s", digest.Hex())
	}

	// 4. 返回结果
	s.logger.Info("action executed",
		"digest", digest.Hex(),
		"target", req.Action.Target.Hex(),
		"signers", len(req.Signatures),
		"tx", receipt.TxHash.Hex(),
	)
	result := &SubmitResult{
		Digest:       digest,
		Signers:      receipt.Signers,
		Receipt:      receipt,
		Verification: verification,
	}
	if len(result.Signers) == 0 && verification != nil {
		result.Signers = verification.Signers
	}
	return result, nil
}

// Execute 收集签名、预检并提交
func (s *authorizerService) Execute(ctx context.Context, req *ExecuteRequest) (*SubmitResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	// 1. 收集签名
	collected, err := s.Collect(ctx, &CollectRequest{Action: req.Action, Signers: req.Signers})
	if err != nil {
		return nil, err
	}

	// 2. 预检并提交
	return s.Submit(ctx, &SubmitRequest{
		Action:       req.Action,
		Signatures:   collected.Signatures,
		SkipPrecheck: req.SkipPrecheck,
	})
}

// ExecuteRaw 单签执行
func (s *authorizerService) ExecuteRaw(ctx context.Context, req *ExecuteRawRequest, wallets ...wallet.Wallet) (*SubmitResult, error) {
	// 1. 参数验证
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	w := s.getWallet(wallets...)
	if w == nil {
		return nil, fmt.Errorf("wallet is required")
	}

	// 2. 构造动作：nonce 0，当前时间戳
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	a := action.Action{
		Target:    req.Target,
		Data:      req.Data,
		Value:     new(big.Int).Set(value),
		Nonce:     new(big.Int),
		Timestamp: big.NewInt(s.now().Unix()),
	}

	// 3. 签名并提交
	return s.Execute(ctx, &ExecuteRequest{
		Action:  a,
		Signers: wallet.AsSigners(w),
	})
}

// IsConsumed 查询摘要状态
func (s *authorizerService) IsConsumed(ctx context.Context, digest action.Digest) (bool, error) {
	return s.collab.IsConsumed(ctx, digest)
}

// ConsumedMany 批量查询摘要状态
func (s *authorizerService) ConsumedMany(ctx context.Context, digests []action.Digest) (*utils.BatchQueryResult[bool], error) {
	cfg := utils.DefaultBatchConfig()
	cfg.Concurrency = s.concurrency
	return utils.BatchQuery(ctx, digests, func(ctx context.Context, d action.Digest, _ int) (bool, error) {
		return s.collab.IsConsumed(ctx, d)
	}, cfg)
}
