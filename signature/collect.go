package signature

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/wallet"
)

// DefaultConcurrency 默认并发签名数
const DefaultConcurrency = 8

// Collect 让每个签名者对摘要签名，结果顺序与 signers 一致
//
// 签名是纯本地计算，可以并发；任一签名者失败则整体失败
func Collect(ctx context.Context, digest action.Digest, signers []wallet.Signer, concurrency int) (Set, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("no signers")
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	set := make(Set, len(signers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, s := range signers {
		i, s := i, s
		g.Go(func() error {
			sig, err := s.Sign(gctx, digest.Bytes())
			if err != nil {
				return fmt.Errorf("signer %s: %w", s.Address().Hex(), err)
			}
			if len(sig) != Length {
				return fmt.Errorf("signer %s: invalid signature length %d", s.Address().Hex(), len(sig))
			}
			set[i] = sig
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

// CollectWallets 便捷方法：直接使用钱包签名
func CollectWallets(ctx context.Context, digest action.Digest, wallets ...wallet.Wallet) (Set, error) {
	return Collect(ctx, digest, wallet.AsSigners(wallets...), DefaultConcurrency)
}
