//go:build integration

package authorizer

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/services/authorizer"
	integration "github.com/xdao/dao-sdk-go/test/integration"
	"github.com/xdao/dao-sdk-go/types"
	"github.com/xdao/dao-sdk-go/utils"
	"github.com/xdao/dao-sdk-go/wallet"
)

// TestRPCCollaborator_Views 只读查询
func TestRPCCollaborator_Views(t *testing.T) {
	cfg := integration.LoadTestConfig(t)
	c := integration.SetupTestClient(t, cfg)
	defer integration.TeardownTestClient(t, c)

	collab, err := authorizer.NewRPCCollaborator(c, cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), integration.DefaultTimeout)
	defer cancel()

	q, err := collab.Quorum(ctx)
	require.NoError(t, err)
	assert.True(t, q >= 1 && q <= 100, "quorum %d out of range", q)

	total, err := collab.TotalWeight(ctx)
	require.NoError(t, err)
	assert.True(t, total.Sign() > 0)

	var random action.Digest
	copy(random[:], crypto.Keccak256([]byte(time.Now().String())))
	consumed, err := collab.IsConsumed(ctx, random)
	require.NoError(t, err)
	assert.False(t, consumed)
}

// TestExecute_ChangeQuorumAndReplay 成员签名执行 changeQuorum（保持原值），随后重放被拒绝
func TestExecute_ChangeQuorumAndReplay(t *testing.T) {
	cfg := integration.LoadTestConfig(t)
	members := integration.MemberWallets(t)
	c := integration.SetupTestClient(t, cfg)
	defer integration.TeardownTestClient(t, c)

	collab, err := authorizer.NewRPCCollaborator(c, cfg, nil)
	require.NoError(t, err)
	svc := authorizer.NewServiceWithConfig(collab, nil, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	q, err := collab.Quorum(ctx)
	require.NoError(t, err)
	data, err := utils.CreateData("changeQuorum", []string{"uint8"}, q)
	require.NoError(t, err)

	// 以纳秒时间作为 nonce，保证每次运行的摘要不同
	a := action.NewAt(cfg.DAOAddress, data, 0, uint64(time.Now().UnixNano()), time.Now())

	res, err := svc.Execute(ctx, &authorizer.ExecuteRequest{Action: a, Signers: wallet.AsSigners(members...)})
	require.NoError(t, err)
	assert.True(t, res.Receipt.OnChain())
	t.Logf("executed %s in tx %s", res.Digest.Hex(), res.Receipt.TxHash.Hex())

	consumed, err := svc.IsConsumed(ctx, res.Digest)
	require.NoError(t, err)
	assert.True(t, consumed)

	_, err = svc.Execute(ctx, &authorizer.ExecuteRequest{Action: a, Signers: wallet.AsSigners(members...)})
	assert.ErrorIs(t, err, types.ErrVotingAlreadyExecuted)

	// 跳过预检时由合约在 eth_estimateGas 阶段拒绝
	_, err = svc.Execute(ctx, &authorizer.ExecuteRequest{Action: a, Signers: wallet.AsSigners(members...), SkipPrecheck: true})
	assert.ErrorIs(t, err, types.ErrVotingAlreadyExecuted)
}
