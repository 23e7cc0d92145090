package dao

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/signature"
	"github.com/xdao/dao-sdk-go/types"
	"github.com/xdao/dao-sdk-go/utils"
	"github.com/xdao/dao-sdk-go/wallet"
)

const (
	hardhatKey0 = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatKey1 = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	hardhatKey2 = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"
)

var (
	fixedNow = time.Unix(1700000000, 0)
	payable  = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
)

type fixture struct {
	t      *testing.T
	entity *Entity
	owner  *wallet.SimpleWallet
	friend *wallet.SimpleWallet
	other  *wallet.SimpleWallet
}

func newFixture(t *testing.T, shares ...int64) *fixture {
	t.Helper()
	f := &fixture{t: t}
	var err error
	f.owner, err = wallet.NewWalletFromPrivateKey(hardhatKey0)
	require.NoError(t, err)
	f.friend, err = wallet.NewWalletFromPrivateKey(hardhatKey1)
	require.NoError(t, err)
	f.other, err = wallet.NewWalletFromPrivateKey(hardhatKey2)
	require.NoError(t, err)

	wallets := []*wallet.SimpleWallet{f.owner, f.friend, f.other}
	cfg := Config{
		Name:   "EgorDAO",
		Symbol: "EDAO",
		Quorum: 51,
		Clock:  func() time.Time { return fixedNow },
	}
	for i, s := range shares {
		cfg.Partners = append(cfg.Partners, wallets[i].Address())
		cfg.Shares = append(cfg.Shares, big.NewInt(s))
	}
	f.entity, err = New(cfg)
	require.NoError(t, err)
	return f
}

func (f *fixture) data(method string, argTypes []string, args ...interface{}) []byte {
	f.t.Helper()
	data, err := utils.CreateData(method, argTypes, args...)
	require.NoError(f.t, err)
	return data
}

func (f *fixture) selfAction(data []byte, nonce uint64) action.Action {
	return action.NewAt(f.entity.Address(), data, 0, nonce, fixedNow)
}

func (f *fixture) sign(a action.Action, signers ...*wallet.SimpleWallet) signature.Set {
	f.t.Helper()
	d, err := f.entity.Digest(a)
	require.NoError(f.t, err)
	ws := make([]wallet.Wallet, len(signers))
	for i, s := range signers {
		ws[i] = s
	}
	set, err := signature.CollectWallets(context.Background(), d, ws...)
	require.NoError(f.t, err)
	return set
}

func (f *fixture) consumed(a action.Action) bool {
	f.t.Helper()
	d, err := f.entity.Digest(a)
	require.NoError(f.t, err)
	ok, err := f.entity.IsConsumed(context.Background(), d)
	require.NoError(f.t, err)
	return ok
}

func TestNew_Validation(t *testing.T) {
	a := common.HexToAddress("0x01")
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero quorum", cfg: Config{Quorum: 0, Partners: []common.Address{a}, Shares: []*big.Int{big.NewInt(1)}}},
		{name: "quorum over 100", cfg: Config{Quorum: 101, Partners: []common.Address{a}, Shares: []*big.Int{big.NewInt(1)}}},
		{name: "no partners", cfg: Config{Quorum: 51}},
		{name: "length mismatch", cfg: Config{Quorum: 51, Partners: []common.Address{a}}},
		{name: "zero share", cfg: Config{Quorum: 51, Partners: []common.Address{a}, Shares: []*big.Int{big.NewInt(0)}}},
		{name: "duplicate partner", cfg: Config{Quorum: 51, Partners: []common.Address{a, a}, Shares: []*big.Int{big.NewInt(1), big.NewInt(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	f := newFixture(t, 10)
	assert.Equal(t, DefaultChainID, f.entity.ChainID())
	assert.NotEqual(t, common.Address{}, f.entity.Address())
	assert.Equal(t, "EgorDAO", f.entity.Name())
	assert.Equal(t, "EDAO", f.entity.Symbol())
	assert.True(t, f.entity.Mintable())
	assert.True(t, f.entity.Burnable())
	assert.Equal(t, int64(10), f.entity.TotalSupply().Int64())
}

// 单成员权重 10、法定人数 51：单人签名即可执行
func TestExecute_SingleMemberChangeQuorum(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	a := f.selfAction(f.data("changeQuorum", []string{"uint8"}, uint8(60)), 0)
	sigs := f.sign(a, f.owner)

	receipt, err := f.entity.Execute(ctx, a, sigs)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{f.owner.Address()}, receipt.Signers)
	assert.Equal(t, 0, receipt.Index)
	assert.False(t, receipt.OnChain())

	q, err := f.entity.Quorum(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(60), q)
	assert.True(t, f.consumed(a))

	history := f.entity.GetExecutedVoting()
	require.Len(t, history, 1)
	rec, err := f.entity.ExecutedVotingByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, a.Target, rec.Target)
	assert.Equal(t, a.Data, rec.Data)
	assert.Equal(t, int64(0), rec.Value.Int64())
	assert.Equal(t, int64(0), rec.Nonce.Int64())
	assert.Equal(t, fixedNow.Unix(), rec.Timestamp.Int64())

	d, err := f.entity.Digest(a)
	require.NoError(t, err)
	signer, err := signature.RecoverSigner(d, rec.Sigs[0])
	require.NoError(t, err)
	assert.Equal(t, f.owner.Address(), signer)

	_, err = f.entity.ExecutedVotingByIndex(1)
	assert.Error(t, err)
}

// 两个成员各 10：单人 50% 不足，两人 100% 通过
func TestExecute_TwoMembersQuorum(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	mint := f.selfAction(f.data("mint", []string{"address", "uint256"}, f.friend.Address(), big.NewInt(10)), 0)
	_, err := f.entity.Execute(ctx, mint, f.sign(mint, f.owner))
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.entity.BalanceOf(f.friend.Address()).Int64())

	members, err := f.entity.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)

	disable := f.selfAction(f.data("disableMinting", nil), 0)

	_, err = f.entity.Execute(ctx, disable, f.sign(disable, f.owner))
	assert.ErrorIs(t, err, types.ErrQuorumNotReached)

	_, err = f.entity.Execute(ctx, disable, f.sign(disable, f.owner, f.owner))
	assert.ErrorIs(t, err, types.ErrDuplicateSigner)
	assert.False(t, f.consumed(disable))

	_, err = f.entity.Execute(ctx, disable, f.sign(disable, f.owner, f.friend))
	require.NoError(t, err)
	assert.False(t, f.entity.Mintable())

	// 增发已关闭
	again := f.selfAction(f.data("mint", []string{"address", "uint256"}, f.other.Address(), big.NewInt(1)), 1)
	_, err = f.entity.Execute(ctx, again, f.sign(again, f.owner, f.friend))
	assert.ErrorIs(t, err, types.ErrExecutionReverted)
	assert.False(t, f.consumed(again))
}

// 重放：同一摘要无论原签名还是重新签名都被拒绝；换 nonce 可执行
func TestExecute_Replay(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	a := f.selfAction(f.data("changeQuorum", []string{"uint8"}, uint8(60)), 0)
	sigs := f.sign(a, f.owner)
	_, err := f.entity.Execute(ctx, a, sigs)
	require.NoError(t, err)

	_, err = f.entity.Execute(ctx, a, sigs)
	assert.ErrorIs(t, err, types.ErrVotingAlreadyExecuted)

	_, err = f.entity.Execute(ctx, a, f.sign(a, f.owner))
	assert.ErrorIs(t, err, types.ErrVotingAlreadyExecuted)

	// 已消费检查先于签名校验
	_, err = f.entity.Execute(ctx, a, nil)
	assert.ErrorIs(t, err, types.ErrVotingAlreadyExecuted)

	next := a.WithNonce(1)
	_, err = f.entity.Execute(ctx, next, f.sign(next, f.owner))
	require.NoError(t, err)
	assert.Len(t, f.entity.GetExecutedVoting(), 2)
}

func TestExecute_NonceAndTimestampIndependence(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	base := f.selfAction(f.data("changeQuorum", []string{"uint8"}, uint8(70)), 0)
	variants := []action.Action{
		base,
		base.WithNonce(7),
		base.WithTimestamp(fixedNow.Unix() - 1),
		base.WithNonce(7).WithTimestamp(fixedNow.Unix() - 1),
	}
	for i, a := range variants {
		_, err := f.entity.Execute(ctx, a, f.sign(a, f.owner))
		require.NoError(t, err, "variant %d", i)
	}
	assert.Len(t, f.entity.GetExecutedVoting(), len(variants))
}

func TestExecute_UnauthorizedSigner(t *testing.T) {
	f := newFixture(t, 10)
	a := f.selfAction(f.data("disableBurning", nil), 0)

	_, err := f.entity.Execute(context.Background(), a, f.sign(a, f.owner, f.other))
	assert.ErrorIs(t, err, types.ErrUnauthorizedSigner)
	assert.True(t, f.entity.Burnable())
}

func TestExecute_QuorumBoundary(t *testing.T) {
	// 51 / 49：51% 恰好达到
	f := newFixture(t, 51, 49)
	ctx := context.Background()

	a := f.selfAction(f.data("disableBurning", nil), 0)
	_, err := f.entity.Execute(ctx, a, f.sign(a, f.friend))
	assert.ErrorIs(t, err, types.ErrQuorumNotReached)

	_, err = f.entity.Execute(ctx, a, f.sign(a, f.owner))
	require.NoError(t, err)
}

func TestExecute_MalformedAction(t *testing.T) {
	f := newFixture(t, 10)
	a := action.NewAt(common.Address{}, nil, 0, 0, fixedNow)

	_, err := f.entity.Execute(context.Background(), a, nil)
	assert.ErrorIs(t, err, types.ErrMalformedAction)
	daoErr, ok := types.AsDaoError(err)
	require.True(t, ok)
	assert.False(t, daoErr.Retryable())
}

func TestExecute_RevertDoesNotConsume(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		healthy bool
		calls   int
	)
	f.entity.Register(payable, TargetFunc(func(ctx context.Context, inv Invocation) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		if !healthy {
			return nil, errors.New("target paused")
		}
		calls++
		return nil, nil
	}))

	a := action.NewAt(payable, f.data("hello", []string{"uint256"}, big.NewInt(123)), 0, 0, fixedNow)
	sigs := f.sign(a, f.owner)

	_, err := f.entity.Execute(ctx, a, sigs)
	assert.ErrorIs(t, err, types.ErrExecutionReverted)
	assert.ErrorContains(t, err, "target paused")
	assert.False(t, f.consumed(a))
	assert.Empty(t, f.entity.GetExecutedVoting())

	mu.Lock()
	healthy = true
	mu.Unlock()

	_, err = f.entity.Execute(ctx, a, sigs)
	require.NoError(t, err)
	assert.True(t, f.consumed(a))
	assert.Equal(t, 1, calls)
}

func TestExecute_ValueForwarding(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	var received *big.Int
	f.entity.Register(payable, TargetFunc(func(ctx context.Context, inv Invocation) ([]byte, error) {
		received = inv.Value
		assert.Equal(t, f.entity.Address(), inv.From)
		return []byte{0x01}, nil
	}))

	a := action.NewAt(payable, f.data("hello", []string{"uint256"}, big.NewInt(123)), 20, 0, fixedNow)

	// 余额不足
	_, err := f.entity.Execute(ctx, a, f.sign(a, f.owner))
	assert.ErrorIs(t, err, types.ErrExecutionReverted)
	assert.ErrorContains(t, err, types.ReasonInsufficientBalance)
	assert.False(t, f.consumed(a))

	require.NoError(t, f.entity.Deposit(big.NewInt(50)))
	receipt, err := f.entity.Execute(ctx, a, f.sign(a, f.owner))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, receipt.Return)
	assert.Equal(t, int64(20), received.Int64())
	assert.Equal(t, int64(30), f.entity.NativeBalance().Int64())
	assert.Equal(t, int64(20), f.entity.NativeBalanceOf(payable).Int64())

	// 向外部账户的纯转账
	eoa := f.other.Address()
	plain := action.NewAt(eoa, nil, 5, 0, fixedNow)
	_, err = f.entity.Execute(ctx, plain, f.sign(plain, f.owner))
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.entity.NativeBalanceOf(eoa).Int64())

	// 未注册地址带调用数据
	bad := action.NewAt(eoa, f.data("hello", []string{"uint256"}, big.NewInt(1)), 0, 1, fixedNow)
	_, err = f.entity.Execute(ctx, bad, f.sign(bad, f.owner))
	assert.ErrorIs(t, err, types.ErrExecutionReverted)

	assert.Error(t, f.entity.Deposit(big.NewInt(-1)))
}

func TestExecute_Builtins(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	nonce := uint64(0)
	run := func(data []byte) error {
		a := f.selfAction(data, nonce)
		nonce++
		_, err := f.entity.Execute(ctx, a, f.sign(a, f.owner))
		return err
	}

	assert.ErrorIs(t, run(f.data("changeQuorum", []string{"uint8"}, uint8(0))), types.ErrExecutionReverted)
	assert.ErrorIs(t, run(f.data("changeQuorum", []string{"uint8"}, uint8(101))), types.ErrExecutionReverted)
	assert.ErrorIs(t, run(f.data("transfer", []string{"address", "uint256"}, f.friend.Address(), big.NewInt(1))), types.ErrExecutionReverted)
	assert.ErrorIs(t, run(f.data("unknown", nil)), types.ErrExecutionReverted)
	assert.ErrorIs(t, run(f.data("quorum", nil)), types.ErrExecutionReverted)

	require.NoError(t, run(f.data("mint", []string{"address", "uint256"}, f.friend.Address(), big.NewInt(5))))
	assert.ErrorIs(t, run(f.data("burn", []string{"address", "uint256"}, f.friend.Address(), big.NewInt(6))), types.ErrExecutionReverted)

	// 燃烧后朋友剩 1，总量 11，所有者权重 10 仍超过 51%
	require.NoError(t, run(f.data("burn", []string{"address", "uint256"}, f.friend.Address(), big.NewInt(4))))
	assert.Equal(t, int64(11), f.entity.TotalSupply().Int64())

	require.NoError(t, run(f.data("disableBurning", nil)))
	assert.ErrorIs(t, run(f.data("burn", []string{"address", "uint256"}, f.friend.Address(), big.NewInt(1))), types.ErrExecutionReverted)

	require.NoError(t, run(f.data("addPermitted", []string{"address"}, f.other.Address())))
	assert.ErrorIs(t, run(f.data("addPermitted", []string{"address"}, f.other.Address())), types.ErrExecutionReverted)
	require.NoError(t, run(f.data("removePermitted", []string{"address"}, f.other.Address())))
	assert.ErrorIs(t, run(f.data("removePermitted", []string{"address"}, f.other.Address())), types.ErrExecutionReverted)
}

func TestExecutePermitted(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.NoError(t, f.entity.Deposit(big.NewInt(50)))

	recipient := common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	_, err := f.entity.ExecutePermitted(ctx, f.friend.Address(), Call{Target: recipient, Value: big.NewInt(30)})
	assert.ErrorIs(t, err, types.ErrNotPermitted)

	add := f.selfAction(f.data("addPermitted", []string{"address"}, f.friend.Address()), 0)
	_, err = f.entity.Execute(ctx, add, f.sign(add, f.owner))
	require.NoError(t, err)
	assert.Equal(t, 1, f.entity.NumberOfPermitted())
	assert.True(t, f.entity.ContainsPermitted(f.friend.Address()))
	assert.Equal(t, []common.Address{f.friend.Address()}, f.entity.GetPermitted())

	_, err = f.entity.ExecutePermitted(ctx, f.friend.Address(), Call{Target: recipient, Value: big.NewInt(30)})
	require.NoError(t, err)
	assert.Equal(t, int64(30), f.entity.NativeBalanceOf(recipient).Int64())
	assert.Equal(t, int64(20), f.entity.NativeBalance().Int64())

	history := f.entity.GetExecutedPermitted()
	require.Len(t, history, 1)
	assert.Equal(t, f.friend.Address(), history[0].Sender)

	// 授权账户可以通过自调用管理授权列表
	third := f.other.Address()
	_, err = f.entity.ExecutePermitted(ctx, f.friend.Address(), Call{
		Target: f.entity.Address(),
		Data:   f.data("addPermitted", []string{"address"}, third),
	})
	require.NoError(t, err)
	assert.True(t, f.entity.ContainsPermitted(third))

	_, err = f.entity.ExecutePermitted(ctx, f.friend.Address(), Call{
		Target: f.entity.Address(),
		Data:   f.data("removePermitted", []string{"address"}, third),
	})
	require.NoError(t, err)
	assert.False(t, f.entity.ContainsPermitted(third))

	// 余额不足
	_, err = f.entity.ExecutePermitted(ctx, f.friend.Address(), Call{Target: recipient, Value: big.NewInt(100)})
	assert.ErrorIs(t, err, types.ErrExecutionReverted)
	assert.Len(t, f.entity.GetExecutedPermitted(), 3)
}

func TestExecute_TimeWindow(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	f.entity.Register(payable, TargetFunc(func(context.Context, Invocation) ([]byte, error) { return nil, nil }))
	f.entity.SetWindow(payable, Window{MaxAge: time.Hour, MaxSkew: time.Minute})

	stale := action.NewAt(payable, nil, 0, 0, fixedNow.Add(-2*time.Hour))
	_, err := f.entity.Execute(ctx, stale, f.sign(stale, f.owner))
	assert.ErrorIs(t, err, types.ErrActionExpired)

	early := action.NewAt(payable, nil, 0, 0, fixedNow.Add(time.Hour))
	_, err = f.entity.Execute(ctx, early, f.sign(early, f.owner))
	assert.ErrorIs(t, err, types.ErrActionNotYetActive)

	fresh := action.NewAt(payable, nil, 0, 0, fixedNow.Add(-time.Minute))
	_, err = f.entity.Execute(ctx, fresh, f.sign(fresh, f.owner))
	require.NoError(t, err)

	// 超出 int64 的时间戳视为尚未生效，不消耗摘要
	far := action.NewAt(payable, nil, 0, 1, fixedNow)
	far.Timestamp = new(big.Int).Lsh(big.NewInt(1), 70)
	_, err = f.entity.Execute(ctx, far, f.sign(far, f.owner))
	assert.ErrorIs(t, err, types.ErrActionNotYetActive)
	assert.False(t, f.consumed(far))

	// 其他目标不受窗口限制
	old := f.selfAction(f.data("disableBurning", nil), 0).WithTimestamp(1)
	_, err = f.entity.Execute(ctx, old, f.sign(old, f.owner))
	require.NoError(t, err)
}

func TestExecute_TimeWindowZeroSkew(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	f.entity.SetWindow(f.entity.Address(), Window{})

	far := f.selfAction(f.data("disableBurning", nil), 0)
	far.Timestamp = new(big.Int).Lsh(big.NewInt(1), 70)
	_, err := f.entity.Execute(ctx, far, f.sign(far, f.owner))
	assert.ErrorIs(t, err, types.ErrActionNotYetActive)
	assert.False(t, f.consumed(far))
	assert.True(t, f.entity.Burnable())

	now := f.selfAction(f.data("disableBurning", nil), 1)
	_, err = f.entity.Execute(ctx, now, f.sign(now, f.owner))
	require.NoError(t, err)
	assert.False(t, f.entity.Burnable())
}

func TestExecute_ConcurrentSubmissions(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	var calls int
	f.entity.Register(payable, TargetFunc(func(context.Context, Invocation) ([]byte, error) {
		calls++
		return nil, nil
	}))
	a := action.NewAt(payable, nil, 0, 0, fixedNow)
	sigs := f.sign(a, f.owner)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		replayed int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.entity.Execute(ctx, a, sigs)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, types.ErrVotingAlreadyExecuted):
				replayed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, replayed)
	assert.Equal(t, 1, calls)
}

func TestExecute_ContextCancelled(t *testing.T) {
	f := newFixture(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := f.selfAction(f.data("disableBurning", nil), 0)
	_, err := f.entity.Execute(ctx, a, f.sign(a, f.owner))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = f.entity.IsConsumed(ctx, action.Digest{})
	assert.ErrorIs(t, err, context.Canceled)
}
