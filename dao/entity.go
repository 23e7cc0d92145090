// Package dao 提供进程内的授权实体（DAO），拥有成员权重、法定人数与已消费摘要集合。
//
// 行为与链上 DAO 合约一致：execute 按固定顺序校验后调用目标，
// 仅在调用成功时消费摘要。
package dao

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/client"
	"github.com/xdao/dao-sdk-go/signature"
	"github.com/xdao/dao-sdk-go/types"
)

// DefaultChainID hardhat 本地网络
var DefaultChainID = big.NewInt(1337)

// Window 目标的时间窗口策略
type Window struct {
	// MaxAge 时间戳早于 now-MaxAge 视为过期（0 表示不限制）
	MaxAge time.Duration
	// MaxSkew 时间戳晚于 now+MaxSkew 视为尚未生效
	MaxSkew time.Duration
}

// Config 实体配置
type Config struct {
	Name     string
	Symbol   string
	Quorum   uint8
	Partners []common.Address
	Shares   []*big.Int

	// ChainID 为 nil 时使用 DefaultChainID
	ChainID *big.Int
	// Address 为零值时由名称派生
	Address common.Address

	// Windows 按目标地址配置时间窗口
	Windows map[common.Address]Window

	Recoverer signature.Recoverer
	Logger    client.Logger
	// Clock 为 nil 时使用 time.Now
	Clock func() time.Time
}

// ExecutedVoting 执行历史记录
type ExecutedVoting struct {
	Target     common.Address
	Data       []byte
	Value      *big.Int
	Nonce      *big.Int
	Timestamp  *big.Int
	ExecutedAt time.Time
	Sigs       signature.Set
}

// ExecutedPermitted 授权账户直接执行记录
type ExecutedPermitted struct {
	Target     common.Address
	Data       []byte
	Value      *big.Int
	Sender     common.Address
	ExecutedAt time.Time
}

// Entity 进程内授权实体
//
// 所有状态由 mu 保护；Execute 在同一把锁下完成检查、调用与消费，
// 同一摘要的并发提交只有一个能成功
type Entity struct {
	mu sync.Mutex

	address common.Address
	chainID *big.Int
	name    string
	symbol  string
	quorum  uint8

	balances    map[common.Address]*big.Int
	holders     []common.Address
	totalSupply *big.Int
	mintable    bool
	burnable    bool

	native   *big.Int
	accounts map[common.Address]*big.Int

	consumed          map[action.Digest]struct{}
	executed          []ExecutedVoting
	permitted         []common.Address
	executedPermitted []ExecutedPermitted

	targets map[common.Address]Target
	windows map[common.Address]Window

	recoverer signature.Recoverer
	logger    client.Logger
	now       func() time.Time
}

// New 创建实体
func New(cfg Config) (*Entity, error) {
	// 1. 参数验证
	if err := signature.ValidateQuorum(cfg.Quorum); err != nil {
		return nil, err
	}
	if len(cfg.Partners) == 0 {
		return nil, fmt.Errorf("at least one partner is required")
	}
	if len(cfg.Partners) != len(cfg.Shares) {
		return nil, fmt.Errorf("partners and shares length mismatch: %d != %d", len(cfg.Partners), len(cfg.Shares))
	}

	// 2. 初始化
	e := &Entity{
		address:     cfg.Address,
		chainID:     cfg.ChainID,
		name:        cfg.Name,
		symbol:      cfg.Symbol,
		quorum:      cfg.Quorum,
		balances:    make(map[common.Address]*big.Int),
		totalSupply: new(big.Int),
		mintable:    true,
		burnable:    true,
		native:      new(big.Int),
		accounts:    make(map[common.Address]*big.Int),
		consumed:    make(map[action.Digest]struct{}),
		targets:     make(map[common.Address]Target),
		windows:     make(map[common.Address]Window),
		recoverer:   cfg.Recoverer,
		logger:      client.OrNop(cfg.Logger),
		now:         cfg.Clock,
	}
	if e.chainID == nil {
		e.chainID = DefaultChainID
	}
	e.chainID = new(big.Int).Set(e.chainID)
	if e.address == (common.Address{}) {
		e.address = deriveAddress(cfg.Name, cfg.Symbol)
	}
	if e.recoverer == nil {
		e.recoverer = signature.DefaultRecoverer
	}
	if e.now == nil {
		e.now = time.Now
	}
	for target, w := range cfg.Windows {
		e.windows[target] = w
	}

	// 3. 初始份额
	for i, p := range cfg.Partners {
		share := cfg.Shares[i]
		if share == nil || share.Sign() <= 0 {
			return nil, fmt.Errorf("share of partner %s must be positive", p.Hex())
		}
		if _, dup := e.balances[p]; dup {
			return nil, fmt.Errorf("partner %s listed twice", p.Hex())
		}
		e.credit(p, share)
	}

	e.logger.Info("dao created", "address", e.address.Hex(), "name", e.name, "quorum", e.quorum, "partners", len(cfg.Partners))
	return e, nil
}

func deriveAddress(name, symbol string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(name), []byte(symbol)))
}

// Address 实体地址
func (e *Entity) Address() common.Address { return e.address }

// ChainID 链 ID
func (e *Entity) ChainID() *big.Int { return new(big.Int).Set(e.chainID) }

// Name 名称
func (e *Entity) Name() string { return e.name }

// Symbol 代号
func (e *Entity) Symbol() string { return e.symbol }

// Digest 计算动作在本实体上的摘要
func (e *Entity) Digest(a action.Action) (action.Digest, error) {
	return a.Digest(e.address, e.chainID)
}

// Register 注册外部目标
func (e *Entity) Register(addr common.Address, t Target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targets[addr] = t
}

// SetWindow 为目标设置时间窗口
func (e *Entity) SetWindow(target common.Address, w Window) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.windows[target] = w
}

// Deposit 向实体转入原生币
func (e *Entity) Deposit(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid deposit amount: %v", amount)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.native.Add(e.native, amount)
	return nil
}

// Execute 校验签名集合并执行动作
//
// 校验顺序：
//  1. 动作格式
//  2. 摘要是否已消费
//  3. 时间窗口
//  4. 签名（恢复、去重、成员资格、法定人数）
//  5. 调用目标，失败不消费摘要
func (e *Entity) Execute(ctx context.Context, a action.Action, sigs signature.Set) (*action.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. 动作格式
	digest, err := e.Digest(a)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// 2. 重放保护
	if _, ok := e.consumed[digest]; ok {
		return nil, types.Errorf(types.KindVotingAlreadyExecuted, "digest %s", digest.Hex())
	}

	// 3. 时间窗口
	if err := e.checkWindowLocked(a); err != nil {
		return nil, err
	}

	// 4. 签名
	v, err := sigs.Verify(digest, e.rosterLocked(), e.quorum, e.recoverer)
	if err != nil {
		e.logger.Debug("signature set rejected", "digest", digest.Hex(), "error", err)
		return nil, err
	}

	// 5. 调用
	ret, err := e.dispatchLocked(ctx, Call{Target: a.Target, Data: a.Data, Value: a.Value})
	if err != nil {
		e.logger.Warn("execution reverted", "digest", digest.Hex(), "target", a.Target.Hex(), "error", err)
		return nil, err
	}

	// 6. 消费摘要并记录
	now := e.now()
	e.consumed[digest] = struct{}{}
	e.executed = append(e.executed, ExecutedVoting{
		Target:     a.Target,
		Data:       append([]byte(nil), a.Data...),
		Value:      new(big.Int).Set(a.Value),
		Nonce:      new(big.Int).Set(a.Nonce),
		Timestamp:  new(big.Int).Set(a.Timestamp),
		ExecutedAt: now,
		Sigs:       sigs.Clone(),
	})

	e.logger.Info("action executed", "digest", digest.Hex(), "target", a.Target.Hex(),
		"nonce", a.Nonce.String(), "signers", len(v.Signers), "weight", v.Weight.String())

	return &action.Receipt{
		Digest:     digest,
		Signers:    v.Signers,
		Return:     ret,
		Index:      len(e.executed) - 1,
		ExecutedAt: now,
	}, nil
}

// Submit 与 Execute 相同，满足协作方接口
func (e *Entity) Submit(ctx context.Context, a action.Action, sigs signature.Set) (*action.Receipt, error) {
	return e.Execute(ctx, a, sigs)
}

// ExecutePermitted 授权账户无需签名直接执行调用
func (e *Entity) ExecutePermitted(ctx context.Context, sender common.Address, call Call) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call.Value == nil {
		call.Value = new(big.Int)
	}
	if call.Value.Sign() < 0 {
		return nil, types.Errorf(types.KindMalformedAction, "negative value %v", call.Value)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.containsPermittedLocked(sender) {
		return nil, types.Errorf(types.KindNotPermitted, "sender %s", sender.Hex())
	}

	ret, err := e.dispatchLocked(ctx, call)
	if err != nil {
		return nil, err
	}

	e.executedPermitted = append(e.executedPermitted, ExecutedPermitted{
		Target:     call.Target,
		Data:       append([]byte(nil), call.Data...),
		Value:      new(big.Int).Set(call.Value),
		Sender:     sender,
		ExecutedAt: e.now(),
	})
	e.logger.Info("permitted call executed", "sender", sender.Hex(), "target", call.Target.Hex())
	return ret, nil
}

func (e *Entity) checkWindowLocked(a action.Action) error {
	w, ok := e.windows[a.Target]
	if !ok {
		return nil
	}
	now := e.now()
	// 超出 int64 的时间戳远在未来
	sec, ok := a.Unix()
	if !ok {
		return types.Errorf(types.KindActionNotYetActive, "timestamp %v is in the future", a.Timestamp)
	}
	ts := time.Unix(sec, 0)
	if ts.After(now.Add(w.MaxSkew)) {
		return types.Errorf(types.KindActionNotYetActive, "timestamp %v is in the future", a.Timestamp)
	}
	if w.MaxAge > 0 && ts.Before(now.Add(-w.MaxAge)) {
		return types.Errorf(types.KindActionExpired, "timestamp %v older than %s", a.Timestamp, w.MaxAge)
	}
	return nil
}

// dispatchLocked 执行调用；失败时不产生任何状态变化
func (e *Entity) dispatchLocked(ctx context.Context, call Call) ([]byte, error) {
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Cmp(e.native) > 0 {
		return nil, revert(types.ReasonInsufficientBalance, "value %v exceeds balance %v", value, e.native)
	}

	// 自调用：内置函数
	if call.Target == e.address {
		return e.builtinLocked(call.Data)
	}

	t, registered := e.targets[call.Target]
	if !registered {
		if len(call.Data) > 0 {
			return nil, revert("Address: call to non-contract", "target %s", call.Target.Hex())
		}
		e.transferLocked(call.Target, value)
		return nil, nil
	}

	ret, err := t.Invoke(ctx, Invocation{
		From:  e.address,
		Data:  append([]byte(nil), call.Data...),
		Value: new(big.Int).Set(value),
	})
	if err != nil {
		return nil, asRevert(err)
	}
	e.transferLocked(call.Target, value)
	return ret, nil
}

func (e *Entity) transferLocked(to common.Address, value *big.Int) {
	if value.Sign() == 0 {
		return
	}
	e.native.Sub(e.native, value)
	bal, ok := e.accounts[to]
	if !ok {
		bal = new(big.Int)
		e.accounts[to] = bal
	}
	bal.Add(bal, value)
}

func (e *Entity) rosterLocked() *signature.Roster {
	members := make([]signature.Member, 0, len(e.holders))
	for _, h := range e.holders {
		members = append(members, signature.Member{Address: h, Weight: e.balances[h]})
	}
	// 余额与 holders 同步维护，构建不会失败
	r, err := signature.NewRoster(members, e.totalSupply)
	if err != nil {
		panic(fmt.Sprintf("dao roster: %v", err))
	}
	return r
}

func (e *Entity) credit(to common.Address, amount *big.Int) {
	bal, ok := e.balances[to]
	if !ok {
		bal = new(big.Int)
		e.balances[to] = bal
		e.holders = append(e.holders, to)
	}
	bal.Add(bal, amount)
	e.totalSupply.Add(e.totalSupply, amount)
}

func (e *Entity) containsPermittedLocked(p common.Address) bool {
	for _, a := range e.permitted {
		if a == p {
			return true
		}
	}
	return false
}

// revert 构造 ExecutionReverted 错误
func revert(reason string, format string, args ...interface{}) *types.DaoError {
	return types.NewDaoError(types.KindExecutionReverted, reason, fmt.Sprintf(format, args...))
}

// asRevert 将目标返回的错误归为 ExecutionReverted
func asRevert(err error) error {
	if daoErr, ok := types.AsDaoError(err); ok && daoErr.Kind == types.KindExecutionReverted {
		return daoErr
	}
	daoErr := types.NewDaoError(types.KindExecutionReverted, err.Error(), "")
	daoErr.Cause = err
	return daoErr
}
