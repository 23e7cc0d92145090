package authorizer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/client"
	"github.com/xdao/dao-sdk-go/dao"
	"github.com/xdao/dao-sdk-go/services"
	"github.com/xdao/dao-sdk-go/signature"
	"github.com/xdao/dao-sdk-go/types"
	"github.com/xdao/dao-sdk-go/utils"
	"github.com/xdao/dao-sdk-go/wallet"
)

// RPCCollaborator 通过 JSON-RPC 访问部署在 EVM 节点上的 DAO 合约
//
// 查询走 eth_call；Submit 由中继账户签名 execute 交易并等待回执。
// 链上合约不提供成员枚举，成员来自配置的候选地址（balanceOf > 0）
type RPCCollaborator struct {
	client     client.Client
	address    common.Address
	chainID    *big.Int
	relayer    wallet.Wallet
	candidates []common.Address

	gasLimit       uint64
	gasPrice       *big.Int
	pollInterval   time.Duration
	receiptTimeout time.Duration

	logger client.Logger
	now    func() time.Time
}

// NewRPCCollaborator 创建链上协作方
//
// relayer 为 nil 时尝试使用 cfg.PrivateKey；两者都没有时只能查询，Submit 返回错误
func NewRPCCollaborator(c client.Client, cfg *services.Config, relayer wallet.Wallet) (*RPCCollaborator, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if relayer == nil && cfg.PrivateKey != "" {
		w, err := wallet.NewWalletFromPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("load relayer key: %w", err)
		}
		relayer = w
	}

	r := &RPCCollaborator{
		client:         c,
		address:        cfg.DAOAddress,
		chainID:        new(big.Int).Set(cfg.ChainID),
		relayer:        relayer,
		candidates:     append([]common.Address(nil), cfg.Members...),
		gasLimit:       cfg.GasLimit,
		pollInterval:   cfg.ReceiptPollInterval,
		receiptTimeout: cfg.ReceiptTimeout,
		logger:         client.OrNop(cfg.Logger),
		now:            time.Now,
	}
	if cfg.GasPrice != nil {
		r.gasPrice = new(big.Int).Set(cfg.GasPrice)
	}
	if r.pollInterval <= 0 {
		r.pollInterval = services.DefaultReceiptPollInterval
	}
	if r.receiptTimeout <= 0 {
		r.receiptTimeout = services.DefaultReceiptTimeout
	}
	return r, nil
}

// Address DAO 合约地址
func (r *RPCCollaborator) Address() common.Address { return r.address }

// ChainID 链 ID
func (r *RPCCollaborator) ChainID() *big.Int { return new(big.Int).Set(r.chainID) }

// call 执行只读合约调用并解码返回值
func (r *RPCCollaborator) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := dao.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := r.address
	out, err := client.EthCall(ctx, r.client, client.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, revertError(err)
	}
	values, err := dao.ParsedABI().Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// Quorum quorum()
func (r *RPCCollaborator) Quorum(ctx context.Context) (uint8, error) {
	values, err := r.call(ctx, "quorum")
	if err != nil {
		return 0, err
	}
	q, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected quorum type %T", values[0])
	}
	return q, nil
}

// TotalWeight totalSupply()
func (r *RPCCollaborator) TotalWeight(ctx context.Context) (*big.Int, error) {
	return r.bigCall(ctx, "totalSupply")
}

// BalanceOf balanceOf(address)
func (r *RPCCollaborator) BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	return r.bigCall(ctx, "balanceOf", addr)
}

func (r *RPCCollaborator) bigCall(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := r.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	n, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s type %T", method, values[0])
	}
	return n, nil
}

// IsConsumed executedTx(bytes32)
func (r *RPCCollaborator) IsConsumed(ctx context.Context, digest action.Digest) (bool, error) {
	values, err := r.call(ctx, "executedTx", [32]byte(digest))
	if err != nil {
		return false, err
	}
	done, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected executedTx type %T", values[0])
	}
	return done, nil
}

// Members 候选地址中持有治理代币的成员，顺序与配置一致
func (r *RPCCollaborator) Members(ctx context.Context) ([]signature.Member, error) {
	balances, err := utils.ParallelExecute(ctx, r.candidates, r.BalanceOf, 0)
	if err != nil {
		return nil, fmt.Errorf("query member balances: %w", err)
	}
	members := make([]signature.Member, 0, len(balances))
	for i, bal := range balances {
		if bal.Sign() > 0 {
			members = append(members, signature.Member{Address: r.candidates[i], Weight: bal})
		}
	}
	return members, nil
}

// Submit 由中继账户发送 execute 交易
//
// 先 eth_estimateGas：合约 revert 时在花费 gas 之前返回分类后的 DaoError
func (r *RPCCollaborator) Submit(ctx context.Context, a action.Action, sigs signature.Set) (*action.Receipt, error) {
	// 1. 参数验证
	if r.relayer == nil {
		return nil, fmt.Errorf("relayer wallet is required to submit")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	digest, err := a.Digest(r.address, r.chainID)
	if err != nil {
		return nil, err
	}

	// 2. 编码 execute 调用
	data, err := dao.Pack("execute", a.Target, a.Data, a.Value, a.Nonce, a.Timestamp, [][]byte(sigs))
	if err != nil {
		return nil, fmt.Errorf("pack execute: %w", err)
	}

	// 3. 构建并签名交易
	tx, err := r.buildTx(ctx, data)
	if err != nil {
		return nil, err
	}
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(r.chainID), r.relayer.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("sign transaction failed: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction failed: %w", err)
	}

	// 4. 发送
	sent, err := r.client.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return nil, revertError(fmt.Errorf("send raw transaction failed: %w", err))
	}
	r.logger.Info("execute transaction sent", "digest", digest.Hex(), "tx", sent.TxHash.Hex())

	// 5. 等待回执
	rc, err := r.waitReceipt(ctx, sent.TxHash)
	if err != nil {
		return nil, err
	}
	if !rc.Succeeded() {
		return nil, types.NewDaoError(types.KindExecutionReverted, "",
			fmt.Sprintf("transaction %s reverted in block %d", sent.TxHash.Hex(), uint64(rc.BlockNumber)))
	}

	signers, err := sigs.Recover(digest, signature.DefaultRecoverer)
	if err != nil {
		// 交易已成功，签名者仅用于回执展示
		r.logger.Warn("recover signers for receipt failed", "digest", digest.Hex(), "error", err)
		signers = nil
	}

	return &action.Receipt{
		Digest:      digest,
		Signers:     signers,
		Index:       -1,
		ExecutedAt:  r.now(),
		TxHash:      rc.TxHash,
		BlockNumber: uint64(rc.BlockNumber),
		GasUsed:     uint64(rc.GasUsed),
	}, nil
}

// buildTx 估算 gas、获取 nonce 与 gas price，构建 EIP-155 交易
func (r *RPCCollaborator) buildTx(ctx context.Context, data []byte) (*ethtypes.Transaction, error) {
	from := r.relayer.Address()
	to := r.address

	gas := r.gasLimit
	if gas == 0 {
		estimated, err := client.EstimateGas(ctx, r.client, client.CallMsg{From: &from, To: &to, Data: data})
		if err != nil {
			return nil, revertError(err)
		}
		gas = estimated
	}

	nonce, err := client.PendingNonceAt(ctx, r.client, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce failed: %w", err)
	}

	gasPrice := r.gasPrice
	if gasPrice == nil {
		gasPrice, err = client.GasPrice(ctx, r.client)
		if err != nil {
			return nil, fmt.Errorf("get gas price failed: %w", err)
		}
	}

	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    new(big.Int),
		Data:     data,
	}), nil
}

// waitReceipt 轮询交易回执直到打包或超时
func (r *RPCCollaborator) waitReceipt(ctx context.Context, txHash common.Hash) (*client.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, r.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		rc, err := client.TransactionReceipt(ctx, r.client, txHash)
		if err != nil && !client.IsRetryable(err) {
			return nil, fmt.Errorf("get receipt for %s: %w", txHash.Hex(), err)
		}
		if rc != nil {
			return rc, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait receipt for %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// revertError 将节点 revert 错误归类为 DaoError，其他错误原样返回
func revertError(err error) error {
	rpcErr, ok := client.AsRPCError(err)
	if !ok || !types.IsRevertMessage(rpcErr.Message) && rpcErr.Data == nil {
		return err
	}
	daoErr := types.ParseRevert(rpcErr.Message, rpcErr.Data)
	daoErr.Cause = err
	return daoErr
}
