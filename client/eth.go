package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CallMsg eth_call / eth_estimateGas 参数
type CallMsg struct {
	From     *common.Address `json:"from,omitempty"`
	To       *common.Address `json:"to,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
}

// Receipt 交易回执（仅包含本 SDK 使用的字段）
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
	Logs        []*Event       `json:"logs"`
}

// Succeeded 交易是否执行成功
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// callInto 调用并解码结果
func callInto(ctx context.Context, c Client, out interface{}, method string, params ...interface{}) error {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewInvalidResponseError(fmt.Sprintf("decode %s result: %v", method, err))
	}
	return nil
}

// ChainID eth_chainId
func ChainID(ctx context.Context, c Client) (*big.Int, error) {
	var id hexutil.Big
	if err := callInto(ctx, c, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return (*big.Int)(&id), nil
}

// BlockNumber eth_blockNumber
func BlockNumber(ctx context.Context, c Client) (uint64, error) {
	var n hexutil.Uint64
	if err := callInto(ctx, c, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// PendingNonceAt eth_getTransactionCount(addr, "pending")
func PendingNonceAt(ctx context.Context, c Client, addr common.Address) (uint64, error) {
	var n hexutil.Uint64
	if err := callInto(ctx, c, &n, "eth_getTransactionCount", addr, "pending"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// GasPrice eth_gasPrice
func GasPrice(ctx context.Context, c Client) (*big.Int, error) {
	var p hexutil.Big
	if err := callInto(ctx, c, &p, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return (*big.Int)(&p), nil
}

// BalanceAt eth_getBalance(addr, "latest")
func BalanceAt(ctx context.Context, c Client, addr common.Address) (*big.Int, error) {
	var b hexutil.Big
	if err := callInto(ctx, c, &b, "eth_getBalance", addr, "latest"); err != nil {
		return nil, err
	}
	return (*big.Int)(&b), nil
}

// EthCall eth_call(msg, "latest")
func EthCall(ctx context.Context, c Client, msg CallMsg) ([]byte, error) {
	var out hexutil.Bytes
	if err := callInto(ctx, c, &out, "eth_call", msg, "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// EstimateGas eth_estimateGas；revert 时返回节点的 RPC 错误
func EstimateGas(ctx context.Context, c Client, msg CallMsg) (uint64, error) {
	var gas hexutil.Uint64
	if err := callInto(ctx, c, &gas, "eth_estimateGas", msg); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

// TransactionReceipt eth_getTransactionReceipt；交易未打包时返回 nil, nil
func TransactionReceipt(ctx context.Context, c Client, txHash common.Hash) (*Receipt, error) {
	raw, err := c.Call(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, NewInvalidResponseError(fmt.Sprintf("decode receipt: %v", err))
	}
	return &r, nil
}

// sendRawTransaction eth_sendRawTransaction
func sendRawTransaction(ctx context.Context, c Client, signedTxHex string) (*SendTxResult, error) {
	var hash common.Hash
	if err := callInto(ctx, c, &hash, "eth_sendRawTransaction", signedTxHex); err != nil {
		return nil, err
	}
	return &SendTxResult{TxHash: hash, Accepted: true}, nil
}
