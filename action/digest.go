package action

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DigestLength 摘要长度（字节）
const DigestLength = 32

// Digest 动作的规范指纹
type Digest [DigestLength]byte

// Bytes 返回摘要字节
func (d Digest) Bytes() []byte {
	return d[:]
}

// Hex 返回带 0x 前缀的十六进制表示
func (d Digest) Hex() string {
	return hexutil.Encode(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

// Hash 转换为 go-ethereum 的 common.Hash
func (d Digest) Hash() common.Hash {
	return common.Hash(d)
}

// DigestFromHex 解析十六进制摘要
func DigestFromHex(s string) (Digest, error) {
	var d Digest
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	if len(raw) != DigestLength {
		return d, fmt.Errorf("invalid digest length: expected %d bytes, got %d", DigestLength, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// digestArguments 摘要编码的字段类型，顺序固定
var digestArguments = mustArguments("address", "address", "bytes", "uint256", "uint256", "uint256", "uint256")

func mustArguments(typeNames ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(typeNames))
	for _, name := range typeNames {
		t, err := abi.NewType(name, "", nil)
		if err != nil {
			panic(fmt.Sprintf("abi type %s: %v", name, err))
		}
		args = append(args, abi.Argument{Type: t})
	}
	return args
}

// Encode 返回摘要哈希前的 ABI 编码
func (a Action) Encode(entity common.Address, chainID *big.Int) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if chainID == nil || chainID.Sign() < 0 {
		return nil, fmt.Errorf("invalid chain id: %v", chainID)
	}
	data := a.Data
	if data == nil {
		data = []byte{}
	}
	return digestArguments.Pack(entity, a.Target, data, a.Value, a.Nonce, a.Timestamp, chainID)
}

// Digest 计算动作在指定 DAO 与链上的摘要
//
// 纯函数：相同输入总是得到相同输出
func (a Action) Digest(entity common.Address, chainID *big.Int) (Digest, error) {
	var d Digest
	encoded, err := a.Encode(entity, chainID)
	if err != nil {
		return d, err
	}
	copy(d[:], crypto.Keccak256(encoded))
	return d, nil
}

// MustDigest 同 Digest，出错时 panic（仅用于测试与常量构造）
func (a Action) MustDigest(entity common.Address, chainID *big.Int) Digest {
	d, err := a.Digest(entity, chainID)
	if err != nil {
		panic(err)
	}
	return d
}

// CreateTxHash 按字段直接计算摘要
func CreateTxHash(entity, target common.Address, data []byte, value, nonce, timestamp, chainID *big.Int) (Digest, error) {
	return Action{
		Target:    target,
		Data:      data,
		Value:     value,
		Nonce:     nonce,
		Timestamp: timestamp,
	}.Digest(entity, chainID)
}
