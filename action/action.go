// Package action 定义多签 DAO 的待授权动作及其规范摘要。
//
// 摘要（Digest）同时作为签名载荷与防重放键：
// keccak256(abi.encode(dao, target, data, value, nonce, timestamp, chainId))
package action

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xdao/dao-sdk-go/types"
)

// SelectorLength 函数选择器长度（字节）
const SelectorLength = 4

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Action 待授权动作
//
// 一旦计算摘要即视为不可变；调用方不应再修改其字段
type Action struct {
	Target    common.Address // 被调用合约地址
	Data      []byte         // 调用数据（4 字节选择器 + ABI 参数），核心层视为不透明字节
	Value     *big.Int       // 附带的原生币数量
	Nonce     *big.Int       // 调用方选择的消歧值，不要求连续
	Timestamp *big.Int       // Unix 秒
}

// New 创建动作，value/nonce 使用 uint64 便捷构造
func New(target common.Address, data []byte, value uint64, nonce uint64, timestamp int64) Action {
	return Action{
		Target:    target,
		Data:      data,
		Value:     new(big.Int).SetUint64(value),
		Nonce:     new(big.Int).SetUint64(nonce),
		Timestamp: big.NewInt(timestamp),
	}
}

// NewAt 以 time.Time 作为时间戳创建动作
func NewAt(target common.Address, data []byte, value uint64, nonce uint64, at time.Time) Action {
	return New(target, data, value, nonce, at.Unix())
}

// Validate 在签名前检查动作是否合法
//
// 失败返回 MalformedAction，表示上游编程错误
func (a Action) Validate() error {
	if a.Target == (common.Address{}) {
		return types.Errorf(types.KindMalformedAction, "target is the zero address")
	}
	if len(a.Data) > 0 && len(a.Data) < SelectorLength {
		return types.Errorf(types.KindMalformedAction, "data must start with a %d-byte selector, got %d bytes", SelectorLength, len(a.Data))
	}
	for _, f := range []struct {
		name string
		v    *big.Int
	}{
		{"value", a.Value},
		{"nonce", a.Nonce},
		{"timestamp", a.Timestamp},
	} {
		if f.v == nil {
			return types.Errorf(types.KindMalformedAction, "%s is required", f.name)
		}
		if f.v.Sign() < 0 {
			return types.Errorf(types.KindMalformedAction, "%s must not be negative", f.name)
		}
		if f.v.Cmp(maxUint256) > 0 {
			return types.Errorf(types.KindMalformedAction, "%s overflows uint256", f.name)
		}
	}
	return nil
}

// Selector 返回调用数据的函数选择器，纯转账返回 false
func (a Action) Selector() ([SelectorLength]byte, bool) {
	var sel [SelectorLength]byte
	if len(a.Data) < SelectorLength {
		return sel, false
	}
	copy(sel[:], a.Data[:SelectorLength])
	return sel, true
}

// Unix 返回时间戳秒数；时间戳超出 int64 范围时 ok 为 false
func (a Action) Unix() (sec int64, ok bool) {
	if a.Timestamp == nil || !a.Timestamp.IsInt64() {
		return 0, false
	}
	return a.Timestamp.Int64(), true
}

// Time 返回时间戳对应的时间；超出 int64 范围时返回零值，比较前先用 Unix 判断
func (a Action) Time() time.Time {
	if a.Timestamp == nil || !a.Timestamp.IsInt64() {
		return time.Time{}
	}
	return time.Unix(a.Timestamp.Int64(), 0)
}

// WithNonce 返回更换 nonce 后的副本
func (a Action) WithNonce(nonce uint64) Action {
	a.Nonce = new(big.Int).SetUint64(nonce)
	return a
}

// WithTimestamp 返回更换时间戳后的副本
func (a Action) WithTimestamp(ts int64) Action {
	a.Timestamp = big.NewInt(ts)
	return a
}

// Clone 深拷贝
func (a Action) Clone() Action {
	out := Action{Target: a.Target}
	if a.Data != nil {
		out.Data = append([]byte(nil), a.Data...)
	}
	if a.Value != nil {
		out.Value = new(big.Int).Set(a.Value)
	}
	if a.Nonce != nil {
		out.Nonce = new(big.Int).Set(a.Nonce)
	}
	if a.Timestamp != nil {
		out.Timestamp = new(big.Int).Set(a.Timestamp)
	}
	return out
}

func (a Action) String() string {
	return fmt.Sprintf("Action{target=%s data=%d bytes value=%v nonce=%v timestamp=%v}",
		a.Target.Hex(), len(a.Data), a.Value, a.Nonce, a.Timestamp)
}
