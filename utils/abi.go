package utils

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature 构建函数签名，如 transfer(address,uint256)
func Signature(method string, argTypes []string) string {
	return fmt.Sprintf("%s(%s)", method, strings.Join(argTypes, ","))
}

// ParseSignature 拆分函数签名 "transfer(address,uint256)" 为方法名与参数类型
func ParseSignature(sig string) (string, []string, error) {
	sig = strings.ReplaceAll(strings.TrimSpace(sig), " ", "")
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return "", nil, fmt.Errorf("invalid function signature %q", sig)
	}
	method := sig[:open]
	inner := sig[open+1 : len(sig)-1]
	if inner == "" {
		return method, nil, nil
	}
	argTypes := strings.Split(inner, ",")
	for _, t := range argTypes {
		if t == "" {
			return "", nil, fmt.Errorf("invalid function signature %q", sig)
		}
	}
	return method, argTypes, nil
}

// Selector 计算函数选择器：keccak256(signature) 的前 4 字节
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// CreateData 构建合约调用数据：选择器 + ABI 编码参数
//
// 示例：
//
//	data, err := CreateData("transfer", []string{"address", "uint256"}, to, big.NewInt(100))
func CreateData(method string, argTypes []string, args ...interface{}) ([]byte, error) {
	// 1. 参数验证
	if method == "" {
		return nil, fmt.Errorf("method name is required")
	}
	if len(argTypes) != len(args) {
		return nil, fmt.Errorf("argument count mismatch: %d types, %d values", len(argTypes), len(args))
	}

	// 2. 选择器
	sel := Selector(Signature(method, argTypes))
	if len(args) == 0 {
		return sel[:], nil
	}

	// 3. 参数编码
	encoded, err := EncodeArgs(argTypes, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", method, err)
	}
	return append(sel[:], encoded...), nil
}

// EncodeArgs 按类型列表对参数做 ABI 编码（无选择器）
func EncodeArgs(argTypes []string, args ...interface{}) ([]byte, error) {
	arguments, err := NewArguments(argTypes...)
	if err != nil {
		return nil, err
	}
	return arguments.Pack(args...)
}

// NewArguments 由类型名构建 abi.Arguments
func NewArguments(argTypes ...string) (abi.Arguments, error) {
	arguments := make(abi.Arguments, 0, len(argTypes))
	for _, name := range argTypes {
		t, err := abi.NewType(name, "", nil)
		if err != nil {
			return nil, fmt.Errorf("abi type %q: %w", name, err)
		}
		arguments = append(arguments, abi.Argument{Type: t})
	}
	return arguments, nil
}

// ParseArg 将命令行字符串转换为对应 ABI 类型的 Go 值
//
// 支持 address、bool、string、bytes、bytesN、uintN/intN
func ParseArg(argType string, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	t, err := abi.NewType(argType, "", nil)
	if err != nil {
		return nil, fmt.Errorf("abi type %q: %w", argType, err)
	}

	switch t.T {
	case abi.AddressTy:
		return ParseAddress(raw)
	case abi.BoolTy:
		return strconv.ParseBool(raw)
	case abi.StringTy:
		return raw, nil
	case abi.BytesTy:
		return hexutil.Decode(withHexPrefix(raw))
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(withHexPrefix(raw))
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("%s expects %d bytes, got %d", argType, t.Size, len(b))
		}
		return fixedBytes(b), nil
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("%s cannot be negative", argType)
		}
		return sizedInt(t, n)
	default:
		return nil, fmt.Errorf("unsupported argument type %s", argType)
	}
}

// ParseArgs 批量转换参数
func ParseArgs(argTypes []string, raws []string) ([]interface{}, error) {
	if len(argTypes) != len(raws) {
		return nil, fmt.Errorf("argument count mismatch: %d types, %d values", len(argTypes), len(raws))
	}
	out := make([]interface{}, len(raws))
	for i := range raws {
		v, err := ParseArg(argTypes[i], raws[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// sizedInt go-ethereum 对 8..64 位整数要求使用对应的 Go 原生类型
func sizedInt(t abi.Type, n *big.Int) (interface{}, error) {
	if t.Size > 64 {
		return n, nil
	}
	if t.T == abi.UintTy {
		if !n.IsUint64() || n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %v overflows uint%d", n, t.Size)
		}
		v := n.Uint64()
		switch t.Size {
		case 8:
			return uint8(v), nil
		case 16:
			return uint16(v), nil
		case 32:
			return uint32(v), nil
		case 64:
			return v, nil
		}
		return n, nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return nil, fmt.Errorf("value %v overflows int%d", n, t.Size)
	}
	v := n.Int64()
	switch t.Size {
	case 8:
		return int8(v), nil
	case 16:
		return int16(v), nil
	case 32:
		return int32(v), nil
	case 64:
		return v, nil
	}
	return n, nil
}

// fixedBytes bytesN 需以 [N]byte 数组传入
func fixedBytes(b []byte) interface{} {
	arr := reflect.New(reflect.ArrayOf(len(b), reflect.TypeOf(byte(0)))).Elem()
	reflect.Copy(arr, reflect.ValueOf(b))
	return arr.Interface()
}

func withHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
