package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress 解析十六进制地址
//
// **规则**：
// - 必须是 40 个十六进制字符，0x 前缀可选
// - 大小写混合时必须符合 EIP-55 校验和
// - 全小写或全大写视为未校验地址，直接接受
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid hex address: %q", s)
	}
	addr := common.HexToAddress(s)

	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if isMixedCase(body) && addr.Hex()[2:] != body {
		return common.Address{}, fmt.Errorf("address %s has invalid EIP-55 checksum (expected %s)", s, addr.Hex())
	}
	return addr, nil
}

// MustParseAddress 解析失败时 panic，仅用于常量
func MustParseAddress(s string) common.Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// ParseAddresses 解析逗号分隔的地址列表
func ParseAddresses(list string) ([]common.Address, error) {
	var out []common.Address
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := ParseAddress(part)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// IsZeroAddress 是否为零地址
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
