// Package signature 负责成员签名的收集、恢复与校验。
package signature

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xdao/dao-sdk-go/action"
)

// Length 签名长度：r(32) || s(32) || v(1)
const Length = 65

// Recoverer 从摘要与签名恢复签名者地址
//
// 以接口形式存在，便于将来支持多种签名方案
type Recoverer interface {
	RecoverSigner(digest action.Digest, sig []byte) (common.Address, error)
}

// RecovererFunc 函数适配器
type RecovererFunc func(digest action.Digest, sig []byte) (common.Address, error)

// RecoverSigner 实现 Recoverer
func (f RecovererFunc) RecoverSigner(digest action.Digest, sig []byte) (common.Address, error) {
	return f(digest, sig)
}

// EIP191Recoverer personal_sign 方案（与链上 ECDSA.toEthSignedMessageHash + recover 一致）
type EIP191Recoverer struct{}

// RecoverSigner 实现 Recoverer
func (EIP191Recoverer) RecoverSigner(digest action.Digest, sig []byte) (common.Address, error) {
	if len(sig) != Length {
		return common.Address{}, fmt.Errorf("invalid signature length: expected %d bytes, got %d", Length, len(sig))
	}

	normalized := make([]byte, Length)
	copy(normalized, sig)
	switch v := normalized[64]; v {
	case 27, 28:
		normalized[64] = v - 27
	case 0, 1:
	default:
		return common.Address{}, fmt.Errorf("invalid signature recovery id: %d", v)
	}

	// 与链上 ECDSA.recover 一致，拒绝高位 s
	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[64], r, s, true) {
		return common.Address{}, fmt.Errorf("invalid signature values: r or s out of range")
	}

	pub, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// DefaultRecoverer 默认恢复器
var DefaultRecoverer Recoverer = EIP191Recoverer{}

// RecoverSigner 使用默认方案恢复签名者
func RecoverSigner(digest action.Digest, sig []byte) (common.Address, error) {
	return DefaultRecoverer.RecoverSigner(digest, sig)
}
