package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength 签名长度：r(32) || s(32) || v(1)
const SignatureLength = 65

// Wallet 钱包接口
type Wallet interface {
	// Address 获取钱包地址
	Address() common.Address

	// SignMessage 按 EIP-191 personal_sign 签名消息（v 为 27/28）
	SignMessage(msg []byte) ([]byte, error)

	// SignHash 直接签名 32 字节哈希（v 为 0/1，供交易签名等高级调用方使用）
	SignHash(hash []byte) ([]byte, error)

	// PrivateKey 获取私钥（谨慎使用）
	PrivateKey() *ecdsa.PrivateKey
}

// Signer 签名者，能够对任意字节摘要产生签名
//
// 签名可能发生在远端（硬件钱包、KMS），因此接受 context
type Signer interface {
	Address() common.Address
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}

// SimpleWallet 简单钱包实现（用于测试和开发）
type SimpleWallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	createdAt  time.Time
}

// NewWallet 创建新钱包
func NewWallet() (*SimpleWallet, error) {
	privateKey, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return newSimpleWallet(privateKey), nil
}

// NewWalletFromPrivateKey 从私钥创建钱包
func NewWalletFromPrivateKey(privateKeyHex string) (*SimpleWallet, error) {
	privateKeyHex = hexRemovePrefix(strings.TrimSpace(privateKeyHex))

	privateKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	// secp256k1 私钥应该是32字节
	if len(privateKeyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length: expected 32 bytes, got %d", len(privateKeyBytes))
	}

	privateKey, err := ethcrypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse secp256k1 private key failed: %w", err)
	}
	return newSimpleWallet(privateKey), nil
}

// NewWalletFromECDSA 从已有私钥创建钱包
func NewWalletFromECDSA(privateKey *ecdsa.PrivateKey) *SimpleWallet {
	return newSimpleWallet(privateKey)
}

func newSimpleWallet(privateKey *ecdsa.PrivateKey) *SimpleWallet {
	return &SimpleWallet{
		privateKey: privateKey,
		address:    ethcrypto.PubkeyToAddress(privateKey.PublicKey),
		createdAt:  time.Now(),
	}
}

// Address 获取钱包地址
func (w *SimpleWallet) Address() common.Address {
	return w.address
}

// SignHash 签名哈希值
func (w *SimpleWallet) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := ethcrypto.Sign(hash, w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("secp256k1 sign: %w", err)
	}
	return sig, nil
}

// SignMessage 签名消息
//
// 与 ethers.js signer.signMessage(bytes) 一致：
// keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg)，v 加 27
func (w *SimpleWallet) SignMessage(msg []byte) ([]byte, error) {
	sig, err := w.SignHash(accounts.TextHash(msg))
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// Sign 实现 Signer：对摘要做 personal_sign
func (w *SimpleWallet) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.SignMessage(digest)
}

// PrivateKey 获取私钥
func (w *SimpleWallet) PrivateKey() *ecdsa.PrivateKey {
	return w.privateKey
}

// CreatedAt 钱包创建时间
func (w *SimpleWallet) CreatedAt() time.Time {
	return w.createdAt
}

// AsSigners 将钱包列表转换为签名者列表
func AsSigners(wallets ...Wallet) []Signer {
	signers := make([]Signer, 0, len(wallets))
	for _, w := range wallets {
		if s, ok := w.(Signer); ok {
			signers = append(signers, s)
			continue
		}
		signers = append(signers, walletSigner{w})
	}
	return signers
}

// walletSigner 将任意 Wallet 适配为 Signer
type walletSigner struct {
	Wallet
}

func (s walletSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.SignMessage(digest)
}

// hexRemovePrefix 移除十六进制字符串的0x前缀
func hexRemovePrefix(hexStr string) string {
	if len(hexStr) >= 2 && (hexStr[:2] == "0x" || hexStr[:2] == "0X") {
		return hexStr[2:]
	}
	return hexStr
}
