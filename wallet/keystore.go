package wallet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// KeystoreManager Keystore管理器
//
// 文件格式为 Web3 Secret Storage v3（scrypt + aes-128-ctr），
// 可与 geth / hardhat / ethers 互通
type KeystoreManager struct {
	keystoreDir string
	scryptN     int
	scryptP     int
}

// NewKeystoreManager 创建Keystore管理器
func NewKeystoreManager(keystoreDir string) (*KeystoreManager, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}

	return &KeystoreManager{
		keystoreDir: keystoreDir,
		scryptN:     keystore.StandardScryptN,
		scryptP:     keystore.StandardScryptP,
	}, nil
}

// NewLightKeystoreManager 使用轻量 scrypt 参数（用于测试）
func NewLightKeystoreManager(keystoreDir string) (*KeystoreManager, error) {
	km, err := NewKeystoreManager(keystoreDir)
	if err != nil {
		return nil, err
	}
	km.scryptN = keystore.LightScryptN
	km.scryptP = keystore.LightScryptP
	return km, nil
}

// Save 保存钱包私钥到Keystore，返回文件路径
func (km *KeystoreManager) Save(w Wallet, password string) (string, error) {
	priv := w.PrivateKey()
	if priv == nil {
		return "", fmt.Errorf("wallet private key is nil")
	}

	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    w.Address(),
		PrivateKey: priv,
	}
	keyJSON, err := keystore.EncryptKey(key, password, km.scryptN, km.scryptP)
	if err != nil {
		return "", fmt.Errorf("encrypt private key: %w", err)
	}

	keystorePath := km.path(w.Address())
	if err := os.WriteFile(keystorePath, keyJSON, 0600); err != nil {
		return "", fmt.Errorf("write keystore file: %w", err)
	}
	return keystorePath, nil
}

// Load 从Keystore加载钱包
func (km *KeystoreManager) Load(address common.Address, password string) (*SimpleWallet, error) {
	return LoadKeystoreFile(km.path(address), password)
}

// List 列出Keystore目录中的地址
func (km *KeystoreManager) List() ([]common.Address, error) {
	entries, err := os.ReadDir(km.keystoreDir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var addrs []common.Address
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		hexAddr := strings.TrimSuffix(name, ".json")
		if !common.IsHexAddress(hexAddr) {
			continue
		}
		addrs = append(addrs, common.HexToAddress(hexAddr))
	}
	return addrs, nil
}

// Delete 删除Keystore文件
func (km *KeystoreManager) Delete(address common.Address) error {
	if err := os.Remove(km.path(address)); err != nil {
		return fmt.Errorf("delete keystore file: %w", err)
	}
	return nil
}

func (km *KeystoreManager) path(address common.Address) string {
	return filepath.Join(km.keystoreDir, fmt.Sprintf("%s.json", address.Hex()))
}

// LoadKeystoreFile 从任意 v3 keystore 文件加载钱包
func LoadKeystoreFile(path string, password string) (*SimpleWallet, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore file: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return NewWalletFromECDSA(key.PrivateKey), nil
}
