package services

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/xdao/dao-sdk-go/client"
	"github.com/xdao/dao-sdk-go/utils"
)

// 环境变量名
const (
	EnvRPCURL              = "DAO_RPC_URL"
	EnvChainID             = "DAO_CHAIN_ID"
	EnvAddress             = "DAO_ADDRESS"
	EnvMembers             = "DAO_MEMBERS"
	EnvPrivateKey          = "PRIVATE_KEY"
	EnvGasLimit            = "DAO_GAS_LIMIT"
	EnvGasPrice            = "DAO_GAS_PRICE"
	EnvMaxActionAge        = "DAO_MAX_ACTION_AGE"
	EnvReceiptPollInterval = "DAO_RECEIPT_POLL_INTERVAL"
	EnvReceiptTimeout      = "DAO_RECEIPT_TIMEOUT"
	EnvConcurrency         = "DAO_SIGN_CONCURRENCY"
	EnvKeystorePassword    = "DAO_KEYSTORE_PASSWORD"
)

// 默认值（本地 hardhat 节点）
const (
	DefaultRPCURL              = "http://127.0.0.1:8545"
	DefaultChainID             = 1337
	DefaultReceiptPollInterval = time.Second
	DefaultReceiptTimeout      = 2 * time.Minute
)

// Config 统一的业务服务配置，为授权服务与链上协作方提供 DAO 地址、成员与中继参数。
//
// 所有字段均可选；未提供时各 service 使用默认行为或返回错误
type Config struct {
	// RPCURL 节点端点（http(s):// 或 ws(s)://）
	RPCURL string

	// ChainID 参与摘要计算的链 ID
	ChainID *big.Int

	// DAOAddress 链上 DAO 合约地址
	DAOAddress common.Address

	// Members 候选成员地址；链上成员权重通过 balanceOf 查询
	Members []common.Address

	// PrivateKey 中继账户私钥（十六进制），用于发送 execute 交易
	PrivateKey string

	// KeystorePassword 解密成员 keystore 文件的口令
	KeystorePassword string

	// 中继交易 gas 设置，0/nil 表示从节点估算
	GasLimit uint64
	GasPrice *big.Int

	// MaxActionAge 提交前本地拒绝过旧的动作（0 表示不检查）
	MaxActionAge time.Duration

	// 回执轮询
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration

	// Concurrency 并发签名数量（0 使用 signature.DefaultConcurrency）
	Concurrency int

	Logger client.Logger
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		RPCURL:              DefaultRPCURL,
		ChainID:             big.NewInt(DefaultChainID),
		ReceiptPollInterval: DefaultReceiptPollInterval,
		ReceiptTimeout:      DefaultReceiptTimeout,
	}
}

// LoadConfigFromEnv 从 dotenv 文件与进程环境加载配置
//
// path 为空时只读取进程环境；进程环境中已设置的变量优先于文件
func LoadConfigFromEnv(path string) (*Config, error) {
	fileEnv := map[string]string{}
	if path != "" {
		var err error
		fileEnv, err = godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", path, err)
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(fileEnv[key])
	}

	cfg := DefaultConfig()
	if v := lookup(EnvRPCURL); v != "" {
		cfg.RPCURL = v
	}
	cfg.KeystorePassword = lookup(EnvKeystorePassword)
	if v := lookup(EnvChainID); v != "" {
		id, ok := new(big.Int).SetString(v, 0)
		if !ok || id.Sign() <= 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvChainID, v)
		}
		cfg.ChainID = id
	}
	if v := lookup(EnvAddress); v != "" {
		addr, err := utils.ParseAddress(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvAddress, err)
		}
		cfg.DAOAddress = addr
	}
	if v := lookup(EnvMembers); v != "" {
		members, err := utils.ParseAddresses(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMembers, err)
		}
		cfg.Members = members
	}
	cfg.PrivateKey = lookup(EnvPrivateKey)

	if v := lookup(EnvGasLimit); v != "" {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvGasLimit, err)
		}
		cfg.GasLimit = n
	}
	if v := lookup(EnvGasPrice); v != "" {
		p, ok := new(big.Int).SetString(v, 0)
		if !ok || p.Sign() < 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvGasPrice, v)
		}
		cfg.GasPrice = p
	}
	if v := lookup(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvConcurrency, v)
		}
		cfg.Concurrency = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvMaxActionAge, &cfg.MaxActionAge},
		{EnvReceiptPollInterval, &cfg.ReceiptPollInterval},
		{EnvReceiptTimeout, &cfg.ReceiptTimeout},
	}
	for _, d := range durations {
		v := lookup(d.key)
		if v == "" {
			continue
		}
		dur, err := time.ParseDuration(v)
		if err != nil || dur < 0 {
			return nil, fmt.Errorf("invalid %s: %q", d.key, v)
		}
		*d.dst = dur
	}

	return cfg, nil
}

// Validate 检查链上提交所需的字段
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("%s is required", EnvRPCURL)
	}
	if c.ChainID == nil || c.ChainID.Sign() <= 0 {
		return fmt.Errorf("%s must be positive", EnvChainID)
	}
	if utils.IsZeroAddress(c.DAOAddress) {
		return fmt.Errorf("%s is required", EnvAddress)
	}
	return nil
}

// ClientConfig 生成节点客户端配置
func (c *Config) ClientConfig() *client.Config {
	cc := client.DefaultConfig()
	cc.Endpoint = c.RPCURL
	cc.Protocol = ""
	cc.Logger = c.Logger
	return cc
}
