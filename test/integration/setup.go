//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xdao/dao-sdk-go/client"
	"github.com/xdao/dao-sdk-go/services"
	"github.com/xdao/dao-sdk-go/utils"
	"github.com/xdao/dao-sdk-go/wallet"
)

const (
	// EnvFile 可选的 dotenv 文件路径
	EnvFile = "DAO_ENV_FILE"
	// EnvMemberKeys 成员私钥（逗号分隔），用于签名测试
	EnvMemberKeys = "DAO_MEMBER_KEYS"

	// DefaultTimeout 默认超时时间
	DefaultTimeout = 30 * time.Second
)

// LoadTestConfig 加载测试配置
//
// 未配置 DAO_ADDRESS 时跳过测试（需要先在本地 hardhat 节点部署 DAO）
func LoadTestConfig(t *testing.T) *services.Config {
	t.Helper()
	cfg, err := services.LoadConfigFromEnv(os.Getenv(EnvFile))
	require.NoError(t, err, "加载配置失败")
	if utils.IsZeroAddress(cfg.DAOAddress) {
		t.Skipf("%s 未设置，跳过集成测试", services.EnvAddress)
	}
	cfg.ReceiptPollInterval = 200 * time.Millisecond
	return cfg
}

// SetupTestClient 创建客户端并确认节点运行、链 ID 一致
func SetupTestClient(t *testing.T, cfg *services.Config) client.Client {
	t.Helper()
	c, err := client.NewClient(cfg.ClientConfig())
	require.NoError(t, err, "创建客户端失败")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := client.ChainID(ctx, c)
	require.NoError(t, err, "节点未运行，请先启动节点: %s", cfg.RPCURL)
	require.Equal(t, cfg.ChainID.String(), id.String(), "链 ID 与配置不一致")
	return c
}

// TeardownTestClient 清理测试客户端
func TeardownTestClient(t *testing.T, c client.Client) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		t.Logf("关闭客户端时出现警告: %v", err)
	}
}

// MemberWallets 从 DAO_MEMBER_KEYS 加载成员钱包，未设置时跳过测试
func MemberWallets(t *testing.T) []wallet.Wallet {
	t.Helper()
	raw := os.Getenv(EnvMemberKeys)
	if strings.TrimSpace(raw) == "" {
		t.Skipf("%s 未设置，跳过签名测试", EnvMemberKeys)
	}
	var wallets []wallet.Wallet
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k == "" {
			continue
		}
		w, err := wallet.NewWalletFromPrivateKey(k)
		require.NoError(t, err, "从私钥创建测试钱包失败")
		wallets = append(wallets, w)
	}
	return wallets
}
