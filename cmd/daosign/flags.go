package main

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/client"
	"github.com/xdao/dao-sdk-go/services"
	"github.com/xdao/dao-sdk-go/utils"
)

// globalFlags 所有子命令共享的连接与 DAO 参数
type globalFlags struct {
	envFile string
	rpcURL  string
	dao     string
	chainID string
	verbose bool
}

func (g *globalFlags) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.envFile, "env", "", "dotenv file to load")
	f.StringVar(&g.rpcURL, "rpc", "", "node endpoint (overrides DAO_RPC_URL)")
	f.StringVar(&g.dao, "dao", "", "DAO contract address (overrides DAO_ADDRESS)")
	f.StringVar(&g.chainID, "chain-id", "", "chain id used in the digest (overrides DAO_CHAIN_ID)")
	f.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
}

// config 加载配置并应用命令行覆盖
func (g *globalFlags) config() (*services.Config, error) {
	cfg, err := services.LoadConfigFromEnv(g.envFile)
	if err != nil {
		return nil, err
	}
	if g.rpcURL != "" {
		cfg.RPCURL = g.rpcURL
	}
	if g.dao != "" {
		addr, err := utils.ParseAddress(g.dao)
		if err != nil {
			return nil, fmt.Errorf("--dao: %w", err)
		}
		cfg.DAOAddress = addr
	}
	if g.chainID != "" {
		id, ok := new(big.Int).SetString(g.chainID, 0)
		if !ok || id.Sign() <= 0 {
			return nil, fmt.Errorf("--chain-id: invalid value %q", g.chainID)
		}
		cfg.ChainID = id
	}

	if g.verbose {
		cfg.Logger, err = client.NewDevelopmentLogger()
	} else {
		cfg.Logger, err = client.NewProductionLogger()
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, nil
}

// actionFlags 描述一个动作的参数
type actionFlags struct {
	target    string
	data      string
	value     string
	nonce     string
	timestamp string
}

func (a *actionFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&a.target, "target", "", "called contract address")
	f.StringVar(&a.data, "data", "0x", "call data (selector + ABI arguments)")
	f.StringVar(&a.value, "value", "0", "native value forwarded with the call")
	f.StringVar(&a.nonce, "nonce", "0", "caller-chosen nonce")
	f.StringVar(&a.timestamp, "timestamp", "now", "unix seconds, or \"now\"")
	_ = cmd.MarkFlagRequired("target")
}

func (a *actionFlags) action() (action.Action, error) {
	target, err := utils.ParseAddress(a.target)
	if err != nil {
		return action.Action{}, fmt.Errorf("--target: %w", err)
	}
	data, err := hexutil.Decode(withPrefix(a.data))
	if err != nil {
		return action.Action{}, fmt.Errorf("--data: %w", err)
	}
	value, err := parseUint("--value", a.value)
	if err != nil {
		return action.Action{}, err
	}
	nonce, err := parseUint("--nonce", a.nonce)
	if err != nil {
		return action.Action{}, err
	}
	var ts *big.Int
	if a.timestamp == "" || a.timestamp == "now" {
		ts = big.NewInt(time.Now().Unix())
	} else if ts, err = parseUint("--timestamp", a.timestamp); err != nil {
		return action.Action{}, err
	}

	act := action.Action{Target: target, Data: data, Value: value, Nonce: nonce, Timestamp: ts}
	if err := act.Validate(); err != nil {
		return action.Action{}, err
	}
	return act, nil
}

func parseUint(flag, raw string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(raw), 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid unsigned integer %q", flag, raw)
	}
	return n, nil
}

func withPrefix(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
