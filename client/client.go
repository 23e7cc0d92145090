package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Client EVM 节点 JSON-RPC 客户端接口
type Client interface {
	// Call 调用 JSON-RPC 方法，返回原始 result
	Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)

	// SendRawTransaction 发送已签名的原始交易
	SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error)

	// Subscribe 订阅合约日志（仅 WebSocket）
	Subscribe(ctx context.Context, filter *EventFilter) (<-chan *Event, error)

	// Close 关闭连接
	Close() error
}

// EventFilter 日志过滤器
type EventFilter struct {
	Addresses []common.Address
	// Topics 按位置匹配，每个位置内为 OR
	Topics [][]common.Hash
}

// Event 合约日志
type Event = ethtypes.Log

// SendTxResult 交易提交结果
type SendTxResult struct {
	TxHash   common.Hash `json:"tx_hash"`
	Accepted bool        `json:"accepted"`
}

// NewClient 创建新的客户端
//
// Protocol 为空时按端点 scheme 推断
func NewClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	protocol := config.Protocol
	if protocol == "" {
		protocol = protocolFromEndpoint(config.Endpoint)
	}

	switch protocol {
	case ProtocolHTTP:
		return NewHTTPClient(config)
	case ProtocolWebSocket:
		return NewWebSocketClient(config)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
}

func protocolFromEndpoint(endpoint string) Protocol {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return ProtocolWebSocket
	}
	return ProtocolHTTP
}

// params eth_subscribe / eth_getLogs 的过滤参数
func (f *EventFilter) params() map[string]interface{} {
	params := map[string]interface{}{}
	if f == nil {
		return params
	}
	if len(f.Addresses) == 1 {
		params["address"] = f.Addresses[0]
	} else if len(f.Addresses) > 1 {
		params["address"] = f.Addresses
	}
	if len(f.Topics) > 0 {
		topics := make([]interface{}, len(f.Topics))
		for i, pos := range f.Topics {
			switch len(pos) {
			case 0:
				topics[i] = nil
			case 1:
				topics[i] = pos[0]
			default:
				topics[i] = pos
			}
		}
		params["topics"] = topics
	}
	return params
}
