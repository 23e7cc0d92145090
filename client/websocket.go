package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// subscriptionBuffer 每个订阅的缓冲区大小，满时丢弃并告警
const subscriptionBuffer = 100

// websocketClient WebSocket 客户端实现
type websocketClient struct {
	endpoint string
	conn     *websocket.Conn
	writeMu  sync.Mutex // gorilla 连接只允许一个并发写
	closed   atomic.Bool
	nextID   atomic.Uint64
	timeout  time.Duration
	logger   Logger
	limiter  *rate.Limiter

	muReq    sync.Mutex
	requests map[uint64]chan *jsonRPCResponse
	subs     map[string]chan *Event
	done     chan struct{}
}

// NewWebSocketClient 创建 WebSocket 客户端
func NewWebSocketClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	endpoint := config.Endpoint
	// 将 http:// 或 https:// 转换为 ws:// 或 wss://
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	case !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://"):
		endpoint = "ws://" + endpoint
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if config.TLS != nil {
		tlsCfg, err := buildTLSConfig(config.TLS)
		if err != nil {
			return nil, err
		}
		dialer.TLSClientConfig = tlsCfg
	}

	conn, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		return nil, NewNetworkError(fmt.Errorf("dial websocket: %w", err))
	}

	c := &websocketClient{
		endpoint: endpoint,
		conn:     conn,
		timeout:  config.timeout(),
		logger:   config.logger(),
		requests: make(map[uint64]chan *jsonRPCResponse),
		subs:     make(map[string]chan *Event),
		done:     make(chan struct{}),
		limiter:  newLimiter(config),
	}

	// 启动消息读取循环
	go c.readLoop()

	return c, nil
}

// readLoop 消息读取循环：响应按 ID 投递，eth_subscription 通知按订阅 ID 投递
func (c *websocketClient) readLoop() {
	defer c.shutdown()

	for {
		var msg jsonRPCResponse
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !c.closed.Load() {
				c.logger.Warn("websocket read failed", "endpoint", c.endpoint, "error", err)
			}
			return
		}

		if msg.Method == "eth_subscription" && msg.Params != nil {
			c.deliver(msg.Params)
			continue
		}
		if msg.ID == nil {
			continue
		}

		c.muReq.Lock()
		ch, exists := c.requests[*msg.ID]
		delete(c.requests, *msg.ID)
		c.muReq.Unlock()

		if exists {
			m := msg
			ch <- &m
		}
	}
}

func (c *websocketClient) deliver(p *subscriptionParams) {
	var ev Event
	if err := json.Unmarshal(p.Result, &ev); err != nil {
		c.logger.Warn("invalid subscription payload", "subscription", p.Subscription, "error", err)
		return
	}

	c.muReq.Lock()
	defer c.muReq.Unlock()
	ch, ok := c.subs[p.Subscription]
	if !ok {
		return
	}
	select {
	case ch <- &ev:
	default:
		c.logger.Warn("subscription buffer full, dropping event", "subscription", p.Subscription)
	}
}

// shutdown 关闭所有等待中的请求与订阅
func (c *websocketClient) shutdown() {
	c.closed.Store(true)
	c.muReq.Lock()
	defer c.muReq.Unlock()
	for id, ch := range c.requests {
		close(ch)
		delete(c.requests, id)
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	close(c.done)
}

// Call 调用 JSON-RPC 方法
func (c *websocketClient) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, NewClosedError()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if params == nil {
		params = []interface{}{}
	}

	reqID := c.nextID.Add(1)
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      reqID,
	}

	// 创建响应通道
	respCh := make(chan *jsonRPCResponse, 1)
	c.muReq.Lock()
	if c.closed.Load() {
		c.muReq.Unlock()
		return nil, NewClosedError()
	}
	c.requests[reqID] = respCh
	c.muReq.Unlock()

	forget := func() {
		c.muReq.Lock()
		delete(c.requests, reqID)
		c.muReq.Unlock()
	}

	// 发送请求
	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		forget()
		return nil, NewNetworkError(fmt.Errorf("write request: %w", err))
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	// 等待响应
	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, NewClosedError()
		}
		if resp.Error != nil {
			return nil, NewRPCError(resp.Error.Code, resp.Error.Message, resp.Error.Data)
		}
		return resp.Result, nil

	case <-ctx.Done():
		forget()
		return nil, ctx.Err()

	case <-timer.C:
		forget()
		return nil, NewTimeoutError()
	}
}

// SendRawTransaction 发送已签名的原始交易
func (c *websocketClient) SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error) {
	return sendRawTransaction(ctx, c, signedTxHex)
}

// Subscribe 通过 eth_subscribe("logs") 订阅合约日志
//
// ctx 结束或连接关闭时通道被关闭
func (c *websocketClient) Subscribe(ctx context.Context, filter *EventFilter) (<-chan *Event, error) {
	raw, err := c.Call(ctx, "eth_subscribe", "logs", filter.params())
	if err != nil {
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}
	var subID string
	if err := json.Unmarshal(raw, &subID); err != nil || subID == "" {
		return nil, NewInvalidResponseError("missing subscription ID")
	}

	eventCh := make(chan *Event, subscriptionBuffer)
	c.muReq.Lock()
	if c.closed.Load() {
		c.muReq.Unlock()
		close(eventCh)
		return eventCh, nil
	}
	c.subs[subID] = eventCh
	c.muReq.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
			return
		}

		c.muReq.Lock()
		ch, ok := c.subs[subID]
		delete(c.subs, subID)
		c.muReq.Unlock()
		if !ok {
			return
		}
		close(ch)

		unsubCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if _, err := c.Call(unsubCtx, "eth_unsubscribe", subID); err != nil {
			c.logger.Debug("eth_unsubscribe failed", "subscription", subID, "error", err)
		}
	}()

	return eventCh, nil
}

// Close 关闭连接
func (c *websocketClient) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		return c.conn.Close()
	}
	return nil
}
