package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"record-storefront/internal/logging"
	"record-storefront/internal/observability"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
	// Log receives connection and protocol errors.
	Log *logrus.Entry
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// WSClient implements HeadSubscriber using gorilla/websocket.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	log      *logrus.Entry

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to channel
	subs   map[string]chan Head
	subsMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan string
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

var _ HeadSubscriber = (*WSClient)(nil)

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	defaults := DefaultWSConfig()
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = defaults.SubscribeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}

	c := &WSClient{
		endpoint:    endpoint,
		config:      cfg,
		log:         log,
		subs:        make(map[string]chan Head),
		pendingSubs: make(map[uint64]chan string),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeNewHeads subscribes to new block headers. The returned channel is
// closed when the client is closed.
func (c *WSClient) SubscribeNewHeads(ctx context.Context) (<-chan Head, error) {
	subID, err := c.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan Head, 64)
	c.subsMu.Lock()
	c.subs[subID] = ch
	c.subsMu.Unlock()

	return ch, nil
}

// subscribe sends eth_subscribe and waits for the subscription id.
func (c *WSClient) subscribe(ctx context.Context) (string, error) {
	if c.closed.Load() {
		return "", fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "eth_subscribe",
		Params:  []interface{}{"newHeads"},
	}

	confirmCh := make(chan string, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	dropPending := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		dropPending()
		return "", fmt.Errorf("not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		dropPending()
		return "", fmt.Errorf("write subscribe: %w", err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case subID, ok := <-confirmCh:
		if !ok {
			return "", fmt.Errorf("client closed")
		}
		return subID, nil
	case <-timer.C:
		dropPending()
		return "", fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return "", fmt.Errorf("client closed")
	case <-ctx.Done():
		dropPending()
		return "", ctx.Err()
	}
}

// Close closes the WebSocket connection and all subscription channels.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingSubsMu.Lock()
	for id, ch := range c.pendingSubs {
		close(ch)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	return nil
}

func (c *WSClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				c.log.WithError(err).WithField("delay", reconnectDelay).Warn("websocket read failed, reconnecting")
				c.wg.Add(1)
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

// reconnect redials after delay and resubscribes every active subscription.
func (c *WSClient) reconnect(delay time.Duration) {
	defer c.wg.Done()
	defer c.reconnecting.Store(false)

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.log.WithError(err).Warn("websocket reconnect failed")
		return
	}

	c.resubscribeAll()
}

func (c *WSClient) resubscribeAll() {
	c.subsMu.RLock()
	channels := make(map[string]chan Head, len(c.subs))
	for id, ch := range c.subs {
		channels[id] = ch
	}
	c.subsMu.RUnlock()

	for oldSubID, ch := range channels {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newSubID, err := c.subscribe(ctx)
		cancel()

		if err != nil {
			c.log.WithError(err).WithField("subscription", oldSubID).Warn("resubscribe failed")
			continue
		}

		c.subsMu.Lock()
		delete(c.subs, oldSubID)
		c.subs[newSubID] = ch
		c.subsMu.Unlock()
	}
}

func (c *WSClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.log.WithError(err).Debug("ignoring malformed websocket message")
		return
	}

	switch {
	case msg.Method == "eth_subscription" && msg.Params != nil:
		c.handleHead(msg.Params)
	case msg.Error != nil:
		c.log.WithFields(logrus.Fields{
			"code": msg.Error.Code,
			"id":   msg.ID,
		}).Warn(msg.Error.Message)
	case msg.ID != 0 && len(msg.Result) > 0:
		var subID string
		if err := json.Unmarshal(msg.Result, &subID); err != nil {
			return
		}
		c.pendingSubsMu.Lock()
		ch, ok := c.pendingSubs[msg.ID]
		if ok {
			delete(c.pendingSubs, msg.ID)
		}
		c.pendingSubsMu.Unlock()
		if ok {
			ch <- subID
		}
	}
}

func (c *WSClient) handleHead(params *wsNotificationParams) {
	var header wsHeader
	if err := json.Unmarshal(params.Result, &header); err != nil {
		c.log.WithError(err).Debug("ignoring malformed head")
		return
	}

	head := Head{
		Number:    uint64(header.Number),
		Hash:      header.Hash,
		Timestamp: uint64(header.Timestamp),
	}
	observability.UpdateHighestBlock(head.Number)

	c.subsMu.RLock()
	ch, ok := c.subs[params.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		return
	}

	// Heads supersede each other, so a slow consumer only misses intermediate ones.
	select {
	case ch <- head:
	case <-c.done:
	default:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsMessage struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      uint64                `json:"id"`
	Method  string                `json:"method"`
	Result  json.RawMessage       `json:"result"`
	Error   *RPCError             `json:"error"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type wsHeader struct {
	Number    hexutil.Uint64 `json:"number"`
	Hash      string         `json:"hash"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}
