package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"record-storefront/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// blockTag is the block all reads are evaluated against.
const blockTag = "latest"

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

var _ RPCClient = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Ethereum JSON-RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

type callObject struct {
	From  *common.Address `json:"from,omitempty"`
	To    common.Address  `json:"to"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data"`
}

// post sends body with retries and exponential backoff and returns the raw response.
// Transport errors, 429 and non-200 statuses are retried.
func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// call performs a single JSON-RPC call. RPC errors are returned without retry.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRPCCall(method, time.Since(start).Seconds(), err)
	}()

	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		return err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// Call executes eth_call against the latest block.
func (c *HTTPClient) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	var out hexutil.Bytes
	params := []interface{}{callObject{To: msg.To, Data: msg.Data}, blockTag}
	if err := c.call(ctx, "eth_call", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchCall sends one JSON-RPC batch carrying an eth_call per message.
// Results are returned in message order.
func (c *HTTPClient) BatchCall(ctx context.Context, msgs []CallMsg) (results []CallResult, err error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		observability.RecordRPCCall("eth_call_batch", time.Since(start).Seconds(), err)
	}()

	reqs := make([]rpcRequest, len(msgs))
	index := make(map[uint64]int, len(msgs))
	for i, msg := range msgs {
		id := c.requestID.Add(1)
		index[id] = i
		reqs[i] = rpcRequest{
			JSONRPC: "2.0",
			ID:      id,
			Method:  "eth_call",
			Params:  []interface{}{callObject{To: msg.To, Data: msg.Data}, blockTag},
		}
	}

	body, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var resps []rpcResponse
	if err := json.Unmarshal(respBody, &resps); err != nil {
		// Nodes that reject a whole batch answer with a single error object.
		var single rpcResponse
		if jerr := json.Unmarshal(respBody, &single); jerr == nil && single.Error != nil {
			return nil, single.Error
		}
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}

	results = make([]CallResult, len(msgs))
	seen := make([]bool, len(msgs))
	for _, r := range resps {
		i, ok := index[r.ID]
		if !ok {
			continue
		}
		seen[i] = true
		if r.Error != nil {
			results[i].Err = r.Error
			continue
		}
		var out hexutil.Bytes
		if err := json.Unmarshal(r.Result, &out); err != nil {
			results[i].Err = fmt.Errorf("unmarshal result: %w", err)
			continue
		}
		results[i].Data = out
	}
	for i := range results {
		if !seen[i] {
			results[i].Err = errors.New("missing response in batch")
		}
	}
	return results, nil
}

// SendTransaction submits tx through eth_sendTransaction; the wallet signs it.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx TxArgs) (common.Hash, error) {
	from := tx.From
	obj := callObject{From: &from, To: tx.To, Data: tx.Data}
	if tx.Value != nil {
		obj.Value = (*hexutil.Big)(tx.Value)
	}

	var hash common.Hash
	if err := c.call(ctx, "eth_sendTransaction", []interface{}{obj}, &hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

type receiptResult struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     hexutil.Uint64 `json:"blockNumber"`
	Status          hexutil.Uint64 `json:"status"`
}

// TransactionReceipt returns the receipt for hash, or nil if it is still pending.
func (c *HTTPClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var result *receiptResult
	if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return &Receipt{
		TxHash:      result.TransactionHash,
		BlockNumber: uint64(result.BlockNumber),
		Status:      uint64(result.Status),
	}, nil
}

// BlockNumber returns the latest block number.
func (c *HTTPClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}
