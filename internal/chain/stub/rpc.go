package stub

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"record-storefront/internal/chain"
)

// ErrNoResult is returned for calls that have no configured result.
var ErrNoResult = errors.New("stub: no result configured")

// RPCClient implements chain.RPCClient for testing.
// Results are keyed by contract address and calldata.
type RPCClient struct {
	mu sync.Mutex

	results  map[string][]byte
	errs     map[string]error
	receipts map[common.Hash]*chain.Receipt

	// Block is returned by BlockNumber.
	Block uint64
	// SendErr makes SendTransaction fail.
	SendErr error
	// OnSend, if set, runs before SendTransaction returns.
	OnSend func(ctx context.Context, tx chain.TxArgs)

	calls   []chain.CallMsg
	batches int
	sent    []chain.TxArgs
}

var _ chain.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		results:  make(map[string][]byte),
		errs:     make(map[string]error),
		receipts: make(map[common.Hash]*chain.Receipt),
	}
}

func key(to common.Address, data []byte) string {
	return strings.ToLower(to.Hex()) + ":" + hexutil.Encode(data)
}

// SetResult configures the return data for a call.
func (c *RPCClient) SetResult(to common.Address, data, result []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key(to, data)] = result
	delete(c.errs, key(to, data))
}

// SetError makes a call fail with err.
func (c *RPCClient) SetError(to common.Address, data []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[key(to, data)] = err
}

// SetReceipt makes hash resolve to receipt.
func (c *RPCClient) SetReceipt(hash common.Hash, receipt *chain.Receipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[hash] = receipt
}

func (c *RPCClient) lookup(msg chain.CallMsg) ([]byte, error) {
	k := key(msg.To, msg.Data)
	if err, ok := c.errs[k]; ok {
		return nil, err
	}
	if res, ok := c.results[k]; ok {
		return res, nil
	}
	return nil, ErrNoResult
}

// Call returns the configured result for msg.
func (c *RPCClient) Call(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, msg)
	return c.lookup(msg)
}

// BatchCall returns configured results for each message.
func (c *RPCClient) BatchCall(ctx context.Context, msgs []chain.CallMsg) ([]chain.CallResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	out := make([]chain.CallResult, len(msgs))
	for i, msg := range msgs {
		c.calls = append(c.calls, msg)
		out[i].Data, out[i].Err = c.lookup(msg)
	}
	return out, nil
}

// SendTransaction records tx and returns a hash derived from the send count.
func (c *RPCClient) SendTransaction(ctx context.Context, tx chain.TxArgs) (common.Hash, error) {
	if c.OnSend != nil {
		c.OnSend(ctx, tx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return common.Hash{}, c.SendErr
	}
	c.sent = append(c.sent, tx)
	return common.BigToHash(big.NewInt(int64(len(c.sent)))), nil
}

// TransactionReceipt returns the configured receipt or nil if pending.
func (c *RPCClient) TransactionReceipt(_ context.Context, hash common.Hash) (*chain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipts[hash], nil
}

// BlockNumber returns Block.
func (c *RPCClient) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Block, nil
}

// Calls returns every call made so far, including batched ones.
func (c *RPCClient) Calls() []chain.CallMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chain.CallMsg, len(c.calls))
	copy(out, c.calls)
	return out
}

// Batches returns the number of batch requests made.
func (c *RPCClient) Batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

// Sent returns every submitted transaction.
func (c *RPCClient) Sent() []chain.TxArgs {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chain.TxArgs, len(c.sent))
	copy(out, c.sent)
	return out
}
