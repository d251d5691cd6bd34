package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RPCClient defines the Ethereum JSON-RPC surface used by the storefront.
type RPCClient interface {
	// Call executes a read-only contract call against the latest block.
	Call(ctx context.Context, msg CallMsg) ([]byte, error)

	// BatchCall executes several read-only calls in one JSON-RPC batch request.
	// A failure of one call is reported in its CallResult; the returned error
	// covers transport failures of the whole batch.
	BatchCall(ctx context.Context, msgs []CallMsg) ([]CallResult, error)

	// SendTransaction asks the connected wallet to sign and submit tx.
	SendTransaction(ctx context.Context, tx TxArgs) (common.Hash, error)

	// TransactionReceipt returns the receipt for hash, or nil while it is pending.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)

	// BlockNumber returns the latest block number.
	BlockNumber(ctx context.Context) (uint64, error)
}

// CallMsg is a read-only contract call.
type CallMsg struct {
	To   common.Address
	Data []byte
}

// CallResult is the outcome of one call inside a batch.
type CallResult struct {
	Data []byte
	Err  error
}

// TxArgs are the fields of a transaction submitted for signing.
type TxArgs struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Receipt is the subset of a transaction receipt the mint watcher needs.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == 1
}
