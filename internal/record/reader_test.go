package record

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-storefront/internal/chain/stub"
)

var (
	recordA = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	recordB = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	owner   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func mustPack(t *testing.T, method string, args ...interface{}) []byte {
	t.Helper()
	data, err := Pack(method, args...)
	require.NoError(t, err)
	return data
}

func mustResult(t *testing.T, method string, values ...interface{}) []byte {
	t.Helper()
	data, err := PackResult(method, values...)
	require.NoError(t, err)
	return data
}

func seedSnapshot(t *testing.T, rpc *stub.RPCClient, addr common.Address) {
	rpc.SetResult(addr, mustPack(t, MethodMintPrice), mustResult(t, MethodMintPrice, big.NewInt(1e18)))
	rpc.SetResult(addr, mustPack(t, MethodSupply), mustResult(t, MethodSupply, big.NewInt(100)))
	rpc.SetResult(addr, mustPack(t, MethodTokenCount), mustResult(t, MethodTokenCount, big.NewInt(42)))
	rpc.SetResult(addr, mustPack(t, MethodPreviewImageURI), mustResult(t, MethodPreviewImageURI, "ipfs://QmPreview"))
}

func TestReader_Snapshot(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedSnapshot(t, rpc, recordA)

	snap, err := NewReader(rpc).Snapshot(context.Background(), recordA)
	require.NoError(t, err)

	assert.Equal(t, "1000000000000000000", snap.MintPrice.String())
	assert.Equal(t, int64(100), snap.Supply.Int64())
	assert.Equal(t, int64(42), snap.TokenCount.Int64())
	assert.Equal(t, "ipfs://QmPreview", snap.PreviewImageURI)
	assert.Len(t, rpc.Calls(), 4)
}

func TestReader_Snapshot_OneReadFails(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedSnapshot(t, rpc, recordA)
	rpc.SetError(recordA, mustPack(t, MethodSupply), errors.New("execution reverted"))

	_, err := NewReader(rpc).Snapshot(context.Background(), recordA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
}

func TestReader_EmptyResult(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetResult(recordA, mustPack(t, MethodMintPrice), []byte{})

	_, err := NewReader(rpc).MintPrice(context.Background(), recordA)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestReader_TokenURI(t *testing.T) {
	rpc := stub.NewRPCClient()
	id := big.NewInt(7)
	rpc.SetResult(recordA, mustPack(t, MethodTokenURI, id), mustResult(t, MethodTokenURI, "ipfs://QmMeta/7.json"))

	uri, err := NewReader(rpc).TokenURI(context.Background(), recordA, id)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://QmMeta/7.json", uri)
}

func TestReader_TokensOfOwnerBatch(t *testing.T) {
	rpc := stub.NewRPCClient()
	call := mustPack(t, MethodTokensOfOwner, owner)
	rpc.SetResult(recordA, call, mustResult(t, MethodTokensOfOwner, []*big.Int{big.NewInt(1), big.NewInt(5)}))
	rpc.SetError(recordB, call, errors.New("execution reverted"))

	holdings, err := NewReader(rpc).TokensOfOwnerBatch(context.Background(), []common.Address{recordA, recordB}, owner)
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.Equal(t, 1, rpc.Batches())
	assert.Equal(t, recordA, holdings[0].Record)
	require.NoError(t, holdings[0].Err)
	require.Len(t, holdings[0].TokenIDs, 2)
	assert.Equal(t, int64(5), holdings[0].TokenIDs[1].Int64())
	assert.Error(t, holdings[1].Err)
}

func TestReader_TokensOfOwnerBatch_Empty(t *testing.T) {
	rpc := stub.NewRPCClient()
	holdings, err := NewReader(rpc).TokensOfOwnerBatch(context.Background(), nil, owner)
	require.NoError(t, err)
	assert.Nil(t, holdings)
	assert.Equal(t, 0, rpc.Batches())
}

func TestPackMint(t *testing.T) {
	data, err := PackMint(big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, data, 4+32)
	assert.Equal(t, byte(1), data[len(data)-1])
}
