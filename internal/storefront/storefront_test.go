package storefront

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-storefront/internal/chain/stub"
	"record-storefront/internal/domain"
	indexstub "record-storefront/internal/indexer/stub"
	"record-storefront/internal/ipfs"
	"record-storefront/internal/record"
)

const (
	addrA = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	addrB = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	// addrA with one letter in the wrong case.
	addrBadChecksum = "0x5fbDB2315678afecb367f032d93F642f64180aa3"
	addrC           = "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"

	publicHost = "records.example.com"
	testCID    = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

var accountA = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

func deployed(addr string) domain.DeployedRecord {
	return domain.DeployedRecord{
		RecordAddress:  addr,
		ArtistName:     "Artist " + addr[2:6],
		CollectionName: "Collection " + addr[2:6],
		Symbol:         "REC",
	}
}

type fakeMetadata struct {
	mu   sync.Mutex
	docs map[string]*domain.RecordMetadata
	urls []string
}

func (f *fakeMetadata) FetchMetadata(_ context.Context, url string) (*domain.RecordMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	doc, ok := f.docs[url]
	if !ok {
		return nil, fmt.Errorf("%w: 404", ipfs.ErrBadStatus)
	}
	return doc, nil
}

type fakeMints struct {
	pending bool
	latest  *domain.MintSubmission
}

func (f *fakeMints) Pending(common.Address, common.Address) bool { return f.pending }

func (f *fakeMints) Latest(context.Context, common.Address, common.Address) (*domain.MintSubmission, error) {
	return f.latest, nil
}

type harness struct {
	idx   *indexstub.Indexer
	rpc   *stub.RPCClient
	meta  *fakeMetadata
	mints *fakeMints
	sf    *Storefront
}

func newHarness(t *testing.T, records ...domain.DeployedRecord) *harness {
	t.Helper()
	h := &harness{
		idx:   indexstub.NewIndexer(records...),
		rpc:   stub.NewRPCClient(),
		meta:  &fakeMetadata{docs: map[string]*domain.RecordMetadata{}},
		mints: &fakeMints{},
	}
	h.sf = New(Options{
		Indexer:  h.idx,
		Reader:   record.NewReader(h.rpc),
		Metadata: h.meta,
		Mints:    h.mints,
	})
	return h
}

func (h *harness) set(t *testing.T, addr string, method string, args []interface{}, values ...interface{}) {
	t.Helper()
	call, err := record.Pack(method, args...)
	require.NoError(t, err)
	result, err := record.PackResult(method, values...)
	require.NoError(t, err)
	h.rpc.SetResult(common.HexToAddress(addr), call, result)
}

func (h *harness) fail(t *testing.T, addr string, method string, args []interface{}, err error) {
	t.Helper()
	call, perr := record.Pack(method, args...)
	require.NoError(t, perr)
	h.rpc.SetError(common.HexToAddress(addr), call, err)
}

func (h *harness) seedSnapshot(t *testing.T, addr string, price, supply, minted int64) {
	t.Helper()
	wei := new(big.Int).Mul(big.NewInt(price), big.NewInt(1e18))
	h.set(t, addr, record.MethodMintPrice, nil, wei)
	h.set(t, addr, record.MethodSupply, nil, big.NewInt(supply))
	h.set(t, addr, record.MethodTokenCount, nil, big.NewInt(minted))
	h.set(t, addr, record.MethodPreviewImageURI, nil, "ipfs://"+testCID)
}

func calledAddresses(rpc *stub.RPCClient) []string {
	var out []string
	for _, c := range rpc.Calls() {
		out = append(out, c.To.Hex())
	}
	return out
}

func TestStore(t *testing.T) {
	var records []domain.DeployedRecord
	for i := 0; i < 30; i++ {
		records = append(records, deployed(common.BigToAddress(big.NewInt(int64(i+1))).Hex()))
	}
	h := newHarness(t, records...)

	view, err := h.sf.Store(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateReady, view.State)
	require.Len(t, view.Cards, 24)
	assert.Equal(t, records[0].RecordAddress, view.Cards[0].Record.RecordAddress)
	assert.Equal(t, CardCatalog, view.Cards[0].Kind)
	assert.Equal(t, "/buy-record/"+records[0].RecordAddress, view.Cards[0].Link())
	assert.Equal(t, 1, h.idx.Queries())
	assert.Empty(t, h.rpc.Calls(), "catalog cards read their images lazily")
}

func TestStore_Empty(t *testing.T) {
	h := newHarness(t)

	view, err := h.sf.Store(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, view.State)
	assert.Equal(t, MessageEmpty, view.Message)
}

func TestStore_IndexerError(t *testing.T) {
	h := newHarness(t, deployed(addrA))
	h.idx.Err = errors.New("connection refused")

	view, err := h.sf.Store(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateError, view.State)
	assert.Equal(t, MessageLoadFailed, view.Message)
}

func TestStore_Cancelled(t *testing.T) {
	h := newHarness(t, deployed(addrA))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.sf.Store(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMyRecords_NoAccount(t *testing.T) {
	h := newHarness(t, deployed(addrA))

	view, err := h.sf.MyRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateConnectWallet, view.State)
	assert.Equal(t, 0, h.idx.Queries())
}

func TestMyRecords_SkipsInvalidChecksum(t *testing.T) {
	h := newHarness(t, deployed(addrA), deployed(addrBadChecksum), deployed(addrC))
	h.set(t, addrA, record.MethodTokensOfOwner, []interface{}{accountA}, []*big.Int{big.NewInt(1), big.NewInt(2)})
	h.set(t, addrC, record.MethodTokensOfOwner, []interface{}{accountA}, []*big.Int{big.NewInt(5)})

	view, err := h.sf.MyRecords(context.Background(), &accountA)
	require.NoError(t, err)

	assert.Equal(t, []string{addrA, addrC}, calledAddresses(h.rpc), "bad checksum address must not be read")
	assert.Equal(t, 1, h.rpc.Batches())

	require.Equal(t, StateReady, view.State)
	var got []string
	for _, c := range view.Cards {
		assert.Equal(t, CardOwned, c.Kind)
		assert.NotEqual(t, addrBadChecksum, c.Record.RecordAddress)
		got = append(got, c.Link())
	}
	assert.Equal(t, []string{
		"/owner/" + addrA + "/1",
		"/owner/" + addrA + "/2",
		"/owner/" + addrC + "/5",
	}, got)
}

func TestMyRecords_LowercaseAddressesAccepted(t *testing.T) {
	lower := strings.ToLower(addrA)
	h := newHarness(t, deployed(lower))
	h.set(t, addrA, record.MethodTokensOfOwner, []interface{}{accountA}, []*big.Int{big.NewInt(3)})

	view, err := h.sf.MyRecords(context.Background(), &accountA)
	require.NoError(t, err)
	require.Len(t, view.Cards, 1)
	assert.Equal(t, "/owner/"+lower+"/3", view.Cards[0].Link())
}

func TestMyRecords_ContractFailureOwnsNothing(t *testing.T) {
	h := newHarness(t, deployed(addrA), deployed(addrC))
	h.set(t, addrA, record.MethodTokensOfOwner, []interface{}{accountA}, []*big.Int{big.NewInt(1)})
	h.fail(t, addrC, record.MethodTokensOfOwner, []interface{}{accountA}, errors.New("execution reverted"))

	view, err := h.sf.MyRecords(context.Background(), &accountA)
	require.NoError(t, err)
	require.Equal(t, StateReady, view.State)
	require.Len(t, view.Cards, 1)
	assert.Equal(t, addrA, view.Cards[0].Record.RecordAddress)
}

func TestMyRecords_NothingOwned(t *testing.T) {
	h := newHarness(t, deployed(addrA))
	h.set(t, addrA, record.MethodTokensOfOwner, []interface{}{accountA}, []*big.Int{})

	view, err := h.sf.MyRecords(context.Background(), &accountA)
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, view.State)
	assert.Equal(t, MessageEmpty, view.Message)
}

func TestCards_ResolveImage(t *testing.T) {
	h := newHarness(t)
	h.set(t, addrA, record.MethodPreviewImageURI, nil, "ipfs://"+testCID+"/cover.png")

	card := CatalogCard(deployed(addrA))
	assert.Equal(t, ipfs.DefaultPublicGateway+testCID+"/cover.png",
		h.sf.Cards().ResolveImage(context.Background(), card, publicHost))
	assert.Equal(t, ipfs.DefaultLocalGateway+testCID+"/cover.png",
		h.sf.Cards().ResolveImage(context.Background(), card, "localhost:3000"))
}

func TestCards_ResolveImage_FallbackOnFailedRead(t *testing.T) {
	h := newHarness(t)
	h.fail(t, addrA, record.MethodPreviewImageURI, nil, errors.New("execution reverted"))

	got := h.sf.Cards().ResolveImage(context.Background(), CatalogCard(deployed(addrA)), publicHost)
	assert.Equal(t, DefaultFallbackImage, got)
}

func TestCards_ResolveImage_Owned(t *testing.T) {
	h := newHarness(t)
	id := big.NewInt(4)
	h.set(t, addrA, record.MethodTokenURI, []interface{}{id}, "ipfs://"+testCID+"/4.json")
	h.meta.docs[ipfs.DefaultPublicGateway+testCID+"/4.json"] = &domain.RecordMetadata{Image: "ipfs://" + testCID + "/4.png"}

	card := OwnedCard(domain.OwnedItem{Record: deployed(addrA), TokenID: id})
	assert.Equal(t, "/card/"+addrA+"/4/image", card.ImagePath())
	assert.Equal(t, ipfs.DefaultPublicGateway+testCID+"/4.png",
		h.sf.Cards().ResolveImage(context.Background(), card, publicHost))

	// No metadata document for token 5.
	missing := OwnedCard(domain.OwnedItem{Record: deployed(addrA), TokenID: big.NewInt(5)})
	assert.Equal(t, DefaultFallbackImage, h.sf.Cards().ResolveImage(context.Background(), missing, publicHost))
}

func TestCard_LinkOverride(t *testing.T) {
	card := CatalogCard(deployed(addrA))
	card.Href = "/somewhere"
	assert.Equal(t, "/somewhere", card.Link())
	assert.Equal(t, "/card/"+addrA+"/image", card.ImagePath())
}

func TestBuyPage_Ready(t *testing.T) {
	h := newHarness(t, deployed(addrA))
	h.seedSnapshot(t, addrA, 1, 100, 42)

	view, err := h.sf.BuyPage(context.Background(), common.HexToAddress(addrA), &accountA, publicHost)
	require.NoError(t, err)

	require.Equal(t, StateReady, view.State)
	assert.Equal(t, "1.0000 ETH", view.Price)
	assert.Equal(t, "42 / 100 minted", view.Minted)
	assert.Equal(t, ipfs.DefaultPublicGateway+testCID, view.PreviewURL)
	require.NotNil(t, view.Control)
	assert.Equal(t, ControlMint, view.Control.State)
	assert.Equal(t, "Mint for 1.0000 ETH", view.Control.Label)
	assert.False(t, view.Control.Disabled)
}

func TestBuyPage_Controls(t *testing.T) {
	tests := []struct {
		name      string
		minted    int64
		account   *common.Address
		pending   bool
		wantState ControlState
		wantLabel string
	}{
		{"sold out without account", 100, nil, false, ControlSoldOut, "All Records Minted"},
		{"sold out with account", 100, &accountA, false, ControlSoldOut, "All Records Minted"},
		{"sold out while pending", 100, &accountA, true, ControlSoldOut, "All Records Minted"},
		{"no account", 10, nil, false, ControlConnectWallet, "Connect Wallet"},
		{"pending mint", 10, &accountA, true, ControlMinting, "Minting..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, deployed(addrA))
			h.seedSnapshot(t, addrA, 2, 100, tt.minted)
			h.mints.pending = tt.pending

			view, err := h.sf.BuyPage(context.Background(), common.HexToAddress(addrA), tt.account, publicHost)
			require.NoError(t, err)
			require.Equal(t, StateReady, view.State)
			assert.Equal(t, tt.wantState, view.Control.State)
			assert.Equal(t, tt.wantLabel, view.Control.Label)
		})
	}
}

func TestBuyPage_NoListing(t *testing.T) {
	incomplete := deployed(addrB)
	incomplete.ArtistName = ""
	h := newHarness(t, incomplete)
	h.seedSnapshot(t, addrA, 1, 10, 1)
	h.seedSnapshot(t, addrB, 1, 10, 1)

	for _, addr := range []string{addrA, addrB} {
		view, err := h.sf.BuyPage(context.Background(), common.HexToAddress(addr), nil, publicHost)
		require.NoError(t, err)
		assert.Equal(t, StateNoListing, view.State, addr)
		assert.Equal(t, MessageNoListing, view.Message)
	}
}

func TestBuyPage_ReadError(t *testing.T) {
	h := newHarness(t, deployed(addrA))
	h.seedSnapshot(t, addrA, 1, 10, 1)
	h.fail(t, addrA, record.MethodSupply, nil, errors.New("execution reverted"))

	view, err := h.sf.BuyPage(context.Background(), common.HexToAddress(addrA), &accountA, publicHost)
	require.NoError(t, err)
	assert.Equal(t, StateError, view.State)
	assert.Contains(t, view.Message, "execution reverted")
	assert.Nil(t, view.Control)
}

func TestBuyPage_LastMint(t *testing.T) {
	h := newHarness(t, deployed(addrA))
	h.seedSnapshot(t, addrA, 1, 10, 1)
	h.mints.latest = &domain.MintSubmission{ID: "abc", Status: domain.MintStatusConfirmed}

	view, err := h.sf.BuyPage(context.Background(), common.HexToAddress(addrA), &accountA, publicHost)
	require.NoError(t, err)
	require.NotNil(t, view.LastMint)
	assert.Equal(t, "abc", view.LastMint.ID)
}

func TestOwnerPage(t *testing.T) {
	h := newHarness(t)
	id := big.NewInt(9)
	h.set(t, addrA, record.MethodTokenURI, []interface{}{id}, "ipfs://"+testCID+"/9.json")
	h.meta.docs[ipfs.DefaultPublicGateway+testCID+"/9.json"] = &domain.RecordMetadata{
		Name:         "Night Drive",
		Artist:       "The Examples",
		Description:  "Debut",
		Image:        "ipfs://" + testCID + "/cover.png",
		AnimationURL: "ipfs://" + testCID + "/player.html",
		Songs: []domain.Song{
			{TrackNumber: 3, Title: "Three", Audio: "ipfs://" + testCID + "/3.mp3"},
			{TrackNumber: 1, Title: "One", Audio: "ipfs://" + testCID + "/1.mp3"},
			{TrackNumber: 2, Title: "Two", Audio: "https://cdn.example.com/2.mp3"},
		},
	}

	view, err := h.sf.OwnerPage(context.Background(), common.HexToAddress(addrA), id, publicHost)
	require.NoError(t, err)

	require.Equal(t, StateReady, view.State)
	assert.Equal(t, "Night Drive", view.Title)
	assert.Equal(t, ipfs.DefaultPublicGateway+testCID+"/cover.png", view.ImageURL)
	assert.Equal(t, ipfs.DefaultPublicGateway+testCID+"/player.html", view.PlayerURL)

	require.Len(t, view.Tracks, 3)
	for i, tr := range view.Tracks {
		assert.Equal(t, i+1, tr.Number)
	}
	assert.Equal(t, ipfs.DefaultPublicGateway+testCID+"/1.mp3", view.Tracks[0].AudioURL)
	assert.Equal(t, "https://cdn.example.com/2.mp3", view.Tracks[1].AudioURL)
}

func TestOwnerPage_Errors(t *testing.T) {
	h := newHarness(t)
	h.fail(t, addrA, record.MethodTokenURI, []interface{}{big.NewInt(1)}, errors.New("invalid token"))
	h.set(t, addrA, record.MethodTokenURI, []interface{}{big.NewInt(2)}, "ipfs://"+testCID+"/2.json")

	view, err := h.sf.OwnerPage(context.Background(), common.HexToAddress(addrA), big.NewInt(1), publicHost)
	require.NoError(t, err)
	assert.Equal(t, StateError, view.State)
	assert.Contains(t, view.Message, "invalid token")

	view, err = h.sf.OwnerPage(context.Background(), common.HexToAddress(addrA), big.NewInt(2), publicHost)
	require.NoError(t, err)
	assert.Equal(t, StateError, view.State)
	assert.Contains(t, view.Message, "fetch metadata")
}

func TestOwnerPage_NoPlayerWithoutAnimation(t *testing.T) {
	h := newHarness(t)
	id := big.NewInt(1)
	h.set(t, addrA, record.MethodTokenURI, []interface{}{id}, "ipfs://"+testCID)
	h.meta.docs[ipfs.DefaultPublicGateway+testCID] = &domain.RecordMetadata{Name: "Solo"}

	view, err := h.sf.OwnerPage(context.Background(), common.HexToAddress(addrA), id, publicHost)
	require.NoError(t, err)
	assert.Equal(t, StateReady, view.State)
	assert.Empty(t, view.PlayerURL)
	assert.Empty(t, view.Tracks)
	assert.Equal(t, DefaultFallbackImage, view.ImageURL)
}
