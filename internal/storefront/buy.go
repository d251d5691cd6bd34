package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"record-storefront/internal/domain"
	"record-storefront/internal/format"
	"record-storefront/internal/indexer"
	"record-storefront/internal/observability"
)

// ControlState is the state of the buy page mint button.
type ControlState string

const (
	ControlSoldOut       ControlState = "sold_out"
	ControlConnectWallet ControlState = "connect_wallet"
	ControlMint          ControlState = "mint"
	ControlMinting       ControlState = "minting"
)

// Control is the buy page mint button.
type Control struct {
	State    ControlState `json:"state"`
	Label    string       `json:"label"`
	Disabled bool         `json:"disabled"`
}

// BuyView is the model of the buy page.
type BuyView struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`

	Record     *domain.DeployedRecord `json:"record,omitempty"`
	PreviewURL string                 `json:"previewUrl,omitempty"`
	Price      string                 `json:"price,omitempty"`
	Minted     string                 `json:"minted,omitempty"`
	Control    *Control               `json:"control,omitempty"`
	// LastMint is the account's most recent submission for this record.
	LastMint *domain.MintSubmission `json:"lastMint,omitempty"`
}

// BuyPage builds the buy page of the record at address for account (nil when
// no wallet is connected). The indexer lookup and the contract reads run
// concurrently; a missing listing takes precedence over read errors.
func (s *Storefront) BuyPage(ctx context.Context, address common.Address, account *common.Address, host string) (BuyView, error) {
	var (
		listing          *domain.DeployedRecord
		snap             *domain.ContractSnapshot
		listErr, snapErr error
		g                errgroup.Group
	)
	g.Go(func() error {
		listing, listErr = s.indexer.RecordByAddress(ctx, address.Hex())
		return nil
	})
	g.Go(func() error {
		snap, snapErr = s.reader.Snapshot(ctx, address)
		return nil
	})
	_ = g.Wait()

	if ctx.Err() != nil {
		return BuyView{}, ctx.Err()
	}

	view := s.buyView(ctx, address, account, host, listing, listErr, snap, snapErr)
	observability.RecordPageRender(PageBuy, string(view.State))
	return view, nil
}

func (s *Storefront) buyView(
	ctx context.Context,
	address common.Address,
	account *common.Address,
	host string,
	listing *domain.DeployedRecord,
	listErr error,
	snap *domain.ContractSnapshot,
	snapErr error,
) BuyView {
	log := s.log.WithField("record", address.Hex())

	switch {
	case errors.Is(listErr, indexer.ErrNotFound), listErr == nil && !listing.Complete():
		return BuyView{State: StateNoListing, Message: MessageNoListing}
	case listErr != nil:
		log.WithError(listErr).Error("indexer lookup failed")
		return BuyView{State: StateError, Message: listErr.Error()}
	case snapErr != nil:
		log.WithError(snapErr).Error("contract reads failed")
		return BuyView{State: StateError, Message: snapErr.Error()}
	case snap.MintPrice == nil || snap.Supply == nil || snap.TokenCount == nil:
		return BuyView{State: StateError, Message: "incomplete contract state"}
	}

	price := format.FormatWei(snap.MintPrice)
	view := BuyView{
		State:      StateReady,
		Record:     listing,
		PreviewURL: s.cards.Fallback(),
		Price:      price,
		Minted:     fmt.Sprintf("%s / %s minted", snap.TokenCount, snap.Supply),
	}

	if snap.PreviewImageURI != "" {
		view.PreviewURL = s.resolver.Resolve(snap.PreviewImageURI, host)
	}

	var pending bool
	if account != nil && s.mints != nil {
		pending = s.mints.Pending(address, *account)
		latest, err := s.mints.Latest(ctx, address, *account)
		if err != nil {
			log.WithError(err).Warn("load latest mint")
		}
		view.LastMint = latest
	}
	view.Control = mintControl(snap, account != nil, pending, price)
	return view
}

// mintControl picks the button state. Sold out wins over every other state.
func mintControl(snap *domain.ContractSnapshot, connected, pending bool, price string) *Control {
	switch {
	case snap.SoldOut():
		return &Control{State: ControlSoldOut, Label: "All Records Minted", Disabled: true}
	case !connected:
		return &Control{State: ControlConnectWallet, Label: "Connect Wallet"}
	case pending:
		return &Control{State: ControlMinting, Label: "Minting...", Disabled: true}
	default:
		return &Control{State: ControlMint, Label: "Mint for " + price}
	}
}
