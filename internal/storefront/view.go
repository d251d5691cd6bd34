package storefront

// State is the render state of a view.
type State string

// Views are built once every fetch has settled; while a card image is still
// resolving, the tile shows the CSS loading placeholder.
const (
	StateError State = "error"
	StateEmpty State = "empty"
	StateReady State = "ready"

	// StateConnectWallet is shown for account views without a connected account.
	StateConnectWallet State = "connect_wallet"
	// StateNoListing is shown on the buy page for records the indexer does not list.
	StateNoListing State = "no_listing"
)

// Fixed user-facing messages.
const (
	MessageEmpty         = "No records found"
	MessageLoadFailed    = "Something went wrong loading records."
	MessageConnectWallet = "Connect your wallet to see your records."
	MessageNoListing     = "This record is not listed."
)

// Page names used in metrics.
const (
	PageStore     = "store"
	PageMyRecords = "my_records"
	PageBuy       = "buy"
	PageOwner     = "owner"
)

// CollectionView is the model of the catalog and My Records pages.
type CollectionView struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
	Cards   []Card `json:"cards"`
}

func collectionOf(cards []Card) CollectionView {
	if len(cards) == 0 {
		return CollectionView{State: StateEmpty, Message: MessageEmpty, Cards: []Card{}}
	}
	return CollectionView{State: StateReady, Cards: cards}
}

func collectionError() CollectionView {
	return CollectionView{State: StateError, Message: MessageLoadFailed, Cards: []Card{}}
}
