package domain

import "math/big"

// DeployedRecord is a record collection deployment as served by the indexer.
// Values are immutable once read; they drive display and further on-chain reads.
type DeployedRecord struct {
	RecordAddress    string `json:"recordAddress"` // record contract address
	ArtistName       string `json:"artistName"`
	CollectionName   string `json:"collectionName"`
	Symbol           string `json:"symbol"`
	FactoryAddress   string `json:"factoryAddress,omitempty"`  // factory that deployed the record
	TransactionHash  string `json:"transactionHash,omitempty"` // deploying transaction
	BlockNumber      uint64 `json:"blockNumber"`
	TransactionIndex uint64 `json:"transactionIndex"`
}

// Complete reports whether the record carries everything a listing needs.
func (r *DeployedRecord) Complete() bool {
	return r != nil &&
		r.RecordAddress != "" &&
		r.ArtistName != "" &&
		r.CollectionName != ""
}

// ContractSnapshot holds live on-chain values of one record contract.
// All integers are kept in smallest currency units.
type ContractSnapshot struct {
	MintPrice       *big.Int // wei
	Supply          *big.Int // supply cap
	TokenCount      *big.Int // minted so far
	PreviewImageURI string
}

// SoldOut reports whether every token of the supply has been minted.
func (s *ContractSnapshot) SoldOut() bool {
	if s == nil || s.Supply == nil || s.TokenCount == nil {
		return false
	}
	return s.TokenCount.Cmp(s.Supply) >= 0
}

// OwnedItem is one token of a record held by the connected account.
type OwnedItem struct {
	Record  DeployedRecord
	TokenID *big.Int
}
