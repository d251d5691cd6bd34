package domain

import "math/big"

// MintStatus is the lifecycle state of a mint submission.
type MintStatus string

const (
	MintStatusAwaitingSignature MintStatus = "awaiting_signature"
	MintStatusSubmitted         MintStatus = "submitted"
	MintStatusConfirmed         MintStatus = "confirmed"
	MintStatusFailed            MintStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s MintStatus) Terminal() bool {
	return s == MintStatusConfirmed || s == MintStatusFailed
}

// MintSubmission is one attempt to mint tokens of a record.
// Corresponds to mint_submissions table in PostgreSQL.
type MintSubmission struct {
	ID            string     `json:"id"`            // deterministic submission id
	RecordAddress string     `json:"recordAddress"` // checksummed record contract
	Account       string     `json:"account"`       // checksummed minting account
	Quantity      int64      `json:"quantity"`      // tokens requested
	Value         *big.Int   `json:"value"`         // wei sent with the transaction
	TxHash        string     `json:"txHash,omitempty"`
	Status        MintStatus `json:"status"`
	Error         string     `json:"error,omitempty"`
	BlockNumber   uint64     `json:"blockNumber,omitempty"` // inclusion block once confirmed or failed
	CreatedAt     int64      `json:"createdAt"`             // ms
	UpdatedAt     int64      `json:"updatedAt"`             // ms
}

// MintEvent is one status transition of a submission.
// Corresponds to mint_events table in ClickHouse.
type MintEvent struct {
	SubmissionID  string
	RecordAddress string
	Account       string
	Status        MintStatus
	TxHash        string
	BlockNumber   uint64
	TimestampMs   int64
}
