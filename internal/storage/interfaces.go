package storage

import (
	"context"

	"record-storefront/internal/domain"
)

// MintUpdate is a status transition applied to a stored submission.
type MintUpdate struct {
	Status      domain.MintStatus
	TxHash      string // kept unchanged when empty
	Error       string
	BlockNumber uint64
	UpdatedAt   int64 // ms
}

// MintStore provides access to mint_submissions storage.
type MintStore interface {
	// Insert adds a new submission. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, m *domain.MintSubmission) error

	// UpdateStatus applies u to the submission. Returns ErrNotFound if not exists.
	UpdateStatus(ctx context.Context, id string, u MintUpdate) error

	// GetByID retrieves a submission by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.MintSubmission, error)

	// LatestFor retrieves the newest submission for (record, account).
	// Returns ErrNotFound if none exists.
	LatestFor(ctx context.Context, record, account string) (*domain.MintSubmission, error)

	// ListByStatus retrieves submissions in status, ordered by created_at ASC.
	ListByStatus(ctx context.Context, status domain.MintStatus) ([]*domain.MintSubmission, error)
}

// MintEventStore provides access to append-only mint_events storage.
type MintEventStore interface {
	// InsertBulk adds multiple events. Fails entire batch on duplicate (submission_id, status).
	InsertBulk(ctx context.Context, events []*domain.MintEvent) error

	// GetByRecord retrieves all events for a record, ordered by timestamp ASC.
	GetByRecord(ctx context.Context, record string) ([]*domain.MintEvent, error)

	// GetBySubmission retrieves all events of one submission, ordered by timestamp ASC.
	GetBySubmission(ctx context.Context, submissionID string) ([]*domain.MintEvent, error)
}
