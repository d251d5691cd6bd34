package clickhouse

import (
	"context"
	"fmt"

	"record-storefront/internal/domain"
	"record-storefront/internal/storage"
)

// MintEventStore implements storage.MintEventStore using ClickHouse.
type MintEventStore struct {
	conn *Conn
}

// NewMintEventStore creates a new MintEventStore.
func NewMintEventStore(conn *Conn) *MintEventStore {
	return &MintEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MintEventStore = (*MintEventStore)(nil)

// InsertBulk adds multiple events. Fails entire batch on duplicate (submission_id, status).
// MergeTree does not enforce uniqueness, so duplicates are checked before the insert.
func (s *MintEventStore) InsertBulk(ctx context.Context, events []*domain.MintEvent) error {
	if len(events) == 0 {
		return nil
	}

	type key struct {
		submissionID string
		status       domain.MintStatus
	}
	seen := make(map[key]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.SubmissionID == "" || e.Status == "" {
			return storage.ErrInvalidInput
		}
		k := key{e.SubmissionID, e.Status}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, e := range events {
		exists, err := s.exists(ctx, e.SubmissionID, e.Status)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO mint_events (
			submission_id, record_address, account, status, tx_hash, block_number, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.SubmissionID, e.RecordAddress, e.Account, string(e.Status),
			e.TxHash, e.BlockNumber, uint64(e.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRecord retrieves all events for a record, ordered by timestamp ASC.
func (s *MintEventStore) GetByRecord(ctx context.Context, record string) ([]*domain.MintEvent, error) {
	query := `
		SELECT submission_id, record_address, account, status, tx_hash, block_number, timestamp_ms
		FROM mint_events
		WHERE record_address = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, record)
	if err != nil {
		return nil, fmt.Errorf("query by record: %w", err)
	}
	defer rows.Close()

	return scanMintEvents(rows)
}

// GetBySubmission retrieves all events of one submission, ordered by timestamp ASC.
func (s *MintEventStore) GetBySubmission(ctx context.Context, submissionID string) ([]*domain.MintEvent, error) {
	query := `
		SELECT submission_id, record_address, account, status, tx_hash, block_number, timestamp_ms
		FROM mint_events
		WHERE submission_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query by submission: %w", err)
	}
	defer rows.Close()

	return scanMintEvents(rows)
}

func (s *MintEventStore) exists(ctx context.Context, submissionID string, status domain.MintStatus) (bool, error) {
	query := `
		SELECT count(*) FROM mint_events
		WHERE submission_id = ? AND status = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, submissionID, string(status)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanMintEvents(rows chRows) ([]*domain.MintEvent, error) {
	var events []*domain.MintEvent

	for rows.Next() {
		var e domain.MintEvent
		var status string
		var timestampMs uint64

		err := rows.Scan(
			&e.SubmissionID, &e.RecordAddress, &e.Account, &status,
			&e.TxHash, &e.BlockNumber, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan mint event row: %w", err)
		}

		e.Status = domain.MintStatus(status)
		e.TimestampMs = int64(timestampMs)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint event rows: %w", err)
	}

	return events, nil
}
