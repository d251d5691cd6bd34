package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"record-storefront/internal/domain"
	"record-storefront/internal/storage"
)

// MintStore implements storage.MintStore using PostgreSQL.
type MintStore struct {
	pool *Pool
}

// NewMintStore creates a new MintStore.
func NewMintStore(pool *Pool) *MintStore {
	return &MintStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MintStore = (*MintStore)(nil)

const mintColumns = `
	id, record_address, account, quantity, value_wei::text,
	tx_hash, status, error, block_number, created_at, updated_at
`

// Insert adds a new submission. Returns ErrDuplicateKey if id exists.
func (s *MintStore) Insert(ctx context.Context, m *domain.MintSubmission) error {
	if m == nil || m.ID == "" {
		return storage.ErrInvalidInput
	}

	value := "0"
	if m.Value != nil {
		value = m.Value.String()
	}

	query := `
		INSERT INTO mint_submissions (
			id, record_address, account, quantity, value_wei,
			tx_hash, status, error, block_number, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5::numeric,
			$6, $7, $8, $9, $10, $11
		)
	`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.RecordAddress, m.Account, m.Quantity, value,
		m.TxHash, string(m.Status), m.Error, int64(m.BlockNumber), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert mint submission: %w", err)
	}
	return nil
}

// UpdateStatus applies u to the submission. Returns ErrNotFound if not exists.
func (s *MintStore) UpdateStatus(ctx context.Context, id string, u storage.MintUpdate) error {
	query := `
		UPDATE mint_submissions
		SET status = $2,
			tx_hash = CASE WHEN $3 = '' THEN tx_hash ELSE $3 END,
			error = $4,
			block_number = $5,
			updated_at = $6
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, string(u.Status), u.TxHash, u.Error, int64(u.BlockNumber), u.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("update mint submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a submission by its ID. Returns ErrNotFound if not exists.
func (s *MintStore) GetByID(ctx context.Context, id string) (*domain.MintSubmission, error) {
	query := `SELECT ` + mintColumns + ` FROM mint_submissions WHERE id = $1`

	m, err := scanMintSubmission(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get mint submission by id: %w", err)
	}
	return m, nil
}

// LatestFor retrieves the newest submission for (record, account).
func (s *MintStore) LatestFor(ctx context.Context, record, account string) (*domain.MintSubmission, error) {
	query := `
		SELECT ` + mintColumns + `
		FROM mint_submissions
		WHERE record_address = $1 AND account = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	m, err := scanMintSubmission(s.pool.QueryRow(ctx, query, record, account))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest mint submission: %w", err)
	}
	return m, nil
}

// ListByStatus retrieves submissions in status, ordered by created_at ASC.
func (s *MintStore) ListByStatus(ctx context.Context, status domain.MintStatus) ([]*domain.MintSubmission, error) {
	query := `
		SELECT ` + mintColumns + `
		FROM mint_submissions
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query mint submissions by status: %w", err)
	}
	defer rows.Close()

	var result []*domain.MintSubmission
	for rows.Next() {
		m, err := scanMintSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mint submission: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint submissions: %w", err)
	}
	return result, nil
}

func scanMintSubmission(row pgx.Row) (*domain.MintSubmission, error) {
	var (
		m           domain.MintSubmission
		value       string
		status      string
		blockNumber int64
	)

	err := row.Scan(
		&m.ID, &m.RecordAddress, &m.Account, &m.Quantity, &value,
		&m.TxHash, &status, &m.Error, &blockNumber, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("parse value_wei %q", value)
	}
	m.Value = v
	m.Status = domain.MintStatus(status)
	m.BlockNumber = uint64(blockNumber)
	return &m, nil
}
