package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"record-storefront/internal/domain"
	"record-storefront/internal/storage"
)

// MintStore is an in-memory implementation of storage.MintStore.
type MintStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MintSubmission // keyed by id
}

// NewMintStore creates a new in-memory mint store.
func NewMintStore() *MintStore {
	return &MintStore{
		data: make(map[string]*domain.MintSubmission),
	}
}

func clone(m *domain.MintSubmission) *domain.MintSubmission {
	c := *m
	if m.Value != nil {
		c.Value = new(big.Int).Set(m.Value)
	}
	return &c
}

// Insert adds a new submission. Returns ErrDuplicateKey if id exists.
func (s *MintStore) Insert(_ context.Context, m *domain.MintSubmission) error {
	if m == nil || m.ID == "" || m.RecordAddress == "" || m.Account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[m.ID] = clone(m)
	return nil
}

// UpdateStatus applies u to the submission. Returns ErrNotFound if not exists.
func (s *MintStore) UpdateStatus(_ context.Context, id string, u storage.MintUpdate) error {
	if u.Status == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	m.Status = u.Status
	if u.TxHash != "" {
		m.TxHash = u.TxHash
	}
	m.Error = u.Error
	m.BlockNumber = u.BlockNumber
	m.UpdatedAt = u.UpdatedAt
	return nil
}

// GetByID retrieves a submission by its ID. Returns ErrNotFound if not exists.
func (s *MintStore) GetByID(_ context.Context, id string) (*domain.MintSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clone(m), nil
}

// LatestFor retrieves the newest submission for (record, account).
func (s *MintStore) LatestFor(_ context.Context, record, account string) (*domain.MintSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.MintSubmission
	for _, m := range s.data {
		if m.RecordAddress != record || m.Account != account {
			continue
		}
		if latest == nil || m.CreatedAt > latest.CreatedAt ||
			(m.CreatedAt == latest.CreatedAt && m.ID > latest.ID) {
			latest = m
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return clone(latest), nil
}

// ListByStatus retrieves submissions in status, ordered by created_at ASC.
func (s *MintStore) ListByStatus(_ context.Context, status domain.MintStatus) ([]*domain.MintSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MintSubmission
	for _, m := range s.data {
		if m.Status == status {
			result = append(result, clone(m))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.MintStore = (*MintStore)(nil)
