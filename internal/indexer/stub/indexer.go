package stub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"record-storefront/internal/domain"
	"record-storefront/internal/indexer"
)

// Indexer implements indexer.Indexer over an in-memory deployment list kept
// in indexer order.
type Indexer struct {
	mu      sync.Mutex
	records []domain.DeployedRecord
	queries int

	// Err, if set, fails every query.
	Err error
}

var _ indexer.Indexer = (*Indexer)(nil)

// NewIndexer creates a stub indexer holding records.
func NewIndexer(records ...domain.DeployedRecord) *Indexer {
	return &Indexer{records: records}
}

// Add appends a deployment.
func (s *Indexer) Add(r domain.DeployedRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

// Queries returns the number of queries served.
func (s *Indexer) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

func (s *Indexer) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.queries++
	return s.Err
}

// RecordByAddress returns the record with address, compared case-insensitively.
func (s *Indexer) RecordByAddress(ctx context.Context, address string) (*domain.DeployedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	for _, r := range s.records {
		if strings.EqualFold(r.RecordAddress, address) {
			out := r
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", indexer.ErrNotFound, address)
}

// AllDeployments returns all records.
func (s *Indexer) AllDeployments(ctx context.Context) ([]domain.DeployedRecord, error) {
	return s.FirstPage(ctx, -1)
}

// FirstPage returns at most limit records; a negative limit returns all.
func (s *Indexer) FirstPage(ctx context.Context, limit int) ([]domain.DeployedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	n := len(s.records)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]domain.DeployedRecord, n)
	copy(out, s.records[:n])
	return out, nil
}
