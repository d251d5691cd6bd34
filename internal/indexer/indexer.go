// Package indexer queries the GraphQL indexer that records contract deployments.
package indexer

import (
	"context"
	"errors"

	"record-storefront/internal/domain"
)

// ErrNotFound is returned when no deployment matches an address.
var ErrNotFound = errors.New("record not found in indexer")

// DefaultPageSize is the number of deployments on the first catalog page.
const DefaultPageSize = 24

// Indexer reads record deployments, newest first (block number, then
// transaction index, descending).
type Indexer interface {
	// RecordByAddress returns the deployment of one record contract.
	RecordByAddress(ctx context.Context, address string) (*domain.DeployedRecord, error)

	// AllDeployments returns every deployment.
	AllDeployments(ctx context.Context) ([]domain.DeployedRecord, error)

	// FirstPage returns at most limit deployments.
	FirstPage(ctx context.Context, limit int) ([]domain.DeployedRecord, error)
}
