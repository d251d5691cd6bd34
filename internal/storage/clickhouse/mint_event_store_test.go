package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-storefront/internal/domain"
	"record-storefront/internal/storage"
)

const (
	recordA  = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	recordB  = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	accountA = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func mintEvent(id, record string, status domain.MintStatus, ts int64) *domain.MintEvent {
	return &domain.MintEvent{
		SubmissionID:  id,
		RecordAddress: record,
		Account:       accountA,
		Status:        status,
		TxHash:        "0x" + id,
		BlockNumber:   uint64(ts / 1000),
		TimestampMs:   ts,
	}
}

func TestMintEventStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMintEventStore(conn)
	ctx := context.Background()

	assert.NoError(t, store.InsertBulk(ctx, nil))

	err := store.InsertBulk(ctx, []*domain.MintEvent{
		mintEvent("s1", recordA, domain.MintStatusSubmitted, 2000),
		mintEvent("s1", recordA, domain.MintStatusAwaitingSignature, 1000),
		mintEvent("s2", recordB, domain.MintStatusAwaitingSignature, 1500),
	})
	require.NoError(t, err)

	got, err := store.GetByRecord(ctx, recordA)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.MintStatusAwaitingSignature, got[0].Status)
	assert.Equal(t, int64(2000), got[1].TimestampMs)
	assert.Equal(t, uint64(2), got[1].BlockNumber)

	bySubmission, err := store.GetBySubmission(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, bySubmission, 1)
	assert.Equal(t, recordB, bySubmission[0].RecordAddress)
}

func TestMintEventStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMintEventStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.MintEvent{
		mintEvent("s1", recordA, domain.MintStatusSubmitted, 1000),
	}))

	err := store.InsertBulk(ctx, []*domain.MintEvent{
		mintEvent("s1", recordA, domain.MintStatusSubmitted, 2000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.MintEvent{
		mintEvent("s9", recordA, domain.MintStatusFailed, 1),
		mintEvent("s9", recordA, domain.MintStatusFailed, 2),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
