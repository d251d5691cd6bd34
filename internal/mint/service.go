// Package mint submits mint transactions through the wallet and follows them
// until they are confirmed on chain.
package mint

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"record-storefront/internal/chain"
	"record-storefront/internal/domain"
	"record-storefront/internal/idhash"
	"record-storefront/internal/logging"
	"record-storefront/internal/observability"
	"record-storefront/internal/record"
	"record-storefront/internal/storage"
)

// DefaultSignatureTimeout bounds how long a submission may await the wallet.
const DefaultSignatureTimeout = 5 * time.Minute

const maxIDAttempts = 8

// ErrAlreadyPending is returned when the same account already has a mint of
// the same record awaiting signature.
var ErrAlreadyPending = errors.New("mint already awaiting signature")

// Options configures a Service.
type Options struct {
	// Wallet signs and submits transactions (eth_sendTransaction).
	Wallet chain.RPCClient
	// Reader reads the current mint price.
	Reader *record.Reader
	Store  storage.MintStore
	Events storage.MintEventStore
	Log    *logrus.Entry

	SignatureTimeout time.Duration
	Now              func() time.Time
}

type pairKey struct {
	record  common.Address
	account common.Address
}

// Service submits mints and tracks which (record, account) pairs await a signature.
type Service struct {
	wallet  chain.RPCClient
	reader  *record.Reader
	store   storage.MintStore
	events  storage.MintEventStore
	log     *logrus.Entry
	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	pending map[pairKey]string // submission id

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a mint service.
func NewService(opts Options) *Service {
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.SignatureTimeout <= 0 {
		opts.SignatureTimeout = DefaultSignatureTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		wallet:  opts.Wallet,
		reader:  opts.Reader,
		store:   opts.Store,
		events:  opts.Events,
		log:     opts.Log,
		timeout: opts.SignatureTimeout,
		now:     opts.Now,
		pending: make(map[pairKey]string),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Pending reports whether account has a mint of rec awaiting signature.
func (s *Service) Pending(rec, account common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[pairKey{rec, account}]
	return ok
}

// PendingCount returns the number of pairs awaiting signature.
func (s *Service) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Latest returns the newest submission of account for rec, or nil if none.
func (s *Service) Latest(ctx context.Context, rec, account common.Address) (*domain.MintSubmission, error) {
	m, err := s.store.LatestFor(ctx, rec.Hex(), account.Hex())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// Submit re-reads the mint price and asks the wallet to send mint(1) with
// value equal to the price. It returns once the submission is recorded; the
// wallet round trip continues in the background until it is signed, rejected
// or times out, and the pair stays pending meanwhile.
func (s *Service) Submit(ctx context.Context, rec, account common.Address) (*domain.MintSubmission, error) {
	key := pairKey{rec, account}
	log := s.log.WithFields(logrus.Fields{"record": rec.Hex(), "account": account.Hex()})

	s.mu.Lock()
	if _, ok := s.pending[key]; ok {
		s.mu.Unlock()
		return nil, ErrAlreadyPending
	}
	// Reserve the pair before any I/O so concurrent submits cannot both pass.
	s.pending[key] = ""
	s.mu.Unlock()

	sub, data, err := s.prepare(ctx, rec, account)
	if err != nil {
		s.release(key)
		observability.RecordMintSubmission("rejected")
		log.WithError(err).Warn("mint submission not started")
		return nil, err
	}

	s.mu.Lock()
	s.pending[key] = sub.ID
	observability.SetPendingMints(len(s.pending))
	s.mu.Unlock()

	// The caller owns sub; the wallet round trip works on its own copy.
	inflight := *sub
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(key)
		s.send(&inflight, data, log.WithField("submission", inflight.ID))
	}()

	return sub, nil
}

func (s *Service) prepare(ctx context.Context, rec, account common.Address) (*domain.MintSubmission, []byte, error) {
	price, err := s.reader.MintPrice(ctx, rec)
	if err != nil {
		return nil, nil, fmt.Errorf("read mint price: %w", err)
	}
	data, err := record.PackMint(big.NewInt(1))
	if err != nil {
		return nil, nil, err
	}

	nowMs := s.now().UnixMilli()
	sub := &domain.MintSubmission{
		RecordAddress: rec.Hex(),
		Account:       account.Hex(),
		Quantity:      1,
		Value:         price,
		Status:        domain.MintStatusAwaitingSignature,
		CreatedAt:     nowMs,
		UpdatedAt:     nowMs,
	}
	// Two attempts within the same millisecond hash to the same id; the later
	// one moves to the next free millisecond.
	for attempt := 0; ; attempt++ {
		sub.ID = idhash.ComputeSubmissionID(sub.RecordAddress, sub.Account, sub.Quantity, sub.CreatedAt)
		err = s.store.Insert(ctx, sub)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrDuplicateKey) || attempt >= maxIDAttempts {
			return nil, nil, fmt.Errorf("record submission: %w", err)
		}
		sub.CreatedAt++
	}
	s.appendEvent(ctx, sub, "", 0)
	return sub, data, nil
}

func (s *Service) send(sub *domain.MintSubmission, data []byte, log *logrus.Entry) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	hash, err := s.wallet.SendTransaction(ctx, chain.TxArgs{
		From:  common.HexToAddress(sub.Account),
		To:    common.HexToAddress(sub.RecordAddress),
		Value: sub.Value,
		Data:  data,
	})

	// The wallet round trip may have outlived ctx; bookkeeping still has to land.
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer storeCancel()

	update := storage.MintUpdate{UpdatedAt: s.now().UnixMilli()}
	if err != nil {
		update.Status = domain.MintStatusFailed
		update.Error = err.Error()
		observability.RecordMintSubmission("failed")
		log.WithError(err).Warn("mint transaction not submitted")
	} else {
		update.Status = domain.MintStatusSubmitted
		update.TxHash = hash.Hex()
		observability.RecordMintSubmission("submitted")
		log.WithField("tx", hash.Hex()).Info("mint transaction submitted")
	}

	if err := s.store.UpdateStatus(storeCtx, sub.ID, update); err != nil {
		log.WithError(err).Error("update mint submission")
	}
	sub.Status = update.Status
	s.appendEvent(storeCtx, sub, update.TxHash, 0)
}

func (s *Service) appendEvent(ctx context.Context, sub *domain.MintSubmission, txHash string, block uint64) {
	if s.events == nil {
		return
	}
	err := s.events.InsertBulk(ctx, []*domain.MintEvent{{
		SubmissionID:  sub.ID,
		RecordAddress: sub.RecordAddress,
		Account:       sub.Account,
		Status:        sub.Status,
		TxHash:        txHash,
		BlockNumber:   block,
		TimestampMs:   s.now().UnixMilli(),
	}})
	if err != nil {
		s.log.WithError(err).WithField("submission", sub.ID).Warn("append mint event")
	}
}

func (s *Service) release(key pairKey) {
	s.mu.Lock()
	delete(s.pending, key)
	observability.SetPendingMints(len(s.pending))
	s.mu.Unlock()
}

// Wait blocks until every in-flight wallet round trip has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close abandons in-flight wallet round trips and waits for them to finish.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
