package mint

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"record-storefront/internal/chain"
	"record-storefront/internal/domain"
	"record-storefront/internal/logging"
	"record-storefront/internal/observability"
	"record-storefront/internal/storage"
)

// DefaultPollInterval is how often submitted mints are checked without a head subscription.
const DefaultPollInterval = 5 * time.Second

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	RPC    chain.RPCClient
	Store  storage.MintStore
	Events storage.MintEventStore
	// Heads, if set, triggers a poll on every new head in addition to the interval.
	Heads    chain.HeadSubscriber
	Interval time.Duration
	Log      *logrus.Entry
	Now      func() time.Time
}

// Watcher resolves submitted mints to confirmed or failed from their receipts.
type Watcher struct {
	rpc      chain.RPCClient
	store    storage.MintStore
	events   storage.MintEventStore
	heads    chain.HeadSubscriber
	interval time.Duration
	log      *logrus.Entry
	now      func() time.Time
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Watcher{
		rpc:      opts.RPC,
		store:    opts.Store,
		events:   opts.Events,
		heads:    opts.Heads,
		interval: opts.Interval,
		log:      opts.Log,
		now:      opts.Now,
	}
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	var heads <-chan chain.Head
	if w.heads != nil {
		ch, err := w.heads.SubscribeNewHeads(ctx)
		if err != nil {
			w.log.WithError(err).Warn("head subscription unavailable, polling on interval only")
		} else {
			heads = ch
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case head, ok := <-heads:
			if !ok {
				heads = nil
				continue
			}
			observability.UpdateHighestBlock(head.Number)
			w.log.WithField("block", head.Number).Trace("new head")
		}

		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.log.WithError(err).Warn("mint poll failed")
		}
	}
}

// Poll checks every submitted mint once and returns how many were resolved.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	submitted, err := w.store.ListByStatus(ctx, domain.MintStatusSubmitted)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, sub := range submitted {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}

		receipt, err := w.rpc.TransactionReceipt(ctx, common.HexToHash(sub.TxHash))
		if err != nil {
			w.log.WithError(err).WithField("tx", sub.TxHash).Debug("receipt lookup failed")
			continue
		}
		if receipt == nil {
			continue
		}

		status := domain.MintStatusConfirmed
		var reason string
		if !receipt.Succeeded() {
			status = domain.MintStatusFailed
			reason = "transaction reverted"
		}

		err = w.store.UpdateStatus(ctx, sub.ID, storage.MintUpdate{
			Status:      status,
			Error:       reason,
			BlockNumber: receipt.BlockNumber,
			UpdatedAt:   w.now().UnixMilli(),
		})
		if err != nil {
			w.log.WithError(err).WithField("submission", sub.ID).Error("update mint submission")
			continue
		}

		if w.events != nil {
			err = w.events.InsertBulk(ctx, []*domain.MintEvent{{
				SubmissionID:  sub.ID,
				RecordAddress: sub.RecordAddress,
				Account:       sub.Account,
				Status:        status,
				TxHash:        sub.TxHash,
				BlockNumber:   receipt.BlockNumber,
				TimestampMs:   w.now().UnixMilli(),
			}})
			if err != nil {
				w.log.WithError(err).WithField("submission", sub.ID).Warn("append mint event")
			}
		}

		observability.RecordMintResolution(string(status))
		w.log.WithFields(logrus.Fields{
			"submission": sub.ID,
			"status":     status,
			"block":      receipt.BlockNumber,
		}).Info("mint resolved")
		resolved++
	}
	return resolved, nil
}
