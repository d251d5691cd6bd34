package storefront

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"record-storefront/internal/chain"
	"record-storefront/internal/domain"
	"record-storefront/internal/observability"
)

// Store builds the catalog: the first page of deployments, newest first.
func (s *Storefront) Store(ctx context.Context) (CollectionView, error) {
	records, err := s.indexer.FirstPage(ctx, s.pageSize)
	if err != nil {
		if ctx.Err() != nil {
			return CollectionView{}, ctx.Err()
		}
		s.log.WithError(err).Error("load catalog")
		return s.rendered(PageStore, collectionError()), nil
	}

	cards := make([]Card, 0, len(records))
	for _, r := range records {
		cards = append(cards, CatalogCard(r))
	}
	return s.rendered(PageStore, collectionOf(cards)), nil
}

// MyRecords builds the collection of tokens owned by account across every
// deployed record. A nil account yields the connect-wallet prompt.
//
// Records whose address fails checksum validation are skipped. Ownership is
// read with one batch request; a contract whose read fails counts as owning
// nothing.
func (s *Storefront) MyRecords(ctx context.Context, account *common.Address) (CollectionView, error) {
	if account == nil {
		return s.rendered(PageMyRecords, CollectionView{
			State:   StateConnectWallet,
			Message: MessageConnectWallet,
			Cards:   []Card{},
		}), nil
	}

	records, err := s.indexer.AllDeployments(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return CollectionView{}, ctx.Err()
		}
		s.log.WithError(err).Error("load deployments")
		return s.rendered(PageMyRecords, collectionError()), nil
	}

	valid := make([]domain.DeployedRecord, 0, len(records))
	addrs := make([]common.Address, 0, len(records))
	for _, r := range records {
		addr, err := chain.ParseAddress(r.RecordAddress)
		if err != nil {
			s.log.WithField("record", r.RecordAddress).Warn("skipping record with invalid address")
			continue
		}
		valid = append(valid, r)
		addrs = append(addrs, addr)
	}

	holdings, err := s.reader.TokensOfOwnerBatch(ctx, addrs, *account)
	if err != nil {
		if ctx.Err() != nil {
			return CollectionView{}, ctx.Err()
		}
		s.log.WithError(err).Error("read token ownership")
		return s.rendered(PageMyRecords, collectionError()), nil
	}

	var cards []Card
	for i, h := range holdings {
		if h.Err != nil {
			s.log.WithError(h.Err).WithField("record", valid[i].RecordAddress).Warn("ownership read failed")
			continue
		}
		for _, id := range h.TokenIDs {
			cards = append(cards, OwnedCard(domain.OwnedItem{Record: valid[i], TokenID: id}))
		}
	}
	return s.rendered(PageMyRecords, collectionOf(cards)), nil
}

func (s *Storefront) rendered(page string, v CollectionView) CollectionView {
	observability.RecordPageRender(page, string(v.State))
	return v
}
