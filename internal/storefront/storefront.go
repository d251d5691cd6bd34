// Package storefront assembles the page view models of the record store:
// the catalog, the connected account's collection, the buy page and the
// owner page.
package storefront

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"record-storefront/internal/domain"
	"record-storefront/internal/indexer"
	"record-storefront/internal/ipfs"
	"record-storefront/internal/logging"
	"record-storefront/internal/record"
)

// DefaultFallbackImage is served for cards whose image cannot be resolved.
const DefaultFallbackImage = "/static/fallback.svg"

// MetadataFetcher fetches and decodes a record metadata document.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, url string) (*domain.RecordMetadata, error)
}

// MintTracker reports the mint state of a (record, account) pair.
type MintTracker interface {
	Pending(rec, account common.Address) bool
	Latest(ctx context.Context, rec, account common.Address) (*domain.MintSubmission, error)
}

// Options configures a Storefront.
type Options struct {
	Indexer  indexer.Indexer
	Reader   *record.Reader
	Metadata MetadataFetcher
	Resolver *ipfs.Resolver
	// Mints is optional; without it the buy page never shows a pending mint.
	Mints MintTracker

	// PageSize is the number of records on the catalog page.
	PageSize      int
	FallbackImage string
	Log           *logrus.Entry
}

// Storefront builds page views from the indexer, the record contracts and IPFS.
type Storefront struct {
	indexer  indexer.Indexer
	reader   *record.Reader
	metadata MetadataFetcher
	resolver *ipfs.Resolver
	mints    MintTracker
	pageSize int
	log      *logrus.Entry

	cards *Cards
}

// New creates a Storefront.
func New(opts Options) *Storefront {
	if opts.PageSize <= 0 {
		opts.PageSize = indexer.DefaultPageSize
	}
	if opts.FallbackImage == "" {
		opts.FallbackImage = DefaultFallbackImage
	}
	if opts.Resolver == nil {
		opts.Resolver = ipfs.NewResolver("", "")
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}

	return &Storefront{
		indexer:  opts.Indexer,
		reader:   opts.Reader,
		metadata: opts.Metadata,
		resolver: opts.Resolver,
		mints:    opts.Mints,
		pageSize: opts.PageSize,
		log:      opts.Log,
		cards: &Cards{
			reader:   opts.Reader,
			metadata: opts.Metadata,
			resolver: opts.Resolver,
			fallback: opts.FallbackImage,
			log:      opts.Log.WithField("view", "card"),
		},
	}
}

// Cards returns the card image resolver.
func (s *Storefront) Cards() *Cards {
	return s.cards
}
