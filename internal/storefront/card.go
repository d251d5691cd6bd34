package storefront

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"record-storefront/internal/domain"
	"record-storefront/internal/ipfs"
	"record-storefront/internal/observability"
	"record-storefront/internal/record"
)

// CardKind distinguishes catalog cards from owned-token cards.
type CardKind string

const (
	CardCatalog CardKind = "catalog"
	CardOwned   CardKind = "owned"
)

// Card is one tile of a collection view. TokenID is set only for owned cards.
type Card struct {
	Kind    CardKind              `json:"kind"`
	Record  domain.DeployedRecord `json:"record"`
	TokenID *big.Int              `json:"tokenId,omitempty"`
	// Href overrides the default link target.
	Href string `json:"href,omitempty"`
}

// CatalogCard returns the card of a listed record.
func CatalogCard(r domain.DeployedRecord) Card {
	return Card{Kind: CardCatalog, Record: r}
}

// OwnedCard returns the card of one owned token.
func OwnedCard(item domain.OwnedItem) Card {
	return Card{Kind: CardOwned, Record: item.Record, TokenID: item.TokenID}
}

// Link returns the page the card navigates to.
func (c Card) Link() string {
	if c.Href != "" {
		return c.Href
	}
	if c.Kind == CardOwned {
		return fmt.Sprintf("/owner/%s/%s", c.Record.RecordAddress, c.TokenID)
	}
	return "/buy-record/" + c.Record.RecordAddress
}

// ImagePath returns the endpoint that redirects to the card image.
func (c Card) ImagePath() string {
	if c.Kind == CardOwned {
		return fmt.Sprintf("/card/%s/%s/image", c.Record.RecordAddress, c.TokenID)
	}
	return fmt.Sprintf("/card/%s/image", c.Record.RecordAddress)
}

// Cards resolves card images.
type Cards struct {
	reader   *record.Reader
	metadata MetadataFetcher
	resolver *ipfs.Resolver
	fallback string
	log      *logrus.Entry
}

// ResolveImage returns the gateway URL of the card image as seen from host.
// Catalog cards use the contract preview image; owned cards use the image of
// the token metadata. Any failure yields the fallback image.
func (c *Cards) ResolveImage(ctx context.Context, card Card, host string) string {
	uri, err := c.imageURI(ctx, card, host)
	if err == nil && uri == "" {
		err = fmt.Errorf("empty image uri")
	}
	if err != nil {
		if ctx.Err() == nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"kind":   card.Kind,
				"record": card.Record.RecordAddress,
			}).Warn("card image unavailable, using fallback")
		}
		observability.RecordCardFallback(string(card.Kind))
		return c.fallback
	}
	return c.resolver.Resolve(uri, host)
}

// Fallback returns the fallback image path.
func (c *Cards) Fallback() string {
	return c.fallback
}

func (c *Cards) imageURI(ctx context.Context, card Card, host string) (string, error) {
	addr := common.HexToAddress(card.Record.RecordAddress)

	switch card.Kind {
	case CardCatalog:
		return c.reader.PreviewImageURI(ctx, addr)
	case CardOwned:
		if card.TokenID == nil {
			return "", fmt.Errorf("owned card without token id")
		}
		tokenURI, err := c.reader.TokenURI(ctx, addr, card.TokenID)
		if err != nil {
			return "", err
		}
		meta, err := c.metadata.FetchMetadata(ctx, c.resolver.Resolve(tokenURI, host))
		if err != nil {
			return "", err
		}
		return meta.Image, nil
	default:
		return "", fmt.Errorf("unknown card kind %q", card.Kind)
	}
}
