package storefront

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"record-storefront/internal/observability"
)

// Track is one playable song of an owned record.
type Track struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration string `json:"duration,omitempty"`
	AudioURL string `json:"audioUrl"`
}

// OwnerView is the model of the owner page of one token.
type OwnerView struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`

	Record  string   `json:"record"`
	TokenID *big.Int `json:"tokenId"`

	ImageURL      string  `json:"imageUrl,omitempty"`
	FallbackImage string  `json:"fallbackImage,omitempty"`
	Title         string  `json:"title,omitempty"`
	Artist        string  `json:"artist,omitempty"`
	Description   string  `json:"description,omitempty"`
	PlayerURL     string  `json:"playerUrl,omitempty"`
	Tracks        []Track `json:"tracks,omitempty"`
}

// OwnerPage builds the owner page of token tokenID of the record at address:
// the token metadata with its track list in ascending track order.
func (s *Storefront) OwnerPage(ctx context.Context, address common.Address, tokenID *big.Int, host string) (OwnerView, error) {
	view := OwnerView{Record: address.Hex(), TokenID: tokenID}

	fail := func(err error) (OwnerView, error) {
		if ctx.Err() != nil {
			return OwnerView{}, ctx.Err()
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"record": address.Hex(),
			"token":  tokenID.String(),
		}).Error("load owner page")
		view.State = StateError
		view.Message = err.Error()
		observability.RecordPageRender(PageOwner, string(view.State))
		return view, nil
	}

	tokenURI, err := s.reader.TokenURI(ctx, address, tokenID)
	if err != nil {
		return fail(err)
	}
	meta, err := s.metadata.FetchMetadata(ctx, s.resolver.Resolve(tokenURI, host))
	if err != nil {
		return fail(fmt.Errorf("fetch metadata: %w", err))
	}

	view.State = StateReady
	view.Title = meta.Name
	view.Artist = meta.Artist
	view.Description = meta.Description
	view.FallbackImage = s.cards.Fallback()
	view.ImageURL = view.FallbackImage
	if meta.Image != "" {
		view.ImageURL = s.resolver.Resolve(meta.Image, host)
	}
	if meta.AnimationURL != "" {
		view.PlayerURL = s.resolver.Resolve(meta.AnimationURL, host)
	}
	for _, song := range meta.SortedSongs() {
		view.Tracks = append(view.Tracks, Track{
			Number:   song.TrackNumber,
			Title:    song.Title,
			Artist:   song.Artist,
			Duration: song.Duration,
			AudioURL: s.resolver.Resolve(song.Audio, host),
		})
	}

	observability.RecordPageRender(PageOwner, string(view.State))
	return view, nil
}
