package domain

import "sort"

// RecordMetadata is the off-chain JSON document a token URI points to.
type RecordMetadata struct {
	Name         string
	Artist       string
	Description  string
	Image        string // content-addressed cover image URI
	AnimationURL string // optional player URI
	Songs        []Song
}

// Song is one track of a record.
type Song struct {
	TrackNumber int
	Title       string
	Artist      string
	Duration    string // optional, as published
	Audio       string // content-addressed audio URI
}

// SortedSongs returns the tracks ordered by ascending track number.
// Tracks sharing a number keep their document order.
func (m *RecordMetadata) SortedSongs() []Song {
	if m == nil || len(m.Songs) == 0 {
		return nil
	}

	songs := make([]Song, len(m.Songs))
	copy(songs, m.Songs)
	sort.SliceStable(songs, func(i, j int) bool {
		return songs[i].TrackNumber < songs[j].TrackNumber
	})
	return songs
}
