package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metadataJSON = `{
	"name": "Night Drive",
	"artist": "The Lamps",
	"description": "Ten songs",
	"image": "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG/cover.png",
	"animation_url": "https://player.example.com/night-drive",
	"songs": [
		{"trackNumber": 2, "title": "B", "artist": "The Lamps", "duration": 184, "audio": "ipfs://cid/2.mp3"},
		{"trackNumber": "1", "title": "A", "artist": "The Lamps", "duration": "3:01", "audio": "ipfs://cid/1.mp3"}
	]
}`

func TestGateway_FetchMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(metadataJSON))
	}))
	defer server.Close()

	g := NewGateway()
	md, err := g.FetchMetadata(context.Background(), server.URL+"/ipfs/"+testCID)
	require.NoError(t, err)

	assert.Equal(t, "Night Drive", md.Name)
	assert.Equal(t, "The Lamps", md.Artist)
	assert.Equal(t, "https://player.example.com/night-drive", md.AnimationURL)
	require.Len(t, md.Songs, 2)
	assert.Equal(t, 2, md.Songs[0].TrackNumber)
	assert.Equal(t, "184", md.Songs[0].Duration)
	assert.Equal(t, 1, md.Songs[1].TrackNumber)
	assert.Equal(t, "3:01", md.Songs[1].Duration)
}

func TestGateway_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ipfs/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/content/doc.json", http.StatusFound)
	})
	mux.HandleFunc("/content/doc.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(metadataJSON))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	md, err := NewGateway().FetchMetadata(context.Background(), server.URL+"/ipfs/"+testCID)
	require.NoError(t, err)
	assert.Equal(t, "Night Drive", md.Name)
}

func TestGateway_TooManyRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer server.Close()

	_, err := NewGateway(WithMaxRedirects(2)).Fetch(context.Background(), server.URL+"/loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many redirects")
}

func TestGateway_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewGateway().FetchMetadata(context.Background(), server.URL+"/ipfs/"+testCID)
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestGateway_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := NewGateway().FetchMetadata(context.Background(), server.URL+"/ipfs/"+testCID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode metadata")
}

func TestGateway_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGateway().Fetch(ctx, "http://127.0.0.1:1/ipfs/x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGateway_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(metadataJSON))
	}))
	defer server.Close()

	_, err := NewGateway(WithFetchTimeout(50*time.Millisecond)).Fetch(context.Background(), server.URL)
	assert.Error(t, err)
}
