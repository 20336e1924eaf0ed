package gifts_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/gifts"
)

func setupProvider(t *testing.T, h http.Handler, hotboy ...string) *gifts.Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.Gifts.CatAPI = srv.URL + "/cat"
	cfg.Gifts.DogAPI = srv.URL + "/dog"
	cfg.Gifts.HotBoyURLs = hotboy
	return gifts.NewProvider(cfg)
}

func TestPictureFromAPIs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a1","url":"https://cdn/cat.jpg"}]`))
	})
	mux.HandleFunc("/dog", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"https://cdn/dog.jpg","status":"success"}`))
	})
	p := setupProvider(t, mux)
	ctx := context.Background()

	url, err := p.Picture(ctx, gifts.KindCat)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/cat.jpg", url)

	url, err = p.Picture(ctx, gifts.KindDog)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/dog.jpg", url)
}

func TestPictureFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/dog", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	p := setupProvider(t, mux)
	ctx := context.Background()

	_, err := p.Picture(ctx, gifts.KindCat)
	assert.ErrorIs(t, err, gifts.ErrNoPicture)

	_, err = p.Picture(ctx, gifts.KindDog)
	assert.Error(t, err)

	_, err = p.Picture(ctx, gifts.KindHotBoy)
	assert.ErrorIs(t, err, gifts.ErrNoPicture)

	_, err = p.Picture(ctx, gifts.Kind("horse"))
	assert.Error(t, err)
}

func TestHotBoyFromList(t *testing.T) {
	p := setupProvider(t, http.NotFoundHandler(), "https://a/1.jpg", "https://a/2.jpg")

	url, err := p.Picture(context.Background(), gifts.KindHotBoy)
	require.NoError(t, err)
	assert.Contains(t, []string{"https://a/1.jpg", "https://a/2.jpg"}, url)
}
