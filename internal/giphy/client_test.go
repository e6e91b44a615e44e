package giphy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3m01726/chattyChat/internal/giphy"
)

const searchBody = `{"data":[{"id":"abc","title":"dancing cat","images":{
	"fixed_height":{"url":"https://gif/abc.gif","width":"200","height":"200"},
	"fixed_height_small":{"url":"https://gif/abc_s.gif"}}}]}`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "cats", r.URL.Query().Get("q"))
		assert.Equal(t, "g", r.URL.Query().Get("rating"))
		w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := giphy.NewClientWithBaseURL("test-key", srv.URL)
	gifs, err := c.Search(context.Background(), "cats", 20, 0)
	require.NoError(t, err)
	require.Len(t, gifs, 1)
	assert.Equal(t, "abc", gifs[0].ID)
	assert.Equal(t, "dancing cat", gifs[0].Title)
	assert.Equal(t, "https://gif/abc.gif", gifs[0].URL)
	assert.Equal(t, "https://gif/abc_s.gif", gifs[0].Preview)
}

func TestGetByIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := giphy.NewClientWithBaseURL("test-key", srv.URL)
	_, err := c.GetByID(context.Background(), "nope")
	assert.Error(t, err)
}

func TestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := giphy.NewClientWithBaseURL("test-key", srv.URL)
	_, err := c.Trending(context.Background(), 20, 0)
	assert.Error(t, err)
}
