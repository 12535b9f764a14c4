package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metalayer/pkg/mirror"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	c := New(WithTimeout(5 * time.Second))
	resp, err := c.Fetch(context.Background(), mirror.Request{URL: server.URL + "/cover.png"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.MediaType)
	assert.Equal(t, []byte("png-bytes"), resp.Content)
	assert.Equal(t, `"v1"`, resp.ETag)

	resp, err = c.Fetch(context.Background(), mirror.Request{URL: server.URL + "/cover.png", ETag: `"v1"`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New().Fetch(context.Background(), mirror.Request{URL: url})
	assert.Error(t, err)
}
