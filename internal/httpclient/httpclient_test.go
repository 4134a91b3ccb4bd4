package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, 180*time.Second, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 180*time.Second, tr.ResponseHeaderTimeout)
}

func TestNewHeaderTimeoutCapped(t *testing.T) {
	c := New(Options{Timeout: 10 * time.Second, ResponseHeaderTimeout: time.Minute})
	tr := c.Transport.(*http.Transport)
	assert.Equal(t, 10*time.Second, tr.ResponseHeaderTimeout)
}

func TestClientDialsIPv4(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := New(Options{PreferIPv4: true, Timeout: 5 * time.Second}).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
