package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-storefront/internal/domain/repositories"
)

func TestHTTPClientPool_ReusesClient(t *testing.T) {
	pool := NewHTTPClientPool(&repositories.RemoteClientConfig{Timeout: 5 * time.Second})
	defer pool.Close()

	first, err := pool.GetHTTPClient(context.Background())
	require.NoError(t, err)
	second, err := pool.GetHTTPClient(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 5*time.Second, first.Timeout)
	assert.Equal(t, repositories.AuthNone, pool.Config().AuthMode)
}

func TestHTTPClientPool_TokenAuth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	pool := NewHTTPClientPool(&repositories.RemoteClientConfig{AuthMode: repositories.AuthToken, Token: "secret"})
	defer pool.Close()

	client, err := pool.GetHTTPClient(context.Background())
	require.NoError(t, err)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, DefaultRequestTimeout, client.Timeout)
}

func TestHTTPClientPool_InvalidConfig(t *testing.T) {
	_, err := NewHTTPClientPool(&repositories.RemoteClientConfig{AuthMode: repositories.AuthToken}).GetHTTPClient(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewHTTPClientPool(&repositories.RemoteClientConfig{AuthMode: "kerberos"}).GetHTTPClient(context.Background())
	assert.Error(t, err)
}
