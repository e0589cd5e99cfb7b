package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"tryon-storefront/internal/domain/repositories"
)

const (
	DefaultRequestTimeout = 60 * time.Second
	cloudPlatformScope    = "https://www.googleapis.com/auth/cloud-platform"
)

var ErrMissingToken = errors.New("auth mode token requires a token")

// HTTPクライアントプール実装
type httpClientPool struct {
	config *repositories.RemoteClientConfig
	client *http.Client
	mutex  sync.RWMutex
}

// 新しいHTTPクライアントプールを作成
func NewHTTPClientPool(config *repositories.RemoteClientConfig) repositories.HTTPClientPool {
	if config == nil {
		config = &repositories.RemoteClientConfig{}
	}
	if config.AuthMode == "" {
		config.AuthMode = repositories.AuthNone
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRequestTimeout
	}
	return &httpClientPool{
		config: config,
	}
}

func (p *httpClientPool) GetHTTPClient(ctx context.Context) (*http.Client, error) {
	p.mutex.RLock()
	if p.client != nil {
		defer p.mutex.RUnlock()
		return p.client, nil
	}
	p.mutex.RUnlock()

	p.mutex.Lock()
	defer p.mutex.Unlock()

	// ダブルチェックロッキング
	if p.client != nil {
		return p.client, nil
	}

	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}

	p.client = client
	return p.client, nil
}

func (p *httpClientPool) newClient(ctx context.Context) (*http.Client, error) {
	// クライアントはリクエストより長生きする
	ctx = context.WithoutCancel(ctx)

	var client *http.Client
	switch p.config.AuthMode {
	case repositories.AuthNone:
		client = &http.Client{}
	case repositories.AuthToken:
		if p.config.Token == "" {
			return nil, ErrMissingToken
		}
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: p.config.Token,
			TokenType:   "Bearer",
		}))
	case repositories.AuthGoogle:
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		client = oauth2.NewClient(ctx, creds.TokenSource)
	default:
		return nil, fmt.Errorf("unknown auth mode: %q", p.config.AuthMode)
	}

	client.Timeout = p.config.Timeout
	return client, nil
}

func (p *httpClientPool) Config() *repositories.RemoteClientConfig {
	return p.config
}

func (p *httpClientPool) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil {
		p.client.CloseIdleConnections()
		p.client = nil
	}
	return nil
}
