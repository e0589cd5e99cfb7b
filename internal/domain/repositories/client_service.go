package repositories

import (
	"context"
	"net/http"
	"time"
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthToken  AuthMode = "token"
	AuthGoogle AuthMode = "google"
)

// リモートAPIクライアント共通設定
type RemoteClientConfig struct {
	AuthMode AuthMode
	Token    string
	Timeout  time.Duration
}

// HTTPClientPool hands out the shared, possibly authenticated, client for
// the head-swap API.
type HTTPClientPool interface {
	GetHTTPClient(ctx context.Context) (*http.Client, error)

	Config() *RemoteClientConfig

	// リソースのクリーンアップ
	Close() error
}
