package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tryon-storefront/internal/infrastructure/repositories"
)

// NewRouter wires the session API. imagesDir, when set, is served under
// urlPrefix so reference URLs resolve on this host.
func NewRouter(handler *TryOnHandler, imagesDir, urlPrefix string, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(CORS)

	r.HandleFunc("/healthz", handler.HandleHealth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(WithLogging(logger))
	api.HandleFunc("/sessions", handler.HandleCreateSession).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}", handler.HandleGetSession).Methods("GET", "OPTIONS")
	api.HandleFunc("/sessions/{id}", handler.HandleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/image", handler.HandleUploadImage).Methods("PUT", "OPTIONS")
	api.HandleFunc("/sessions/{id}/confirm", handler.HandleConfirm).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/reset", handler.HandleReset).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/events", handler.HandleEvents).Methods("GET")

	// 参照画像の静的配信
	if imagesDir != "" {
		prefix := staticPrefix(urlPrefix)
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(imagesDir))))
	}

	return r
}

// staticPrefix normalises the reference URL prefix the same way the
// reference catalog does.
func staticPrefix(urlPrefix string) string {
	if urlPrefix == "" {
		urlPrefix = repositories.DefaultURLPrefix
	}
	if !strings.HasPrefix(urlPrefix, "/") {
		urlPrefix = "/" + urlPrefix
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return urlPrefix
}
