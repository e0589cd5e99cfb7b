package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	appservices "tryon-storefront/internal/application/services"
	"tryon-storefront/internal/application/usecases"
	"tryon-storefront/internal/domain/entities"
	domainservices "tryon-storefront/internal/domain/services"
	"tryon-storefront/internal/domain/valueobjects"
)

const previewTimeout = 5 * time.Second

type TryOnHandler struct {
	sessions   *usecases.SessionManager
	validator  *domainservices.UploadValidator
	uploadForm *appservices.UploadFormService
	logger     *zap.Logger
}

func NewTryOnHandler(
	sessions *usecases.SessionManager,
	validator *domainservices.UploadValidator,
	uploadForm *appservices.UploadFormService,
	logger *zap.Logger,
) *TryOnHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TryOnHandler{
		sessions:   sessions,
		validator:  validator,
		uploadForm: uploadForm,
		logger:     logger,
	}
}

type uploadResponse struct {
	Session entities.SessionSnapshot `json:"session"`
	Preview *valueobjects.Preview    `json:"preview,omitempty"`
}

// HandleCreateSession opens a new try-on session. A multipart body with
// an image field uploads it straight away.
func (h *TryOnHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	orchestrator, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		h.sendError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	if !isMultipart(r) {
		h.sendJSON(w, http.StatusCreated, uploadResponse{Session: orchestrator.Snapshot()})
		return
	}
	if !h.upload(w, r, orchestrator, http.StatusCreated) {
		// the client never learns this session's ID
		if err := h.sessions.Close(r.Context(), orchestrator.ID()); err != nil {
			h.logger.Warn("failed to discard rejected session", zap.Error(err))
		}
	}
}

func (h *TryOnHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	orchestrator, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.upload(w, r, orchestrator, http.StatusOK)
}

// upload reports whether the image was accepted.
func (h *TryOnHandler) upload(w http.ResponseWriter, r *http.Request, orchestrator *usecases.TryOnOrchestrator, status int) bool {
	candidate, err := h.uploadForm.ParseFromRequest(w, r)
	if err == nil {
		var image *valueobjects.UploadedImage
		image, err = h.validator.Validate(candidate)
		if err == nil {
			if err := orchestrator.Upload(image); err != nil {
				h.handleError(w, err)
				return false
			}
			h.sendJSON(w, status, uploadResponse{
				Session: orchestrator.Snapshot(),
				Preview: h.preview(r.Context(), image),
			})
			return true
		}
	}

	var validationErr *entities.ValidationError
	if errors.As(err, &validationErr) {
		err = orchestrator.RejectUpload(err)
	}
	h.handleError(w, err)
	return false
}

// preview waits briefly for the local preview; the upload succeeds
// without it.
func (h *TryOnHandler) preview(ctx context.Context, image *valueobjects.UploadedImage) *valueobjects.Preview {
	ctx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()

	select {
	case result := <-h.validator.DecodePreview(ctx, image):
		if result.Err != nil {
			h.logger.Warn("preview decode failed", zap.String("file_name", image.FileName()), zap.Error(result.Err))
			return nil
		}
		return result.Preview
	case <-ctx.Done():
		return nil
	}
}

func (h *TryOnHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	orchestrator, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := orchestrator.Confirm(r.Context()); err != nil {
		h.handleError(w, err)
		return
	}
	h.sendJSON(w, http.StatusAccepted, orchestrator.Snapshot())
}

// HandleGetSession returns the current snapshot. With ?wait=true it blocks
// until the run has finished or the client goes away.
func (h *TryOnHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	orchestrator, ok := h.lookup(w, r)
	if !ok {
		return
	}

	snap := orchestrator.Snapshot()
	if r.URL.Query().Get("wait") == "true" {
		var err error
		snap, err = orchestrator.Wait(r.Context())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
	}
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	h.sendJSON(w, http.StatusOK, snap)
}

// HandleEvents streams snapshots as server-sent events until the session
// settles or the client disconnects.
func (h *TryOnHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	orchestrator, ok := h.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.sendError(w, "Streaming is not supported", http.StatusInternalServerError)
		return
	}

	updates, unsubscribe := orchestrator.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sawBusy := false
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-updates:
			if !open {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				h.logger.Error("failed to encode snapshot", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", snap.State, data); err != nil {
				return
			}
			flusher.Flush()

			switch {
			case snap.State.IsBusy():
				sawBusy = true
			case snap.State.IsTerminal(), sawBusy:
				return
			}
		}
	}
}

func (h *TryOnHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	orchestrator, ok := h.lookup(w, r)
	if !ok {
		return
	}
	orchestrator.Reset()
	h.sendJSON(w, http.StatusOK, orchestrator.Snapshot())
}

func (h *TryOnHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := entities.SessionID(mux.Vars(r)["id"])
	if err := h.sessions.Close(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TryOnHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *TryOnHandler) lookup(w http.ResponseWriter, r *http.Request) (*usecases.TryOnOrchestrator, bool) {
	id := entities.SessionID(mux.Vars(r)["id"])
	orchestrator, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return nil, false
	}
	return orchestrator, true
}

func (h *TryOnHandler) handleError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	h.sendError(w, err.Error(), status)
}

func statusFor(err error) int {
	var validationErr *entities.ValidationError
	switch {
	case errors.As(err, &validationErr):
		if validationErr.Kind == entities.TooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case errors.Is(err, appservices.ErrInvalidForm):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, valueobjects.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, usecases.ErrOrchestratorClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func (h *TryOnHandler) sendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (h *TryOnHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
