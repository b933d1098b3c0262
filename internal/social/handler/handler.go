package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authMW "snapfeed/internal/auth/middleware"
	"snapfeed/internal/social/service"
	"snapfeed/internal/transport/httputil"
	dErrors "snapfeed/pkg/domain-errors"
)

// Handler is the thin HTTP layer for photos, captions, and votes. All
// mutating routes sit behind RequireAuth, so the session is always present.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type captionRequest struct {
	Text string `json:"text"`
}

type voteRequest struct {
	Value int `json:"value"`
}

type tallyResponse struct {
	PhotoID uuid.UUID `json:"photo_id"`
	Tally   int       `json:"tally"`
}

// HandleUploadPhoto accepts raw image bytes in the request body.
func (h *Handler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	sess := authMW.GetSession(r.Context())

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	photo, err := h.svc.UploadPhoto(r.Context(), sess.UserID, contentType, r.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, photo)
}

// HandleListPhotos returns the newest photos. The limit query parameter is
// optional.
func (h *Handler) HandleListPhotos(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	photos, err := h.svc.ListPhotos(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, photos)
}

// HandleGetPhoto returns photo metadata.
func (h *Handler) HandleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}

	photo, err := h.svc.GetPhoto(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, photo)
}

// HandleDownloadPhoto streams the stored image bytes.
func (h *Handler) HandleDownloadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}

	photo, body, err := h.svc.DownloadPhoto(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", photo.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("photo download interrupted", "photo_id", id, "error", err)
	}
}

// HandleDeletePhoto removes the caller's own photo.
func (h *Handler) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}
	sess := authMW.GetSession(r.Context())

	if err := h.svc.DeletePhoto(r.Context(), sess.UserID, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddCaption attaches a caption to a photo.
func (h *Handler) HandleAddCaption(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}
	sess := authMW.GetSession(r.Context())

	var req captionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	caption, err := h.svc.AddCaption(r.Context(), sess.UserID, id, req.Text)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, caption)
}

// HandleListCaptions returns a photo's captions in creation order.
func (h *Handler) HandleListCaptions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}

	captions, err := h.svc.ListCaptions(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, captions)
}

// HandleCastVote records a vote and returns the new tally.
func (h *Handler) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}
	sess := authMW.GetSession(r.Context())

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	tally, err := h.svc.CastVote(r.Context(), sess.UserID, id, req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &tallyResponse{PhotoID: id, Tally: tally})
}

// HandleRemoveVote withdraws the caller's vote and returns the new tally.
func (h *Handler) HandleRemoveVote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}
	sess := authMW.GetSession(r.Context())

	tally, err := h.svc.RemoveVote(r.Context(), sess.UserID, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &tallyResponse{PhotoID: id, Tally: tally})
}

func (h *Handler) photoID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "photoID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid photo id"))
		return uuid.Nil, false
	}
	return id, true
}
