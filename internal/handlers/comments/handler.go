package comments

import (
	"log/slog"
	"net/http"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/json"

	"github.com/go-chi/chi/v5"
)

type CommentsHandler struct {
	service CommentsService
}

func NewCommentsHandler(svc CommentsService) *CommentsHandler {
	return &CommentsHandler{
		service: svc,
	}
}

func (h *CommentsHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		slog.WarnContext(ctx, "Missing listing ID in request")
		errors.RespondError(w, r, errors.New(errors.ErrInvalidInput, "Listing ID is required", nil))
		return
	}

	userInfo, err := auth.GetUserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Unauthorized access attempt", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrUnauthorized, "Unauthorized access", err))
		return
	}

	req := CommentRequest{}
	if err := json.Read(r, &req); err != nil {
		slog.WarnContext(ctx, "Invalid request body", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrInvalidInput, "Input provided was not in the format expected. Please contact support if this error persists.", err))
		return
	}

	comment, err := h.service.AddComment(ctx, userInfo, listingID, &req)
	if err != nil {
		slog.WarnContext(ctx, "Failed to add comment", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusCreated, comment)
}

func (h *CommentsHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		slog.WarnContext(ctx, "Missing listing ID in request")
		errors.RespondError(w, r, errors.New(errors.ErrInvalidInput, "Listing ID is required", nil))
		return
	}

	comments, err := h.service.GetComments(ctx, listingID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch comments", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, comments)
}
