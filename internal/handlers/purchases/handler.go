package purchases

import (
	"log/slog"
	"net/http"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/json"

	"github.com/go-chi/chi/v5"
)

type PurchasesHandler struct {
	service PurchasesService
}

func NewPurchasesHandler(svc PurchasesService) *PurchasesHandler {
	return &PurchasesHandler{
		service: svc,
	}
}

func (h *PurchasesHandler) PurchaseListing(w http.ResponseWriter, r *http.Request) {
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

	slog.DebugContext(ctx, "Purchasing listing", "user_id", userInfo.ID, "listing_id", listingID)

	purchase, err := h.service.PurchaseListing(ctx, userInfo, listingID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to purchase listing", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, purchase)
}

func (h *PurchasesHandler) GetPurchaseHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userInfo, err := auth.GetUserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Unauthorized access attempt", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrUnauthorized, "Unauthorized access", err))
		return
	}

	slog.DebugContext(ctx, "Fetching purchase history", "user_id", userInfo.ID)

	history, err := h.service.GetPurchaseHistory(ctx, userInfo)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch purchase history", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, history)
}
