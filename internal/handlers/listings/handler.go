package listings

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/json"

	"github.com/go-chi/chi/v5"
)

// maxFormMemory caps how much of a multipart body is buffered in memory;
// larger uploads spill to temp files.
const maxFormMemory = 32 << 20

type ListingsHandler struct {
	service    ListingsService
	constraint ImageConstraint
}

func NewListingsHandler(svc ListingsService, constraint ImageConstraint) *ListingsHandler {
	return &ListingsHandler{
		service:    svc,
		constraint: constraint,
	}
}

func (h *ListingsHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userInfo, err := auth.GetUserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Unauthorized access attempt", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrUnauthorized, "Unauthorized access", err))
		return
	}

	slog.DebugContext(ctx, "Creating listing", "user_id", userInfo.ID)

	req, closers, err := h.parseCreateForm(r)
	defer closeAll(closers)
	if err != nil {
		slog.WarnContext(ctx, "Invalid request body", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	listing, err := h.service.CreateListing(ctx, userInfo, req)
	if err != nil {
		slog.WarnContext(ctx, "Failed to create listing", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusCreated, listing)
}

func (h *ListingsHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listingID := chi.URLParam(r, "id")
	userInfo, err := auth.GetUserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Unauthorized access attempt", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrUnauthorized, "Unauthorized access", err))
		return
	}

	slog.DebugContext(ctx, "Updating listing", "user_id", userInfo.ID, "listing_id", listingID)

	req, closers, err := h.parseUpdateForm(r)
	defer closeAll(closers)
	if err != nil {
		slog.WarnContext(ctx, "Invalid request body", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	listing, err := h.service.UpdateListing(ctx, userInfo, listingID, req)
	if err != nil {
		slog.WarnContext(ctx, "Failed to update listing", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, listing)
}

func (h *ListingsHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
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

	slog.DebugContext(ctx, "Deleting listing", "user_id", userInfo.ID, "listing_id", listingID)

	if err := h.service.DeleteListing(ctx, userInfo, listingID); err != nil {
		slog.WarnContext(ctx, "Failed to delete listing", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusNoContent, nil)
}

// GetListingByID is public; a bearer token is honoured when present so the
// owner sees their own drafts.
func (h *ListingsHandler) GetListingByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		slog.WarnContext(ctx, "Missing listing ID in request")
		errors.RespondError(w, r, errors.New(errors.ErrInvalidInput, "Listing ID is required", nil))
		return
	}

	slog.DebugContext(ctx, "Fetching listing by ID", "listing_id", listingID)

	listing, err := h.service.GetListingByID(ctx, maybeViewer(r), listingID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch listing by ID", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, listing)
}

func (h *ListingsHandler) GetHomeListings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := queryInt32(r, "limit", 20)
	offset := queryInt32(r, "offset", 0)

	listings, err := h.service.GetHomeListings(ctx, maybeViewer(r), limit, offset)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch home listings", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, listings)
}

func (h *ListingsHandler) GetMyListings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userInfo, err := auth.GetUserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Unauthorized access attempt", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrUnauthorized, "Unauthorized access", err))
		return
	}

	status := chi.URLParam(r, "status")
	slog.DebugContext(ctx, "Fetching listings for user", "user_id", userInfo.ID, "status", status)

	listings, err := h.service.GetMyListings(ctx, userInfo, status)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch listings for user", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, listings)
}

func (h *ListingsHandler) GetSellerStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userInfo, err := auth.GetUserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Unauthorized access attempt", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrUnauthorized, "Unauthorized access", err))
		return
	}

	stats, err := h.service.GetSellerStats(ctx, userInfo)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch seller stats", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, stats)
}

func (h *ListingsHandler) SaveListing(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.SaveListing(ctx, userInfo, listingID); err != nil {
		slog.WarnContext(ctx, "Failed to save listing", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusNoContent, nil)
}

func (h *ListingsHandler) UnsaveListing(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.UnsaveListing(ctx, userInfo, listingID); err != nil {
		slog.WarnContext(ctx, "Failed to remove saved listing", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusNoContent, nil)
}

func (h *ListingsHandler) GetSavedListings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userInfo, err := auth.GetUserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Unauthorized access attempt", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrUnauthorized, "Unauthorized access", err))
		return
	}

	listings, err := h.service.GetSavedListings(ctx, userInfo)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch saved listings", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, listings)
}

func (h *ListingsHandler) parseCreateForm(r *http.Request) (*CreateListingRequest, []multipart.File, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, nil, errors.New(errors.ErrInvalidInput, "Request body must be multipart form data", err)
	}

	req := &CreateListingRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Condition:   r.FormValue("condition"),
		Status:      r.FormValue("status"),
	}

	if raw := r.FormValue("price_min_unit"); raw != "" {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, nil, errors.New(errors.ErrInvalidInput, "Price must be a whole number of minor units", err)
		}
		req.PriceMinUnit = &price
	}

	uploads, closers, err := h.parseUploads(r)
	if err != nil {
		return nil, closers, err
	}
	req.Uploads = uploads

	req.Directives, err = ParseDirectives([]byte(r.FormValue("image_updates")), uploads)
	if err != nil {
		return nil, closers, err
	}

	return req, closers, nil
}

func (h *ListingsHandler) parseUpdateForm(r *http.Request) (*UpdateListingRequest, []multipart.File, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, nil, errors.New(errors.ErrInvalidInput, "Request body must be multipart form data", err)
	}

	req := &UpdateListingRequest{
		Title:       formValuePtr(r, "title"),
		Description: formValuePtr(r, "description"),
		Category:    formValuePtr(r, "category"),
		Condition:   formValuePtr(r, "condition"),
		Status:      formValuePtr(r, "status"),
	}

	if raw := formValuePtr(r, "price_min_unit"); raw != nil {
		price, err := strconv.ParseInt(*raw, 10, 64)
		if err != nil {
			return nil, nil, errors.New(errors.ErrInvalidInput, "Price must be a whole number of minor units", err)
		}
		req.PriceMinUnit = &price
	}

	uploads, closers, err := h.parseUploads(r)
	if err != nil {
		return nil, closers, err
	}
	req.Uploads = uploads

	req.Directives, err = ParseDirectives([]byte(r.FormValue("image_updates")), uploads)
	if err != nil {
		return nil, closers, err
	}

	return req, closers, nil
}

// parseUploads collects the file parts of the form, keyed by their form field
// name. The field name is the correlation key the image directives refer to.
func (h *ListingsHandler) parseUploads(r *http.Request) (map[string]Upload, []multipart.File, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		return nil, nil, nil
	}

	uploads := make(map[string]Upload, len(r.MultipartForm.File))
	var closers []multipart.File

	for fileKey, headers := range r.MultipartForm.File {
		if len(headers) != 1 {
			return nil, closers, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("File key %q must carry exactly one file", fileKey), nil)
		}
		header := headers[0]

		contentType := header.Header.Get("Content-Type")
		if err := h.constraint.Validate(header.Size, contentType); err != nil {
			return nil, closers, err
		}

		file, err := header.Open()
		if err != nil {
			return nil, closers, errors.New(errors.ErrInternal, "Failed to read uploaded file", err)
		}
		closers = append(closers, file)

		uploads[fileKey] = Upload{
			FileKey:     fileKey,
			ContentType: contentType,
			Size:        header.Size,
			Content:     file,
		}
	}

	return uploads, closers, nil
}

func maybeViewer(r *http.Request) *auth.UserInfo {
	if user, ok := auth.MaybeUserInfo(r.Context()); ok {
		return &user
	}
	return nil
}

func formValuePtr(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func queryInt32(r *http.Request, key string, fallback int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(n)
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		f.Close()
	}
}
