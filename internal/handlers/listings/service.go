package listings

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/cache"
	repo "marketplace/internal/database/postgresql"
	"marketplace/internal/errors"
	"marketplace/internal/events"
	"marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/trace"
)

const detailCacheTTL = time.Minute

// DetailCacheKey is shared with the purchases service, which must invalidate
// the cached detail when a listing flips to sold.
func DetailCacheKey(listingID string) string {
	return "listing:detail:" + listingID
}

type ListingsService interface {
	CreateListing(ctx context.Context, userInfo auth.UserInfo, req *CreateListingRequest) (*ListingResponse, error)
	UpdateListing(ctx context.Context, userInfo auth.UserInfo, listingID string, req *UpdateListingRequest) (*ListingResponse, error)
	GetListingByID(ctx context.Context, viewer *auth.UserInfo, listingID string) (*ListingResponse, error)
	GetHomeListings(ctx context.Context, viewer *auth.UserInfo, limit, offset int32) ([]ListingSummaryResponse, error)
	GetMyListings(ctx context.Context, userInfo auth.UserInfo, status string) ([]ListingSummaryResponse, error)
	GetSellerStats(ctx context.Context, userInfo auth.UserInfo) (*SellerStatsResponse, error)
	DeleteListing(ctx context.Context, userInfo auth.UserInfo, listingID string) error
	SaveListing(ctx context.Context, userInfo auth.UserInfo, listingID string) error
	UnsaveListing(ctx context.Context, userInfo auth.UserInfo, listingID string) error
	GetSavedListings(ctx context.Context, userInfo auth.UserInfo) ([]ListingSummaryResponse, error)
}

type svc struct {
	repo           *repo.Queries
	db             repo.DBPool
	logger         *slog.Logger
	storage        storage.Provider
	eventHandler   *events.EventHandler
	cache          *cache.RedisClient
	publicFilesURL string
}

func NewListingsService(queries *repo.Queries, db repo.DBPool, logger *slog.Logger, storage storage.Provider, eventHandler *events.EventHandler, cache *cache.RedisClient, publicFilesURL string) ListingsService {
	return &svc{
		repo:           queries,
		db:             db,
		logger:         logger,
		storage:        storage,
		eventHandler:   eventHandler,
		cache:          cache,
		publicFilesURL: publicFilesURL,
	}
}

func (s *svc) CreateListing(ctx context.Context, userInfo auth.UserInfo, req *CreateListingRequest) (*ListingResponse, error) {
	s.logger.InfoContext(ctx, "Creating listing", "user", userInfo.ID, "title", req.Title)

	status := repo.ListingStatusDraft
	if req.Status != "" {
		status = repo.ListingStatus(req.Status)
	}
	if status != repo.ListingStatusDraft && status != repo.ListingStatusPublished {
		return nil, errors.New(errors.ErrInvalidInput, "New listings start as 'draft' or 'published'", nil)
	}

	if err := validateFields(req.Title, req.PriceMinUnit, req.Category, req.Condition); err != nil {
		s.logger.WarnContext(ctx, "Validation failed", "error", err)
		return nil, err
	}
	if status == repo.ListingStatusPublished {
		if err := publishError(req.Title, req.PriceMinUnit != nil, req.Category != "", req.Condition != ""); err != nil {
			s.logger.WarnContext(ctx, "Publish validation failed", "error", err)
			return nil, err
		}
	}

	// A create has no persisted images yet, so every directive must be a
	// pure create; ids would be cross-listing references.
	for _, d := range req.Directives {
		if _, ok := d.(CreateImage); !ok {
			return nil, errors.New(errors.ErrInvalidInput, "Image directives on a new listing must all be new uploads", nil)
		}
	}

	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return nil, errors.New(errors.ErrInternal, "Invalid user ID", fmt.Errorf("invalid user uuid: %w", err))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to start transaction. Please try again later.", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	qtx := s.repo.WithTx(tx)

	listing, err := qtx.CreateListing(ctx, repo.CreateListingParams{
		SellerID:       userUUID,
		SellerUsername: userInfo.Username,
		Title:          req.Title,
		Description:    req.Description,
		PriceMinUnit:   int8From(req.PriceMinUnit),
		Category:       repo.NullListingCategory{ListingCategory: repo.ListingCategory(req.Category), Valid: req.Category != ""},
		Condition:      repo.NullListingCondition{ListingCondition: repo.ListingCondition(req.Condition), Valid: req.Condition != ""},
		Status:         status,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create listing", "error", err)
		return nil, errors.New(errors.ErrInternal, "Failed to create listing. Please try again later.", fmt.Errorf("failed to create listing: %w", err))
	}

	result, err := s.reconcileImages(ctx, qtx, listing.ID, req.Directives, req.Uploads)
	if err != nil {
		return nil, err
	}

	images, err := qtx.ListImagesByListing(ctx, listing.ID)
	if err != nil {
		s.logOrphans(ctx, result.UploadedKeys)
		return nil, errors.New(errors.ErrInternal, "Failed to load listing images", err)
	}

	if err := s.commit(ctx, tx, result.UploadedKeys); err != nil {
		return nil, err
	}

	if listing.Status == repo.ListingStatusPublished {
		s.raisePublished(ctx, listing)
	}

	return s.toResponse(listing, images, nil, &userInfo), nil
}

func (s *svc) UpdateListing(ctx context.Context, userInfo auth.UserInfo, listingID string, req *UpdateListingRequest) (*ListingResponse, error) {
	var id pgtype.UUID
	if err := id.Scan(listingID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid listing ID", err)
	}
	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return nil, errors.New(errors.ErrInternal, "Invalid user ID", err)
	}

	if err := validateFields(
		strFrom(req.Title, ""),
		req.PriceMinUnit,
		strFrom(req.Category, ""),
		strFrom(req.Condition, ""),
	); err != nil {
		return nil, err
	}
	if req.Status != nil {
		next := repo.ListingStatus(*req.Status)
		if !next.Valid() {
			return nil, errors.New(errors.ErrInvalidInput, "Unknown listing status: "+*req.Status, nil)
		}
		if next == repo.ListingStatusSold {
			return nil, errors.New(errors.ErrBusinessRule, "A listing becomes sold through a purchase, not an edit", nil)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to start transaction. Please try again later.", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.repo.WithTx(tx)

	current, err := qtx.GetListingForUpdate(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, errors.New(errors.ErrNotFound, "Listing not found", err)
		}
		return nil, errors.New(errors.ErrInternal, "Failed to load listing", err)
	}
	if current.SellerID.Bytes != userUUID.Bytes {
		return nil, errors.New(errors.ErrForbidden, "You do not own this listing", nil)
	}
	if current.Status == repo.ListingStatusSold {
		// sold is terminal
		return nil, errors.New(errors.ErrBusinessRule, "Sold listings can no longer be edited", nil)
	}

	// Publish validation runs against the post-update state: a field is
	// present if the request sets it or the row already has it.
	effectiveStatus := current.Status
	if req.Status != nil {
		effectiveStatus = repo.ListingStatus(*req.Status)
	}
	if effectiveStatus == repo.ListingStatusPublished {
		if err := publishError(
			strFrom(req.Title, current.Title),
			req.PriceMinUnit != nil || current.PriceMinUnit.Valid,
			req.Category != nil || current.Category.Valid,
			req.Condition != nil || current.Condition.Valid,
		); err != nil {
			return nil, err
		}
	}

	listing, err := qtx.UpdateListing(ctx, repo.UpdateListingParams{
		ID:           id,
		Title:        textFrom(req.Title),
		Description:  textFrom(req.Description),
		PriceMinUnit: int8From(req.PriceMinUnit),
		Category:     textFrom(req.Category),
		Condition:    textFrom(req.Condition),
		Status:       textFrom(req.Status),
	})
	if err != nil {
		if repo.IsCheckViolation(err) {
			return nil, errors.New(errors.ErrInvalidInput, "Price cannot be negative", err)
		}
		return nil, errors.New(errors.ErrInternal, "Failed to update listing. Please try again later.", err)
	}

	result, err := s.reconcileImages(ctx, qtx, listing.ID, req.Directives, req.Uploads)
	if err != nil {
		return nil, err
	}

	images, err := qtx.ListImagesByListing(ctx, listing.ID)
	if err != nil {
		s.logOrphans(ctx, result.UploadedKeys)
		return nil, errors.New(errors.ErrInternal, "Failed to load listing images", err)
	}

	if err := s.commit(ctx, tx, result.UploadedKeys); err != nil {
		return nil, err
	}

	// Rows are gone; release the blobs. A failed delete leaks the blob, so
	// it is logged loudly rather than failing the committed update.
	s.releaseBlobs(ctx, result.ReleasedKeys)
	s.invalidateDetail(ctx, listingID)

	if current.Status != repo.ListingStatusPublished && listing.Status == repo.ListingStatusPublished {
		s.raisePublished(ctx, listing)
	}

	return s.toResponse(listing, images, nil, &userInfo), nil
}

func (s *svc) GetListingByID(ctx context.Context, viewer *auth.UserInfo, listingID string) (*ListingResponse, error) {
	var id pgtype.UUID
	if err := id.Scan(listingID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid listing ID", err)
	}

	if s.cache != nil {
		if cached, found, err := cache.Get[ListingResponse](s.cache, ctx, DetailCacheKey(listingID)); err == nil && found {
			cached.IsOwner = viewer != nil && cached.Seller.ID == viewer.ID
			return cached, nil
		}
	}

	listing, err := s.repo.GetListingByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, errors.New(errors.ErrNotFound, "Listing not found", err)
		}
		return nil, errors.New(errors.ErrInternal, "Failed to load listing", err)
	}

	isOwner := viewer != nil && viewer.ID == repo.UUIDString(listing.SellerID)
	if listing.Status != repo.ListingStatusPublished && !isOwner {
		// Drafts are private; don't reveal that the listing exists.
		return nil, errors.New(errors.ErrNotFound, "Listing not found", nil)
	}

	images, err := s.repo.ListImagesByListing(ctx, id)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to load listing images", err)
	}
	comments, err := s.repo.ListCommentsByListing(ctx, id)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to load comments", err)
	}

	resp := s.toResponse(listing, images, comments, viewer)

	if s.cache != nil && listing.Status == repo.ListingStatusPublished {
		cacheable := *resp
		cacheable.IsOwner = false
		if err := cache.Set(s.cache, ctx, DetailCacheKey(listingID), cacheable, detailCacheTTL); err != nil {
			s.logger.WarnContext(ctx, "Failed to cache listing detail", "listing_id", listingID, "error", err)
		}
	}

	return resp, nil
}

func (s *svc) GetHomeListings(ctx context.Context, viewer *auth.UserInfo, limit, offset int32) ([]ListingSummaryResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var exclude pgtype.UUID
	if viewer != nil {
		// Browsers shouldn't see their own listings on the home feed.
		_ = exclude.Scan(viewer.ID)
	}

	rows, err := s.repo.GetPublishedListings(ctx, repo.GetPublishedListingsParams{
		ExcludeSellerID: exclude,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to load listings", err)
	}

	return s.toSummaries(rows), nil
}

func (s *svc) GetMyListings(ctx context.Context, userInfo auth.UserInfo, status string) ([]ListingSummaryResponse, error) {
	st := repo.ListingStatus(status)
	if !st.Valid() {
		return nil, errors.New(errors.ErrInvalidInput, "Unknown listing status: "+status, nil)
	}

	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid user ID provided", err)
	}

	rows, err := s.repo.GetListingsBySeller(ctx, userUUID, st)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Unable to get the users listings", err)
	}

	return s.toSummaries(rows), nil
}

func (s *svc) GetSellerStats(ctx context.Context, userInfo auth.UserInfo) (*SellerStatsResponse, error) {
	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid user ID provided", err)
	}

	stats, err := s.repo.GetSellerStats(ctx, userUUID)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Unable to get seller stats", err)
	}

	return &SellerStatsResponse{
		ActiveListings: stats.ActiveCount,
		SoldListings:   stats.SoldCount,
	}, nil
}

func (s *svc) DeleteListing(ctx context.Context, userInfo auth.UserInfo, listingID string) error {
	var id pgtype.UUID
	if err := id.Scan(listingID); err != nil {
		return errors.New(errors.ErrInvalidInput, "Invalid listing ID", err)
	}
	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return errors.New(errors.ErrInternal, "Invalid user ID", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.New(errors.ErrInternal, "Failed to start transaction. Please try again later.", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.repo.WithTx(tx)

	listing, err := qtx.GetListingForUpdate(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return errors.New(errors.ErrNotFound, "Listing not found", err)
		}
		return errors.New(errors.ErrInternal, "Failed to load listing", err)
	}
	if listing.SellerID.Bytes != userUUID.Bytes {
		return errors.New(errors.ErrForbidden, "You do not own this listing", nil)
	}

	// Snapshot the keys before the cascade removes the rows.
	keys, err := qtx.ListImageKeysByListing(ctx, id)
	if err != nil {
		return errors.New(errors.ErrInternal, "Failed to load listing images", err)
	}

	if _, err := qtx.DeleteListing(ctx, id, userUUID); err != nil {
		return errors.New(errors.ErrInternal, "Failed to delete listing", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.New(errors.ErrInternal, "Failed to finalise transaction", err)
	}

	s.releaseBlobs(ctx, keys)
	s.invalidateDetail(ctx, listingID)

	s.logger.InfoContext(ctx, "Deleted listing", "listing_id", listingID, "images_released", len(keys))
	return nil
}

func (s *svc) SaveListing(ctx context.Context, userInfo auth.UserInfo, listingID string) error {
	var id pgtype.UUID
	if err := id.Scan(listingID); err != nil {
		return errors.New(errors.ErrInvalidInput, "Invalid listing ID", err)
	}
	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return errors.New(errors.ErrInternal, "Invalid user ID", err)
	}

	listing, err := s.repo.GetListingByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return errors.New(errors.ErrNotFound, "Listing not found", err)
		}
		return errors.New(errors.ErrInternal, "Failed to load listing", err)
	}
	if listing.Status != repo.ListingStatusPublished && listing.SellerID.Bytes != userUUID.Bytes {
		return errors.New(errors.ErrNotFound, "Listing not found", nil)
	}

	// Re-saving is a no-op; the insert is idempotent.
	if err := s.repo.SaveListing(ctx, id, userUUID); err != nil {
		return errors.New(errors.ErrInternal, "Failed to save listing. Please try again later.", err)
	}
	return nil
}

func (s *svc) UnsaveListing(ctx context.Context, userInfo auth.UserInfo, listingID string) error {
	var id pgtype.UUID
	if err := id.Scan(listingID); err != nil {
		return errors.New(errors.ErrInvalidInput, "Invalid listing ID", err)
	}
	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return errors.New(errors.ErrInternal, "Invalid user ID", err)
	}

	// Removing a listing that was never saved is also a no-op.
	if _, err := s.repo.UnsaveListing(ctx, id, userUUID); err != nil {
		return errors.New(errors.ErrInternal, "Failed to remove saved listing", err)
	}
	return nil
}

func (s *svc) GetSavedListings(ctx context.Context, userInfo auth.UserInfo) ([]ListingSummaryResponse, error) {
	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid user ID provided", err)
	}

	rows, err := s.repo.GetSavedListings(ctx, userUUID)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Unable to get saved listings", err)
	}

	return s.toSummaries(rows), nil
}

type reconcileResult struct {
	Deleted int
	Updated int
	Created int

	// ReleasedKeys are object keys whose rows were deleted in this batch;
	// their blobs are removed after the transaction commits.
	ReleasedKeys []string

	// UploadedKeys are blobs written for created images; orphan candidates
	// if the surrounding transaction rolls back.
	UploadedKeys []string
}

// reconcileImages applies one directive batch against the persisted image
// set: deletions first, then repositions as one bulk update, then creates as
// one bulk insert, all inside the caller's transaction. An empty batch is a
// no-op. Directives whose id does not belong to the listing are ignored, and
// a non-empty batch is authoritative: persisted images it neither keeps nor
// deletes are removed.
func (s *svc) reconcileImages(ctx context.Context, qtx *repo.Queries, listingID pgtype.UUID, directives []Directive, uploads map[string]Upload) (reconcileResult, error) {
	var result reconcileResult
	if len(directives) == 0 {
		return result, nil
	}

	existing, err := qtx.ListImagesByListing(ctx, listingID)
	if err != nil {
		return result, errors.New(errors.ErrInternal, "Failed to load listing images", err)
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, img := range existing {
		existingIDs[repo.UUIDString(img.ID)] = true
	}

	kept := make(map[string]int32)
	deleteSet := make(map[string]bool)
	var creates []CreateImage

	for _, d := range directives {
		switch d := d.(type) {
		case DeleteImage:
			if existingIDs[d.ID] {
				deleteSet[d.ID] = true
			}
		case KeepImage:
			if existingIDs[d.ID] {
				kept[d.ID] = d.Position
			}
		case CreateImage:
			creates = append(creates, d)
		}
	}

	// The batch describes the whole desired set, so anything not mentioned
	// goes too. Iterating the persisted set keeps the id order stable.
	var deleteIDs []string
	for _, img := range existing {
		id := repo.UUIDString(img.ID)
		if _, ok := kept[id]; !ok {
			deleteSet[id] = true
		}
		if deleteSet[id] {
			deleteIDs = append(deleteIDs, id)
		}
	}

	// 1. Deletions first, to free up positions the keeps may move into.
	if len(deleteIDs) > 0 {
		keys, err := qtx.DeleteListingImages(ctx, listingID, deleteIDs)
		if err != nil {
			return result, errors.New(errors.ErrInternal, "Failed to delete listing images", err)
		}
		result.Deleted = len(keys)
		result.ReleasedKeys = keys
	}

	// 2. Repositions as one batch, in directive order. Swaps pass through a
	// transient duplicate; the deferred unique constraint only checks the
	// final state at commit.
	if len(kept) > 0 {
		ids := make([]string, 0, len(kept))
		positions := make([]int32, 0, len(kept))
		seen := make(map[string]bool, len(kept))
		for _, d := range directives {
			k, ok := d.(KeepImage)
			if !ok || seen[k.ID] {
				continue
			}
			pos, exists := kept[k.ID]
			if !exists {
				continue
			}
			seen[k.ID] = true
			ids = append(ids, k.ID)
			positions = append(positions, pos)
		}
		n, err := qtx.UpdateImagePositions(ctx, listingID, ids, positions)
		if err != nil {
			return result, errors.New(errors.ErrInternal, "Failed to reorder listing images", err)
		}
		result.Updated = int(n)
	}

	// 3. Creations: blob first (the store is non-transactional), then one
	// bulk insert.
	if len(creates) > 0 {
		keys := make([]string, 0, len(creates))
		positions := make([]int32, 0, len(creates))
		for _, c := range creates {
			upload := uploads[c.FileKey]
			key := imageObjectKey(repo.UUIDString(listingID), upload.ContentType)

			if err := s.storage.Put(ctx, storage.BucketImages, key, upload.Content, upload.Size, upload.ContentType); err != nil {
				s.logger.ErrorContext(ctx, "Failed to store image blob", "file_key", c.FileKey, "error", err)
				for _, k := range keys {
					s.logger.WarnContext(ctx, "Orphaned blob after failed batch", "object_key", k)
				}
				return result, errors.New(errors.ErrInternal, "Failed to store image. Please try again later.", err)
			}
			keys = append(keys, key)
			positions = append(positions, c.Position)
		}
		result.UploadedKeys = keys

		rows, err := qtx.CreateListingImages(ctx, listingID, keys, positions)
		if err != nil {
			for _, k := range keys {
				s.logger.WarnContext(ctx, "Orphaned blob after failed batch", "object_key", k)
			}
			return result, errors.New(errors.ErrInternal, "Failed to save listing images", err)
		}
		result.Created = len(rows)
	}

	s.logger.InfoContext(ctx, "Reconciled listing images",
		"listing_id", repo.UUIDString(listingID),
		"deleted", result.Deleted,
		"updated", result.Updated,
		"created", result.Created,
	)

	return result, nil
}

// commit finalises the transaction. The deferred unique constraint on
// (listing_id, position) is checked here, so a batch whose final state still
// collides surfaces at commit, not mid-statement.
func (s *svc) commit(ctx context.Context, tx pgx.Tx, uploadedKeys []string) error {
	if err := tx.Commit(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		s.logOrphans(ctx, uploadedKeys)
		if repo.IsUniqueViolation(err, "listing_images_listing_id_position_key") {
			return errors.New(errors.ErrBusinessRule, "Two images cannot share the same position", err)
		}
		return errors.New(errors.ErrInternal, "Failed to finalise transaction", err)
	}
	return nil
}

// logOrphans records blobs written for a batch whose transaction rolled
// back; the periodic sweep picks them up.
func (s *svc) logOrphans(ctx context.Context, keys []string) {
	for _, key := range keys {
		s.logger.WarnContext(ctx, "Orphaned blob after rollback", "object_key", key)
	}
}

func (s *svc) releaseBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, storage.BucketImages, key); err != nil {
			s.logger.ErrorContext(ctx, "Failed to delete image blob; leak candidate", "object_key", key, "error", err)
		}
	}
}

func (s *svc) invalidateDetail(ctx context.Context, listingID string) {
	if s.cache == nil {
		return
	}
	if err := cache.Del(s.cache, ctx, DetailCacheKey(listingID)); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate listing cache", "listing_id", listingID, "error", err)
	}
}

func (s *svc) raisePublished(ctx context.Context, listing repo.Listing) {
	if s.eventHandler == nil {
		return
	}

	spanContext := trace.SpanContextFromContext(ctx)
	traceIDVal := ""
	if spanContext.IsValid() {
		traceIDVal = spanContext.TraceID().String()
	}

	evt := events.ListingPublishedEvent{
		ListingID: repo.UUIDString(listing.ID),
		SellerID:  repo.UUIDString(listing.SellerID),
		TraceID:   traceIDVal,
	}
	// Best effort; consumers resync via a sweep if this is dropped.
	if err := s.eventHandler.RaiseListingPublished(evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish listing published event",
			"listing_id", evt.ListingID, "error", err)
	}
}

func (s *svc) toResponse(listing repo.Listing, images []repo.ListingImage, comments []repo.Comment, viewer *auth.UserInfo) *ListingResponse {
	sellerID := repo.UUIDString(listing.SellerID)

	imgs := make([]ImageResponse, len(images))
	var thumbnail *string
	lowest := int32(0)
	for i, img := range images {
		url := s.publicURL(img.ObjectKey)
		imgs[i] = ImageResponse{
			ID:       repo.UUIDString(img.ID),
			ImageURL: url,
			Order:    img.Position,
		}
		if thumbnail == nil || img.Position < lowest {
			u := url
			thumbnail = &u
			lowest = img.Position
		}
	}

	var commentResponses []CommentResponse
	for _, c := range comments {
		commentResponses = append(commentResponses, CommentResponse{
			ID:        repo.UUIDString(c.ID),
			UserID:    repo.UUIDString(c.UserID),
			Content:   c.Content,
			CreatedAt: c.CreatedAt.Time,
		})
	}

	return &ListingResponse{
		ID: repo.UUIDString(listing.ID),
		Seller: SellerResponse{
			ID:       sellerID,
			Username: listing.SellerUsername,
		},
		Title:        listing.Title,
		Description:  listing.Description,
		PriceMinUnit: int64Ptr(listing.PriceMinUnit),
		Category:     categoryPtr(listing.Category),
		Condition:    conditionPtr(listing.Condition),
		Status:       string(listing.Status),
		CreatedAt:    listing.CreatedAt.Time,
		UpdatedAt:    listing.UpdatedAt.Time,
		Images:       imgs,
		Thumbnail:    thumbnail,
		IsOwner:      viewer != nil && viewer.ID == sellerID,
		Comments:     commentResponses,
	}
}

func (s *svc) toSummaries(rows []repo.ListingSummary) []ListingSummaryResponse {
	summaries := make([]ListingSummaryResponse, len(rows))
	for i, row := range rows {
		var thumbnail *string
		if row.ThumbnailKey.Valid {
			u := s.publicURL(row.ThumbnailKey.String)
			thumbnail = &u
		}
		summaries[i] = ListingSummaryResponse{
			ID:           repo.UUIDString(row.ID),
			Title:        row.Title,
			Description:  row.Description,
			PriceMinUnit: int64Ptr(row.PriceMinUnit),
			Category:     categoryPtr(row.Category),
			Status:       string(row.Status),
			CreatedAt:    row.CreatedAt.Time,
			Thumbnail:    thumbnail,
		}
	}
	return summaries
}

func (s *svc) publicURL(objectKey string) string {
	return strings.TrimRight(s.publicFilesURL, "/") + "/" + objectKey
}

// validateFields checks the always-on rules; publish completeness is
// handled separately by publishError.
func validateFields(title string, price *int64, category, condition string) error {
	if len(title) > 60 {
		return errors.New(errors.ErrInvalidInput, "Title must be at most 60 characters", nil)
	}
	if price != nil && *price < 0 {
		return errors.New(errors.ErrInvalidInput, "Price cannot be negative", nil)
	}
	if category != "" && !repo.ListingCategory(category).Valid() {
		return errors.New(errors.ErrInvalidInput, "Unknown category: "+category, nil)
	}
	if condition != "" && !repo.ListingCondition(condition).Valid() {
		return errors.New(errors.ErrInvalidInput, "Unknown condition: "+condition, nil)
	}
	return nil
}

// publishError reports which of the publish-required fields are missing,
// naming every one of them in the message.
func publishError(title string, hasPrice, hasCategory, hasCondition bool) error {
	var missing []string
	if strings.TrimSpace(title) == "" {
		missing = append(missing, "title")
	}
	if !hasPrice {
		missing = append(missing, "price")
	}
	if !hasCategory {
		missing = append(missing, "category")
	}
	if !hasCondition {
		missing = append(missing, "condition")
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.New(errors.ErrInvalidInput,
		"Cannot publish listing: missing required fields: "+strings.Join(missing, ", "), nil)
}

func imageObjectKey(listingID, contentType string) string {
	return path.Join("listings", listingID, uuid.NewString()+extensionForMime(contentType))
}

func extensionForMime(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".img"
	}
}

func int8From(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func int64Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func textFrom(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func strFrom(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func categoryPtr(c repo.NullListingCategory) *string {
	if !c.Valid {
		return nil
	}
	s := string(c.ListingCategory)
	return &s
}

func conditionPtr(c repo.NullListingCondition) *string {
	if !c.Valid {
		return nil
	}
	s := string(c.ListingCondition)
	return &s
}
