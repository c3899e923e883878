package purchases

import (
	"context"
	"log/slog"
	"strings"

	"marketplace/internal/auth"
	"marketplace/internal/cache"
	repo "marketplace/internal/database/postgresql"
	"marketplace/internal/errors"
	"marketplace/internal/events"
	"marketplace/internal/handlers/listings"

	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/trace"
)

type PurchasesService interface {
	PurchaseListing(ctx context.Context, userInfo auth.UserInfo, listingID string) (*PurchaseResponse, error)
	GetPurchaseHistory(ctx context.Context, userInfo auth.UserInfo) ([]PurchaseHistoryItem, error)
}

type svc struct {
	repo           *repo.Queries
	db             repo.DBPool
	logger         *slog.Logger
	eventHandler   *events.EventHandler
	cache          *cache.RedisClient
	publicFilesURL string
}

func NewPurchasesService(queries *repo.Queries, db repo.DBPool, logger *slog.Logger, eventHandler *events.EventHandler, cache *cache.RedisClient, publicFilesURL string) PurchasesService {
	return &svc{
		repo:           queries,
		db:             db,
		logger:         logger,
		eventHandler:   eventHandler,
		cache:          cache,
		publicFilesURL: publicFilesURL,
	}
}

// PurchaseListing records a purchase and flips the listing to sold in one
// transaction. The row lock serialises concurrent buyers; the unique
// constraint on listing_id is the backstop that makes the ledger
// at-most-once even if the status check races.
func (s *svc) PurchaseListing(ctx context.Context, userInfo auth.UserInfo, listingID string) (*PurchaseResponse, error) {
	var id pgtype.UUID
	if err := id.Scan(listingID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid listing ID", err)
	}
	var buyerID pgtype.UUID
	if err := buyerID.Scan(userInfo.ID); err != nil {
		return nil, errors.New(errors.ErrInternal, "Invalid user ID", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to start transaction. Please try again later.", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.repo.WithTx(tx)

	listing, err := qtx.GetListingForUpdate(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, errors.New(errors.ErrNotFound, "Listing not found", err)
		}
		return nil, errors.New(errors.ErrInternal, "Failed to load listing", err)
	}

	if listing.SellerID.Bytes == buyerID.Bytes {
		return nil, errors.New(errors.ErrBusinessRule, "You cannot buy your own listing", nil)
	}
	if listing.Status == repo.ListingStatusSold {
		return nil, errors.New(errors.ErrBusinessRule, "This listing has already been sold", nil)
	}
	if listing.Status != repo.ListingStatusPublished {
		return nil, errors.New(errors.ErrNotFound, "Listing not found", nil)
	}
	if !listing.PriceMinUnit.Valid {
		return nil, errors.New(errors.ErrBusinessRule, "This listing has no price set", nil)
	}

	purchase, err := qtx.CreatePurchase(ctx, repo.CreatePurchaseParams{
		ListingID:       id,
		BuyerID:         buyerID,
		PriceAtPurchase: listing.PriceMinUnit.Int64,
	})
	if err != nil {
		if repo.IsUniqueViolation(err, "purchases_listing_id_key") {
			return nil, errors.New(errors.ErrBusinessRule, "This listing has already been sold", err)
		}
		return nil, errors.New(errors.ErrInternal, "Failed to record purchase. Please try again later.", err)
	}

	if err := qtx.SetListingStatus(ctx, id, repo.ListingStatusSold); err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to update listing status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit purchase", "listing_id", listingID, "error", err)
		return nil, errors.New(errors.ErrInternal, "Failed to finalise transaction", err)
	}

	s.logger.InfoContext(ctx, "Listing purchased",
		"listing_id", listingID,
		"buyer_id", userInfo.ID,
		"price_at_purchase", purchase.PriceAtPurchase,
	)

	s.invalidateDetail(ctx, listingID)
	s.raiseSold(ctx, purchase)

	return &PurchaseResponse{
		Message:         "Purchase successful",
		ID:              repo.UUIDString(purchase.ID),
		ListingID:       repo.UUIDString(purchase.ListingID),
		PriceAtPurchase: purchase.PriceAtPurchase,
		PurchasedAt:     purchase.PurchasedAt.Time,
	}, nil
}

func (s *svc) GetPurchaseHistory(ctx context.Context, userInfo auth.UserInfo) ([]PurchaseHistoryItem, error) {
	var buyerID pgtype.UUID
	if err := buyerID.Scan(userInfo.ID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid user ID provided", err)
	}

	rows, err := s.repo.GetPurchasesByBuyer(ctx, buyerID)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Unable to get purchase history", err)
	}

	items := make([]PurchaseHistoryItem, len(rows))
	for i, row := range rows {
		var thumbnail *string
		if row.ThumbnailKey.Valid {
			u := strings.TrimRight(s.publicFilesURL, "/") + "/" + row.ThumbnailKey.String
			thumbnail = &u
		}
		items[i] = PurchaseHistoryItem{
			ID:              repo.UUIDString(row.ID),
			ListingID:       repo.UUIDString(row.ListingID),
			Title:           row.Title,
			Category:        string(row.Category),
			Thumbnail:       thumbnail,
			PriceAtPurchase: row.PriceAtPurchase,
			PurchasedAt:     row.PurchasedAt.Time,
		}
	}
	return items, nil
}

func (s *svc) invalidateDetail(ctx context.Context, listingID string) {
	if s.cache == nil {
		return
	}
	if err := cache.Del(s.cache, ctx, listings.DetailCacheKey(listingID)); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate listing cache", "listing_id", listingID, "error", err)
	}
}

func (s *svc) raiseSold(ctx context.Context, purchase repo.Purchase) {
	if s.eventHandler == nil {
		return
	}

	spanContext := trace.SpanContextFromContext(ctx)
	traceIDVal := ""
	if spanContext.IsValid() {
		traceIDVal = spanContext.TraceID().String()
	}

	evt := events.ListingSoldEvent{
		ListingID:    repo.UUIDString(purchase.ListingID),
		BuyerID:      repo.UUIDString(purchase.BuyerID),
		PriceMinUnit: purchase.PriceAtPurchase,
		TraceID:      traceIDVal,
	}
	if err := s.eventHandler.RaiseListingSold(evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish listing sold event",
			"listing_id", evt.ListingID, "error", err)
	}
}
