package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const listingColumns = `id, seller_id, seller_username, title, description, price_min_unit, category, condition, status, created_at, updated_at`

const createListing = `INSERT INTO listings (seller_id, seller_username, title, description, price_min_unit, category, condition, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + listingColumns

type CreateListingParams struct {
	SellerID       pgtype.UUID
	SellerUsername string
	Title          string
	Description    string
	PriceMinUnit   pgtype.Int8
	Category       NullListingCategory
	Condition      NullListingCondition
	Status         ListingStatus
}

func (q *Queries) CreateListing(ctx context.Context, arg CreateListingParams) (Listing, error) {
	row := q.db.QueryRow(ctx, createListing,
		arg.SellerID, arg.SellerUsername, arg.Title, arg.Description,
		arg.PriceMinUnit, arg.Category, arg.Condition, arg.Status,
	)
	return scanListing(row)
}

const getListingByID = `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

func (q *Queries) GetListingByID(ctx context.Context, id pgtype.UUID) (Listing, error) {
	return scanListing(q.db.QueryRow(ctx, getListingByID, id))
}

// GetListingForUpdate takes a row lock so check-then-act sequences
// (publish validation, purchase) serialize on the listing.
const getListingForUpdate = `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 FOR UPDATE`

func (q *Queries) GetListingForUpdate(ctx context.Context, id pgtype.UUID) (Listing, error) {
	return scanListing(q.db.QueryRow(ctx, getListingForUpdate, id))
}

const updateListing = `UPDATE listings SET
    title = COALESCE($2, title),
    description = COALESCE($3, description),
    price_min_unit = COALESCE($4, price_min_unit),
    category = COALESCE($5::listing_category, category),
    condition = COALESCE($6::listing_condition, condition),
    status = COALESCE($7::listing_status, status),
    updated_at = now()
WHERE id = $1
RETURNING ` + listingColumns

type UpdateListingParams struct {
	ID           pgtype.UUID
	Title        pgtype.Text
	Description  pgtype.Text
	PriceMinUnit pgtype.Int8
	Category     pgtype.Text
	Condition    pgtype.Text
	Status       pgtype.Text
}

func (q *Queries) UpdateListing(ctx context.Context, arg UpdateListingParams) (Listing, error) {
	row := q.db.QueryRow(ctx, updateListing,
		arg.ID, arg.Title, arg.Description, arg.PriceMinUnit,
		arg.Category, arg.Condition, arg.Status,
	)
	return scanListing(row)
}

const setListingStatus = `UPDATE listings SET status = $2, updated_at = now() WHERE id = $1`

func (q *Queries) SetListingStatus(ctx context.Context, id pgtype.UUID, status ListingStatus) error {
	_, err := q.db.Exec(ctx, setListingStatus, id, status)
	return err
}

const deleteListing = `DELETE FROM listings WHERE id = $1 AND seller_id = $2`

func (q *Queries) DeleteListing(ctx context.Context, id, sellerID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteListing, id, sellerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListingSummary is the list-view shape: scalar fields plus the derived
// thumbnail key (lowest-position image), computed per read, never stored.
type ListingSummary struct {
	ID           pgtype.UUID
	SellerID     pgtype.UUID
	Title        string
	Description  string
	PriceMinUnit pgtype.Int8
	Category     NullListingCategory
	Condition    NullListingCondition
	Status       ListingStatus
	CreatedAt    pgtype.Timestamptz
	ThumbnailKey pgtype.Text
}

const summaryColumns = `l.id, l.seller_id, l.title, l.description, l.price_min_unit, l.category, l.condition, l.status, l.created_at,
    (SELECT li.object_key FROM listing_images li WHERE li.listing_id = l.id ORDER BY li.position ASC LIMIT 1) AS thumbnail_key`

const getPublishedListings = `SELECT ` + summaryColumns + `
FROM listings l
WHERE l.status = 'published' AND ($1::uuid IS NULL OR l.seller_id <> $1)
ORDER BY l.created_at DESC
LIMIT $2 OFFSET $3`

type GetPublishedListingsParams struct {
	ExcludeSellerID pgtype.UUID
	Limit           int32
	Offset          int32
}

func (q *Queries) GetPublishedListings(ctx context.Context, arg GetPublishedListingsParams) ([]ListingSummary, error) {
	rows, err := q.db.Query(ctx, getPublishedListings, arg.ExcludeSellerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

const getListingsBySeller = `SELECT ` + summaryColumns + `
FROM listings l
WHERE l.seller_id = $1 AND l.status = $2
ORDER BY l.created_at DESC`

func (q *Queries) GetListingsBySeller(ctx context.Context, sellerID pgtype.UUID, status ListingStatus) ([]ListingSummary, error) {
	rows, err := q.db.Query(ctx, getListingsBySeller, sellerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// GetSellerStats replaces the denormalized per-user listing counters the old
// system kept on the user record; counts are derived per request so they can
// never drift from the listings table.
const getSellerStats = `SELECT
    COUNT(*) FILTER (WHERE status = 'published') AS active_count,
    COUNT(*) FILTER (WHERE status = 'sold') AS sold_count
FROM listings WHERE seller_id = $1`

type SellerStats struct {
	ActiveCount int64
	SoldCount   int64
}

func (q *Queries) GetSellerStats(ctx context.Context, sellerID pgtype.UUID) (SellerStats, error) {
	var s SellerStats
	err := q.db.QueryRow(ctx, getSellerStats, sellerID).Scan(&s.ActiveCount, &s.SoldCount)
	return s, err
}

func scanListing(row pgx.Row) (Listing, error) {
	var l Listing
	err := row.Scan(
		&l.ID, &l.SellerID, &l.SellerUsername, &l.Title, &l.Description,
		&l.PriceMinUnit, &l.Category, &l.Condition, &l.Status,
		&l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func scanSummaries(rows pgx.Rows) ([]ListingSummary, error) {
	var items []ListingSummary
	for rows.Next() {
		var s ListingSummary
		if err := rows.Scan(
			&s.ID, &s.SellerID, &s.Title, &s.Description, &s.PriceMinUnit,
			&s.Category, &s.Condition, &s.Status, &s.CreatedAt, &s.ThumbnailKey,
		); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
