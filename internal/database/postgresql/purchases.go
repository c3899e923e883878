package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createPurchase = `INSERT INTO purchases (listing_id, buyer_id, price_at_purchase)
VALUES ($1, $2, $3)
RETURNING id, listing_id, buyer_id, price_at_purchase, purchased_at`

type CreatePurchaseParams struct {
	ListingID pgtype.UUID
	BuyerID   pgtype.UUID
	// Snapshot of listings.price_min_unit at purchase time; later edits to
	// the listing must not retcon purchase history.
	PriceAtPurchase int64
}

func (q *Queries) CreatePurchase(ctx context.Context, arg CreatePurchaseParams) (Purchase, error) {
	var p Purchase
	err := q.db.QueryRow(ctx, createPurchase, arg.ListingID, arg.BuyerID, arg.PriceAtPurchase).
		Scan(&p.ID, &p.ListingID, &p.BuyerID, &p.PriceAtPurchase, &p.PurchasedAt)
	return p, err
}

type PurchaseWithListing struct {
	ID              pgtype.UUID
	ListingID       pgtype.UUID
	PriceAtPurchase int64
	PurchasedAt     pgtype.Timestamptz
	Title           string
	Category        ListingCategory
	ThumbnailKey    pgtype.Text
}

const getPurchasesByBuyer = `SELECT p.id, p.listing_id, p.price_at_purchase, p.purchased_at, l.title, l.category,
    (SELECT li.object_key FROM listing_images li WHERE li.listing_id = l.id ORDER BY li.position ASC LIMIT 1) AS thumbnail_key
FROM purchases p
JOIN listings l ON l.id = p.listing_id
WHERE p.buyer_id = $1
ORDER BY p.purchased_at DESC`

func (q *Queries) GetPurchasesByBuyer(ctx context.Context, buyerID pgtype.UUID) ([]PurchaseWithListing, error) {
	rows, err := q.db.Query(ctx, getPurchasesByBuyer, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []PurchaseWithListing
	for rows.Next() {
		var p PurchaseWithListing
		if err := rows.Scan(&p.ID, &p.ListingID, &p.PriceAtPurchase, &p.PurchasedAt, &p.Title, &p.Category, &p.ThumbnailKey); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
