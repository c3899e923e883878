package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Saving is idempotent: re-saving an already-saved listing is a no-op
// rather than a constraint error.
const saveListing = `INSERT INTO saved_listings (listing_id, user_id)
VALUES ($1, $2)
ON CONFLICT ON CONSTRAINT saved_listings_listing_id_user_id_key DO NOTHING`

func (q *Queries) SaveListing(ctx context.Context, listingID, userID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, saveListing, listingID, userID)
	return err
}

const unsaveListing = `DELETE FROM saved_listings WHERE listing_id = $1 AND user_id = $2`

func (q *Queries) UnsaveListing(ctx context.Context, listingID, userID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, unsaveListing, listingID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getSavedListings = `SELECT ` + summaryColumns + `
FROM listings l
JOIN saved_listings sl ON sl.listing_id = l.id
WHERE sl.user_id = $1
ORDER BY sl.saved_at DESC`

func (q *Queries) GetSavedListings(ctx context.Context, userID pgtype.UUID) ([]ListingSummary, error) {
	rows, err := q.db.Query(ctx, getSavedListings, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}
