package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const imageColumns = `id, listing_id, object_key, position, uploaded_at`

const listImagesByListing = `SELECT ` + imageColumns + `
FROM listing_images WHERE listing_id = $1 ORDER BY position ASC`

func (q *Queries) ListImagesByListing(ctx context.Context, listingID pgtype.UUID) ([]ListingImage, error) {
	rows, err := q.db.Query(ctx, listImagesByListing, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []ListingImage
	for rows.Next() {
		var img ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.ObjectKey, &img.Position, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// DeleteListingImages removes the given images in one statement and returns
// the object keys of the deleted rows so the caller can release the blobs.
// The listing_id guard means ids belonging to other listings are a no-op.
const deleteListingImages = `DELETE FROM listing_images
WHERE listing_id = $1 AND id = ANY($2::uuid[])
RETURNING object_key`

func (q *Queries) DeleteListingImages(ctx context.Context, listingID pgtype.UUID, ids []string) ([]string, error) {
	rows, err := q.db.Query(ctx, deleteListingImages, listingID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// UpdateImagePositions applies the whole reposition set as one bulk UPDATE.
// Reorders may pass through transient duplicate positions (a swap does);
// the (listing_id, position) unique constraint is DEFERRABLE INITIALLY
// DEFERRED so it is only checked against the final state at commit.
const updateImagePositions = `UPDATE listing_images AS li
SET position = u.position
FROM (SELECT unnest($2::uuid[]) AS id, unnest($3::int[]) AS position) AS u
WHERE li.id = u.id AND li.listing_id = $1`

func (q *Queries) UpdateImagePositions(ctx context.Context, listingID pgtype.UUID, ids []string, positions []int32) (int64, error) {
	tag, err := q.db.Exec(ctx, updateImagePositions, listingID, ids, positions)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const createListingImages = `INSERT INTO listing_images (listing_id, object_key, position)
SELECT $1, unnest($2::text[]), unnest($3::int[])
RETURNING ` + imageColumns

func (q *Queries) CreateListingImages(ctx context.Context, listingID pgtype.UUID, objectKeys []string, positions []int32) ([]ListingImage, error) {
	rows, err := q.db.Query(ctx, createListingImages, listingID, objectKeys, positions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []ListingImage
	for rows.Next() {
		var img ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.ObjectKey, &img.Position, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ListImageKeysByListing returns every object key for a listing; used to
// release blobs after the cascade delete of the listing row commits.
const listImageKeysByListing = `SELECT object_key FROM listing_images WHERE listing_id = $1`

func (q *Queries) ListImageKeysByListing(ctx context.Context, listingID pgtype.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, listImageKeysByListing, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
