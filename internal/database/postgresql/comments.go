package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createComment = `INSERT INTO comments (listing_id, user_id, content)
VALUES ($1, $2, $3)
RETURNING id, listing_id, user_id, content, created_at`

type CreateCommentParams struct {
	ListingID pgtype.UUID
	UserID    pgtype.UUID
	Content   string
}

func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	var c Comment
	err := q.db.QueryRow(ctx, createComment, arg.ListingID, arg.UserID, arg.Content).
		Scan(&c.ID, &c.ListingID, &c.UserID, &c.Content, &c.CreatedAt)
	return c, err
}

const listCommentsByListing = `SELECT id, listing_id, user_id, content, created_at
FROM comments WHERE listing_id = $1 ORDER BY created_at ASC`

func (q *Queries) ListCommentsByListing(ctx context.Context, listingID pgtype.UUID) ([]Comment, error) {
	rows, err := q.db.Query(ctx, listCommentsByListing, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ListingID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
