package comments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"marketplace/internal/auth"
	repo "marketplace/internal/database/postgresql"
	"marketplace/internal/errors"

	"github.com/jackc/pgx/v5/pgtype"
)

const maxCommentLength = 2000

type CommentRequest struct {
	Content string `json:"content"`
}

type CommentResponse struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentsService interface {
	AddComment(ctx context.Context, userInfo auth.UserInfo, listingID string, req *CommentRequest) (*CommentResponse, error)
	GetComments(ctx context.Context, listingID string) ([]CommentResponse, error)
}

type svc struct {
	repo   *repo.Queries
	logger *slog.Logger
}

func NewCommentsService(queries *repo.Queries, logger *slog.Logger) CommentsService {
	return &svc{
		repo:   queries,
		logger: logger,
	}
}

func (s *svc) AddComment(ctx context.Context, userInfo auth.UserInfo, listingID string, req *CommentRequest) (*CommentResponse, error) {
	var id pgtype.UUID
	if err := id.Scan(listingID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid listing ID", err)
	}
	var userUUID pgtype.UUID
	if err := userUUID.Scan(userInfo.ID); err != nil {
		return nil, errors.New(errors.ErrInternal, "Invalid user ID", err)
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, errors.New(errors.ErrInvalidInput, "Comment cannot be empty", nil)
	}
	if len(content) > maxCommentLength {
		return nil, errors.New(errors.ErrInvalidInput, "Comment is too long", nil)
	}

	listing, err := s.repo.GetListingByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, errors.New(errors.ErrNotFound, "Listing not found", err)
		}
		return nil, errors.New(errors.ErrInternal, "Failed to load listing", err)
	}
	if listing.Status == repo.ListingStatusDraft && listing.SellerID.Bytes != userUUID.Bytes {
		return nil, errors.New(errors.ErrNotFound, "Listing not found", nil)
	}

	comment, err := s.repo.CreateComment(ctx, repo.CreateCommentParams{
		ListingID: id,
		UserID:    userUUID,
		Content:   content,
	})
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to add comment. Please try again later.", err)
	}

	s.logger.InfoContext(ctx, "Comment added", "listing_id", listingID, "user_id", userInfo.ID)

	return toResponse(comment), nil
}

func (s *svc) GetComments(ctx context.Context, listingID string) ([]CommentResponse, error) {
	var id pgtype.UUID
	if err := id.Scan(listingID); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "Invalid listing ID", err)
	}

	comments, err := s.repo.ListCommentsByListing(ctx, id)
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to load comments", err)
	}

	responses := make([]CommentResponse, len(comments))
	for i, c := range comments {
		responses[i] = *toResponse(c)
	}
	return responses, nil
}

func toResponse(c repo.Comment) *CommentResponse {
	return &CommentResponse{
		ID:        repo.UUIDString(c.ID),
		ListingID: repo.UUIDString(c.ListingID),
		UserID:    repo.UUIDString(c.UserID),
		Content:   c.Content,
		CreatedAt: c.CreatedAt.Time,
	}
}
