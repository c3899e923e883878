package listings

import (
	"fmt"
	"io"
	"slices"
	"time"

	"marketplace/internal/errors"
)

// Upload is one multipart file from the request, keyed by the manifest key
// that create directives reference.
type Upload struct {
	FileKey     string
	ContentType string
	Size        int64
	Content     io.Reader
}

// ImageConstraint bounds what we accept as a listing photo.
type ImageConstraint struct {
	MaxSize          int64
	AllowedMimeTypes []string
}

func (c ImageConstraint) Validate(size int64, contentType string) error {
	if c.MaxSize > 0 && size > c.MaxSize {
		return errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Image exceeds the maximum size of %d bytes", c.MaxSize), nil)
	}
	if len(c.AllowedMimeTypes) > 0 && !slices.Contains(c.AllowedMimeTypes, contentType) {
		return errors.New(errors.ErrInvalidInput,
			"Unsupported image type: "+contentType, nil)
	}
	return nil
}

type CreateListingRequest struct {
	Title        string
	Description  string
	PriceMinUnit *int64
	Category     string
	Condition    string
	Status       string

	// Directives must all be creates here; a create request has no existing
	// images to keep or delete.
	Directives []Directive
	Uploads    map[string]Upload
}

type UpdateListingRequest struct {
	// Pointers distinguish "leave unchanged" from "set to zero value".
	Title        *string
	Description  *string
	PriceMinUnit *int64
	Category     *string
	Condition    *string
	Status       *string

	Directives []Directive
	Uploads    map[string]Upload
}

type ImageResponse struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url"`
	Order    int32  `json:"order"`
}

type SellerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type CommentResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ListingResponse struct {
	ID           string            `json:"id"`
	Seller       SellerResponse    `json:"seller"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	PriceMinUnit *int64            `json:"price_min_unit"`
	Category     *string           `json:"category"`
	Condition    *string           `json:"condition"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Images       []ImageResponse   `json:"images"`
	Thumbnail    *string           `json:"thumbnail"`
	IsOwner      bool              `json:"is_owner"`
	Comments     []CommentResponse `json:"comments,omitempty"`
}

type ListingSummaryResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PriceMinUnit *int64    `json:"price_min_unit"`
	Category     *string   `json:"category"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Thumbnail    *string   `json:"thumbnail"`
}

type SellerStatsResponse struct {
	ActiveListings int64 `json:"active_listings"`
	SoldListings   int64 `json:"sold_listings"`
}
