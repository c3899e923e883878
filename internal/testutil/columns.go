package testutil

// ListingsCols must match the RETURNING clause order of the listings queries
var ListingsCols = []string{
	"id", "seller_id", "seller_username", "title", "description",
	"price_min_unit", "category", "condition", "status", "created_at", "updated_at",
}

// ListingSummaryCols must match the list-view queries, which append the
// derived thumbnail key
var ListingSummaryCols = []string{
	"id", "seller_id", "title", "description", "price_min_unit",
	"category", "condition", "status", "created_at", "thumbnail_key",
}

// ListingImageCols must match the RETURNING clause order of the listing_images queries
var ListingImageCols = []string{
	"id", "listing_id", "object_key", "position", "uploaded_at",
}

// PurchaseCols must match the RETURNING clause order of the purchases queries
var PurchaseCols = []string{
	"id", "listing_id", "buyer_id", "price_at_purchase", "purchased_at",
}

// CommentCols must match the RETURNING clause order of the comments queries
var CommentCols = []string{
	"id", "listing_id", "user_id", "content", "created_at",
}
