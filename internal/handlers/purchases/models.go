package purchases

import "time"

type PurchaseResponse struct {
	Message         string    `json:"message"`
	ID              string    `json:"id"`
	ListingID       string    `json:"listing_id"`
	PriceAtPurchase int64     `json:"price_at_purchase"`
	PurchasedAt     time.Time `json:"purchased_at"`
}

// PurchaseHistoryItem joins the ledger row with the listing it bought,
// snapshot price included so later edits to the listing don't rewrite the
// buyer's history.
type PurchaseHistoryItem struct {
	ID              string    `json:"id"`
	ListingID       string    `json:"listing_id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Thumbnail       *string   `json:"thumbnail"`
	PriceAtPurchase int64     `json:"price_at_purchase"`
	PurchasedAt     time.Time `json:"purchased_at"`
}
