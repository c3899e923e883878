package events

import (
	"os"
)

// ListingPublishedEvent feeds the downstream search indexer. Ranking and
// index shape are the consumer's problem; we only announce the change.
type ListingPublishedEvent struct {
	ListingID string `json:"listing_id"`
	SellerID  string `json:"seller_id"`
	TraceID   string `json:"trace_id"`
}

// ListingSoldEvent is emitted after a purchase commits so consumers
// (indexer, notifications) can react. Best effort: the purchase stands even
// if publishing fails.
type ListingSoldEvent struct {
	ListingID    string `json:"listing_id"`
	BuyerID      string `json:"buyer_id"`
	PriceMinUnit int64  `json:"price_min_unit"`
	TraceID      string `json:"trace_id"`
}

type EventConfig struct {
	ListingPublished string
	ListingSold      string
}

func NewEventConfig() *EventConfig {
	return &EventConfig{
		ListingPublished: os.Getenv("EVENT_LISTING_PUBLISHED"),
		ListingSold:      os.Getenv("EVENT_LISTING_SOLD"),
	}
}
