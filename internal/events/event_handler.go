package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

type EventHandler struct {
	bus    Bus
	config *EventConfig
	logger *slog.Logger
}

func NewEventHandler(bus Bus, config *EventConfig, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		bus:    bus,
		config: config,
		logger: logger,
	}
}

func (h *EventHandler) RaiseListingPublished(evt ListingPublishedEvent) error {
	h.logger.Info("Raising listing published event",
		"listing_id", evt.ListingID,
		"seller_id", evt.SellerID,
	)

	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("Failed to marshal ListingPublishedEvent", "error", err)
		return err
	}

	// MsgId dedupes redelivery on the JetStream side.
	msgId := fmt.Sprintf("published.%s", evt.ListingID)
	return h.bus.Publish(h.config.ListingPublished, data, msgId)
}

func (h *EventHandler) RaiseListingSold(evt ListingSoldEvent) error {
	h.logger.Info("Raising listing sold event",
		"listing_id", evt.ListingID,
		"buyer_id", evt.BuyerID,
	)

	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("Failed to marshal ListingSoldEvent", "error", err)
		return err
	}

	msgId := fmt.Sprintf("sold.%s", evt.ListingID)
	return h.bus.Publish(h.config.ListingSold, data, msgId)
}
