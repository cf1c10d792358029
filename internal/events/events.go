// Package events is the in-process notification channel connecting the
// listing and bid stores to the feed synchronizer. Subscribing is an explicit
// wiring step at startup; publishing is fire-and-forget for the publisher and
// must happen only after the triggering write has committed.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topic names an event stream.
type Topic string

const (
	TopicListingCreated   Topic = "listing.created"
	TopicListingUpdated   Topic = "listing.updated"
	TopicListingWithdrawn Topic = "listing.withdrawn"
	TopicListingSold      Topic = "listing.sold"
	TopicBidPlaced        Topic = "bid.placed"
	TopicBidWithdrawn     Topic = "bid.withdrawn"
	TopicFeedUpdated      Topic = "feed.updated"
)

type ListingCreated struct {
	ListingID uuid.UUID `json:"listing_id"`
	SellerID  uuid.UUID `json:"seller_id"`
}

type ListingUpdated struct {
	ListingID     uuid.UUID `json:"listing_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	ChangedFields []string  `json:"changed_fields"`
}

type ListingWithdrawn struct {
	ListingID uuid.UUID `json:"listing_id"`
	SellerID  uuid.UUID `json:"seller_id"`
}

type ListingSold struct {
	ListingID   uuid.UUID `json:"listing_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	AcceptedBid uuid.UUID `json:"accepted_bid"`
}

type BidPlaced struct {
	ListingID uuid.UUID `json:"listing_id"`
	BidID     uuid.UUID `json:"bid_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

type BidWithdrawn struct {
	BidID       uuid.UUID `json:"bid_id"`
	ListingID   uuid.UUID `json:"listing_id"`
	BidderID    uuid.UUID `json:"bidder_id"`
	Amount      float64   `json:"amount"`
	WithdrawnAt time.Time `json:"withdrawn_at"`
}

// FeedUpdated is advisory only: something in the projection changed. No
// payload guarantees beyond the reason string.
type FeedUpdated struct {
	Reason string `json:"reason"`
}
