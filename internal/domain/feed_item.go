package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeedItem is a denormalized row of the browse projection, keyed by listing
// id. It is written only by the feed synchronizer reacting to listing events,
// never by readers.
type FeedItem struct {
	ListingID   uuid.UUID  `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Description string     `gorm:"column:description;not null" json:"description"`
	Price       *float64   `gorm:"column:price;type:decimal(18,2)" json:"price"`
	ImageURL    string     `gorm:"column:image_url" json:"image_url"`
	Tags        StringList `gorm:"column:tags;type:json" json:"tags"`
	Status      string     `gorm:"column:status;type:varchar(20)" json:"status"`
	OwnerID     uuid.UUID  `gorm:"column:owner_id;type:uuid;not null" json:"owner_id"`
	// ListingCreatedAt is the source listing's creation time; feed reads sort
	// on it, not on the projection row's own timestamps.
	ListingCreatedAt time.Time `gorm:"column:listing_created_at;index" json:"listing_created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (FeedItem) TableName() string {
	return "feed_items"
}

// FeedItemTag is one tag of a feed row, normalized so tag filters stay in SQL.
// Rows are replaced wholesale on every upsert.
type FeedItemTag struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	Tag       string    `gorm:"column:tag;not null;index" json:"tag"`
}

func (FeedItemTag) TableName() string {
	return "feed_item_tags"
}
