package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingStatus is the lifecycle state of a listing. Active is the only
// initial state; Sold and Withdrawn are terminal.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSold      ListingStatus = "sold"
	ListingWithdrawn ListingStatus = "withdrawn"
)

// StringList stores a string slice as a JSON column so the same model works
// on Postgres and the sqlite test driver.
type StringList []string

// Scan implements sql.Scanner for reading from DB (json column).
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// Value implements driver.Valuer for writing to DB.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	bs, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(bs), nil
}

// Listing is a seller's item for sale. Catalog fields are mutable only while
// the listing is Active, and only by the seller.
type Listing struct {
	ListingID   uuid.UUID     `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	SellerID    uuid.UUID     `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Title       string        `gorm:"column:title;not null" json:"title"`
	Description string        `gorm:"column:description;not null" json:"description"`
	PhotoURLs   StringList    `gorm:"column:photo_urls;type:json" json:"photo_urls"`
	Tags        StringList    `gorm:"column:tags;type:json" json:"tags"`
	MinAsk      *float64      `gorm:"column:min_ask;type:decimal(18,2)" json:"min_ask"`
	Status      ListingStatus `gorm:"column:status;type:varchar(20);default:'active';index" json:"status"`
	AcceptedBid *uuid.UUID    `gorm:"column:accepted_bid;type:uuid" json:"accepted_bid"`
	// BidLog is the append-only record of every bid id ever accepted.
	// Single-entry in practice, kept as a list for audit.
	BidLog    StringList `gorm:"column:bid_log;type:json" json:"bid_log"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}
