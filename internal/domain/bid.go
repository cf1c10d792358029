package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BidStatus is the lifecycle state of a bid. The only transition is
// Active -> Withdrawn and it is irreversible.
type BidStatus string

const (
	BidActive    BidStatus = "active"
	BidWithdrawn BidStatus = "withdrawn"
)

// Bid is a buyer's offer against a listing. The ledger references listings by
// id only and never checks the listing store.
type Bid struct {
	BidID     uuid.UUID `gorm:"column:bid_id;type:uuid;primaryKey" json:"bid_id"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	BidderID  uuid.UUID `gorm:"column:bidder_id;type:uuid;not null" json:"bidder_id"`
	Amount    float64   `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Status    BidStatus `gorm:"column:status;type:varchar(20);default:'active';index" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Bid) TableName() string {
	return "bids"
}

// BeforeCreate sets bid_id if not already set.
func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.BidID == uuid.Nil {
		b.BidID = uuid.New()
	}
	return nil
}
