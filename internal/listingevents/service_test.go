package listingevents

import (
	"context"
	"testing"
	"time"

	"bazaar-backend/internal/domain"
	"bazaar-backend/internal/pkg/apperrors"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupEventsTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ListingEvent{}))
	return &Service{DB: db}, db
}

// Events come back in chronological order, scoped to one listing.
func TestGetListingEvents(t *testing.T) {
	svc, db := setupEventsTest(t)
	listingID, otherID := uuid.New(), uuid.New()
	now := time.Now()

	for i, typ := range []string{"CREATED", "UPDATED", "WITHDRAWN"} {
		require.NoError(t, db.Create(&domain.ListingEvent{
			ListingID: listingID,
			EventType: typ,
			EventData: datatypes.JSON([]byte(`{}`)),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}).Error)
	}
	require.NoError(t, db.Create(&domain.ListingEvent{
		ListingID: otherID,
		EventType: "CREATED",
		EventData: datatypes.JSON([]byte(`{}`)),
	}).Error)

	evts, err := svc.GetListingEvents(context.Background(), listingID)
	require.NoError(t, err)
	require.Len(t, evts, 3)
	assert.Equal(t, "CREATED", evts[0].EventType)
	assert.Equal(t, "WITHDRAWN", evts[2].EventType)
}

func TestGetListingEvents_NilID(t *testing.T) {
	svc, _ := setupEventsTest(t)
	_, err := svc.GetListingEvents(context.Background(), uuid.Nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
