package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"bazaar-backend/internal/config"
	"bazaar-backend/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAppTest(t *testing.T) *fiber.App {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Env:                 "test",
		FeedCacheTTL:        time.Minute,
		FeedDefaultPageSize: 20,
	}
	return Build(cfg, db, rdb)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, actor *uuid.UUID, body interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set("X-Actor-Id", actor.String())
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp.StatusCode, parsed
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

// Mutating routes without an actor header are rejected.
func TestRoutes_RequireActor(t *testing.T) {
	app := setupAppTest(t)
	status, _ := doJSON(t, app, "POST", "/api/v1/listings/create-listing", nil, map[string]interface{}{
		"title": "Bike", "description": "d",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

// Full sale flow over HTTP: create listing -> feed row appears -> place bid ->
// accept bid -> listing sold, feed row gone, audit trail complete.
func TestScenario_SaleFlow(t *testing.T) {
	app := setupAppTest(t)
	seller, bidder := uuid.New(), uuid.New()

	status, body := doJSON(t, app, "POST", "/api/v1/listings/create-listing", &seller, map[string]interface{}{
		"title":       "Bike",
		"description": "A sturdy city bike",
		"photo_urls":  []string{"https://img.example.com/bike.jpg"},
		"tags":        []string{"bikes"},
		"min_ask":     100,
	})
	require.Equal(t, fiber.StatusCreated, status)
	listing := data(t, body)["listing"].(map[string]interface{})
	listingID := listing["listing_id"].(string)

	// Projection caught up synchronously.
	status, body = doJSON(t, app, "GET", "/api/v1/feed/latest", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	items := data(t, body)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Bike", items[0].(map[string]interface{})["title"])

	status, body = doJSON(t, app, "POST", "/api/v1/bids/place-bid", &bidder, map[string]interface{}{
		"listing_id": listingID,
		"amount":     150,
	})
	require.Equal(t, fiber.StatusCreated, status)
	bid := data(t, body)["bid"].(map[string]interface{})
	bidID := bid["bid_id"].(string)

	status, body = doJSON(t, app, "GET", "/api/v1/bids/get-current-high/"+listingID, nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	high := data(t, body)["bid"].(map[string]interface{})
	assert.Equal(t, bidID, high["bid_id"])

	status, body = doJSON(t, app, "POST", "/api/v1/listings/accept-bid", &seller, map[string]interface{}{
		"listing_id": listingID,
		"bid_id":     bidID,
	})
	require.Equal(t, fiber.StatusOK, status)
	sold := data(t, body)["listing"].(map[string]interface{})
	assert.Equal(t, "sold", sold["status"])
	assert.Equal(t, bidID, sold["accepted_bid"])

	// Sold listings are not purchasable, so the feed row is removed.
	status, body = doJSON(t, app, "GET", "/api/v1/feed/latest", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	items = data(t, body)["items"].([]interface{})
	assert.Empty(t, items)

	// Audit trail: CREATED, BID_PLACED, SOLD in order.
	status, body = doJSON(t, app, "GET", "/api/v1/listing-events/"+listingID, nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	evts := data(t, body)["events"].([]interface{})
	require.Len(t, evts, 3)
	types := make([]string, len(evts))
	for i, e := range evts {
		types[i] = e.(map[string]interface{})["event_type"].(string)
	}
	assert.Equal(t, []string{"CREATED", "BID_PLACED", "SOLD"}, types)
}

// Editing an Active listing updates the projection row in place.
func TestScenario_EditPropagatesToFeed(t *testing.T) {
	app := setupAppTest(t)
	seller := uuid.New()

	status, body := doJSON(t, app, "POST", "/api/v1/listings/create-listing", &seller, map[string]interface{}{
		"title":       "Bike",
		"description": "A sturdy city bike",
		"tags":        []string{"bikes"},
	})
	require.Equal(t, fiber.StatusCreated, status)
	listingID := data(t, body)["listing"].(map[string]interface{})["listing_id"].(string)

	status, _ = doJSON(t, app, "PUT", "/api/v1/listings/edit-listing", &seller, map[string]interface{}{
		"listing_id": listingID,
		"title":      "New",
	})
	require.Equal(t, fiber.StatusOK, status)

	status, body = doJSON(t, app, "GET", "/api/v1/feed/latest", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	items := data(t, body)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "New", items[0].(map[string]interface{})["title"])
}

// Error mapping: stranger edits -> 403; edit after withdraw -> 409;
// unknown listing -> 404; bad amount -> 400.
func TestRoutes_ErrorMapping(t *testing.T) {
	app := setupAppTest(t)
	seller, stranger := uuid.New(), uuid.New()

	status, body := doJSON(t, app, "POST", "/api/v1/listings/create-listing", &seller, map[string]interface{}{
		"title":       "Bike",
		"description": "A sturdy city bike",
	})
	require.Equal(t, fiber.StatusCreated, status)
	listingID := data(t, body)["listing"].(map[string]interface{})["listing_id"].(string)

	status, _ = doJSON(t, app, "PUT", "/api/v1/listings/edit-listing", &stranger, map[string]interface{}{
		"listing_id": listingID,
		"title":      "Hijacked",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, app, "POST", "/api/v1/listings/withdraw-listing", &seller, map[string]interface{}{
		"listing_id": listingID,
	})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "PUT", "/api/v1/listings/edit-listing", &seller, map[string]interface{}{
		"listing_id": listingID,
		"title":      "Too late",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = doJSON(t, app, "GET", "/api/v1/listings/get-listing/"+uuid.New().String(), nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "POST", "/api/v1/bids/place-bid", &stranger, map[string]interface{}{
		"listing_id": listingID,
		"amount":     -5,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

// Feed filter endpoint dispatches tags, price, and combined filters.
func TestRoutes_FeedFilter(t *testing.T) {
	app := setupAppTest(t)
	seller := uuid.New()
	for i, row := range []struct {
		title string
		ask   float64
		tag   string
	}{{"Bike", 100, "wheels"}, {"Car", 5000, "wheels"}, {"Lamp", 80, "home"}} {
		status, _ := doJSON(t, app, "POST", "/api/v1/listings/create-listing", &seller, map[string]interface{}{
			"title":       row.title,
			"description": fmt.Sprintf("item %d", i),
			"tags":        []string{row.tag},
			"min_ask":     row.ask,
		})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := doJSON(t, app, "GET", "/api/v1/feed/filter?tags=wheels", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, data(t, body)["items"].([]interface{}), 2)

	status, body = doJSON(t, app, "GET", "/api/v1/feed/filter?min_price=50&max_price=200", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, data(t, body)["items"].([]interface{}), 2)

	status, body = doJSON(t, app, "GET", "/api/v1/feed/filter?tags=wheels&min_price=50&max_price=200", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	items := data(t, body)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Bike", items[0].(map[string]interface{})["title"])

	status, _ = doJSON(t, app, "GET", "/api/v1/feed/filter", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, "GET", "/api/v1/feed/filter?min_price=200&max_price=50", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

// Health endpoint reports connected dependencies.
func TestRoutes_Health(t *testing.T) {
	app := setupAppTest(t)
	status, body := doJSON(t, app, "GET", "/health/json", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
