package app

import (
	"bazaar-backend/internal/bids"
	"bazaar-backend/internal/config"
	"bazaar-backend/internal/database"
	"bazaar-backend/internal/events"
	"bazaar-backend/internal/feed"
	"bazaar-backend/internal/health"
	"bazaar-backend/internal/listingevents"
	"bazaar-backend/internal/listings"
	"bazaar-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp opens the backing stores from config and builds the Fiber app.
func CreateApp(cfg *config.Config) (*fiber.App, error) {
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opt)
	}

	return Build(cfg, db, rdb), nil
}

// Build wires middleware, services, event subscriptions and routes. Split
// from CreateApp so tests can inject an in-memory DB and miniredis.
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedSuffix: cfg.FrontendURLEndsWith}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Actor())

	healthHandlers := &health.Handlers{DB: db, Rdb: rdb}
	app.Get("/health/json", healthHandlers.JSON)

	if db != nil {
		// One broker instance per process; subscriber registration happens
		// here, nowhere else.
		broker := events.NewInProc()

		listingsService := &listings.Service{DB: db, Broker: broker}
		bidsService := &bids.Service{DB: db, Broker: broker}
		feedService := &feed.Service{
			DB:       db,
			Rdb:      rdb,
			Broker:   broker,
			Source:   listingsService,
			CacheTTL: cfg.FeedCacheTTL,
			PageSize: cfg.FeedDefaultPageSize,
		}
		feedService.RegisterSubscribers(broker)

		listingsHandlers := &listings.Handlers{Service: listingsService}
		listingsGroup := app.Group("/api/v1/listings")
		listingsGroup.Post("/create-listing", middleware.RequireActor(), listingsHandlers.CreateListing)
		listingsGroup.Get("/get-listing/:listing_id", listingsHandlers.GetListing)
		listingsGroup.Put("/edit-listing", middleware.RequireActor(), listingsHandlers.EditListing)
		listingsGroup.Post("/withdraw-listing", middleware.RequireActor(), listingsHandlers.WithdrawListing)
		listingsGroup.Post("/accept-bid", middleware.RequireActor(), listingsHandlers.AcceptBid)

		bidsHandlers := &bids.Handlers{Service: bidsService}
		bidsGroup := app.Group("/api/v1/bids")
		bidsGroup.Post("/place-bid", middleware.RequireActor(), bidsHandlers.PlaceBid)
		bidsGroup.Post("/withdraw-bid", middleware.RequireActor(), bidsHandlers.WithdrawBid)
		bidsGroup.Get("/get-bids/:listing_id", bidsHandlers.GetBids)
		bidsGroup.Get("/get-current-high/:listing_id", bidsHandlers.GetCurrentHigh)

		feedHandlers := &feed.Handlers{Service: feedService}
		feedGroup := app.Group("/api/v1/feed")
		feedGroup.Get("/latest", feedHandlers.GetLatest)
		feedGroup.Get("/filter", feedHandlers.Filter)

		leService := &listingevents.Service{DB: db}
		leHandlers := &listingevents.Handlers{Service: leService}
		app.Get("/api/v1/listing-events/:listing_id", leHandlers.GetListingEvents)
	}

	return app
}
