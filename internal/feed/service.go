package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"bazaar-backend/internal/domain"
	"bazaar-backend/internal/events"
	"bazaar-backend/internal/pkg/apperrors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service answers browse queries from the projection only. Staleness is
// bounded by event-processing latency, never by reading the listing store.
type Service struct {
	DB     *gorm.DB
	Rdb    *redis.Client // optional; nil disables the page cache
	Broker events.Broker
	Source ListingSource
	// CacheTTL and PageSize control the cached first page.
	CacheTTL time.Duration
	PageSize int
}

const firstPageKeyPrefix = "feed:latest:"

func (s *Service) firstPageKey() string {
	return fmt.Sprintf("%s%d", firstPageKeyPrefix, s.PageSize)
}

func checkPage(limit, offset int) error {
	if limit <= 0 {
		return apperrors.New(apperrors.Validation, "Page size must be positive")
	}
	if offset < 0 {
		return apperrors.New(apperrors.Validation, "Offset must be non-negative")
	}
	return nil
}

func checkPriceRange(minPrice, maxPrice float64) error {
	if math.IsNaN(minPrice) || math.IsInf(minPrice, 0) || math.IsNaN(maxPrice) || math.IsInf(maxPrice, 0) {
		return apperrors.New(apperrors.Validation, "Price bounds must be finite numbers")
	}
	if minPrice < 0 || maxPrice < 0 {
		return apperrors.New(apperrors.Validation, "Price bounds must be non-negative")
	}
	if minPrice > maxPrice {
		return apperrors.New(apperrors.Validation, "Minimum price must not exceed maximum price")
	}
	return nil
}

// GetLatest returns feed rows newest first. The first default-sized page is
// served from Redis when available; a cache failure degrades to the DB query.
func (s *Service) GetLatest(ctx context.Context, limit, offset int) ([]domain.FeedItem, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}

	cacheable := s.Rdb != nil && offset == 0 && limit == s.PageSize
	if cacheable {
		if items, ok := s.cachedFirstPage(ctx); ok {
			return items, nil
		}
	}

	var items []domain.FeedItem
	if err := s.DB.WithContext(ctx).
		Order("listing_created_at DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch feed", err)
	}

	if cacheable {
		s.storeFirstPage(ctx, items)
	}
	return items, nil
}

// FilterByTags returns feed rows carrying at least one of the given tags.
func (s *Service) FilterByTags(ctx context.Context, tags []string, limit, offset int) ([]domain.FeedItem, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, apperrors.New(apperrors.Validation, "At least one tag is required")
	}
	var items []domain.FeedItem
	if err := s.tagQuery(ctx, tags).
		Order("listing_created_at DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch feed", err)
	}
	return items, nil
}

// FilterByPrice returns feed rows with a price inside [minPrice, maxPrice].
// Rows without a price never match a price filter.
func (s *Service) FilterByPrice(ctx context.Context, minPrice, maxPrice float64, limit, offset int) ([]domain.FeedItem, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}
	if err := checkPriceRange(minPrice, maxPrice); err != nil {
		return nil, err
	}
	var items []domain.FeedItem
	if err := s.DB.WithContext(ctx).
		Where("price >= ? AND price <= ?", minPrice, maxPrice).
		Order("listing_created_at DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch feed", err)
	}
	return items, nil
}

// FilterByTagsAndPrice combines both filters.
func (s *Service) FilterByTagsAndPrice(ctx context.Context, tags []string, minPrice, maxPrice float64, limit, offset int) ([]domain.FeedItem, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, apperrors.New(apperrors.Validation, "At least one tag is required")
	}
	if err := checkPriceRange(minPrice, maxPrice); err != nil {
		return nil, err
	}
	var items []domain.FeedItem
	if err := s.tagQuery(ctx, tags).
		Where("price >= ? AND price <= ?", minPrice, maxPrice).
		Order("listing_created_at DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to fetch feed", err)
	}
	return items, nil
}

func (s *Service) tagQuery(ctx context.Context, tags []string) *gorm.DB {
	sub := s.DB.Model(&domain.FeedItemTag{}).Select("listing_id").Where("tag IN ?", tags)
	return s.DB.WithContext(ctx).Model(&domain.FeedItem{}).Where("listing_id IN (?)", sub)
}

// handleFeedUpdated invalidates the cached first page whenever anything in
// the projection changed.
func (s *Service) handleFeedUpdated(ctx context.Context, payload interface{}) {
	if s.Rdb == nil {
		return
	}
	if err := s.Rdb.Del(ctx, s.firstPageKey()).Err(); err != nil {
		log.Warn().Err(err).Msg("Feed cache: invalidation failed")
	}
}

func (s *Service) cachedFirstPage(ctx context.Context) ([]domain.FeedItem, bool) {
	raw, err := s.Rdb.Get(ctx, s.firstPageKey()).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("Feed cache: read failed")
		}
		return nil, false
	}
	var items []domain.FeedItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Warn().Err(err).Msg("Feed cache: corrupt entry")
		return nil, false
	}
	return items, true
}

func (s *Service) storeFirstPage(ctx context.Context, items []domain.FeedItem) {
	bs, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.Rdb.Set(ctx, s.firstPageKey(), bs, s.CacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("Feed cache: write failed")
	}
}
