// Package feed serves paginated, sorted deal feeds with a short-lived page
// cache in front of the database.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/dealdrop/backend/internal/apperrors"
	"github.com/dealdrop/backend/internal/config"
	"github.com/dealdrop/backend/internal/metrics"
	"github.com/dealdrop/backend/internal/models"
)

type Sort string

const (
	SortHot Sort = "hot"
	SortNew Sort = "new"
	SortTop Sort = "top"
)

// ParseSort maps a request value to a Sort; anything unrecognised is hot.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortNew, SortTop:
		return Sort(s)
	}
	return SortHot
}

// orderBy returns the ORDER BY clauses for a sort. Every order ends in a
// unique column so pages never overlap or skip rows between requests.
func (s Sort) orderBy() []string {
	switch s {
	case SortNew:
		return []string{"created_at DESC", "id DESC"}
	case SortTop:
		return []string{"upvote_count DESC", "created_at DESC", "id DESC"}
	default:
		return []string{"hot_score DESC", "created_at DESC", "id DESC"}
	}
}

type Query struct {
	Sort         Sort
	Limit        int
	Offset       int
	CategorySlug string
}

func (q Query) key() string {
	return fmt.Sprintf("%s|%s|%d|%d", q.Sort, q.CategorySlug, q.Limit, q.Offset)
}

type Page struct {
	Deals   []models.Deal `json:"deals"`
	HasMore bool          `json:"has_more"`
}

type Service struct {
	db       *gorm.DB
	cache    *Cache
	group    singleflight.Group
	pageSize int
	maxLimit int
	metrics  *metrics.Collector
	log      *slog.Logger
}

func NewService(db *gorm.DB, cfg config.FeedConfig, m *metrics.Collector, log *slog.Logger) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.MaxLimit < cfg.PageSize {
		cfg.MaxLimit = max(100, cfg.PageSize)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:       db,
		cache:    NewCache(cfg.CacheTTL),
		pageSize: cfg.PageSize,
		maxLimit: cfg.MaxLimit,
		metrics:  m,
		log:      log,
	}
}

// Cache exposes the page cache so writers can invalidate it.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Invalidate drops cached pages; the next read of any feed goes to the database.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}

func (s *Service) normalize(q Query) Query {
	q.Sort = ParseSort(string(q.Sort))
	if q.Limit <= 0 {
		q.Limit = s.pageSize
	}
	if q.Limit > s.maxLimit {
		q.Limit = s.maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Fetch returns one page of active deals. An unknown category slug yields an
// empty page rather than an error.
func (s *Service) Fetch(ctx context.Context, q Query) (Page, error) {
	start := time.Now()
	q = s.normalize(q)
	defer func() { s.metrics.FeedServed(string(q.Sort), time.Since(start)) }()

	key := q.key()
	if page, ok := s.cache.Get(key); ok {
		s.metrics.FeedCache(true)
		return page.clone(), nil
	}
	s.metrics.FeedCache(false)

	gen := s.cache.Generation()
	// Callers that join this load share its result, so one of them going away
	// must not fail it for the rest.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		page, err := s.load(loadCtx, q)
		if err != nil {
			return Page{}, err
		}
		s.cache.Set(gen, key, page)
		return page, nil
	})
	if err != nil {
		s.log.Error("feed query failed", "sort", q.Sort, "category", q.CategorySlug, "error", err)
		return Page{}, err
	}
	return v.(Page).clone(), nil
}

func (s *Service) load(ctx context.Context, q Query) (Page, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.Deal{}).
		Preload("Category").
		Where("status = ?", models.StatusActive)

	if q.CategorySlug != "" {
		var cat models.Category
		err := db.Select("id").Take(&cat, "slug = ?", q.CategorySlug).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Page{Deals: []models.Deal{}}, nil
		}
		if err != nil {
			return Page{}, apperrors.Database("failed to resolve category", err)
		}
		query = query.Where("category_id = ?", cat.ID)
	}

	for _, o := range q.Sort.orderBy() {
		query = query.Order(o)
	}

	deals := make([]models.Deal, 0, q.Limit+1)
	if err := query.Limit(q.Limit + 1).Offset(q.Offset).Find(&deals).Error; err != nil {
		return Page{}, apperrors.Database("failed to fetch deals", err)
	}

	page := Page{Deals: deals}
	if len(deals) > q.Limit {
		page.Deals = deals[:q.Limit]
		page.HasMore = true
	}
	return page, nil
}

func (p Page) clone() Page {
	deals := make([]models.Deal, len(p.Deals))
	copy(deals, p.Deals)
	return Page{Deals: deals, HasMore: p.HasMore}
}

// Categories lists every category in display order.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).Order("sort_order ASC").Order("label ASC").Find(&cats).Error
	if err != nil {
		return nil, apperrors.Database("failed to fetch categories", err)
	}
	return cats, nil
}
