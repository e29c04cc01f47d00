package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dealdrop/backend/internal/config"
	"github.com/dealdrop/backend/internal/feed"
	"github.com/dealdrop/backend/internal/models"
	"github.com/dealdrop/backend/internal/testutil"
)

func newService(db *gorm.DB, ttl time.Duration) *feed.Service {
	return feed.NewService(db, config.FeedConfig{PageSize: 20, MaxLimit: 100, CacheTTL: ttl}, nil, testutil.Logger())
}

func ids(deals []models.Deal) []uuid.UUID {
	out := make([]uuid.UUID, len(deals))
	for i, d := range deals {
		out[i] = d.ID
	}
	return out
}

func TestFetchSentinelPagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cat := testutil.CreateTestCategory(t, db, "tech")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		testutil.CreateTestDeal(t, db, cat.ID, testutil.WithCreatedAt(base.Add(time.Duration(i)*time.Minute)))
	}
	svc := newService(db, 0)
	ctx := context.Background()

	first, err := svc.Fetch(ctx, feed.Query{Sort: feed.SortNew, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, first.Deals, 20)
	assert.True(t, first.HasMore)

	second, err := svc.Fetch(ctx, feed.Query{Sort: feed.SortNew, Limit: 20, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, second.Deals, 5)
	assert.False(t, second.HasMore)

	seen := map[uuid.UUID]bool{}
	for _, id := range append(ids(first.Deals), ids(second.Deals)...) {
		assert.False(t, seen[id], "deal %s returned twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, 25)
}

func TestFetchDefaultAndClampedLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cat := testutil.CreateTestCategory(t, db, "tech")
	for i := 0; i < 22; i++ {
		testutil.CreateTestDeal(t, db, cat.ID)
	}
	svc := newService(db, 0)

	page, err := svc.Fetch(context.Background(), feed.Query{})
	require.NoError(t, err)
	assert.Len(t, page.Deals, 20)
	assert.True(t, page.HasMore)

	page, err = svc.Fetch(context.Background(), feed.Query{Limit: 1000, Offset: -5})
	require.NoError(t, err)
	assert.Len(t, page.Deals, 22)
	assert.False(t, page.HasMore)
}

func TestFetchSortOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cat := testutil.CreateTestCategory(t, db, "food")
	now := time.Now()

	old := testutil.CreateTestDeal(t, db, cat.ID,
		testutil.WithCreatedAt(now.Add(-3*time.Hour)), testutil.WithCounts(50, 0), testutil.WithHotScore(0.5))
	mid := testutil.CreateTestDeal(t, db, cat.ID,
		testutil.WithCreatedAt(now.Add(-2*time.Hour)), testutil.WithCounts(5, 0), testutil.WithHotScore(2.0))
	recent := testutil.CreateTestDeal(t, db, cat.ID,
		testutil.WithCreatedAt(now.Add(-time.Hour)), testutil.WithCounts(10, 30), testutil.WithHotScore(-1.0))

	svc := newService(db, 0)
	ctx := context.Background()

	tests := []struct {
		sort feed.Sort
		want []uuid.UUID
	}{
		{feed.SortNew, []uuid.UUID{recent.ID, mid.ID, old.ID}},
		{feed.SortTop, []uuid.UUID{old.ID, recent.ID, mid.ID}},
		{feed.SortHot, []uuid.UUID{mid.ID, old.ID, recent.ID}},
		{"bogus", []uuid.UUID{mid.ID, old.ID, recent.ID}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			page, err := svc.Fetch(ctx, feed.Query{Sort: tt.sort})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Deals))
		})
	}
}

func TestFetchTieBreakIsStable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cat := testutil.CreateTestCategory(t, db, "travel")
	at := time.Now().Add(-time.Hour).Truncate(time.Second)
	older := testutil.CreateTestDeal(t, db, cat.ID, testutil.WithHotScore(1), testutil.WithCreatedAt(at.Add(-time.Minute)))
	for i := 0; i < 6; i++ {
		testutil.CreateTestDeal(t, db, cat.ID, testutil.WithHotScore(1), testutil.WithCreatedAt(at))
	}
	svc := newService(db, 0)

	var first []uuid.UUID
	for i := 0; i < 5; i++ {
		page, err := svc.Fetch(context.Background(), feed.Query{Sort: feed.SortHot})
		require.NoError(t, err)
		require.Len(t, page.Deals, 7)
		if first == nil {
			first = ids(page.Deals)
			continue
		}
		assert.Equal(t, first, ids(page.Deals))
	}
	assert.Equal(t, older.ID, first[len(first)-1])

	// Paging through in twos visits every deal exactly once.
	var paged []uuid.UUID
	for off := 0; ; off += 2 {
		page, err := svc.Fetch(context.Background(), feed.Query{Sort: feed.SortHot, Limit: 2, Offset: off})
		require.NoError(t, err)
		paged = append(paged, ids(page.Deals)...)
		if !page.HasMore {
			break
		}
	}
	assert.Equal(t, first, paged)
}

func TestFetchActiveOnlyAndCategoryFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tech := testutil.CreateTestCategory(t, db, "tech")
	food := testutil.CreateTestCategory(t, db, "food")

	active := testutil.CreateTestDeal(t, db, tech.ID)
	testutil.CreateTestDeal(t, db, tech.ID, testutil.WithStatus(models.StatusExpired))
	testutil.CreateTestDeal(t, db, tech.ID, testutil.WithStatus(models.StatusRemoved))
	other := testutil.CreateTestDeal(t, db, food.ID)

	svc := newService(db, 0)
	ctx := context.Background()

	page, err := svc.Fetch(ctx, feed.Query{CategorySlug: "tech"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{active.ID}, ids(page.Deals))
	require.NotNil(t, page.Deals[0].Category)
	assert.Equal(t, "tech", page.Deals[0].Category.Slug)

	page, err = svc.Fetch(ctx, feed.Query{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{active.ID, other.ID}, ids(page.Deals))

	page, err = svc.Fetch(ctx, feed.Query{CategorySlug: "no-such-category"})
	require.NoError(t, err)
	assert.NotNil(t, page.Deals)
	assert.Empty(t, page.Deals)
	assert.False(t, page.HasMore)
}

func TestFetchCacheInvalidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cat := testutil.CreateTestCategory(t, db, "home")
	testutil.CreateTestDeal(t, db, cat.ID)
	svc := newService(db, time.Minute)
	ctx := context.Background()

	page, err := svc.Fetch(ctx, feed.Query{})
	require.NoError(t, err)
	require.Len(t, page.Deals, 1)

	testutil.CreateTestDeal(t, db, cat.ID)

	page, err = svc.Fetch(ctx, feed.Query{})
	require.NoError(t, err)
	assert.Len(t, page.Deals, 1, "second read should be served from cache")

	svc.Invalidate()

	page, err = svc.Fetch(ctx, feed.Query{})
	require.NoError(t, err)
	assert.Len(t, page.Deals, 2)
}

func TestCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Create(&models.Category{Name: "b", Label: "B", Slug: "b", SortOrder: 2}).Error)
	require.NoError(t, db.Create(&models.Category{Name: "a", Label: "A", Slug: "a", SortOrder: 1}).Error)

	cats, err := newService(db, 0).Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "a", cats[0].Slug)
	assert.Equal(t, "b", cats[1].Slug)
}

func TestFetchLoadOutlivesCallerContext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cat := testutil.CreateTestCategory(t, db, "tech")
	testutil.CreateTestDeal(t, db, cat.ID)
	svc := newService(db, time.Minute)

	// A load started for a caller that has already gone away still completes,
	// so callers sharing it are not failed with the first caller's error.
	gone, cancel := context.WithCancel(context.Background())
	cancel()

	page, err := svc.Fetch(gone, feed.Query{})
	require.NoError(t, err)
	assert.Len(t, page.Deals, 1)
	assert.Equal(t, 1, svc.Cache().Len())

	page, err = svc.Fetch(context.Background(), feed.Query{})
	require.NoError(t, err)
	assert.Len(t, page.Deals, 1)
}
