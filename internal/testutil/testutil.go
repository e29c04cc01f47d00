package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dealdrop/backend/internal/database"
	"github.com/dealdrop/backend/internal/models"
)

// TestJWTSecret signs tokens in handler and server tests.
const TestJWTSecret = "test-jwt-secret"

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// postgresDSN starts one PostgreSQL container per test binary. Ryuk reaps it
// when the process exits.
func postgresDSN() (string, error) {
	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("deals_test"),
			tcpostgres.WithUsername("deals"),
			tcpostgres.WithPassword("deals"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			pgErr = err
			return
		}
		pgDSN, pgErr = ctr.ConnectionString(ctx, "sslmode=disable")
	})
	return pgDSN, pgErr
}

// Logger discards output so test runs stay quiet.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestDB returns a migrated, empty database. Skipped under -short or when
// no container runtime is available.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	dsn, err := postgresDSN()
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Clean up tables before each test
	if err := db.Exec(`TRUNCATE votes, comments, deals, categories CASCADE`).Error; err != nil {
		t.Fatalf("Failed to clean database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// CreateTestCategory inserts a category with the given slug.
func CreateTestCategory(t *testing.T, db *gorm.DB, slug string) models.Category {
	t.Helper()

	category := models.Category{Name: slug, Label: slug, Slug: slug}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("Failed to create test category: %v", err)
	}
	return category
}

// DealOption customises a deal before it is inserted.
type DealOption func(*models.Deal)

func WithCounts(up, down uint32) DealOption {
	return func(d *models.Deal) {
		d.UpvoteCount = up
		d.DownvoteCount = down
	}
}

func WithHotScore(score float64) DealOption {
	return func(d *models.Deal) { d.HotScore = score }
}

func WithCreatedAt(at time.Time) DealOption {
	return func(d *models.Deal) { d.CreatedAt = at }
}

func WithStatus(status models.Status) DealOption {
	return func(d *models.Deal) { d.Status = status }
}

func WithAuthor(userID uuid.UUID) DealOption {
	return func(d *models.Deal) { d.UserID = userID }
}

func WithExpiresAt(at time.Time) DealOption {
	return func(d *models.Deal) { d.ExpiresAt = &at }
}

// CreateTestDeal inserts an active deal in the given category.
func CreateTestDeal(t *testing.T, db *gorm.DB, categoryID uuid.UUID, opts ...DealOption) models.Deal {
	t.Helper()

	deal := models.Deal{
		UserID:      uuid.New(),
		CategoryID:  categoryID,
		Title:       "Test Deal",
		Description: "A test deal",
		Status:      models.StatusActive,
	}
	for _, opt := range opts {
		opt(&deal)
	}
	if err := db.Create(&deal).Error; err != nil {
		t.Fatalf("Failed to create test deal: %v", err)
	}
	return deal
}

// CreateTestComment inserts a top-level comment on a deal.
func CreateTestComment(t *testing.T, db *gorm.DB, dealID uuid.UUID) models.Comment {
	t.Helper()

	comment := models.Comment{DealID: dealID, UserID: uuid.New(), Content: "Test comment"}
	if err := db.Create(&comment).Error; err != nil {
		t.Fatalf("Failed to create test comment: %v", err)
	}
	return comment
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
