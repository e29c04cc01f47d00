package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dealdrop/backend/internal/models"
)

// DefaultCategories is the category set a fresh install starts with.
var DefaultCategories = []models.Category{
	{Name: "electronics", Label: "Electronics", Slug: "electronics", SortOrder: 1},
	{Name: "groceries", Label: "Groceries", Slug: "groceries", SortOrder: 2},
	{Name: "fashion", Label: "Fashion", Slug: "fashion", SortOrder: 3},
	{Name: "home", Label: "Home & Garden", Slug: "home", SortOrder: 4},
	{Name: "travel", Label: "Travel", Slug: "travel", SortOrder: 5},
	{Name: "entertainment", Label: "Entertainment", Slug: "entertainment", SortOrder: 6},
	{Name: "freebies", Label: "Freebies", Slug: "freebies", SortOrder: 7},
}

// SeedCategories inserts any of the given categories whose slug is not taken yet.
func SeedCategories(ctx context.Context, db *gorm.DB, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}
	rows := make([]models.Category, len(categories))
	copy(rows, categories)

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("error seeding categories: %w", err)
	}
	return nil
}
