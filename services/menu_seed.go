package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bitecraft/storefront-api/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// MenuSeed is the YAML menu file loaded at boot
type MenuSeed struct {
	Categories []CategorySeed `yaml:"categories"`
}

type CategorySeed struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	ImageURL    string     `yaml:"image_url"`
	Active      *bool      `yaml:"active"`
	Foods       []FoodSeed `yaml:"foods"`
}

type FoodSeed struct {
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description"`
	Price         float64 `yaml:"price"`
	DeliveryPrice float64 `yaml:"delivery_price"`
	ImageURL      string  `yaml:"image_url"`
	Available     *bool   `yaml:"available"`
}

// SeedStats counts what a seed run wrote
type SeedStats struct {
	CategoriesCreated int
	CategoriesUpdated int
	FoodsCreated      int
	FoodsUpdated      int
}

// LoadMenuSeed reads and parses a menu seed file
func LoadMenuSeed(path string) (*MenuSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu seed %s: %w", path, err)
	}
	return ParseMenuSeed(raw)
}

// ParseMenuSeed parses and checks a YAML menu document
func ParseMenuSeed(raw []byte) (*MenuSeed, error) {
	var seed MenuSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse menu seed: %w", err)
	}

	for i, cat := range seed.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, fmt.Errorf("menu seed: category %d has no name", i)
		}
		for j, food := range cat.Foods {
			if strings.TrimSpace(food.Name) == "" {
				return nil, fmt.Errorf("menu seed: food %d in %q has no name", j, cat.Name)
			}
			if food.Price < 0 || food.DeliveryPrice < 0 {
				return nil, fmt.Errorf("menu seed: %q has a negative price", food.Name)
			}
		}
	}
	return &seed, nil
}

// SeedMenu upserts categories and foods by name in one transaction. Running it
// twice with the same file changes nothing.
func SeedMenu(db *gorm.DB, seed *MenuSeed) (SeedStats, error) {
	var stats SeedStats

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, cs := range seed.Categories {
			category, created, err := upsertCategory(tx, cs)
			if err != nil {
				return err
			}
			if created {
				stats.CategoriesCreated++
			} else {
				stats.CategoriesUpdated++
			}

			for _, fs := range cs.Foods {
				created, err := upsertFood(tx, category.ID, fs)
				if err != nil {
					return err
				}
				if created {
					stats.FoodsCreated++
				} else {
					stats.FoodsUpdated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}

	log.Printf("[SEED] menu seeded: %d categories created, %d updated; %d foods created, %d updated",
		stats.CategoriesCreated, stats.CategoriesUpdated, stats.FoodsCreated, stats.FoodsUpdated)
	return stats, nil
}

func upsertCategory(tx *gorm.DB, cs CategorySeed) (*models.Category, bool, error) {
	active := cs.Active == nil || *cs.Active
	name := strings.TrimSpace(cs.Name)

	var category models.Category
	err := tx.Where("name = ?", name).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		category = models.Category{
			Name:        name,
			Description: cs.Description,
			ImageURL:    cs.ImageURL,
			IsActive:    active,
		}
		if err := tx.Create(&category).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create category %q: %w", name, err)
		}
		return &category, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	err = tx.Model(&category).Select("description", "image_url", "is_active").Updates(models.Category{
		Description: cs.Description,
		ImageURL:    cs.ImageURL,
		IsActive:    active,
	}).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to update category %q: %w", name, err)
	}
	return &category, false, nil
}

func upsertFood(tx *gorm.DB, categoryID string, fs FoodSeed) (bool, error) {
	available := fs.Available == nil || *fs.Available
	name := strings.TrimSpace(fs.Name)
	price := models.RoundMoney(decimal.NewFromFloat(fs.Price))
	deliveryPrice := models.RoundMoney(decimal.NewFromFloat(fs.DeliveryPrice))

	var imageURL *string
	if fs.ImageURL != "" {
		imageURL = &fs.ImageURL
	}

	var food models.Food
	err := tx.Where("name = ? AND category_id = ?", name, categoryID).First(&food).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		food = models.Food{
			Name:          name,
			Description:   fs.Description,
			Price:         price,
			DeliveryPrice: deliveryPrice,
			CategoryID:    &categoryID,
			IsAvailable:   available,
			ImageURL:      imageURL,
		}
		if err := tx.Create(&food).Error; err != nil {
			return false, fmt.Errorf("failed to create food %q: %w", name, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up food %q: %w", name, err)
	}

	err = tx.Model(&food).Select("description", "price", "delivery_price", "is_available", "image_url").Updates(models.Food{
		Description:   fs.Description,
		Price:         price,
		DeliveryPrice: deliveryPrice,
		IsAvailable:   available,
		ImageURL:      imageURL,
	}).Error
	if err != nil {
		return false, fmt.Errorf("failed to update food %q: %w", name, err)
	}
	return false, nil
}
