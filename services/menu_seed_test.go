package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMenu = `
categories:
  - name: Rice Dishes
    description: Local favourites
    foods:
      - name: Jollof
        price: 15
        delivery_price: 3
      - name: Waakye
        price: 12.5
        delivery_price: 2
        available: false
  - name: Drinks
    active: false
    foods:
      - name: Sobolo
        price: 5
`

func TestParseMenuSeed(t *testing.T) {
	seed, err := ParseMenuSeed([]byte(testMenu))
	require.NoError(t, err)
	require.Len(t, seed.Categories, 2)
	assert.Equal(t, "Rice Dishes", seed.Categories[0].Name)
	require.Len(t, seed.Categories[0].Foods, 2)
	assert.Equal(t, 12.5, seed.Categories[0].Foods[1].Price)
	require.NotNil(t, seed.Categories[0].Foods[1].Available)
	assert.False(t, *seed.Categories[0].Foods[1].Available)
}

func TestParseMenuSeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not yaml", raw: "categories: [unclosed"},
		{name: "category without name", raw: "categories:\n  - description: x\n"},
		{name: "food without name", raw: "categories:\n  - name: Rice\n    foods:\n      - price: 3\n"},
		{name: "negative price", raw: "categories:\n  - name: Rice\n    foods:\n      - name: Jollof\n        price: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMenuSeed([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadMenuSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testMenu), 0o644))

	seed, err := LoadMenuSeed(path)
	require.NoError(t, err)
	assert.Len(t, seed.Categories, 2)

	_, err = LoadMenuSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedMenu_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	seed, err := ParseMenuSeed([]byte(testMenu))
	require.NoError(t, err)

	stats, err := SeedMenu(db, seed)
	require.NoError(t, err)
	assert.Equal(t, SeedStats{CategoriesCreated: 2, FoodsCreated: 3}, stats)

	stats, err = SeedMenu(db, seed)
	require.NoError(t, err)
	assert.Equal(t, SeedStats{CategoriesUpdated: 2, FoodsUpdated: 3}, stats)

	var categories, foods int64
	db.Model(&models.Category{}).Count(&categories)
	db.Model(&models.Food{}).Count(&foods)
	assert.Equal(t, int64(2), categories)
	assert.Equal(t, int64(3), foods)

	var jollof models.Food
	require.NoError(t, db.Where("name = ?", "Jollof").First(&jollof).Error)
	assert.Equal(t, "15.00", jollof.Price.StringFixed(2))
	assert.Equal(t, "3.00", jollof.DeliveryPrice.StringFixed(2))
	assert.True(t, jollof.IsAvailable)

	var waakye models.Food
	require.NoError(t, db.Where("name = ?", "Waakye").First(&waakye).Error)
	assert.False(t, waakye.IsAvailable)

	var drinks models.Category
	require.NoError(t, db.Where("name = ?", "Drinks").First(&drinks).Error)
	assert.False(t, drinks.IsActive)
}

func TestSeedMenu_UpdatesPrices(t *testing.T) {
	db := testutil.NewTestDB(t)
	seed, err := ParseMenuSeed([]byte(testMenu))
	require.NoError(t, err)
	_, err = SeedMenu(db, seed)
	require.NoError(t, err)

	seed.Categories[0].Foods[0].Price = 16
	_, err = SeedMenu(db, seed)
	require.NoError(t, err)

	var jollof models.Food
	require.NoError(t, db.Where("name = ?", "Jollof").First(&jollof).Error)
	assert.Equal(t, "16.00", jollof.Price.StringFixed(2))
}
