package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategoryRequest represents the request body for creating or updating a category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	IsActive    *bool  `json:"is_active"`
}

// CreateFoodRequest represents the request body for creating a food
type CreateFoodRequest struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price" binding:"required"`
	DeliveryPrice *decimal.Decimal `json:"delivery_price"`
	CategoryID    *string          `json:"category_id"`
	ImageURL      *string          `json:"image_url"`
	IsAvailable   *bool            `json:"is_available"`
}

// UpdateFoodRequest represents a partial update of a food; omitted fields are unchanged
type UpdateFoodRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	DeliveryPrice *decimal.Decimal `json:"delivery_price"`
	CategoryID    *string          `json:"category_id"`
	ImageURL      *string          `json:"image_url"`
	IsAvailable   *bool            `json:"is_available"`
}

// AvailabilityRequest toggles whether a food can be ordered
type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

// ListCategories handles GET /api/v1/menu/categories - active categories by name
func ListCategories(c *gin.Context) {
	db := config.GetDB()

	var categories []models.Category
	if err := db.Where("is_active = ?", true).Order("name ASC").Find(&categories).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch categories")
		return
	}

	respondOK(c, http.StatusOK, categories)
}

// ListFoods handles GET /api/v1/menu/foods - available foods, optionally by category_id
func ListFoods(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Category").Where("is_available = ?", true)
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var foods []models.Food
	if err := query.Order("name ASC").Find(&foods).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch foods")
		return
	}

	resolveFoodImages(c.Request.Context(), foods)
	respondOK(c, http.StatusOK, foods)
}

// AdminListCategories handles GET /api/v1/admin/categories - every category, active or not
func AdminListCategories(c *gin.Context) {
	db := config.GetDB()

	var categories []models.Category
	if err := db.Order("name ASC").Find(&categories).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch categories")
		return
	}

	respondOK(c, http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/admin/categories
func CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category := models.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	db := config.GetDB()
	if err := db.Create(&category).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category")
		return
	}

	respondOK(c, http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/v1/admin/categories/:id
func UpdateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	db := config.GetDB()
	var category models.Category
	if !findOr404(c, db, &category, "CATEGORY_NOT_FOUND", "Category not found") {
		return
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	category.ImageURL = req.ImageURL
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := db.Save(&category).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category")
		return
	}

	respondOK(c, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/:id. The category is soft
// deleted; its foods stay on the menu without a category.
func DeleteCategory(c *gin.Context) {
	db := config.GetDB()
	var category models.Category
	if !findOr404(c, db, &category, "CATEGORY_NOT_FOUND", "Category not found") {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Food{}).Where("category_id = ?", category.ID).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Category deleted",
	})
}

// AdminListFoods handles GET /api/v1/admin/foods - every food including unavailable ones
func AdminListFoods(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Category")
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var foods []models.Food
	if err := query.Order("name ASC").Find(&foods).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch foods")
		return
	}

	resolveFoodImages(c.Request.Context(), foods)
	respondOK(c, http.StatusOK, foods)
}

// CreateFood handles POST /api/v1/admin/foods
func CreateFood(c *gin.Context) {
	var req CreateFoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	deliveryPrice := decimal.Zero
	if req.DeliveryPrice != nil {
		deliveryPrice = *req.DeliveryPrice
	}
	if req.Price.IsNegative() || deliveryPrice.IsNegative() {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Prices cannot be negative")
		return
	}

	db := config.GetDB()
	if req.CategoryID != nil && !categoryExists(db, *req.CategoryID) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Category does not exist")
		return
	}

	food := models.Food{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         models.RoundMoney(*req.Price),
		DeliveryPrice: models.RoundMoney(deliveryPrice),
		CategoryID:    req.CategoryID,
		ImageURL:      req.ImageURL,
		IsAvailable:   req.IsAvailable == nil || *req.IsAvailable,
	}

	if err := db.Omit("Category").Create(&food).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create food")
		return
	}

	respondOK(c, http.StatusCreated, food)
}

// UpdateFood handles PATCH /api/v1/admin/foods/:id
func UpdateFood(c *gin.Context) {
	var req UpdateFoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	db := config.GetDB()
	var food models.Food
	if !findOr404(c, db, &food, "FOOD_NOT_FOUND", "Food not found") {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name cannot be empty")
			return
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Prices cannot be negative")
			return
		}
		updates["price"] = models.RoundMoney(*req.Price)
	}
	if req.DeliveryPrice != nil {
		if req.DeliveryPrice.IsNegative() {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Prices cannot be negative")
			return
		}
		updates["delivery_price"] = models.RoundMoney(*req.DeliveryPrice)
	}
	if req.CategoryID != nil {
		if !categoryExists(db, *req.CategoryID) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Category does not exist")
			return
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}

	if len(updates) > 0 {
		if err := db.Model(&food).Updates(updates).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update food")
			return
		}
	}

	if err := db.Preload("Category").First(&food, "id = ?", food.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load food")
		return
	}

	resolveFoodImage(c.Request.Context(), &food)
	respondOK(c, http.StatusOK, food)
}

// SetFoodAvailability handles PATCH /api/v1/admin/foods/:id/availability
func SetFoodAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	db := config.GetDB()
	var food models.Food
	if !findOr404(c, db, &food, "FOOD_NOT_FOUND", "Food not found") {
		return
	}

	if err := db.Model(&food).Update("is_available", *req.IsAvailable).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update availability")
		return
	}
	food.IsAvailable = *req.IsAvailable

	respondOK(c, http.StatusOK, food)
}

// DeleteFood handles DELETE /api/v1/admin/foods/:id (soft delete; past order lines keep their snapshot)
func DeleteFood(c *gin.Context) {
	db := config.GetDB()
	var food models.Food
	if !findOr404(c, db, &food, "FOOD_NOT_FOUND", "Food not found") {
		return
	}

	if err := db.Delete(&food).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete food")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Food deleted",
	})
}

// UploadFoodImage handles POST /api/v1/admin/foods/:id/image - multipart field "image"
func UploadFoodImage(c *gin.Context) {
	db := config.GetDB()
	var food models.Food
	if !findOr404(c, db, &food, "FOOD_NOT_FOUND", "Food not found") {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the \"image\" field")
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Image storage is not configured")
		return
	}

	ctx := c.Request.Context()
	key, err := imageService.UploadImage(ctx, fileHeader)
	if err != nil {
		respondServiceError(c, err, "Failed to upload image")
		return
	}

	var previousKey string
	if food.ImageKey != nil {
		previousKey = *food.ImageKey
	}
	if err := db.Model(&food).Update("image_key", key).Error; err != nil {
		// Don't leave an orphaned upload behind
		if delErr := imageService.DeleteImage(ctx, key); delErr != nil {
			log.Printf("[S3] failed to remove orphaned image %s: %v", key, delErr)
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save image")
		return
	}

	if previousKey != "" && previousKey != key {
		if err := imageService.DeleteImage(ctx, previousKey); err != nil {
			log.Printf("[S3] failed to remove replaced image %s: %v", previousKey, err)
		}
	}

	food.ImageKey = &key
	resolveFoodImage(ctx, &food)
	respondOK(c, http.StatusOK, food)
}

// findOr404 loads the row identified by the :id param into dest, responding 404 when
// it does not exist. It reports whether the handler should continue.
func findOr404(c *gin.Context, db *gorm.DB, dest interface{}, code, message string) bool {
	err := db.First(dest, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, code, message)
		return false
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load record")
		return false
	}
	return true
}

func categoryExists(db *gorm.DB, id string) bool {
	var count int64
	db.Model(&models.Category{}).Where("id = ?", id).Count(&count)
	return count > 0
}

// resolveFoodImage replaces ImageURL with a fetchable URL for uploaded images
func resolveFoodImage(ctx context.Context, food *models.Food) {
	imageService := services.GetImageService()
	if food.ImageKey == nil || *food.ImageKey == "" || imageService == nil {
		return
	}

	url, err := imageService.GetImageURL(ctx, *food.ImageKey)
	if err != nil {
		log.Printf("Failed to resolve image for food %s: %v", food.ID, err)
		return
	}
	food.ImageURL = &url
}

func resolveFoodImages(ctx context.Context, foods []models.Food) {
	for i := range foods {
		resolveFoodImage(ctx, &foods[i])
	}
}
