package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/shopspring/decimal"
)

// Product is a sellable meal SKU.
type Product struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Name         string          `gorm:"size:150;not null" json:"name" binding:"required"`
	Slug         string          `gorm:"size:160;not null;unique" json:"slug"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category     string          `gorm:"size:100;index" json:"category"`
	Tags         json.RawMessage `gorm:"type:json" json:"tags"`
	StockLevel   int             `gorm:"not null;default:0" json:"stock_level"`
	ImageUrl     string          `gorm:"size:500" json:"image_url"`
	ThumbnailUrl string          `gorm:"size:500" json:"thumbnail_url"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "aura_products" }

type NewProduct struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Category    string          `json:"category"`
	Tags        json.RawMessage `json:"tags"`
	StockLevel  int             `json:"stock_level"`
	IsActive    *bool           `json:"is_active"`
}

/*
caches:
	ProductCatalog (active products, invalidated on any product write)
*/

func removeCatalogRedis() error {
	return config.RemoveRedisKey("ProductCatalog")
}

func (input *NewProduct) validate(ctx context.Context, id int) error {
	if input.Price.IsNegative() || input.Price.IsZero() {
		return errors.New("price must be positive")
	}
	slug := utils.Slugify(input.Name)
	if slug == "" {
		return errors.New("invalid product name")
	}
	if err := utils.ValidateUnique[Product](ctx, "slug", slug, id); err != nil {
		return err
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	product := Product{
		Name:        strings.TrimSpace(input.Name),
		Slug:        utils.Slugify(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Tags:        input.Tags,
		StockLevel:  input.StockLevel,
		IsActive:    isActive,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	if err := removeCatalogRedis(); err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	updates := map[string]interface{}{
		"Name":        strings.TrimSpace(input.Name),
		"Slug":        utils.Slugify(input.Name),
		"Description": input.Description,
		"Price":       input.Price,
		"Category":    input.Category,
		"Tags":        input.Tags,
		"StockLevel":  input.StockLevel,
	}
	if input.IsActive != nil {
		updates["IsActive"] = input.IsActive
	}
	if err := db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := removeCatalogRedis(); err != nil {
		return nil, err
	}
	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {

	db := config.GetDB()
	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	// Products referenced by subscriptions are deactivated, not deleted.
	var count int64
	if err := db.WithContext(ctx).Model(&Subscription{}).
		Where("JSON_CONTAINS(box_config, CAST(? AS JSON))", id).
		Where("status IN ?", []SubscriptionStatus{SubscriptionStatusActive, SubscriptionStatusPaused}).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("product is part of live subscriptions; deactivate it instead")
	}

	if err := db.WithContext(ctx).Delete(product).Error; err != nil {
		return nil, err
	}
	if err := removeCatalogRedis(); err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return utils.FetchModel[Product](ctx, id)
}

func GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	db := config.GetDB()
	var result Product
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&result).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

// ListProducts serves the storefront catalog. The unfiltered active catalog
// is cached in Redis; filtered queries go to the DB.
func ListProducts(ctx context.Context, category *string, tag *string) ([]*Product, error) {

	filtered := (category != nil && *category != "") || (tag != nil && *tag != "")

	if !filtered {
		var cached []*Product
		exists, err := config.GetRedisObject("ProductCatalog", &cached)
		if err != nil {
			return nil, err
		}
		if exists {
			return cached, nil
		}
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("is_active = ?", true)
	if category != nil && *category != "" {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	if tag != nil && *tag != "" {
		dbCtx = dbCtx.Where("JSON_CONTAINS(tags, JSON_QUOTE(?))", *tag)
	}

	var results []*Product
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}

	if !filtered {
		if err := config.SetRedisObject("ProductCatalog", results, time.Hour); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// GetProductsByIds loads a box's product selections, keyed for price lookup.
// Returns an error unless every id resolves to an active product.
func GetProductsByIds(ctx context.Context, ids []int) (map[int]*Product, error) {
	unqIds := utils.UniqueSlice(ids)

	db := config.GetDB()
	var rows []*Product
	if err := db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", unqIds, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) != len(unqIds) {
		return nil, errors.New("one or more products not found or inactive")
	}

	byId := make(map[int]*Product, len(rows))
	for _, p := range rows {
		byId[p.ID] = p
	}
	return byId, nil
}
