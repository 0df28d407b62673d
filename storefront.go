package main

import (
	"net/http"
	"strings"

	"github.com/aurafoods/aura_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func listProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var category, tag *string
		if v := c.Query("category"); v != "" {
			category = &v
		}
		if v := c.Query("tag"); v != "" {
			tag = &v
		}
		products, err := models.ListProducts(c.Request.Context(), category, tag)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

func getProductBySlugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := models.GetProductBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

func boxSizesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sizes := []gin.H{}
		for _, size := range models.AllBoxSizes() {
			slots, _ := models.BoxSlots(size)
			sizes = append(sizes, gin.H{
				"size":  size,
				"slots": slots,
			})
		}
		c.JSON(http.StatusOK, gin.H{"box_sizes": sizes})
	}
}

type validateBoxRequest struct {
	BoxSize    string `json:"box_size" binding:"required"`
	ProductIds []int  `json:"product_ids" binding:"required"`
}

// validateBoxHandler is the box builder's dry run: checks the slot rule and
// product availability and prices the box without creating anything.
func validateBoxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validateBoxRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "box_size and product_ids are required"})
			return
		}

		boxSize := models.BoxSize(strings.ToLower(strings.TrimSpace(req.BoxSize)))
		if err := models.ValidateBoxConfig(boxSize, req.ProductIds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "valid": false})
			return
		}

		products, err := models.GetProductsByIds(c.Request.Context(), req.ProductIds)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "valid": false})
			return
		}

		total := decimal.Zero
		for _, id := range req.ProductIds {
			total = total.Add(products[id].Price)
		}

		c.JSON(http.StatusOK, gin.H{
			"valid":         true,
			"box_size":      boxSize,
			"monthly_total": total,
		})
	}
}
