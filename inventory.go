package main

import (
	"net/http"
	"strconv"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/models"
	"github.com/gin-gonic/gin"
)

func listInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var productId *int
		if v := c.Query("product_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id"})
				return
			}
			productId = &id
		}
		var warehouse *string
		if v := c.Query("warehouse"); v != "" {
			warehouse = &v
		}

		rows, err := models.ListInventory(c.Request.Context(), productId, warehouse)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"inventory": rows})
	}
}

// restockInventoryHandler rejects missing product or non-positive quantity
// with 400 before any write happens.
func restockInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var input models.RestockInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_id and quantity are required"})
			return
		}
		if input.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
			return
		}

		inv, err := models.RestockInventory(c.Request.Context(), &input)
		if err != nil {
			config.LogError(logger, "inventory.go", "restockInventoryHandler", "RestockInventory", input, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"inventory": inv})
	}
}

func inventoryAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := models.ListInventoryAlerts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": rows})
	}
}

func updateAlertSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.AlertSettingsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
			return
		}
		inv, err := models.UpdateAlertSettings(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"inventory": inv})
	}
}
