package main

import (
	"net/http"

	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/gin-gonic/gin"
)

func dealerApplyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())

		var input models.DealerApplication
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "organization_name is required"})
			return
		}
		dealer, err := models.ApplyDealer(c.Request.Context(), userId, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"dealer": dealer})
	}
}

func dealerSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		summary, err := models.GetDealerSummary(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "dealer not found"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func dealerCommissionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		dealer, err := models.GetDealerByProfileId(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "dealer not found"})
			return
		}
		rows, err := models.ListCommissionsByDealer(c.Request.Context(), dealer.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"commissions": rows})
	}
}
