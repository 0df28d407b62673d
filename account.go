package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/gin-gonic/gin"
)

func signupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProfile
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email, name and password are required", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		profile, err := models.Signup(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"profile": profile})
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}
		info, err := models.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logged_out": ok})
	}
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password (min 8 chars) are required"})
			return
		}
		profile, err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

func getMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		profile, err := models.GetProfile(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

func updateMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())

		var input models.ProfileUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		profile, err := models.UpdateProfile(c.Request.Context(), userId, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

func myOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		orders, err := models.ListOrdersByProfile(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

func mySubscriptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		subs, err := models.ListSubscriptionsByProfile(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
	}
}

func subscriptionIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return 0, false
	}
	return id, true
}

type pauseRequest struct {
	PauseUntil *time.Time `json:"pause_until"`
}

func pauseSubscriptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := subscriptionIdParam(c)
		if !ok {
			return
		}
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())

		var req pauseRequest
		// empty body means open-ended pause
		_ = c.ShouldBindJSON(&req)

		sub, err := models.PauseSubscription(c.Request.Context(), id, userId, req.PauseUntil)
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscription": sub})
	}
}

func resumeSubscriptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := subscriptionIdParam(c)
		if !ok {
			return
		}
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		sub, err := models.ResumeSubscription(c.Request.Context(), id, userId)
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscription": sub})
	}
}

func cancelSubscriptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := subscriptionIdParam(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		userId, _ := utils.GetUserIdFromContext(ctx)

		sub, err := models.CancelSubscription(ctx, id, userId)
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		// Best effort: cancel on the provider side too. The
		// subscription.deleted webhook reconciles if this call fails.
		if sub.StripeSubscriptionId != "" {
			if client, err := getStripeClient(); err == nil {
				_ = client.CancelSubscription(ctx, sub.StripeSubscriptionId)
			}
		}

		c.JSON(http.StatusOK, gin.H{"subscription": sub})
	}
}

type updateBoxRequest struct {
	ProductIds []int `json:"product_ids" binding:"required"`
}

func updateBoxConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := subscriptionIdParam(c)
		if !ok {
			return
		}
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())

		var req updateBoxRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_ids is required"})
			return
		}
		sub, err := models.UpdateBoxConfig(c.Request.Context(), id, userId, req.ProductIds)
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscription": sub})
	}
}

type redeemGiftCardRequest struct {
	Code string `json:"code" binding:"required"`
}

func redeemGiftCardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())

		var req redeemGiftCardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
			return
		}
		card, err := models.RedeemGiftCard(c.Request.Context(), req.Code, userId)
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"gift_card": card, "credited": card.InitialBalance})
	}
}
