package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/middlewares"
	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/aurafoods/aura_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("aura-backend")

// RateLimiter throttles per client IP using a Redis counter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated); non-production allows all for developer convenience.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "Stripe-Signature")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// Start listening immediately (startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow disabling on startup
	// and running migrations as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start the outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work mid-drain.
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// Webhooks and checkout.
	api.POST("/webhooks/stripe", stripeWebhookHandler())
	api.POST("/checkout", middlewares.RequireAuth(), checkoutHandler())

	// Inventory API (automation tool or admin).
	inventory := api.Group("/inventory", middlewares.InventoryAuthMiddleware())
	inventory.GET("", listInventoryHandler())
	inventory.POST("", restockInventoryHandler())
	inventory.GET("/alerts", inventoryAlertsHandler())
	inventory.POST("/alerts", updateAlertSettingsHandler())

	// Auth.
	auth := api.Group("/auth")
	auth.POST("/signup", signupHandler())
	auth.POST("/login", loginHandler())
	auth.POST("/logout", middlewares.RequireAuth(), logoutHandler())
	auth.POST("/password", middlewares.RequireAuth(), changePasswordHandler())

	// Catalog and box builder.
	api.GET("/products", listProductsHandler())
	api.GET("/products/:slug", getProductBySlugHandler())
	api.GET("/box-sizes", boxSizesHandler())
	api.POST("/box/validate", validateBoxHandler())

	// Account.
	me := api.Group("/me", middlewares.RequireAuth())
	me.GET("", getMeHandler())
	me.PUT("", updateMeHandler())
	me.GET("/orders", myOrdersHandler())
	me.GET("/subscriptions", mySubscriptionsHandler())

	subs := api.Group("/subscriptions", middlewares.RequireAuth())
	subs.POST("/:id/pause", pauseSubscriptionHandler())
	subs.POST("/:id/resume", resumeSubscriptionHandler())
	subs.POST("/:id/cancel", cancelSubscriptionHandler())
	subs.PUT("/:id/box", updateBoxConfigHandler())

	api.POST("/giftcards/redeem", middlewares.RequireAuth(), redeemGiftCardHandler())

	// Dealer portal.
	api.POST("/dealers/apply", middlewares.RequireAuth(), dealerApplyHandler())
	dealer := api.Group("/dealer", middlewares.RequireAuth(), middlewares.RequireRole("dealer"))
	dealer.GET("/summary", dealerSummaryHandler())
	dealer.GET("/commissions", dealerCommissionsHandler())

	// Admin back office.
	admin := api.Group("/admin", middlewares.RequireAuth(), middlewares.RequireRole("admin"))
	admin.POST("/products", createProductHandler())
	admin.PUT("/products/:id", updateProductHandler())
	admin.DELETE("/products/:id", deleteProductHandler())
	admin.POST("/products/:id/image", uploadProductImageHandler())
	admin.GET("/orders", adminListOrdersHandler())
	admin.PUT("/orders/:id/status", adminUpdateOrderStatusHandler())
	admin.GET("/orders/export", adminExportOrdersHandler())
	admin.GET("/dealers", adminListDealersHandler())
	admin.POST("/dealers/:id/approve", adminApproveDealerHandler())
	admin.POST("/dealers/:id/payout", adminDealerPayoutHandler())
	admin.POST("/giftcards", adminCreateGiftCardHandler())
	admin.GET("/vending-machines", adminListVendingMachinesHandler())
	admin.POST("/vending-machines", adminCreateVendingMachineHandler())
	admin.PUT("/vending-machines/:id/status", adminUpdateVendingMachineStatusHandler())
	admin.GET("/vending-machines/:id/slots", adminListVendingSlotsHandler())
	admin.PUT("/vending-machines/:id/slots", adminUpsertVendingSlotHandler())
	admin.GET("/interactions", adminListInteractionsHandler())
	admin.POST("/ops/outbox/replay", outboxReplayHandler())
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
