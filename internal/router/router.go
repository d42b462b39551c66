package router

import (
	"fmt"
	"strings"

	"github.com/Rishiupp/pettrack-api/internal/cache"
	"github.com/Rishiupp/pettrack-api/internal/config"
	publichandlers "github.com/Rishiupp/pettrack-api/internal/http/handlers/public"
	"github.com/Rishiupp/pettrack-api/internal/logger"
	"github.com/Rishiupp/pettrack-api/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires middleware and routes.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pt"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}
	orderRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:order_create", redisPrefix),
		WindowSeconds: cfg.Security.OrderRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.OrderRateLimit.MaxAttempts,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("phone")), publicHandler.UserLogin)
		}

		// Public QR resolution, the code on a pet tag needs no login.
		apiV1.GET("/qr/:code", publicHandler.GetQRCode)

		// Gateway webhook; authenticated by its HMAC signature, never by JWT.
		apiV1.POST("/payments/webhook/razorpay", publicHandler.RazorpayWebhook)

		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.POST("/payments/orders", RateLimitMiddleware(redisClient, orderRule, KeyByIP), publicHandler.CreatePaymentOrder)
			user.POST("/payments/verify", publicHandler.VerifyPayment)
			user.GET("/payments/orders", publicHandler.ListOrders)
			user.GET("/payments/orders/by-order-no/:order_no", publicHandler.GetOrderByOrderNo)
			user.GET("/me/qr-codes", publicHandler.ListMyQRCodes)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
