package api

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	intconfig "rentcore/internal/config"
	h "rentcore/internal/http/handlers"
	"rentcore/internal/http/middleware"
)

func NewRouter(env intconfig.Env, hd *h.Handler, rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(),
		middleware.CORS(env.AllowedOrigins()), middleware.Authenticate(env.JWTSecret), tracing())

	if err := r.SetTrustedProxies(nil); err != nil {
		zap.L().Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	limit := func(prefix string) gin.HandlerFunc {
		if !env.RateLimitEnabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(rdb, middleware.RateLimitConfig{
			Prefix:   prefix,
			Capacity: env.RateLimitCapacity,
			Refill:   env.RateLimitRefill,
			Interval: env.RateLimitInterval,
		})
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		api.GET("/fees/quote", h.QuoteFees)

		screenings := api.Group("/screenings")
		screenings.POST("", limit("rl:screening"), hd.RunScreening)
		screenings.GET("/me", hd.GetMyScreening)
		screenings.GET("/me/audit", hd.GetMyScreeningAudit)

		webhooks := api.Group("/webhooks")
		webhooks.POST("/background-check", hd.BackgroundCheckWebhook)

		agreements := api.Group("/agreements/:id")
		payment := agreements.Group("/payment", limit("rl:payment"))
		payment.POST("/authorize", hd.AuthorizePayment)
		payment.POST("/settle", hd.SettlePayment)
		payment.POST("/capture", hd.CapturePayment)
		agreements.POST("/signatures", hd.RecordSignature)

		bookings := api.Group("/bookings/:id")
		bookings.GET("/schedule", hd.GetBookingSchedule)
		bookings.GET("/statement", hd.GetBookingStatement)
	}

	h.SetRouter(r)
	return r
}

// tracing opens a server span per request so vendor and processor spans
// nest under it.
func tracing() gin.HandlerFunc {
	tracer := otel.Tracer("rentcore/http")
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
