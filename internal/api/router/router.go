package router

import (
	"net/http"

	"github.com/cuongbtq/booking-core/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the non-API routes
type Options struct {
	// Gatherer is served on MetricsPath when set
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	service := deps.ServiceName
	if service == "" {
		service = "booking-api-service"
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": service,
		})
	})

	if opts.Gatherer != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	bookings := handler.NewBookingHandler(deps)

	v1 := r.Group("/api/v1", ActorMiddleware())
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", bookings.CreateJob)
			jobs.GET("", bookings.ListJobs)
			jobs.GET("/history", bookings.ListHistory)
			jobs.GET("/potential", bookings.PotentialJobs)

			jobs.PATCH("/:job_id", bookings.UpdateJob)
			jobs.POST("/:job_id/email", bookings.StoreJobEmail)
			jobs.POST("/:job_id/accept", bookings.AcceptJob)
			jobs.POST("/:job_id/cancel", bookings.CancelJob)
			jobs.POST("/:job_id/end", bookings.EndJob)
			jobs.POST("/:job_id/not-call", bookings.CustomerNotCall)
			jobs.POST("/:job_id/reopen", bookings.Reopen)
			jobs.PUT("/:job_id/distance", bookings.UpdateDistanceFeed)

			jobs.POST("/:job_id/notifications/push", bookings.ResendPush)
			jobs.POST("/:job_id/notifications/sms", bookings.ResendSMS)
			jobs.POST("/:job_id/notifications/admin-cancel", bookings.NotifyAdminCancel)
		}
	}

	return r
}
