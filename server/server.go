package server

import (
	"context"
	"net/http"
	"time"

	"mandi-prices/logging"
	"mandi-prices/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PriceExtractor runs one scrape per call
type PriceExtractor interface {
	Extract(ctx context.Context) (models.ScrapeResult, error)
}

// Server exposes the scraped prices over HTTP
type Server struct {
	extractor PriceExtractor
	log       zerolog.Logger
}

// NewServer creates a Server around an extractor
func NewServer(extractor PriceExtractor) *Server {
	return &Server{
		extractor: extractor,
		log:       logging.NewLogger("server"),
	}
}

// Router builds the gin engine: recovery, request logging, permissive CORS
// and the single prices route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/api/prices", s.GetPrices)

	return r
}

// GetPrices scrapes the dashboard synchronously and returns every record.
// Launch and navigation failures produce a bare 500.
func (s *Server) GetPrices(c *gin.Context) {
	result, err := s.extractor.Extract(c.Request.Context())
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, models.NewPricesResponse(result.Records))
}

// requestLogger logs one line per request through zerolog
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
