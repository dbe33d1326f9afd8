// Package server exposes the inspector over HTTP.
package server

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/seo-optimizer/tag-inspector/inspector"
	"github.com/seo-optimizer/tag-inspector/logging"
	"github.com/seo-optimizer/tag-inspector/middleware"
	"github.com/seo-optimizer/tag-inspector/report"
	"github.com/seo-optimizer/tag-inspector/stats"
)

// Options carries the optional collaborators of a Server
type Options struct {
	Stats       *stats.Storage
	Visitors    *stats.Visitors
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
	// DevMode exposes the full statistics history
	DevMode bool
}

type Server struct {
	inspector   *inspector.Inspector
	stats       *stats.Storage
	visitors    *stats.Visitors
	rateLimiter *middleware.RateLimiter
	templates   *template.Template
	logger      *zap.Logger
	devMode     bool
	now         func() time.Time
}

func New(insp *inspector.Inspector, opts Options) (*Server, error) {
	templates, err := report.Templates()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.L()
	}

	return &Server{
		inspector:   insp,
		stats:       opts.Stats,
		visitors:    opts.Visitors,
		rateLimiter: opts.RateLimiter,
		templates:   templates,
		logger:      opts.Logger,
		devMode:     opts.DevMode,
		now:         time.Now,
	}, nil
}

// Router builds the gin engine with middlewares and routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(middleware.ErrorHandler(s.logger))
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.CORS())
	r.Use(middleware.StatsMiddleware(s.visitors))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if s.rateLimiter != nil {
		api.Use(s.rateLimiter.RateLimit())
	}
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		// SEO analysis endpoints
		api.GET("/analyze", s.analyzeURL)
		api.POST("/analyze", s.analyzePostedURL)
		api.GET("/export", s.exportAnalysis)
		api.GET("/report", s.renderReport)

		api.GET("/statistics", s.statistics)
	}

	return r
}
