package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/tag-inspector/inspector"
	"github.com/seo-optimizer/tag-inspector/report"
	"github.com/seo-optimizer/tag-inspector/stats"
)

const (
	visitorWindow   = 24 * time.Hour
	popularURLLimit = 10
)

// inspect runs the inspection for rawURL and sets the X-Cache header. On
// failure the error response is already written.
func (s *Server) inspect(c *gin.Context, rawURL string) (*inspector.Result, bool) {
	result, err := s.inspector.Inspect(c.Request.Context(), rawURL)
	if err != nil {
		s.writeError(c, rawURL, err)
		return nil, false
	}

	if result.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	return result, true
}

func (s *Server) analyzeURL(c *gin.Context) {
	result, ok := s.inspect(c, c.Query("url"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result.Analysis)
}

func (s *Server) analyzePostedURL(c *gin.Context) {
	var request struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, ok := s.inspect(c, request.URL)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result.Analysis)
}

func (s *Server) exportAnalysis(c *gin.Context) {
	result, ok := s.inspect(c, c.Query("url"))
	if !ok {
		return
	}

	data, err := report.JSON(result.Analysis)
	if err != nil {
		s.writeError(c, result.Analysis.URL, err)
		return
	}

	filename := report.ExportFilename(result.Analysis.URL)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) renderReport(c *gin.Context) {
	result, ok := s.inspect(c, c.Query("url"))
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.HTML(&buf, s.templates, result.Analysis, s.now()); err != nil {
		s.writeError(c, result.Analysis.URL, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// statisticsResponse is the public view of usage statistics. The detailed
// fields are only filled in dev mode.
type statisticsResponse struct {
	Month          string    `json:"month"`
	Analyses       int       `json:"analyses"`
	AverageScore   float64   `json:"averageScore"`
	UniqueVisitors int       `json:"uniqueVisitors"`
	LastUpdated    time.Time `json:"lastUpdated"`

	CacheHits      *int                          `json:"cacheHits,omitempty"`
	CacheMisses    *int                          `json:"cacheMisses,omitempty"`
	FetchFailures  *int                          `json:"fetchFailures,omitempty"`
	CachedAnalyses *int                          `json:"cachedAnalyses,omitempty"`
	PopularURLs    []stats.URLCount              `json:"popularUrls,omitempty"`
	History        map[string]stats.MonthlyStats `json:"history,omitempty"`
}

func (s *Server) statistics(c *gin.Context) {
	var response statisticsResponse
	response.Month = s.now().Format("2006-01")

	if s.visitors != nil {
		response.UniqueVisitors = s.visitors.UniqueVisitors(visitorWindow)
	}

	var current stats.MonthlyStats
	if s.stats != nil {
		current = s.stats.GetCurrentStats()
	}
	response.Analyses = current.Analyses
	response.AverageScore = current.AverageScore()
	response.LastUpdated = current.LastUpdated

	if s.devMode {
		response.CacheHits = &current.CacheHits
		response.CacheMisses = &current.CacheMisses
		response.FetchFailures = &current.FetchFailures

		if size, err := s.inspector.CacheSize(c.Request.Context()); err == nil {
			response.CachedAnalyses = &size
		}
		if s.visitors != nil {
			response.PopularURLs = s.visitors.PopularURLs(popularURLLimit)
		}
		if s.stats != nil {
			response.History = make(map[string]stats.MonthlyStats)
			for _, month := range s.stats.GetAllMonths() {
				if monthly, ok := s.stats.GetMonthlyStats(month); ok {
					response.History[month] = monthly
				}
			}
		}
	}

	c.JSON(http.StatusOK, response)
}
