package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seo-optimizer/tag-inspector/analyzer"
	"github.com/seo-optimizer/tag-inspector/fetcher"
)

// writeError maps an inspection error onto the API's {message, details} body
func (s *Server) writeError(c *gin.Context, rawURL string, err error) {
	status, body := errorResponse(err)

	log := s.logger.Warn
	if status >= http.StatusInternalServerError {
		log = s.logger.Error
	}
	log("analysis request failed",
		zap.String("url", rawURL),
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err),
	)

	c.JSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var statusErr *fetcher.StatusError
	var schemaErr *analyzer.SchemaError

	switch {
	case errors.Is(err, fetcher.ErrEmptyURL):
		return http.StatusBadRequest, gin.H{"message": "URL parameter is required"}

	case errors.Is(err, analyzer.ErrInvalidURL):
		return http.StatusBadRequest, gin.H{"message": "Invalid URL", "details": err.Error()}

	case errors.As(err, &statusErr):
		status := statusErr.StatusCode
		// Only error statuses are relayed as-is
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		return status, gin.H{"message": statusErr.Error()}

	case errors.Is(err, fetcher.ErrFetch):
		return http.StatusBadGateway, gin.H{"message": "Failed to fetch URL", "details": err.Error()}

	case errors.As(err, &schemaErr):
		return http.StatusInternalServerError, gin.H{
			"message": "Error validating analysis results",
			"details": schemaErr.Violations,
		}
	}

	return http.StatusInternalServerError, gin.H{"message": "Error analyzing URL", "details": err.Error()}
}
