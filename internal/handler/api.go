package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"grading-service/internal/grading"
	"grading-service/internal/models"
	"grading-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	reviewer *service.Reviewer
	logger   *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(reviewer *service.Reviewer, logger *zap.Logger) *Handler {
	return &Handler{
		reviewer: reviewer,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Session lifecycle
		api.POST("/sessions", h.StartSession)
		api.GET("/sessions/:id/current", h.Current)
		api.POST("/sessions/:id/advance", h.Advance)
		api.POST("/sessions/:id/retreat", h.Retreat)
		api.POST("/sessions/:id/skip-labeled", h.SkipLabeled)
		api.POST("/sessions/:id/submit", h.Submit)

		// Data retrieval
		api.GET("/sessions/:id/records", h.Records)
		api.GET("/derived", h.Derived)

		// Export
		api.GET("/sessions/:id/export/csv", h.ExportCSV)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// StartSession loads the record sequence and opens a review session
func (h *Handler) StartSession(c *gin.Context) {
	view, err := h.reviewer.StartSession(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to start session", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// Current returns the record under the cursor with its form defaults
func (h *Handler) Current(c *gin.Context) {
	view, err := h.reviewer.Current(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Advance moves the cursor to the next record
func (h *Handler) Advance(c *gin.Context) {
	view, err := h.reviewer.Advance(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Retreat moves the cursor to the previous record
func (h *Handler) Retreat(c *gin.Context) {
	view, err := h.reviewer.Retreat(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SkipLabeled advances past already-graded records
func (h *Handler) SkipLabeled(c *gin.Context) {
	view, found, err := h.reviewer.SkipLabeled(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"view":            view,
		"unlabeled_found": found,
	})
}

// Submit validates and saves the reviewer's grade for the current record
func (h *Handler) Submit(c *gin.Context) {
	var input grading.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reviewer.Submit(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		// The local write already succeeded for these two; report the
		// conflict without discarding the durable state.
		if errors.Is(err, models.ErrConcurrentModification) {
			c.JSON(http.StatusConflict, gin.H{
				"error":  err.Error(),
				"record": result.Record,
				"note":   "local save succeeded; reload the session and retry the push",
			})
			return
		}
		if errors.Is(err, models.ErrSyncFailure) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  err.Error(),
				"record": result.Record,
				"note":   "local save succeeded; retry the push",
			})
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Records returns the current state of the full record sequence
func (h *Handler) Records(c *gin.Context) {
	records, err := h.reviewer.Records(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   len(records),
	})
}

// Derived computes the measurement-based percentage for live display
func (h *Handler) Derived(c *gin.Context) {
	a, errA := strconv.ParseFloat(c.Query("a"), 64)
	b, errB := strconv.ParseFloat(c.Query("b"), 64)
	cc, errC := strconv.ParseFloat(c.Query("c"), 64)
	if errA != nil || errB != nil || errC != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a, b and c must be numeric"})
		return
	}

	c.JSON(http.StatusOK, h.reviewer.Derived(a, b, cc))
}

// ExportCSV exports the record sequence in canonical column order
func (h *Handler) ExportCSV(c *gin.Context) {
	records, err := h.reviewer.Records(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=grading.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"key", "ground_truth", "grade", "percentage", "labeled"})

	// Write data
	for _, rec := range records {
		writer.Write([]string{
			rec.Key,
			rec.GroundTruth,
			string(rec.Grade),
			fmt.Sprintf("%d", rec.Percentage),
			strconv.FormatBool(rec.Labeled),
		})
	}
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "grading-service",
		"condition": string(h.reviewer.Condition()),
		"version":   "1.0.0",
	})
}

// writeError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": vErr.Error(),
			"field": vErr.Field,
		})
	case errors.Is(err, service.ErrNoSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, models.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSourceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrIndexOutOfRange):
		h.logger.Error("Cursor and store disagree", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
	}
}
