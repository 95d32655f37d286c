package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/batch"
	"github.com/cobreops/invoice-triage/internal/output"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ProcessRequest is the body of a single-invoice processing call.
type ProcessRequest struct {
	ID      int64  `json:"id"`
	Content string `json:"content" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleProcess runs one invoice through the full pipeline and returns
// its integration record.
func (s *Server) handleProcess(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	records, err := s.coordinator.ProcessBatch(c.Request.Context(), []batch.Document{
		{ID: req.ID, Content: req.Content},
	})
	if err != nil || len(records) == 0 {
		s.logger.Error("Failed to process invoice",
			zap.Int64("invoice_id", req.ID),
			zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "processing aborted"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: output.Build(records[0])})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: s.metrics.Summary()})
}
