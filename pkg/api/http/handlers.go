package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/fftdetect/internal/application/detections"
	"github.com/aescanero/fftdetect/pkg/domain"
)

// ErrorResponse is the uniform failure body
type ErrorResponse struct {
	Error string `json:"error"`
}

// MissingFieldsResponse is returned when a detection lacks required fields
type MissingFieldsResponse struct {
	Error    string   `json:"error"`
	Required []string `json:"required"`
}

// InternalErrorResponse is returned when a detection cannot be processed
type InternalErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// DetectionResponse is returned for a recorded detection
type DetectionResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Detection domain.Detection `json:"detection"`
}

// handleCreateDetection handles detection ingestion. Its failures are
// answered here and never reach the global error handler.
func (s *Server) handleCreateDetection(c *gin.Context) {
	clientIP := c.RemoteIP()

	body, err := c.GetRawData()
	if err != nil {
		s.detectionFailed(c, clientIP, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	req, err := s.recorder.Decode(body)
	if err != nil {
		s.detectionFailed(c, clientIP, err)
		return
	}

	detection, err := s.recorder.Record(c.Request.Context(), req, clientIP)
	if err != nil {
		var verr *detections.ValidationError
		if errors.As(err, &verr) {
			s.logger.Error(fmt.Sprintf("Error processing request from %s: %s", clientIP, verr.Message),
				zap.String("request_id", requestID(c)))
			c.JSON(http.StatusBadRequest, MissingFieldsResponse{
				Error:    verr.Message,
				Required: verr.Required,
			})
			return
		}
		s.detectionFailed(c, clientIP, err)
		return
	}

	c.JSON(http.StatusCreated, DetectionResponse{
		Success:   true,
		Message:   "Detection recorded",
		Detection: detection,
	})
}

// detectionFailed logs and answers an unexpected ingestion failure
func (s *Server) detectionFailed(c *gin.Context, clientIP string, err error) {
	s.logger.Error(fmt.Sprintf("Error processing detection from %s: %s", clientIP, err),
		zap.String("request_id", requestID(c)))
	c.JSON(http.StatusInternalServerError, InternalErrorResponse{
		Error:   "Internal server error",
		Details: err.Error(),
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	clientIP := c.RemoteIP()

	report, err := s.reporter.Report(c.Request.Context(), clientIP)
	if err != nil {
		_ = c.Error(err)
		return
	}

	s.logger.Info(fmt.Sprintf("Health check from %s", clientIP))
	c.JSON(http.StatusOK, report)
}

// handleNotFound answers unknown routes
func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error: fmt.Sprintf("404 Not Found: %s %s", c.Request.Method, c.Request.URL.Path),
	})
}

// handleMethodNotAllowed answers known routes hit with the wrong method
func (s *Server) handleMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, ErrorResponse{
		Error: fmt.Sprintf("405 Method Not Allowed: %s %s", c.Request.Method, c.Request.URL.Path),
	})
}
