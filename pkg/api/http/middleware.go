package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/fftdetect/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/fftdetect/pkg/domain"
)

const (
	// RequestIDHeader carries the request correlation id
	RequestIDHeader = "X-Request-Id"

	requestIDKey = "request_id"
)

// requestIDMiddleware keeps the caller's request id or assigns a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// requestLogger journals detection bodies before the handler runs and emits
// the access line once the response is final
func requestLogger(logger *zap.Logger, journal RequestJournal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && c.Request.URL.Path == DetectionsPath {
			if err := journalBody(c, logger, journal); err != nil {
				logger.Error(err.Error(),
					zap.String(requestIDKey, requestID(c)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			}
		}

		c.Next()

		clientIP := c.GetHeader("X-Forwarded-For")
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}
		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}
		logger.Info(fmt.Sprintf("%s %s %s %s %d - %d",
			domain.FormatTimestamp(time.Now()),
			clientIP,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			size,
		))
	}
}

// journalBody reads the request body, appends it to the request journal and
// restores it for the handler
func journalBody(c *gin.Context, logger *zap.Logger, journal RequestJournal) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if err := journal.AppendRequest(c.RemoteIP(), body); err != nil {
		return fmt.Errorf("failed to journal request: %w", err)
	}
	logger.Info(fmt.Sprintf("Received detection: %s", body))
	return nil
}

// metricsMiddleware records request counts and latencies by route template
func metricsMiddleware(metrics *prometheus.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// errorHandler answers errors attached with c.Error when the handler wrote
// no response itself
func errorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		logger.Error(err.Error(),
			zap.String(requestIDKey, requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// recoveryHandler converts a panic into the uniform 500 body
func recoveryHandler(logger *zap.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		msg := fmt.Sprint(recovered)
		logger.Error(msg,
			zap.String(requestIDKey, requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
	}
}
