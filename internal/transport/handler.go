package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/analysis"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/asset"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/config"
	apperrors "github.com/Pr0gramm3r2022/3DSpatialAgents/internal/errors"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/logger"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/observer"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/service"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler wires the HTTP API around the analysis service.
func NewHandler(svc service.AnalysisService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", reportMetrics(metrics))
	r.POST("/sessions/:id/asset", submitAsset(svc, cfg))
	r.POST("/sessions/:id/asset/wait", awaitReady(svc, cfg))
	r.GET("/sessions/:id/asset", currentAsset(svc))
	r.POST("/sessions/:id/analyze", runAnalysis(svc, cfg))

	return r
}

func submitAsset(svc service.AnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.MediaFetchTimeout+cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"session_id": sessionID,
			"ip":         c.ClientIP(),
		}).Info("Processing asset submission")

		var req models.SubmitAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		src := service.MediaSource{
			URL:         req.URL,
			BlobURL:     req.BlobURL,
			DisplayName: req.DisplayName,
		}
		if req.DataBase64 != "" {
			data, err := base64.StdEncoding.DecodeString(req.DataBase64)
			if err != nil {
				respondError(c, http.StatusBadRequest, "data_base64 is not valid base64", err)
				return
			}
			src.Data = data
		}

		a, err := svc.SubmitAsset(ctx, sessionID, src)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "asset submission failed", err)
			return
		}

		c.JSON(http.StatusAccepted, assetResponse(sessionID, a))
	}
}

func awaitReady(svc service.AnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.PollTimeout+cfg.RequestTimeout)
		defer cancel()

		a, err := svc.AwaitReady(ctx, sessionID)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "asset readiness wait failed", err)
			return
		}

		c.JSON(http.StatusOK, assetResponse(sessionID, a))
	}
}

func currentAsset(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")

		a := svc.CurrentAsset(sessionID)
		if a == nil {
			respondError(c, http.StatusNotFound, "no asset submitted for this session", nil)
			return
		}

		c.JSON(http.StatusOK, assetResponse(sessionID, a))
	}
}

func runAnalysis(svc service.AnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		sessionID := c.Param("id")
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		result, cached, err := svc.RunAnalysis(ctx, sessionID, req.Prompt, req.SystemPrompt, analysis.Mode(req.Mode))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "analysis failed", err)
			return
		}

		resp := models.AnalyzeResponse{
			SessionID:   sessionID,
			Mode:        req.Mode,
			RawText:     result.RawText,
			Diagnostics: result.Diagnostics,
			Cached:      cached,
		}
		for _, item := range result.Items {
			resp.Items = append(resp.Items, models.AnnotationItem{
				Label: item.Label,
				Point: item.Point,
				Box:   item.Box,
			})
		}

		logger.WithFields(logrus.Fields{
			"session_id":         sessionID,
			"mode":               req.Mode,
			"cached":             cached,
			"items":              len(resp.Items),
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Analysis request completed")

		c.JSON(http.StatusOK, resp)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func reportMetrics(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func assetResponse(sessionID string, a *asset.MediaAsset) models.AssetResponse {
	return models.AssetResponse{
		SessionID:   sessionID,
		DisplayName: a.DisplayName(),
		State:       string(a.State()),
		RemoteID:    a.RemoteID(),
		RemoteURI:   a.RemoteURI(),
		SizeBytes:   a.Size(),
		MIMEType:    a.MIMEType(),
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	if err == nil {
		c.AbortWithStatusJSON(code, ErrorResponse{Error: http.StatusText(code), Message: message})
		return
	}
	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
