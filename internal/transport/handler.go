package transport

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go-fraud-inspector/internal/config"
	apperrors "go-fraud-inspector/internal/errors"
	"go-fraud-inspector/internal/logger"
	"go-fraud-inspector/internal/observer"
	"go-fraud-inspector/internal/pipeline"
	"go-fraud-inspector/internal/storage"
	"go-fraud-inspector/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the HTTP surface: a health probe, the event counters
// and the listing analysis endpoint.
func NewHandler(pipe *pipeline.Pipeline, fetcher storage.ImageFetcher, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(requestSizeLimiter(cfg.MaxRequestBodySize))

	r.GET("/health", healthCheck)
	r.GET("/metrics", reportMetrics(metrics))
	r.POST("/v1/analyze", analyzeListing(pipe, fetcher, cfg))

	return r
}

func reportMetrics(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

// analyzeListing accepts a multipart form with a required "text" field,
// zero or more "images" file parts and zero or more "image_urls" values.
// Degraded stages inside the pipeline never surface as HTTP errors; only
// malformed requests do.
func analyzeListing(pipe *pipeline.Pipeline, fetcher storage.ImageFetcher, cfg *config.Config) gin.HandlerFunc {
	urlValidator := validation.NewURLValidator()
	if len(cfg.ImageURLAllowedHosts) > 0 {
		urlValidator = validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.ImageURLAllowedHosts)
	}
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing listing analysis request")

		form, err := c.MultipartForm()
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "expected multipart form data", err)
			return
		}

		// Text may be empty for image-only listings; a request with
		// nothing to analyze at all is malformed.
		text := c.PostForm("text")
		if text == "" && len(form.File["images"]) == 0 && len(form.Value["image_urls"]) == 0 {
			err := apperrors.NewValidationError("Request must carry text, images or image_urls", nil)
			respondError(c, apperrors.GetStatusCode(err), "empty analysis request", err)
			return
		}

		images, err := readUploads(form.File["images"])
		if err != nil {
			respondError(c, http.StatusBadRequest, "unreadable image upload", err)
			return
		}

		for _, imageURL := range form.Value["image_urls"] {
			if err := urlValidator.ValidateImageURL(imageURL); err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"url": imageURL,
					"ip":  c.ClientIP(),
				}).Error("Invalid image URL")
				respondError(c, apperrors.GetStatusCode(err), "invalid image URL", err)
				return
			}
			data, err := fetcher.FetchImage(ctx, imageURL)
			if err != nil {
				// Remote images are best effort, like corrupt uploads.
				logger.WithError(err).WithField("url", imageURL).Warn("Skipping unfetchable image URL")
				continue
			}
			images = append(images, data)
		}

		verdict := pipe.Analyze(ctx, text, images)

		duration := time.Since(startTime)
		logger.WithFields(logrus.Fields{
			"request_id":         verdict.Debug.RequestID,
			"label":              string(verdict.Label),
			"risk_score":         verdict.RiskScore,
			"images":             len(images),
			"processing_time_ms": duration.Milliseconds(),
		}).Info("Listing analysis completed")

		c.JSON(http.StatusOK, verdict)
	}
}

func readUploads(files []*multipart.FileHeader) ([][]byte, error) {
	var images [][]byte
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
		}
		images = append(images, data)
	}
	return images, nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
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

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
