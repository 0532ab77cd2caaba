package container

import (
	"fmt"
	"net/http"

	"go-fraud-inspector/internal/classifier"
	"go-fraud-inspector/internal/config"
	"go-fraud-inspector/internal/ensemble"
	"go-fraud-inspector/internal/imageproc"
	"go-fraud-inspector/internal/llm"
	"go-fraud-inspector/internal/logger"
	"go-fraud-inspector/internal/observer"
	"go-fraud-inspector/internal/pipeline"
	"go-fraud-inspector/internal/storage"
	"go-fraud-inspector/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config   *config.Config
	pipeline *pipeline.Pipeline
	metrics  *observer.MetricsObserver
	handler  http.Handler
}

// NewContainer builds the dependency graph from configuration. A broken
// classifier artifact fails startup here; optional stages that are simply
// not configured come up disabled.
func NewContainer(cfg *config.Config) (*Container, error) {
	store, err := buildRunStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build run store: %w", err)
	}

	textClassifier := classifier.New(cfg.CustomModelDir)
	if err := textClassifier.Load(); err != nil {
		return nil, fmt.Errorf("classifier artifact unusable: %w", err)
	}

	var ocrEngine imageproc.OCREngine
	if cfg.OCREnabled {
		ocrEngine = imageproc.NewTesseractOCR(cfg.OCRLanguages)
	}

	var generator llm.Generator
	if cfg.LLMAPIKey != "" {
		generator = llm.NewOpenAIClient(
			cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
			cfg.LLMMaxTokens, cfg.LLMTemperature, cfg.LLMTimeout,
		)
	} else {
		logger.Warn("LLM_API_KEY not set, running without LLM judgment")
	}

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	pipe := pipeline.New(pipeline.Options{
		Normalizer:  imageproc.NewNormalizer(cfg.ImageMaxSide, cfg.JPEGQuality),
		OCR:         ocrEngine,
		Classifier:  textClassifier,
		Judge:       llm.NewJudge(generator),
		Engine:      ensemble.NewEngine(cfg.ThresholdHigh, cfg.ThresholdLow, cfg.BlendWeight),
		Store:       store,
		Events:      events,
		StorageRoot: cfg.StorageRoot,
		SaveInputs:  cfg.SaveInputs,
	})

	fetcher := storage.NewHTTPImageFetcher(cfg.MaxRequestBodySize)
	handler := transport.NewHandler(pipe, fetcher, metrics, cfg)

	return &Container{
		config:   cfg,
		pipeline: pipe,
		metrics:  metrics,
		handler:  handler,
	}, nil
}

func buildRunStore(cfg *config.Config) (storage.RunStore, error) {
	if cfg.AzureConfigured() {
		return storage.NewAzureStore(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
	}
	return storage.NewLocalStore(cfg.StorageRoot), nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
