// Package classifier wraps the trained text fraud classifier. The model
// is exported at training time as a paired artifact: a TF-IDF vectorizer
// (vectorizer.json) and MLP weights (model.json). Inference is a pure
// float64 forward pass, deterministic for identical input text.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	apperrors "go-fraud-inspector/internal/errors"
	"go-fraud-inspector/internal/logger"
)

const (
	vectorizerFile = "vectorizer.json"
	modelFile      = "model.json"
)

// Classifier produces a fraud probability for listing text, or no vote at
// all when the artifact is not installed. Lazy, once-guarded load: safe
// for concurrent first use across requests.
type Classifier struct {
	dir string

	once      sync.Once
	loadErr   error
	available bool
	vec       *vectorizer
	net       *mlp
}

// New creates a classifier reading its artifact from dir. Nothing is
// loaded until Load or the first Predict call.
func New(dir string) *Classifier {
	return &Classifier{dir: dir}
}

// Load reads the artifact pair. Both files missing means the model is
// simply not installed: the classifier stays permanently unavailable and
// Load returns nil. A half-present or unreadable artifact is a
// configuration error, surfaced once and sticky thereafter.
func (c *Classifier) Load() error {
	c.once.Do(func() {
		vecPath := filepath.Join(c.dir, vectorizerFile)
		modelPath := filepath.Join(c.dir, modelFile)

		vecExists := fileExists(vecPath)
		modelExists := fileExists(modelPath)

		if !vecExists && !modelExists {
			logger.WithField("dir", c.dir).Info("Custom classifier artifact not installed, running without classifier vote")
			return
		}
		if !vecExists || !modelExists {
			c.loadErr = apperrors.NewConfigurationError(
				fmt.Sprintf("classifier artifact incomplete in %s: need both %s and %s", c.dir, vectorizerFile, modelFile), nil)
			return
		}

		vec, err := loadVectorizer(vecPath)
		if err != nil {
			c.loadErr = apperrors.NewConfigurationError("failed to load classifier vectorizer", err)
			return
		}
		net, err := loadMLP(modelPath)
		if err != nil {
			c.loadErr = apperrors.NewConfigurationError("failed to load classifier weights", err)
			return
		}
		if net.InDim != vec.dim() {
			c.loadErr = apperrors.NewConfigurationError(
				fmt.Sprintf("classifier artifact mismatch: model expects %d features, vectorizer produces %d", net.InDim, vec.dim()), nil)
			return
		}

		c.vec = vec
		c.net = net
		c.available = true
		logger.WithFields(map[string]interface{}{
			"dir":      c.dir,
			"features": net.InDim,
			"hidden":   net.Hidden,
		}).Info("Custom classifier loaded")
	})
	return c.loadErr
}

// Available reports whether the classifier can vote. Triggers the lazy
// load.
func (c *Classifier) Available() bool {
	_ = c.Load()
	return c.available
}

// Predict returns the fraud probability in [0,1] for text, or nil when
// the classifier is unavailable. Identical text always yields an
// identical probability for the same artifact.
func (c *Classifier) Predict(text string) *float64 {
	if err := c.Load(); err != nil {
		// Startup should have caught this; degrade to no vote per-request.
		logger.WithError(err).Error("Classifier unusable, proceeding without its vote")
		return nil
	}
	if !c.available {
		return nil
	}

	features := c.vec.transform(text)
	logit := c.net.forward(features)
	prob := sigmoid(logit)
	return &prob
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
