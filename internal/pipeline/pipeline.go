// Package pipeline orchestrates one listing analysis end to end: text
// normalization, per-image processing, the two model votes, the ensemble
// decision and verdict assembly. Optional stages degrade to absent
// output; the caller always gets a well-formed Verdict.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-fraud-inspector/internal/classifier"
	"go-fraud-inspector/internal/ensemble"
	"go-fraud-inspector/internal/imageproc"
	"go-fraud-inspector/internal/llm"
	"go-fraud-inspector/internal/logger"
	"go-fraud-inspector/internal/observer"
	"go-fraud-inspector/internal/storage"
	"go-fraud-inspector/internal/textproc"
	"go-fraud-inspector/pkg/models"
)

const (
	ocrPreviewLimit = 2000 // runes of OCR text kept in the debug bundle
	summaryLimit    = 1000 // runes of LLM summary kept in the verdict
	persistDeadline = 10 * time.Second
)

// Pipeline wires the analysis stages together.
type Pipeline struct {
	normalizer  *imageproc.Normalizer
	ocr         imageproc.OCREngine
	classifier  *classifier.Classifier
	judge       *llm.Judge
	engine      *ensemble.Engine
	store       storage.RunStore
	events      observer.Subject
	pool        *WorkerPool
	storageRoot string
	saveInputs  bool
}

// Options carries the collaborators the pipeline runs with. Classifier,
// OCR engine, judge, store and events may each be nil/unavailable; the
// corresponding stage then degrades per policy.
type Options struct {
	Normalizer   *imageproc.Normalizer
	OCR          imageproc.OCREngine
	Classifier   *classifier.Classifier
	Judge        *llm.Judge
	Engine       *ensemble.Engine
	Store        storage.RunStore
	Events       observer.Subject
	StorageRoot  string
	SaveInputs   bool
	ImageWorkers int
}

// New assembles a pipeline from its collaborators.
func New(opts Options) *Pipeline {
	engine := opts.Engine
	if engine == nil {
		engine = ensemble.DefaultEngine()
	}
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = imageproc.NewNormalizer(1400, 92)
	}
	pool := NewWorkerPool(opts.ImageWorkers)
	pool.Start()

	return &Pipeline{
		normalizer:  normalizer,
		ocr:         opts.OCR,
		classifier:  opts.Classifier,
		judge:       opts.Judge,
		engine:      engine,
		store:       opts.Store,
		events:      opts.Events,
		pool:        pool,
		storageRoot: opts.StorageRoot,
		saveInputs:  opts.SaveInputs,
	}
}

type processedResult struct {
	image   imageproc.ProcessedImage
	ocrText string
	ok      bool
}

// Analyze runs the full pipeline for one listing. Never returns an
// error: degraded stages show up as absent votes or dropped images in
// the verdict.
func (p *Pipeline) Analyze(ctx context.Context, userText string, images [][]byte) models.Verdict {
	start := time.Now()
	requestID := newRequestID()

	p.notify(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		Timestamp: start,
		RequestID: requestID,
		Success:   true,
		Metadata:  map[string]interface{}{"images": len(images), "text_len": len(userText)},
	})

	userText = textproc.Normalize(userText)

	processed, ocrText := p.processImages(ctx, requestID, images)

	combined := strings.TrimSpace(userText + "\n" + ocrText)

	// The classifier and the judge have no data dependency; run them
	// concurrently and let the ensemble consume whatever each produced.
	var (
		wg         sync.WaitGroup
		customProb *float64
		judgment   *models.LLMJudgment
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if p.classifier != nil {
			customProb = p.classifier.Predict(combined)
		}
	}()
	go func() {
		defer wg.Done()
		judgment = p.judge.Classify(ctx, llm.Bundle{
			UserText: userText,
			OCRText:  ocrText,
			Patterns: textproc.ExtractPatterns(combined),
			Signals:  textproc.ExtractRiskSignals(combined),
		})
	}()
	wg.Wait()

	if judgment == nil {
		p.notify(ctx, observer.AnalysisEvent{
			EventType: observer.LLMVoteMissing,
			Timestamp: time.Now(),
			RequestID: requestID,
		})
	}

	label, score := p.engine.Decide(customProb, judgment)
	score = ensemble.Clamp(score)

	signals := textproc.ExtractRiskSignals(combined)

	verdict := models.Verdict{
		Label:     label,
		RiskScore: score,
		Votes:     buildVotes(customProb, judgment),
		Signals:   signals,
		Summary:   truncateRunes(summaryOf(judgment), summaryLimit),
		Debug: models.DebugInfo{
			RequestID:       requestID,
			ProcessedImages: imagePaths(processed),
			OCRText:         truncateRunes(ocrText, ocrPreviewLimit),
		},
	}

	p.persistBundle(requestID, userText, ocrText, customProb, judgment)

	p.notify(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Timestamp:      time.Now(),
		RequestID:      requestID,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"label":      string(label),
			"risk_score": score,
			"images_ok":  len(verdict.Debug.ProcessedImages),
		},
	})

	return verdict
}

// processImages normalizes, persists and OCRs each image on the worker
// pool. Failed images are dropped; output order matches input order.
func (p *Pipeline) processImages(ctx context.Context, requestID string, images [][]byte) ([]imageproc.ProcessedImage, string) {
	if len(images) == 0 {
		return nil, ""
	}

	results := make([]processedResult, len(images))
	var wg sync.WaitGroup
	for idx, data := range images {
		wg.Add(1)
		idx, data := idx, data
		p.pool.Submit(func() {
			defer wg.Done()
			results[idx] = p.processOne(ctx, requestID, idx, data)
		})
	}
	wg.Wait()

	var (
		ok       []imageproc.ProcessedImage
		ocrParts []string
	)
	for _, r := range results {
		if !r.ok {
			continue
		}
		ok = append(ok, r.image)
		if r.ocrText != "" {
			ocrParts = append(ocrParts, r.ocrText)
		}
	}
	return ok, strings.TrimSpace(strings.Join(ocrParts, "\n"))
}

func (p *Pipeline) processOne(ctx context.Context, requestID string, idx int, data []byte) processedResult {
	img, err := p.normalizer.Normalize(data)
	if err != nil {
		p.skipImage(ctx, requestID, idx, err)
		return processedResult{}
	}

	dest := filepath.Join(p.storageRoot, "images", requestID, fmt.Sprintf("%d.jpg", idx))
	saved, err := p.normalizer.Save(img, dest)
	if err != nil {
		p.skipImage(ctx, requestID, idx, err)
		return processedResult{}
	}

	return processedResult{
		image:   saved,
		ocrText: imageproc.BestEffortText(p.ocr, saved.Path),
		ok:      true,
	}
}

func (p *Pipeline) skipImage(ctx context.Context, requestID string, idx int, err error) {
	logger.WithError(err).WithFields(map[string]interface{}{
		"request_id": requestID,
		"image_idx":  idx,
	}).Warn("Dropping image that failed processing")
	p.notify(ctx, observer.AnalysisEvent{
		EventType:    observer.ImageSkipped,
		Timestamp:    time.Now(),
		RequestID:    requestID,
		ErrorMessage: err.Error(),
		Metadata:     map[string]interface{}{"image_idx": idx},
	})
}

// persistBundle hands the run bundle to the store without blocking the
// verdict on it. Gated by configuration; failure is an event, nothing
// more.
func (p *Pipeline) persistBundle(requestID, userText, ocrText string, customProb *float64, judgment *models.LLMJudgment) {
	if !p.saveInputs || p.store == nil {
		return
	}

	bundle := map[string]interface{}{
		"user_text":   userText,
		"ocr_text":    ocrText,
		"custom_prob": customProb,
		"llm_out":     judgment,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistDeadline)
		defer cancel()
		key := fmt.Sprintf("runs/%s/bundle.json", requestID)
		if err := p.store.PutJSON(ctx, key, bundle); err != nil {
			p.notify(ctx, observer.AnalysisEvent{
				EventType:    observer.PersistenceFailed,
				Timestamp:    time.Now(),
				RequestID:    requestID,
				ErrorMessage: err.Error(),
			})
		}
	}()
}

func (p *Pipeline) notify(ctx context.Context, event observer.AnalysisEvent) {
	if p.events != nil {
		p.events.NotifyObservers(ctx, event)
	}
}

func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func buildVotes(customProb *float64, judgment *models.LLMJudgment) models.ModelVotes {
	votes := models.ModelVotes{CustomModelProb: customProb}
	if judgment != nil {
		label := judgment.Label
		confidence := judgment.Confidence
		votes.LLMLabel = &label
		votes.LLMConfidence = &confidence
	}
	return votes
}

func summaryOf(judgment *models.LLMJudgment) string {
	if judgment == nil {
		return ""
	}
	return judgment.Summary
}

func imagePaths(processed []imageproc.ProcessedImage) []string {
	paths := make([]string, 0, len(processed))
	for _, img := range processed {
		paths = append(paths, img.Path)
	}
	return paths
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
