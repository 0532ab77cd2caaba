package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go-fraud-inspector/internal/logger"
	"go-fraud-inspector/pkg/models"
)

// jsonObjRE grabs the first-to-last brace span: models often wrap the
// object in prose or code fences despite instructions.
var jsonObjRE = regexp.MustCompile(`(?s)\{.*\}`)

// Judge turns a listing bundle into a structured verdict via the
// generative backend. Every failure mode (backend down, junk output,
// invalid JSON) degrades to a nil judgment, never an error the pipeline
// has to handle.
type Judge struct {
	generator Generator
}

// NewJudge creates a judge over the given backend. A nil generator means
// the LLM stage is not configured; Classify then always returns nil.
func NewJudge(generator Generator) *Judge {
	return &Judge{generator: generator}
}

// Classify prompts the model and parses its JSON verdict. Returns nil on
// any failure.
func (j *Judge) Classify(ctx context.Context, b Bundle) *models.LLMJudgment {
	if j == nil || j.generator == nil {
		return nil
	}

	raw, err := j.generator.Generate(ctx, BuildPrompt(b))
	if err != nil {
		logger.WithError(err).Warn("LLM generation failed, proceeding without LLM vote")
		return nil
	}

	judgment, err := parseJudgment(raw)
	if err != nil {
		logger.WithError(err).WithField("output_len", len(raw)).Warn("LLM output unparsable, proceeding without LLM vote")
		return nil
	}
	return judgment
}

// stripCodeFences removes a markdown code fence wrapper if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type rawJudgment struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
	Signals    []struct {
		Type     string `json:"type"`
		Evidence string `json:"evidence"`
	} `json:"signals"`
	Summary string `json:"summary"`
}

func parseJudgment(output string) (*models.LLMJudgment, error) {
	match := jsonObjRE.FindString(stripCodeFences(output))
	if match == "" {
		return nil, fmt.Errorf("no JSON object found in LLM output")
	}

	var raw rawJudgment
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, fmt.Errorf("LLM output is not valid JSON: %w", err)
	}

	// Out-of-set labels are coerced to uncertain, not rejected.
	label := models.ParseLabel(strings.TrimSpace(strings.ToLower(raw.Label)))

	// Missing confidence reads as indifference; clamp whatever arrived.
	confidence := 0.5
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	judgment := &models.LLMJudgment{
		Label:      label,
		Confidence: confidence,
		Summary:    raw.Summary,
	}
	for _, s := range raw.Signals {
		judgment.Signals = append(judgment.Signals, models.RiskSignal{
			Type:     models.SignalType(s.Type),
			Evidence: s.Evidence,
		})
	}
	return judgment, nil
}
