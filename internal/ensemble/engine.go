// Package ensemble fuses the classifier probability and the LLM judgment
// into one label and risk score. Pure function of its inputs; no state
// survives between calls.
package ensemble

import (
	"go-fraud-inspector/pkg/models"
)

// neutralPrior substitutes for an absent classifier vote.
const neutralPrior = 0.5

// Engine holds the decision thresholds and the ambiguous-zone blend
// weight. The 0.5/0.5 blend of the source system is a choice, not a
// derived optimum, so it is configurable here.
type Engine struct {
	highThreshold float64
	lowThreshold  float64
	blendWeight   float64 // weight of the classifier probability in the blend
}

// NewEngine creates a decision engine. highThreshold is the classifier
// probability at or above which fraud is declared without consulting the
// LLM; lowThreshold the symmetric legit cutoff; blendWeight the
// classifier's share of the ambiguous-zone average.
func NewEngine(highThreshold, lowThreshold, blendWeight float64) *Engine {
	return &Engine{
		highThreshold: highThreshold,
		lowThreshold:  lowThreshold,
		blendWeight:   blendWeight,
	}
}

// DefaultEngine returns an engine with the source system's tuning:
// high 0.85, low 0.20, even blend.
func DefaultEngine() *Engine {
	return NewEngine(0.85, 0.20, 0.5)
}

// Decide fuses the two votes. customProb nil means the classifier is
// unavailable; llmVote nil means the LLM stage produced nothing usable.
//
// Decision table, evaluated in order:
//  1. absent classifier vote -> neutral prior 0.5
//  2. prob >= high          -> (fraud, prob), LLM not consulted
//  3. prob <= low           -> (legit, prob)
//  4. ambiguous zone with a fraud/legit LLM vote -> LLM label, blended score
//  5. otherwise             -> (uncertain, prob)
func (e *Engine) Decide(customProb *float64, llmVote *models.LLMJudgment) (models.Label, float64) {
	prob := neutralPrior
	if customProb != nil {
		prob = *customProb
	}

	if prob >= e.highThreshold {
		return models.LabelFraud, prob
	}
	if prob <= e.lowThreshold {
		return models.LabelLegit, prob
	}

	if llmVote != nil && (llmVote.Label == models.LabelFraud || llmVote.Label == models.LabelLegit) {
		// A confident "legit" should pull the risk down, so the
		// confidence flips for that label.
		adjusted := llmVote.Confidence
		if llmVote.Label == models.LabelLegit {
			adjusted = 1.0 - llmVote.Confidence
		}
		score := e.blendWeight*prob + (1.0-e.blendWeight)*adjusted
		return llmVote.Label, score
	}

	return models.LabelUncertain, prob
}

// Clamp bounds a risk score to [0,1]. Upstream models are untrusted; the
// final verdict score always passes through here.
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
