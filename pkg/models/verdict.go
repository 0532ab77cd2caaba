package models

// Label is the final classification of a trade listing.
type Label string

const (
	LabelFraud     Label = "fraud"
	LabelLegit     Label = "legit"
	LabelUncertain Label = "uncertain"
)

// ParseLabel normalizes a free-form label string. Anything outside the
// known set maps to LabelUncertain rather than an error, because LLM
// output is untrusted.
func ParseLabel(s string) Label {
	switch Label(s) {
	case LabelFraud, LabelLegit, LabelUncertain:
		return Label(s)
	default:
		return LabelUncertain
	}
}

// SignalType is a closed set of known fraud pattern categories.
type SignalType string

const (
	SignalPrepayment      SignalType = "prepayment"
	SignalUrgentSale      SignalType = "urgent_sale"
	SignalNoRefund        SignalType = "no_refund"
	SignalMoveOffPlatform SignalType = "move_off_platform"
	SignalSuspiciousLink  SignalType = "suspicious_link"
)

// RiskSignal pairs a signal type with the keyword that triggered it.
// Signals are explainability output only; they do not feed the decision.
type RiskSignal struct {
	Type     SignalType `json:"type"`
	Evidence string     `json:"evidence"`
}

// ExtractedPatterns holds structured entities scanned out of the text.
// Each list is deduplicated preserving first-seen order.
type ExtractedPatterns struct {
	URLs     []string `json:"urls"`
	Emails   []string `json:"emails"`
	Phones   []string `json:"phones"`
	Accounts []string `json:"accounts"`
}

// LLMJudgment is the parsed structured verdict from the generative model.
type LLMJudgment struct {
	Label      Label        `json:"label"`
	Confidence float64      `json:"confidence"`
	Signals    []RiskSignal `json:"signals,omitempty"`
	Summary    string       `json:"summary,omitempty"`
}

// ModelVotes carries the raw per-model outputs alongside the fused verdict.
// Nil pointers mean the corresponding stage produced no vote.
type ModelVotes struct {
	CustomModelProb *float64 `json:"custom_model_prob"`
	LLMLabel        *Label   `json:"llm_label"`
	LLMConfidence   *float64 `json:"llm_confidence"`
}

// DebugInfo correlates a verdict with its intermediate artifacts.
type DebugInfo struct {
	RequestID       string   `json:"request_id"`
	ProcessedImages []string `json:"processed_images"`
	OCRText         string   `json:"ocr_text"`
}

// Verdict is the assembled analysis result. Constructed once per request,
// immutable after assembly.
type Verdict struct {
	Label     Label        `json:"label"`
	RiskScore float64      `json:"risk_score"`
	Votes     ModelVotes   `json:"model_votes"`
	Signals   []RiskSignal `json:"signals"`
	Summary   string       `json:"summary"`
	Debug     DebugInfo    `json:"debug"`
}
