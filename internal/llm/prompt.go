package llm

import (
	"fmt"
	"strings"

	"go-fraud-inspector/pkg/models"
)

// Previews of extracted entities embedded in the prompt are capped so an
// adversarial listing cannot blow up prompt size.
const (
	maxPatternPreview = 10
	maxSignalPreview  = 20
)

// Bundle is everything the judgment prompt is built from.
type Bundle struct {
	UserText string
	OCRText  string
	Patterns models.ExtractedPatterns
	Signals  []models.RiskSignal
}

const responseSchema = `{
  "label": "fraud|legit|uncertain",
  "confidence": "float 0..1",
  "signals": [{"type": "string", "evidence": "string"}],
  "summary": "string (<= 3 sentences)"
}`

// BuildPrompt renders the deterministic judgment prompt: instructions,
// the JSON schema the model must emit, the listing text, OCR text, and
// capped previews of extracted entities and rule signals.
func BuildPrompt(b Bundle) string {
	var sb strings.Builder

	sb.WriteString("너는 K-POP 굿즈/티켓 거래 글의 사기(fraud) 가능성을 평가하는 분류기야.\n")
	sb.WriteString("반드시 아래 JSON 스키마를 따르는 JSON만 출력해. 다른 텍스트는 절대 출력하지 마.\n\n")
	sb.WriteString("JSON 스키마 예시:\n")
	sb.WriteString(responseSchema)
	sb.WriteString("\n\n입력(사용자 텍스트):\n")
	sb.WriteString(b.UserText)
	sb.WriteString("\n\n입력(OCR 텍스트, 이미지에서 추출; 없을 수 있음):\n")
	sb.WriteString(b.OCRText)
	sb.WriteString("\n\n추출된 힌트:\n")
	fmt.Fprintf(&sb, "- urls: %s\n", joinCapped(b.Patterns.URLs, maxPatternPreview))
	fmt.Fprintf(&sb, "- phones: %s\n", joinCapped(b.Patterns.Phones, maxPatternPreview))
	fmt.Fprintf(&sb, "- accounts: %s\n", joinCapped(b.Patterns.Accounts, maxPatternPreview))
	fmt.Fprintf(&sb, "- signals: %s\n", joinSignals(b.Signals, maxSignalPreview))
	sb.WriteString("\n판정 기준:\n")
	sb.WriteString("- 명확한 사기 징후면 label=fraud\n")
	sb.WriteString("- 정상 거래로 보이면 label=legit\n")
	sb.WriteString("- 정보가 부족하거나 애매하면 label=uncertain")

	return sb.String()
}

func joinCapped(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}

func joinSignals(signals []models.RiskSignal, limit int) string {
	if len(signals) > limit {
		signals = signals[:limit]
	}
	parts := make([]string, 0, len(signals))
	for _, s := range signals {
		parts = append(parts, fmt.Sprintf("%s:%s", s.Type, s.Evidence))
	}
	return strings.Join(parts, ", ")
}
