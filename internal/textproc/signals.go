package textproc

import (
	"strings"

	"go-fraud-inspector/pkg/models"
)

type keywordEntry struct {
	signal   models.SignalType
	keywords []string
}

// riskKeywords is an ordered table: entry order fixes the output order of
// signals, keyword order within an entry fixes evidence priority (first
// match wins, then matching stops for that type).
var riskKeywords = []keywordEntry{
	{models.SignalPrepayment, []string{"선입금", "먼저 입금", "입금 먼저", "prepay", "pre-payment", "zelle", "cashapp", "venmo", "pay first"}},
	{models.SignalUrgentSale, []string{"급처", "오늘만", "빨리", "urgent", "asap", "need gone", "need these pcs gone"}},
	{models.SignalNoRefund, []string{"환불 불가", "환불x", "no refund", "refund x", "노리턴", "취소 불가"}},
	{models.SignalMoveOffPlatform, []string{"카톡", "오픈채팅", "openchat", "dm me", "텔레그램", "telegram", "line id"}},
	{models.SignalSuspiciousLink, []string{"bit.ly", "tinyurl", "t.co/"}},
}

// ExtractRiskSignals does case-insensitive substring matching against the
// fixed keyword table. At most one signal per type; the recorded evidence
// is the keyword that matched, not the surrounding text.
func ExtractRiskSignals(text string) []models.RiskSignal {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)
	var signals []models.RiskSignal
	for _, entry := range riskKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				signals = append(signals, models.RiskSignal{Type: entry.signal, Evidence: kw})
				break
			}
		}
	}
	return signals
}
