package classifier

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// tokenRE mirrors the training-side tokenizer: unicode word characters,
// length two or more.
var tokenRE = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// vectorizer is a TF-IDF transform exported from the training pipeline:
// term vocabulary with column indices, per-term IDF weights, L2-normalized
// output rows.
type vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	Lowercase  bool           `json:"lowercase"`
}

func loadVectorizer(path string) (*vectorizer, error) {
	var v vectorizer
	if err := readJSON(path, &v); err != nil {
		return nil, err
	}
	if len(v.Vocabulary) == 0 {
		return nil, fmt.Errorf("vectorizer has empty vocabulary")
	}
	if len(v.IDF) != len(v.Vocabulary) {
		return nil, fmt.Errorf("vectorizer idf length %d does not match vocabulary size %d", len(v.IDF), len(v.Vocabulary))
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.IDF) {
			return nil, fmt.Errorf("vectorizer term %q has out-of-range index %d", term, idx)
		}
	}
	return &v, nil
}

func (v *vectorizer) dim() int {
	return len(v.IDF)
}

// transform produces the dense TF-IDF feature row for text.
func (v *vectorizer) transform(text string) []float64 {
	if v.Lowercase {
		text = strings.ToLower(text)
	}

	counts := make(map[int]float64)
	for _, token := range tokenRE.FindAllString(text, -1) {
		if idx, ok := v.Vocabulary[token]; ok {
			counts[idx]++
		}
	}

	row := make([]float64, len(v.IDF))
	var sumSq float64
	for idx, tf := range counts {
		w := tf * v.IDF[idx]
		row[idx] = w
		sumSq += w * w
	}
	if sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for idx := range counts {
			row[idx] /= norm
		}
	}
	return row
}
