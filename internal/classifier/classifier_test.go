package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	apperrors "go-fraud-inspector/internal/errors"
)

func writeArtifact(t *testing.T, dir string, vec, model interface{}) {
	t.Helper()
	if vec != nil {
		data, err := json.Marshal(vec)
		if err != nil {
			t.Fatalf("marshal vectorizer: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, vectorizerFile), data, 0o644); err != nil {
			t.Fatalf("write vectorizer: %v", err)
		}
	}
	if model != nil {
		data, err := json.Marshal(model)
		if err != nil {
			t.Fatalf("marshal model: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, modelFile), data, 0o644); err != nil {
			t.Fatalf("write model: %v", err)
		}
	}
}

// testArtifact builds a 3-feature model whose first hidden unit passes the
// "선입금" weight straight through.
func testArtifact(t *testing.T, dir string) {
	t.Helper()
	writeArtifact(t, dir,
		vectorizer{
			Vocabulary: map[string]int{"선입금": 0, "급처": 1, "정상": 2},
			IDF:        []float64{1.5, 1.2, 1.0},
			Lowercase:  true,
		},
		mlp{
			InDim:  3,
			Hidden: 2,
			W1:     [][]float64{{2.0, 1.0, -1.0}, {0.5, 0.5, 0.5}},
			B1:     []float64{0.0, -0.1},
			W2:     []float64{1.5, -0.5},
			B2:     -0.2,
		})
}

func TestPredictUnavailableWhenNotInstalled(t *testing.T) {
	c := New(t.TempDir())
	if err := c.Load(); err != nil {
		t.Fatalf("missing artifact must not be an error, got %v", err)
	}
	if c.Available() {
		t.Error("classifier should be unavailable")
	}
	if got := c.Predict("선입금 급처"); got != nil {
		t.Errorf("Predict = %v, want nil", *got)
	}
}

func TestLoadPartialArtifactIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, vectorizer{Vocabulary: map[string]int{"a": 0}, IDF: []float64{1}}, nil)

	c := New(dir)
	err := c.Load()
	if err == nil {
		t.Fatal("expected configuration error for half-present artifact")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("error type = %v, want configuration", err)
	}
}

func TestLoadCorruptArtifactIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, vectorizerFile), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, modelFile), []byte("also broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(dir)
	if err := c.Load(); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("error = %v, want configuration error", err)
	}
}

func TestLoadDimensionMismatchIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir,
		vectorizer{Vocabulary: map[string]int{"a": 0, "b": 1}, IDF: []float64{1, 1}},
		mlp{InDim: 5, Hidden: 1, W1: [][]float64{{1, 1, 1, 1, 1}}, B1: []float64{0}, W2: []float64{1}, B2: 0})

	c := New(dir)
	if err := c.Load(); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("error = %v, want configuration error", err)
	}
}

func TestPredictDeterministic(t *testing.T) {
	dir := t.TempDir()
	testArtifact(t, dir)

	c := New(dir)
	first := c.Predict("선입금 먼저 부탁드립니다 급처")
	if first == nil {
		t.Fatal("expected a probability, got nil")
	}
	if *first < 0 || *first > 1 {
		t.Fatalf("probability %v out of [0,1]", *first)
	}
	for i := 0; i < 5; i++ {
		again := c.Predict("선입금 먼저 부탁드립니다 급처")
		if again == nil || *again != *first {
			t.Fatalf("prediction not deterministic: %v vs %v", first, again)
		}
	}
}

func TestPredictOrdersRiskyAboveClean(t *testing.T) {
	dir := t.TempDir()
	testArtifact(t, dir)

	c := New(dir)
	risky := c.Predict("선입금 선입금 급처")
	clean := c.Predict("정상 정상 정상")
	if risky == nil || clean == nil {
		t.Fatal("expected probabilities for both inputs")
	}
	if *risky <= *clean {
		t.Errorf("risky text prob %v should exceed clean text prob %v", *risky, *clean)
	}
}

func TestConcurrentFirstUseLoadsOnce(t *testing.T) {
	dir := t.TempDir()
	testArtifact(t, dir)

	c := New(dir)
	var wg sync.WaitGroup
	results := make([]*float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Predict("선입금 급처")
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r == nil {
			t.Fatalf("goroutine %d got nil probability", i)
		}
		if *r != *results[0] {
			t.Errorf("goroutine %d got %v, want %v", i, *r, *results[0])
		}
	}
}
