package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-fraud-inspector/internal/config"
	"go-fraud-inspector/internal/observer"
	"go-fraud-inspector/internal/pipeline"
	"go-fraud-inspector/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetcher struct {
	data map[string][]byte
	err  error
}

func (f *stubFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[imageURL], nil
}

func testConfig() *config.Config {
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     10 * time.Second,
		MaxRequestBodySize: 10 << 20,
	}
}

func testHandler(t *testing.T, fetcher *stubFetcher) http.Handler {
	t.Helper()
	pipe := pipeline.New(pipeline.Options{
		StorageRoot:  t.TempDir(),
		ImageWorkers: 2,
	})
	if fetcher == nil {
		fetcher = &stubFetcher{}
	}
	return NewHandler(pipe, fetcher, observer.NewMetricsObserver(), testConfig())
}

func multipartBody(t *testing.T, text string, images map[string][]byte, urls []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if text != "" {
		if err := w.WriteField("text", text); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range images {
		part, err := w.CreateFormFile("images", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	for _, u := range urls {
		if err := w.WriteField("image_urls", u); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHealthCheck(t *testing.T) {
	handler := testHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "available" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observer.NewMetricsObserver()
	metrics.OnEvent(context.Background(), observer.AnalysisEvent{EventType: observer.AnalysisStarted})
	pipe := pipeline.New(pipeline.Options{StorageRoot: t.TempDir(), ImageWorkers: 2})
	handler := NewHandler(pipe, &stubFetcher{}, metrics, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["total_analyses"] != float64(1) {
		t.Errorf("total_analyses = %v, want 1", body["total_analyses"])
	}
}

func TestAnalyzeRejectsEmptyRequest(t *testing.T) {
	handler := testHandler(t, nil)

	body, contentType := multipartBody(t, "", nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeAcceptsImageOnlyListing(t *testing.T) {
	handler := testHandler(t, nil)

	body, contentType := multipartBody(t, "", map[string][]byte{
		"only.png": smallPNG(t),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; empty text with images is a valid listing", rec.Code)
	}

	var verdict models.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("invalid verdict JSON: %v", err)
	}
	if len(verdict.Debug.ProcessedImages) != 1 {
		t.Errorf("processed images = %d, want 1", len(verdict.Debug.ProcessedImages))
	}
}

func TestAnalyzeRejectsNonMultipart(t *testing.T) {
	handler := testHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewBufferString(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeTextOnly(t *testing.T) {
	handler := testHandler(t, nil)

	body, contentType := multipartBody(t, "선입금 먼저 부탁드려요", nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var verdict models.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("invalid verdict JSON: %v", err)
	}
	if verdict.Label != models.LabelUncertain {
		t.Errorf("label = %s, want uncertain with no models configured", verdict.Label)
	}
	if len(verdict.Signals) == 0 || verdict.Signals[0].Type != models.SignalPrepayment {
		t.Errorf("expected prepayment signal, got %v", verdict.Signals)
	}
	if verdict.Debug.RequestID == "" {
		t.Error("request id missing")
	}
}

func TestAnalyzeWithCorruptUpload(t *testing.T) {
	handler := testHandler(t, nil)

	body, contentType := multipartBody(t, "티켓 양도합니다", map[string][]byte{
		"good.png": smallPNG(t),
		"bad.bin":  []byte("not an image"),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; degraded images must not fail the request", rec.Code)
	}

	var verdict models.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("invalid verdict JSON: %v", err)
	}
	if len(verdict.Debug.ProcessedImages) != 1 {
		t.Errorf("processed images = %d, want 1", len(verdict.Debug.ProcessedImages))
	}
}

func TestAnalyzeRejectsInvalidImageURL(t *testing.T) {
	handler := testHandler(t, nil)

	body, contentType := multipartBody(t, "양도합니다", nil, []string{"ftp://example.com/a.jpg"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeRejectsDisallowedImageHost(t *testing.T) {
	cfg := testConfig()
	cfg.ImageURLAllowedHosts = []string{"cdn.example.com"}
	pipe := pipeline.New(pipeline.Options{StorageRoot: t.TempDir(), ImageWorkers: 2})
	handler := NewHandler(pipe, &stubFetcher{}, observer.NewMetricsObserver(), cfg)

	body, contentType := multipartBody(t, "양도합니다", nil, []string{"https://untrusted.com/a.jpg"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for host outside the allowlist", rec.Code)
	}
}

func TestAnalyzeSkipsUnfetchableImageURL(t *testing.T) {
	handler := testHandler(t, &stubFetcher{err: errors.New("connection refused")})

	body, contentType := multipartBody(t, "양도합니다", nil, []string{"https://example.com/gone.jpg"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; unfetchable URLs are best effort", rec.Code)
	}

	var verdict models.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("invalid verdict JSON: %v", err)
	}
	if len(verdict.Debug.ProcessedImages) != 0 {
		t.Errorf("processed images = %d, want 0", len(verdict.Debug.ProcessedImages))
	}
}

func TestAnalyzeFetchesImageURL(t *testing.T) {
	fetcher := &stubFetcher{data: map[string][]byte{
		"https://example.com/a.png": smallPNG(t),
	}}
	handler := testHandler(t, fetcher)

	body, contentType := multipartBody(t, "양도합니다", nil, []string{"https://example.com/a.png"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var verdict models.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("invalid verdict JSON: %v", err)
	}
	if len(verdict.Debug.ProcessedImages) != 1 {
		t.Errorf("processed images = %d, want 1", len(verdict.Debug.ProcessedImages))
	}
}
