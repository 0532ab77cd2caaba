package imageproc

import (
	"strings"

	"github.com/otiai10/gosseract/v2"

	"go-fraud-inspector/internal/logger"
)

// OCREngine extracts text from an image on disk. Absence of a backend is
// a valid configuration; callers must treat failures as "no text".
type OCREngine interface {
	ExtractText(imagePath string) (string, error)
	Close() error
}

// BestEffortText runs OCR and degrades every failure to an empty string.
// A nil engine means OCR is not configured.
func BestEffortText(engine OCREngine, imagePath string) string {
	if engine == nil {
		return ""
	}
	text, err := engine.ExtractText(imagePath)
	if err != nil {
		logger.WithError(err).WithField("image", imagePath).Debug("OCR failed, continuing without text")
		return ""
	}
	return strings.TrimSpace(text)
}

// TesseractOCR extracts text via the Tesseract engine.
type TesseractOCR struct {
	languages []string
}

// NewTesseractOCR creates a Tesseract-backed engine. languages is a
// "+"-joined tesseract language list, e.g. "eng+kor".
func NewTesseractOCR(languages string) *TesseractOCR {
	langs := strings.Split(languages, "+")
	if len(langs) == 0 || languages == "" {
		langs = []string{"eng"}
	}
	return &TesseractOCR{languages: langs}
}

// ExtractText runs Tesseract over the image at imagePath. A fresh client
// per call keeps the engine safe for concurrent requests.
func (t *TesseractOCR) ExtractText(imagePath string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", err
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", err
	}
	return client.Text()
}

// Close implements OCREngine. Clients are per-call, so there is nothing
// to release here.
func (t *TesseractOCR) Close() error {
	return nil
}
