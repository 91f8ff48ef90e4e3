package ocr

import (
	"context"
	"fmt"
	"strings"
)

// Recognizer is the text-recognition capability behind the image
// pipeline. The actual OCR engine is an external collaborator; this
// package only fixes the contract and ships a stub.
type Recognizer interface {
	// Recognize extracts text from the image at locator (URL or data
	// URL). Latency is unspecified; callers must tolerate slow returns.
	Recognize(ctx context.Context, imageLocator string) (string, error)
}

// StubRecognizer stands in until a real engine is wired. It answers
// with a fixed notice so the full hover pipeline stays exercisable.
type StubRecognizer struct{}

func NewStubRecognizer() *StubRecognizer {
	return &StubRecognizer{}
}

func (StubRecognizer) Recognize(_ context.Context, imageLocator string) (string, error) {
	if strings.TrimSpace(imageLocator) == "" {
		return "", fmt.Errorf("ocr: empty image locator")
	}
	return "Text recognition is not available yet.", nil
}
