package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"invofi/internal/config"
)

// azureRecognizer implements Recognizer against the Azure Computer Vision
// printed-text endpoint.
type azureRecognizer struct {
	client   *computervision.BaseClient
	runner   Runner
	pdftoppm string
	dpi      int
	timeout  time.Duration
}

// NewAzure creates a Recognizer backed by Azure Computer Vision.
func NewAzure(cfg config.OCRConfig) (Recognizer, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("ocr endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ocr api key is required")
	}

	client := computervision.New(cfg.Endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.APIKey)

	pdftoppm := cfg.Pdftoppm
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = 300
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &azureRecognizer{
		client:   &client,
		runner:   execRunner{},
		pdftoppm: pdftoppm,
		dpi:      dpi,
		timeout:  timeout,
	}, nil
}

// Recognize decodes and enhances the document, then runs printed-text
// recognition. The whole call is bounded by the configured timeout so an
// engine that never answers turns into a failed upload instead of an
// eternally scanning one.
func (a *azureRecognizer) Recognize(ctx context.Context, data []byte, contentType string) (Recognition, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prepared, err := decodeDocument(ctx, a.runner, a.pdftoppm, a.dpi, data, contentType)
	if err != nil {
		return Recognition{}, err
	}

	result, err := a.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(prepared)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize printed text: %w", err)
	}

	text := textFromResult(result)
	return Recognition{Text: text, Confidence: heuristicConfidence(text)}, nil
}

// textFromResult flattens the region/line/word hierarchy into plain text,
// one recognized line per output line.
func textFromResult(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var words []string
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
	}
	return strings.Join(lines, "\n")
}
