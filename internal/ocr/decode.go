package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// pdfMagic is the header every readable PDF starts with.
var pdfMagic = []byte("%PDF-")

// decodeDocument is the pre-conversion step that runs before recognition:
// PDFs are rasterized to an image (first page), images are decoded and
// enhanced. Every failure here is a DecodeError, distinct from a recognizer
// failure.
func decodeDocument(ctx context.Context, r Runner, pdftoppm string, dpi int, data []byte, contentType string) ([]byte, error) {
	var img image.Image
	if isPDF(data, contentType) {
		page, err := convertPDF(ctx, r, pdftoppm, dpi, data)
		if err != nil {
			return nil, err
		}
		img = page
	} else {
		decoded, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &DecodeError{Reason: "unreadable image", Cause: err}
		}
		img = decoded
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, enhanceForRecognition(img), imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
		return nil, &DecodeError{Reason: "re-encode image", Cause: err}
	}
	return buf.Bytes(), nil
}

func isPDF(data []byte, contentType string) bool {
	return strings.Contains(contentType, "pdf") || bytes.HasPrefix(data, pdfMagic)
}

// convertPDF rasterizes the first page with pdftoppm. A corrupt or
// password-protected file surfaces here, before any recognizer call.
func convertPDF(ctx context.Context, r Runner, pdftoppm string, dpi int, data []byte) (image.Image, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, &DecodeError{Reason: "not a PDF document"}
	}

	tmpDir, err := os.MkdirTemp("", "invofi-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -f 1 -l 1 in.pdf <tmp>/page
	if _, errb, err := r.Run(ctx, pdftoppm, "-r", fmt.Sprintf("%d", dpi), "-png", "-f", "1", "-l", "1", in, prefix); err != nil {
		return nil, &DecodeError{Reason: "pdf rasterization failed: " + strings.TrimSpace(string(errb)), Cause: err}
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, &DecodeError{Reason: "pdf produced no pages"}
	}

	img, err := imaging.Open(matches[0])
	if err != nil {
		return nil, &DecodeError{Reason: "unreadable rasterized page", Cause: err}
	}
	return img, nil
}

// enhanceForRecognition applies the preprocessing chain that improves OCR on
// scanned documents: grayscale, contrast, sharpen, brightness, gamma.
func enhanceForRecognition(src image.Image) image.Image {
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	return imaging.AdjustGamma(img, 1.2)
}
