package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Package ocr wraps the external text-recognition collaborator. The rest of
// the system only sees Recognizer and DecodeError; which engine does the
// recognition is an implementation detail.

// Recognition is the recognizer's output for one document.
type Recognition struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0-100 quality score, engine-reported, not validated here
}

// Recognizer turns raw document bytes into recognized text. Implementations
// own their timeout at this boundary; a caller must never be left waiting on
// an engine that does not answer.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, contentType string) (Recognition, error)
}

// DecodeError means the document could not be converted to recognizable
// content (corrupt image, unreadable PDF). It is fatal to the current upload
// and requires a re-upload; it is the only extraction failure that propagates
// to the caller.
type DecodeError struct {
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode document: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("decode document: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// IsDecodeError reports whether err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
