package mocks

import (
	"context"

	"invofi/internal/ocr"

	"github.com/stretchr/testify/mock"
)

type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, data []byte, contentType string) (ocr.Recognition, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(ocr.Recognition), args.Error(1)
}
