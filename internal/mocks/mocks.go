// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"video-redub/pkg/srt"
)

// MockTranscriber is a mock implementation of types.Transcriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, mediaPath string) (srt.Transcript, error) {
	args := m.Called(ctx, mediaPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(srt.Transcript), args.Error(1)
}

// MockTranslator is a mock implementation of types.Translator
type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

// MockSynthesizer is a mock implementation of types.Synthesizer
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voice, rate, outputFile string) error {
	args := m.Called(ctx, text, voice, rate, outputFile)
	return args.Error(0)
}
