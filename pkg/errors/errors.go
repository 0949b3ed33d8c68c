// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeInvalidInput  = 1003
	CodeCanceled      = 1004

	// Video/Audio processing errors (1100-1199)
	CodeVideoNotFound     = 1100
	CodeAudioExtract      = 1101
	CodeDependencyMissing = 1102

	// Transcription errors (1200-1299)
	CodeTranscribeFailed = 1200
	CodeModelNotFound    = 1201

	// Translation errors (1300-1399)
	CodeTranslateFailed  = 1300
	CodeLLMQuotaExceeded = 1301

	// TTS errors (1400-1499)
	CodeTTSFailed       = 1400
	CodeVoiceNotFound   = 1401
	CodeTTSEmptyAudio   = 1402
	CodeTTSUnauthorized = 1403

	// Composition errors (1500-1599)
	CodeCompositionFailed = 1500
	CodeAudioMixFailed    = 1501
	CodeEncodeFailed      = 1502

	// Storage errors (1600-1699)
	CodeDBError        = 1600
	CodeFileNotFound   = 1601
	CodeFileWriteError = 1602
	CodeSubtitleParse  = 1603
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Input builds an InputError. Input errors are raised before any stage runs.
func Input(detail string) *AppError {
	return WrapWithDetail(CodeInvalidInput, ErrInvalidInput.Message, detail, nil)
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GetDetail extracts the detail from error, empty if not AppError
func GetDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return ""
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "参数错误 Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "资源不存在 Resource not found")
	ErrInvalidInput  = New(CodeInvalidInput, "输入无效 Invalid input")
	ErrCanceled      = New(CodeCanceled, "任务已取消 Task canceled")

	// Video/Audio
	ErrVideoNotFound     = New(CodeVideoNotFound, "视频不存在 Video not found")
	ErrAudioExtract      = New(CodeAudioExtract, "音频提取失败 Audio extraction failed")
	ErrDependencyMissing = New(CodeDependencyMissing, "缺少依赖 Dependency missing")

	// Transcription
	ErrTranscribeFailed = New(CodeTranscribeFailed, "语音识别失败 Transcription failed")

	// Translation
	ErrTranslateFailed  = New(CodeTranslateFailed, "翻译失败 Translation failed")
	ErrLLMQuotaExceeded = New(CodeLLMQuotaExceeded, "LLM配额耗尽 LLM quota exceeded")

	// TTS
	ErrTTSFailed       = New(CodeTTSFailed, "语音合成失败 TTS failed")
	ErrVoiceNotFound   = New(CodeVoiceNotFound, "音色不存在 Voice not found")
	ErrTTSEmptyAudio   = New(CodeTTSEmptyAudio, "合成音频为空 Synthesized audio is empty")
	ErrTTSUnauthorized = New(CodeTTSUnauthorized, "TTS鉴权失败 TTS unauthorized")

	// Composition
	ErrCompositionFailed = New(CodeCompositionFailed, "视频合成失败 Composition failed")
	ErrAudioMixFailed    = New(CodeAudioMixFailed, "混音失败 Audio mix failed")

	// Storage
	ErrDBError       = New(CodeDBError, "数据库错误 Database error")
	ErrFileNotFound  = New(CodeFileNotFound, "文件不存在 File not found")
	ErrSubtitleParse = New(CodeSubtitleParse, "字幕解析失败 Subtitle parse failed")
)
