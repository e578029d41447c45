// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 通用错误类型
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"

	// 生成相关错误类型
	ErrorTypeGenerationParse     ErrorType = "generation_parse_failure"
	ErrorTypeGenerationTransport ErrorType = "generation_transport_failure"
	ErrorTypePipelineStep        ErrorType = "pipeline_step_failure"

	// 状态相关错误类型
	ErrorTypeStaleResult          ErrorType = "stale_result"
	ErrorTypeConfirmationRequired ErrorType = "confirmation_required"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
	Step    string // 流水线失败的步骤，仅用于 PipelineStep
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewParseError 模型返回的内容无法解析为结构化数据
func NewParseError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeGenerationParse, message, originalError)
}

// NewTransportError 与模型后端通信失败
func NewTransportError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeGenerationTransport, message, originalError)
}

// NewPipelineStepError 多步骤生成中某一步失败
func NewPipelineStepError(step string, originalError error) *AppError {
	appErr := NewAppError(ErrorTypePipelineStep, fmt.Sprintf("pipeline step %q failed", step), originalError)
	appErr.Step = step
	return appErr
}

// NewStaleResultError 结果到达时用户已离开发起的模块
func NewStaleResultError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeStaleResult, message, originalError)
}

// NewConfirmationRequiredError 操作需要用户确认
func NewConfirmationRequiredError(message string) *AppError {
	return NewAppError(ErrorTypeConfirmationRequired, message, nil)
}

// TypeOf 返回错误链中第一个 AppError 的类型
func TypeOf(err error) (ErrorType, bool) {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type, true
	}
	return "", false
}

func isType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsParseError 检查是否为解析错误
func IsParseError(err error) bool {
	return isType(err, ErrorTypeGenerationParse)
}

// IsTransportError 检查是否为通信错误
func IsTransportError(err error) bool {
	return isType(err, ErrorTypeGenerationTransport)
}

// IsPipelineStepError 检查是否为流水线步骤错误
func IsPipelineStepError(err error) bool {
	return isType(err, ErrorTypePipelineStep)
}

// IsStaleResultError 检查是否为过期结果错误
func IsStaleResultError(err error) bool {
	return isType(err, ErrorTypeStaleResult)
}

// IsConfirmationRequiredError 检查是否需要确认
func IsConfirmationRequiredError(err error) bool {
	return isType(err, ErrorTypeConfirmationRequired)
}

// FailedStep 返回流水线失败的步骤名
func FailedStep(err error) string {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Step
	}
	return ""
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeGenerationParse:
		return "GENERATION_PARSE_FAILED"
	case ErrorTypeGenerationTransport:
		return "GENERATION_FAILED"
	case ErrorTypePipelineStep:
		return "PIPELINE_STEP_FAILED"
	case ErrorTypeStaleResult:
		return "STALE_RESULT"
	case ErrorTypeConfirmationRequired:
		return "CONFIRMATION_REQUIRED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
			Step:    appError.Step,
		}
	}

	// 否则创建新的 AppError
	return NewAppError(errType, message, err)
}
