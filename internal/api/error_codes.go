// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"
	ErrorValidation    = "VALIDATION_ERROR"

	// 角色相关错误
	ErrorCharacterNotFound = "CHARACTER_NOT_FOUND"
	ErrorInvalidView       = "INVALID_VIEW"

	// 生成相关错误
	ErrorGenerationParse  = "GENERATION_PARSE_FAILED"
	ErrorGenerationFailed = "GENERATION_FAILED"
	ErrorPipelineStep     = "PIPELINE_STEP_FAILED"

	// 状态相关错误
	ErrorStaleResult          = "STALE_RESULT"
	ErrorConfirmationRequired = "CONFIRMATION_REQUIRED"

	// LLM服务相关错误
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorLLMConfigInvalid      = "LLM_CONFIG_INVALID"

	// 导出相关错误
	ErrorExportFailed = "EXPORT_FAILED"
)
