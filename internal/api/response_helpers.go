// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/services"
	"github.com/Corphon/AnimStudio/internal/utils"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PaginationMeta 分页元数据
type PaginationMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PaginatedResponse 带分页的响应
type PaginatedResponse struct {
	*APIResponse
	Meta *PaginationMeta `json:"meta,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct {
	logger *utils.Logger
}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{logger: utils.GetLogger()}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.respond(c, http.StatusOK, data, message...)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	rh.respond(c, http.StatusCreated, data, message...)
}

func (rh *ResponseHelper) respond(c *gin.Context, status int, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// sanitizeErrorMessage 去掉可能泄露密钥的错误信息
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"api_key", "apikey", "secret", "password", "key="} {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
	}
	return message
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: sanitizeErrorMessage(message),
	}
	if len(details) > 0 {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, code, message string) {
	if code == "" {
		code = ErrorNotFound
	}
	rh.Error(c, http.StatusNotFound, code, message)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// ConfirmationRequired 409，客户端带上 confirm=true 重试
func (rh *ResponseHelper) ConfirmationRequired(c *gin.Context, prompt string) {
	rh.Error(c, http.StatusConflict, ErrorConfirmationRequired, prompt)
}

// FromError 按错误类型映射状态码和错误代码
func (rh *ResponseHelper) FromError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		rh.logger.Error("Unhandled request error", map[string]interface{}{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		rh.InternalError(c, "An unexpected error occurred")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		rh.Error(c, http.StatusBadRequest, ErrorValidation, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		rh.Error(c, http.StatusNotFound, ErrorNotFound, appErr.Message)
	case apperrors.ErrorTypeGenerationParse:
		rh.Error(c, http.StatusBadGateway, ErrorGenerationParse, "The AI returned a response that could not be understood. Please try again.")
	case apperrors.ErrorTypeGenerationTransport:
		rh.Error(c, http.StatusBadGateway, ErrorGenerationFailed, services.TransportFailureMessage)
	case apperrors.ErrorTypePipelineStep:
		rh.pipelineError(c, appErr)
	case apperrors.ErrorTypeStaleResult:
		rh.Error(c, http.StatusConflict, ErrorStaleResult, appErr.Message)
	case apperrors.ErrorTypeConfirmationRequired:
		rh.ConfirmationRequired(c, appErr.Message)
	default:
		rh.logger.Error("Request processing failed", map[string]interface{}{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		rh.InternalError(c, appErr.Message)
	}
}

// pipelineError 流水线失败时报告内层原因，细节中给出步骤名
func (rh *ResponseHelper) pipelineError(c *gin.Context, appErr *apperrors.AppError) {
	message := "A generation step failed. Please try again."
	switch {
	case apperrors.IsTransportError(appErr.Err):
		message = services.TransportFailureMessage
	case apperrors.IsParseError(appErr.Err):
		message = "The AI returned a response that could not be understood. Please try again."
	case apperrors.IsValidationError(appErr.Err):
		var inner *apperrors.AppError
		if errors.As(appErr.Err, &inner) {
			message = inner.Message
		}
	}
	rh.Error(c, http.StatusBadGateway, ErrorPipelineStep, message, appErr.Step)
}

// PaginatedSuccess 分页成功响应
func (rh *ResponseHelper) PaginatedSuccess(c *gin.Context, data interface{}, meta *PaginationMeta, message ...string) {
	response := &PaginatedResponse{
		APIResponse: &APIResponse{
			Success:   true,
			Data:      data,
			Timestamp: time.Now(),
			RequestID: rh.getRequestID(c),
		},
		Meta: meta,
	}
	if len(message) > 0 {
		response.APIResponse.Message = message[0]
	}
	c.JSON(http.StatusOK, response)
}

// DownloadResponse 下载响应（强制下载）
func (rh *ResponseHelper) DownloadResponse(c *gin.Context, result *models.ExportResult) {
	c.Header("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	c.Header("Content-Length", strconv.Itoa(len(result.Content)))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
