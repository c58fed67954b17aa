package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 回傳原始錯誤，讓 errors.Is / errors.As 可以穿透
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WithCause 複製預定義錯誤並附上原始錯誤
func (e *CustomError) WithCause(err error) *CustomError {
	return &CustomError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
		Err:     err,
	}
}

// ErrorCode 取出錯誤代碼，非 CustomError 回傳空字串
func ErrorCode(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// ParseError 模型輸出修復失敗的錯誤
// 只保留長度與開頭片段，避免把整段（可能含敏感內容的）回應寫進日誌
type ParseError struct {
	Length int    // 嘗試解析的內容長度
	Prefix string // 內容開頭片段
	Err    error  // 底層解析錯誤
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no recoverable JSON object in model output (length=%d, prefix=%q)", e.Length, e.Prefix)
}

// Unwrap 回傳底層錯誤
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError 創建解析錯誤，prefix 最多保留 60 字元
func NewParseError(content string, err error) *ParseError {
	prefix := content
	if len(prefix) > 60 {
		prefix = prefix[:60]
	}
	return &ParseError{
		Length: len(content),
		Prefix: prefix,
		Err:    err,
	}
}

// IsParseError 檢查是否為解析錯誤
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeUnauthorized     = "UNAUTHORIZED"       // 401
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeConflict         = "CONFLICT"           // 409
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"    // 408
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// 上游模型錯誤（管線用）
	ErrCodeUpstreamTimeout   = "UPSTREAM_TIMEOUT"    // 可重試
	ErrCodeUpstreamRateLimit = "UPSTREAM_RATE_LIMIT" // 可重試
	ErrCodeUpstreamNetwork   = "UPSTREAM_NETWORK"    // 可重試
	ErrCodeUpstreamAuth      = "UPSTREAM_AUTH"       // 不可重試
	ErrCodeUpstreamQuota     = "UPSTREAM_QUOTA"      // 不可重試
	ErrCodeUpstreamRequest   = "UPSTREAM_BAD_REQUEST" // 不可重試
	ErrCodeParseFailure      = "PARSE_FAILURE"       // 修復後仍無法解析
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "未授權的訪問", http.StatusUnauthorized, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrConflict        = NewError(ErrCodeConflict, "資源衝突", http.StatusConflict, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 上游模型錯誤
	ErrUpstreamTimeout   = NewError(ErrCodeUpstreamTimeout, "模型請求超時", http.StatusGatewayTimeout, nil)
	ErrUpstreamRateLimit = NewError(ErrCodeUpstreamRateLimit, "模型服務限流", http.StatusTooManyRequests, nil)
	ErrUpstreamNetwork   = NewError(ErrCodeUpstreamNetwork, "模型服務連線失敗", http.StatusBadGateway, nil)
	ErrUpstreamAuth      = NewError(ErrCodeUpstreamAuth, "模型服務認證失敗", http.StatusBadGateway, nil)
	ErrUpstreamQuota     = NewError(ErrCodeUpstreamQuota, "模型服務額度用盡", http.StatusBadGateway, nil)
	ErrUpstreamRequest   = NewError(ErrCodeUpstreamRequest, "模型請求格式錯誤", http.StatusBadGateway, nil)

	// 業務錯誤
	ErrCacheDisabled   = NewError("CACHE_DISABLED", "緩存已禁用", http.StatusServiceUnavailable, nil)
	ErrSweepRunning    = NewError("SWEEP_ALREADY_RUNNING", "相同鍵的匯入任務已在執行", http.StatusConflict, nil)
	ErrRecipeNotFound  = NewError("RECIPE_NOT_FOUND", "食譜不存在", http.StatusNotFound, nil)
	ErrCatalogDisabled = NewError("CATALOG_DISABLED", "外部目錄未啟用", http.StatusServiceUnavailable, nil)
	ErrAIServiceError  = NewError("AI_SERVICE_ERROR", "AI 服務錯誤", http.StatusServiceUnavailable, nil)
)
