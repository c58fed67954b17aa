package ingest

import (
	"errors"
	"net/http"

	coreingest "recipe-ingestor/internal/core/ingest"
	"recipe-ingestor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 匯入處理程序
type Handler struct {
	service *coreingest.Service
}

// NewHandler 創建新的匯入處理程序
func NewHandler(service *coreingest.Service) *Handler {
	return &Handler{service: service}
}

// ensureRequestID 取出或生成請求 ID
func ensureRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = common.GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// respondError 把管線錯誤映射成 HTTP 回應
func respondError(c *gin.Context, requestID string, err error) {
	var customErr *common.CustomError
	if errors.As(err, &customErr) {
		c.JSON(customErr.Status, gin.H{
			"error": customErr.Message,
			"code":  customErr.Code,
		})
		return
	}

	if common.IsParseError(err) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Invalid JSON payload",
			"code":  common.ErrCodeParseFailure,
		})
		return
	}

	common.LogError("匯入請求失敗",
		zap.Error(err),
		zap.String("request_id", requestID),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Ingestion failed",
		"code":  "INGESTION_FAILED",
	})
}

// respondOutcome 匯入結果的統一回應
func respondOutcome(c *gin.Context, outcome *coreingest.Outcome) {
	status := http.StatusCreated
	if outcome.Skipped {
		status = http.StatusOK
	}
	c.JSON(status, outcome)
}
