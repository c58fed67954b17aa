package ingest

import (
	"net/http"

	"recipe-ingestor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImportRequest 目錄單筆匯入請求
type ImportRequest struct {
	ID string `json:"id" binding:"required"` // 外部目錄的記錄 id
}

// LetterSweepRequest 字母掃描請求
type LetterSweepRequest struct {
	Key     string   `json:"key,omitempty"`     // 掃描鍵（預設 letters）
	Letters []string `json:"letters,omitempty"` // 欲掃描的首字母，空則 a-z
}

// RandomSweepRequest 隨機抽樣掃描請求
type RandomSweepRequest struct {
	Key   string `json:"key,omitempty"`   // 掃描鍵（預設 random）
	Count int    `json:"count,omitempty"` // 抽樣筆數，預設 10
}

// HandleImport 從外部目錄同步匯入單筆記錄
func (h *Handler) HandleImport(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	common.LogInfo("開始目錄匯入",
		zap.String("request_id", requestID),
		zap.String("external_id", req.ID),
	)

	outcome, err := h.service.ImportMealByID(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	respondOutcome(c, outcome)
}

// HandleLetterSweep 啟動背景字母掃描
func (h *Handler) HandleLetterSweep(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req LetterSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Key == "" {
		req.Key = "letters"
	}

	if err := h.service.StartLetterSweep(req.Key, req.Letters); err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "started",
		"key":    req.Key,
	})
}

// HandleRandomSweep 啟動背景隨機抽樣掃描
func (h *Handler) HandleRandomSweep(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req RandomSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Key == "" {
		req.Key = "random"
	}

	if err := h.service.StartRandomSweep(req.Key, req.Count); err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "started",
		"key":    req.Key,
	})
}

// HandleStopSweep 請求停止掃描；在下一個視窗邊界生效
func (h *Handler) HandleStopSweep(c *gin.Context) {
	key := c.Param("key")
	if !h.service.StopSweep(key) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No running sweep with this key",
			"code":  "SWEEP_NOT_RUNNING",
		})
		return
	}

	common.LogInfo("已請求停止掃描",
		zap.String("sweep_key", key),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"status": "stopping",
		"key":    key,
	})
}

// HandleSweepStatus 查詢掃描狀態
func (h *Handler) HandleSweepStatus(c *gin.Context) {
	key := c.Param("key")
	status, ok := h.service.SweepStatus(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown sweep key",
			"code":  "SWEEP_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, status)
}
