package ingest

import (
	"io"
	"net/http"

	coreingest "recipe-ingestor/internal/core/ingest"
	"recipe-ingestor/internal/core/recipe"
	"recipe-ingestor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TextRequest 自由文字匯入請求
type TextRequest struct {
	Text string `json:"text" binding:"required"` // 原始食譜文字（網頁內文、筆記等）
	ID   string `json:"id,omitempty"`            // 指定 canonical id（可省略）
}

// RecordRequest 外部結構化記錄匯入請求
type RecordRequest struct {
	Record    map[string]interface{} `json:"record" binding:"required"` // 外部格式的原始記錄
	ID        string                 `json:"id,omitempty"`
	SourceURL string                 `json:"sourceUrl,omitempty"`
	ImageURL  string                 `json:"imageUrl,omitempty"`
	Author    string                 `json:"author,omitempty"`
}

// HandleText 從自由文字萃取並匯入食譜
func (h *Handler) HandleText(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	common.LogInfo("開始處理文字匯入",
		zap.String("request_id", requestID),
		zap.Int("text_length", len(req.Text)),
	)

	outcome, err := h.service.IngestText(c.Request.Context(), req.Text, req.ID)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	respondOutcome(c, outcome)
}

// HandleRecord 精煉並匯入外部結構化記錄
func (h *Handler) HandleRecord(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	hints := recipe.Hints{
		ID:        req.ID,
		SourceURL: req.SourceURL,
		ImageURL:  req.ImageURL,
		Author:    req.Author,
	}

	outcome, err := h.service.IngestRecord(c.Request.Context(), req.Record, hints)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	respondOutcome(c, outcome)
}

// HandleJSON 直接匯入 canonical 形狀的 JSON（貼上路徑，不經過模型）
func (h *Handler) HandleJSON(c *gin.Context) {
	requestID := ensureRequestID(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty request body"})
		return
	}

	outcome, err := h.service.IngestJSON(c.Request.Context(), string(body), "paste")
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	respondOutcome(c, outcome)
}

// HandleUpload 批次上傳多個 canonical JSON 檔案（multipart form，欄位名 files）
func (h *Handler) HandleUpload(c *gin.Context) {
	requestID := ensureRequestID(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	files := make([]coreingest.NamedPayload, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file", "file": header.Filename})
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file", "file": header.Filename})
			return
		}
		files = append(files, coreingest.NamedPayload{
			Name:    header.Filename,
			Content: string(content),
		})
	}

	common.LogInfo("開始批次上傳",
		zap.String("request_id", requestID),
		zap.Int("files", len(files)),
	)

	report := h.service.IngestJSONBatch(c.Request.Context(), files)
	c.JSON(http.StatusOK, report)
}

// HandleGetRecipe 依 canonical id 查詢食譜
func (h *Handler) HandleGetRecipe(c *gin.Context) {
	requestID := ensureRequestID(c)

	id := c.Param("id")
	rec, err := h.service.Store().FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, requestID, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Recipe not found",
			"code":  "RECIPE_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// HandleBackfillSteps 為既有記錄重新生成步驟
func (h *Handler) HandleBackfillSteps(c *gin.Context) {
	requestID := ensureRequestID(c)

	id := c.Param("id")
	common.LogInfo("開始補齊步驟",
		zap.String("request_id", requestID),
		zap.String("recipe_id", id),
	)

	rec, err := h.service.BackfillSteps(c.Request.Context(), id)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}
