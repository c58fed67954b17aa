package ingest

import (
	"context"
	"sync"
	"time"

	"recipe-ingestor/internal/pkg/common"

	"go.uber.org/zap"
)

// Totals 批次結果統計
type Totals struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// ItemResult 批次中單筆項目的結果
type ItemResult struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	RecipeID string `json:"recipeId,omitempty"`
	Status   string `json:"status"` // processed / skipped / error
	Error    string `json:"error,omitempty"`
}

// BatchReport 批次總結：單筆失敗不會中止批次，每筆結果獨立統計
// Success 代表批次本身有跑完，部分項目失敗時仍為 true
type BatchReport struct {
	Success bool         `json:"success"`
	Totals  Totals       `json:"totals"`
	Items   []ItemResult `json:"items"`
}

// NamedPayload 批次上傳的單一檔案
type NamedPayload struct {
	Name    string
	Content string
}

// IngestJSONBatch 批次匯入多個 canonical JSON 檔案（上傳路徑）
func (s *Service) IngestJSONBatch(ctx context.Context, files []NamedPayload) *BatchReport {
	return s.runWindowed(ctx, len(files), nil, func(ctx context.Context, i int) ItemResult {
		result := ItemResult{Index: i, Name: files[i].Name}
		outcome, err := s.IngestJSON(ctx, files[i].Content, "json")
		fillItemResult(&result, outcome, err)
		return result
	})
}

// runWindowed 以固定大小的並發視窗處理 n 筆項目
// 視窗內並發執行、整個視窗完成後才開下一個；視窗之間插入延遲以尊重
// 第三方限流。stop 只在視窗之間檢查——進行中的項目一定跑完，
// 取消只會略過「下一個」視窗
func (s *Service) runWindowed(ctx context.Context, n int, stop func() bool, run func(ctx context.Context, i int) ItemResult) *BatchReport {
	windowSize := s.config.Pipeline.BatchWindow
	if windowSize <= 0 {
		windowSize = 5
	}
	delay := s.config.Pipeline.WindowDelay

	report := &BatchReport{Success: true, Items: make([]ItemResult, 0, n)}
	var mu sync.Mutex

	for start := 0; start < n; start += windowSize {
		if stop != nil && stop() {
			common.LogInfo("批次在視窗邊界被取消",
				zap.Int("completed_items", len(report.Items)),
				zap.Int("total_items", n),
			)
			break
		}
		if ctx.Err() != nil {
			break
		}

		end := start + windowSize
		if end > n {
			end = n
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result := run(ctx, i)
				mu.Lock()
				report.Items = append(report.Items, result)
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		if end < n && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	for _, item := range report.Items {
		switch item.Status {
		case "processed":
			report.Totals.Processed++
		case "skipped":
			report.Totals.Skipped++
		default:
			report.Totals.Errors++
		}
	}

	common.LogInfo("批次完成",
		zap.Int("processed", report.Totals.Processed),
		zap.Int("skipped", report.Totals.Skipped),
		zap.Int("errors", report.Totals.Errors),
	)
	return report
}

// fillItemResult 把單筆結果折進批次項目
func fillItemResult(result *ItemResult, outcome *Outcome, err error) {
	if err != nil {
		result.Status = "error"
		result.Error = err.Error()
		return
	}
	if outcome.Recipe != nil {
		result.RecipeID = outcome.Recipe.ID
	}
	if outcome.Skipped {
		result.Status = "skipped"
		return
	}
	result.Status = "processed"
}
