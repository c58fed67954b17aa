package ingest

import (
	"context"
	"sync"
	"time"

	"recipe-ingestor/internal/core/ingest/themealdb"
	"recipe-ingestor/internal/core/recipe"
	"recipe-ingestor/internal/pkg/common"

	"go.uber.org/zap"
)

// Catalog 外部食譜目錄（測試時可替換）
type Catalog interface {
	LookupByID(ctx context.Context, externalID string) (map[string]interface{}, error)
	SearchByLetter(ctx context.Context, letter string) ([]map[string]interface{}, error)
	Random(ctx context.Context) (map[string]interface{}, error)
}

// SweepStatus 掃描的對外狀態快照
type SweepStatus struct {
	Key        string     `json:"key"`
	Running    bool       `json:"running"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Totals     Totals     `json:"totals"`
}

// SweepRegistry 掃描的生命週期登記簿
// 停止是合作式的：RequestStop 只豎旗，執行中的視窗仍會跑完
type SweepRegistry interface {
	// Begin 嘗試以 key 登記新掃描；同 key 已有執行中掃描時回傳 false
	Begin(key string) bool
	// RequestStop 請求停止；無執行中掃描時回傳 false
	RequestStop(key string) bool
	// StopRequested 回報是否已被請求停止
	StopRequested(key string) bool
	// Finish 記錄掃描結束與最終統計
	Finish(key string, totals Totals)
	// Status 查詢最近一次掃描的狀態
	Status(key string) (SweepStatus, bool)
}

type sweepState struct {
	running    bool
	stop       bool
	startedAt  time.Time
	finishedAt *time.Time
	totals     Totals
}

// MemoryRegistry 行程內的登記簿實作；行程重啟會遺失執行中狀態
type MemoryRegistry struct {
	mu     sync.Mutex
	sweeps map[string]*sweepState
}

// NewMemoryRegistry 創建記憶體登記簿
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sweeps: make(map[string]*sweepState)}
}

func (r *MemoryRegistry) Begin(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.sweeps[key]; ok && state.running {
		return false
	}
	r.sweeps[key] = &sweepState{running: true, startedAt: time.Now().UTC()}
	return true
}

func (r *MemoryRegistry) RequestStop(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sweeps[key]
	if !ok || !state.running {
		return false
	}
	state.stop = true
	return true
}

func (r *MemoryRegistry) StopRequested(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sweeps[key]
	return ok && state.stop
}

func (r *MemoryRegistry) Finish(key string, totals Totals) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sweeps[key]
	if !ok {
		return
	}
	now := time.Now().UTC()
	state.running = false
	state.finishedAt = &now
	state.totals = totals
}

func (r *MemoryRegistry) Status(key string) (SweepStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sweeps[key]
	if !ok {
		return SweepStatus{}, false
	}
	return SweepStatus{
		Key:        key,
		Running:    state.running,
		StartedAt:  state.startedAt,
		FinishedAt: state.finishedAt,
		Totals:     state.totals,
	}, true
}

// defaultLetters 字母掃描的預設範圍
var defaultLetters = []string{
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
}

// ImportMealByID 從目錄匯入單筆記錄（同步）
func (s *Service) ImportMealByID(ctx context.Context, externalID string) (*Outcome, error) {
	if s.catalog == nil {
		return nil, common.ErrCatalogDisabled
	}

	meal, err := s.catalog.LookupByID(ctx, externalID)
	if err != nil {
		return failedOutcome(StagePending), err
	}
	if meal == nil {
		return nil, common.ErrRecipeNotFound
	}

	return s.ingestMeal(ctx, meal)
}

// StartLetterSweep 啟動背景字母掃描；letters 為空時掃描 a-z
// 同 key 只允許一個執行中掃描
func (s *Service) StartLetterSweep(key string, letters []string) error {
	if s.catalog == nil {
		return common.ErrCatalogDisabled
	}
	if len(letters) == 0 {
		letters = defaultLetters
	}
	if !s.registry.Begin(key) {
		return common.ErrSweepRunning
	}

	common.LogInfo("啟動字母掃描",
		zap.String("sweep_key", key),
		zap.Int("letters", len(letters)),
	)
	go s.runLetterSweep(key, letters)
	return nil
}

// StartRandomSweep 啟動背景隨機抽樣掃描
func (s *Service) StartRandomSweep(key string, count int) error {
	if s.catalog == nil {
		return common.ErrCatalogDisabled
	}
	if count <= 0 {
		count = 10
	}
	if !s.registry.Begin(key) {
		return common.ErrSweepRunning
	}

	common.LogInfo("啟動隨機掃描",
		zap.String("sweep_key", key),
		zap.Int("count", count),
	)
	go s.runRandomSweep(key, count)
	return nil
}

// StopSweep 請求停止掃描；在下一個視窗邊界生效
func (s *Service) StopSweep(key string) bool {
	return s.registry.RequestStop(key)
}

// SweepStatus 查詢掃描狀態
func (s *Service) SweepStatus(key string) (SweepStatus, bool) {
	return s.registry.Status(key)
}

func (s *Service) runLetterSweep(key string, letters []string) {
	ctx := context.Background()
	stop := func() bool { return s.registry.StopRequested(key) }

	var totals Totals
	for _, letter := range letters {
		if stop() {
			break
		}

		meals, err := s.catalog.SearchByLetter(ctx, letter)
		if err != nil {
			common.LogWarn("字母查詢失敗",
				zap.String("sweep_key", key),
				zap.String("letter", letter),
				zap.Error(err),
			)
			totals.Errors++
			continue
		}
		if len(meals) == 0 {
			continue
		}

		report := s.runWindowed(ctx, len(meals), stop, func(ctx context.Context, i int) ItemResult {
			return s.sweepItem(ctx, i, meals[i])
		})
		totals.Processed += report.Totals.Processed
		totals.Skipped += report.Totals.Skipped
		totals.Errors += report.Totals.Errors
	}

	s.registry.Finish(key, totals)
	common.LogInfo("字母掃描結束",
		zap.String("sweep_key", key),
		zap.Int("processed", totals.Processed),
		zap.Int("skipped", totals.Skipped),
		zap.Int("errors", totals.Errors),
	)
}

func (s *Service) runRandomSweep(key string, count int) {
	ctx := context.Background()
	stop := func() bool { return s.registry.StopRequested(key) }

	report := s.runWindowed(ctx, count, stop, func(ctx context.Context, i int) ItemResult {
		result := ItemResult{Index: i}
		meal, err := s.catalog.Random(ctx)
		if err != nil {
			result.Status = "error"
			result.Error = err.Error()
			return result
		}
		if meal == nil {
			result.Status = "error"
			result.Error = "catalog returned empty record"
			return result
		}

		result.Name = common.AsString(meal["strMeal"])
		outcome, err := s.ingestMeal(ctx, meal)
		fillItemResult(&result, outcome, err)
		return result
	})

	s.registry.Finish(key, report.Totals)
	common.LogInfo("隨機掃描結束",
		zap.String("sweep_key", key),
		zap.Int("processed", report.Totals.Processed),
		zap.Int("skipped", report.Totals.Skipped),
		zap.Int("errors", report.Totals.Errors),
	)
}

// sweepItem 掃描中單筆記錄的匯入
func (s *Service) sweepItem(ctx context.Context, index int, meal map[string]interface{}) ItemResult {
	result := ItemResult{Index: index, Name: common.AsString(meal["strMeal"])}
	outcome, err := s.ingestMeal(ctx, meal)
	fillItemResult(&result, outcome, err)
	return result
}

// ingestMeal 目錄記錄的共同匯入路徑
// 外部 id 映射成穩定的 canonical 身份，重匯入時由身份檢查去重
func (s *Service) ingestMeal(ctx context.Context, meal map[string]interface{}) (*Outcome, error) {
	hints := recipe.Hints{
		ID:        themealdb.ExternalID(meal),
		IDPrefix:  themealdb.IDPrefix,
		SourceURL: themealdb.SourceURL(meal),
		ImageURL:  themealdb.ThumbURL(meal),
	}
	return s.IngestRecord(ctx, meal, hints)
}
