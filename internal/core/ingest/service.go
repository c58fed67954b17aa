package ingest

import (
	"context"
	"fmt"
	"time"

	"recipe-ingestor/internal/core/ai/repair"
	aiservice "recipe-ingestor/internal/core/ai/service"
	"recipe-ingestor/internal/core/recipe"
	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"go.uber.org/zap"
)

// Stage 單筆記錄在管線中的狀態
type Stage string

const (
	StagePending        Stage = "pending"
	StageExtracting     Stage = "extracting"
	StageRepairing      Stage = "repairing"
	StageCanonicalizing Stage = "canonicalizing"
	StageIdentityCheck  Stage = "identity_check"
	StageSkipped        Stage = "skipped"
	StagePersisted      Stage = "persisted"
	StageFailed         Stage = "failed"
)

// Outcome 單筆匯入的結果
// Skipped 表示身份檢查命中既有記錄、本次未寫入（這是成功，不是錯誤）
type Outcome struct {
	Recipe  *common.Recipe `json:"recipe,omitempty"`
	Skipped bool           `json:"skipped"`
	Stage   Stage          `json:"stage"`
}

// Completer 模型閘道介面（測試時可替換）
type Completer interface {
	Complete(ctx context.Context, prompt string, opts aiservice.Options) (string, error)
}

// Service 匯入協調器：驅動 提示詞 → 模型 → 修復 → 正規化 → 身份檢查 → 寫入
type Service struct {
	config   *config.Config
	ai       Completer
	store    Store
	catalog  Catalog
	registry SweepRegistry
}

// NewService 創建匯入協調器
// catalog 為 nil 時目錄匯入與掃描端點回報未啟用
// registry 為 nil 時使用行程內的記憶體實作（行程重啟會遺失執行中狀態）
func NewService(cfg *config.Config, ai Completer, store Store, catalog Catalog, registry SweepRegistry) *Service {
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	return &Service{
		config:   cfg,
		ai:       ai,
		store:    store,
		catalog:  catalog,
		registry: registry,
	}
}

// Store 回傳持久化協作者（API 層查詢用）
func (s *Service) Store() Store {
	return s.store
}

// IngestText 匯入一段自由文字
func (s *Service) IngestText(ctx context.Context, text string, id string) (*Outcome, error) {
	hints := recipe.Hints{ID: id}
	return s.ingestViaModel(ctx, recipe.BuildExtractionPrompt(text), hints)
}

// IngestRecord 匯入一筆外部格式的結構化記錄（精煉 / 翻譯路徑）
func (s *Service) IngestRecord(ctx context.Context, foreign map[string]interface{}, hints recipe.Hints) (*Outcome, error) {
	return s.ingestViaModel(ctx, recipe.BuildRefinePrompt(foreign), hints)
}

// IngestJSON 直接匯入 canonical 形狀的 JSON（貼上 / 批次上傳路徑）
// 不經過模型，只做欄位映射；資料視為未審核，isPublished=false
func (s *Service) IngestJSON(ctx context.Context, raw string, idPrefix string) (*Outcome, error) {
	stage := StageCanonicalizing

	var parsed map[string]interface{}
	if err := common.ParseJSON(raw, &parsed); err != nil {
		return failedOutcome(stage), common.NewParseError(raw, err)
	}

	if idPrefix == "" {
		idPrefix = "paste"
	}
	rec, err := recipe.Canonicalize(parsed, recipe.Hints{IDPrefix: idPrefix, Direct: true})
	if err != nil {
		return failedOutcome(stage), err
	}

	return s.persist(ctx, rec)
}

// ingestViaModel 共同的模型路徑
func (s *Service) ingestViaModel(ctx context.Context, prompt string, hints recipe.Hints) (*Outcome, error) {
	// Extracting
	content, err := s.ai.Complete(ctx, prompt, aiservice.Options{
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return failedOutcome(StageExtracting), err
	}

	// Repairing
	parsed, err := repair.Repair(content)
	if err != nil {
		common.LogWarn("模型輸出修復失敗",
			zap.Int("content_length", len(content)),
			zap.Error(err),
		)
		return failedOutcome(StageRepairing), err
	}

	// Canonicalizing
	rec, err := recipe.Canonicalize(parsed, hints)
	if err != nil {
		return failedOutcome(StageCanonicalizing), err
	}

	return s.persist(ctx, rec)
}

// persist 身份檢查後的至多一次寫入決策
// 讀後寫、無交易：第一筆寫入可見之後的重複匯入保證被跳過，
// 並發的首次重複寫入不在保證範圍內
func (s *Service) persist(ctx context.Context, rec *common.Recipe) (*Outcome, error) {
	existing, err := s.store.FindByID(ctx, rec.ID)
	if err != nil {
		return failedOutcome(StageIdentityCheck), fmt.Errorf("identity check failed: %w", err)
	}

	if existing != nil {
		common.LogInfo("身份已存在，跳過寫入",
			zap.String("recipe_id", rec.ID),
		)
		return &Outcome{Recipe: existing, Skipped: true, Stage: StageSkipped}, nil
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		return failedOutcome(StagePersisted), fmt.Errorf("failed to persist recipe: %w", err)
	}

	common.LogInfo("食譜已寫入",
		zap.String("recipe_id", rec.ID),
		zap.String("meal_type", rec.MealType),
		zap.Int("steps", len(rec.Steps)),
	)
	return &Outcome{Recipe: rec, Skipped: false, Stage: StagePersisted}, nil
}

// BackfillSteps 為沒有步驟的既有記錄重新生成 steps 陣列
func (s *Service) BackfillSteps(ctx context.Context, id string) (*common.Recipe, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	if existing == nil {
		return nil, common.ErrRecipeNotFound
	}

	content, err := s.ai.Complete(ctx, recipe.BuildStepsPrompt(existing), aiservice.Options{
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := repair.Repair(content)
	if err != nil {
		return nil, err
	}

	steps := recipe.CanonicalizeSteps(parsed)
	if len(steps) == 0 {
		return nil, fmt.Errorf("model returned no usable steps for %s", id)
	}

	updated, err := s.store.UpdateByID(ctx, id, map[string]interface{}{
		"steps":     steps,
		"updatedAt": time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update steps: %w", err)
	}
	if updated == nil {
		return nil, common.ErrRecipeNotFound
	}

	common.LogInfo("步驟已補齊",
		zap.String("recipe_id", id),
		zap.Int("steps", len(steps)),
	)
	return updated, nil
}

// failedOutcome 的 Stage 記錄失敗發生在哪一站
func failedOutcome(stage Stage) *Outcome {
	return &Outcome{Skipped: false, Stage: stage}
}
