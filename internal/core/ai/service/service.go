package service

import (
	"context"
	"fmt"
	"time"

	"recipe-ingestor/internal/core/ai/cache"
	"recipe-ingestor/internal/core/ai/provider"
	"recipe-ingestor/internal/core/ai/queue"
	"recipe-ingestor/internal/core/ai/retry"
	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"go.uber.org/zap"
)

// Options 單次補全的解碼選項
type Options struct {
	Model       string
	Temperature float64
	JSONMode    bool
	Stream      bool
	OnChunk     func(string) // 串流片段回呼，只作觀測用
}

// Service 模型閘道
// 對外只有 Complete 一個方法：餵入 prompt，回傳模型的原始文字輸出
// （預期是 JSON，但在修復層之前不保證）；內部處理快取、隊列與重試
type Service struct {
	config       *config.Config
	provider     provider.Provider
	queueManager *queue.Manager
	cacheManager *cache.Manager
	retryPolicy  *retry.Policy
}

// NewService 創建模型閘道
func NewService(cfg *config.Config, p provider.Provider, cacheManager *cache.Manager) (*Service, error) {
	if p == nil {
		return nil, fmt.Errorf("ai provider is required")
	}

	queueManager := queue.NewManager(cfg)
	queueManager.Start(p)

	return &Service{
		config:       cfg,
		provider:     p,
		queueManager: queueManager,
		cacheManager: cacheManager,
		retryPolicy:  retry.New(cfg.Pipeline.MaxRetries),
	}, nil
}

// Complete 執行一次補全
// 可重試的上游失敗（超時、連線問題、限流）依指數退避重試，
// 認證 / 額度 / 請求格式錯誤立即傳遞
func (s *Service) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	// 串流呼叫有 chunk 副作用，不走快取
	useCache := s.cacheManager != nil && !opts.Stream
	if useCache {
		if val, err := s.cacheManager.Get(ctx, prompt); err == nil && val != "" {
			return val, nil
		}
	}

	req := &provider.Request{
		Messages: []provider.Message{
			{Role: "user", Content: prompt},
		},
		Model:       opts.Model,
		Temperature: opts.Temperature,
		JSONMode:    opts.JSONMode,
		Stream:      opts.Stream,
		OnChunk:     opts.OnChunk,
	}

	start := time.Now()

	var resp *provider.Response
	err := s.retryPolicy.Do(ctx, func() error {
		r, dispatchErr := s.dispatch(ctx, req)
		if dispatchErr != nil {
			common.LogWarn("模型呼叫失敗",
				zap.Error(dispatchErr),
				zap.String("error_code", common.ErrorCode(dispatchErr)),
			)
			return dispatchErr
		}
		resp = r
		return nil
	})

	common.LogAICall(time.Since(start), err, "")
	if err != nil {
		return "", err
	}

	if useCache {
		_ = s.cacheManager.Set(ctx, prompt, resp.Content)
	}

	return resp.Content, nil
}

// dispatch 經由隊列送出請求；隊列滿時直接呼叫提供者
func (s *Service) dispatch(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	resultCh, err := s.queueManager.Enqueue(ctx, req)
	if err != nil {
		return s.provider.Generate(ctx, req)
	}

	select {
	case result := <-resultCh:
		return result.Response, result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueStatus 回傳隊列狀態（健康檢查用）
func (s *Service) QueueStatus() *queue.Status {
	return s.queueManager.GetQueueStatus()
}

// Close 關閉閘道
func (s *Service) Close() error {
	s.queueManager.Close()
	return s.provider.Close()
}
