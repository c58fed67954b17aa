package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"recipe-ingestor/internal/core/ai/provider"
	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"go.uber.org/zap"
)

// Request 隊列請求
type Request struct {
	Context context.Context
	Request *provider.Request
	Result  chan Result
}

// Result 處理結果
type Result struct {
	Response *provider.Response
	Error    error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 隊列管理器，用固定數量的 worker 限制同時在途的模型呼叫
type Manager struct {
	config    *config.Config
	queue     chan *Request
	done      chan struct{}
	processed int64
	closeOnce sync.Once
}

// NewManager 創建新的隊列管理器
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
		queue:  make(chan *Request, cfg.Queue.MaxSize),
		done:   make(chan struct{}),
	}
}

// Start 啟動 worker，逐一取出請求呼叫提供者
func (m *Manager) Start(p provider.Provider) {
	for i := 0; i < m.config.Queue.Workers; i++ {
		go m.worker(p)
	}
	common.LogInfo("隊列 worker 已啟動",
		zap.Int("workers", m.config.Queue.Workers),
		zap.Int("max_queue_size", m.config.Queue.MaxSize),
	)
}

func (m *Manager) worker(p provider.Provider) {
	for {
		select {
		case req, ok := <-m.queue:
			if !ok {
				return
			}
			resp, err := p.Generate(req.Context, req.Request)
			atomic.AddInt64(&m.processed, 1)
			req.Result <- Result{Response: resp, Error: err}
		case <-m.done:
			return
		}
	}
}

// Enqueue 將請求加入隊列
func (m *Manager) Enqueue(ctx context.Context, req *provider.Request) (chan Result, error) {
	// 檢查隊列容量
	if len(m.queue) >= m.config.Queue.MaxSize {
		return nil, fmt.Errorf("queue is full")
	}

	queueReq := Request{
		Context: ctx,
		Request: req,
		Result:  make(chan Result, 1),
	}

	select {
	case m.queue <- &queueReq:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.Queue.MaxSize),
		)
		return queueReq.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, fmt.Errorf("queue manager is closed")
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.Queue.MaxSize,
		Workers:        m.config.Queue.Workers,
	}
}

// Close 關閉隊列管理器
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}
