package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 記憶體緩存管理器，以 prompt 雜湊為鍵保存模型原始輸出
// 正規化對同一份輸出是決定性的，因此快取命中不影響正確性
type Manager struct {
	config *config.Config
	mu     sync.RWMutex
	store  map[string]entry
	stats  stats
	remote *Service
	done   chan struct{}
}

// entry 緩存條目
type entry struct {
	value       string
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// stats 緩存統計
type stats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewManager 創建新的緩存管理器，快取停用時回傳 nil
func NewManager(cfg *config.Config) *Manager {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := &Manager{
		config: cfg,
		store:  make(map[string]entry),
		done:   make(chan struct{}),
	}

	// 設定了 Redis 時掛上第二層快取，供多實例部署共用
	if cfg.Cache.RedisAddr != "" {
		remote, err := NewService(&cfg.Cache)
		if err != nil {
			common.LogWarn("Redis 快取連接失敗，僅使用記憶體快取", zap.Error(err))
		} else {
			m.remote = remote
		}
	}

	// 啟動清理過期緩存的協程
	go m.startCleanup()

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", cfg.Cache.MaxSize),
		zap.Duration("存活時間", cfg.Cache.TTL),
		zap.Duration("清理間隔", cfg.Cache.CleanupInterval),
	)

	return m
}

// Get 獲取緩存值
func (m *Manager) Get(ctx context.Context, prompt string) (string, error) {
	if m == nil {
		return "", common.ErrCacheDisabled
	}

	key := generateKey(prompt)

	m.mu.Lock()
	e, exists := m.store[key]
	if exists && time.Now().After(e.expiresAt) {
		delete(m.store, key)
		m.stats.evictions++
		common.LogInfo("快取已過期", zap.String("鍵", key[:12]))
		exists = false
	}
	if exists {
		e.lastAccess = time.Now()
		e.accessCount++
		m.store[key] = e
		m.stats.hits++
		m.mu.Unlock()

		common.LogCacheHit("model_response")
		return e.value, nil
	}
	m.stats.misses++
	m.mu.Unlock()

	// 本地未命中時查第二層
	if m.remote != nil {
		if val, err := m.remote.Get(ctx, prompt); err == nil && val != "" {
			m.setLocal(prompt, val)
			common.LogCacheHit("model_response_remote")
			return val, nil
		}
	}

	common.LogCacheMiss("model_response")
	return "", common.ErrCacheDisabled
}

// Set 設置緩存值
func (m *Manager) Set(ctx context.Context, prompt, value string) error {
	if m == nil {
		return nil
	}

	m.setLocal(prompt, value)

	if m.remote != nil {
		if err := m.remote.Set(ctx, prompt, value); err != nil {
			common.LogWarn("第二層快取寫入失敗", zap.Error(err))
		}
	}

	return nil
}

func (m *Manager) setLocal(prompt, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 容量滿時淘汰最久未使用的條目
	if len(m.store) >= m.config.Cache.MaxSize {
		m.evictOldest()
	}

	now := time.Now()
	m.store[generateKey(prompt)] = entry{
		value:      value,
		expiresAt:  now.Add(m.config.Cache.TTL),
		createdAt:  now,
		lastAccess: now,
	}
}

// evictOldest 淘汰 lastAccess 最舊的條目，呼叫方必須持有寫鎖
func (m *Manager) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.store {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
	}
}

// startCleanup 週期性清理過期條目
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.Cache.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for k, e := range m.store {
				if now.After(e.expiresAt) {
					delete(m.store, k)
					m.stats.evictions++
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// Stats 回傳命中統計
func (m *Manager) Stats() (hits, misses, evictions int64) {
	if m == nil {
		return 0, 0, 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats.hits, m.stats.misses, m.stats.evictions
}

// Close 關閉緩存管理器
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.remote != nil {
		_ = m.remote.Close()
	}
	close(m.done)
}

// generateKey 生成緩存鍵
func generateKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
