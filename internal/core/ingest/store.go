package ingest

import (
	"context"
	"sync"
	"time"

	"recipe-ingestor/internal/pkg/common"
)

// Store 持久化協作者的抽象介面
// 只要求單文件原子性，不要求交易：身份檢查與寫入之間沒有鎖，
// 同一個從未見過的身份被並發匯入時兩邊都可能寫入（已知的最終一致性縫隙）
type Store interface {
	// FindByID 依 canonical id 查詢，不存在時回傳 (nil, nil)
	FindByID(ctx context.Context, id string) (*common.Recipe, error)

	// Insert 寫入新記錄
	Insert(ctx context.Context, r *common.Recipe) error

	// UpdateByID 以 $set 語義更新欄位，不存在時回傳 (nil, nil)
	UpdateByID(ctx context.Context, id string, patch map[string]interface{}) (*common.Recipe, error)
}

// MemoryStore 記憶體儲存，未設定 MongoDB 時的預設實作，也供測試替身用
type MemoryStore struct {
	mu      sync.RWMutex
	recipes map[string]*common.Recipe
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipes: make(map[string]*common.Recipe),
	}
}

// FindByID 依 id 查詢
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, nil
	}
	cloned := *r
	return &cloned, nil
}

// Insert 寫入新記錄
func (s *MemoryStore) Insert(ctx context.Context, r *common.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := *r
	s.recipes[r.ID] = &cloned
	return nil
}

// UpdateByID 更新已知欄位
func (s *MemoryStore) UpdateByID(ctx context.Context, id string, patch map[string]interface{}) (*common.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, nil
	}

	for key, value := range patch {
		switch key {
		case "steps":
			if steps, ok := value.([]common.RecipeStep); ok {
				r.Steps = steps
			}
		case "isPublished":
			if published, ok := value.(bool); ok {
				r.IsPublished = published
			}
		case "updatedAt":
			if ts, ok := value.(time.Time); ok {
				r.UpdatedAt = ts
			}
		}
	}

	cloned := *r
	return &cloned, nil
}

// Count 回傳記錄數（測試用）
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recipes)
}
