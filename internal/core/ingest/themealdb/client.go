package themealdb

import (
	"context"
	"fmt"
	"net/http"

	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// IDPrefix 外部身份前綴；同一外部 id 重匯入時會解析回同一 canonical id
const IDPrefix = "themealdb"

// Client TheMealDB 目錄客戶端
// 回傳的 meal 保持動態樹形狀，交給精煉提示詞與正規化層處理
type Client struct {
	client *resty.Client
}

// mealsEnvelope TheMealDB 回應外層；查無資料時 meals 為 null
type mealsEnvelope struct {
	Meals []map[string]interface{} `json:"meals"`
}

// NewClient 創建目錄客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.TheMealDB.BaseURL).
		SetTimeout(cfg.TheMealDB.Timeout)

	return &Client{client: client}
}

// LookupByID 依外部 id 查詢單筆
func (c *Client) LookupByID(ctx context.Context, externalID string) (map[string]interface{}, error) {
	meals, err := c.fetch(ctx, "/lookup.php", map[string]string{"i": externalID})
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, nil
	}
	return meals[0], nil
}

// SearchByLetter 依首字母列出所有記錄
func (c *Client) SearchByLetter(ctx context.Context, letter string) ([]map[string]interface{}, error) {
	return c.fetch(ctx, "/search.php", map[string]string{"f": letter})
}

// Random 隨機取一筆
func (c *Client) Random(ctx context.Context) (map[string]interface{}, error) {
	meals, err := c.fetch(ctx, "/random.php", nil)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, nil
	}
	return meals[0], nil
}

func (c *Client) fetch(ctx context.Context, path string, params map[string]string) ([]map[string]interface{}, error) {
	req := c.client.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("themealdb request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("themealdb returned status %d", resp.StatusCode())
	}

	var envelope mealsEnvelope
	if err := common.ParseJSONBytes(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse themealdb response: %w", err)
	}

	return envelope.Meals, nil
}

// ExternalID 由 meal 記錄導出穩定的 canonical 身份
func ExternalID(meal map[string]interface{}) string {
	id := common.AsString(meal["idMeal"])
	if id == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s", IDPrefix, id)
}

// SourceURL 取出原始來源連結（可能為空）
func SourceURL(meal map[string]interface{}) string {
	return common.AsString(meal["strSource"])
}

// ThumbURL 取出縮圖連結（可能為空）
func ThumbURL(meal map[string]interface{}) string {
	return common.AsString(meal["strMealThumb"])
}
