package openrouter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-ingestor/internal/core/ai/provider"
	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	baseURL        = "https://openrouter.ai/api/v1"
	defaultTimeout = 5 * time.Minute
)

// Client OpenRouter API 客戶端
type Client struct {
	client  *resty.Client
	config  *config.Config
	timeout time.Duration
}

// chatResponse OpenRouter 非串流響應結構
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// streamChunk 串流模式的單一 SSE 資料片段
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Pipeline.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://recipe-ingestor.com").
		SetHeader("X-Title", "Recipe Ingestor")

	return &Client{
		client:  client,
		config:  cfg,
		timeout: timeout,
	}
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.config.OpenRouter.Model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

// Generate 生成回應
// 非串流模式下 timeout 限制整次呼叫；串流模式下限制的是 chunk 之間的間隔，
// 只要資料持續到達，呼叫可以跑任意長
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := c.buildBody(req)

	common.LogInfo("Sending request to OpenRouter",
		zap.String("model", c.resolveModel(req)),
		zap.Bool("json_mode", req.JSONMode),
		zap.Bool("stream", req.Stream),
	)

	if req.Stream {
		return c.generateStream(ctx, body, req.OnChunk)
	}
	return c.generate(ctx, body)
}

// buildBody 構建請求體
func (c *Client) buildBody(req *provider.Request) map[string]interface{} {
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}

	body := map[string]interface{}{
		"model":    c.resolveModel(req),
		"messages": messages,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.OpenRouter.MaxTokens
	}
	if maxTokens > 0 {
		body["max_tokens"] = maxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.JSONMode {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	if req.Stream {
		body["stream"] = true
	}

	return body
}

func (c *Client) resolveModel(req *provider.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return c.config.OpenRouter.Model
}

// generate 非串流呼叫
func (c *Client) generate(ctx context.Context, body map[string]interface{}) (*provider.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(callCtx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode(), resp.String())
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty choices in OpenRouter response")
	}

	out := &provider.Response{Content: result.Choices[0].Message.Content}
	out.Usage.PromptTokens = result.Usage.PromptTokens
	out.Usage.CompletionTokens = result.Usage.CompletionTokens
	out.Usage.TotalTokens = result.Usage.TotalTokens
	return out, nil
}

// generateStream 串流呼叫，逐行讀取 SSE 並追蹤 chunk 活動
func (c *Client) generateStream(ctx context.Context, body map[string]interface{}, onChunk func(string)) (*provider.Response, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := c.client.R().
		SetContext(streamCtx).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post("/chat/completions")
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.RawBody().Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode(), "")
	}

	// 看門狗：chunk 間隔超過 timeout 就取消讀取
	activity := make(chan struct{}, 1)
	timedOut := make(chan struct{})
	go func() {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		for {
			select {
			case <-activity:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(c.timeout)
			case <-timer.C:
				close(timedOut)
				cancel()
				return
			case <-streamCtx.Done():
				return
			}
		}
	}()

	var content strings.Builder
	scanner := bufio.NewScanner(resp.RawBody())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case activity <- struct{}{}:
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			common.LogDebug("Skipping malformed stream chunk", zap.Int("length", len(payload)))
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-timedOut:
			return nil, common.ErrUpstreamTimeout.WithCause(fmt.Errorf("no stream activity for %s", c.timeout))
		default:
		}
		return nil, classifyTransportError(err)
	}

	if content.Len() == 0 {
		return nil, fmt.Errorf("empty content in OpenRouter stream")
	}

	return &provider.Response{Content: content.String()}, nil
}

// classifyStatus 依 HTTP 狀態碼將失敗歸入可重試 / 不可重試類別
func classifyStatus(status int, body string) error {
	cause := fmt.Errorf("OpenRouter API returned status %d", status)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return common.ErrUpstreamAuth.WithCause(cause)
	case status == http.StatusPaymentRequired:
		return common.ErrUpstreamQuota.WithCause(cause)
	case status == http.StatusBadRequest:
		return common.ErrUpstreamRequest.WithCause(cause)
	case status == http.StatusTooManyRequests:
		// 限流本身可重試，但額度用盡的 429 不行
		lower := strings.ToLower(body)
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") || strings.Contains(lower, "insufficient") {
			return common.ErrUpstreamQuota.WithCause(cause)
		}
		return common.ErrUpstreamRateLimit.WithCause(cause)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return common.ErrUpstreamTimeout.WithCause(cause)
	case status >= 500:
		return common.ErrUpstreamNetwork.WithCause(cause)
	default:
		return common.ErrUpstreamRequest.WithCause(cause)
	}
}

// classifyTransportError 將傳輸層錯誤歸類
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.ErrUpstreamTimeout.WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return common.ErrUpstreamTimeout.WithCause(err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "EOF"):
		return common.ErrUpstreamNetwork.WithCause(err)
	default:
		return common.ErrUpstreamNetwork.WithCause(err)
	}
}
