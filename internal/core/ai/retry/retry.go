package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"recipe-ingestor/internal/pkg/common"
)

const (
	defaultMaxRetries = 2
	baseDelay         = 1000 * time.Millisecond
	maxDelay          = 30 * time.Second
)

// Classifier 判斷錯誤是否可重試
type Classifier func(err error) bool

// Policy 重試策略：可重試錯誤以指數退避重試，其餘立即傳遞
type Policy struct {
	MaxRetries int        // 額外嘗試次數（總次數 = MaxRetries + 1）
	Retryable  Classifier // nil 時使用 IsRetryable
	sleep      func(ctx context.Context, d time.Duration) error
}

// New 創建重試策略
func New(maxRetries int) *Policy {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	return &Policy{
		MaxRetries: maxRetries,
		Retryable:  IsRetryable,
		sleep:      sleepContext,
	}
}

// Backoff 計算第 attempt 次重試前的等待時間：min(1s * 2^attempt, 30s)
func Backoff(attempt int) time.Duration {
	delay := baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}

// Do 執行 fn，可重試錯誤依退避曲線重試，重試耗盡後回傳最後一個錯誤
func (p *Policy) Do(ctx context.Context, fn func() error) error {
	classify := p.Retryable
	if classify == nil {
		classify = IsRetryable
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, Backoff(attempt-1)); err != nil {
				return err
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !classify(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// IsRetryable 預設分類器
// 可重試：超時、連線被拒、DNS 失敗、未耗盡額度的限流
// 不可重試：認證失敗、額度/帳務用盡、請求格式錯誤
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch common.ErrorCode(err) {
	case common.ErrCodeUpstreamTimeout,
		common.ErrCodeUpstreamRateLimit,
		common.ErrCodeUpstreamNetwork:
		return true
	case common.ErrCodeUpstreamAuth,
		common.ErrCodeUpstreamQuota,
		common.ErrCodeUpstreamRequest:
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host")
}
