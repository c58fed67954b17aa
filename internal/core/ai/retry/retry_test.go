package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"recipe-ingestor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s 封頂在 30s
		{6, 30 * time.Second},
		{20, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

// instantSleep 記錄退避序列但不真的等
func instantSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	var delays []time.Duration
	p := New(2)
	p.sleep = instantSleep(&delays)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return common.ErrUpstreamTimeout
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "初始嘗試加兩次重試")
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, delays)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	var delays []time.Duration
	p := New(2)
	p.sleep = instantSleep(&delays)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return common.ErrUpstreamAuth
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "認證錯誤不得重試")
	assert.Empty(t, delays)
}

func TestDoSucceedsAfterTransientFailure(t *testing.T) {
	var delays []time.Duration
	p := New(2)
	p.sleep = instantSleep(&delays)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return common.ErrUpstreamRateLimit
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{1 * time.Second}, delays)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(3)
	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		return common.ErrUpstreamTimeout
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "取消後不再進入下一次嘗試")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"upstream timeout", common.ErrUpstreamTimeout, true},
		{"rate limit", common.ErrUpstreamRateLimit, true},
		{"network", common.ErrUpstreamNetwork, true},
		{"auth", common.ErrUpstreamAuth, false},
		{"quota", common.ErrUpstreamQuota, false},
		{"bad request", common.ErrUpstreamRequest, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"dns failure", &net.DNSError{Err: "lookup failed", Name: "openrouter.ai"}, true},
		{"connection refused text", errors.New("dial tcp 127.0.0.1:443: connection refused"), true},
		{"plain error", errors.New("something else went wrong"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
