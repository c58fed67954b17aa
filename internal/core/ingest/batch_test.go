package ingest

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestJSONBatch(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(testConfig(), &stubCompleter{respond: fixedResponse("")}, store, nil, nil)

	files := []NamedPayload{
		{Name: "soup.json", Content: `{"name": {"en": "Soup"}}`},
		{Name: "broken.json", Content: `this is not json`},
		{Name: "stew.json", Content: `{"name": {"en": "Stew"}}`},
	}

	report := svc.IngestJSONBatch(context.Background(), files)

	assert.True(t, report.Success)
	assert.Equal(t, 2, report.Totals.Processed)
	assert.Equal(t, 0, report.Totals.Skipped)
	assert.Equal(t, 1, report.Totals.Errors)
	require.Len(t, report.Items, 3)
	assert.Equal(t, 2, store.Count())

	byName := make(map[string]ItemResult)
	for _, item := range report.Items {
		byName[item.Name] = item
	}

	assert.Equal(t, "error", byName["broken.json"].Status)
	assert.NotEmpty(t, byName["broken.json"].Error)
	assert.Equal(t, "processed", byName["soup.json"].Status)
	assert.Regexp(t, `^json-\d+-[a-z0-9]+$`, byName["soup.json"].RecipeID)
}

func TestIngestJSONBatchDuplicateIdentity(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(testConfig(), &stubCompleter{respond: fixedResponse("")}, store, nil, nil)

	files := []NamedPayload{
		{Name: "a.json", Content: `{"id": "json-dup-1", "name": {"en": "First"}}`},
	}

	first := svc.IngestJSONBatch(context.Background(), files)
	assert.Equal(t, 1, first.Totals.Processed)

	second := svc.IngestJSONBatch(context.Background(), files)
	assert.Equal(t, 0, second.Totals.Processed)
	assert.Equal(t, 1, second.Totals.Skipped)
	assert.Equal(t, 1, store.Count())
}

func TestRunWindowedStopsBetweenWindows(t *testing.T) {
	svc := NewService(testConfig(), &stubCompleter{respond: fixedResponse("")}, NewMemoryStore(), nil, nil)

	var ran int32
	stop := func() bool { return atomic.LoadInt32(&ran) >= 2 }

	report := svc.runWindowed(context.Background(), 10, stop, func(ctx context.Context, i int) ItemResult {
		atomic.AddInt32(&ran, 1)
		return ItemResult{Index: i, Status: "processed"}
	})

	// 視窗大小 2：第一個視窗跑完後豎旗生效，後面 8 筆不再執行
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
	assert.Len(t, report.Items, 2)
	assert.Equal(t, 2, report.Totals.Processed)
}

func TestRunWindowedContextCancelled(t *testing.T) {
	svc := NewService(testConfig(), &stubCompleter{respond: fixedResponse("")}, NewMemoryStore(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := svc.runWindowed(ctx, 6, nil, func(ctx context.Context, i int) ItemResult {
		return ItemResult{Index: i, Status: "processed"}
	})

	assert.Empty(t, report.Items)
}
