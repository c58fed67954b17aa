package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	aiservice "recipe-ingestor/internal/core/ai/service"
	"recipe-ingestor/internal/core/recipe"
	"recipe-ingestor/internal/infrastructure/config"
	"recipe-ingestor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			RequestTimeout: time.Minute,
			MaxRetries:     2,
			BatchWindow:    2,
			WindowDelay:    0,
		},
	}
}

// stubCompleter 可注入回應的模型閘道替身
type stubCompleter struct {
	mu      sync.Mutex
	calls   int
	respond func(prompt string) (string, error)
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string, opts aiservice.Options) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.respond(prompt)
}

func (s *stubCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fixedResponse(body string) func(string) (string, error) {
	return func(string) (string, error) { return body, nil }
}

const modelRecipeJSON = `{
	"name": {"en": "Tomato Soup", "de": "Tomatensuppe"},
	"difficulty": "easy",
	"servings": 2,
	"mealType": "lunch",
	"cuisineType": "Italian",
	"macros": {"calories": 480, "protein": 20, "carbohydrates": 60, "fat": 15}
}`

func TestIngestTextPersists(t *testing.T) {
	store := NewMemoryStore()
	ai := &stubCompleter{respond: fixedResponse(modelRecipeJSON)}
	svc := NewService(testConfig(), ai, store, nil, nil)

	outcome, err := svc.IngestText(context.Background(), "tomato soup recipe text", "")
	require.NoError(t, err)

	assert.Equal(t, StagePersisted, outcome.Stage)
	assert.False(t, outcome.Skipped)
	require.NotNil(t, outcome.Recipe)
	assert.Regexp(t, `^recipe-\d+-[a-z0-9]+$`, outcome.Recipe.ID)
	assert.Equal(t, "lunch", outcome.Recipe.MealType)
	assert.Equal(t, 3, outcome.Recipe.Difficulty)
	assert.Equal(t, float64(500), outcome.Recipe.Macros.Calories)
	assert.True(t, outcome.Recipe.IsPublished)
	assert.Equal(t, 1, store.Count())
}

func TestIngestTextIdempotentByIdentity(t *testing.T) {
	store := NewMemoryStore()
	ai := &stubCompleter{respond: fixedResponse(modelRecipeJSON)}
	svc := NewService(testConfig(), ai, store, nil, nil)

	first, err := svc.IngestText(context.Background(), "same text", "recipe-fixed-1")
	require.NoError(t, err)
	assert.Equal(t, StagePersisted, first.Stage)

	second, err := svc.IngestText(context.Background(), "same text", "recipe-fixed-1")
	require.NoError(t, err)
	assert.Equal(t, StageSkipped, second.Stage)
	assert.True(t, second.Skipped)
	require.NotNil(t, second.Recipe)
	assert.Equal(t, "recipe-fixed-1", second.Recipe.ID)
	assert.Equal(t, 1, store.Count())
}

func TestIngestTextModelFailure(t *testing.T) {
	store := NewMemoryStore()
	ai := &stubCompleter{respond: func(string) (string, error) {
		return "", common.ErrUpstreamAuth
	}}
	svc := NewService(testConfig(), ai, store, nil, nil)

	outcome, err := svc.IngestText(context.Background(), "text", "")
	require.ErrorIs(t, err, common.ErrUpstreamAuth)
	assert.Equal(t, StageExtracting, outcome.Stage)
	assert.Equal(t, 0, store.Count())
}

func TestIngestTextUnparsableOutput(t *testing.T) {
	store := NewMemoryStore()
	ai := &stubCompleter{respond: fixedResponse("I am sorry, I cannot help with that.")}
	svc := NewService(testConfig(), ai, store, nil, nil)

	outcome, err := svc.IngestText(context.Background(), "text", "")
	require.Error(t, err)
	assert.True(t, common.IsParseError(err))
	assert.Equal(t, StageRepairing, outcome.Stage)
	assert.Equal(t, 0, store.Count())
}

func TestIngestRecordUsesCallerIdentity(t *testing.T) {
	store := NewMemoryStore()
	ai := &stubCompleter{respond: fixedResponse(modelRecipeJSON)}
	svc := NewService(testConfig(), ai, store, nil, nil)

	hints := recipe.Hints{
		ID:        "themealdb-52772",
		SourceURL: "https://example.com/teriyaki",
	}
	outcome, err := svc.IngestRecord(context.Background(), map[string]interface{}{
		"strMeal": "Teriyaki Chicken",
	}, hints)
	require.NoError(t, err)

	assert.Equal(t, "themealdb-52772", outcome.Recipe.ID)
	assert.Equal(t, "https://example.com/teriyaki", outcome.Recipe.SourceURL)
}

func TestIngestJSONDirectPath(t *testing.T) {
	store := NewMemoryStore()
	ai := &stubCompleter{respond: func(string) (string, error) {
		t.Fatal("直接匯入不得呼叫模型")
		return "", nil
	}}
	svc := NewService(testConfig(), ai, store, nil, nil)

	outcome, err := svc.IngestJSON(context.Background(), `{"name": {"en": "Pasted"}}`, "")
	require.NoError(t, err)

	assert.Equal(t, StagePersisted, outcome.Stage)
	assert.Regexp(t, `^paste-\d+-[a-z0-9]+$`, outcome.Recipe.ID)
	assert.False(t, outcome.Recipe.IsPublished, "貼上的資料視為未審核")
	assert.Equal(t, common.CuisineType{"unknown"}, outcome.Recipe.CuisineType)
	assert.Equal(t, 0, ai.callCount())
}

func TestIngestJSONInvalidPayload(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(testConfig(), &stubCompleter{respond: fixedResponse("")}, store, nil, nil)

	outcome, err := svc.IngestJSON(context.Background(), "not json at all", "")
	require.Error(t, err)
	assert.True(t, common.IsParseError(err))
	assert.Equal(t, StageCanonicalizing, outcome.Stage)
}

func TestBackfillSteps(t *testing.T) {
	store := NewMemoryStore()
	existing := &common.Recipe{
		ID:       "recipe-old-1",
		Name:     []common.MultilingualText{{Language: "en", Text: "Old Recipe"}},
		Servings: 4,
	}
	require.NoError(t, store.Insert(context.Background(), existing))

	ai := &stubCompleter{respond: fixedResponse(`{
		"steps": [
			{"stepNumber": 1, "instructions": {"en": "Prep"}, "timeMinutes": 5},
			{"stepNumber": 2, "instructions": {"en": "Cook"}, "timeMinutes": 20}
		]
	}`)}
	svc := NewService(testConfig(), ai, store, nil, nil)

	updated, err := svc.BackfillSteps(context.Background(), "recipe-old-1")
	require.NoError(t, err)
	require.Len(t, updated.Steps, 2)
	assert.Equal(t, "Prep", common.GetText(updated.Steps[0].Instructions, "en"))

	stored, err := store.FindByID(context.Background(), "recipe-old-1")
	require.NoError(t, err)
	require.Len(t, stored.Steps, 2)
}

func TestBackfillStepsUnknownRecipe(t *testing.T) {
	svc := NewService(testConfig(), &stubCompleter{respond: fixedResponse("")}, NewMemoryStore(), nil, nil)

	_, err := svc.BackfillSteps(context.Background(), "missing-id")
	require.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestBackfillStepsEmptyModelOutput(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Insert(context.Background(), &common.Recipe{ID: "recipe-old-2"}))

	ai := &stubCompleter{respond: fixedResponse(`{"steps": []}`)}
	svc := NewService(testConfig(), ai, store, nil, nil)

	_, err := svc.BackfillSteps(context.Background(), "recipe-old-2")
	require.Error(t, err)

	stored, err := store.FindByID(context.Background(), "recipe-old-2")
	require.NoError(t, err)
	assert.Empty(t, stored.Steps, "失敗時不得動到原記錄")
}

func TestRetryClassificationStopsAtModelGateway(t *testing.T) {
	// 協調器本身不重試，交給模型閘道；這裡確認錯誤原樣傳遞
	store := NewMemoryStore()
	wantErr := errors.New("transport exploded")
	ai := &stubCompleter{respond: func(string) (string, error) { return "", wantErr }}
	svc := NewService(testConfig(), ai, store, nil, nil)

	_, err := svc.IngestText(context.Background(), "text", "")
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, ai.callCount())
}
