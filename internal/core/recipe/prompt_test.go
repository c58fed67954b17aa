package recipe

import (
	"strings"
	"testing"

	"recipe-ingestor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExtractionPrompt(t *testing.T) {
	prompt := BuildExtractionPrompt("Grandma's goulash: beef, paprika, onions. Simmer for two hours.")

	assert.Contains(t, prompt, "Grandma's goulash")
	assert.Contains(t, prompt, "en, de, nl, hu, fr, es, pt")
	assert.Contains(t, prompt, "exactly 500")
	assert.Contains(t, prompt, "between 5 and 15")
	assert.Contains(t, prompt, strings.Join(MealTypes, ", "))
	assert.Contains(t, prompt, strings.Join(DietaryTags, ", "))
	assert.Contains(t, prompt, strings.Join(CookingMethods, ", "))
	assert.Contains(t, prompt, "Return JSON only")
}

func TestBuildRefinePrompt(t *testing.T) {
	foreign := map[string]interface{}{
		"strMeal":     "Teriyaki Chicken",
		"strArea":     "Japanese",
		"strCategory": "Chicken",
	}

	prompt := BuildRefinePrompt(foreign)

	assert.Contains(t, prompt, "Teriyaki Chicken")
	assert.Contains(t, prompt, "already-structured")
	assert.Contains(t, prompt, "do not invent different ingredients")
	assert.Contains(t, prompt, "exactly 500")
}

func TestBuildStepsPrompt(t *testing.T) {
	rec := &common.Recipe{
		Name: []common.MultilingualText{
			{Language: "en", Text: "Tomato Soup"},
		},
		Ingredients: []common.Ingredient{
			{Name: []common.MultilingualText{{Language: "en", Text: "tomatoes"}}},
			{Name: []common.MultilingualText{{Language: "en", Text: "basil"}}},
		},
		CookingMethods: []string{"simmering"},
		CuisineType:    common.CuisineType{"Italian"},
		Servings:       4,
	}

	prompt := BuildStepsPrompt(rec)

	assert.Contains(t, prompt, "Tomato Soup")
	assert.Contains(t, prompt, "tomatoes, basil")
	assert.Contains(t, prompt, "simmering")
	assert.Contains(t, prompt, "Italian")
	assert.Contains(t, prompt, `single "steps" key`)
	require.NotContains(t, prompt, "dietaryTags", "步驟變體不需要整份 schema")
}

func TestBuildStepsPromptFallbackName(t *testing.T) {
	prompt := BuildStepsPrompt(&common.Recipe{Servings: 2})
	assert.Contains(t, prompt, "Untitled Recipe")
}
