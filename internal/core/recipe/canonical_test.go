package recipe

import (
	"regexp"
	"testing"

	"recipe-ingestor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedIDPattern = regexp.MustCompile(`^recipe-\d+-[a-z0-9]+$`)

func TestCanonicalizeDefaults(t *testing.T) {
	rec, err := Canonicalize(map[string]interface{}{}, Hints{})
	require.NoError(t, err)

	assert.Regexp(t, generatedIDPattern, rec.ID)
	require.Len(t, rec.Name, 1)
	assert.Equal(t, "en", rec.Name[0].Language)
	assert.Equal(t, "Untitled Recipe", rec.Name[0].Text)
	assert.Equal(t, []common.MultilingualText{{Language: "en", Text: "untitled-recipe"}}, rec.Slug)
	assert.Equal(t, 5, rec.Difficulty)
	assert.Equal(t, 4, rec.Servings)
	assert.Equal(t, "dinner", rec.MealType)
	assert.Equal(t, common.CuisineType{"other"}, rec.CuisineType)
	assert.Equal(t, float64(500), rec.Macros.Calories)
	assert.NotNil(t, rec.Ingredients)
	assert.NotNil(t, rec.Steps)
	assert.True(t, rec.IsPublished)
	require.NotNil(t, rec.PublishedAt)
}

func TestCanonicalizeNilInput(t *testing.T) {
	_, err := Canonicalize(nil, Hints{})
	require.Error(t, err)
}

func TestCanonicalizeDirectPath(t *testing.T) {
	rec, err := Canonicalize(map[string]interface{}{
		"name": "Paste Test",
	}, Hints{IDPrefix: "paste", Direct: true})
	require.NoError(t, err)

	assert.Regexp(t, `^paste-\d+-[a-z0-9]+$`, rec.ID)
	assert.False(t, rec.IsPublished, "直接匯入的資料視為未審核")
	assert.Nil(t, rec.PublishedAt)
	assert.Equal(t, common.CuisineType{"unknown"}, rec.CuisineType)
}

func TestCanonicalizeIDResolution(t *testing.T) {
	t.Run("caller identity wins", func(t *testing.T) {
		rec, err := Canonicalize(map[string]interface{}{"id": "model-suggested"}, Hints{ID: "themealdb-52772"})
		require.NoError(t, err)
		assert.Equal(t, "themealdb-52772", rec.ID)
	})

	t.Run("model suggestion second", func(t *testing.T) {
		rec, err := Canonicalize(map[string]interface{}{"id": "model-suggested"}, Hints{})
		require.NoError(t, err)
		assert.Equal(t, "model-suggested", rec.ID)
	})
}

func TestCanonicalizeCaloriesPinned(t *testing.T) {
	rec, err := Canonicalize(map[string]interface{}{
		"macros": map[string]interface{}{
			"calories":      float64(123),
			"protein":       float64(30),
			"carbohydrates": float64(40),
			"fat":           float64(20),
		},
		"macrosPerServing": map[string]interface{}{
			"calories": float64(250),
			"protein":  float64(15),
		},
	}, Hints{})
	require.NoError(t, err)

	assert.Equal(t, float64(500), rec.Macros.Calories, "熱量一律釘在政策值")
	assert.Equal(t, float64(30), rec.Macros.Protein)
	require.NotNil(t, rec.MacrosPerServing)
	assert.Equal(t, float64(250), rec.MacrosPerServing.Calories, "每人份熱量不套政策值")
}

func TestCanonicalizeMultilingualFields(t *testing.T) {
	t.Run("language-keyed object", func(t *testing.T) {
		rec, err := Canonicalize(map[string]interface{}{
			"name": map[string]interface{}{
				"en": "Tomato Soup",
				"de": "Tomatensuppe",
				"xx": "ignored",
				"fr": "",
			},
		}, Hints{})
		require.NoError(t, err)

		require.Len(t, rec.Name, 2)
		assert.Equal(t, "en", rec.Name[0].Language)
		assert.Equal(t, "de", rec.Name[1].Language)
	})

	t.Run("bare string becomes english", func(t *testing.T) {
		rec, err := Canonicalize(map[string]interface{}{"name": "Goulash"}, Hints{})
		require.NoError(t, err)

		require.Len(t, rec.Name, 1)
		assert.Equal(t, common.MultilingualText{Language: "en", Text: "Goulash"}, rec.Name[0])
	})

	t.Run("list form with duplicates", func(t *testing.T) {
		rec, err := Canonicalize(map[string]interface{}{
			"name": []interface{}{
				map[string]interface{}{"language": "en", "text": "First"},
				map[string]interface{}{"language": "en", "text": "Second"},
				map[string]interface{}{"language": "zz", "text": "Invalid"},
			},
		}, Hints{})
		require.NoError(t, err)

		require.Len(t, rec.Name, 1)
		assert.Equal(t, "First", rec.Name[0].Text)
	})
}

func TestNormalizeDifficulty(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int
	}{
		{"missing", nil, 5},
		{"numeric in range", float64(7), 7},
		{"numeric rounds", 6.6, 7},
		{"below range clamps", float64(0), 1},
		{"negative clamps", float64(-3), 1},
		{"above range clamps", float64(15), 10},
		{"lexicon easy", "easy", 3},
		{"lexicon hard", "hard", 7},
		{"lexicon master", "master", 10},
		{"lexicon case insensitive", "  Very Easy ", 1},
		{"numeric string", "8", 8},
		{"unknown string", "impossible", 5},
		{"wrong type", []interface{}{1}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDifficulty(tt.in))
		})
	}
}

func TestCanonicalizeMealType(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"breakfast", "breakfast"},
		{"Lunch", "lunch"},
		{"brunch", "dinner"}, // 不在詞彙表內
		{nil, "dinner"},
		{float64(3), "dinner"},
	}

	for _, tt := range tests {
		rec, err := Canonicalize(map[string]interface{}{"mealType": tt.in}, Hints{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, rec.MealType, "mealType=%v", tt.in)
	}
}

func TestCanonicalizeClosedVocabularies(t *testing.T) {
	rec, err := Canonicalize(map[string]interface{}{
		"dietaryTags":    []interface{}{"Vegan", "gluten-free", "superfood", " keto "},
		"cookingMethods": []interface{}{"Baking", "telepathy", "sous-vide"},
	}, Hints{})
	require.NoError(t, err)

	assert.Equal(t, []string{"vegan", "gluten-free", "keto"}, rec.DietaryTags)
	assert.Equal(t, []string{"baking", "sous-vide"}, rec.CookingMethods)
}

func TestCanonicalizeCuisineOpenVocabulary(t *testing.T) {
	rec, err := Canonicalize(map[string]interface{}{
		"cuisineType": "Szechuan fusion",
	}, Hints{})
	require.NoError(t, err)
	assert.Equal(t, common.CuisineType{"Szechuan fusion"}, rec.CuisineType)

	rec, err = Canonicalize(map[string]interface{}{
		"cuisineType": []interface{}{"Italian", "Mediterranean"},
	}, Hints{})
	require.NoError(t, err)
	assert.Equal(t, common.CuisineType{"Italian", "Mediterranean"}, rec.CuisineType)
}

func TestCanonicalizeTime(t *testing.T) {
	t.Run("total from prep and cook", func(t *testing.T) {
		rec, err := Canonicalize(map[string]interface{}{
			"time": map[string]interface{}{
				"prepMinutes": float64(10),
				"cookMinutes": float64(25),
			},
		}, Hints{})
		require.NoError(t, err)
		assert.Equal(t, 35, rec.Time.TotalMinutes)
	})

	t.Run("explicit total wins", func(t *testing.T) {
		rec, err := Canonicalize(map[string]interface{}{
			"time": map[string]interface{}{
				"prepMinutes":  float64(10),
				"cookMinutes":  float64(25),
				"totalMinutes": float64(45),
			},
		}, Hints{})
		require.NoError(t, err)
		assert.Equal(t, 45, rec.Time.TotalMinutes)
	})
}

func TestCanonicalizeSteps(t *testing.T) {
	rec, err := Canonicalize(map[string]interface{}{
		"steps": []interface{}{
			map[string]interface{}{
				"instructions": map[string]interface{}{"en": "Chop the onions"},
				"timeMinutes":  float64(5),
			},
			map[string]interface{}{
				"instructions": map[string]interface{}{"en": ""},
			},
			map[string]interface{}{
				"instructions": map[string]interface{}{"en": "Simmer gently"},
			},
		},
	}, Hints{})
	require.NoError(t, err)

	require.Len(t, rec.Steps, 2, "沒有內容的步驟被丟棄")
	assert.Equal(t, 1, rec.Steps[0].StepNumber)
	require.NotNil(t, rec.Steps[0].TimeMinutes)
	assert.Equal(t, 5, *rec.Steps[0].TimeMinutes)
	assert.Equal(t, 3, rec.Steps[1].StepNumber, "保留原始編號")
}

func TestCanonicalizeHintOverrides(t *testing.T) {
	rec, err := Canonicalize(map[string]interface{}{
		"imageUrl":  "https://model.example/img.jpg",
		"sourceUrl": "https://model.example/src",
	}, Hints{
		ImageURL:  "https://caller.example/img.jpg",
		SourceURL: "https://caller.example/src",
		Author:    "importer",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://caller.example/img.jpg", rec.ImageURL)
	assert.Equal(t, "https://caller.example/src", rec.SourceURL)
	assert.Equal(t, "importer", rec.Author)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Spicy Chicken Curry", "spicy-chicken-curry"},
		{"  --Hello__World--  ", "hello-world"},
		{"Already-Slugged", "already-slugged"},
		{"100% Whole Wheat", "100-whole-wheat"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "input %q", tt.in)
	}
}

func TestSlugField(t *testing.T) {
	name := []common.MultilingualText{
		{Language: "en", Text: "Tomato Soup"},
		{Language: "de", Text: "Tomatensuppe"},
		{Language: "fr", Text: "???"},
	}

	slugs := SlugField(name)
	require.Len(t, slugs, 2, "導不出 slug 的語言被略過")
	assert.Equal(t, common.MultilingualText{Language: "en", Text: "tomato-soup"}, slugs[0])
	assert.Equal(t, common.MultilingualText{Language: "de", Text: "tomatensuppe"}, slugs[1])
}
