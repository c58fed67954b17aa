package recipe

import (
	"fmt"
	"strings"

	"recipe-ingestor/internal/pkg/common"
)

// 提示詞模板
// 目標 JSON 形狀對三種變體都一樣：每個多語言欄位都要求七種語言齊備，
// 熱量政策與步驟合成政策直接寫進指令裡（修復層是第二道防線，
// 「只輸出 JSON」的約束仍然要在這裡講清楚）

const languageList = "en, de, nl, hu, fr, es, pt"

// recipeSchemaBlock 目標 JSON 形狀（所有變體共用）
const recipeSchemaBlock = `{
"name": {"en": "...", "de": "...", "nl": "...", "hu": "...", "fr": "...", "es": "...", "pt": "..."},
"description": {"en": "...", "de": "...", "nl": "...", "hu": "...", "fr": "...", "es": "...", "pt": "..."},
"info": {"en": "...", "de": "...", "nl": "...", "hu": "...", "fr": "...", "es": "...", "pt": "..."},
"ingredients": [
  {
  "name": {"en": "...", "de": "...", "nl": "...", "hu": "...", "fr": "...", "es": "...", "pt": "..."},
  "amount": 0,
  "unit": {"en": "...", "de": "...", "nl": "...", "hu": "...", "fr": "...", "es": "...", "pt": "..."},
  "isOptional": false
  }
],
"steps": [
  {
  "stepNumber": 1,
  "instructions": {"en": "...", "de": "...", "nl": "...", "hu": "...", "fr": "...", "es": "...", "pt": "..."},
  "timeMinutes": 0
  }
],
"difficulty": 5,
"servings": 4,
"time": {"prepMinutes": 0, "cookMinutes": 0, "totalMinutes": 0},
"macros": {"calories": 500, "protein": 0, "carbohydrates": 0, "fat": 0},
"mealType": "dinner",
"cuisineType": "...",
"tags": [{"en": "...", "de": "...", "nl": "...", "hu": "...", "fr": "...", "es": "...", "pt": "..."}],
"dietaryTags": ["..."],
"cookingMethods": ["..."]
}`

// policyBlock 數值與內容政策（所有變體共用）
var policyBlock = fmt.Sprintf(`Rules:
1. Return JSON only. No prose, no explanations, no markdown code fences.
2. Every multilingual field must contain all seven languages: %s. Translate naturally, do not transliterate.
3. Nutrition policy: always set macros.calories to exactly 500. Derive protein, carbohydrates and fat from the actual ingredient composition using typical per-100g values (meat/fish 20-30g protein, grains 60-75g carbohydrates, oils 90-100g fat, vegetables 2-8g carbohydrates). Keep protein*4 + carbohydrates*4 + fat*9 approximately equal to 500. Omit micronutrients unless a reasonable estimate exists.
4. If the source has no instructions or they are incomplete, synthesize between 5 and 15 plausible, ordered, time-estimated steps consistent with the cooking methods and cuisine, in all seven languages. A complete synthetic recipe is preferred over a partial real one.
5. mealType must be one of: %s.
6. dietaryTags may only use: %s.
7. cookingMethods may only use: %s.
8. cuisineType is free-form: a country or region name, or an array of them.
9. All numbers must be plain JSON numbers, never strings.`,
	languageList,
	strings.Join(MealTypes, ", "),
	strings.Join(DietaryTags, ", "),
	strings.Join(CookingMethods, ", "))

// BuildExtractionPrompt 自由文字抽取變體：來源是不透明的自然語言文字
func BuildExtractionPrompt(rawText string) string {
	return fmt.Sprintf(`You are a recipe normalization engine. Extract one structured recipe from the source text below and translate it into all seven supported languages.

Target JSON shape:
%s

%s

Source text:
%s`, recipeSchemaBlock, policyBlock, rawText)
}

// BuildRefinePrompt 精煉 / 翻譯變體：來源已是結構化的外部格式記錄，
// 要做的是正規化與翻譯，不是從頭抽取
func BuildRefinePrompt(foreign map[string]interface{}) string {
	encoded, err := common.ToJSON(foreign)
	if err != nil {
		encoded = fmt.Sprintf("%v", foreign)
	}

	return fmt.Sprintf(`You are a recipe normalization engine. The source below is an already-structured recipe in a foreign schema. Map every field onto the target shape, fill the gaps, and translate all text into all seven supported languages. Preserve the factual content of the source; do not invent different ingredients.

Target JSON shape:
%s

%s

Source record:
%s`, recipeSchemaBlock, policyBlock, encoded)
}

// BuildStepsPrompt 步驟補齊變體：只為既有的 canonical 食譜重新生成 steps 陣列
// （舊資料有些存檔時沒有步驟）
func BuildStepsPrompt(r *common.Recipe) string {
	name := common.GetText(r.Name, "en")
	if name == "" {
		name = untitledName
	}

	var ingredients []string
	for _, ing := range r.Ingredients {
		if n := common.GetText(ing.Name, "en"); n != "" {
			ingredients = append(ingredients, n)
		}
	}

	return fmt.Sprintf(`You are a recipe normalization engine. Generate only the "steps" array for the recipe described below. Return a JSON object with a single "steps" key.

Target JSON shape:
{
"steps": [
  {
  "stepNumber": 1,
  "instructions": {"en": "...", "de": "...", "nl": "...", "hu": "...", "fr": "...", "es": "...", "pt": "..."},
  "timeMinutes": 0
  }
]
}

Rules:
1. Return JSON only. No prose, no explanations, no markdown code fences.
2. Synthesize between 5 and 15 plausible, ordered, time-estimated steps consistent with the cooking methods (%s) and cuisine (%s).
3. Every instructions object must contain all seven languages: %s.

Recipe: %s
Ingredients: %s
Servings: %d`,
		strings.Join(r.CookingMethods, ", "),
		strings.Join(r.CuisineType, ", "),
		languageList,
		name,
		strings.Join(ingredients, ", "),
		r.Servings)
}
