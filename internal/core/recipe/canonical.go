package recipe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"recipe-ingestor/internal/pkg/common"
)

// Hints 呼叫端對來源記錄已知的資訊，優先於模型輸出
type Hints struct {
	ID        string // 呼叫端已解析出的身份，覆蓋模型建議的 id
	IDPrefix  string // 沒有 ID 時生成識別碼用的前綴，空值為 "recipe"
	SourceURL string
	ImageURL  string
	Author    string
	Direct    bool // 直接貼上 / 批次上傳路徑：視為未審核資料
}

// 缺名稱時的佔位名
const untitledName = "Untitled Recipe"

// 固定熱量基準：所有正規化後的食譜 calories 一律 500，
// 讓食譜之間以巨量營養素比例而非絕對能量比較（沿用歷史資料的政策值）
const pinnedCalories = 500

// Canonicalize 將解析後的鬆散模型輸出映射成嚴格型別的 Recipe
// 純函數，不做 I/O；缺欄位一律補安全預設值，只有結構上說不通的輸入
// （頂層不是物件）才會失敗——寧可要一筆盡力而為的記錄，也不要沒有
func Canonicalize(parsed map[string]interface{}, hints Hints) (*common.Recipe, error) {
	if parsed == nil {
		return nil, fmt.Errorf("cannot canonicalize nil input")
	}

	now := time.Now().UTC()

	name := coerceMultilingual(parsed["name"])
	if len(name) == 0 {
		name = []common.MultilingualText{{Language: "en", Text: untitledName}}
	}

	r := &common.Recipe{
		ID:             resolveID(parsed, hints),
		Name:           name,
		Slug:           SlugField(name),
		Description:    coerceMultilingual(parsed["description"]),
		Info:           coerceMultilingual(parsed["info"]),
		Ingredients:    coerceIngredients(parsed["ingredients"]),
		Steps:          coerceSteps(parsed["steps"]),
		Difficulty:     NormalizeDifficulty(parsed["difficulty"]),
		Servings:       coerceServings(parsed["servings"]),
		ServingsUnit:   coerceMultilingual(parsed["servingsUnit"]),
		Time:           coerceTime(parsed["time"]),
		Macros:         coerceMacros(parsed["macros"]),
		MealType:       coerceMealType(parsed["mealType"]),
		CuisineType:    coerceCuisine(parsed["cuisineType"], hints.Direct),
		Tags:           coerceTags(parsed["tags"]),
		DietaryTags:    FilterDietaryTags(coerceStringList(parsed["dietaryTags"])),
		CookingMethods: FilterCookingMethods(coerceStringList(parsed["cookingMethods"])),
		ImageURL:       firstNonEmpty(hints.ImageURL, common.AsString(parsed["imageUrl"])),
		VideoURL:       common.AsString(parsed["videoUrl"]),
		Author:         firstNonEmpty(hints.Author, common.AsString(parsed["author"])),
		SourceURL:      firstNonEmpty(hints.SourceURL, common.AsString(parsed["sourceUrl"])),
		CreatedAt:      now,
		UpdatedAt:      now,
		// 模型精煉過的資料視為可發布，貼上 / 批次上傳的資料視為未審核
		IsPublished: !hints.Direct,
	}

	if m, ok := parsed["macrosPerServing"].(map[string]interface{}); ok {
		per := coerceMacrosRaw(m)
		r.MacrosPerServing = &per
	}

	if r.IsPublished {
		published := now
		r.PublishedAt = &published
	}

	return r, nil
}

// CanonicalizeSteps 只正規化步驟陣列（補齊舊記錄用）
func CanonicalizeSteps(parsed map[string]interface{}) []common.RecipeStep {
	if parsed == nil {
		return nil
	}
	return coerceSteps(parsed["steps"])
}

// resolveID 決定記錄身份
// 呼叫端身份最優先（外部目錄重匯入時會解析回同一 id，達成冪等），
// 其次是模型建議的 id，最後才生成新識別碼
func resolveID(parsed map[string]interface{}, hints Hints) string {
	if hints.ID != "" {
		return hints.ID
	}
	if suggested := common.AsString(parsed["id"]); suggested != "" {
		return suggested
	}
	if hints.IDPrefix != "" {
		return common.PrefixedRecipeID(hints.IDPrefix)
	}
	return common.NewRecipeID()
}

// coerceMultilingual 把以語言代碼為鍵的物件轉成 MultilingualText 清單
// 七種支援語言以外的鍵直接丟棄；也接受已是清單形式的輸入與純字串（視為 en）
func coerceMultilingual(v interface{}) []common.MultilingualText {
	switch field := v.(type) {
	case map[string]interface{}:
		out := make([]common.MultilingualText, 0, len(field))
		for _, lang := range common.SupportedLanguages {
			raw, ok := field[lang]
			if !ok {
				continue
			}
			text := strings.TrimSpace(common.AsString(raw))
			if text == "" {
				continue
			}
			out = append(out, common.MultilingualText{Language: lang, Text: text})
		}
		return out
	case []interface{}:
		out := make([]common.MultilingualText, 0, len(field))
		seen := make(map[string]bool)
		for _, item := range field {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			lang := common.AsString(entry["language"])
			text := strings.TrimSpace(common.AsString(entry["text"]))
			if !common.IsSupportedLanguage(lang) || text == "" || seen[lang] {
				continue
			}
			seen[lang] = true
			out = append(out, common.MultilingualText{Language: lang, Text: text})
		}
		return out
	case string:
		text := strings.TrimSpace(field)
		if text == "" {
			return nil
		}
		return []common.MultilingualText{{Language: "en", Text: text}}
	default:
		return nil
	}
}

// NormalizeDifficulty 把任意難度表示收斂成 [1,10] 的整數
// 數字四捨五入後夾限；字串先查對照表，再嘗試當數字解析；其餘一律 5
func NormalizeDifficulty(v interface{}) int {
	if n, ok := common.AsNumber(v); ok {
		return clampDifficulty(int(math.Round(n)))
	}

	if s, ok := v.(string); ok {
		key := strings.ToLower(strings.TrimSpace(s))
		if level, found := difficultyLexicon[key]; found {
			return level
		}
		if n, err := strconv.ParseFloat(key, 64); err == nil {
			return clampDifficulty(int(math.Round(n)))
		}
	}

	return 5
}

func clampDifficulty(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// coerceServings 人份，預設 4
func coerceServings(v interface{}) int {
	if n, ok := common.AsNumber(v); ok && n > 0 {
		return int(math.Round(n))
	}
	return 4
}

// coerceMealType 驗證餐別，不合法或缺值一律 dinner
func coerceMealType(v interface{}) string {
	mealType := strings.ToLower(strings.TrimSpace(common.AsString(v)))
	if IsMealType(mealType) {
		return mealType
	}
	return DefaultMealType
}

// coerceCuisine 菜系為開放詞彙：字串或字串陣列原樣通過，其餘給預設值
// 模型抽取路徑預設 "other"，直接貼上路徑預設 "unknown"
func coerceCuisine(v interface{}, direct bool) common.CuisineType {
	fallback := "other"
	if direct {
		fallback = "unknown"
	}

	switch c := v.(type) {
	case string:
		if strings.TrimSpace(c) != "" {
			return common.CuisineType{c}
		}
	case []interface{}:
		out := make(common.CuisineType, 0, len(c))
		for _, item := range c {
			if s := common.AsString(item); strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	return common.CuisineType{fallback}
}

// coerceTime 時間資訊；totalMinutes 缺值時以 prep+cook 補上
func coerceTime(v interface{}) common.RecipeTime {
	t := common.RecipeTime{}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return t
	}

	t.PrepMinutes = nonNegativeInt(obj["prepMinutes"])
	t.CookMinutes = nonNegativeInt(obj["cookMinutes"])

	if rest, ok := common.AsNumber(obj["restMinutes"]); ok && rest >= 0 {
		restMinutes := int(math.Round(rest))
		t.RestMinutes = &restMinutes
	}

	if total, ok := common.AsNumber(obj["totalMinutes"]); ok && total > 0 {
		t.TotalMinutes = int(math.Round(total))
	} else {
		t.TotalMinutes = t.PrepMinutes + t.CookMinutes
	}

	return t
}

// coerceMacros 營養素；calories 無條件釘在 500
func coerceMacros(v interface{}) common.NutritionalMacros {
	obj, _ := v.(map[string]interface{})
	m := coerceMacrosRaw(obj)
	m.Calories = pinnedCalories
	return m
}

// coerceMacrosRaw 讀出營養素數值，不套用熱量政策（macrosPerServing 用）
func coerceMacrosRaw(obj map[string]interface{}) common.NutritionalMacros {
	m := common.NutritionalMacros{}
	if obj == nil {
		return m
	}

	m.Calories, _ = common.AsNumber(obj["calories"])
	m.Protein, _ = common.AsNumber(obj["protein"])
	m.Carbohydrates, _ = common.AsNumber(obj["carbohydrates"])
	m.Fat, _ = common.AsNumber(obj["fat"])

	m.SaturatedFat = optionalNumber(obj["saturatedFat"])
	m.Fiber = optionalNumber(obj["fiber"])
	m.Sugar = optionalNumber(obj["sugar"])
	m.Sodium = optionalNumber(obj["sodium"])
	m.Cholesterol = optionalNumber(obj["cholesterol"])
	m.Potassium = optionalNumber(obj["potassium"])
	m.Calcium = optionalNumber(obj["calcium"])
	m.Iron = optionalNumber(obj["iron"])
	m.VitaminA = optionalNumber(obj["vitaminA"])
	m.VitaminC = optionalNumber(obj["vitaminC"])

	return m
}

// coerceIngredients 食材清單
func coerceIngredients(v interface{}) []common.Ingredient {
	items, ok := v.([]interface{})
	if !ok {
		return []common.Ingredient{}
	}

	out := make([]common.Ingredient, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		ing := common.Ingredient{
			Name:     coerceMultilingual(obj["name"]),
			Unit:     coerceMultilingual(obj["unit"]),
			Notes:    coerceMultilingual(obj["notes"]),
			Category: coerceMultilingual(obj["category"]),
		}
		if amount, ok := common.AsNumber(obj["amount"]); ok && amount >= 0 {
			ing.Amount = amount
		}
		if optional, ok := obj["isOptional"].(bool); ok {
			ing.IsOptional = optional
		}
		out = append(out, ing)
	}
	return out
}

// coerceSteps 步驟清單，補齊 1 起始的連續編號
func coerceSteps(v interface{}) []common.RecipeStep {
	items, ok := v.([]interface{})
	if !ok {
		return []common.RecipeStep{}
	}

	out := make([]common.RecipeStep, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		step := common.RecipeStep{
			Instructions: coerceMultilingual(obj["instructions"]),
			ImageURL:     common.AsString(obj["imageUrl"]),
		}
		if n, ok := common.AsNumber(obj["stepNumber"]); ok && n > 0 {
			step.StepNumber = int(math.Round(n))
		} else {
			step.StepNumber = i + 1
		}
		if minutes, ok := common.AsNumber(obj["timeMinutes"]); ok && minutes >= 0 {
			timeMinutes := int(math.Round(minutes))
			step.TimeMinutes = &timeMinutes
		}
		if len(step.Instructions) == 0 {
			continue
		}
		out = append(out, step)
	}
	return out
}

// coerceTags 標籤：每個標籤本身是一個多語言欄位
func coerceTags(v interface{}) [][]common.MultilingualText {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}

	out := make([][]common.MultilingualText, 0, len(items))
	for _, item := range items {
		tag := coerceMultilingual(item)
		if len(tag) > 0 {
			out = append(out, tag)
		}
	}
	return out
}

// coerceStringList 字串清單；單一字串也接受
func coerceStringList(v interface{}) []string {
	switch list := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := common.AsString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	default:
		return nil
	}
}

func nonNegativeInt(v interface{}) int {
	if n, ok := common.AsNumber(v); ok && n > 0 {
		return int(math.Round(n))
	}
	return 0
}

func optionalNumber(v interface{}) *float64 {
	if n, ok := common.AsNumber(v); ok {
		return &n
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
