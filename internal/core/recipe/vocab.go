package recipe

import "strings"

// 封閉詞彙：mealType、dietaryTags、cookingMethods 只接受清單內的值
// cuisineType 刻意維持開放詞彙，不在此過濾

// MealTypes 餐別（7 種）
var MealTypes = []string{
	"breakfast", "lunch", "dinner", "snack", "dessert", "appetizer", "side",
}

// DefaultMealType 餐別預設值
const DefaultMealType = "dinner"

// DietaryTags 飲食標籤（13 種）
var DietaryTags = []string{
	"vegetarian", "vegan", "gluten-free", "dairy-free", "nut-free",
	"egg-free", "soy-free", "low-carb", "keto", "paleo",
	"halal", "kosher", "pescatarian",
}

// CookingMethods 烹調方式（28 種，含 other）
var CookingMethods = []string{
	"baking", "grilling", "frying", "deep-frying", "stir-frying",
	"roasting", "boiling", "simmering", "steaming", "poaching",
	"sauteing", "braising", "stewing", "broiling", "smoking",
	"sous-vide", "pressure-cooking", "slow-cooking", "microwaving",
	"air-frying", "blanching", "marinating", "fermenting", "pickling",
	"curing", "raw", "no-cook", "other",
}

// difficultyLexicon 難度字串對照表，鍵一律小寫
var difficultyLexicon = map[string]int{
	"very easy":      1,
	"easy":           3,
	"simple":         3,
	"beginner":       3,
	"medium":         5,
	"moderate":       5,
	"intermediate":   5,
	"medium-hard":    6,
	"hard":           7,
	"difficult":      7,
	"advanced":       7,
	"very hard":      9,
	"expert":         9,
	"very difficult": 10,
	"master":         10,
}

// IsMealType 檢查是否為合法餐別
func IsMealType(v string) bool {
	return contains(MealTypes, v)
}

// FilterDietaryTags 只保留封閉詞彙內的飲食標籤，其餘靜默丟棄
func FilterDietaryTags(tags []string) []string {
	return filter(tags, DietaryTags)
}

// FilterCookingMethods 只保留封閉詞彙內的烹調方式，其餘靜默丟棄
func FilterCookingMethods(methods []string) []string {
	return filter(methods, CookingMethods)
}

func filter(values, vocab []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if contains(vocab, normalized) {
			out = append(out, normalized)
		}
	}
	return out
}

func contains(vocab []string, v string) bool {
	for _, entry := range vocab {
		if entry == v {
			return true
		}
	}
	return false
}
