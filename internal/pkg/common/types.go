package common

import (
	"encoding/json"
	"fmt"
	"time"
)

// SupportedLanguages 支援的語言代碼（固定七種）
var SupportedLanguages = []string{"en", "de", "nl", "hu", "fr", "es", "pt"}

// IsSupportedLanguage 檢查語言代碼是否在支援清單中
func IsSupportedLanguage(code string) bool {
	for _, lang := range SupportedLanguages {
		if lang == code {
			return true
		}
	}
	return false
}

// MultilingualText 單一語言的文字值
// 一組 MultilingualText 代表同一邏輯值的多語言版本，每種語言最多一筆
type MultilingualText struct {
	Language string `json:"language" bson:"language"`
	Text     string `json:"text" bson:"text"`
}

// Ingredient 食材
type Ingredient struct {
	Name       []MultilingualText `json:"name" bson:"name"`
	Amount     float64            `json:"amount" bson:"amount"`
	Unit       []MultilingualText `json:"unit" bson:"unit"`
	Notes      []MultilingualText `json:"notes,omitempty" bson:"notes,omitempty"`
	IsOptional bool               `json:"isOptional" bson:"isOptional"`
	Category   []MultilingualText `json:"category,omitempty" bson:"category,omitempty"`
}

// RecipeStep 食譜步驟
// StepNumber 從 1 開始、在單一食譜內唯一；儲存層不保證排序，呈現時必須依編號排序
type RecipeStep struct {
	StepNumber   int                `json:"stepNumber" bson:"stepNumber"`
	Instructions []MultilingualText `json:"instructions" bson:"instructions"`
	ImageURL     string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	TimeMinutes  *int               `json:"timeMinutes,omitempty" bson:"timeMinutes,omitempty"`
}

// NutritionalMacros 營養素
// Calories 在正規化後固定為 500（歷史資料一致性的基準值），不是計算結果
type NutritionalMacros struct {
	Calories      float64  `json:"calories" bson:"calories"`
	Protein       float64  `json:"protein" bson:"protein"`
	Carbohydrates float64  `json:"carbohydrates" bson:"carbohydrates"`
	Fat           float64  `json:"fat" bson:"fat"`
	SaturatedFat  *float64 `json:"saturatedFat,omitempty" bson:"saturatedFat,omitempty"`
	Fiber         *float64 `json:"fiber,omitempty" bson:"fiber,omitempty"`
	Sugar         *float64 `json:"sugar,omitempty" bson:"sugar,omitempty"`
	Sodium        *float64 `json:"sodium,omitempty" bson:"sodium,omitempty"`
	Cholesterol   *float64 `json:"cholesterol,omitempty" bson:"cholesterol,omitempty"`
	Potassium     *float64 `json:"potassium,omitempty" bson:"potassium,omitempty"`
	Calcium       *float64 `json:"calcium,omitempty" bson:"calcium,omitempty"`
	Iron          *float64 `json:"iron,omitempty" bson:"iron,omitempty"`
	VitaminA      *float64 `json:"vitaminA,omitempty" bson:"vitaminA,omitempty"`
	VitaminC      *float64 `json:"vitaminC,omitempty" bson:"vitaminC,omitempty"`
}

// RecipeTime 時間資訊（分鐘）
type RecipeTime struct {
	PrepMinutes  int  `json:"prepMinutes" bson:"prepMinutes"`
	CookMinutes  int  `json:"cookMinutes" bson:"cookMinutes"`
	RestMinutes  *int `json:"restMinutes,omitempty" bson:"restMinutes,omitempty"`
	TotalMinutes int  `json:"totalMinutes" bson:"totalMinutes"`
}

// CuisineType 菜系，開放詞彙
// JSON 可以是單一字串或字串陣列，序列化時單一值輸出為字串以保持相容
type CuisineType []string

// UnmarshalJSON 實現 json.Unmarshaler
func (c *CuisineType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = CuisineType{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*c = CuisineType(list)
		return nil
	}
	return fmt.Errorf("cuisineType must be a string or an array of strings")
}

// MarshalJSON 實現 json.Marshaler
func (c CuisineType) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]string(c))
}

// Recipe 正規化後的多語言食譜（canonical record）
type Recipe struct {
	ID               string               `json:"id" bson:"_id"`
	Slug             []MultilingualText   `json:"slug" bson:"slug"`
	Name             []MultilingualText   `json:"name" bson:"name"`
	Description      []MultilingualText   `json:"description" bson:"description"`
	Info             []MultilingualText   `json:"info,omitempty" bson:"info,omitempty"`
	Ingredients      []Ingredient         `json:"ingredients" bson:"ingredients"`
	Steps            []RecipeStep         `json:"steps" bson:"steps"`
	Difficulty       int                  `json:"difficulty" bson:"difficulty"`
	Servings         int                  `json:"servings" bson:"servings"`
	ServingsUnit     []MultilingualText   `json:"servingsUnit,omitempty" bson:"servingsUnit,omitempty"`
	Time             RecipeTime           `json:"time" bson:"time"`
	Macros           NutritionalMacros    `json:"macros" bson:"macros"`
	MacrosPerServing *NutritionalMacros   `json:"macrosPerServing,omitempty" bson:"macrosPerServing,omitempty"`
	MealType         string               `json:"mealType" bson:"mealType"`
	CuisineType      CuisineType          `json:"cuisineType" bson:"cuisineType"`
	Tags             [][]MultilingualText `json:"tags,omitempty" bson:"tags,omitempty"`
	DietaryTags      []string             `json:"dietaryTags" bson:"dietaryTags"`
	CookingMethods   []string             `json:"cookingMethods" bson:"cookingMethods"`
	ImageURL         string               `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	VideoURL         string               `json:"videoUrl,omitempty" bson:"videoUrl,omitempty"`
	Author           string               `json:"author,omitempty" bson:"author,omitempty"`
	SourceURL        string               `json:"sourceUrl,omitempty" bson:"sourceUrl,omitempty"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updatedAt"`
	PublishedAt      *time.Time           `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`
	IsPublished      bool                 `json:"isPublished" bson:"isPublished"`
	IsFeatured       bool                 `json:"isFeatured" bson:"isFeatured"`
}

// GetText 取得指定語言的文字，找不到時回傳空字串
func GetText(field []MultilingualText, lang string) string {
	for _, entry := range field {
		if entry.Language == lang {
			return entry.Text
		}
	}
	return ""
}
