package common

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// NewRecipeID 生成新的食譜識別碼：recipe-<毫秒時間戳>-<base36 亂數>
func NewRecipeID() string {
	return PrefixedRecipeID("recipe")
}

// PrefixedRecipeID 以指定前綴生成食譜識別碼
// 外部來源（themealdb、paste、json）用自己的前綴，重新匯入時可解析回同一身份
func PrefixedRecipeID(prefix string) string {
	suffix := strconv.FormatInt(rand.Int63n(36*36*36*36*36*36), 36)
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}
