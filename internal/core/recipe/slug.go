package recipe

import (
	"strings"

	"recipe-ingestor/internal/pkg/common"
)

// Slugify 由名稱導出網址片段：轉小寫，非英數字元連段換成單一連字號，
// 去除頭尾連字號
func Slugify(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))

	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return sb.String()
}

// SlugField 為每個有名稱的語言各導出一個 slug
// 名稱每次變動都必須重算，正規化不保留舊 slug
func SlugField(name []common.MultilingualText) []common.MultilingualText {
	out := make([]common.MultilingualText, 0, len(name))
	for _, entry := range name {
		slug := Slugify(entry.Text)
		if slug == "" {
			continue
		}
		out = append(out, common.MultilingualText{Language: entry.Language, Text: slug})
	}
	return out
}
