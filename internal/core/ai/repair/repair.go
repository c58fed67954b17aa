package repair

import (
	"fmt"
	"strings"

	"recipe-ingestor/internal/pkg/common"
)

// 掃描狀態：一般文字 / 字串內 / 字串內反斜線後
type scanState int

const (
	stateNormal scanState = iota
	stateInString
	stateEscaped
)

// Repair 從模型的原始文字輸出中恢復出可解析的 JSON 物件
// 模型只被「要求」輸出 JSON，傳輸層並不保證；實際回應會夾帶 code fence、
// 字串內未跳脫的控制字元、尾逗號或前後綴的說明文字
func Repair(raw string) (map[string]interface{}, error) {
	cleaned := StripFences(raw)
	cleaned = EscapeControlChars(cleaned)
	cleaned = RemoveTrailingCommas(cleaned)

	obj, err := parseObject(cleaned)
	if err == nil {
		return obj, nil
	}

	// 非整份 JSON 時，取第一個 { 到最後一個 } 的範圍再試一次
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		if obj, innerErr := parseObject(cleaned[start : end+1]); innerErr == nil {
			return obj, nil
		}
	}

	return nil, common.NewParseError(cleaned, err)
}

// StripFences 移除 Markdown code fence 標記
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// 去掉開頭的 ```/```json 整行
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}

	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// EscapeControlChars 將字串內的原始控制字元（0x00–0x1F）換成對應的跳脫序列
// 每個實體控制字元輸出恰好一個跳脫序列；字串外的控制字元是合法空白，原樣保留
func EscapeControlChars(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))

	state := stateNormal
	for i := 0; i < len(raw); i++ {
		c := raw[i]

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateInString
			}
			sb.WriteByte(c)
		case stateInString:
			switch {
			case c == '\\':
				state = stateEscaped
				sb.WriteByte(c)
			case c == '"':
				state = stateNormal
				sb.WriteByte(c)
			case c < 0x20:
				sb.WriteString(escapeControl(c))
			default:
				sb.WriteByte(c)
			}
		case stateEscaped:
			state = stateInString
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

// escapeControl 控制字元的標準跳脫序列
func escapeControl(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\b':
		return `\b`
	case '\f':
		return `\f`
	default:
		return fmt.Sprintf(`\u%04x`, c)
	}
}

// RemoveTrailingCommas 移除 } 或 ] 前面的尾逗號（字串內的逗號不受影響）
func RemoveTrailingCommas(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))

	state := stateNormal
	for i := 0; i < len(raw); i++ {
		c := raw[i]

		switch state {
		case stateInString:
			if c == '\\' {
				state = stateEscaped
			} else if c == '"' {
				state = stateNormal
			}
			sb.WriteByte(c)
			continue
		case stateEscaped:
			state = stateInString
			sb.WriteByte(c)
			continue
		}

		if c == '"' {
			state = stateInString
			sb.WriteByte(c)
			continue
		}

		if c == ',' {
			// 往後找第一個非空白字元
			j := i + 1
			for j < len(raw) && isJSONWhitespace(raw[j]) {
				j++
			}
			if j < len(raw) && (raw[j] == '}' || raw[j] == ']') {
				continue // 丟棄尾逗號
			}
		}

		sb.WriteByte(c)
	}

	return sb.String()
}

func isJSONWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// parseObject 解析整份文字，頂層必須是 JSON 物件
func parseObject(s string) (map[string]interface{}, error) {
	var v interface{}
	if err := common.ParseJSON(s, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is not an object")
	}
	return obj, nil
}
