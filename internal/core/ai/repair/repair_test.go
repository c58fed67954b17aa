package repair

import (
	"testing"

	"recipe-ingestor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name: "clean json passes through",
			raw:  `{"name": "soup"}`,
			want: map[string]interface{}{"name": "soup"},
		},
		{
			name: "markdown fence with language tag",
			raw:  "```json\n{\"name\": \"soup\"}\n```",
			want: map[string]interface{}{"name": "soup"},
		},
		{
			name: "markdown fence without language tag",
			raw:  "```\n{\"name\": \"soup\"}\n```",
			want: map[string]interface{}{"name": "soup"},
		},
		{
			name: "raw newline inside string value",
			raw:  "{\"description\": \"first line\nsecond line\"}",
			want: map[string]interface{}{"description": "first line\nsecond line"},
		},
		{
			name: "trailing comma in object",
			raw:  `{"name": "soup", "servings": 4,}`,
			want: map[string]interface{}{"name": "soup", "servings": float64(4)},
		},
		{
			name: "trailing comma in array",
			raw:  `{"tags": ["quick", "easy",]}`,
			want: map[string]interface{}{"tags": []interface{}{"quick", "easy"}},
		},
		{
			name: "prose around the object",
			raw:  `Here is the recipe you asked for: {"name": "soup"} Hope it helps!`,
			want: map[string]interface{}{"name": "soup"},
		},
		{
			name: "fence and prose and trailing comma together",
			raw:  "Sure!\n```json\n{\"name\": \"soup\", \"tags\": [\"easy\",],}\n```",
			want: map[string]interface{}{"name": "soup", "tags": []interface{}{"easy"}},
		},
		{
			name:    "no object present",
			raw:     "I could not produce a recipe for that input.",
			wantErr: true,
		},
		{
			name: "object salvaged out of a top-level array",
			raw:  `[{"name": "soup"}]`,
			want: map[string]interface{}{"name": "soup"},
		},
		{
			name:    "unbalanced braces stay broken",
			raw:     `{"name": "soup"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Repair(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, common.IsParseError(err))
				return
			}
			require.NoError(t, err)
			assertValues(t, tt.want, got)
		})
	}
}

// assertValues 比較鍵值，數字經過 UseNumber 需轉回 float 比較
func assertValues(t *testing.T, want, got map[string]interface{}) {
	t.Helper()
	require.Len(t, got, len(want))
	for key, wantValue := range want {
		gotValue, ok := got[key]
		require.True(t, ok, "missing key %q", key)
		switch w := wantValue.(type) {
		case float64:
			n, ok := common.AsNumber(gotValue)
			require.True(t, ok)
			assert.Equal(t, w, n)
		case []interface{}:
			assert.Equal(t, w, gotValue)
		default:
			assert.Equal(t, wantValue, gotValue)
		}
	}
}

func TestEscapeControlChars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "newline inside string",
			in:   "{\"a\": \"x\ny\"}",
			want: `{"a": "x\ny"}`,
		},
		{
			name: "tab and carriage return inside string",
			in:   "{\"a\": \"x\t\ry\"}",
			want: `{"a": "x\t\ry"}`,
		},
		{
			name: "whitespace outside strings untouched",
			in:   "{\n\t\"a\": \"b\"\n}",
			want: "{\n\t\"a\": \"b\"\n}",
		},
		{
			name: "already escaped sequence not doubled",
			in:   `{"a": "x\ny"}`,
			want: `{"a": "x\ny"}`,
		},
		{
			name: "escaped quote does not end the string",
			in:   "{\"a\": \"he said \\\"hi\n\\\"\"}",
			want: "{\"a\": \"he said \\\"hi\\n\\\"\"}",
		},
		{
			name: "rare control byte becomes unicode escape",
			in:   "{\"a\": \"x\x01y\"}",
			want: `{"a": "x\u0001y"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeControlChars(tt.in))
		})
	}
}

func TestRemoveTrailingCommas(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "object trailing comma",
			in:   `{"a": 1,}`,
			want: `{"a": 1}`,
		},
		{
			name: "array trailing comma with whitespace",
			in:   "[1, 2,\n]",
			want: "[1, 2\n]",
		},
		{
			name: "comma inside string survives",
			in:   `{"a": "one, two,"}`,
			want: `{"a": "one, two,"}`,
		},
		{
			name: "separator commas survive",
			in:   `{"a": 1, "b": 2}`,
			want: `{"a": 1, "b": 2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoveTrailingCommas(tt.in))
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripFences("  {\"a\": 1}  "))
	assert.Equal(t, `{"a": 1}`, StripFences("```{\"a\": 1}"))
}
