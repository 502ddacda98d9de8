package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // compact JSON; empty means nil
	}{
		{
			name: "fenced inside prose",
			in:   "Here is the result:\n```json\n{\"a\":1}\n```\nThanks",
			want: `{"a":1}`,
		},
		{
			name: "bare object",
			in:   `{"a":{"b":[1,2]}}`,
			want: `{"a":{"b":[1,2]}}`,
		},
		{
			name: "fence only",
			in:   "```json\n[1,2,3]\n```",
			want: `[1,2,3]`,
		},
		{
			name: "braces inside strings",
			in:   `Result: {"s":"a } b { c","t":"q\"}"} trailing`,
			want: `{"s":"a } b { c","t":"q\"}"}`,
		},
		{
			name: "first of two values",
			in:   `{"first":true} and {"second":true}`,
			want: `{"first":true}`,
		},
		{
			name: "array root after prose",
			in:   "values: [1, {\"x\": null}] done",
			want: `[1,{"x":null}]`,
		},
		{
			name: "no json",
			in:   "no json here",
		},
		{
			name: "empty",
			in:   "   ",
		},
		{
			name: "unbalanced",
			in:   `{"a":1`,
		},
		{
			name: "mismatched close",
			in:   `{"a":1] text`,
		},
		{
			name: "falls back to brace slice",
			in:   `[oops {"a":1}`,
			want: `{"a":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JSON(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFirstBalanced(t *testing.T) {
	got, ok := FirstBalanced(`xx {"a":"\\"} yy`)
	require.True(t, ok)
	assert.Equal(t, `{"a":"\\"}`, got)

	_, ok = FirstBalanced("nothing")
	assert.False(t, ok)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("  ```\n{\"a\":1}```  "))
	assert.Equal(t, "plain", StripFences("plain"))
}

func TestSplitResponse(t *testing.T) {
	in := "```json\n{\"name\":\"Study B\",\"n\":{\"maxCohortSize\":500}}\n```\n---\nChanged name and size. "
	spec, desc := SplitResponse(in)
	assert.Equal(t, `{"name":"Study B","n":{"maxCohortSize":500}}`, spec)
	assert.Equal(t, "Changed name and size.", desc)
}

func TestSplitResponseIgnoresInlineDashes(t *testing.T) {
	in := "{\"note\":\"a---b\"}\n  ---  \nfirst\n---\nsecond"
	spec, desc := SplitResponse(in)
	assert.Equal(t, `{"note":"a---b"}`, spec)
	assert.Equal(t, "first\n---\nsecond", desc)
}

func TestSplitResponseWithoutDelimiter(t *testing.T) {
	spec, desc := SplitResponse("```\n{\"a\":1}\n```")
	assert.Equal(t, `{"a":1}`, spec)
	assert.Empty(t, desc)
}
