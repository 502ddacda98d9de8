package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fuabioo/studyspec/internal/jsontree"
)

func parse(t *testing.T, s string) *jsontree.Node {
	t.Helper()
	n, err := jsontree.ParseString(s)
	require.NoError(t, err)
	return n
}

func TestPruneDropsUnknownKeys(t *testing.T) {
	template := parse(t, `{"a":1,"b":{"c":2}}`)
	input := parse(t, `{"a":9,"b":{"c":8,"d":99},"z":100}`)

	got := Prune(input, template)
	assert.Equal(t, `{"a":9,"b":{"c":8}}`, got.String())
}

func TestPrune(t *testing.T) {
	template := `{"name":"","list":[{"id":1}],"nested":{"flag":true,"n":0},"id":null}`
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "missing keys take defaults",
			input: `{}`,
			want:  `{"name":"","list":[{"id":1}],"nested":{"flag":true,"n":0},"id":null}`,
		},
		{
			name:  "array replaced wholesale without item pruning",
			input: `{"list":[{"id":5,"extra":true},{}]}`,
			want:  `{"name":"","list":[{"id":5,"extra":true},{}],"nested":{"flag":true,"n":0},"id":null}`,
		},
		{
			name:  "empty array input is kept",
			input: `{"list":[]}`,
			want:  `{"name":"","list":[],"nested":{"flag":true,"n":0},"id":null}`,
		},
		{
			name:  "non-array at array slot keeps template array",
			input: `{"list":{"id":5}}`,
			want:  `{"name":"","list":[{"id":1}],"nested":{"flag":true,"n":0},"id":null}`,
		},
		{
			name:  "non-object at object slot prunes as empty",
			input: `{"nested":"oops"}`,
			want:  `{"name":"","list":[{"id":1}],"nested":{"flag":true,"n":0},"id":null}`,
		},
		{
			name:  "primitive type drift accepted",
			input: `{"name":42,"nested":{"n":"ten"},"id":7}`,
			want:  `{"name":42,"list":[{"id":1}],"nested":{"flag":true,"n":"ten"},"id":7}`,
		},
		{
			name:  "explicit null replaces primitive",
			input: `{"name":null}`,
			want:  `{"name":null,"list":[{"id":1}],"nested":{"flag":true,"n":0},"id":null}`,
		},
		{
			name:  "container at primitive slot keeps default",
			input: `{"name":{"first":"x"},"id":[1]}`,
			want:  `{"name":"","list":[{"id":1}],"nested":{"flag":true,"n":0},"id":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prune(parse(t, tt.input), parse(t, template))
			assert.True(t, jsontree.Equal(parse(t, tt.want), got), "got %s", got)
		})
	}
}

func TestPruneDoesNotAlias(t *testing.T) {
	template := parse(t, `{"list":[1],"o":{"x":1}}`)
	input := parse(t, `{"list":[2],"o":{"x":2}}`)

	got := Prune(input, template)
	require.NoError(t, jsontree.Set(got, jsontree.ParsePath("list.0"), jsontree.Int(99), jsontree.Strict))
	require.NoError(t, jsontree.Set(got, jsontree.ParsePath("o.x"), jsontree.Int(99), jsontree.Strict))

	assert.Equal(t, `{"list":[2],"o":{"x":2}}`, input.String())
	assert.Equal(t, `{"list":[1],"o":{"x":1}}`, template.String())
}

func TestMerge(t *testing.T) {
	template := parse(t, `{"a":1,"arr":[1,2],"o":{"x":1,"y":2}}`)

	tests := []struct {
		name  string
		patch string
		want  string
	}{
		{"objects merge recursively", `{"o":{"y":3}}`, `{"a":1,"arr":[1,2],"o":{"x":1,"y":3}}`},
		{"arrays replaced", `{"arr":[9]}`, `{"a":1,"arr":[9],"o":{"x":1,"y":2}}`},
		{"non-array keeps array", `{"arr":"x"}`, `{"a":1,"arr":[1,2],"o":{"x":1,"y":2}}`},
		{"primitive overwrite across kinds", `{"a":"one"}`, `{"a":"one","arr":[1,2],"o":{"x":1,"y":2}}`},
		{"non-object patch keeps template", `[1]`, `{"a":1,"arr":[1,2],"o":{"x":1,"y":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(template, parse(t, tt.patch))
			assert.True(t, jsontree.Equal(parse(t, tt.want), got), "got %s", got)
		})
	}
	assert.Equal(t, `{"a":1,"arr":[1,2],"o":{"x":1,"y":2}}`, template.String(), "template untouched")
}

func TestAdoptKeepsTemplateShape(t *testing.T) {
	template := parse(t, `{"name":"","settings":{"list":[],"n":0,"inner":{"k":"v"}},"items":[{"a":1}]}`)
	input := parse(t, `{"name":"S","settings":{"list":{"bad":1},"n":[3],"inner":7,"zzz":1},"items":"none","extra":{}}`)

	got, err := Adopt(input, template)
	require.NoError(t, err)

	assert.Equal(t, template.Keys(), got.Keys())
	assert.Equal(t, `{"name":"S","settings":{"list":[],"n":0,"inner":{"k":"v"}},"items":[{"a":1}]}`, got.String())

	// Every container in the result has the template's kind at the same path.
	for _, l := range jsontree.Flatten(template) {
		assert.Equal(t, l.Value.IsContainer(), lookup(got, l.Path).IsContainer(), "path %s", l.Path)
	}
}

func lookup(n *jsontree.Node, p jsontree.Path) *jsontree.Node {
	for _, s := range p {
		if s.IsIndex() {
			n = n.At(s.Index())
		} else {
			n = n.Field(s.Key())
		}
	}
	return n
}

func TestAdoptRejectsNonObject(t *testing.T) {
	template := parse(t, `{"a":1}`)
	for _, doc := range []string{`[1]`, `"x"`, `3`, `null`} {
		got, err := Adopt(parse(t, doc), template)
		assert.ErrorIs(t, err, jsontree.ErrValidation, doc)
		assert.Nil(t, got)
	}
}

func TestAdoptText(t *testing.T) {
	template := parse(t, `{"a":1,"b":{"c":2}}`)

	got, err := AdoptText(` {"a":5,"q":1} `, template)
	require.NoError(t, err)
	assert.Equal(t, `{"a":5,"b":{"c":2}}`, got.String())

	for _, text := range []string{"", "   ", "not json", `{"a":`, `[1,2]`} {
		got, err := AdoptText(text, template)
		assert.ErrorIs(t, err, jsontree.ErrValidation, text)
		assert.Nil(t, got)
	}
}
