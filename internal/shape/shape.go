// Package shape adopts an arbitrary JSON object onto a canonical template:
// keys the template does not know are dropped and the result always has the
// template's key set and container kinds.
package shape

import (
	"strings"

	"github.com/Fuabioo/studyspec/internal/jsontree"
)

// Prune returns a copy of input restricted to the keys of template, recursively.
//
// An array slot takes input's array unchanged when input supplies one and the
// template's array otherwise. An object slot recurses with whatever input has
// under the same key; a non-object input counts as an empty object. A
// primitive slot takes input's value when present and not a container, and
// the template default otherwise.
//
// Neither argument is modified; the result shares no nodes with them.
func Prune(input, template *jsontree.Node) *jsontree.Node {
	switch template.Kind() {
	case jsontree.KindArray:
		if input.Kind() == jsontree.KindArray {
			return input.Clone()
		}
		return template.Clone()
	case jsontree.KindObject:
		out := jsontree.Object()
		var src *jsontree.Node
		if input.Kind() == jsontree.KindObject {
			src = input
		}
		for _, k := range template.Keys() {
			out.Put(k, Prune(src.Field(k), template.Field(k)))
		}
		return out
	default:
		if input == nil || input.IsContainer() {
			return template.Clone()
		}
		return input.Clone()
	}
}

// Merge deep-merges patch onto a clone of template. Objects merge key by key,
// arrays are replaced wholesale when patch supplies an array, and primitives
// are overwritten. Keys of patch that template lacks are merged in as is, so
// callers adopting untrusted input Prune it first.
func Merge(template, patch *jsontree.Node) *jsontree.Node {
	switch template.Kind() {
	case jsontree.KindArray:
		if patch.Kind() == jsontree.KindArray {
			return patch.Clone()
		}
		return template.Clone()
	case jsontree.KindObject:
		out := template.Clone()
		if patch.Kind() != jsontree.KindObject {
			return out
		}
		for _, k := range patch.Keys() {
			base := template.Field(k)
			if base == nil {
				out.Put(k, patch.Field(k).Clone())
				continue
			}
			out.Put(k, Merge(base, patch.Field(k)))
		}
		return out
	default:
		if patch == nil || patch.IsContainer() {
			return template.Clone()
		}
		return patch.Clone()
	}
}

// Adopt prunes input against template and merges the result onto a fresh
// copy of template. input must be an object; otherwise a ValidationError is
// returned and nothing is produced.
func Adopt(input, template *jsontree.Node) (*jsontree.Node, error) {
	if err := jsontree.RequireObject(input, "adopt spec"); err != nil {
		return nil, err
	}
	if err := jsontree.RequireObject(template, "adopt spec"); err != nil {
		return nil, err
	}
	return Merge(template, Prune(input, template)), nil
}

// AdoptText parses text as a single JSON document and adopts it. Empty or
// invalid text is a ValidationError.
func AdoptText(text string, template *jsontree.Node) (*jsontree.Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &jsontree.ValidationError{Op: "adopt spec", Reason: "empty spec"}
	}
	n, err := jsontree.ParseString(text)
	if err != nil {
		return nil, &jsontree.ValidationError{Op: "adopt spec", Reason: "invalid JSON", Err: err}
	}
	return Adopt(n, template)
}
