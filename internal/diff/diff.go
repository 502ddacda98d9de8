// Package diff computes field-level differences between two JSON trees and
// applies a per-field selection of old or new values.
package diff

import (
	"cmp"
	"slices"

	"github.com/Fuabioo/studyspec/internal/jsontree"
)

// Row is one leaf path with its value in each tree. A nil Old or New means
// the path does not exist in that tree.
type Row struct {
	Path      jsontree.Path
	Old       *jsontree.Node
	New       *jsontree.Node
	Different bool
}

// Key returns the dot-notation path used to address choices.
func (r Row) Key() string { return r.Path.String() }

// Compute flattens both trees and returns one row per path in the union of
// their leaf paths, sorted by dot-notation path. Inputs are not modified.
func Compute(oldTree, newTree *jsontree.Node) []Row {
	oldLeaves := jsontree.Flatten(oldTree)
	newLeaves := jsontree.Flatten(newTree)

	byID := make(map[string]*Row, len(oldLeaves)+len(newLeaves))
	rows := make([]*Row, 0, len(oldLeaves)+len(newLeaves))
	for _, l := range oldLeaves {
		r := &Row{Path: l.Path, Old: l.Value}
		byID[l.Path.ID()] = r
		rows = append(rows, r)
	}
	for _, l := range newLeaves {
		if r, ok := byID[l.Path.ID()]; ok {
			r.New = l.Value
			continue
		}
		r := &Row{Path: l.Path, New: l.Value}
		byID[l.Path.ID()] = r
		rows = append(rows, r)
	}

	out := make([]Row, len(rows))
	for i, r := range rows {
		r.Different = !jsontree.Equal(r.Old, r.New)
		out[i] = *r
	}
	slices.SortFunc(out, func(a, b Row) int {
		if c := cmp.Compare(a.Key(), b.Key()); c != 0 {
			return c
		}
		return cmp.Compare(a.Path.ID(), b.Path.ID())
	})
	return out
}

// OnlyDifferent returns the rows whose values differ.
func OnlyDifferent(rows []Row) []Row {
	var out []Row
	for _, r := range rows {
		if r.Different {
			out = append(out, r)
		}
	}
	return out
}

// Summary counts rows for reporting.
type Summary struct {
	Total     int
	Different int
	TakeNew   int
}

// Summarize counts rows and how many of them take the new value.
func Summarize(rows []Row, choices Choices) Summary {
	s := Summary{Total: len(rows)}
	for _, r := range rows {
		if r.Different {
			s.Different++
		}
		if choices.For(r) == New {
			s.TakeNew++
		}
	}
	return s
}
