package diff

import (
	"fmt"

	"github.com/Fuabioo/studyspec/internal/jsontree"
)

// Choice selects which side of a row ends up in the merged tree.
type Choice string

const (
	Old Choice = "old"
	New Choice = "new"
)

// ParseChoice accepts "old" or "new".
func ParseChoice(s string) (Choice, error) {
	switch Choice(s) {
	case Old, New:
		return Choice(s), nil
	}
	return "", fmt.Errorf("diff: invalid choice %q (want %q or %q)", s, Old, New)
}

// Choices maps dot-notation paths to a Choice. Paths without an entry use
// the default: New when the row differs, Old otherwise.
type Choices map[string]Choice

// For returns the effective choice for r.
func (c Choices) For(r Row) Choice {
	if ch, ok := c[r.Key()]; ok {
		return ch
	}
	return defaultChoice(r)
}

func defaultChoice(r Row) Choice {
	if r.Different {
		return New
	}
	return Old
}

// Defaults returns the default choice for every row.
func Defaults(rows []Row) Choices {
	out := make(Choices, len(rows))
	for _, r := range rows {
		out[r.Key()] = defaultChoice(r)
	}
	return out
}

// All returns a selection that picks ch for every row.
func All(rows []Row, ch Choice) Choices {
	out := make(Choices, len(rows))
	for _, r := range rows {
		out[r.Key()] = ch
	}
	return out
}

// Options tune Apply.
type Options struct {
	Mode jsontree.SetMode
}

// Skipped is a row that was chosen as new but could not be written.
type Skipped struct {
	Row Row
	Err error
}

// Apply returns a copy of oldTree with the new value written at every row
// whose choice is New. Rows choosing Old, and rows whose new value is
// absent, leave the copy as is. Rows that hit a container-kind conflict are
// reported in the skipped list and do not stop the merge.
//
// oldTree must be an object; anything else is a ValidationError and no
// tree is returned.
func Apply(oldTree *jsontree.Node, rows []Row, choices Choices, opts Options) (*jsontree.Node, []Skipped, error) {
	if err := jsontree.RequireObject(oldTree, "apply merge"); err != nil {
		return nil, nil, err
	}

	base := oldTree.Clone()
	var skipped []Skipped
	for _, r := range rows {
		if choices.For(r) != New || r.New == nil {
			continue
		}
		if err := jsontree.Set(base, r.Path, r.New.Clone(), opts.Mode); err != nil {
			skipped = append(skipped, Skipped{Row: r, Err: err})
		}
	}
	return base, skipped, nil
}
