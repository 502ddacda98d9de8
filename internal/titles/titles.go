// Package titles maps dot-notation leaf paths to human-readable labels for
// diff rows.
package titles

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RootLabel is shown for the empty path.
const RootLabel = "<root>"

// Rule maps a path pattern to a title. A "*" in Pattern matches one array
// index. Title may reference the captured indices as {1}, {2}, ... which are
// rendered as 1-based ordinals, so "Outcome #{1}" reads "Outcome #1" for
// index 0.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Title   string `yaml:"title"`
}

type wildcard struct {
	re    *regexp.Regexp
	title string
}

// Resolver looks up titles. Exact patterns win over wildcards; among
// wildcards the first listed rule wins.
type Resolver struct {
	exact map[string]string
	wild  []wildcard
}

var placeholderRe = regexp.MustCompile(`\{(\d+)\}`)

// New compiles rules in order.
func New(rules []Rule) (*Resolver, error) {
	r := &Resolver{exact: make(map[string]string, len(rules))}
	for i, rule := range rules {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("titles: rule %d: empty pattern", i)
		}
		if rule.Title == "" {
			return nil, fmt.Errorf("titles: rule %d (%s): empty title", i, rule.Pattern)
		}
		stars := strings.Count(rule.Pattern, "*")
		for _, m := range placeholderRe.FindAllStringSubmatch(rule.Title, -1) {
			n, _ := strconv.Atoi(m[1])
			if n < 1 || n > stars {
				return nil, fmt.Errorf("titles: rule %d (%s): placeholder {%d} has no matching *", i, rule.Pattern, n)
			}
		}

		if _, dup := r.exact[rule.Pattern]; !dup {
			r.exact[rule.Pattern] = rule.Title
		}
		if stars > 0 {
			r.wild = append(r.wild, wildcard{re: compilePattern(rule.Pattern), title: rule.Title})
		}
	}
	return r, nil
}

// Default returns a resolver over StudyRules.
func Default() *Resolver {
	r, err := New(StudyRules())
	if err != nil {
		panic(err)
	}
	return r
}

func compilePattern(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, `(\d+)`) + "$")
}

// Title returns the label for path, or path itself when no rule matches.
func (r *Resolver) Title(path string) string {
	if r == nil {
		return path
	}
	if t, ok := r.exact[path]; ok {
		return render(t, nil)
	}
	for _, w := range r.wild {
		m := w.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		idx := make([]int, 0, len(m)-1)
		for _, s := range m[1:] {
			n, err := strconv.Atoi(s)
			if err != nil {
				break
			}
			idx = append(idx, n)
		}
		return render(w.title, idx)
	}
	return path
}

// Label is Title with the empty path shown as RootLabel.
func (r *Resolver) Label(path string) string {
	if path == "" {
		return RootLabel
	}
	return r.Title(path)
}

// render substitutes {n} with the 1-based ordinal of the n-th captured
// index. Placeholders without a capture are left as written.
func render(title string, indices []int) string {
	if !strings.Contains(title, "{") {
		return title
	}
	return placeholderRe.ReplaceAllStringFunc(title, func(ph string) string {
		n, _ := strconv.Atoi(ph[1 : len(ph)-1])
		if n < 1 || n > len(indices) {
			return ph
		}
		return strconv.Itoa(indices[n-1] + 1)
	})
}
