package studyspec

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Fuabioo/studyspec/internal/jsontree"
	"github.com/Fuabioo/studyspec/internal/titles"
)

// Issue is one finding of Check.
type Issue struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

var (
	anchors     = []string{"cohort start", "cohort end"}
	cvTypes     = []string{"auto", "grid"}
	noiseLevels = []string{"silent", "quiet", "noisy"}
	priorTypes  = []string{"laplace"}
)

// enums lists the allowed values of enumerated fields, keyed by path
// pattern with "*" for array indices.
var enums = map[string][]string{
	"createStudyPopArgs.removeDuplicateSubjects":                 {"keep all", "keep first", "remove all"},
	"createStudyPopArgs.timeAtRisks.*.startAnchor":               anchors,
	"createStudyPopArgs.timeAtRisks.*.endAnchor":                 anchors,
	"propensityScoreAdjustment.matchOnPsArgs.*.caliperScale":     {"propensity score", "standardized", "standardized logit"},
	"propensityScoreAdjustment.stratifyByPsArgs.*.baseSelection": {"all", "target", "comparator"},
	"propensityScoreAdjustment.createPsArgs.prior.priorType":     priorTypes,
	"propensityScoreAdjustment.createPsArgs.control.cvType":      cvTypes,
	"propensityScoreAdjustment.createPsArgs.control.noiseLevel":  noiseLevels,
	"fitOutcomeModelArgs.modelType":                              {"logistic", "poisson", "cox"},
	"fitOutcomeModelArgs.prior.priorType":                        priorTypes,
	"fitOutcomeModelArgs.control.cvType":                         cvTypes,
	"fitOutcomeModelArgs.control.noiseLevel":                     noiseLevels,
}

var dates = map[string]bool{
	"getDbCohortMethodDataArgs.studyPeriods.*.studyStartDate": true,
	"getDbCohortMethodDataArgs.studyPeriods.*.studyEndDate":   true,
}

// leafKinds maps each leaf pattern of the default template to its kind.
var leafKinds = func() map[string]jsontree.Kind {
	out := map[string]jsontree.Kind{}
	for _, l := range jsontree.Flatten(Template(time.Time{})) {
		out[pattern(l.Path)] = l.Value.Kind()
	}
	return out
}()

// Check reports enumerated fields holding unknown values, malformed or
// reversed study period dates, and leaves whose kind differs from the
// template's. Issues never block a merge; they are informational. r may be
// nil.
func Check(n *jsontree.Node, r *titles.Resolver) []Issue {
	if err := jsontree.RequireObject(n, "check"); err != nil {
		return []Issue{{Title: titles.RootLabel, Message: err.Error()}}
	}

	var issues []Issue
	add := func(p jsontree.Path, format string, args ...any) {
		key := p.String()
		issues = append(issues, Issue{Path: key, Title: r.Label(key), Message: fmt.Sprintf(format, args...)})
	}

	for _, l := range jsontree.Flatten(n) {
		pat := pattern(l.Path)
		v := l.Value
		switch {
		case enums[pat] != nil:
			allowed := enums[pat]
			if v.Kind() != jsontree.KindString || !slices.Contains(allowed, v.Text()) {
				add(l.Path, "must be one of %s, got %s", quoteAll(allowed), v)
			}
		case dates[pat]:
			if _, ok := parseDate(v); !ok {
				add(l.Path, "must be a yyyyMMdd date, got %s", v)
			}
		default:
			want, ok := leafKinds[pat]
			if !ok {
				continue
			}
			if want == jsontree.KindNull {
				// Unset ids: a number or null.
				if v.Kind() != jsontree.KindNull && v.Kind() != jsontree.KindNumber {
					add(l.Path, "must be a number or null, got %s", v.Kind())
				}
				continue
			}
			if v.Kind() != want {
				add(l.Path, "must be a %s, got %s", want, v.Kind())
			}
		}
	}

	periods := n.Field("getDbCohortMethodDataArgs").Field("studyPeriods")
	for i, p := range periods.Items() {
		start, ok1 := parseDate(p.Field("studyStartDate"))
		end, ok2 := parseDate(p.Field("studyEndDate"))
		if ok1 && ok2 && start.After(end) {
			add(jsontree.ParsePath("getDbCohortMethodDataArgs.studyPeriods").Child(jsontree.Index(i)),
				"study start date %s is after end date %s", start.Format(DateLayout), end.Format(DateLayout))
		}
	}
	return issues
}

func parseDate(v *jsontree.Node) (time.Time, bool) {
	if v.Kind() != jsontree.KindString || len(v.Text()) != len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v.Text())
	return t, err == nil
}

// pattern replaces the index segments of p with "*".
func pattern(p jsontree.Path) string {
	parts := make([]string, len(p))
	for i, s := range p {
		if s.IsIndex() {
			parts[i] = "*"
			continue
		}
		parts[i] = s.Key()
	}
	return strings.Join(parts, ".")
}

func quoteAll(values []string) string {
	q := make([]string, len(values))
	for i, v := range values {
		q[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(q, ", ")
}
