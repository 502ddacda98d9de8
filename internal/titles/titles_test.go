package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTitles(t *testing.T) {
	r := Default()
	tests := []struct {
		path string
		want string
	}{
		{"name", "Study Name"},
		{"cohortDefinitions.targetCohort.name", "Target Cohort Name"},
		{"cohortDefinitions.outcomeCohort.0.name", "Outcome Cohort #1 Name"},
		{"cohortDefinitions.outcomeCohort.11.id", "Outcome Cohort #12 ID"},
		{"createStudyPopArgs.timeAtRisks.2.endAnchor", "Time-at-Risk #3 End Anchor"},
		{"propensityScoreAdjustment.matchOnPsArgs.0.caliperScale", "Match on PS #1 Caliper Scale"},
		{"getDbCohortMethodDataArgs.studyPeriods.0.studyEndDate", "Study Period #1 End Date"},
		// no rule: raw path
		{"unknown.field", "unknown.field"},
		// "*" only matches digits
		{"cohortDefinitions.outcomeCohort.x.name", "cohortDefinitions.outcomeCohort.x.name"},
		// anchored at both ends
		{"cohortDefinitions.outcomeCohort.0.name.extra", "cohortDefinitions.outcomeCohort.0.name.extra"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Title(tt.path))
		})
	}
}

func TestFirstRuleWins(t *testing.T) {
	r, err := New([]Rule{
		{Pattern: "items.*.name", Title: "Custom #{1}"},
		{Pattern: "items.*.name", Title: "Shadowed #{1}"},
		{Pattern: "items.*.*", Title: "Item {1} field {2}"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Custom #4", r.Title("items.3.name"))
	assert.Equal(t, "Item 1 field 2", r.Title("items.0.1"))
}

func TestExactBeforeWildcard(t *testing.T) {
	r, err := New([]Rule{
		{Pattern: "a.*", Title: "Any A #{1}"},
		{Pattern: "a.0", Title: "First A"},
	})
	require.NoError(t, err)
	assert.Equal(t, "First A", r.Title("a.0"))
	assert.Equal(t, "Any A #2", r.Title("a.1"))
}

func TestRegexMetacharactersAreLiteral(t *testing.T) {
	r, err := New([]Rule{{Pattern: "a+b.(c).*", Title: "Odd {1}"}})
	require.NoError(t, err)
	assert.Equal(t, "Odd 1", r.Title("a+b.(c).0"))
	assert.Equal(t, "aab.c.0", r.Title("aab.c.0"))
}

func TestNewRejectsBadRules(t *testing.T) {
	for _, rules := range [][]Rule{
		{{Pattern: "", Title: "x"}},
		{{Pattern: "a", Title: ""}},
		{{Pattern: "a.*", Title: "A {2}"}},
		{{Pattern: "a", Title: "A {1}"}},
	} {
		_, err := New(rules)
		assert.Error(t, err, "%+v", rules)
	}
}

func TestLabel(t *testing.T) {
	r := Default()
	assert.Equal(t, RootLabel, r.Label(""))
	assert.Equal(t, "Study Name", r.Label("name"))

	var nilResolver *Resolver
	assert.Equal(t, "name", nilResolver.Title("name"))
}

func TestStudyRulesIsACopy(t *testing.T) {
	rules := StudyRules()
	rules[0].Title = "changed"
	assert.Equal(t, "Study Name", Default().Title("name"))
}
