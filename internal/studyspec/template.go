// Package studyspec holds the canonical analysis specification template and
// domain checks on specification trees.
package studyspec

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/Fuabioo/studyspec/internal/jsontree"
)

//go:embed default.json
var defaultJSON []byte

// DateLayout is the yyyyMMdd format used for study period dates.
const DateLayout = "20060102"

var (
	startDatePath = jsontree.ParsePath("getDbCohortMethodDataArgs.studyPeriods.0.studyStartDate")
	endDatePath   = jsontree.ParsePath("getDbCohortMethodDataArgs.studyPeriods.0.studyEndDate")
)

// Template returns a fresh copy of the default specification. The first
// study period runs from January 1 of now's year through now.
func Template(now time.Time) *jsontree.Node {
	n, err := jsontree.Parse(defaultJSON)
	if err != nil {
		panic(fmt.Sprintf("studyspec: embedded template: %v", err))
	}
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	// The embedded document always has these slots.
	_ = jsontree.Set(n, startDatePath, jsontree.String(start.Format(DateLayout)), jsontree.Strict)
	_ = jsontree.Set(n, endDatePath, jsontree.String(now.Format(DateLayout)), jsontree.Strict)
	return n
}

// LoadTemplate reads a replacement template from path. The document must be
// a JSON object.
func LoadTemplate(path string) (*jsontree.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("studyspec: read template: %w", err)
	}
	n, err := jsontree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("studyspec: template %s: %w", path, err)
	}
	if err := jsontree.RequireObject(n, "load template"); err != nil {
		return nil, fmt.Errorf("studyspec: template %s: %w", path, err)
	}
	return n, nil
}
