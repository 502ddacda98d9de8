// Package llm is the boundary to the external language-model text service.
// The service is an opaque command: it reads one JSON Request on stdin and
// writes free-form text on stdout.
package llm

import (
	"github.com/Fuabioo/studyspec/internal/jsontree"
)

// Task names what the service is asked to do.
type Task string

const (
	// TaskText2Spec turns a free-text study description into an updated
	// specification followed by a "---" line and a prose description.
	TaskText2Spec Task = "text2spec"
	// TaskSpec2Script turns a specification into an analysis script.
	TaskSpec2Script Task = "spec2script"
)

// Request is written to the service's stdin as a single JSON document.
type Request struct {
	Task    Task           `json:"task"`
	Text    string         `json:"text,omitempty"`
	Current *jsontree.Node `json:"current,omitempty"`
	Spec    *jsontree.Node `json:"spec,omitempty"`
}
