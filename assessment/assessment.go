// Package assessment generates stateless interview templates for building a
// compliance posture. An agent asks the questions, normalizes answers to the
// option values, and records the results through the documentation tools;
// nothing here touches persisted state.
package assessment

import (
	"context"
	"fmt"

	"github.com/compliance-oracle/sdk/framework"
	"github.com/compliance-oracle/sdk/state"
)

// AnswerType is the kind of answer a question expects.
type AnswerType string

const (
	AnswerYesNo    AnswerType = "yes_no"
	AnswerChoice   AnswerType = "choice"
	AnswerFreeText AnswerType = "free_text"
)

// AnswerOption is one selectable answer for a choice question. When
// MapsToStatus is set, selecting the option should record that status for
// the question's controls.
type AnswerOption struct {
	Value        string               `json:"value"`
	Label        string               `json:"label"`
	MapsToStatus *state.ControlStatus `json:"maps_to_status,omitempty"`
}

// Question is one interview question covering one or more controls.
type Question struct {
	ID            string         `json:"id"`
	FrameworkID   string         `json:"framework_id"`
	ControlIDs    []string       `json:"control_ids"`
	Text          string         `json:"text"`
	AnswerType    AnswerType     `json:"answer_type"`
	AnswerOptions []AnswerOption `json:"answer_options,omitempty"`
}

// Scope names the breadth of a template.
type Scope string

const (
	ScopeFramework Scope = "framework"
	ScopeFunction  Scope = "function"
	ScopeCategory  Scope = "category"
	ScopeControl   Scope = "control"
)

// Template is a generated set of questions for one assessment scope.
type Template struct {
	FrameworkID string     `json:"framework_id"`
	Scope       Scope      `json:"scope"`
	FunctionID  string     `json:"function_id,omitempty"`
	CategoryID  string     `json:"category_id,omitempty"`
	ControlIDs  []string   `json:"control_ids"`
	Questions   []Question `json:"questions"`
}

// Request narrows the controls a template covers. The most specific field
// wins when naming the scope: control, then category, then function, then
// the whole framework.
type Request struct {
	FrameworkID string
	FunctionID  string
	CategoryID  string
	ControlID   string
}

// CatalogSource lists controls for scoping.
type CatalogSource interface {
	ListControls(ctx context.Context, frameworkID string, opts framework.ListOptions) ([]framework.Control, error)
}

// Generator builds assessment templates from framework catalogs.
type Generator struct {
	catalogs CatalogSource
}

// NewGenerator creates a template generator.
func NewGenerator(catalogs CatalogSource) *Generator {
	return &Generator{catalogs: catalogs}
}

// statusOptions are the canonical answers for a status question, one per
// control status.
func statusOptions() []AnswerOption {
	statuses := state.AllControlStatuses()
	opts := make([]AnswerOption, 0, len(statuses))
	for _, s := range statuses {
		status := s
		label := s.DisplayName()
		if s == state.StatusPartial {
			label = "Partially implemented"
		}
		opts = append(opts, AnswerOption{
			Value:        s.String(),
			Label:        label,
			MapsToStatus: &status,
		})
	}
	return opts
}

// Generate builds a template with one status question per control in scope.
// An unknown framework or empty scope yields a template with no questions.
func (g *Generator) Generate(ctx context.Context, req Request) (*Template, error) {
	controls, err := g.catalogs.ListControls(ctx, req.FrameworkID, framework.ListOptions{
		FunctionID: req.FunctionID,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return nil, err
	}

	if req.ControlID != "" {
		filtered := controls[:0]
		for _, c := range controls {
			if c.ID == req.ControlID {
				filtered = append(filtered, c)
			}
		}
		controls = filtered
	}

	controlIDs := make([]string, 0, len(controls))
	questions := make([]Question, 0, len(controls))
	for _, ctrl := range controls {
		controlIDs = append(controlIDs, ctrl.ID)
		questions = append(questions, Question{
			ID:          ctrl.ID + "-status",
			FrameworkID: req.FrameworkID,
			ControlIDs:  []string{ctrl.ID},
			Text: fmt.Sprintf(
				"For control %s (%s), how would you rate its implementation in your environment?",
				ctrl.ID, ctrl.Name),
			AnswerType:    AnswerChoice,
			AnswerOptions: statusOptions(),
		})
	}

	scope := ScopeFramework
	switch {
	case req.ControlID != "":
		scope = ScopeControl
	case req.CategoryID != "":
		scope = ScopeCategory
	case req.FunctionID != "":
		scope = ScopeFunction
	}

	return &Template{
		FrameworkID: req.FrameworkID,
		Scope:       scope,
		FunctionID:  req.FunctionID,
		CategoryID:  req.CategoryID,
		ControlIDs:  controlIDs,
		Questions:   questions,
	}, nil
}
