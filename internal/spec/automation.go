package spec

import "fmt"

// --- Operation kind enum ---

// OperationKind says what an action or schedule does to its target model.
type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
)

// validOperations is the set of allowed operation kinds.
var validOperations = map[OperationKind]bool{
	OpCreate: true,
	OpUpdate: true,
}

// ValidateOperation returns an error if the kind is not recognized.
func ValidateOperation(op OperationKind) error {
	if !validOperations[op] {
		return fmt.Errorf("invalid operation kind %q: must be one of: create, update", op)
	}
	return nil
}

// --- Automation structures ---

// DataSource describes where an action or schedule reads its inputs:
// either a custom function or a set of model+filter references.
// Exactly one of Custom / Models should be populated.
type DataSource struct {
	Custom *CustomSource `json:"custom,omitempty"`
	Models []ModelSource `json:"models,omitempty"`
}

// CustomSource is a free-form function descriptor.
type CustomSource struct {
	Function string `json:"function"`
	Args     string `json:"args,omitempty"`
}

// ModelSource references one model with an optional filter expression.
type ModelSource struct {
	Model  string `json:"model"`
	Filter string `json:"filter,omitempty"`
}

// Execution describes how an action or schedule runs: a code script or
// a prompt template. Exactly one of Script / Prompt should be populated.
type Execution struct {
	Script string `json:"script,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// Results describes where the output lands. For create operations the
// FieldMapping maps output fields to target model fields; update
// operations additionally name the IdentifierField used to locate the
// record to update.
type Results struct {
	Model           string            `json:"model"`
	IdentifierField string            `json:"identifier_field,omitempty"`
	FieldMapping    map[string]string `json:"field_mapping,omitempty"`
}

// Interval describes a schedule's recurrence.
type Interval struct {
	Pattern  string `json:"pattern"` // cron expression
	Timezone string `json:"timezone,omitempty"`
	Active   bool   `json:"active"`
}

// Action is a user- or event-triggered automation.
type Action struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Operation   OperationKind `json:"operation"`
	Role        string        `json:"role,omitempty"`
	Source      DataSource    `json:"source"`
	Execution   Execution     `json:"execution"`
	Results     Results       `json:"results"`
}

// Schedule is a recurring automation: an action body plus an interval.
type Schedule struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Operation   OperationKind `json:"operation"`
	Role        string        `json:"role,omitempty"`
	Source      DataSource    `json:"source"`
	Execution   Execution     `json:"execution"`
	Results     Results       `json:"results"`
	Interval    Interval      `json:"interval"`
}

// SourceModels returns the model names referenced by a data source.
func (d DataSource) SourceModels() []string {
	var names []string
	for _, m := range d.Models {
		names = append(names, m.Model)
	}
	return names
}

// Clone returns a deep copy of the action.
func (a Action) Clone() Action {
	out := a
	out.Source = a.Source.clone()
	out.Results = a.Results.clone()
	return out
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	out := s
	out.Source = s.Source.clone()
	out.Results = s.Results.clone()
	return out
}

func (d DataSource) clone() DataSource {
	out := d
	if d.Custom != nil {
		c := *d.Custom
		out.Custom = &c
	}
	if d.Models != nil {
		out.Models = make([]ModelSource, len(d.Models))
		copy(out.Models, d.Models)
	}
	return out
}

func (r Results) clone() Results {
	out := r
	if r.FieldMapping != nil {
		out.FieldMapping = make(map[string]string, len(r.FieldMapping))
		for k, v := range r.FieldMapping {
			out.FieldMapping[k] = v
		}
	}
	return out
}
