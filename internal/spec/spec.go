// Package spec defines the specification document model: the root
// Specification and its three owned collections (Models, Actions,
// Schedules).
//
// The document is what the generation pipeline produces and the merge
// engine reconciles. Design principles mirror the rest of the codebase:
// - SRP: document types, model types, and automation types in separate files
// - plain data + small pure helpers; no I/O in this package
package spec

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeNow is a package-level variable for testability.
// Tests can replace this to control timestamps in assertions.
var timeNow = time.Now

// Specification is the root document describing the generated system:
// its data models, automated actions, and schedules.
type Specification struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Domain      string            `json:"domain,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Models      []Model           `json:"models"`
	Actions     []Action          `json:"actions"`
	Schedules   []Schedule        `json:"schedules"`
}

// NewSpecification creates an empty specification with a fresh UUID
// and creation timestamps.
func NewSpecification(name, description, domain string) *Specification {
	now := timeNow().UTC().Format(time.RFC3339)
	return &Specification{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Domain:      domain,
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata:    map[string]string{},
	}
}

// Touch refreshes the update timestamp.
func (s *Specification) Touch() {
	s.UpdatedAt = timeNow().UTC().Format(time.RFC3339)
}

// FindModel returns the model with the given name (case-insensitive),
// or nil if absent.
func (s *Specification) FindModel(name string) *Model {
	for i := range s.Models {
		if strings.EqualFold(s.Models[i].Name, name) {
			return &s.Models[i]
		}
	}
	return nil
}

// FindAction returns the action with the given name (case-insensitive),
// or nil if absent.
func (s *Specification) FindAction(name string) *Action {
	for i := range s.Actions {
		if strings.EqualFold(s.Actions[i].Name, name) {
			return &s.Actions[i]
		}
	}
	return nil
}

// FindSchedule returns the schedule with the given name (case-insensitive),
// or nil if absent.
func (s *Specification) FindSchedule(name string) *Schedule {
	for i := range s.Schedules {
		if strings.EqualFold(s.Schedules[i].Name, name) {
			return &s.Schedules[i]
		}
	}
	return nil
}

// ModelNames returns the names of all models, in document order.
func (s *Specification) ModelNames() []string {
	names := make([]string, len(s.Models))
	for i, m := range s.Models {
		names[i] = m.Name
	}
	return names
}

// Clone returns a deep copy of the specification. The merge engine
// operates on copies so callers' documents are never mutated.
func (s *Specification) Clone() *Specification {
	if s == nil {
		return nil
	}
	out := *s
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	out.Models = make([]Model, len(s.Models))
	for i, m := range s.Models {
		out.Models[i] = m.Clone()
	}
	out.Actions = make([]Action, len(s.Actions))
	for i, a := range s.Actions {
		out.Actions[i] = a.Clone()
	}
	out.Schedules = make([]Schedule, len(s.Schedules))
	for i, sc := range s.Schedules {
		out.Schedules[i] = sc.Clone()
	}
	return &out
}
