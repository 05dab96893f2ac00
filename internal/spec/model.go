package spec

import (
	"fmt"
	"strings"
)

// --- Field kind enum ---

// FieldKind categorizes what a field holds.
type FieldKind string

const (
	KindScalar FieldKind = "scalar" // string, int, float, bool, datetime, json
	KindObject FieldKind = "object" // reference to another model
	KindEnum   FieldKind = "enum"   // reference to a model-scoped enum
)

// validKinds is the set of allowed field kinds.
var validKinds = map[FieldKind]bool{
	KindScalar: true,
	KindObject: true,
	KindEnum:   true,
}

// ValidateKind returns an error if the kind is not recognized.
func ValidateKind(k FieldKind) error {
	if !validKinds[k] {
		return fmt.Errorf("invalid field kind %q: must be one of: scalar, object, enum", k)
	}
	return nil
}

// --- Core model structures ---

// IDFieldName is the mandatory identifier field every model carries.
const IDFieldName = "id"

// Model is one entity in the specification's data model.
type Model struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DisplayHint string  `json:"display_hint,omitempty"`
	IDField     string  `json:"id_field"`
	Fields      []Field `json:"fields"`
	Enums       []Enum  `json:"enums,omitempty"`
}

// Field is a single attribute of a model.
type Field struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Type     string    `json:"type"` // scalar type, model name, or enum name
	IsID     bool      `json:"is_id,omitempty"`
	Required bool      `json:"required,omitempty"`
	Unique   bool      `json:"unique,omitempty"`
	List     bool      `json:"list,omitempty"`
	Relation bool      `json:"relation,omitempty"` // true only when Kind == object
	Order    int       `json:"order"`
	Default  string    `json:"default,omitempty"`
}

// Enum is a model-scoped enumeration.
type Enum struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Entries []EnumEntry `json:"entries"`
}

// EnumEntry is one value of an enum.
type EnumEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Default string `json:"default,omitempty"`
}

// NewIDField returns the canonical identifier field: a required, unique
// string field literally named "id", marked as the identifier.
func NewIDField() Field {
	return Field{
		Name:     IDFieldName,
		Kind:     KindScalar,
		Type:     "string",
		IsID:     true,
		Required: true,
		Unique:   true,
		Order:    0,
	}
}

// NewModel creates a model with the mandatory identifier field injected.
func NewModel(name string) Model {
	return Model{
		Name:    name,
		IDField: IDFieldName,
		Fields:  []Field{NewIDField()},
	}
}

// EnsureIDField guarantees the model carries the identifier field
// invariant: a field named "id" of string type, marked IsID, required
// and unique, first in display order. Generation output sometimes omits
// it or emits it with weakened flags; this repairs both cases.
func (m *Model) EnsureIDField() {
	m.IDField = IDFieldName
	for i := range m.Fields {
		if strings.EqualFold(m.Fields[i].Name, IDFieldName) {
			m.Fields[i].Name = IDFieldName
			m.Fields[i].Kind = KindScalar
			m.Fields[i].Type = "string"
			m.Fields[i].IsID = true
			m.Fields[i].Required = true
			m.Fields[i].Unique = true
			m.Fields[i].Relation = false
			return
		}
	}
	m.Fields = append([]Field{NewIDField()}, m.Fields...)
}

// FindField returns the field with the given name (case-insensitive),
// or nil if absent.
func (m *Model) FindField(name string) *Field {
	for i := range m.Fields {
		if strings.EqualFold(m.Fields[i].Name, name) {
			return &m.Fields[i]
		}
	}
	return nil
}

// Validate checks the model's structural invariants: unique field names,
// at most one identifier field, the mandatory "id" field present, and
// the relation flag only on object fields.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("model has no name")
	}

	seen := map[string]bool{}
	idCount := 0
	hasID := false
	for _, f := range m.Fields {
		key := strings.ToLower(f.Name)
		if seen[key] {
			return fmt.Errorf("model %q: duplicate field %q", m.Name, f.Name)
		}
		seen[key] = true

		if err := ValidateKind(f.Kind); err != nil {
			return fmt.Errorf("model %q, field %q: %w", m.Name, f.Name, err)
		}
		if f.Relation && f.Kind != KindObject {
			return fmt.Errorf("model %q, field %q: relation flag on non-object field", m.Name, f.Name)
		}
		if f.IsID {
			idCount++
			if key == IDFieldName {
				hasID = true
			}
		}
	}

	if idCount > 1 {
		return fmt.Errorf("model %q: %d identifier fields, want exactly one", m.Name, idCount)
	}
	if !hasID {
		return fmt.Errorf("model %q: missing mandatory %q identifier field", m.Name, IDFieldName)
	}

	return nil
}

// Clone returns a deep copy of the model.
func (m Model) Clone() Model {
	out := m
	out.Fields = make([]Field, len(m.Fields))
	copy(out.Fields, m.Fields)
	out.Enums = make([]Enum, len(m.Enums))
	for i, e := range m.Enums {
		out.Enums[i] = e
		out.Enums[i].Entries = make([]EnumEntry, len(e.Entries))
		copy(out.Enums[i].Entries, e.Entries)
	}
	return out
}
