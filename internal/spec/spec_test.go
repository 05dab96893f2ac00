package spec

import (
	"testing"
	"time"
)

// --- Specification ---

func TestNewSpecification(t *testing.T) {
	timeNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = time.Now }()

	s := NewSpecification("Orders", "order tracking", "commerce")

	if s.ID == "" {
		t.Error("no identity assigned")
	}
	if s.CreatedAt != "2026-03-01T12:00:00Z" || s.UpdatedAt != s.CreatedAt {
		t.Errorf("timestamps = %q / %q", s.CreatedAt, s.UpdatedAt)
	}
}

func TestTouch(t *testing.T) {
	timeNow = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }
	defer func() { timeNow = time.Now }()

	s := &Specification{UpdatedAt: "2026-01-01T00:00:00Z"}
	s.Touch()
	if s.UpdatedAt != "2026-03-02T09:30:00Z" {
		t.Errorf("UpdatedAt = %q", s.UpdatedAt)
	}
}

func TestFindersAreCaseInsensitive(t *testing.T) {
	s := &Specification{
		Models:    []Model{NewModel("Order")},
		Actions:   []Action{{Name: "CreateOrder"}},
		Schedules: []Schedule{{Name: "DailyReview"}},
	}

	if s.FindModel("ORDER") == nil {
		t.Error("FindModel missed case-insensitive match")
	}
	if s.FindAction("createorder") == nil {
		t.Error("FindAction missed case-insensitive match")
	}
	if s.FindSchedule("dailyreview") == nil {
		t.Error("FindSchedule missed case-insensitive match")
	}
	if s.FindModel("Customer") != nil {
		t.Error("FindModel invented a match")
	}
}

func TestSpecificationClone_Independent(t *testing.T) {
	s := &Specification{
		ID:       "doc1",
		Metadata: map[string]string{"k": "v"},
		Models:   []Model{NewModel("Order")},
		Actions: []Action{{
			Name:    "CreateOrder",
			Source:  DataSource{Models: []ModelSource{{Model: "Order"}}},
			Results: Results{Model: "Order", FieldMapping: map[string]string{"a": "b"}},
		}},
	}

	c := s.Clone()
	c.Metadata["k"] = "changed"
	c.Models[0].Fields[0].Name = "uuid"
	c.Actions[0].Source.Models[0].Model = "Other"
	c.Actions[0].Results.FieldMapping["a"] = "z"

	if s.Metadata["k"] != "v" {
		t.Error("metadata shared between clone and original")
	}
	if s.Models[0].Fields[0].Name != "id" {
		t.Error("model fields shared between clone and original")
	}
	if s.Actions[0].Source.Models[0].Model != "Order" {
		t.Error("action source shared between clone and original")
	}
	if s.Actions[0].Results.FieldMapping["a"] != "b" {
		t.Error("field mapping shared between clone and original")
	}
}

func TestCloneNil(t *testing.T) {
	var s *Specification
	if s.Clone() != nil {
		t.Error("nil Clone should stay nil")
	}
}

// --- Model invariants ---

func TestNewModel_CarriesIDField(t *testing.T) {
	m := NewModel("Order")
	if err := m.Validate(); err != nil {
		t.Fatalf("fresh model invalid: %v", err)
	}
	f := m.FindField("id")
	if f == nil || !f.IsID || f.Order != 0 {
		t.Errorf("identifier field = %+v", f)
	}
}

func TestEnsureIDField_PrependsWhenMissing(t *testing.T) {
	m := Model{Name: "Order", Fields: []Field{
		{Name: "total", Kind: KindScalar, Type: "float", Order: 1},
	}}
	m.EnsureIDField()

	if m.Fields[0].Name != "id" {
		t.Fatalf("fields[0] = %q, want the identifier first", m.Fields[0].Name)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("model invalid after repair: %v", err)
	}
}

func TestEnsureIDField_RepairsWeakenedFlags(t *testing.T) {
	m := Model{Name: "Order", Fields: []Field{
		{Name: "ID", Kind: KindObject, Type: "int", Relation: true},
	}}
	m.EnsureIDField()

	f := m.Fields[0]
	if f.Name != "id" || f.Kind != KindScalar || f.Type != "string" {
		t.Errorf("field not normalized: %+v", f)
	}
	if !f.IsID || !f.Required || !f.Unique || f.Relation {
		t.Errorf("flags not repaired: %+v", f)
	}
	if len(m.Fields) != 1 {
		t.Errorf("got %d fields, want the existing one repaired in place", len(m.Fields))
	}
}

func TestModelValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Model)
		wantErr bool
	}{
		{"valid", func(m *Model) {}, false},
		{"no name", func(m *Model) { m.Name = "" }, true},
		{"duplicate fields", func(m *Model) {
			m.Fields = append(m.Fields, Field{Name: "ID", Kind: KindScalar, Type: "string"})
		}, true},
		{"two identifiers", func(m *Model) {
			m.Fields = append(m.Fields, Field{Name: "code", Kind: KindScalar, Type: "string", IsID: true})
		}, true},
		{"missing id field", func(m *Model) { m.Fields = m.Fields[1:] }, true},
		{"relation on scalar", func(m *Model) {
			m.Fields = append(m.Fields, Field{Name: "note", Kind: KindScalar, Type: "string", Relation: true})
		}, true},
		{"bad kind", func(m *Model) {
			m.Fields = append(m.Fields, Field{Name: "x", Kind: "blob", Type: "bytes"})
		}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := NewModel("Order")
			m.Fields = append(m.Fields, Field{Name: "total", Kind: KindScalar, Type: "float", Order: 1})
			c.mutate(&m)
			err := m.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("Validate() = %v, wantErr %t", err, c.wantErr)
			}
		})
	}
}

// --- Enums ---

func TestValidateKind(t *testing.T) {
	for _, k := range []FieldKind{KindScalar, KindObject, KindEnum} {
		if err := ValidateKind(k); err != nil {
			t.Errorf("ValidateKind(%s) = %v", k, err)
		}
	}
	if err := ValidateKind("matrix"); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestValidateOperation(t *testing.T) {
	for _, op := range []OperationKind{OpCreate, OpUpdate} {
		if err := ValidateOperation(op); err != nil {
			t.Errorf("ValidateOperation(%s) = %v", op, err)
		}
	}
	if err := ValidateOperation("delete"); err == nil {
		t.Error("delete accepted as an operation kind")
	}
}

// --- Automations ---

func TestSourceModels(t *testing.T) {
	d := DataSource{Models: []ModelSource{{Model: "Order"}, {Model: "Customer", Filter: "active"}}}
	got := d.SourceModels()
	if len(got) != 2 || got[0] != "Order" || got[1] != "Customer" {
		t.Errorf("SourceModels = %v", got)
	}
	if (DataSource{}).SourceModels() != nil {
		t.Error("empty source should yield no names")
	}
}
