package merge

import (
	"strings"

	"github.com/HendryAvila/specforge/internal/spec"
)

// --- Collection merges ---
//
// Each collection follows the same sequence: index existing items by
// identity and case-insensitive name, merge matched incoming items
// recursively, append unmatched ones, then run the recovery pass so
// nothing present in either input silently disappears. The per-entity
// merge functions below spell out precedence field by field instead of
// relying on any generic override order.

// index locates items by identity and by lowercase name.
type index struct {
	byID   map[string]int
	byName map[string]int
}

func buildIndex[T any](items []T, id, name func(T) string) index {
	ix := index{byID: map[string]int{}, byName: map[string]int{}}
	for i, it := range items {
		ix.add(i, id(it), name(it))
	}
	return ix
}

func (ix index) add(i int, id, name string) {
	if id != "" {
		if _, ok := ix.byID[id]; !ok {
			ix.byID[id] = i
		}
	}
	if name != "" {
		key := strings.ToLower(name)
		if _, ok := ix.byName[key]; !ok {
			ix.byName[key] = i
		}
	}
}

// match returns the position of the existing item equivalent to
// (id, name), identity first, case-insensitive name second, or -1.
func (ix index) match(id, name string) int {
	if id != "" {
		if i, ok := ix.byID[id]; ok {
			return i
		}
	}
	if name != "" {
		if i, ok := ix.byName[strings.ToLower(name)]; ok {
			return i
		}
	}
	return -1
}

func mergeModels(existing, incoming []spec.Model, warnings []Warning) ([]spec.Model, []Warning) {
	result := make([]spec.Model, len(existing))
	copy(result, existing)

	ix := buildIndex(result,
		func(m spec.Model) string { return m.ID },
		func(m spec.Model) string { return m.Name })

	for _, in := range incoming {
		if i := ix.match(in.ID, in.Name); i >= 0 {
			result[i] = mergeModel(result[i], in)
		} else {
			result = append(result, in)
			ix.add(len(result)-1, in.ID, in.Name)
		}
	}

	result = recoverItems("models", result, existing, incoming,
		func(m spec.Model) string { return m.Name }, &warnings)
	return result, warnings
}

func mergeActions(existing, incoming []spec.Action, warnings []Warning) ([]spec.Action, []Warning) {
	result := make([]spec.Action, len(existing))
	copy(result, existing)

	ix := buildIndex(result,
		func(a spec.Action) string { return a.ID },
		func(a spec.Action) string { return a.Name })

	for _, in := range incoming {
		if i := ix.match(in.ID, in.Name); i >= 0 {
			result[i] = mergeAction(result[i], in)
		} else {
			result = append(result, in)
			ix.add(len(result)-1, in.ID, in.Name)
		}
	}

	result = recoverItems("actions", result, existing, incoming,
		func(a spec.Action) string { return a.Name }, &warnings)
	return result, warnings
}

func mergeSchedules(existing, incoming []spec.Schedule, warnings []Warning) ([]spec.Schedule, []Warning) {
	result := make([]spec.Schedule, len(existing))
	copy(result, existing)

	ix := buildIndex(result,
		func(s spec.Schedule) string { return s.ID },
		func(s spec.Schedule) string { return s.Name })

	for _, in := range incoming {
		if i := ix.match(in.ID, in.Name); i >= 0 {
			result[i] = mergeSchedule(result[i], in)
		} else {
			result = append(result, in)
			ix.add(len(result)-1, in.ID, in.Name)
		}
	}

	result = recoverItems("schedules", result, existing, incoming,
		func(s spec.Schedule) string { return s.Name }, &warnings)
	return result, warnings
}

// --- Per-entity merges ---

// mergeModel reconciles one matched model pair. The existing identity
// is retained; incoming scalars win only when non-empty; fields and
// enums merge by the same identity-then-name rule as top-level items.
func mergeModel(existing, incoming spec.Model) spec.Model {
	out := existing.Clone()
	out.Name = override(existing.Name, incoming.Name)
	out.DisplayHint = override(existing.DisplayHint, incoming.DisplayHint)

	out.Fields = mergeFields(out.Fields, incoming.Fields)
	out.Enums = mergeEnums(out.Enums, incoming.Enums)
	out.EnsureIDField()
	return out
}

func mergeFields(existing, incoming []spec.Field) []spec.Field {
	result := make([]spec.Field, len(existing))
	copy(result, existing)

	ix := buildIndex(result,
		func(f spec.Field) string { return f.ID },
		func(f spec.Field) string { return f.Name })

	for _, in := range incoming {
		if i := ix.match(in.ID, in.Name); i >= 0 {
			result[i] = mergeField(result[i], in)
		} else {
			result = append(result, in)
			ix.add(len(result)-1, in.ID, in.Name)
		}
	}
	return result
}

// mergeField keeps the existing identity. Strings follow
// incoming-wins-when-non-empty; flags are additive (a delta that
// re-emits a field without a flag does not strip it); unsetting a flag
// requires regenerating the field explicitly, which arrives as a full
// field with a fresh shape under the same name.
func mergeField(existing, incoming spec.Field) spec.Field {
	out := existing
	out.Name = override(existing.Name, incoming.Name)
	if incoming.Kind != "" {
		out.Kind = incoming.Kind
	}
	out.Type = override(existing.Type, incoming.Type)
	out.IsID = existing.IsID || incoming.IsID
	out.Required = existing.Required || incoming.Required
	out.Unique = existing.Unique || incoming.Unique
	out.List = existing.List || incoming.List
	out.Relation = existing.Relation || incoming.Relation
	if out.Kind != spec.KindObject {
		out.Relation = false
	}
	if incoming.Order != 0 {
		out.Order = incoming.Order
	}
	out.Default = override(existing.Default, incoming.Default)
	return out
}

func mergeEnums(existing, incoming []spec.Enum) []spec.Enum {
	result := make([]spec.Enum, len(existing))
	copy(result, existing)

	ix := buildIndex(result,
		func(e spec.Enum) string { return e.ID },
		func(e spec.Enum) string { return e.Name })

	for _, in := range incoming {
		if i := ix.match(in.ID, in.Name); i >= 0 {
			result[i] = mergeEnum(result[i], in)
		} else {
			result = append(result, in)
			ix.add(len(result)-1, in.ID, in.Name)
		}
	}
	return result
}

func mergeEnum(existing, incoming spec.Enum) spec.Enum {
	out := existing
	out.Name = override(existing.Name, incoming.Name)

	entries := make([]spec.EnumEntry, len(existing.Entries))
	copy(entries, existing.Entries)

	ix := buildIndex(entries,
		func(e spec.EnumEntry) string { return e.ID },
		func(e spec.EnumEntry) string { return e.Name })

	for _, in := range incoming.Entries {
		if i := ix.match(in.ID, in.Name); i >= 0 {
			e := entries[i]
			e.Name = override(e.Name, in.Name)
			e.Type = override(e.Type, in.Type)
			e.Default = override(e.Default, in.Default)
			entries[i] = e
		} else {
			entries = append(entries, in)
			ix.add(len(entries)-1, in.ID, in.Name)
		}
	}
	out.Entries = entries
	return out
}

// mergeAction reconciles one matched action pair.
func mergeAction(existing, incoming spec.Action) spec.Action {
	out := existing.Clone()
	out.Name = override(existing.Name, incoming.Name)
	out.Description = override(existing.Description, incoming.Description)
	out.Role = override(existing.Role, incoming.Role)
	if incoming.Operation != "" {
		out.Operation = incoming.Operation
	}
	out.Source = mergeSource(out.Source, incoming.Source)
	out.Execution = mergeExecution(out.Execution, incoming.Execution)
	out.Results = mergeResults(out.Results, incoming.Results)
	return out
}

// mergeSchedule reconciles one matched schedule pair. The interval is
// replaced as a unit when the incoming schedule specifies one: pattern,
// timezone, and the active flag travel together.
func mergeSchedule(existing, incoming spec.Schedule) spec.Schedule {
	out := existing.Clone()
	out.Name = override(existing.Name, incoming.Name)
	out.Description = override(existing.Description, incoming.Description)
	out.Role = override(existing.Role, incoming.Role)
	if incoming.Operation != "" {
		out.Operation = incoming.Operation
	}
	out.Source = mergeSource(out.Source, incoming.Source)
	out.Execution = mergeExecution(out.Execution, incoming.Execution)
	out.Results = mergeResults(out.Results, incoming.Results)

	if incoming.Interval.Pattern != "" {
		out.Interval = incoming.Interval
		if out.Interval.Timezone == "" {
			out.Interval.Timezone = existing.Interval.Timezone
		}
	}
	return out
}

// mergeSource replaces the data source as a unit when incoming carries
// one; a source is a closed descriptor, not a bag of mergeable fields.
func mergeSource(existing, incoming spec.DataSource) spec.DataSource {
	if incoming.Custom != nil || len(incoming.Models) > 0 {
		return incoming
	}
	return existing
}

func mergeExecution(existing, incoming spec.Execution) spec.Execution {
	// Script and prompt are alternatives; an incoming descriptor that
	// carries either replaces the pair.
	if incoming.Script != "" || incoming.Prompt != "" {
		return incoming
	}
	return existing
}

func mergeResults(existing, incoming spec.Results) spec.Results {
	out := existing
	out.Model = override(existing.Model, incoming.Model)
	out.IdentifierField = override(existing.IdentifierField, incoming.IdentifierField)
	if len(incoming.FieldMapping) > 0 {
		if out.FieldMapping == nil {
			out.FieldMapping = map[string]string{}
		} else {
			copied := make(map[string]string, len(out.FieldMapping))
			for k, v := range out.FieldMapping {
				copied[k] = v
			}
			out.FieldMapping = copied
		}
		for k, v := range incoming.FieldMapping {
			if v != "" {
				out.FieldMapping[k] = v
			}
		}
	}
	return out
}
