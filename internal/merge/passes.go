package merge

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/specforge/internal/spec"
)

// --- Deletions ---

// applyDeletions returns the three collections with explicitly deleted
// items removed. Entries match by identity or case-insensitive name.
func applyDeletions(s *spec.Specification, del *Deletions) ([]spec.Model, []spec.Action, []spec.Schedule) {
	if del.IsEmpty() {
		return s.Models, s.Actions, s.Schedules
	}

	models := deleteItems(s.Models, del.Models,
		func(m spec.Model) string { return m.ID },
		func(m spec.Model) string { return m.Name })
	actions := deleteItems(s.Actions, del.Actions,
		func(a spec.Action) string { return a.ID },
		func(a spec.Action) string { return a.Name })
	schedules := deleteItems(s.Schedules, del.Schedules,
		func(sc spec.Schedule) string { return sc.ID },
		func(sc spec.Schedule) string { return sc.Name })
	return models, actions, schedules
}

func deleteItems[T any](items []T, remove []string, id, name func(T) string) []T {
	if len(remove) == 0 {
		return items
	}
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[strings.ToLower(r)] = true
	}

	var kept []T
	for _, it := range items {
		if drop[strings.ToLower(name(it))] || drop[strings.ToLower(id(it))] {
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// --- Recovery pass ---

// recoverItems verifies that every name present in existing or incoming
// still appears in result, and reinserts any missing item. The oracle
// sometimes "forgets" items when asked to emit deltas; omission is a
// fault to repair, never an implicit deletion.
func recoverItems[T any](collection string, result, existing, incoming []T, name func(T) string, warnings *[]Warning) []T {
	present := make(map[string]bool, len(result))
	for _, it := range result {
		present[strings.ToLower(name(it))] = true
	}

	reinsert := func(source []T) {
		for _, it := range source {
			key := strings.ToLower(name(it))
			if key == "" || present[key] {
				continue
			}
			result = append(result, it)
			present[key] = true
			*warnings = append(*warnings, Warning{
				Collection: collection,
				Item:       name(it),
				Reason:     "missing from merge result, recovered from input",
			})
		}
	}
	reinsert(existing)
	reinsert(incoming)
	return result
}

// --- Identity assignment ---

// assignIdentities gives every item lacking an identity a fresh
// sequential one within its collection. Existing identities are never
// reused or rewritten.
func assignIdentities(s *spec.Specification) {
	nextModel := sequencer("model", modelIDs(s.Models))
	for i := range s.Models {
		m := &s.Models[i]
		if m.ID == "" {
			m.ID = nextModel()
		}
		nextField := sequencer("field", fieldIDs(m.Fields))
		for j := range m.Fields {
			if m.Fields[j].ID == "" {
				m.Fields[j].ID = nextField()
			}
		}
		nextEnum := sequencer("enum", enumIDs(m.Enums))
		for j := range m.Enums {
			e := &m.Enums[j]
			if e.ID == "" {
				e.ID = nextEnum()
			}
			nextEntry := sequencer("entry", entryIDs(e.Entries))
			for k := range e.Entries {
				if e.Entries[k].ID == "" {
					e.Entries[k].ID = nextEntry()
				}
			}
		}
	}

	nextAction := sequencer("action", actionIDs(s.Actions))
	for i := range s.Actions {
		if s.Actions[i].ID == "" {
			s.Actions[i].ID = nextAction()
		}
	}

	nextSchedule := sequencer("schedule", scheduleIDs(s.Schedules))
	for i := range s.Schedules {
		if s.Schedules[i].ID == "" {
			s.Schedules[i].ID = nextSchedule()
		}
	}
}

// sequencer returns a generator of "<prefix>_<n>" identities that skips
// values already in use.
func sequencer(prefix string, used map[string]bool) func() string {
	n := 0
	return func() string {
		for {
			n++
			id := fmt.Sprintf("%s_%d", prefix, n)
			if !used[id] {
				used[id] = true
				return id
			}
		}
	}
}

func modelIDs(items []spec.Model) map[string]bool {
	used := map[string]bool{}
	for _, it := range items {
		used[it.ID] = true
	}
	return used
}

func fieldIDs(items []spec.Field) map[string]bool {
	used := map[string]bool{}
	for _, it := range items {
		used[it.ID] = true
	}
	return used
}

func enumIDs(items []spec.Enum) map[string]bool {
	used := map[string]bool{}
	for _, it := range items {
		used[it.ID] = true
	}
	return used
}

func entryIDs(items []spec.EnumEntry) map[string]bool {
	used := map[string]bool{}
	for _, it := range items {
		used[it.ID] = true
	}
	return used
}

func actionIDs(items []spec.Action) map[string]bool {
	used := map[string]bool{}
	for _, it := range items {
		used[it.ID] = true
	}
	return used
}

func scheduleIDs(items []spec.Schedule) map[string]bool {
	used := map[string]bool{}
	for _, it := range items {
		used[it.ID] = true
	}
	return used
}

// --- Deduplication pass ---

// dedupAll removes case-insensitive duplicate names from every
// collection, keeping the first occurrence. Duplicates appear when the
// oracle both echoes an existing item and restates it under a fresh
// identity; the dropped identities are reported so the caller can log
// them.
func dedupAll(s *spec.Specification) []Warning {
	var warnings []Warning

	s.Models = dedupItems("models", s.Models,
		func(m spec.Model) string { return m.ID },
		func(m spec.Model) string { return m.Name }, &warnings)
	s.Actions = dedupItems("actions", s.Actions,
		func(a spec.Action) string { return a.ID },
		func(a spec.Action) string { return a.Name }, &warnings)
	s.Schedules = dedupItems("schedules", s.Schedules,
		func(sc spec.Schedule) string { return sc.ID },
		func(sc spec.Schedule) string { return sc.Name }, &warnings)

	for i := range s.Models {
		s.Models[i].Fields = dedupItems("fields", s.Models[i].Fields,
			func(f spec.Field) string { return f.ID },
			func(f spec.Field) string { return f.Name }, &warnings)
	}

	return warnings
}

func dedupItems[T any](collection string, items []T, id, name func(T) string, warnings *[]Warning) []T {
	seen := make(map[string]bool, len(items))
	kept := items[:0:0]
	for _, it := range items {
		key := strings.ToLower(name(it))
		if key != "" && seen[key] {
			*warnings = append(*warnings, Warning{
				Collection: collection,
				Item:       name(it),
				Reason:     fmt.Sprintf("duplicate name, dropped identity %q", id(it)),
			})
			continue
		}
		seen[key] = true
		kept = append(kept, it)
	}
	return kept
}
