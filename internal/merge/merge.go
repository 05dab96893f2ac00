// Package merge reconciles an existing specification with a freshly
// generated one into a single consistent document.
//
// The generation oracle is unreliable in a specific way: asked to emit a
// delta, it sometimes restates items it should have left alone, invents
// new identities for items that already exist, or omits items entirely.
// The merge engine treats all of that as fault to repair:
//
//   - matching is by identity first, case-insensitive name second, and
//     the existing identity always wins for matched items
//   - omission is never deletion; a recovery pass reinserts anything
//     present in either input but missing from the naive result
//   - deletion happens only through an explicit Deletions instruction,
//     applied before the merge proper
//   - duplicate names keep the first occurrence, and dropped identities
//     are reported as warnings
//
// All functions are pure: inputs are never mutated, and no I/O happens
// here.
package merge

import "github.com/HendryAvila/specforge/internal/spec"

// Warning records a non-fatal inconsistency the engine repaired.
type Warning struct {
	Collection string `json:"collection"` // models | actions | schedules
	Item       string `json:"item"`
	Reason     string `json:"reason"`
}

// Deletions is an explicit instruction to remove items, per collection.
// Entries may be names (case-insensitive) or identities. Absence of an
// item from generated output is never treated as a deletion; this
// instruction is the only removal path.
type Deletions struct {
	Models    []string `json:"models,omitempty"`
	Actions   []string `json:"actions,omitempty"`
	Schedules []string `json:"schedules,omitempty"`
}

// IsEmpty reports whether the instruction deletes nothing.
func (d *Deletions) IsEmpty() bool {
	return d == nil || (len(d.Models) == 0 && len(d.Actions) == 0 && len(d.Schedules) == 0)
}

// Merge reconciles existing and incoming into a new specification.
//
// A nil existing means first-time creation: the result is incoming
// (after deletions, identity assignment, and dedup). Otherwise each of
// Models/Actions/Schedules goes through the delete → match/merge →
// recover → dedup sequence, and top-level scalar fields follow
// "incoming wins only when non-empty and different", except CreatedAt,
// which always comes from existing when present.
//
// Merge is deterministic and does not refresh timestamps; re-merging an
// already merged result is a no-op.
func Merge(existing, incoming *spec.Specification, del *Deletions) (*spec.Specification, []Warning) {
	var warnings []Warning

	if incoming == nil {
		incoming = &spec.Specification{}
	}

	if existing == nil {
		result := incoming.Clone()
		result.Models, result.Actions, result.Schedules = applyDeletions(result, del)
		repairModels(result)
		assignIdentities(result)
		warnings = append(warnings, dedupAll(result)...)
		return result, warnings
	}

	result := existing.Clone()
	in := incoming.Clone()

	// Explicit deletions come first so deleted items neither match nor
	// get recovered.
	result.Models, result.Actions, result.Schedules = applyDeletions(result, del)
	in.Models, in.Actions, in.Schedules = applyDeletions(in, del)

	mergeScalars(result, in)

	result.Models, warnings = mergeModels(result.Models, in.Models, warnings)
	result.Actions, warnings = mergeActions(result.Actions, in.Actions, warnings)
	result.Schedules, warnings = mergeSchedules(result.Schedules, in.Schedules, warnings)

	repairModels(result)
	assignIdentities(result)
	warnings = append(warnings, dedupAll(result)...)

	return result, warnings
}

// mergeScalars applies the top-level precedence rules in place on dst.
func mergeScalars(dst, in *spec.Specification) {
	// Identity of the document is never replaced by generation output.
	dst.Name = override(dst.Name, in.Name)
	dst.Description = override(dst.Description, in.Description)
	dst.Domain = override(dst.Domain, in.Domain)
	dst.UpdatedAt = override(dst.UpdatedAt, in.UpdatedAt)
	if dst.CreatedAt == "" {
		dst.CreatedAt = in.CreatedAt
	}

	if len(in.Metadata) > 0 {
		if dst.Metadata == nil {
			dst.Metadata = map[string]string{}
		}
		for k, v := range in.Metadata {
			if v != "" {
				dst.Metadata[k] = v
			}
		}
	}
}

// repairModels restores the mandatory identifier field on every model.
// Matched models were repaired by mergeModel already; this covers
// appended and first-time models.
func repairModels(s *spec.Specification) {
	for i := range s.Models {
		s.Models[i].EnsureIDField()
	}
}

// override returns incoming when it is non-empty and different,
// otherwise existing.
func override(existing, incoming string) string {
	if incoming != "" && incoming != existing {
		return incoming
	}
	return existing
}
