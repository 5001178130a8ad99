package planner

import "github.com/MaxDude132/prefetcher/store"

// The marker protocol keeps planning idempotent: once a plan has been
// applied to an object graph, an advisory flag on the root prevents
// later passes from re-issuing fetches. Collections and records carry
// the flag themselves; a bare record slice has nowhere to put one, so
// each element is flagged and the slice counts as planned when all of
// them are.

func isPlanned(instance any) bool {
	switch v := instance.(type) {
	case *store.Collection:
		return v.Planned()
	case *store.Record:
		return v.Planned()
	case []*store.Record:
		if len(v) == 0 {
			return false
		}
		for _, r := range v {
			if !r.Planned() {
				return false
			}
		}
		return true
	}
	return false
}

func markPlanned(instance any) {
	switch v := instance.(type) {
	case *store.Collection:
		v.MarkPlanned()
	case *store.Record:
		v.MarkPlanned()
	case []*store.Record:
		for _, r := range v {
			r.MarkPlanned()
		}
	}
}

// plannable reports whether the instance kind participates in
// planning at all. A plain map has no model behind it; it renders
// as-is.
func plannable(instance any) bool {
	switch instance.(type) {
	case store.Query, *store.Collection, *store.Record, []*store.Record:
		return true
	}
	return false
}

// prepopulated reports whether an unrelated mechanism already filled
// the root record's relation cache, which counts as planned.
func prepopulated(instance any) bool {
	if r, ok := instance.(*store.Record); ok {
		return r.HasFetchedRelations()
	}
	return false
}
