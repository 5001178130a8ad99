// Package relpath implements the path algebra used by the prefetch
// planner: relation paths are dotted chains of relation names joined by
// a double underscore ("toppings__origin"), optionally carrying an
// alternate storage attribute and a restricting filter.
package relpath

import "strings"

// Separator joins relation segments in a path.
const Separator = "__"

// Rel addresses one relation reachable from a root record type.
//
// A plain path traverses Through and stores the rows under the same
// name. A fetch descriptor stores them under To instead, optionally
// restricted by Filter. Filter is opaque to the planner; only the store
// adapter interprets it.
type Rel struct {
	Through string
	To      string
	Filter  any
}

// Plain returns a Rel traversing and storing under the same path.
func Plain(path string) Rel {
	return Rel{Through: path, To: path}
}

// Fetch returns a Rel fetching through and storing under to,
// restricted by filter. An empty to keeps the natural name. A bare to
// renames only the final segment of a multi-segment path: the rows
// still traverse the full through path and are stored next to their
// siblings under the alias.
func Fetch(through, to string, filter any) Rel {
	switch {
	case to == "":
		to = through
	case !strings.Contains(to, Separator):
		if i := strings.LastIndex(through, Separator); i >= 0 {
			to = through[:i+len(Separator)] + to
		}
	}
	return Rel{Through: through, To: to, Filter: filter}
}

// IsZero reports whether r carries no path at all.
func (r Rel) IsZero() bool { return r.Through == "" && r.To == "" }

// IsFetch reports whether r carries more than a plain path: an alias
// differing from the traversal path, or a filter.
func (r Rel) IsFetch() bool { return r.To != r.Through || r.Filter != nil }

// Segments splits the traversal path into relation names.
func (r Rel) Segments() []string {
	if r.Through == "" {
		return nil
	}
	return strings.Split(r.Through, Separator)
}

// ToSegments splits the storage path into attribute names. For rels
// built through Plain, Fetch or Join the result is always the same
// length as Segments.
func (r Rel) ToSegments() []string {
	if r.To == "" {
		return nil
	}
	return strings.Split(r.To, Separator)
}

// Join qualifies item under cur: the traversal path extends cur's
// traversal path and the storage path extends cur's storage path. The
// two differ whenever an ancestor was fetched under an alias.
func Join(cur, item Rel) Rel {
	if cur.IsZero() {
		return item
	}
	return Rel{
		Through: cur.Through + Separator + item.Through,
		To:      cur.To + Separator + item.To,
		Filter:  item.Filter,
	}
}

// Qualify joins every item under cur. With a zero cur the input is
// returned unchanged.
func Qualify(cur Rel, items []Rel) []Rel {
	if cur.IsZero() || len(items) == 0 {
		return items
	}
	out := make([]Rel, len(items))
	for i, item := range items {
		out[i] = Join(cur, item)
	}
	return out
}

// SameTarget reports whether two rels address the same relation: their
// storage paths are equal. A plain path collides with a descriptor
// whose alias equals it.
func SameTarget(a, b Rel) bool { return a.To == b.To }

// Merge appends the entries of src to dst, deduplicating by storage
// path. When an incoming fetch descriptor collides with an already
// merged plain path, the descriptor replaces it: it carries the alias
// and filter and must not be lost to a bare name. A plain path never
// displaces a descriptor.
func Merge(dst, src []Rel) []Rel {
	for _, in := range src {
		replaced := false
		found := false
		for i, have := range dst {
			if !SameTarget(have, in) {
				continue
			}
			found = true
			if in.IsFetch() && !have.IsFetch() {
				dst[i] = in
				replaced = true
			}
			break
		}
		if !found && !replaced {
			dst = append(dst, in)
		}
	}
	return dst
}

// Dedup returns rels with later same-target duplicates dropped,
// applying the Merge collision rule. Order of first appearance is
// preserved.
func Dedup(rels []Rel) []Rel {
	out := make([]Rel, 0, len(rels))
	return Merge(out, rels)
}

// Subtract returns the entries of rels whose storage path does not
// appear in exclude.
func Subtract(rels, exclude []Rel) []Rel {
	if len(exclude) == 0 {
		return rels
	}
	seen := make(map[string]struct{}, len(exclude))
	for _, r := range exclude {
		seen[r.To] = struct{}{}
	}
	out := make([]Rel, 0, len(rels))
	for _, r := range rels {
		if _, ok := seen[r.To]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Plains converts a list of names into plain rels.
func Plains(names []string) []Rel {
	out := make([]Rel, len(names))
	for i, n := range names {
		out[i] = Plain(n)
	}
	return out
}

// Strings returns the storage paths of rels, in order.
func Strings(rels []Rel) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.To
	}
	return out
}
