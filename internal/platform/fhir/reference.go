package fhir

import "strings"

// URN prefixes stripped from references before matching.
var urnPrefixes = []string{"urn:uuid:", "urn:oid:"}

// Identified is implemented by every resource view that can be the target of
// a reference.
type Identified interface {
	ResourceID() string
}

// ReferenceID extracts the logical id from a reference string. It strips a
// URN prefix and a trailing _history segment, then takes the last path
// segment, so "Patient/123", "http://host/fhir/Patient/123" and
// "urn:uuid:123" all yield "123".
func ReferenceID(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = stripURN(ref)
	if i := strings.Index(ref, "/_history/"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimSuffix(ref, "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func stripURN(ref string) string {
	for _, p := range urnPrefixes {
		if strings.HasPrefix(ref, p) {
			return strings.TrimPrefix(ref, p)
		}
	}
	return ref
}

// ReferenceIndex resolves reference strings against a fixed set of candidate
// resources. Lookups by exact id are O(1); the suffix fallback is linear.
type ReferenceIndex[T Identified] struct {
	byID  map[string]int
	items []T
}

// NewReferenceIndex indexes candidates by id. When two candidates share an id
// the first one wins.
func NewReferenceIndex[T Identified](candidates []T) *ReferenceIndex[T] {
	idx := &ReferenceIndex[T]{
		byID:  make(map[string]int, len(candidates)),
		items: candidates,
	}
	for i, c := range candidates {
		id := c.ResourceID()
		if id == "" {
			continue
		}
		if _, dup := idx.byID[id]; !dup {
			idx.byID[id] = i
		}
	}
	return idx
}

// Len returns the number of candidates.
func (idx *ReferenceIndex[T]) Len() int { return len(idx.items) }

// Resolve finds the candidate a reference points to. Matching is attempted in
// priority order: exact id equal to the raw reference, id equal to the
// URN-stripped reference or its last path segment, and finally a suffix match
// (candidate id ending with the extracted id, or the reference ending with
// "/"+id). The zero value and false are returned when nothing matches.
func (idx *ReferenceIndex[T]) Resolve(ref string) (T, bool) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" || idx == nil {
		return zero, false
	}

	if i, ok := idx.byID[ref]; ok {
		return idx.items[i], true
	}

	stripped := stripURN(ref)
	if i, ok := idx.byID[stripped]; ok {
		return idx.items[i], true
	}
	id := ReferenceID(ref)
	if i, ok := idx.byID[id]; ok {
		return idx.items[i], true
	}

	if id == "" {
		return zero, false
	}
	for _, c := range idx.items {
		cid := c.ResourceID()
		if cid == "" {
			continue
		}
		if strings.HasSuffix(cid, id) || strings.HasSuffix(ref, "/"+cid) {
			return c, true
		}
	}
	return zero, false
}

// ResolveReference is a convenience wrapper that builds a one-shot index.
func ResolveReference[T Identified](ref string, candidates []T) (T, bool) {
	return NewReferenceIndex(candidates).Resolve(ref)
}
