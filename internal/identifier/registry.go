// Package identifier tracks the names a session has introduced and
// detects naming-convention drift between them. Each session owns one
// Registry; the session's lock serializes access, so the registry
// itself carries no locking.
package identifier

import (
	"sort"
	"time"
)

// Kind is the declaration kind reported by callers. Unknown is valid;
// kind never affects consistency checking.
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindVariable Kind = "variable"
	KindUnknown  Kind = "unknown"
)

// KindFromString maps free-form caller input onto a Kind.
func KindFromString(s string) Kind {
	switch Kind(s) {
	case KindFunction, KindClass, KindVariable:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// Info is one tracked identifier. The exact name string is the
// uniqueness key; occurrences counts repeat tracking calls.
type Info struct {
	Name        string    `json:"name"`
	Style       Style     `json:"style"`
	Kind        Kind      `json:"kind"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Occurrences int       `json:"occurrences"`
	Locations   []string  `json:"locations,omitempty"`
}

// Registry stores a session's tracked identifiers indexed by exact name
// and by semantic base form.
type Registry struct {
	byName map[string]*Info
	byBase map[string][]string // base form -> names in first-seen order
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Info),
		byBase: make(map[string][]string),
	}
}

// Track records one use of name. Tracking an already-known name
// increments its occurrence count and never creates a duplicate entry.
// Invalid names are rejected without mutating anything.
func (r *Registry) Track(name string, kind Kind, location string) (Info, error) {
	if err := Validate(name); err != nil {
		return Info{}, err
	}

	now := time.Now()
	info, ok := r.byName[name]
	if !ok {
		info = &Info{
			Name:        name,
			Style:       InferStyle(name),
			Kind:        kind,
			FirstSeen:   now,
			Occurrences: 0,
		}
		r.byName[name] = info
		base := BaseForm(name)
		r.byBase[base] = append(r.byBase[base], name)
	}

	info.Occurrences++
	info.LastSeen = now
	if info.Kind == KindUnknown && kind != KindUnknown {
		info.Kind = kind
	}
	if location != "" && !contains(info.Locations, location) {
		info.Locations = append(info.Locations, location)
	}

	return *info, nil
}

// Lookup returns the record for an exact name.
func (r *Registry) Lookup(name string) (Info, bool) {
	info, ok := r.byName[name]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// List returns all tracked identifiers sorted by name.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.byName))
	for _, info := range r.byName {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports how many distinct names are tracked.
func (r *Registry) Len() int {
	return len(r.byName)
}

// SimilarKnown returns tracked names that likely mean the same thing as
// name: other spellings of the same base, then synonym-prefixed forms.
// Used for "did you mean" suggestions on undefined-name errors.
func (r *Registry) SimilarKnown(name string) []string {
	base := BaseForm(name)

	var out []string
	for _, n := range r.byBase[base] {
		if n != name {
			out = append(out, n)
		}
	}
	for _, alt := range relatedBases(base) {
		for _, n := range r.byBase[alt] {
			if n != name && !contains(out, n) {
				out = append(out, n)
			}
		}
	}
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
