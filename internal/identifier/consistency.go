package identifier

import "sort"

// Result is the outcome of a consistency check. Consistent is false
// only when a prior form of the same base exists in a different style.
// RelatedForms are advisory synonym matches and never affect the flag.
type Result struct {
	Name             string   `json:"name"`
	Style            Style    `json:"style"`
	Consistent       bool     `json:"consistent"`
	ConflictingForms []string `json:"conflicting_forms,omitempty"`
	CanonicalStyle   Style    `json:"canonical_style,omitempty"`
	TiedStyles       []Style  `json:"tied_styles,omitempty"`
	RelatedForms     []string `json:"related_forms,omitempty"`
	Suggestion       string   `json:"suggestion,omitempty"`
}

// CheckConsistency compares name against the registry's prior forms of
// the same semantic base. Absence of any prior form is consistent. When
// prior forms conflict, the canonical style is the occurrence-weighted
// majority across all prior forms of the base; an exact tie reports the
// tied styles without declaring a canonical one. The check is read-only.
func (r *Registry) CheckConsistency(name string) (Result, error) {
	if err := Validate(name); err != nil {
		return Result{}, err
	}

	res := Result{
		Name:       name,
		Style:      InferStyle(name),
		Consistent: true,
	}

	base := BaseForm(name)
	prior := r.byBase[base]

	for _, n := range prior {
		if r.byName[n].Style != res.Style {
			res.ConflictingForms = append(res.ConflictingForms, n)
		}
	}

	for _, alt := range relatedBases(base) {
		for _, n := range r.byBase[alt] {
			res.RelatedForms = append(res.RelatedForms, n)
		}
	}

	if len(res.ConflictingForms) == 0 {
		return res, nil
	}
	res.Consistent = false

	// Occurrence-weighted vote across every prior form of the base.
	votes := make(map[Style]int)
	for _, n := range prior {
		info := r.byName[n]
		votes[info.Style] += info.Occurrences
	}
	top := 0
	for _, v := range votes {
		if v > top {
			top = v
		}
	}
	var leaders []Style
	for s, v := range votes {
		if v == top {
			leaders = append(leaders, s)
		}
	}
	sort.Slice(leaders, func(i, j int) bool { return leaders[i] < leaders[j] })

	if len(leaders) == 1 {
		res.CanonicalStyle = leaders[0]
		res.Suggestion = r.bestForm(prior, leaders[0])
	} else {
		res.TiedStyles = leaders
		res.Suggestion = res.ConflictingForms[0]
	}

	return res, nil
}

// bestForm picks the most-tracked prior name in the given style.
func (r *Registry) bestForm(names []string, style Style) string {
	best, bestOcc := "", -1
	for _, n := range names {
		info := r.byName[n]
		if info.Style == style && info.Occurrences > bestOcc {
			best, bestOcc = n, info.Occurrences
		}
	}
	return best
}
