package skillgraph

import (
	"fmt"
	"sort"
)

// Graph holds a validated skill set with precomputed indices.
type Graph struct {
	skills   []Skill
	byID     map[string]*Skill
	byDomain map[string][]Skill
}

// NewGraph validates skills and builds the graph indices.
func NewGraph(skills []Skill) (*Graph, error) {
	if err := Validate(skills); err != nil {
		return nil, err
	}

	gr := &Graph{
		skills:   skills,
		byID:     make(map[string]*Skill, len(skills)),
		byDomain: make(map[string][]Skill),
	}
	for i := range gr.skills {
		gr.byID[gr.skills[i].ID] = &gr.skills[i]
		d := gr.skills[i].Domain
		gr.byDomain[d] = append(gr.byDomain[d], gr.skills[i])
	}
	for d := range gr.byDomain {
		sorted := gr.byDomain[d]
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].SortOrder < sorted[j].SortOrder
		})
	}
	return gr, nil
}

// Skill returns the skill with the given ID.
func (g *Graph) Skill(id string) (Skill, error) {
	s, ok := g.byID[id]
	if !ok {
		return Skill{}, fmt.Errorf("skill %q not found", id)
	}
	return *s, nil
}

// All returns every skill in input order.
func (g *Graph) All() []Skill {
	out := make([]Skill, len(g.skills))
	copy(out, g.skills)
	return out
}

// Domains returns the domain names in alphabetical order.
func (g *Graph) Domains() []string {
	out := make([]string, 0, len(g.byDomain))
	for d := range g.byDomain {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Domain returns the skills of a domain ordered by sort order.
func (g *Graph) Domain(domain string) []Skill {
	src := g.byDomain[domain]
	out := make([]Skill, len(src))
	copy(out, src)
	return out
}

// NextInDomain returns the first published skill of the same domain whose
// sort order is greater than the given skill's. ok is false at domain end.
func (g *Graph) NextInDomain(id string) (Skill, bool) {
	cur, found := g.byID[id]
	if !found {
		return Skill{}, false
	}
	return NextAfter(g.byDomain[cur.Domain], *cur)
}

// NextAfter picks the successor of cur from domainSkills, which must be
// sorted by sort order.
func NextAfter(domainSkills []Skill, cur Skill) (Skill, bool) {
	for _, s := range domainSkills {
		if s.ID == cur.ID || !s.Published() {
			continue
		}
		if s.SortOrder > cur.SortOrder {
			return s, true
		}
	}
	return Skill{}, false
}
