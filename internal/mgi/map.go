package mgi

import (
	"sort"
	"strings"
)

// Pair is one mouse-to-human symbol mapping.
type Pair struct {
	Mouse string
	Human string
}

// Map holds the strict one-to-one ortholog mapping.
type Map struct {
	pairs   []Pair
	byMouse map[string]string
}

// BuildOneToOne derives the mapping from report rows. A homology group
// contributes a pair only when it carries exactly one distinct mouse
// symbol and exactly one distinct human symbol; everything else is
// ambiguous and discarded. Duplicate pairs are collapsed.
func BuildOneToOne(rows []Row) *Map {
	type group struct {
		mouse map[string]bool
		human map[string]bool
	}
	groups := map[string]*group{}

	for _, row := range rows {
		if row.GroupID == "" || row.Symbol == "" {
			continue
		}
		var side string
		switch {
		case strings.Contains(row.Organism, "mouse"):
			side = "mouse"
		case strings.Contains(row.Organism, "human"):
			side = "human"
		default:
			continue
		}

		g := groups[row.GroupID]
		if g == nil {
			g = &group{mouse: map[string]bool{}, human: map[string]bool{}}
			groups[row.GroupID] = g
		}
		if side == "mouse" {
			g.mouse[row.Symbol] = true
		} else {
			g.human[row.Symbol] = true
		}
	}

	m := &Map{byMouse: map[string]string{}}
	seen := map[Pair]bool{}
	for _, g := range groups {
		if len(g.mouse) != 1 || len(g.human) != 1 {
			continue
		}
		var p Pair
		for s := range g.mouse {
			p.Mouse = s
		}
		for s := range g.human {
			p.Human = s
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		m.pairs = append(m.pairs, p)
		m.byMouse[p.Mouse] = p.Human
	}

	sort.Slice(m.pairs, func(i, j int) bool {
		if m.pairs[i].Mouse != m.pairs[j].Mouse {
			return m.pairs[i].Mouse < m.pairs[j].Mouse
		}
		return m.pairs[i].Human < m.pairs[j].Human
	})

	return m
}

// Lookup returns the human symbol for a mouse symbol.
func (m *Map) Lookup(mouse string) (string, bool) {
	human, ok := m.byMouse[mouse]
	return human, ok
}

// Pairs returns the mapping sorted by mouse symbol.
func (m *Map) Pairs() []Pair {
	return m.pairs
}

// Len returns the number of mapped pairs.
func (m *Map) Len() int {
	return len(m.pairs)
}
