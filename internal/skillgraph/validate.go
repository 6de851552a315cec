package skillgraph

import (
	"fmt"
	"strings"
)

// Validate performs all structural checks on the given skill set.
// Returns a combined error describing all problems found, or nil if valid.
func Validate(skills []Skill) error {
	var errs []string

	idSet := make(map[string]bool, len(skills))

	// Check for duplicate IDs
	for _, s := range skills {
		if s.ID == "" {
			errs = append(errs, "skill with empty ID")
			continue
		}
		if idSet[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate skill ID: %q", s.ID))
		}
		idSet[s.ID] = true
	}

	// Check for dangling prerequisites
	for _, s := range skills {
		for _, prereqID := range s.Prerequisites {
			if !idSet[prereqID] {
				errs = append(errs, fmt.Sprintf("skill %q references nonexistent prerequisite %q", s.ID, prereqID))
			}
		}
	}

	// Check for cycles using Kahn's algorithm
	inDegree := make(map[string]int, len(skills))
	adjList := make(map[string][]string)
	for _, s := range skills {
		inDegree[s.ID] = len(s.Prerequisites)
		for _, prereqID := range s.Prerequisites {
			adjList[prereqID] = append(adjList[prereqID], s.ID)
		}
	}

	var queue []string
	for _, s := range skills {
		if inDegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, depID := range adjList[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if visited < len(inDegree) {
		var cycleNodes []string
		for _, s := range skills {
			if inDegree[s.ID] > 0 {
				cycleNodes = append(cycleNodes, s.ID)
			}
		}
		errs = append(errs, fmt.Sprintf("cycle detected involving skills: %s", strings.Join(cycleNodes, ", ")))
	}

	// Sort order is a total order within a domain.
	type slot struct {
		domain string
		order  int
	}
	orders := make(map[slot]string)
	for _, s := range skills {
		if s.Domain == "" {
			errs = append(errs, fmt.Sprintf("skill %q has no domain", s.ID))
		}
		k := slot{s.Domain, s.SortOrder}
		if other, dup := orders[k]; dup {
			errs = append(errs, fmt.Sprintf("skills %q and %q share sort order %d in domain %q", other, s.ID, s.SortOrder, s.Domain))
		}
		orders[k] = s.ID
	}

	for _, s := range skills {
		if s.Difficulty < 1 || s.Difficulty > 5 {
			errs = append(errs, fmt.Sprintf("skill %q: difficulty must be in [1, 5], got %d", s.ID, s.Difficulty))
		}
		if s.Status != StatusDraft && s.Status != StatusPublished {
			errs = append(errs, fmt.Sprintf("skill %q: unknown status %q", s.ID, s.Status))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("skill graph validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
