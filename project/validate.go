package project

import "fmt"

// ValidateHierarchy checks the invariants from spec §3 that depend on cross-entity
// references: every bone.parent resolves to a known bone or is nil, every cube.bone
// resolves to a known bone, and the bone parent graph contains no cycles.
//
// The cycle check is name-keyed (not pointer-based) per the Design Notes' guidance on
// avoiding cyclic pointer graphs in outliner-style parent/child models: a lookup index
// is rebuilt from the snapshot on every call rather than carried as live references.
func (s *Snapshot) ValidateHierarchy() error {
	byName := make(map[string]*Bone, len(s.Bones))
	for i := range s.Bones {
		byName[s.Bones[i].Name] = &s.Bones[i]
	}

	for _, b := range s.Bones {
		if b.Parent != nil {
			if _, ok := byName[*b.Parent]; !ok {
				return fmt.Errorf("bone %q references unknown parent %q", b.Name, *b.Parent)
			}
		}
	}

	if cyc := findCycle(byName); cyc != "" {
		return fmt.Errorf("circular bone parent reference detected at %q", cyc)
	}

	for _, c := range s.Cubes {
		if _, ok := byName[c.Bone]; !ok {
			return fmt.Errorf("cube %q references unknown bone %q", c.Name, c.Bone)
		}
	}

	return nil
}

// findCycle runs a depth-first search with a recursion stack over the bone parent
// graph, returning the name at which a cycle was detected, or "" if acyclic.
func findCycle(byName map[string]*Bone) string {
	visited := make(map[string]bool, len(byName))
	onStack := make(map[string]bool, len(byName))

	var visit func(name string) string
	visit = func(name string) string {
		if onStack[name] {
			return name
		}
		if visited[name] {
			return ""
		}
		visited[name] = true
		onStack[name] = true
		defer func() { onStack[name] = false }()

		bone, ok := byName[name]
		if !ok || bone.Parent == nil {
			return ""
		}
		return visit(*bone.Parent)
	}

	for name := range byName {
		if cyc := visit(name); cyc != "" {
			return cyc
		}
	}
	return ""
}

// BoneOrder returns bone names in parent-before-child order using Kahn's algorithm over
// the name-keyed parent graph. Used by tools that must materialize bones in dependency
// order (e.g. exporters assembling a hierarchy tree).
func (s *Snapshot) BoneOrder() ([]string, error) {
	children := make(map[string][]string)
	inDegree := make(map[string]int, len(s.Bones))
	for _, b := range s.Bones {
		inDegree[b.Name] = 0
	}
	for _, b := range s.Bones {
		if b.Parent != nil {
			children[*b.Parent] = append(children[*b.Parent], b.Name)
			inDegree[b.Name]++
		}
	}

	var queue []string
	for _, b := range s.Bones {
		if inDegree[b.Name] == 0 {
			queue = append(queue, b.Name)
		}
	}

	order := make([]string, 0, len(s.Bones))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)
		for _, child := range children[name] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(s.Bones) {
		return nil, fmt.Errorf("circular bone parent reference prevents ordering")
	}
	return order, nil
}
