package catalog

import (
	"sort"
	"strings"
)

// DependencyEdges returns parent key -> sorted child keys over the product
// type's own enum and lookup attributes. Edges come from DependsOn and from
// lookup links between the lookup types backing two attributes.
func DependencyEdges(pt *ProductType) map[string][]string {
	edges := map[string]map[string]bool{}
	add := func(parent, child string) {
		if edges[parent] == nil {
			edges[parent] = map[string]bool{}
		}
		edges[parent][child] = true
	}
	for _, d := range pt.Attributes {
		if !d.Kind.IsOptionBacked() || d.DependsOnID == nil {
			continue
		}
		if parent := pt.ownAttributeByID(*d.DependsOnID); parent != nil && parent.Kind.IsOptionBacked() {
			add(parent.Key, d.Key)
		}
	}
	for _, p := range pt.Attributes {
		if p.Lookup == nil {
			continue
		}
		for _, c := range pt.Attributes {
			if c.Lookup == nil || c.ID == p.ID {
				continue
			}
			if len(pt.Lookups.LinksBetween(p.Lookup.LookupTypeID, c.Lookup.LookupTypeID)) > 0 {
				add(p.Key, c.Key)
			}
		}
	}
	out := make(map[string][]string, len(edges))
	for parent, children := range edges {
		keys := make([]string, 0, len(children))
		for k := range children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out[parent] = keys
	}
	return out
}

// CheckAcyclic fails with CodeCyclicDependency when the dependency edges of the
// product type contain a cycle. The error names the cycle path.
func CheckAcyclic(pt *ProductType) error {
	edges := DependencyEdges(pt)
	const (
		white = iota
		grey
		black
	)
	color := map[string]int{}
	var stack []string
	var cycle []string

	var visit func(key string) bool
	visit = func(key string) bool {
		color[key] = grey
		stack = append(stack, key)
		for _, next := range edges[key] {
			switch color[next] {
			case grey:
				for i, k := range stack {
					if k == next {
						cycle = append(append([]string(nil), stack[i:]...), next)
						break
					}
				}
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[key] = black
		return false
	}

	roots := make([]string, 0, len(edges))
	for k := range edges {
		roots = append(roots, k)
	}
	sort.Strings(roots)
	for _, k := range roots {
		if color[k] == white && visit(k) {
			return NewRuleError(CodeCyclicDependency, "CheckAcyclic", "attribute dependencies form a cycle",
				"product_type", pt.Key, "cycle", strings.Join(cycle, " -> "))
		}
	}
	return nil
}

// DependencyOrder returns own option-backed attribute keys with every parent
// before its children (Kahn's algorithm, ties broken by position then key).
func DependencyOrder(pt *ProductType) ([]string, error) {
	edges := DependencyEdges(pt)
	var defs []*AttributeDefinition
	for _, d := range pt.Attributes {
		if d.Kind.IsOptionBacked() {
			defs = append(defs, d)
		}
	}
	SortDefinitions(defs)
	rank := make(map[string]int, len(defs))
	inDegree := make(map[string]int, len(defs))
	for i, d := range defs {
		rank[d.Key] = i
		inDegree[d.Key] = 0
	}
	for _, children := range edges {
		for _, c := range children {
			inDegree[c]++
		}
	}

	var queue []string
	for _, d := range defs {
		if inDegree[d.Key] == 0 {
			queue = append(queue, d.Key)
		}
	}
	out := make([]string, 0, len(defs))
	for len(queue) > 0 {
		sort.SliceStable(queue, func(i, j int) bool { return rank[queue[i]] < rank[queue[j]] })
		key := queue[0]
		queue = queue[1:]
		out = append(out, key)
		for _, c := range edges[key] {
			inDegree[c]--
			if inDegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	if len(out) != len(defs) {
		return nil, NewRuleError(CodeCyclicDependency, "DependencyOrder", "attribute dependencies form a cycle", "product_type", pt.Key)
	}
	return out, nil
}
