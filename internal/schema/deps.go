package schema

import "sort"

// SortTables orders tables so that for every non-cyclic foreign-key edge
// A->B, B precedes A: inserting rows in the returned order never violates a
// still-enabled foreign key. Tables participating in a reference cycle are
// excluded from the strict order and returned separately; their bulk load
// needs constraint enforcement suspended since no linear order can satisfy
// a cycle.
func SortTables(s Set) (order []string, cyclic []string) {
	graph := make(map[string][]string, len(s))
	for name, t := range s {
		seen := make(map[string]bool)
		for _, fk := range t.ForeignKeys {
			ref := fk.RefTable
			// Self-references constrain rows, not table order.
			if ref == name || seen[ref] {
				continue
			}
			if _, ok := s[ref]; ok {
				graph[name] = append(graph[name], ref)
				seen[ref] = true
			}
		}
		sort.Strings(graph[name])
	}

	var (
		sorted    []string
		stack     []string
		visited   = make(map[string]bool)
		onStack   = make(map[string]bool)
		cyclicSet = make(map[string]bool)
	)

	var visit func(string)
	visit = func(node string) {
		if visited[node] {
			return
		}
		if onStack[node] {
			// Every table on the active recursion path back to node closes
			// the cycle with it.
			for i := len(stack) - 1; i >= 0; i-- {
				cyclicSet[stack[i]] = true
				if stack[i] == node {
					break
				}
			}
			return
		}
		onStack[node] = true
		stack = append(stack, node)
		for _, dep := range graph[node] {
			visit(dep)
		}
		stack = stack[:len(stack)-1]
		delete(onStack, node)
		visited[node] = true
		sorted = append(sorted, node)
	}

	for _, name := range s.Names() {
		visit(name)
	}

	for _, name := range sorted {
		if !cyclicSet[name] {
			order = append(order, name)
		}
	}
	cyclic = make([]string, 0, len(cyclicSet))
	for name := range cyclicSet {
		cyclic = append(cyclic, name)
	}
	sort.Strings(cyclic)
	return order, cyclic
}
