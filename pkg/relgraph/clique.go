package relgraph

import "sort"

// enumerateCliques finds all maximal fully-connected subsets of size >= 3
// using Bron-Kerbosch with pivoting over the dense index representation.
// Candidates are visited in ascending index order, so the enumeration is
// deterministic. Members are returned as sorted bidder ids and cliques
// are ordered by size descending, then lexicographically.
func enumerateCliques(g *indexGraph) [][]string {
	n := len(g.ids)
	adj := make([]map[int]bool, n)
	for i := range adj {
		adj[i] = map[int]bool{}
	}
	for key := range g.edges {
		adj[key[0]][key[1]] = true
		adj[key[1]][key[0]] = true
	}

	var cliques [][]int
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	bronKerbosch(adj, nil, p, nil, &cliques)

	groups := make([][]string, 0, len(cliques))
	for _, c := range cliques {
		if len(c) < 3 {
			continue
		}
		ids := make([]string, len(c))
		for i, node := range c {
			ids[i] = g.ids[node]
		}
		sort.Strings(ids)
		groups = append(groups, ids)
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i]) != len(groups[j]) {
			return len(groups[i]) > len(groups[j])
		}
		for k := range groups[i] {
			if groups[i][k] != groups[j][k] {
				return groups[i][k] < groups[j][k]
			}
		}
		return false
	})
	return groups
}

// bronKerbosch recursively extends clique r with candidates p, excluding
// x. p and x are kept sorted ascending; the pivot is the candidate with
// the most neighbors in p, lowest index on ties.
func bronKerbosch(adj []map[int]bool, r, p, x []int, out *[][]int) {
	if len(p) == 0 && len(x) == 0 {
		clique := make([]int, len(r))
		copy(clique, r)
		*out = append(*out, clique)
		return
	}

	pivot := -1
	best := -1
	for _, candidate := range append(append([]int{}, p...), x...) {
		count := 0
		for _, v := range p {
			if adj[candidate][v] {
				count++
			}
		}
		if count > best {
			best = count
			pivot = candidate
		}
	}

	for _, v := range append([]int{}, p...) {
		if pivot >= 0 && adj[pivot][v] {
			continue
		}
		var nextP, nextX []int
		for _, u := range p {
			if adj[v][u] {
				nextP = append(nextP, u)
			}
		}
		for _, u := range x {
			if adj[v][u] {
				nextX = append(nextX, u)
			}
		}
		bronKerbosch(adj, append(r, v), nextP, nextX, out)

		p = remove(p, v)
		x = insertSorted(x, v)
	}
}

func remove(s []int, v int) []int {
	out := s[:0]
	for _, u := range s {
		if u != v {
			out = append(out, u)
		}
	}
	return out
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
