package relgraph

import "sort"

// detectCommunities partitions the graph by greedy modularity
// maximization: every node starts as its own community and the merge with
// the best positive modularity gain is applied until no merge improves
// modularity. Ties are broken by the lowest community index pair, never
// by map iteration order, so a fixed input always yields the same
// partition. Isolated nodes stay singleton communities.
func detectCommunities(g *indexGraph) [][]string {
	n := len(g.ids)
	if n == 0 {
		return [][]string{}
	}

	// Total edge weight and per-node weighted degree.
	var m float64
	degree := make([]float64, n)
	for key, acc := range g.edges {
		m += acc.weight
		degree[key[0]] += acc.weight
		degree[key[1]] += acc.weight
	}

	// community[i] is the community id of node i; communities are keyed
	// by their lowest ever member index.
	community := make([]int, n)
	members := make(map[int][]int, n)
	totalDeg := make(map[int]float64, n)
	for i := 0; i < n; i++ {
		community[i] = i
		members[i] = []int{i}
		totalDeg[i] = degree[i]
	}

	if m == 0 {
		return communityIDs(g, members)
	}

	// between[a][b] is the total edge weight between communities a < b.
	between := map[[2]int]float64{}
	for key, acc := range g.edges {
		between[key] += acc.weight
	}

	for {
		bestGain := 0.0
		var bestPair [2]int
		found := false

		pairs := make([][2]int, 0, len(between))
		for pair := range between {
			pairs = append(pairs, pair)
		}
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i][0] != pairs[j][0] {
				return pairs[i][0] < pairs[j][0]
			}
			return pairs[i][1] < pairs[j][1]
		})

		for _, pair := range pairs {
			w := between[pair]
			gain := w/m - totalDeg[pair[0]]*totalDeg[pair[1]]/(2*m*m)
			if gain > bestGain {
				bestGain = gain
				bestPair = pair
				found = true
			}
		}
		if !found {
			break
		}

		// Merge the higher-index community into the lower one.
		a, b := bestPair[0], bestPair[1]
		for _, node := range members[b] {
			community[node] = a
		}
		members[a] = append(members[a], members[b]...)
		totalDeg[a] += totalDeg[b]
		delete(members, b)
		delete(totalDeg, b)

		// Re-route b's inter-community weights to a.
		rerouted := map[[2]int]float64{}
		for pair, w := range between {
			u, v := pair[0], pair[1]
			if u == b {
				u = a
			}
			if v == b {
				v = a
			}
			if u == v {
				continue
			}
			if u > v {
				u, v = v, u
			}
			rerouted[[2]int{u, v}] += w
		}
		between = rerouted
	}

	return communityIDs(g, members)
}

// communityIDs converts index-based communities to sorted bidder id
// groups, ordered by each group's first member.
func communityIDs(g *indexGraph, members map[int][]int) [][]string {
	groups := make([][]string, 0, len(members))
	for _, nodes := range members {
		ids := make([]string, 0, len(nodes))
		for _, node := range nodes {
			ids = append(ids, g.ids[node])
		}
		sort.Strings(ids)
		groups = append(groups, ids)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}
