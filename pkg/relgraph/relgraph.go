// Package relgraph builds the weighted undirected bidder relationship
// graph from contact metadata and the similarity analyzers' outputs, then
// derives communities, maximal cliques, centrality and density from it.
//
// Nodes are small dense integer indices with a side table back to bidder
// ids; edges live in a flat list keyed by (u, v) index pairs. All derived
// orderings are deterministic for a fixed input.
package relgraph

import (
	"sort"
	"strings"

	"github.com/bitshield/procurement/backend/pkg/tender"
)

// BuilderParams configures the edge-forming rules. Zero values fall back
// to the defaults below.
type BuilderParams struct {
	// EmailWeight is the edge weight for a shared email domain (default 0.8).
	EmailWeight float64
	// PhoneWeight is the edge weight for a shared phone number (default 0.9).
	PhoneWeight float64
	// AddressWeight is the edge weight for a shared address (default 1.0).
	AddressWeight float64
	// DocSimThreshold is the minimum document similarity that forms an
	// edge (default 0.7). The similarity itself becomes the edge weight.
	DocSimThreshold float64
	// StyleThreshold is the minimum stylometric similarity that forms an
	// edge (default 0.8).
	StyleThreshold float64
	// MinCollusionSize is the minimum clique size flagged as a suspicious
	// group (default 2; the clique definition itself already requires 3).
	MinCollusionSize int
}

// Builder constructs relationship graphs. It is stateless and safe for
// concurrent use.
type Builder struct {
	emailWeight      float64
	phoneWeight      float64
	addressWeight    float64
	docSimThreshold  float64
	styleThreshold   float64
	minCollusionSize int
}

// NewBuilder creates a Builder from params.
func NewBuilder(params BuilderParams) *Builder {
	b := &Builder{
		emailWeight:      params.EmailWeight,
		phoneWeight:      params.PhoneWeight,
		addressWeight:    params.AddressWeight,
		docSimThreshold:  params.DocSimThreshold,
		styleThreshold:   params.StyleThreshold,
		minCollusionSize: params.MinCollusionSize,
	}
	if b.emailWeight <= 0 {
		b.emailWeight = 0.8
	}
	if b.phoneWeight <= 0 {
		b.phoneWeight = 0.9
	}
	if b.addressWeight <= 0 {
		b.addressWeight = 1.0
	}
	if b.docSimThreshold <= 0 {
		b.docSimThreshold = 0.7
	}
	if b.styleThreshold <= 0 {
		b.styleThreshold = 0.8
	}
	if b.minCollusionSize <= 0 {
		b.minCollusionSize = 2
	}
	return b
}

// indexGraph is the internal dense-index representation.
type indexGraph struct {
	ids   []string       // index -> bidder id, sorted ascending
	index map[string]int // bidder id -> index
	edges map[[2]int]*edgeAccum
}

type edgeAccum struct {
	weight  float64
	reasons map[tender.EdgeReason]bool
}

func newIndexGraph(bidders []tender.Bidder) *indexGraph {
	ids := make([]string, 0, len(bidders))
	seen := map[string]bool{}
	for _, b := range bidders {
		if !seen[b.ID] {
			seen[b.ID] = true
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return &indexGraph{ids: ids, index: index, edges: map[[2]int]*edgeAccum{}}
}

// addEdge collapses multiple rules on the same unordered pair into one
// edge: max weight, union of reasons. Self-edges are dropped.
func (g *indexGraph) addEdge(idA, idB string, weight float64, reason tender.EdgeReason) {
	u, okU := g.index[idA]
	v, okV := g.index[idB]
	if !okU || !okV || u == v {
		return
	}
	if u > v {
		u, v = v, u
	}
	key := [2]int{u, v}
	acc, ok := g.edges[key]
	if !ok {
		acc = &edgeAccum{reasons: map[tender.EdgeReason]bool{}}
		g.edges[key] = acc
	}
	if weight > acc.weight {
		acc.weight = weight
	}
	acc.reasons[reason] = true
}

// adjacency returns per-node weighted neighbor maps.
func (g *indexGraph) adjacency() []map[int]float64 {
	adj := make([]map[int]float64, len(g.ids))
	for i := range adj {
		adj[i] = map[int]float64{}
	}
	for key, acc := range g.edges {
		adj[key[0]][key[1]] = acc.weight
		adj[key[1]][key[0]] = acc.weight
	}
	return adj
}

// Build assembles the relationship graph for the given bidders and the
// two similarity results. Fewer than 2 bidders yields an empty graph,
// not an error. Either analysis may be nil when its stage failed.
func (b *Builder) Build(bidders []tender.Bidder, sim *tender.SimilarityAnalysis, sty *tender.StylometricAnalysis) *tender.GraphAnalysis {
	g := newIndexGraph(bidders)

	result := &tender.GraphAnalysis{
		Nodes:          g.ids,
		Edges:          []tender.Edge{},
		Communities:    [][]string{},
		Cliques:        [][]string{},
		HighRiskGroups: []tender.SuspiciousGroup{},
		Centrality:     []tender.CentralityScore{},
	}
	if len(g.ids) < 2 {
		for _, id := range g.ids {
			result.Communities = append(result.Communities, []string{id})
			result.Centrality = append(result.Centrality, tender.CentralityScore{BidderID: id})
		}
		return result
	}

	b.addContactEdges(g, bidders)
	if sim != nil {
		for _, p := range sim.Pairs {
			if p.Similarity >= b.docSimThreshold {
				g.addEdge(p.BidderA, p.BidderB, p.Similarity, tender.ReasonDocSimilarity)
			}
		}
	}
	if sty != nil {
		for _, p := range sty.Pairs {
			if p.Similarity >= b.styleThreshold {
				g.addEdge(p.BidderA, p.BidderB, p.Similarity, tender.ReasonStylometry)
			}
		}
	}

	result.Edges = flattenEdges(g)
	result.Communities = detectCommunities(g)
	result.Cliques = enumerateCliques(g)
	result.Centrality = degreeCentrality(g)
	result.Density = density(len(g.ids), len(g.edges))
	result.HighRiskGroups = b.highRiskGroups(result.Cliques, result.Communities)
	return result
}

func (b *Builder) addContactEdges(g *indexGraph, bidders []tender.Bidder) {
	for i := 0; i < len(bidders); i++ {
		for j := i + 1; j < len(bidders); j++ {
			pairs := []struct {
				a, b   string
				weight float64
				reason tender.EdgeReason
			}{
				{normalizeEmailDomain(bidders[i].Contact.Email), normalizeEmailDomain(bidders[j].Contact.Email), b.emailWeight, tender.ReasonContactEmail},
				{normalizePhone(bidders[i].Contact.Phone), normalizePhone(bidders[j].Contact.Phone), b.phoneWeight, tender.ReasonContactPhone},
				{normalizeAddress(bidders[i].Contact.Address), normalizeAddress(bidders[j].Contact.Address), b.addressWeight, tender.ReasonContactAddress},
			}
			for _, p := range pairs {
				if p.a != "" && p.a == p.b {
					g.addEdge(bidders[i].ID, bidders[j].ID, p.weight, p.reason)
				}
			}
		}
	}
}

func (b *Builder) highRiskGroups(cliques, communities [][]string) []tender.SuspiciousGroup {
	groups := []tender.SuspiciousGroup{}
	minClique := b.minCollusionSize
	if minClique < 3 {
		minClique = 3
	}
	for _, c := range cliques {
		if len(c) >= minClique {
			groups = append(groups, tender.SuspiciousGroup{Kind: "clique", Members: c, Size: len(c)})
		}
	}
	for _, c := range communities {
		if len(c) >= 3 {
			groups = append(groups, tender.SuspiciousGroup{Kind: "community", Members: c, Size: len(c)})
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Size != groups[j].Size {
			return groups[i].Size > groups[j].Size
		}
		if groups[i].Kind != groups[j].Kind {
			return groups[i].Kind < groups[j].Kind
		}
		return strings.Join(groups[i].Members, ",") < strings.Join(groups[j].Members, ",")
	})
	return groups
}

func flattenEdges(g *indexGraph) []tender.Edge {
	edges := make([]tender.Edge, 0, len(g.edges))
	for key, acc := range g.edges {
		reasons := make([]tender.EdgeReason, 0, len(acc.reasons))
		for r := range acc.reasons {
			reasons = append(reasons, r)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
		edges = append(edges, tender.Edge{
			BidderA: g.ids[key[0]],
			BidderB: g.ids[key[1]],
			Weight:  acc.weight,
			Reasons: reasons,
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].BidderA != edges[j].BidderA {
			return edges[i].BidderA < edges[j].BidderA
		}
		return edges[i].BidderB < edges[j].BidderB
	})
	return edges
}

func degreeCentrality(g *indexGraph) []tender.CentralityScore {
	n := len(g.ids)
	deg := make([]int, n)
	for key := range g.edges {
		deg[key[0]]++
		deg[key[1]]++
	}
	scores := make([]tender.CentralityScore, n)
	for i, id := range g.ids {
		scores[i] = tender.CentralityScore{
			BidderID: id,
			Score:    float64(deg[i]) / float64(n-1),
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].BidderID < scores[j].BidderID
	})
	return scores
}

func density(nodes, edges int) float64 {
	if nodes < 2 {
		return 0
	}
	return float64(edges) / (float64(nodes) * float64(nodes-1) / 2)
}

// normalizeEmailDomain lowercases the part after the last @. Bidders
// sharing a corporate domain are related even with distinct mailboxes.
func normalizeEmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

// normalizePhone keeps digits only, so formatting and country-code
// punctuation differences do not hide a shared number.
func normalizePhone(phone string) string {
	var sb strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// normalizeAddress lowercases, strips punctuation and collapses runs of
// whitespace to a single space.
func normalizeAddress(address string) string {
	var sb strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(address) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '\n' || r == ',' || r == '.' || r == '-' || r == '/':
			if !lastSpace {
				sb.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
