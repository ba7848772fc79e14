// Package graph renders a completed scan as a domain relationship graph:
// one node per registrable domain with its traffic and cookie weight, and
// an edge from the root to every third party it pulled in. Pure functions
// over a finished result; visualization is the consumer's job.
package graph

import (
	"sort"

	"github.com/privacyscope/privacyscope/pkg/domains"
	"github.com/privacyscope/privacyscope/pkg/scan"
)

// Node is one domain in the graph.
type Node struct {
	ID           string `json:"id"`
	Domain       string `json:"domain"`
	IsThirdParty bool   `json:"is_third_party"`
	IsTracker    bool   `json:"is_tracker"`
	RequestCount int    `json:"request_count"`
	Bytes        int64  `json:"bytes"`
	CookiesCount int    `json:"cookies_count"`
}

// Edge links the root node to a third-party node it caused to load.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the full node/edge set for one scan.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build derives the graph from a scan result. The root node folds together
// all first-party aggregates; every third-party aggregate becomes its own
// node plus a root edge. Cookie counts group by the cookie domain's
// registrable domain. Node order: root first, then third parties sorted by
// domain.
func Build(r *scan.Result) *Graph {
	root := domains.RootFromURL(r.FinalURL)
	if root == "" {
		root = domains.RootFromURL(r.URL)
	}

	cookiesByDomain := make(map[string]int, len(r.Cookies))
	for _, c := range r.Cookies {
		cookiesByDomain[domains.Registrable(c.Domain)]++
	}

	rootNode := Node{
		ID:           root,
		Domain:       root,
		CookiesCount: cookiesByDomain[root],
	}

	g := &Graph{}
	var thirdParties []Node
	for _, agg := range r.Domains {
		if !agg.IsThirdParty {
			rootNode.RequestCount += agg.RequestCount
			rootNode.Bytes += agg.TotalBytes
			continue
		}
		thirdParties = append(thirdParties, Node{
			ID:           agg.Domain,
			Domain:       agg.Domain,
			IsThirdParty: true,
			IsTracker:    agg.IsTracker,
			RequestCount: agg.RequestCount,
			Bytes:        agg.TotalBytes,
			CookiesCount: cookiesByDomain[agg.Domain],
		})
	}
	sort.Slice(thirdParties, func(a, b int) bool { return thirdParties[a].Domain < thirdParties[b].Domain })

	g.Nodes = append(g.Nodes, rootNode)
	for _, n := range thirdParties {
		g.Nodes = append(g.Nodes, n)
		g.Edges = append(g.Edges, Edge{Source: root, Target: n.Domain})
	}
	return g
}
