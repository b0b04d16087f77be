package concurrence

import (
	"sort"
)

// PairRate is one unordered pair of members with a defined agreement rate.
type PairRate struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	NameA  string  `json:"name_a"`
	NameB  string  `json:"name_b"`
	Agreed int     `json:"agreed"`
	Total  int     `json:"total"`
	Rate   float64 `json:"rate"`
}

// Pairs returns every pair with a defined rate and at least minSample
// shared cases, highest agreement first. Ties are broken by shared case
// count, then by member order.
func (v *View) Pairs(minSample int) []PairRate {
	var pairs []PairRate
	for i := range v.Members {
		for j := i + 1; j < len(v.Members); j++ {
			cell := v.Cells[i][j]
			rate, ok := cell.Rate()
			if !ok || cell.Total < minSample {
				continue
			}
			pairs = append(pairs, PairRate{
				A:      v.Members[i],
				B:      v.Members[j],
				NameA:  v.Names[i],
				NameB:  v.Names[j],
				Agreed: cell.Agreed,
				Total:  cell.Total,
				Rate:   rate,
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Rate != pairs[j].Rate {
			return pairs[i].Rate > pairs[j].Rate
		}
		return pairs[i].Total > pairs[j].Total
	})

	return pairs
}

// Bloc is a group of members linked by high pairwise agreement.
type Bloc struct {
	Members []string `json:"members"`
	Size    int      `json:"size"`
}

// Blocs groups members into connected components where two members are
// linked when their rate is at least threshold over at least minSample
// shared cases. Singletons are omitted. Blocs are ordered largest first.
func (v *View) Blocs(threshold float64, minSample int) []Bloc {
	n := len(v.Members)
	if n == 0 {
		return nil
	}

	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cell := v.Cells[i][j]
			rate, ok := cell.Rate()
			if !ok || cell.Total < minSample || rate < threshold {
				continue
			}
			adj[i] = append(adj[i], j)
			adj[j] = append(adj[j], i)
		}
	}

	visited := make([]bool, n)
	var blocs []Bloc

	for start := 0; start < n; start++ {
		if visited[start] || len(adj[start]) == 0 {
			visited[start] = true
			continue
		}

		queue := []int{start}
		visited[start] = true
		var component []int

		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			component = append(component, node)

			for _, neighbor := range adj[node] {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}

		// Keep the view's member order inside each bloc.
		sort.Ints(component)
		members := make([]string, len(component))
		for i, idx := range component {
			members[i] = v.Members[idx]
		}
		blocs = append(blocs, Bloc{Members: members, Size: len(members)})
	}

	sort.SliceStable(blocs, func(i, j int) bool {
		return blocs[i].Size > blocs[j].Size
	})

	return blocs
}
