package graphbuilder

import (
	"sort"
)

// Snapshot is a point-in-time copy of the graph
type Snapshot struct {
	RootID string `json:"rootId"`
	// Visible holds the nodes reachable from the root through expanded
	// nodes, in breadth-first order.
	Visible []Node `json:"visible"`
	// Nodes holds every merged node ordered by level then id, including
	// those under collapsed nodes.
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
	Truncated bool   `json:"truncated"`
}

// Snapshot copies the current graph
func (b *Builder) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		RootID:    b.rootID,
		Nodes:     make([]Node, 0, len(b.nodes)),
		Edges:     make([]Edge, 0, len(b.edges)),
		Truncated: b.truncated,
	}

	adjacency := make(map[string][]string, len(b.nodes))
	for e := range b.edges {
		snap.Edges = append(snap.Edges, e)
		adjacency[e.Low] = append(adjacency[e.Low], e.High)
		adjacency[e.High] = append(adjacency[e.High], e.Low)
	}
	sort.Slice(snap.Edges, func(i, j int) bool {
		if snap.Edges[i].Low != snap.Edges[j].Low {
			return snap.Edges[i].Low < snap.Edges[j].Low
		}
		return snap.Edges[i].High < snap.Edges[j].High
	})

	for _, n := range b.nodes {
		snap.Nodes = append(snap.Nodes, *n)
	}
	sort.Slice(snap.Nodes, func(i, j int) bool {
		if snap.Nodes[i].Level != snap.Nodes[j].Level {
			return snap.Nodes[i].Level < snap.Nodes[j].Level
		}
		return snap.Nodes[i].ID < snap.Nodes[j].ID
	})

	root, ok := b.nodes[b.rootID]
	if !ok {
		return snap
	}

	seen := map[string]bool{root.ID: true}
	queue := []*Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		snap.Visible = append(snap.Visible, *n)
		if !n.Expanded {
			continue
		}

		next := adjacency[n.ID]
		sort.Strings(next)
		for _, id := range next {
			if seen[id] {
				continue
			}
			child, ok := b.nodes[id]
			if !ok {
				continue
			}
			seen[id] = true
			queue = append(queue, child)
		}
	}
	return snap
}
