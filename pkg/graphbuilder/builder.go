// Package graphbuilder assembles a member's network incrementally on the
// client. The graph starts at the viewing member and grows one hop at a time
// as nodes are expanded. Everything here is a disposable cache of the
// connection ledger and can be rebuilt with Initialize at any time.
package graphbuilder

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Shani815/vctalenthub-sub000/domain/connection"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownNode is returned for ids that are not part of the graph
var ErrUnknownNode = errors.New("graphbuilder: unknown node")

// ErrNotInitialized is returned before Initialize has succeeded once
var ErrNotInitialized = errors.New("graphbuilder: graph not initialized")

// Member is a platform member as seen by the graph
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// NeighborFetcher returns the one-hop neighbors of an actor. Fetchers
// surface the ledger's PREMIUM_REQUIRED error unchanged.
type NeighborFetcher interface {
	ListNeighbors(ctx context.Context, actorID string) ([]Member, error)
}

// Node is a member placed in the graph
type Node struct {
	Member
	Level    int    `json:"level"`
	ParentID string `json:"parentId,omitempty"`
	Expanded bool   `json:"expanded"`
}

// Edge is an unordered connection between two nodes
type Edge = connection.PairKey

// Outcome describes what a call to Expand did
type Outcome int

const (
	// Collapsed means the node was expanded and is now collapsed
	Collapsed Outcome = iota
	// Expanded means the neighbors were fetched and merged, or already were
	Expanded
	// InFlight means another expansion of the node has not finished yet
	InFlight
	// Discarded means the node was collapsed or the graph reset while the
	// fetch was running, so its result was dropped
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Collapsed:
		return "collapsed"
	case Expanded:
		return "expanded"
	case InFlight:
		return "in-flight"
	case Discarded:
		return "discarded"
	}
	return "unknown"
}

// Builder holds a single graph rooted at the viewing member
type Builder struct {
	fetcher     NeighborFetcher
	maxNodes    int
	concurrency int
	logger      *zap.Logger

	mu        sync.Mutex
	rootID    string
	nodes     map[string]*Node
	edges     map[Edge]struct{}
	inflight  map[string]uint64
	nextToken uint64
	truncated bool
}

// Option configures a Builder
type Option func(*Builder)

// WithMaxNodes caps the number of nodes. Neighbors discovered past the cap
// are skipped and the snapshot reports Truncated. Zero means no cap.
func WithMaxNodes(n int) Option {
	return func(b *Builder) {
		b.maxNodes = n
	}
}

// WithConcurrency bounds the fetches ExpandToDepth runs at once
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New creates an empty builder
func New(fetcher NeighborFetcher, opts ...Option) *Builder {
	b := &Builder{
		fetcher:     fetcher,
		concurrency: 4,
		logger:      zap.NewNop(),
		nodes:       make(map[string]*Node),
		edges:       make(map[Edge]struct{}),
		inflight:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize discards the current graph, places root at level zero and
// expands it. The root stays in place when its expansion fails so the
// caller can retry with Expand.
func (b *Builder) Initialize(ctx context.Context, root Member) error {
	b.mu.Lock()
	b.rootID = root.ID
	b.nodes = map[string]*Node{root.ID: {Member: root}}
	b.edges = make(map[Edge]struct{})
	b.inflight = make(map[string]uint64)
	b.truncated = false
	b.mu.Unlock()

	_, err := b.open(ctx, root.ID)
	return err
}

// Expand toggles a node. An expanded node is collapsed; its merged nodes and
// edges stay in the graph. A collapsed node has its neighbors fetched and
// merged. A failed fetch leaves the node collapsed.
func (b *Builder) Expand(ctx context.Context, nodeID string) (Outcome, error) {
	b.mu.Lock()
	n, ok := b.nodes[nodeID]
	if !ok {
		b.mu.Unlock()
		return Collapsed, ErrUnknownNode
	}
	if n.Expanded {
		n.Expanded = false
		b.mu.Unlock()
		return Collapsed, nil
	}
	b.mu.Unlock()

	return b.open(ctx, nodeID)
}

// Collapse marks a node collapsed and drops any fetch still running for it
func (b *Builder) Collapse(nodeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[nodeID]
	if !ok {
		return ErrUnknownNode
	}
	n.Expanded = false
	delete(b.inflight, nodeID)
	return nil
}

// ExpandToDepth expands breadth-first until every node closer to the root
// than depth is expanded. Each level is fetched concurrently. The first
// failed fetch stops the walk; nodes expanded before it keep their state.
func (b *Builder) ExpandToDepth(ctx context.Context, depth int) error {
	b.mu.Lock()
	if b.rootID == "" {
		b.mu.Unlock()
		return ErrNotInitialized
	}
	b.mu.Unlock()

	for level := 0; level < depth; level++ {
		worklist := b.collapsedAt(level)
		if len(worklist) == 0 && !b.hasLevel(level+1) {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.concurrency)
		for _, id := range worklist {
			id := id
			g.Go(func() error {
				_, err := b.open(gctx, id)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// open fetches and merges a node's neighbors. It never collapses.
func (b *Builder) open(ctx context.Context, nodeID string) (Outcome, error) {
	b.mu.Lock()
	n, ok := b.nodes[nodeID]
	if !ok {
		b.mu.Unlock()
		return Collapsed, ErrUnknownNode
	}
	if n.Expanded {
		b.mu.Unlock()
		return Expanded, nil
	}
	if _, busy := b.inflight[nodeID]; busy {
		b.mu.Unlock()
		return InFlight, nil
	}
	b.nextToken++
	token := b.nextToken
	b.inflight[nodeID] = token
	b.mu.Unlock()

	neighbors, err := b.fetcher.ListNeighbors(ctx, nodeID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inflight[nodeID] != token {
		b.logger.Debug("Dropping stale neighbor fetch", zap.String("node_id", nodeID))
		return Discarded, nil
	}
	delete(b.inflight, nodeID)

	if err != nil {
		b.logger.Debug("Neighbor fetch failed", zap.String("node_id", nodeID), zap.Error(err))
		return Collapsed, err
	}

	b.mergeLocked(n, neighbors)
	n.Expanded = true
	return Expanded, nil
}

// mergeLocked inserts unseen neighbors one level below parent and records
// every edge. Both steps are no-ops for anything already present.
func (b *Builder) mergeLocked(parent *Node, neighbors []Member) {
	for _, m := range neighbors {
		if m.ID == "" || m.ID == parent.ID {
			continue
		}
		if _, ok := b.nodes[m.ID]; !ok {
			if b.maxNodes > 0 && len(b.nodes) >= b.maxNodes {
				b.truncated = true
				continue
			}
			b.nodes[m.ID] = &Node{
				Member:   m,
				Level:    parent.Level + 1,
				ParentID: parent.ID,
			}
		}
		b.edges[connection.NewPairKey(parent.ID, m.ID)] = struct{}{}
	}
}

func (b *Builder) collapsedAt(level int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ids []string
	for id, n := range b.nodes {
		if n.Level == level && !n.Expanded {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (b *Builder) hasLevel(level int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, n := range b.nodes {
		if n.Level == level {
			return true
		}
	}
	return false
}

// Node returns a copy of a node
func (b *Builder) Node(id string) (Node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// HasEdge reports whether the unordered pair is in the edge set
func (b *Builder) HasEdge(a, c string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.edges[connection.NewPairKey(a, c)]
	return ok
}
