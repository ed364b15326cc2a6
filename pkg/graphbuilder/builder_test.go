package graphbuilder

import (
	"context"
	"errors"
	"sync"
	"testing"

	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu       sync.Mutex
	graph    map[string][]string
	failures map[string]error
	gates    map[string]chan struct{}
	started  chan string
	calls    map[string]int
}

func newFakeFetcher(graph map[string][]string) *fakeFetcher {
	return &fakeFetcher{
		graph:    graph,
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		started:  make(chan string, 16),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) ListNeighbors(ctx context.Context, actorID string) ([]Member, error) {
	f.mu.Lock()
	f.calls[actorID]++
	gate := f.gates[actorID]
	err := f.failures[actorID]
	ids := f.graph[actorID]
	f.mu.Unlock()

	if gate != nil {
		f.started <- actorID
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, Member{ID: id, DisplayName: "Name of " + id, Role: "individual"})
	}
	return out, nil
}

func (f *fakeFetcher) block(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[id] = gate
	return gate
}

func (f *fakeFetcher) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, id)
		return
	}
	f.failures[id] = err
}

// network:
//
//	a - b - d - f
//	 \
//	  c - e
func network() map[string][]string {
	return map[string][]string{
		"a": {"b", "c"},
		"b": {"a", "d"},
		"c": {"a", "e"},
		"d": {"b", "f"},
		"e": {"c"},
		"f": {"d"},
	}
}

func nodeIDs(nodes []Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func root() Member { return Member{ID: "a", DisplayName: "Name of a", Role: "individual"} }

func TestInitialize_ExpandsRoot(t *testing.T) {
	b := New(newFakeFetcher(network()))
	require.NoError(t, b.Initialize(context.Background(), root()))

	snap := b.Snapshot()
	assert.Equal(t, "a", snap.RootID)
	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(snap.Nodes))
	assert.Equal(t, []Edge{{Low: "a", High: "b"}, {Low: "a", High: "c"}}, snap.Edges)

	rootNode, _ := b.Node("a")
	assert.True(t, rootNode.Expanded)
	assert.Equal(t, 0, rootNode.Level)

	child, _ := b.Node("b")
	assert.Equal(t, 1, child.Level)
	assert.Equal(t, "a", child.ParentID)
	assert.False(t, child.Expanded)
}

func TestInitialize_ResetsPreviousGraph(t *testing.T) {
	b := New(newFakeFetcher(network()))
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))
	_, err := b.Expand(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, b.Initialize(ctx, Member{ID: "e"}))
	snap := b.Snapshot()
	assert.Equal(t, []string{"e", "c"}, nodeIDs(snap.Nodes))
	assert.Len(t, snap.Edges, 1)
}

func TestExpand_CollapseAndReexpandIsIdempotent(t *testing.T) {
	b := New(newFakeFetcher(network()))
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))

	outcome, err := b.Expand(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, Expanded, outcome)
	first := b.Snapshot()

	outcome, err = b.Expand(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, Collapsed, outcome)
	collapsed := b.Snapshot()
	assert.Equal(t, nodeIDs(first.Nodes), nodeIDs(collapsed.Nodes), "collapse keeps merged nodes")
	assert.Equal(t, first.Edges, collapsed.Edges, "collapse keeps merged edges")

	outcome, err = b.Expand(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, Expanded, outcome)
	again := b.Snapshot()
	assert.Equal(t, nodeIDs(first.Nodes), nodeIDs(again.Nodes))
	assert.Equal(t, first.Edges, again.Edges)
}

func TestExpand_EdgeDiscoveredFromBothEndsIsStoredOnce(t *testing.T) {
	b := New(newFakeFetcher(network()))
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))

	_, err := b.Expand(ctx, "b")
	require.NoError(t, err)

	count := 0
	for _, e := range b.Snapshot().Edges {
		if e == (Edge{Low: "a", High: "b"}) {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.True(t, b.HasEdge("b", "a"))
}

func TestExpand_KeepsFirstDiscoveryLevel(t *testing.T) {
	graph := network()
	graph["c"] = []string{"a", "e", "b"}
	b := New(newFakeFetcher(graph))
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))

	_, err := b.Expand(ctx, "c")
	require.NoError(t, err)

	n, _ := b.Node("b")
	assert.Equal(t, 1, n.Level)
	assert.Equal(t, "a", n.ParentID)
	assert.True(t, b.HasEdge("b", "c"))
}

func TestExpand_UnknownNode(t *testing.T) {
	b := New(newFakeFetcher(network()))
	require.NoError(t, b.Initialize(context.Background(), root()))

	_, err := b.Expand(context.Background(), "zz")
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.ErrorIs(t, b.Collapse("zz"), ErrUnknownNode)
}

func TestExpand_FailedFetchLeavesNodeCollapsed(t *testing.T) {
	fetcher := newFakeFetcher(network())
	b := New(fetcher)
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))

	boom := errors.New("network down")
	fetcher.fail("b", boom)
	_, err := b.Expand(ctx, "b")
	assert.ErrorIs(t, err, boom)

	n, _ := b.Node("b")
	assert.False(t, n.Expanded)
	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(b.Snapshot().Nodes))

	fetcher.fail("b", nil)
	outcome, err := b.Expand(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, Expanded, outcome)
}

func TestInitialize_PremiumRequired(t *testing.T) {
	fetcher := newFakeFetcher(network())
	fetcher.fail("a", pkgerrors.NewPremiumRequiredError("browsing connections"))
	b := New(fetcher)

	err := b.Initialize(context.Background(), root())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPremiumRequired(err))

	snap := b.Snapshot()
	assert.Equal(t, []string{"a"}, nodeIDs(snap.Visible))
	assert.Empty(t, snap.Edges)
}

func TestExpand_SecondCallWhileInFlightIsNoop(t *testing.T) {
	fetcher := newFakeFetcher(network())
	b := New(fetcher)
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))

	gate := fetcher.block("b")
	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := b.Expand(ctx, "b")
		done <- outcome
	}()
	<-fetcher.started

	outcome, err := b.Expand(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, InFlight, outcome)

	close(gate)
	assert.Equal(t, Expanded, <-done)
	assert.Equal(t, 1, fetcher.calls["b"])
}

func TestCollapse_DropsInFlightFetch(t *testing.T) {
	fetcher := newFakeFetcher(network())
	b := New(fetcher)
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))

	gate := fetcher.block("b")
	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := b.Expand(ctx, "b")
		done <- outcome
	}()
	<-fetcher.started

	require.NoError(t, b.Collapse("b"))
	close(gate)

	assert.Equal(t, Discarded, <-done)
	_, merged := b.Node("d")
	assert.False(t, merged, "stale result must not be merged")
	n, _ := b.Node("b")
	assert.False(t, n.Expanded)
}

func TestInitialize_DropsFetchFromPreviousGraph(t *testing.T) {
	fetcher := newFakeFetcher(network())
	b := New(fetcher)
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))

	gate := fetcher.block("b")
	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := b.Expand(ctx, "b")
		done <- outcome
	}()
	<-fetcher.started

	require.NoError(t, b.Initialize(ctx, Member{ID: "c"}))
	close(gate)

	assert.Equal(t, Discarded, <-done)
	_, merged := b.Node("d")
	assert.False(t, merged, "a fetch from the previous graph must not be merged")
	_, kept := b.Node("b")
	assert.False(t, kept)

	snap := b.Snapshot()
	assert.Equal(t, "c", snap.RootID)
	assert.ElementsMatch(t, []string{"c", "a", "e"}, nodeIDs(snap.Nodes))
	assert.ElementsMatch(t, []Edge{{Low: "a", High: "c"}, {Low: "c", High: "e"}}, snap.Edges)
}

func TestWithMaxNodes_Truncates(t *testing.T) {
	b := New(newFakeFetcher(network()), WithMaxNodes(2))
	require.NoError(t, b.Initialize(context.Background(), root()))

	snap := b.Snapshot()
	assert.True(t, snap.Truncated)
	assert.Equal(t, []string{"a", "b"}, nodeIDs(snap.Nodes))
	assert.Equal(t, []Edge{{Low: "a", High: "b"}}, snap.Edges)
}

func TestExpandToDepth(t *testing.T) {
	fetcher := newFakeFetcher(network())
	b := New(fetcher, WithConcurrency(2))
	ctx := context.Background()

	assert.ErrorIs(t, b.ExpandToDepth(ctx, 2), ErrNotInitialized)

	require.NoError(t, b.Initialize(ctx, root()))
	require.NoError(t, b.ExpandToDepth(ctx, 2))

	snap := b.Snapshot()
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, nodeIDs(snap.Nodes))
	for _, id := range []string{"a", "b", "c"} {
		n, _ := b.Node(id)
		assert.True(t, n.Expanded, id)
	}
	for _, id := range []string{"d", "e"} {
		n, _ := b.Node(id)
		assert.False(t, n.Expanded, id)
		assert.Equal(t, 2, n.Level)
	}
	assert.Equal(t, 1, fetcher.calls["a"], "already expanded nodes are not refetched")

	require.NoError(t, b.ExpandToDepth(ctx, 10))
	assert.Len(t, b.Snapshot().Nodes, 6)
}

func TestExpandToDepth_StopsOnFailure(t *testing.T) {
	fetcher := newFakeFetcher(network())
	b := New(fetcher)
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))

	fetcher.fail("c", pkgerrors.NewPremiumRequiredError("browsing connections"))
	err := b.ExpandToDepth(ctx, 3)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPremiumRequired(err))

	n, _ := b.Node("c")
	assert.False(t, n.Expanded)
}

func TestSnapshot_VisibleStopsAtCollapsedNodes(t *testing.T) {
	b := New(newFakeFetcher(network()))
	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx, root()))
	require.NoError(t, b.ExpandToDepth(ctx, 2))

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, nodeIDs(b.Snapshot().Visible))

	require.NoError(t, b.Collapse("b"))
	snap := b.Snapshot()
	assert.Equal(t, []string{"a", "b", "c", "e"}, nodeIDs(snap.Visible))
	assert.Len(t, snap.Nodes, 5, "collapsed history stays merged")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "expanded", Expanded.String())
	assert.Equal(t, "in-flight", InFlight.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
