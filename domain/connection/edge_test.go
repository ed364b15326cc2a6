package connection

import (
	"testing"
	"time"

	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingEdge(t *testing.T) {
	now := time.Now()

	edge, err := NewPendingEdge("e1", "alice", "bob", now)
	require.NoError(t, err)
	assert.Equal(t, TypePending, edge.Type)
	assert.Equal(t, "alice", edge.FromActorID)
	assert.Equal(t, "bob", edge.ToActorID)

	_, err = NewPendingEdge("e2", "alice", "alice", now)
	assert.True(t, pkgerrors.IsSelfReference(err))

	_, err = NewPendingEdge("e3", "", "bob", now)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestEdgeRespond(t *testing.T) {
	now := time.Now()

	t.Run("recipient accepts", func(t *testing.T) {
		edge, _ := NewPendingEdge("e1", "alice", "bob", now)
		require.NoError(t, edge.Respond("bob", TypeConnected, now))
		assert.Equal(t, TypeConnected, edge.Type)
	})

	t.Run("requester cannot respond", func(t *testing.T) {
		edge, _ := NewPendingEdge("e1", "alice", "bob", now)
		err := edge.Respond("alice", TypeConnected, now)
		assert.True(t, pkgerrors.IsNotFound(err))
		assert.Equal(t, TypePending, edge.Type)
	})

	t.Run("terminal edges do not move", func(t *testing.T) {
		edge, _ := NewPendingEdge("e1", "alice", "bob", now)
		require.NoError(t, edge.Respond("bob", TypeConnected, now))

		err := edge.Respond("bob", TypeRejected, now)
		assert.True(t, pkgerrors.IsInvalidTransition(err))
		assert.Equal(t, TypeConnected, edge.Type)
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		edge, _ := NewPendingEdge("e1", "alice", "bob", now)
		err := edge.Respond("bob", TypePending, now)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("connected")
	require.NoError(t, err)
	assert.Equal(t, TypeConnected, d)

	_, err = ParseDecision("pending")
	assert.Error(t, err)
	_, err = ParseDecision("accepted")
	assert.Error(t, err)
}

func TestPairKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, NewPairKey("a", "b"), NewPairKey("b", "a"))
	assert.Equal(t, "a#b", NewPairKey("b", "a").String())

	edge := &Edge{FromActorID: "zed", ToActorID: "amy"}
	assert.Equal(t, NewPairKey("amy", "zed"), edge.Key())
	assert.Equal(t, "amy", edge.Other("zed"))
	assert.Equal(t, "zed", edge.Other("amy"))
}
