package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAttackerAlwaysReturnsFixedSet(t *testing.T) {
	a, err := NewAttackerStrategy(Static, 10, 3)
	require.NoError(t, err)

	first := a.Choose([]uint64{1, 2, 3, 4, 5}, 1)
	second := a.Choose([]uint64{6, 7, 8, 9, 10}, 2)

	require.Len(t, first, 3)
	require.Len(t, second, 3)
	for i := range first {
		assert.Contains(t, second, i, "Static attacker returned a different set across calls")
	}
}

func TestStaticCoordinationReturnsAtMostOne(t *testing.T) {
	a, err := NewAttackerStrategy(StaticCoordination, 10, 4)
	require.NoError(t, err)

	for session := 1; session <= 20; session++ {
		chosen := a.Choose([]uint64{1, 2, 3}, session)
		assert.LessOrEqual(t, len(chosen), 1, "StaticCoordination must return at most one identity")
	}
}

func TestAdaptiveStopsAfterFSessions(t *testing.T) {
	const f = 3
	a, err := NewAttackerStrategy(Adaptive, 10, f)
	require.NoError(t, err)

	for session := 1; session <= f; session++ {
		chosen := a.Choose([]uint64{1, 2, 3, 4}, session)
		assert.Len(t, chosen, 1, "session %d: expected exactly one victim while session <= f", session)
	}

	chosen := a.Choose([]uint64{1, 2, 3, 4}, f+1)
	assert.Empty(t, chosen, "expected no victim once session > f")
}
