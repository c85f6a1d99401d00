package manifold

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func growTree(t *testing.T, maxDepth, fanout int) *Tile {
	t.Helper()
	builder, err := NewBuilder(Config{MaxDepth: maxDepth, Fanout: fanout, NodeCap: DefaultNodeCap})
	require.NoError(t, err)
	root, err := builder.Grow(context.Background())
	require.NoError(t, err)
	return root
}

func TestRegistry_Capabilities(t *testing.T) {
	registry := NewRegistry()
	caps := registry.Capabilities()

	assert.Len(t, caps, 3)
	assert.Contains(t, caps, CapabilityNodeDensity)
	assert.Contains(t, caps, CapabilityDepthReach)
	assert.Contains(t, caps, CapabilityFanoutBalance)
}

func TestRegistry_Score(t *testing.T) {
	registry := NewRegistry()
	root := growTree(t, 2, 3)

	density, err := registry.Score(CapabilityNodeDensity, root)
	require.NoError(t, err)
	assert.Equal(t, uint64(13), density)

	reach, err := registry.Score(CapabilityDepthReach, root)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), reach)

	balance, err := registry.Score(CapabilityFanoutBalance, root)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance, "a complete tree branches uniformly")
}

func TestRegistry_Score_SingleLeaf(t *testing.T) {
	registry := NewRegistry()
	leaf := &Tile{Sigil: "leaf"}

	balance, err := registry.Score(CapabilityFanoutBalance, leaf)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance)
}

func TestRegistry_Score_UnknownCapability(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Score(Capability(99), &Tile{})
	assert.Error(t, err)

	_, err = registry.Score(CapabilityNodeDensity, nil)
	assert.Error(t, err)
}

func TestCapability_String(t *testing.T) {
	assert.Equal(t, "node_density", CapabilityNodeDensity.String())
	assert.Equal(t, "depth_reach", CapabilityDepthReach.String())
	assert.Equal(t, "fanout_balance", CapabilityFanoutBalance.String())
}
