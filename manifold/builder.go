// Package manifold builds bounded recursive tile trees for telemetry and
// novelty scoring. Tiles form a strict owner-to-child tree: children never
// reference their parent and every child sits one level deeper, so the
// structure cannot cycle and teardown is a plain release of the root.
package manifold

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	settler "github.com/mandala-foundation/settler/go"
)

const (
	// DefaultFanout is the number of children grown under each non-leaf tile.
	DefaultFanout = 7
	// DefaultMaxDepth is the default growth bound.
	DefaultMaxDepth = 7
	// MaxDepthLimit caps any configured depth.
	MaxDepthLimit = 16
	// DefaultNodeCap bounds total tree size. Chosen so the default
	// fanout/depth pair fits with little headroom; one extra level of
	// depth 7 growth trips it.
	DefaultNodeCap = 1 << 20
	// DefaultSigil labels the root tile when none is configured.
	DefaultSigil = "mandala"
)

// Tile is one node of the recursive telemetry structure.
type Tile struct {
	Sigil    string  `json:"sigil"`
	Depth    int     `json:"depth"`
	Children []*Tile `json:"children,omitempty"`
}

// NodeCount returns the total number of tiles in the subtree rooted here.
func (t *Tile) NodeCount() uint64 {
	count := uint64(1)
	for _, child := range t.Children {
		count += child.NodeCount()
	}
	return count
}

// DeepestLeaf returns the maximum depth reached below this tile.
func (t *Tile) DeepestLeaf() int {
	deepest := t.Depth
	for _, child := range t.Children {
		if d := child.DeepestLeaf(); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Config holds the growth bounds for a Builder.
type Config struct {
	MaxDepth int
	Fanout   int
	NodeCap  uint64
	Sigil    string
}

// DefaultConfig returns the default growth bounds.
func DefaultConfig() Config {
	return Config{
		MaxDepth: DefaultMaxDepth,
		Fanout:   DefaultFanout,
		NodeCap:  DefaultNodeCap,
		Sigil:    DefaultSigil,
	}
}

// Builder grows tile trees under a depth bound and a global node cap.
// A Builder is immutable after construction and safe for concurrent use.
type Builder struct {
	maxDepth int
	fanout   int
	nodeCap  uint64
	sigil    string
}

// NewBuilder validates the bounds and creates a builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.MaxDepth < 0 || cfg.MaxDepth > MaxDepthLimit {
		return nil, settler.NewVaultError(settler.ErrCodeInvalidDepth,
			fmt.Sprintf("max depth must be in [0,%d], got %d", MaxDepthLimit, cfg.MaxDepth), nil)
	}
	if cfg.Fanout < 1 {
		return nil, settler.NewVaultError(settler.ErrCodeInvalidDepth,
			fmt.Sprintf("fanout must be positive, got %d", cfg.Fanout), nil)
	}
	if cfg.NodeCap == 0 {
		return nil, settler.NewVaultError(settler.ErrCodeManifoldOverflow,
			"node cap must be positive", nil)
	}
	sigil := cfg.Sigil
	if sigil == "" {
		sigil = DefaultSigil
	}
	return &Builder{
		maxDepth: cfg.MaxDepth,
		fanout:   cfg.Fanout,
		nodeCap:  cfg.NodeCap,
		sigil:    sigil,
	}, nil
}

// ExpectedNodeCount returns the total tree size for a fanout/depth pair:
// the sum of fanout^i for i in [0, depth]. Saturates at MaxUint64. Useful
// for sizing NodeCap against intended growth bounds.
func ExpectedNodeCount(fanout, depth int) uint64 {
	total := uint64(0)
	layer := uint64(1)
	for i := 0; i <= depth; i++ {
		if total > math.MaxUint64-layer {
			return math.MaxUint64
		}
		total += layer
		if layer > math.MaxUint64/uint64(fanout) {
			layer = math.MaxUint64
		} else {
			layer *= uint64(fanout)
		}
	}
	return total
}

// Grow builds a complete tile tree from depth 0. Every tile above the depth
// bound has exactly fanout children; tiles at the bound are leaves. Growth
// fails with manifold_overflow when the tree would exceed the node cap, and
// the partial tree is discarded. Subtrees under the root grow concurrently;
// the node cap is enforced across branches by a shared atomic counter.
func (b *Builder) Grow(ctx context.Context) (*Tile, error) {
	var count atomic.Uint64
	return b.grow(ctx, 0, b.sigil, &count)
}

func (b *Builder) grow(ctx context.Context, depth int, sigil string, count *atomic.Uint64) (*Tile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count.Add(1) > b.nodeCap {
		return nil, settler.NewVaultError(settler.ErrCodeManifoldOverflow,
			"node cap exceeded during growth",
			map[string]interface{}{"nodeCap": b.nodeCap})
	}

	tile := &Tile{Sigil: sigil, Depth: depth}
	if depth >= b.maxDepth {
		return tile, nil
	}

	tile.Children = make([]*Tile, b.fanout)

	if depth == 0 {
		// Children are exclusively owned and independent, so the top-level
		// subtrees grow in parallel.
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < b.fanout; i++ {
			i := i
			g.Go(func() error {
				child, err := b.grow(gctx, depth+1, childSigil(sigil, i), count)
				if err != nil {
					return err
				}
				tile.Children[i] = child
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return tile, nil
	}

	for i := 0; i < b.fanout; i++ {
		child, err := b.grow(ctx, depth+1, childSigil(sigil, i), count)
		if err != nil {
			return nil, err
		}
		tile.Children[i] = child
	}
	return tile, nil
}

func childSigil(parent string, index int) string {
	return fmt.Sprintf("%s/%d", parent, index)
}
