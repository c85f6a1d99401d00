package manifold

import (
	"fmt"

	settler "github.com/mandala-foundation/settler/go"
)

// Capability enumerates the fixed set of novelty scorers. The set is
// closed: scorers are registered at construction and there is no runtime
// string-keyed extension.
type Capability int

const (
	// CapabilityNodeDensity scores by total tile count.
	CapabilityNodeDensity Capability = iota
	// CapabilityDepthReach scores by the deepest leaf level reached.
	CapabilityDepthReach
	// CapabilityFanoutBalance scores how uniformly non-leaf tiles branch,
	// scaled to [0,1000].
	CapabilityFanoutBalance

	capabilityCount
)

func (c Capability) String() string {
	switch c {
	case CapabilityNodeDensity:
		return "node_density"
	case CapabilityDepthReach:
		return "depth_reach"
	case CapabilityFanoutBalance:
		return "fanout_balance"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// ScoreFunc computes a novelty score for a tile tree.
type ScoreFunc func(*Tile) uint64

// Registry holds the scorer for each capability.
type Registry struct {
	scorers [capabilityCount]ScoreFunc
}

// NewRegistry populates the full capability set.
func NewRegistry() *Registry {
	r := &Registry{}
	r.scorers[CapabilityNodeDensity] = scoreNodeDensity
	r.scorers[CapabilityDepthReach] = scoreDepthReach
	r.scorers[CapabilityFanoutBalance] = scoreFanoutBalance
	return r
}

// Capabilities lists every registered capability.
func (r *Registry) Capabilities() []Capability {
	caps := make([]Capability, 0, capabilityCount)
	for c := Capability(0); c < capabilityCount; c++ {
		caps = append(caps, c)
	}
	return caps
}

// Score runs the scorer for a capability against a tile tree.
func (r *Registry) Score(capability Capability, tile *Tile) (uint64, error) {
	if capability < 0 || capability >= capabilityCount {
		return 0, settler.NewVaultError(settler.ErrCodeInvalidDepth,
			fmt.Sprintf("unknown capability %d", int(capability)), nil)
	}
	if tile == nil {
		return 0, settler.NewVaultError(settler.ErrCodeInvalidDepth, "nil tile", nil)
	}
	return r.scorers[capability](tile), nil
}

func scoreNodeDensity(tile *Tile) uint64 {
	return tile.NodeCount()
}

func scoreDepthReach(tile *Tile) uint64 {
	return uint64(tile.DeepestLeaf())
}

// scoreFanoutBalance reports min/max branching across non-leaf tiles,
// scaled so a perfectly uniform tree scores 1000.
func scoreFanoutBalance(tile *Tile) uint64 {
	minFan, maxFan := -1, 0
	walkNonLeaf(tile, func(t *Tile) {
		n := len(t.Children)
		if minFan < 0 || n < minFan {
			minFan = n
		}
		if n > maxFan {
			maxFan = n
		}
	})
	if maxFan == 0 {
		// single-leaf tree: trivially uniform
		return 1000
	}
	return uint64(minFan * 1000 / maxFan)
}

func walkNonLeaf(tile *Tile, visit func(*Tile)) {
	if len(tile.Children) == 0 {
		return
	}
	visit(tile)
	for _, child := range tile.Children {
		walkNonLeaf(child, visit)
	}
}
