package geometry

import (
	"sort"
	"time"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/log"
)

const (
	// Number of centroid bins evaluated per axis by the SAH builder.
	sahBins = 12

	// Nodes with more primitives than this are split by median when SAH
	// cannot find a cheaper partition.
	maxLeafSize = 16

	// DefaultLeafThreshold is the primitive count at or below which a leaf is formed.
	DefaultLeafThreshold = 4
)

var logger = log.New("geometry")

// BVHNode is either a leaf (Primitives set, no children) or an internal
// node (two children, no primitives) whose box is the union of its children.
type BVHNode struct {
	BoundingBox core.AABB
	Left        *BVHNode
	Right       *BVHNode
	Primitives  []int // indices into the BVH primitive slice (leaves only)
}

// IsLeaf reports whether the node stores primitives
func (n *BVHNode) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// BVH is a bounding volume hierarchy over an arena of primitives.
// It is immutable after construction and safe for concurrent queries.
type BVH struct {
	Root       *BVHNode
	primitives []Primitive
	stats      BVHStats
}

// BVHStats describes the shape of a built hierarchy
type BVHStats struct {
	Nodes      int
	Leaves     int
	MaxDepth   int
	MaxLeaf    int
	Primitives int
}

type buildItem struct {
	index    int
	bbox     core.AABB
	centroid core.Vec3
}

// NewBVH builds a hierarchy over primitives; a leafThreshold <= 0 selects the default
func NewBVH(primitives []Primitive, leafThreshold int) *BVH {
	if leafThreshold <= 0 {
		leafThreshold = DefaultLeafThreshold
	}
	bvh := &BVH{primitives: primitives}
	if len(primitives) == 0 {
		return bvh
	}

	items := make([]buildItem, len(primitives))
	for i, p := range primitives {
		box := p.BoundingBox()
		items[i] = buildItem{index: i, bbox: box, centroid: box.Center()}
	}

	start := time.Now()
	bvh.Root = bvh.build(items, 0, leafThreshold)
	bvh.stats.Primitives = len(primitives)
	logger.Debugf(
		"BVH build time: %d ms, primitives: %d, nodes: %d, leaves: %d, maxDepth: %d",
		time.Since(start).Milliseconds(), len(primitives), bvh.stats.Nodes, bvh.stats.Leaves, bvh.stats.MaxDepth,
	)
	return bvh
}

// Stats returns build statistics
func (bvh *BVH) Stats() BVHStats {
	return bvh.stats
}

// Primitive returns the primitive stored at index
func (bvh *BVH) Primitive(index int) Primitive {
	return bvh.primitives[index]
}

// Bounds returns the world bounds, or an empty box for an empty hierarchy
func (bvh *BVH) Bounds() core.AABB {
	if bvh.Root == nil {
		return core.EmptyAABB()
	}
	return bvh.Root.BoundingBox
}

func (bvh *BVH) build(items []buildItem, depth int, leafThreshold int) *BVHNode {
	bvh.stats.Nodes++
	if depth > bvh.stats.MaxDepth {
		bvh.stats.MaxDepth = depth
	}

	bounds := core.EmptyAABB()
	centroidBounds := core.EmptyAABB()
	for _, it := range items {
		bounds = bounds.Union(it.bbox)
		centroidBounds = centroidBounds.Extend(it.centroid)
	}

	if len(items) <= leafThreshold {
		return bvh.leaf(bounds, items)
	}

	axis, split, ok := sahSplit(items, bounds, centroidBounds)
	var left, right []buildItem
	if ok {
		left, right = partition(items, axis, split)
	}
	if !ok || len(left) == 0 || len(right) == 0 {
		if len(items) <= maxLeafSize {
			return bvh.leaf(bounds, items)
		}
		left, right = medianSplit(items, centroidBounds.LongestAxis())
	}

	return &BVHNode{
		BoundingBox: bounds,
		Left:        bvh.build(left, depth+1, leafThreshold),
		Right:       bvh.build(right, depth+1, leafThreshold),
	}
}

func (bvh *BVH) leaf(bounds core.AABB, items []buildItem) *BVHNode {
	bvh.stats.Leaves++
	if len(items) > bvh.stats.MaxLeaf {
		bvh.stats.MaxLeaf = len(items)
	}
	indices := make([]int, len(items))
	for i, it := range items {
		indices[i] = it.index
	}
	return &BVHNode{BoundingBox: bounds, Primitives: indices}
}

// sahSplit scores binned centroid splits by count × surface area on every
// axis and returns the best one if it beats keeping the node as a leaf.
func sahSplit(items []buildItem, bounds, centroidBounds core.AABB) (int, float64, bool) {
	type bin struct {
		count int
		box   core.AABB
	}

	bestCost := float64(len(items)) * bounds.SurfaceArea()
	bestAxis, bestSplit, found := -1, 0.0, false

	for axis := 0; axis < 3; axis++ {
		lo, hi := centroidBounds.Min.Axis(axis), centroidBounds.Max.Axis(axis)
		if hi-lo < 1e-12 {
			continue
		}

		var bins [sahBins]bin
		for i := range bins {
			bins[i].box = core.EmptyAABB()
		}
		scale := float64(sahBins) / (hi - lo)
		for _, it := range items {
			b := min(int((it.centroid.Axis(axis)-lo)*scale), sahBins-1)
			bins[b].count++
			bins[b].box = bins[b].box.Union(it.bbox)
		}

		for s := 1; s < sahBins; s++ {
			leftBox, rightBox := core.EmptyAABB(), core.EmptyAABB()
			leftCount, rightCount := 0, 0
			for i := 0; i < s; i++ {
				leftCount += bins[i].count
				leftBox = leftBox.Union(bins[i].box)
			}
			for i := s; i < sahBins; i++ {
				rightCount += bins[i].count
				rightBox = rightBox.Union(bins[i].box)
			}
			if leftCount == 0 || rightCount == 0 {
				continue
			}

			cost := float64(leftCount)*leftBox.SurfaceArea() + float64(rightCount)*rightBox.SurfaceArea()
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestSplit = lo + float64(s)/scale
				found = true
			}
		}
	}
	return bestAxis, bestSplit, found
}

func partition(items []buildItem, axis int, split float64) ([]buildItem, []buildItem) {
	var left, right []buildItem
	for _, it := range items {
		if it.centroid.Axis(axis) < split {
			left = append(left, it)
		} else {
			right = append(right, it)
		}
	}
	return left, right
}

func medianSplit(items []buildItem, axis int) ([]buildItem, []buildItem) {
	sorted := make([]buildItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].centroid.Axis(axis) < sorted[j].centroid.Axis(axis)
	})
	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

// Intersect finds the nearest hit along the ray. For shadow rays the first
// hit found is returned instead.
func (bvh *BVH) Intersect(ray core.Ray, its *Intersection) bool {
	if bvh.Root == nil {
		return false
	}
	return bvh.intersectNode(bvh.Root, &ray, its)
}

// Occluded reports whether anything lies on the ray's interval
func (bvh *BVH) Occluded(ray core.Ray) bool {
	ray.Shadow = true
	var its Intersection
	return bvh.Intersect(ray, &its)
}

func (bvh *BVH) intersectNode(node *BVHNode, ray *core.Ray, its *Intersection) bool {
	if !node.BoundingBox.Hit(*ray, ray.TMin, ray.TMax) {
		return false
	}

	if node.IsLeaf() {
		hitAnything := false
		for _, idx := range node.Primitives {
			if bvh.primitives[idx].Intersect(*ray, its) {
				its.PrimitiveID = idx
				hitAnything = true
				if ray.Shadow {
					return true
				}
				ray.TMax = its.T
			}
		}
		return hitAnything
	}

	hitLeft := bvh.intersectNode(node.Left, ray, its)
	if hitLeft && ray.Shadow {
		return true
	}
	hitRight := bvh.intersectNode(node.Right, ray, its)
	return hitLeft || hitRight
}
