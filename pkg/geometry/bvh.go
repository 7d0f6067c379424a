package geometry

import (
	"github.com/df07/go-restir-passes/pkg/core"
)

// Hit identifies the closest intersection along a ray: which mesh instance and
// triangle was hit and where on the triangle.
type Hit struct {
	T           float64 // Parameter t along the ray
	InstanceID  int     // Index of the mesh in the scene
	PrimitiveID int     // Index of the triangle within the mesh
	B1, B2      float64 // Barycentric weights of the triangle's V1 and V2
}

// primitiveRef is a triangle reference stored in BVH leaves
type primitiveRef struct {
	instance  int
	primitive int
	triangle  Triangle
	bbox      AABB
}

// BVHNode represents a node in the Bounding Volume Hierarchy
type BVHNode struct {
	BoundingBox AABB
	Left        *BVHNode
	Right       *BVHNode
	prims       []primitiveRef // Triangles for leaf nodes (nil for internal nodes)
}

// BVH represents a Bounding Volume Hierarchy over every triangle of a set of meshes
type BVH struct {
	Root   *BVHNode
	Center core.Vec3 // Scene center
	Radius float64   // Scene bounding sphere radius
}

// Leaf threshold: if we have this many or fewer triangles, store them in a leaf node
const leafThreshold = 8

// NewBVH constructs a BVH from the triangles of the given meshes.
// The instance id of a triangle is the index of its mesh in the slice.
func NewBVH(meshes []*Mesh) *BVH {
	var prims []primitiveRef
	for instance, mesh := range meshes {
		for prim := 0; prim < mesh.TriangleCount(); prim++ {
			tri := mesh.Triangle(prim)
			prims = append(prims, primitiveRef{
				instance:  instance,
				primitive: prim,
				triangle:  tri,
				bbox:      tri.BoundingBox(),
			})
		}
	}

	if len(prims) == 0 {
		return &BVH{Root: nil, Center: core.Vec3{}, Radius: 0}
	}

	root := buildBVH(prims)
	center := root.BoundingBox.Center()
	return &BVH{
		Root:   root,
		Center: center,
		Radius: root.BoundingBox.Max.Subtract(center).Length(),
	}
}

// buildBVH recursively builds the BVH using median splits along the longest axis
func buildBVH(prims []primitiveRef) *BVHNode {
	boundingBox := prims[0].bbox
	for i := 1; i < len(prims); i++ {
		boundingBox = boundingBox.Union(prims[i].bbox)
	}

	if len(prims) <= leafThreshold {
		return &BVHNode{BoundingBox: boundingBox, prims: prims}
	}

	axis := boundingBox.LongestAxis()
	minVal, maxVal := axisComponent(boundingBox.Min, axis), axisComponent(boundingBox.Max, axis)
	if maxVal <= minVal {
		return &BVHNode{BoundingBox: boundingBox, prims: prims}
	}
	splitPos := (minVal + maxVal) * 0.5

	var left, right []primitiveRef
	for _, p := range prims {
		if axisComponent(p.bbox.Center(), axis) < splitPos {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	// Ensure we don't create empty partitions
	if len(left) == 0 || len(right) == 0 {
		return &BVHNode{BoundingBox: boundingBox, prims: prims}
	}

	return &BVHNode{
		BoundingBox: boundingBox,
		Left:        buildBVH(left),
		Right:       buildBVH(right),
	}
}

// Hit finds the closest intersection in (tMin, tMax)
func (bvh *BVH) Hit(ray core.Ray, tMin, tMax float64) (Hit, bool) {
	var hit Hit
	if bvh.Root == nil {
		return hit, false
	}
	found := bvh.hitNode(bvh.Root, ray, tMin, tMax, &hit)
	return hit, found
}

// hitNode recursively tests ray intersection with BVH nodes
func (bvh *BVH) hitNode(node *BVHNode, ray core.Ray, tMin, tMax float64, hit *Hit) bool {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return false
	}

	if node.prims != nil {
		hitAnything := false
		closestSoFar := tMax
		for _, p := range node.prims {
			if t, b1, b2, ok := p.triangle.Hit(ray, tMin, closestSoFar); ok {
				hitAnything = true
				closestSoFar = t
				*hit = Hit{T: t, InstanceID: p.instance, PrimitiveID: p.primitive, B1: b1, B2: b2}
			}
		}
		return hitAnything
	}

	hitAnything := false
	closestSoFar := tMax
	if node.Left != nil && bvh.hitNode(node.Left, ray, tMin, closestSoFar, hit) {
		hitAnything = true
		closestSoFar = hit.T
	}
	if node.Right != nil && bvh.hitNode(node.Right, ray, tMin, closestSoFar, hit) {
		hitAnything = true
	}
	return hitAnything
}

// Occluded reports whether anything blocks the ray in (tMin, tMax). It stops at the first hit.
func (bvh *BVH) Occluded(ray core.Ray, tMin, tMax float64) bool {
	if bvh.Root == nil {
		return false
	}
	return bvh.occludedNode(bvh.Root, ray, tMin, tMax)
}

func (bvh *BVH) occludedNode(node *BVHNode, ray core.Ray, tMin, tMax float64) bool {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return false
	}
	if node.prims != nil {
		for _, p := range node.prims {
			if _, _, _, ok := p.triangle.Hit(ray, tMin, tMax); ok {
				return true
			}
		}
		return false
	}
	return (node.Left != nil && bvh.occludedNode(node.Left, ray, tMin, tMax)) ||
		(node.Right != nil && bvh.occludedNode(node.Right, ray, tMin, tMax))
}

// BoundingBox returns the overall bounding box of the BVH
func (bvh *BVH) BoundingBox() AABB {
	if bvh.Root == nil {
		return AABB{}
	}
	return bvh.Root.BoundingBox
}
