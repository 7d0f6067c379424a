package gbuffer

import "math"

// HitInfo identifies the triangle visible through a pixel
type HitInfo struct {
	InstanceID  int
	PrimitiveID int
	B1, B2      float32 // Barycentric weights of the triangle's V1 and V2
}

// Pack encodes the hit as a vbuffer texel. Instance ids are stored plus one so
// that an all-zero texel means no hit.
func (h HitInfo) Pack() [4]uint32 {
	return [4]uint32{
		uint32(h.InstanceID + 1),
		uint32(h.PrimitiveID),
		math.Float32bits(h.B1),
		math.Float32bits(h.B2),
	}
}

// UnpackHitInfo decodes a vbuffer texel. It returns false for background pixels.
func UnpackHitInfo(v [4]uint32) (HitInfo, bool) {
	if v[0] == 0 {
		return HitInfo{}, false
	}
	return HitInfo{
		InstanceID:  int(v[0]) - 1,
		PrimitiveID: int(v[1]),
		B1:          math.Float32frombits(v[2]),
		B2:          math.Float32frombits(v[3]),
	}, true
}
