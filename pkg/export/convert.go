package export

import "encoding/binary"

// The source coordinate system is left-handed while glTF is right-handed:
// the X axis is mirrored and triangle winding is reversed. Mirroring is an
// IEEE-754 sign-bit toggle on the little-endian float32 word, which makes
// the conversion an exact involution and preserves magnitudes bit for bit.
const signBit = 0x80000000

// flipFloatSign toggles the sign of one little-endian float32 word.
func flipFloatSign(b []byte) {
	binary.LittleEndian.PutUint32(b, binary.LittleEndian.Uint32(b)^signBit)
}

// convertIndices returns a winding-converted copy of the mesh's index data.
// Triangle sub-mesh ranges have each index triple (a,b,c) rewritten as
// (a,c,b); other topologies pass through unchanged.
func convertIndices(m *Mesh, workers int) []byte {
	out := make([]byte, len(m.IndexData))
	copy(out, m.IndexData)

	indexSize := m.IndexFormat.Size()
	start := 0
	for _, sm := range m.SubMeshes {
		if sm.Topology == Triangles {
			flipTriangleWinding(out[start*indexSize:(start+sm.IndexCount)*indexSize], indexSize, workers)
		}
		start += sm.IndexCount
	}
	return out
}

// flipTriangleWinding swaps the second and third index of every triple in b.
// Indices are swapped as raw 2- or 4-byte chunks, one task per triangle.
func flipTriangleWinding(b []byte, indexSize, workers int) {
	triangles := len(b) / (3 * indexSize)
	parallelFor(triangles, triangleBatch, workers, func(start, end int) {
		for t := start; t < end; t++ {
			off := t * 3 * indexSize
			x := b[off+indexSize : off+2*indexSize]
			y := b[off+2*indexSize : off+3*indexSize]
			for i := 0; i < indexSize; i++ {
				x[i], y[i] = y[i], x[i]
			}
		}
	})
}

// convertStream returns a copy of one interleaved vertex stream with the
// float32 words at the given per-vertex byte offsets sign-flipped. Offsets
// come from the mesh's attribute layout: the X component of POSITION and
// NORMAL, and for TANGENT both the X component and the bitangent-sign W.
// All other bytes of the stream are left untouched, one task per vertex.
func convertStream(src []byte, stride, vertexCount int, flipOffsets []int, workers int) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	if len(flipOffsets) == 0 || stride == 0 {
		return out
	}
	parallelFor(vertexCount, vertexBatch, workers, func(start, end int) {
		for v := start; v < end; v++ {
			base := v * stride
			for _, off := range flipOffsets {
				flipFloatSign(out[base+off : base+off+4])
			}
		}
	})
	return out
}

// streamFlipOffsets collects the per-vertex byte offsets that the
// handedness conversion must sign-flip for one stream. offsets holds each
// attribute's intra-stream byte offset, indexed like attrs.
func streamFlipOffsets(attrs []VertexAttribute, offsets []int, stream int) []int {
	var flips []int
	for i, a := range attrs {
		if a.Stream != stream {
			continue
		}
		switch a.Semantic {
		case Position, Normal:
			flips = append(flips, offsets[i])
		case Tangent:
			// X component and the handedness sign in W.
			flips = append(flips, offsets[i], offsets[i]+12)
		}
	}
	return flips
}
