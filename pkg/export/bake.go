package export

import (
	"fmt"

	"github.com/Battlehub0x/glTFast/pkg/gltf"
	"go.uber.org/zap"
)

// vertexLayout is the computed byte layout of a mesh's attribute set:
// first-fit packed per stream, no padding.
type vertexLayout struct {
	strides     [MaxStreams]int
	offsets     []int // intra-stream byte offset per attribute, indexed like Mesh.Attributes
	streamCount int   // 1 + index of the highest stream holding attributes
}

// computeVertexLayout accumulates per-stream strides by summing
// dimension * componentSize over the attributes assigned to each stream, in
// enumeration order. Each attribute's offset is the stream's stride before
// the attribute was added.
func computeVertexLayout(attrs []VertexAttribute) (vertexLayout, error) {
	layout := vertexLayout{offsets: make([]int, len(attrs))}
	for i, a := range attrs {
		if a.Stream < 0 || a.Stream >= MaxStreams {
			return layout, fmt.Errorf("%s: %w: %d", a.Semantic, ErrInvalidStream, a.Stream)
		}
		if a.Dimension < 1 || a.Dimension > 4 {
			return layout, fmt.Errorf("%s: %w: %d", a.Semantic, ErrInvalidDimension, a.Dimension)
		}
		size, err := a.Format.Size()
		if err != nil {
			return layout, fmt.Errorf("%s: %w", a.Semantic, err)
		}
		layout.offsets[i] = layout.strides[a.Stream]
		layout.strides[a.Stream] += size * a.Dimension
		if a.Stream+1 > layout.streamCount {
			layout.streamCount = a.Stream + 1
		}
	}
	return layout, nil
}

// elementType maps an attribute dimension to the glTF accessor type string.
func elementType(dimension int) string {
	switch dimension {
	case 1:
		return gltf.TypeScalar
	case 2:
		return gltf.TypeVec2
	case 3:
		return gltf.TypeVec3
	default:
		return gltf.TypeVec4
	}
}

// validateMesh checks the baking preconditions that must fail the whole
// export: converted semantics stored in anything but float32, and sub-mesh
// index ranges that overrun the index data.
func validateMesh(m *Mesh, layout vertexLayout) error {
	for _, a := range m.Attributes {
		switch a.Semantic {
		case Position, Normal, Tangent:
			if a.Format != Float32 {
				return fmt.Errorf("%s: %w", a.Semantic, ErrPrecisionRequired)
			}
			if a.Semantic == Tangent && a.Dimension != 4 {
				return fmt.Errorf("%s: %w: need VEC4, got dimension %d", a.Semantic, ErrInvalidDimension, a.Dimension)
			}
		}
	}

	totalIndices := 0
	for _, sm := range m.SubMeshes {
		totalIndices += sm.IndexCount
	}
	if totalIndices*m.IndexFormat.Size() > len(m.IndexData) {
		return fmt.Errorf("%w: %d indices over %d bytes", ErrIndexRange, totalIndices, len(m.IndexData))
	}

	for stream := 0; stream < layout.streamCount; stream++ {
		if need := layout.strides[stream] * m.VertexCount; len(m.Streams[stream]) < need {
			return fmt.Errorf("stream %d: %w: have %d, need %d",
				stream, ErrStreamTooShort, len(m.Streams[stream]), need)
		}
	}
	return nil
}

// bakeMesh converts and packs one mesh into the shared binary buffer and
// allocates its accessors, buffer views, and primitives. Layout per mesh:
// the index view first, then one view per non-empty vertex stream; index
// accessors first, then attribute accessors grouped by stream.
func (e *Exporter) bakeMesh(m *Mesh) (gltf.Mesh, error) {
	baked := gltf.Mesh{Name: m.Name}

	layout, err := computeVertexLayout(m.Attributes)
	if err != nil {
		return baked, err
	}
	if err := validateMesh(m, layout); err != nil {
		return baked, err
	}

	indexSize := m.IndexFormat.Size()

	// Index buffer: flip winding, pack, allocate the index view.
	indices := convertIndices(m, e.workers)
	indexView := -1
	if len(indices) > 0 {
		offset := e.packer.Append(indices)
		indexView = len(e.views)
		e.views = append(e.views, gltf.BufferView{
			Buffer:     0,
			ByteOffset: offset,
			ByteLength: len(indices),
			Target:     gltf.TargetElementArrayBuffer,
		})
	}

	// One index accessor and one primitive per sub-mesh. All primitives
	// share the mesh's attribute map, filled in by the stream pass below.
	attributes := make(map[string]int)
	running := 0
	for _, sm := range m.SubMeshes {
		mode, ok := sm.Topology.mode()
		if !ok {
			e.warn(fmt.Sprintf("mesh %q: unsupported topology %s, degrading to points", m.Name, sm.Topology))
			mode = gltf.ModePoints
		}

		indexAccessor := gltf.Accessor{
			ByteOffset:    running * indexSize,
			ComponentType: m.IndexFormat.componentType(),
			Count:         sm.IndexCount,
			Type:          gltf.TypeScalar,
		}
		if indexView >= 0 {
			indexAccessor.BufferView = gltf.Index(indexView)
		}
		accessor := len(e.accessors)
		e.accessors = append(e.accessors, indexAccessor)
		running += sm.IndexCount

		primitive := gltf.Primitive{
			Attributes: attributes,
			Indices:    gltf.Index(accessor),
		}
		if mode != gltf.ModeTriangles {
			primitive.Mode = gltf.Index(mode)
		}
		baked.Primitives = append(baked.Primitives, primitive)
	}

	// Vertex streams: convert handedness, pack, allocate one view per
	// non-empty stream and one accessor per attribute.
	for stream := 0; stream < layout.streamCount; stream++ {
		stride := layout.strides[stream]
		if stride == 0 {
			continue
		}

		src := m.Streams[stream][:stride*m.VertexCount]
		flips := streamFlipOffsets(m.Attributes, layout.offsets, stream)
		converted := convertStream(src, stride, m.VertexCount, flips, e.workers)

		offset := e.packer.Append(converted)
		view := len(e.views)
		e.views = append(e.views, gltf.BufferView{
			Buffer:     0,
			ByteOffset: offset,
			ByteLength: len(converted),
			ByteStride: stride,
			Target:     gltf.TargetArrayBuffer,
		})

		for i, a := range m.Attributes {
			if a.Stream != stream {
				continue
			}
			componentType, err := a.Format.componentType()
			if err != nil {
				return baked, fmt.Errorf("%s: %w", a.Semantic, err)
			}

			accessor := gltf.Accessor{
				BufferView:    gltf.Index(view),
				ByteOffset:    layout.offsets[i],
				ComponentType: componentType,
				Count:         m.VertexCount,
				Type:          elementType(a.Dimension),
			}
			if a.Semantic == Position {
				// The X axis is mirrored by the conversion, so the
				// bounds' X extents swap and negate.
				accessor.Min = []float32{-m.Bounds.Max.X, m.Bounds.Min.Y, m.Bounds.Min.Z}
				accessor.Max = []float32{-m.Bounds.Min.X, m.Bounds.Max.Y, m.Bounds.Max.Z}
			}

			attributes[a.Semantic.String()] = len(e.accessors)
			e.accessors = append(e.accessors, accessor)
		}
	}

	e.log.Debug("baked mesh",
		zap.String("mesh", m.Name),
		zap.Int("vertices", m.VertexCount),
		zap.Int("primitives", len(baked.Primitives)),
		zap.Int("bufferBytes", e.packer.Len()))

	return baked, nil
}
