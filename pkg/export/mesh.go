// Package export bakes renderer-native meshes into glTF documents: it lays
// out accessors and buffer views over a single packed binary buffer and
// performs the coordinate-system and winding-order conversions the format
// requires.
package export

import (
	"errors"
	"fmt"

	"github.com/Battlehub0x/glTFast/pkg/gltf"
	"github.com/Battlehub0x/glTFast/pkg/math"
)

// Export errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported vertex attribute format")
	ErrPrecisionRequired = errors.New("attribute must be full-precision float32")
	ErrInvalidDimension  = errors.New("attribute dimension must be 1 to 4")
	ErrInvalidStream     = errors.New("attribute stream index out of range")
	ErrStreamTooShort    = errors.New("vertex stream shorter than stride * vertex count")
	ErrIndexRange        = errors.New("sub-mesh index ranges exceed index data")
	ErrInvalidNodeID     = errors.New("node index out of range")
	ErrNilMesh           = errors.New("nil mesh reference")
)

// MaxStreams is the number of interleaved vertex streams a mesh may span.
const MaxStreams = 4

// Semantic identifies the meaning of a vertex attribute.
type Semantic int

const (
	Position Semantic = iota
	Normal
	Tangent
	Color
	TexCoord0
	TexCoord1
	Joints0
	Weights0
)

// String returns the glTF attribute name for the semantic.
func (s Semantic) String() string {
	switch s {
	case Position:
		return "POSITION"
	case Normal:
		return "NORMAL"
	case Tangent:
		return "TANGENT"
	case Color:
		return "COLOR_0"
	case TexCoord0:
		return "TEXCOORD_0"
	case TexCoord1:
		return "TEXCOORD_1"
	case Joints0:
		return "JOINTS_0"
	case Weights0:
		return "WEIGHTS_0"
	default:
		return fmt.Sprintf("UNKNOWN_%d", int(s))
	}
}

// Format is the storage format of a single attribute component.
type Format int

const (
	Float32 Format = iota
	Float16
	UInt8
	Int8
	UInt16
	Int16
	UInt32
	Int32
)

// Size returns the byte size of one component.
func (f Format) Size() (int, error) {
	switch f {
	case Float32, UInt32, Int32:
		return 4, nil
	case Float16, UInt16, Int16:
		return 2, nil
	case UInt8, Int8:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
}

// componentType maps the format to its glTF accessor componentType. Formats
// the glTF accessor schema has no encoding for are rejected.
func (f Format) componentType() (int, error) {
	switch f {
	case Float32:
		return gltf.ComponentFloat, nil
	case UInt8:
		return gltf.ComponentUnsignedByte, nil
	case Int8:
		return gltf.ComponentByte, nil
	case UInt16:
		return gltf.ComponentUnsignedShort, nil
	case Int16:
		return gltf.ComponentShort, nil
	case UInt32:
		return gltf.ComponentUnsignedInt, nil
	default:
		return 0, fmt.Errorf("%w: no glTF component type for format %d", ErrUnsupportedFormat, int(f))
	}
}

// VertexAttribute describes one attribute within a mesh's interleaved
// vertex layout.
type VertexAttribute struct {
	Semantic  Semantic
	Format    Format
	Dimension int // components per element, 1 to 4
	Stream    int // which interleaved stream holds the attribute
}

// Topology is the draw topology of a sub-mesh.
type Topology int

const (
	Points Topology = iota
	Lines
	LineStrip
	Triangles
	Quads
)

// String returns a human-readable topology name.
func (t Topology) String() string {
	switch t {
	case Points:
		return "points"
	case Lines:
		return "lines"
	case LineStrip:
		return "line-strip"
	case Triangles:
		return "triangles"
	case Quads:
		return "quads"
	default:
		return fmt.Sprintf("topology(%d)", int(t))
	}
}

// mode returns the glTF primitive mode, or ok=false when the topology has
// no glTF equivalent.
func (t Topology) mode() (int, bool) {
	switch t {
	case Points:
		return gltf.ModePoints, true
	case Lines:
		return gltf.ModeLines, true
	case LineStrip:
		return gltf.ModeLineStrip, true
	case Triangles:
		return gltf.ModeTriangles, true
	default:
		return 0, false
	}
}

// IndexFormat is the storage width of the mesh's index buffer.
type IndexFormat int

const (
	IndexUInt16 IndexFormat = iota
	IndexUInt32
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() int {
	if f == IndexUInt32 {
		return 4
	}
	return 2
}

func (f IndexFormat) componentType() int {
	if f == IndexUInt32 {
		return gltf.ComponentUnsignedInt
	}
	return gltf.ComponentUnsignedShort
}

// SubMesh is one drawable index range. Ranges are laid out sequentially in
// the mesh's index data, in sub-mesh order.
type SubMesh struct {
	Topology   Topology
	IndexCount int
}

// Bounds is the axis-aligned bounding box of the mesh's positions.
type Bounds struct {
	Min, Max math.Vec3
}

// Mesh is a renderer-native mesh: up to four raw interleaved vertex streams
// described by an attribute list, a flat index buffer split into sub-mesh
// ranges, and position bounds. Meshes are deduplicated by pointer identity,
// so the same instance may be attached to any number of nodes.
type Mesh struct {
	Name        string
	VertexCount int
	Attributes  []VertexAttribute
	Streams     [MaxStreams][]byte
	IndexFormat IndexFormat
	IndexData   []byte
	SubMeshes   []SubMesh
	Bounds      Bounds
}
