// Package gltf defines the glTF 2.0 document model emitted by the exporter
// and a writer for the .gltf/.bin file pair.
//
// Only the subset produced by this exporter is modelled (scenes, node
// hierarchy, meshes, accessors, buffer views, a single buffer). Fields
// holding glTF default values are omitted from the JSON output entirely.
package gltf

// Version is the glTF specification version written into every asset.
const Version = "2.0"

// accessor.componentType values.
const (
	ComponentByte          = 5120
	ComponentUnsignedByte  = 5121
	ComponentShort         = 5122
	ComponentUnsignedShort = 5123
	ComponentUnsignedInt   = 5125
	ComponentFloat         = 5126
)

// accessor.type values.
const (
	TypeScalar = "SCALAR"
	TypeVec2   = "VEC2"
	TypeVec3   = "VEC3"
	TypeVec4   = "VEC4"
)

// mesh.primitive.mode values.
const (
	ModePoints    = 0
	ModeLines     = 1
	ModeLineLoop  = 2
	ModeLineStrip = 3
	ModeTriangles = 4
)

// bufferView.target values.
const (
	TargetArrayBuffer        = 34962
	TargetElementArrayBuffer = 34963
)

// Document is the top-level glTF container.
type Document struct {
	Asset       Asset        `json:"asset"`
	Scene       *int         `json:"scene,omitempty"`
	Scenes      []Scene      `json:"scenes,omitempty"`
	Nodes       []Node       `json:"nodes,omitempty"`
	Meshes      []Mesh       `json:"meshes,omitempty"`
	Accessors   []Accessor   `json:"accessors,omitempty"`
	BufferViews []BufferView `json:"bufferViews,omitempty"`
	Buffers     []Buffer     `json:"buffers,omitempty"`
}

// Asset identifies the document's generator and format version.
type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
	Copyright string `json:"copyright,omitempty"`
}

// Scene is a set of root node indices.
type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// Node is one element of the scene hierarchy. Children are referenced by
// index into Document.Nodes, never by pointer. TRS fields are nil when the
// node carries the default transform.
type Node struct {
	Name        string    `json:"name,omitempty"`
	Children    []int     `json:"children,omitempty"`
	Mesh        *int      `json:"mesh,omitempty"`
	Translation []float32 `json:"translation,omitempty"`
	Rotation    []float32 `json:"rotation,omitempty"`
	Scale       []float32 `json:"scale,omitempty"`
}

// Mesh is an ordered list of drawable primitives.
type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

// Primitive maps attribute semantics to accessors and names the index
// accessor. Mode is a pointer so that POINTS (0) survives the omit-default
// policy; nil means the glTF default, TRIANGLES.
type Primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

// Accessor describes how to interpret a byte range of a buffer view as a
// sequence of typed elements.
type Accessor struct {
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

// BufferView is a byte range within a buffer, optionally strided.
type BufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride,omitempty"`
	Target     int `json:"target,omitempty"`
}

// Buffer describes the binary payload. URI is file-relative and filled in
// when the document is saved next to its .bin sibling.
type Buffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// Index returns a pointer to i, for optional index fields.
func Index(i int) *int {
	return &i
}
