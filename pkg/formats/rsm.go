// Package formats provides the binary model-file parser feeding the glTF
// exporter. RSM (Resource Model) files hold a textured node hierarchy with
// per-node geometry, the renderer-native mesh source for conversion.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidRSMCount       = errors.New("RSM count field out of range")
)

// RSMVersion is the model file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMTexCoord is one texture coordinate. Vertex colors present in v1.2+
// files are consumed but not retained; the exporter has no use for them.
type RSMTexCoord struct {
	U, V float32
}

// RSMFace is one triangle: indices into the node's vertex and texcoord
// arrays plus the node-local texture it is drawn with.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	TwoSided    bool
}

// RSMNode is one element of the model hierarchy. Transform semantics: the
// position/rotation/scale triple is inherited by children, while Offset and
// Matrix apply to this node's vertices only. Rest* fields hold the first
// animation keyframe when the node is animated; remaining keyframes are
// consumed but dropped (animation export is out of scope).
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32

	Matrix   [9]float32 // 3x3 vertex basis, row-packed
	Offset   [3]float32
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	RestPosition *[3]float32
	RestRotation *[4]float32 // quaternion X, Y, Z, W
	RestScale    *[3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace
}

// RSM is a parsed model file.
type RSM struct {
	Version  RSMVersion
	Textures []string
	RootName string
	Nodes    []RSMNode
}

// Sanity bounds for count fields; a count past these means a corrupt or
// hostile file rather than a real model.
const (
	maxRSMNodes     = 10000
	maxRSMTextures  = 1000
	maxRSMVertices  = 100000
	maxRSMFaces     = 100000
	maxRSMKeyframes = 10000
)

// rsmReader wraps a bytes.Reader with error-latching reads so parse code
// can stay linear and check once per section.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rd *rsmReader) read(v any) {
	if rd.err != nil {
		return
	}
	rd.err = binary.Read(rd.r, binary.LittleEndian, v)
}

// str reads a fixed-length null-terminated string.
func (rd *rsmReader) str(length int) string {
	if rd.err != nil {
		return ""
	}
	buf := make([]byte, length)
	if _, err := rd.r.Read(buf); err != nil {
		rd.err = err
		return ""
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

func (rd *rsmReader) skip(n int64) {
	if rd.err != nil {
		return
	}
	_, rd.err = rd.r.Seek(n, 1)
}

// count reads an int32 count field and validates it against limit.
func (rd *rsmReader) count(limit int32, what string) int32 {
	var n int32
	rd.read(&n)
	if rd.err == nil && (n < 0 || n > limit) {
		rd.err = fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
	}
	return n
}

// ParseRSM parses model data from a byte slice.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 14 {
		return nil, ErrTruncatedRSMData
	}

	rd := &rsmReader{r: bytes.NewReader(data)}

	magic := make([]byte, 4)
	rd.r.Read(magic)
	if string(magic) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{}
	rd.read(&rsm.Version.Major)
	rd.read(&rsm.Version.Minor)
	if rsm.Version.Major < 1 || rsm.Version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	// Animation length and shading type precede the texture table; neither
	// affects geometry export.
	rd.skip(8)
	if rsm.Version.AtLeast(1, 4) {
		rd.skip(1) // global alpha
	}
	rd.skip(16) // reserved

	textureCount := rd.count(maxRSMTextures, "textures")
	for i := int32(0); i < textureCount && rd.err == nil; i++ {
		rsm.Textures = append(rsm.Textures, rd.str(40))
	}

	rsm.RootName = rd.str(40)

	nodeCount := rd.count(maxRSMNodes, "nodes")
	for i := int32(0); i < nodeCount && rd.err == nil; i++ {
		node, err := parseRSMNode(rd, rsm.Version)
		if err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, err)
		}
		rsm.Nodes = append(rsm.Nodes, node)
	}

	// Trailing volume boxes are collision data; ignored.

	if rd.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedRSMData, rd.err)
	}
	return rsm, nil
}

func parseRSMNode(rd *rsmReader, version RSMVersion) (RSMNode, error) {
	node := RSMNode{
		Name:   rd.str(40),
		Parent: rd.str(40),
	}

	textureCount := rd.count(maxRSMTextures, "node textures")
	if textureCount > 0 {
		node.TextureIDs = make([]int32, textureCount)
		rd.read(node.TextureIDs)
	}

	rd.read(&node.Matrix)
	rd.read(&node.Offset)
	rd.read(&node.Position)
	rd.read(&node.RotAngle)
	rd.read(&node.RotAxis)
	rd.read(&node.Scale)

	vertexCount := rd.count(maxRSMVertices, "vertices")
	if vertexCount > 0 {
		node.Vertices = make([][3]float32, vertexCount)
		rd.read(node.Vertices)
	}

	texCoordCount := rd.count(maxRSMVertices, "texcoords")
	if texCoordCount > 0 {
		node.TexCoords = make([]RSMTexCoord, texCoordCount)
		for i := range node.TexCoords {
			if version.AtLeast(1, 2) {
				rd.skip(4) // RGBA vertex color
			}
			rd.read(&node.TexCoords[i].U)
			rd.read(&node.TexCoords[i].V)
		}
	}

	faceCount := rd.count(maxRSMFaces, "faces")
	if faceCount > 0 {
		node.Faces = make([]RSMFace, faceCount)
		for i := range node.Faces {
			f := &node.Faces[i]
			rd.read(&f.VertexIDs)
			rd.read(&f.TexCoordIDs)
			rd.read(&f.TextureID)
			rd.skip(2) // padding
			var twoSide int32
			rd.read(&twoSide)
			f.TwoSided = twoSide != 0
			if version.AtLeast(1, 2) {
				rd.skip(4) // smooth group
			}
		}
	}

	// Keyframe tracks: keep the first keyframe as the rest pose, consume
	// the rest.
	if !version.AtLeast(1, 5) {
		posKeys := rd.count(maxRSMKeyframes, "position keys")
		for i := int32(0); i < posKeys && rd.err == nil; i++ {
			rd.skip(4) // frame
			var pos [3]float32
			rd.read(&pos)
			if i == 0 {
				node.RestPosition = &pos
			}
		}
	}

	rotKeys := rd.count(maxRSMKeyframes, "rotation keys")
	for i := int32(0); i < rotKeys && rd.err == nil; i++ {
		rd.skip(4)
		var quat [4]float32
		rd.read(&quat)
		if i == 0 {
			node.RestRotation = &quat
		}
	}

	if version.AtLeast(1, 5) {
		scaleKeys := rd.count(maxRSMKeyframes, "scale keys")
		for i := int32(0); i < scaleKeys && rd.err == nil; i++ {
			rd.skip(4)
			var scale [3]float32
			rd.read(&scale)
			if i == 0 {
				node.RestScale = &scale
			}
		}
	}

	if rd.err != nil {
		return node, fmt.Errorf("%w: %v", ErrTruncatedRSMData, rd.err)
	}
	return node, nil
}

// ParseRSMFile parses a model file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// NodeByName returns the node with the given name, or nil.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Root returns the root node, or nil when the root name resolves nowhere.
func (rsm *RSM) Root() *RSMNode {
	return rsm.NodeByName(rsm.RootName)
}

// Children returns the nodes whose parent is the named node.
func (rsm *RSM) Children(parentName string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == parentName && rsm.Nodes[i].Name != parentName {
			children = append(children, &rsm.Nodes[i])
		}
	}
	return children
}

// TotalFaceCount returns the number of faces across all nodes.
func (rsm *RSM) TotalFaceCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Faces)
	}
	return total
}
