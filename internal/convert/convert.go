// Package convert walks a parsed RSM model hierarchy and populates the
// glTF exporter with its geometry: node transforms are flattened into
// vertex positions at the rest pose, faces are grouped by texture into
// sub-meshes, and the result is registered as a single scene.
package convert

import (
	"encoding/binary"
	"fmt"
	"sort"
	gomath "math"

	"github.com/Battlehub0x/glTFast/pkg/export"
	"github.com/Battlehub0x/glTFast/pkg/formats"
	"github.com/Battlehub0x/glTFast/pkg/math"
)

const vertexStride = 32 // POSITION vec3 + NORMAL vec3 + TEXCOORD_0 vec2

type vertex struct {
	position math.Vec3
	normal   math.Vec3
	u, v     float32
}

// Scene converts the model and registers it with the exporter as one scene
// holding one mesh-bearing node. Models with no drawable faces still
// produce the node, with no mesh attached.
func Scene(rsm *formats.RSM, exp *export.Exporter, name string) error {
	nodeID, err := exp.AddNode(name, math.Vec3{}, math.QuatIdentity(), math.One(), nil)
	if err != nil {
		return fmt.Errorf("adding node: %w", err)
	}

	mesh, textures := BuildMesh(rsm, name)
	if mesh != nil {
		if err := exp.AddMeshToNode(nodeID, mesh, textures); err != nil {
			return fmt.Errorf("binding mesh: %w", err)
		}
	}

	if _, err := exp.AddScene(name, []int{nodeID}); err != nil {
		return fmt.Errorf("adding scene: %w", err)
	}
	return nil
}

// BuildMesh flattens the model's node hierarchy into one renderer-native
// mesh: every face is transformed by its node's rest-pose matrix and
// grouped by global texture id into a sequential sub-mesh range. The
// second return value lists each sub-mesh's texture id. Returns nil for a
// model without valid faces.
func BuildMesh(rsm *formats.RSM, name string) (*export.Mesh, []int) {
	var vertices []vertex
	groups := make(map[int][]uint32)

	var bounds export.Bounds
	boundsSet := false

	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		matrix := nodeMatrix(node, rsm)

		for _, face := range node.Faces {
			p, ok := facePositions(node, matrix, face)
			if !ok {
				continue
			}

			// Face normal from the transformed triangle; drop degenerates.
			n := p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
			if n.Length() < 1e-5 {
				continue
			}
			n = n.Normalize()

			for _, pos := range p {
				if !boundsSet {
					bounds.Min, bounds.Max = pos, pos
					boundsSet = true
				} else {
					bounds.Min = bounds.Min.Min(pos)
					bounds.Max = bounds.Max.Max(pos)
				}
			}

			texture := globalTextureID(node, face)
			base := uint32(len(vertices))
			for j := 0; j < 3; j++ {
				u, v := texCoord(node, face.TexCoordIDs[j])
				vertices = append(vertices, vertex{position: p[j], normal: n, u: u, v: v})
			}
			groups[texture] = append(groups[texture], base, base+1, base+2)

			if face.TwoSided {
				back := uint32(len(vertices))
				flipped := n.Scale(-1)
				for j := 2; j >= 0; j-- {
					u, v := texCoord(node, face.TexCoordIDs[j])
					vertices = append(vertices, vertex{position: p[j], normal: flipped, u: u, v: v})
				}
				groups[texture] = append(groups[texture], back, back+1, back+2)
			}
		}
	}

	if len(vertices) == 0 {
		return nil, nil
	}

	mesh := &export.Mesh{
		Name:        name,
		VertexCount: len(vertices),
		Attributes: []export.VertexAttribute{
			{Semantic: export.Position, Format: export.Float32, Dimension: 3, Stream: 0},
			{Semantic: export.Normal, Format: export.Float32, Dimension: 3, Stream: 0},
			{Semantic: export.TexCoord0, Format: export.Float32, Dimension: 2, Stream: 0},
		},
		Bounds: bounds,
	}
	mesh.Streams[0] = interleave(vertices)

	indices, textures := flattenGroups(groups)
	mesh.IndexFormat, mesh.IndexData = packIndices(indices, len(vertices))
	for _, texture := range textures {
		mesh.SubMeshes = append(mesh.SubMeshes, export.SubMesh{
			Topology:   export.Triangles,
			IndexCount: len(groups[texture]),
		})
	}

	return mesh, textures
}

// facePositions transforms the face's corners by the node matrix, flipping
// Y for the model format's inverted vertical axis. ok is false when a
// vertex id is out of range.
func facePositions(node *formats.RSMNode, matrix math.Mat4, face formats.RSMFace) ([3]math.Vec3, bool) {
	var p [3]math.Vec3
	for j, id := range face.VertexIDs {
		if int(id) >= len(node.Vertices) {
			return p, false
		}
		v := node.Vertices[id]
		pos := matrix.TransformPoint(math.Vec3{X: v[0], Y: v[1], Z: v[2]})
		pos.Y = -pos.Y
		p[j] = pos
	}
	return p, true
}

func texCoord(node *formats.RSMNode, id uint16) (float32, float32) {
	if int(id) >= len(node.TexCoords) {
		return 0, 0
	}
	tc := node.TexCoords[id]
	return tc.U, tc.V
}

// globalTextureID resolves a face's node-local texture slot to the model's
// texture table; unresolvable slots land in group 0.
func globalTextureID(node *formats.RSMNode, face formats.RSMFace) int {
	if int(face.TextureID) < len(node.TextureIDs) {
		return int(node.TextureIDs[face.TextureID])
	}
	return 0
}

// flattenGroups lays the per-texture index lists out as one contiguous
// buffer, in ascending texture id order for deterministic output.
func flattenGroups(groups map[int][]uint32) ([]uint32, []int) {
	textures := make([]int, 0, len(groups))
	for texture := range groups {
		textures = append(textures, texture)
	}
	sort.Ints(textures)

	var indices []uint32
	for _, texture := range textures {
		indices = append(indices, groups[texture]...)
	}
	return indices, textures
}

// packIndices encodes indices at the narrowest width the vertex count
// allows.
func packIndices(indices []uint32, vertexCount int) (export.IndexFormat, []byte) {
	if vertexCount <= 0xFFFF {
		data := make([]byte, 2*len(indices))
		for i, idx := range indices {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(idx))
		}
		return export.IndexUInt16, data
	}
	data := make([]byte, 4*len(indices))
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(data[i*4:], idx)
	}
	return export.IndexUInt32, data
}

// interleave packs vertices into the mesh's single stream.
func interleave(vertices []vertex) []byte {
	data := make([]byte, len(vertices)*vertexStride)
	for i, v := range vertices {
		base := i * vertexStride
		for j, f := range [8]float32{
			v.position.X, v.position.Y, v.position.Z,
			v.normal.X, v.normal.Y, v.normal.Z,
			v.u, v.v,
		} {
			binary.LittleEndian.PutUint32(data[base+j*4:], gomath.Float32bits(f))
		}
	}
	return data
}

// nodeMatrix builds a node's rest-pose vertex transform: the inherited
// hierarchy matrix (parent * position * rotation * scale) followed by the
// vertex-only offset and 3x3 basis.
func nodeMatrix(node *formats.RSMNode, rsm *formats.RSM) math.Mat4 {
	visited := make(map[string]bool)
	m := hierarchyMatrix(node, rsm, visited)
	m = m.Mul(math.Translate(node.Offset[0], node.Offset[1], node.Offset[2]))
	return m.Mul(math.FromMat3x3(node.Matrix))
}

// hierarchyMatrix returns the matrix children inherit. Animated nodes use
// their first keyframe as the rest pose.
func hierarchyMatrix(node *formats.RSMNode, rsm *formats.RSM, visited map[string]bool) math.Mat4 {
	// Cycle guard: malformed files can self-parent.
	if visited[node.Name] {
		return math.Identity()
	}
	visited[node.Name] = true

	position := node.Position
	if node.RestPosition != nil {
		position = *node.RestPosition
	}
	local := math.Translate(position[0], position[1], position[2])

	switch {
	case node.RestRotation != nil:
		q := math.Quat{
			X: node.RestRotation[0],
			Y: node.RestRotation[1],
			Z: node.RestRotation[2],
			W: node.RestRotation[3],
		}
		local = local.Mul(q.ToMat4())
	case node.RotAngle != 0:
		axis := math.Vec3{X: node.RotAxis[0], Y: node.RotAxis[1], Z: node.RotAxis[2]}
		if axis.Length() > 1e-6 {
			local = local.Mul(math.RotateAxis(axis.Normalize(), node.RotAngle))
		}
	}

	local = local.Mul(math.Scale(node.Scale[0], node.Scale[1], node.Scale[2]))
	if node.RestScale != nil {
		local = local.Mul(math.Scale(node.RestScale[0], node.RestScale[1], node.RestScale[2]))
	}

	if node.Parent != "" && node.Parent != node.Name {
		if parent := rsm.NodeByName(node.Parent); parent != nil {
			return hierarchyMatrix(parent, rsm, visited).Mul(local)
		}
	}
	return local
}
