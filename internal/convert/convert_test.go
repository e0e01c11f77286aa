package convert

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/Battlehub0x/glTFast/pkg/export"
	"github.com/Battlehub0x/glTFast/pkg/formats"
)

// identityNode returns a node whose transform leaves vertices in place.
func identityNode(name string) formats.RSMNode {
	return formats.RSMNode{
		Name:   name,
		Matrix: [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Scale:  [3]float32{1, 1, 1},
	}
}

// quadVertices is a unit quad in the XZ plane at Y=0; faces built on it are
// non-degenerate under the identity transform.
var quadVertices = [][3]float32{
	{0, 0, 0},
	{1, 0, 0},
	{1, 0, 1},
	{0, 0, 1},
}

func face(texture uint16, ids ...uint16) formats.RSMFace {
	return formats.RSMFace{
		VertexIDs:   [3]uint16{ids[0], ids[1], ids[2]},
		TexCoordIDs: [3]uint16{ids[0], ids[1], ids[2]},
		TextureID:   texture,
	}
}

func readVertex(t *testing.T, stream []byte, index int) (pos, normal [3]float32, uv [2]float32) {
	t.Helper()
	base := index * vertexStride
	if base+vertexStride > len(stream) {
		t.Fatalf("vertex %d past stream end (%d bytes)", index, len(stream))
	}
	at := func(word int) float32 {
		return gomath.Float32frombits(binary.LittleEndian.Uint32(stream[base+word*4:]))
	}
	pos = [3]float32{at(0), at(1), at(2)}
	normal = [3]float32{at(3), at(4), at(5)}
	uv = [2]float32{at(6), at(7)}
	return pos, normal, uv
}

func readIndex(t *testing.T, mesh *export.Mesh, i int) uint32 {
	t.Helper()
	switch mesh.IndexFormat {
	case export.IndexUInt16:
		return uint32(binary.LittleEndian.Uint16(mesh.IndexData[i*2:]))
	case export.IndexUInt32:
		return binary.LittleEndian.Uint32(mesh.IndexData[i*4:])
	}
	t.Fatalf("unexpected index format %v", mesh.IndexFormat)
	return 0
}

func TestBuildMeshSingleFace(t *testing.T) {
	node := identityNode("root")
	node.Vertices = quadVertices
	node.TexCoords = []formats.RSMTexCoord{
		{U: 0, V: 0}, {U: 1, V: 0}, {U: 1, V: 1}, {U: 0, V: 1},
	}
	node.TextureIDs = []int32{0}
	node.Faces = []formats.RSMFace{face(0, 0, 1, 2)}
	rsm := &formats.RSM{Textures: []string{"stone.bmp"}, RootName: "root", Nodes: []formats.RSMNode{node}}

	mesh, textures := BuildMesh(rsm, "quad")
	if mesh == nil {
		t.Fatal("BuildMesh returned nil for a valid face")
	}
	if mesh.VertexCount != 3 {
		t.Fatalf("vertex count = %d, want 3", mesh.VertexCount)
	}
	if got := len(mesh.Streams[0]); got != 3*vertexStride {
		t.Fatalf("stream length = %d, want %d", got, 3*vertexStride)
	}
	if len(textures) != 1 || textures[0] != 0 {
		t.Fatalf("textures = %v, want [0]", textures)
	}
	if len(mesh.SubMeshes) != 1 {
		t.Fatalf("sub-mesh count = %d, want 1", len(mesh.SubMeshes))
	}
	if mesh.SubMeshes[0].Topology != export.Triangles || mesh.SubMeshes[0].IndexCount != 3 {
		t.Fatalf("sub-mesh = %+v, want 3 triangle indices", mesh.SubMeshes[0])
	}

	pos, _, uv := readVertex(t, mesh.Streams[0], 1)
	if pos != [3]float32{1, 0, 0} {
		t.Errorf("vertex 1 position = %v, want [1 0 0]", pos)
	}
	if uv != [2]float32{1, 0} {
		t.Errorf("vertex 1 uv = %v, want [1 0]", uv)
	}
}

func TestBuildMeshYAxisFlip(t *testing.T) {
	node := identityNode("root")
	node.Vertices = [][3]float32{{0, 1, 0}, {1, 2, 0}, {0, 3, 1}}
	node.TexCoords = []formats.RSMTexCoord{{}, {}, {}}
	node.TextureIDs = []int32{0}
	node.Faces = []formats.RSMFace{face(0, 0, 1, 2)}
	rsm := &formats.RSM{RootName: "root", Nodes: []formats.RSMNode{node}}

	mesh, _ := BuildMesh(rsm, "m")
	if mesh == nil {
		t.Fatal("BuildMesh returned nil")
	}
	for i, wantY := range []float32{-1, -2, -3} {
		pos, _, _ := readVertex(t, mesh.Streams[0], i)
		if pos[1] != wantY {
			t.Errorf("vertex %d Y = %v, want %v", i, pos[1], wantY)
		}
	}
	if mesh.Bounds.Max.Y != -1 || mesh.Bounds.Min.Y != -3 {
		t.Errorf("bounds Y = [%v, %v], want [-3, -1]", mesh.Bounds.Min.Y, mesh.Bounds.Max.Y)
	}
}

func TestBuildMeshGroupsByTexture(t *testing.T) {
	node := identityNode("root")
	node.Vertices = quadVertices
	node.TexCoords = []formats.RSMTexCoord{{}, {}, {}, {}}
	node.TextureIDs = []int32{5, 2}
	node.Faces = []formats.RSMFace{
		face(0, 0, 1, 2), // global texture 5
		face(1, 0, 2, 3), // global texture 2
		face(0, 1, 2, 3), // global texture 5
	}
	rsm := &formats.RSM{
		Textures: []string{"a", "b", "c", "d", "e", "f"},
		RootName: "root",
		Nodes:    []formats.RSMNode{node},
	}

	mesh, textures := BuildMesh(rsm, "grouped")
	if mesh == nil {
		t.Fatal("BuildMesh returned nil")
	}
	// Ascending global texture id order.
	if len(textures) != 2 || textures[0] != 2 || textures[1] != 5 {
		t.Fatalf("textures = %v, want [2 5]", textures)
	}
	if mesh.SubMeshes[0].IndexCount != 3 || mesh.SubMeshes[1].IndexCount != 6 {
		t.Fatalf("sub-mesh index counts = [%d %d], want [3 6]",
			mesh.SubMeshes[0].IndexCount, mesh.SubMeshes[1].IndexCount)
	}
	// The texture-2 face was baked second, so its vertices start at 3.
	if got := readIndex(t, mesh, 0); got != 3 {
		t.Errorf("first index = %d, want 3", got)
	}
}

func TestBuildMeshTwoSidedFace(t *testing.T) {
	node := identityNode("root")
	node.Vertices = quadVertices
	node.TexCoords = []formats.RSMTexCoord{{}, {}, {}, {}}
	node.TextureIDs = []int32{0}
	f := face(0, 0, 1, 2)
	f.TwoSided = true
	node.Faces = []formats.RSMFace{f}
	rsm := &formats.RSM{RootName: "root", Nodes: []formats.RSMNode{node}}

	mesh, _ := BuildMesh(rsm, "doubled")
	if mesh == nil {
		t.Fatal("BuildMesh returned nil")
	}
	if mesh.VertexCount != 6 {
		t.Fatalf("vertex count = %d, want 6", mesh.VertexCount)
	}
	if mesh.SubMeshes[0].IndexCount != 6 {
		t.Fatalf("index count = %d, want 6", mesh.SubMeshes[0].IndexCount)
	}

	// Back face reuses the corners in reverse order with the normal negated.
	frontPos, frontN, _ := readVertex(t, mesh.Streams[0], 0)
	backPos, backN, _ := readVertex(t, mesh.Streams[0], 3)
	if backPos != [3]float32{frontPos[0] + 1, frontPos[1], frontPos[2] + 1} {
		// front vertex 0 is corner 0, back vertex 0 is corner 2
		t.Errorf("back face start = %v, want corner 2 of %v", backPos, quadVertices)
	}
	for i := range frontN {
		if backN[i] != -frontN[i] {
			t.Errorf("back normal component %d = %v, want %v", i, backN[i], -frontN[i])
		}
	}
}

func TestBuildMeshSkipsDegenerateFaces(t *testing.T) {
	node := identityNode("root")
	node.Vertices = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}}
	node.TexCoords = []formats.RSMTexCoord{{}, {}, {}}
	node.TextureIDs = []int32{0}
	node.Faces = []formats.RSMFace{
		face(0, 0, 0, 0), // collapsed
		face(0, 0, 1, 2),
		{VertexIDs: [3]uint16{0, 1, 9}}, // vertex id out of range
	}
	rsm := &formats.RSM{RootName: "root", Nodes: []formats.RSMNode{node}}

	mesh, _ := BuildMesh(rsm, "m")
	if mesh == nil {
		t.Fatal("BuildMesh returned nil")
	}
	if mesh.VertexCount != 3 {
		t.Errorf("vertex count = %d, want 3 (degenerate faces dropped)", mesh.VertexCount)
	}
}

func TestBuildMeshEmptyModel(t *testing.T) {
	rsm := &formats.RSM{RootName: "root", Nodes: []formats.RSMNode{identityNode("root")}}
	if mesh, textures := BuildMesh(rsm, "empty"); mesh != nil || textures != nil {
		t.Errorf("BuildMesh = (%v, %v), want (nil, nil)", mesh, textures)
	}
}

func TestBuildMeshHierarchyTransform(t *testing.T) {
	parent := identityNode("root")
	parent.Position = [3]float32{0, 0, 10}

	child := identityNode("child")
	child.Parent = "root"
	child.Vertices = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}}
	child.TexCoords = []formats.RSMTexCoord{{}, {}, {}}
	child.TextureIDs = []int32{0}
	child.Faces = []formats.RSMFace{face(0, 0, 1, 2)}

	rsm := &formats.RSM{RootName: "root", Nodes: []formats.RSMNode{parent, child}}
	mesh, _ := BuildMesh(rsm, "m")
	if mesh == nil {
		t.Fatal("BuildMesh returned nil")
	}
	pos, _, _ := readVertex(t, mesh.Streams[0], 0)
	if pos != [3]float32{0, 0, 10} {
		t.Errorf("child vertex = %v, want parent translation applied [0 0 10]", pos)
	}
}

func TestBuildMeshRestPoseKeyframes(t *testing.T) {
	node := identityNode("root")
	node.Position = [3]float32{100, 100, 100}
	node.RestPosition = &[3]float32{0, 0, 2}
	node.Vertices = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}}
	node.TexCoords = []formats.RSMTexCoord{{}, {}, {}}
	node.TextureIDs = []int32{0}
	node.Faces = []formats.RSMFace{face(0, 0, 1, 2)}
	rsm := &formats.RSM{RootName: "root", Nodes: []formats.RSMNode{node}}

	mesh, _ := BuildMesh(rsm, "m")
	if mesh == nil {
		t.Fatal("BuildMesh returned nil")
	}
	pos, _, _ := readVertex(t, mesh.Streams[0], 0)
	if pos != [3]float32{0, 0, 2} {
		t.Errorf("vertex = %v, want rest keyframe translation [0 0 2]", pos)
	}
}

func TestBuildMeshSelfParentCycle(t *testing.T) {
	node := identityNode("loop")
	node.Parent = "loop"
	node.Vertices = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}}
	node.TexCoords = []formats.RSMTexCoord{{}, {}, {}}
	node.TextureIDs = []int32{0}
	node.Faces = []formats.RSMFace{face(0, 0, 1, 2)}
	rsm := &formats.RSM{RootName: "loop", Nodes: []formats.RSMNode{node}}

	mesh, _ := BuildMesh(rsm, "m")
	if mesh == nil {
		t.Fatal("BuildMesh returned nil for a self-parented node")
	}
	if mesh.VertexCount != 3 {
		t.Errorf("vertex count = %d, want 3", mesh.VertexCount)
	}
}

func TestSceneRegistersModel(t *testing.T) {
	node := identityNode("root")
	node.Vertices = quadVertices
	node.TexCoords = []formats.RSMTexCoord{{}, {}, {}, {}}
	node.TextureIDs = []int32{0, 1}
	node.Faces = []formats.RSMFace{face(0, 0, 1, 2), face(1, 0, 2, 3)}
	rsm := &formats.RSM{
		Textures: []string{"a.bmp", "b.bmp"},
		RootName: "root",
		Nodes:    []formats.RSMNode{node},
	}

	exp := export.New(export.Options{})
	if err := Scene(rsm, exp, "prop"); err != nil {
		t.Fatalf("Scene: %v", err)
	}

	doc, bin, err := exp.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(doc.Scenes) != 1 || len(doc.Nodes) != 1 || len(doc.Meshes) != 1 {
		t.Fatalf("document has %d scenes, %d nodes, %d meshes, want 1 each",
			len(doc.Scenes), len(doc.Nodes), len(doc.Meshes))
	}
	if got := len(doc.Meshes[0].Primitives); got != 2 {
		t.Errorf("primitive count = %d, want 2 (one per texture)", got)
	}
	if doc.Nodes[0].Mesh == nil || *doc.Nodes[0].Mesh != 0 {
		t.Error("node does not reference the baked mesh")
	}
	if len(bin) == 0 {
		t.Error("Finalize produced no binary payload")
	}
}

func TestSceneEmptyModelStillProducesNode(t *testing.T) {
	rsm := &formats.RSM{RootName: "root", Nodes: []formats.RSMNode{identityNode("root")}}

	exp := export.New(export.Options{})
	if err := Scene(rsm, exp, "empty"); err != nil {
		t.Fatalf("Scene: %v", err)
	}
	doc, bin, err := exp.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(doc.Nodes) != 1 || len(doc.Meshes) != 0 {
		t.Fatalf("document has %d nodes, %d meshes, want 1 node and no meshes",
			len(doc.Nodes), len(doc.Meshes))
	}
	if len(bin) != 0 {
		t.Errorf("binary payload = %d bytes, want empty", len(bin))
	}
}
