package export

import (
	"fmt"
	"runtime"

	"github.com/Battlehub0x/glTFast/pkg/gltf"
	"github.com/Battlehub0x/glTFast/pkg/math"
	"go.uber.org/zap"
)

// Options configures an Exporter. The zero value is usable: logging is
// disabled, the worker count defaults to the number of CPUs, and the
// generator string defaults to the module path.
type Options struct {
	Logger    *zap.Logger
	Workers   int // goroutines per conversion kernel
	Generator string
	Copyright string
}

// node is the builder's mutable node record. Children and meshes are held
// as indices into the builder's own lists, never as pointers.
type node struct {
	name        string
	translation math.Vec3
	rotation    math.Quat
	scale       math.Vec3
	children    []int
	mesh        int // index into meshes, -1 when the node carries none
}

type scene struct {
	name  string
	nodes []int
}

// Exporter is an append-only builder for a glTF document. Callers populate
// scenes, nodes, and mesh bindings, then call Finalize exactly once to bake
// every referenced mesh into the shared binary buffer and snapshot the
// result. The builder is single-writer: it must not be mutated while a
// Finalize is in progress.
type Exporter struct {
	log       *zap.Logger
	workers   int
	generator string
	copyright string

	scenes    []scene
	nodes     []node
	meshes    []*Mesh       // distinct meshes in first-reference order
	meshIndex map[*Mesh]int // identity -> assigned mesh index
	warnings  []string

	// Baking state, built during Finalize.
	packer    bufferPacker
	accessors []gltf.Accessor
	views     []gltf.BufferView
}

// New creates an Exporter.
func New(opts Options) *Exporter {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	generator := opts.Generator
	if generator == "" {
		generator = "github.com/Battlehub0x/glTFast"
	}
	return &Exporter{
		log:       log,
		workers:   workers,
		generator: generator,
		copyright: opts.Copyright,
		meshIndex: make(map[*Mesh]int),
	}
}

// AddScene adds a scene over the given root node indices and returns its
// index. The first scene added becomes the document's default scene.
func (e *Exporter) AddScene(name string, nodes []int) (int, error) {
	for _, id := range nodes {
		if id < 0 || id >= len(e.nodes) {
			return 0, fmt.Errorf("scene %q root %d: %w", name, id, ErrInvalidNodeID)
		}
	}
	e.scenes = append(e.scenes, scene{name: name, nodes: append([]int(nil), nodes...)})
	return len(e.scenes) - 1, nil
}

// AddNode adds a node with the given local TRS transform and already-added
// children, returning the new node's index.
func (e *Exporter) AddNode(name string, translation math.Vec3, rotation math.Quat, scale math.Vec3, children []int) (int, error) {
	for _, id := range children {
		if id < 0 || id >= len(e.nodes) {
			return 0, fmt.Errorf("node %q child %d: %w", name, id, ErrInvalidNodeID)
		}
	}
	e.nodes = append(e.nodes, node{
		name:        name,
		translation: translation,
		rotation:    rotation,
		scale:       scale,
		children:    append([]int(nil), children...),
		mesh:        -1,
	})
	return len(e.nodes) - 1, nil
}

// AddMeshToNode binds a mesh to a node. Meshes are deduplicated by
// reference identity: a mesh instanced by several nodes is baked once and
// referenced by each. Material refs are accepted for contract compatibility
// but materials are not exported; a count mismatch against the mesh's
// sub-meshes is reported as a warning.
func (e *Exporter) AddMeshToNode(nodeID int, mesh *Mesh, materials []int) error {
	if nodeID < 0 || nodeID >= len(e.nodes) {
		return fmt.Errorf("node %d: %w", nodeID, ErrInvalidNodeID)
	}
	if mesh == nil {
		return fmt.Errorf("node %d: %w", nodeID, ErrNilMesh)
	}

	if len(materials) > 0 && len(materials) != len(mesh.SubMeshes) {
		e.warn(fmt.Sprintf("mesh %q: %d material refs for %d sub-meshes",
			mesh.Name, len(materials), len(mesh.SubMeshes)))
	}

	index, ok := e.meshIndex[mesh]
	if !ok {
		index = len(e.meshes)
		e.meshes = append(e.meshes, mesh)
		e.meshIndex[mesh] = index
	}
	e.nodes[nodeID].mesh = index
	return nil
}

// Warnings returns the recoverable degradations recorded so far.
func (e *Exporter) Warnings() []string {
	return append([]string(nil), e.warnings...)
}

func (e *Exporter) warn(msg string) {
	e.warnings = append(e.warnings, msg)
	e.log.Warn(msg)
}

// Finalize bakes every distinct referenced mesh, in first-reference order,
// into a single binary buffer and snapshots the builder into an immutable
// document. It returns the document and the packed payload. Finalize is
// one-shot: it clears the builder, so a second call without repopulating
// yields an empty document.
func (e *Exporter) Finalize() (*gltf.Document, []byte, error) {
	doc := &gltf.Document{
		Asset: gltf.Asset{
			Version:   gltf.Version,
			Generator: e.generator,
			Copyright: e.copyright,
		},
	}

	for _, m := range e.meshes {
		baked, err := e.bakeMesh(m)
		if err != nil {
			return nil, nil, fmt.Errorf("baking mesh %q: %w", m.Name, err)
		}
		doc.Meshes = append(doc.Meshes, baked)
	}

	for _, n := range e.nodes {
		out := gltf.Node{Name: n.name, Children: n.children}
		if n.mesh >= 0 {
			out.Mesh = gltf.Index(n.mesh)
		}
		if n.translation != (math.Vec3{}) {
			out.Translation = []float32{n.translation.X, n.translation.Y, n.translation.Z}
		}
		if n.rotation != math.QuatIdentity() {
			out.Rotation = []float32{n.rotation.X, n.rotation.Y, n.rotation.Z, n.rotation.W}
		}
		if n.scale != math.One() {
			out.Scale = []float32{n.scale.X, n.scale.Y, n.scale.Z}
		}
		doc.Nodes = append(doc.Nodes, out)
	}

	for _, s := range e.scenes {
		doc.Scenes = append(doc.Scenes, gltf.Scene{Name: s.name, Nodes: s.nodes})
	}
	if len(doc.Scenes) > 0 {
		doc.Scene = gltf.Index(0)
	}

	doc.Accessors = e.accessors
	doc.BufferViews = e.views

	var bin []byte
	if e.packer.Len() > 0 {
		bin = e.packer.Bytes()
		doc.Buffers = []gltf.Buffer{{ByteLength: len(bin)}}
	}

	e.log.Info("finalized document",
		zap.Int("scenes", len(doc.Scenes)),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("meshes", len(doc.Meshes)),
		zap.Int("accessors", len(doc.Accessors)),
		zap.Int("bufferBytes", len(bin)),
		zap.Int("warnings", len(e.warnings)))

	e.scenes = nil
	e.nodes = nil
	e.meshes = nil
	e.meshIndex = make(map[*Mesh]int)
	e.packer = bufferPacker{}
	e.accessors = nil
	e.views = nil

	return doc, bin, nil
}
