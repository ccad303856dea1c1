package models

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
)

// GLTFLoader loads GLTF/GLB files into Mesh format.
type GLTFLoader struct {
	CalculateNormals bool // compute normals when the file has none
	SmoothNormals    bool // average computed normals across shared vertices
	DecodeTextures   bool // decode base color textures into Material.BaseMap
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
		DecodeTextures:   true,
	}
}

// LoadGLB loads a binary GLTF (.glb) or JSON GLTF file.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a GLTF or GLB file and returns a Mesh.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return l.fromDocument(doc, path)
}

func (l *GLTFLoader) fromDocument(doc *gltf.Document, path string) (*Mesh, error) {
	mesh := NewMesh(filepath.Base(path))
	mesh.Materials = l.readMaterials(doc, filepath.Dir(path))

	for _, m := range doc.Meshes {
		if err := l.processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}
	if len(mesh.Faces) == 0 {
		return nil, fmt.Errorf("%s: no triangles", path)
	}

	if l.CalculateNormals && !mesh.HasNormals() {
		if l.SmoothNormals {
			mesh.CalculateSmoothNormals()
		} else {
			mesh.CalculateNormals()
		}
	}

	mesh.CalculateBounds()
	return mesh, nil
}

// processMesh extracts geometry from a GLTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, strips)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs []math3d.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = readVec2Accessor(doc, uvIdx)
			if err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		material := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
		}

		baseVertex := len(mesh.Vertices)
		for i := range positions {
			v := MeshVertex{Position: positions[i]}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			if i < len(uvs) {
				// glTF UVs already have V=0 at the top of the image.
				v.UV = uvs[i]
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []int
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		for i := 0; i+2 < len(indices); i += 3 {
			f := Face{
				V:        [3]int{baseVertex + indices[i], baseVertex + indices[i+1], baseVertex + indices[i+2]},
				Material: material,
			}
			for _, vi := range f.V {
				if vi >= len(mesh.Vertices) {
					return fmt.Errorf("index %d out of range (%d vertices)", vi-baseVertex, len(positions))
				}
			}
			mesh.Faces = append(mesh.Faces, f)
		}
	}
	return nil
}

// readMaterials converts the document's PBR materials. Textures that fail to
// load leave the material untextured.
func (l *GLTFLoader) readMaterials(doc *gltf.Document, dir string) []Material {
	out := make([]Material, 0, len(doc.Materials))
	for _, gm := range doc.Materials {
		m := Material{Name: gm.Name, BaseColor: [4]float64{1, 1, 1, 1}, Metallic: 1, Roughness: 1}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				m.BaseColor = *pbr.BaseColorFactor
			}
			if pbr.MetallicFactor != nil {
				m.Metallic = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				m.Roughness = *pbr.RoughnessFactor
			}
			if l.DecodeTextures && pbr.BaseColorTexture != nil {
				if img := textureImage(doc, dir, pbr.BaseColorTexture.Index); img != nil {
					m.BaseMap = img
					m.HasTexture = true
				}
			}
		}
		out = append(out, m)
	}
	return out
}

func textureImage(doc *gltf.Document, dir string, texIdx int) image.Image {
	if texIdx < 0 || texIdx >= len(doc.Textures) || doc.Textures[texIdx].Source == nil {
		return nil
	}
	data, err := imageData(doc, dir, *doc.Textures[texIdx].Source)
	if err != nil {
		return nil
	}
	img, err := render.DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return img
}

// imageData returns the encoded bytes of image i, whether it lives in a
// buffer view, a data URI or a file next to the document.
func imageData(doc *gltf.Document, dir string, i int) ([]byte, error) {
	if i < 0 || i >= len(doc.Images) {
		return nil, fmt.Errorf("image %d out of range", i)
	}
	img := doc.Images[i]
	switch {
	case img.BufferView != nil:
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		end := bv.ByteOffset + bv.ByteLength
		if end > len(buf.Data) {
			return nil, fmt.Errorf("image %d: buffer view past end of buffer", i)
		}
		return buf.Data[bv.ByteOffset:end], nil
	case strings.HasPrefix(img.URI, "data:"):
		_, payload, ok := strings.Cut(img.URI, ",")
		if !ok {
			return nil, fmt.Errorf("image %d: malformed data URI", i)
		}
		return base64.StdEncoding.DecodeString(payload)
	case img.URI != "":
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(img.URI)))
	}
	return nil, fmt.Errorf("image %d has no data", i)
}

// readVec3Accessor reads float VEC3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	a, data, stride, err := accessorBytes(doc, accessorIdx, gltf.AccessorVec3, 12)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec3, a.Count)
	for i := range result {
		p := data[i*stride:]
		result[i] = math3d.V3(readFloat32(p), readFloat32(p[4:]), readFloat32(p[8:]))
	}
	return result, nil
}

// readVec2Accessor reads float VEC2 data from a GLTF accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	a, data, stride, err := accessorBytes(doc, accessorIdx, gltf.AccessorVec2, 8)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec2, a.Count)
	for i := range result {
		p := data[i*stride:]
		result[i] = math3d.V2(readFloat32(p), readFloat32(p[4:]))
	}
	return result, nil
}

// readIndices reads unsigned scalar index data from a GLTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	var size int
	switch doc.Accessors[accessorIdx].ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index type: %v", doc.Accessors[accessorIdx].ComponentType)
	}

	a, data, stride, err := accessorBytes(doc, accessorIdx, gltf.AccessorScalar, size)
	if err != nil {
		return nil, err
	}
	result := make([]int, a.Count)
	for i := range result {
		p := data[i*stride:]
		switch size {
		case 1:
			result[i] = int(p[0])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(p))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(p))
		}
	}
	return result, nil
}

// accessorBytes returns the accessor's data starting at its first element,
// and the byte stride between elements. Float accessors must use 32-bit
// components; elemSize is the packed size of one element.
func accessorBytes(doc *gltf.Document, accessorIdx int, typ gltf.AccessorType, elemSize int) (*gltf.Accessor, []byte, int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, nil, 0, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	a := doc.Accessors[accessorIdx]
	if a.Type != typ {
		return nil, nil, 0, fmt.Errorf("expected %v, got %v", typ, a.Type)
	}
	if typ != gltf.AccessorScalar && a.ComponentType != gltf.ComponentFloat {
		return nil, nil, 0, fmt.Errorf("unsupported component type %v", a.ComponentType)
	}
	if a.BufferView == nil {
		return nil, nil, 0, fmt.Errorf("accessor has no buffer view")
	}

	bv := doc.BufferViews[*a.BufferView]
	buf := doc.Buffers[bv.Buffer]
	if buf.Data == nil {
		return nil, nil, 0, fmt.Errorf("buffer has no data")
	}

	stride := bv.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	start := bv.ByteOffset + a.ByteOffset
	if a.Count > 0 {
		if end := start + (a.Count-1)*stride + elemSize; end > len(buf.Data) {
			return nil, nil, 0, fmt.Errorf("accessor reads past end of buffer (%d > %d)", end, len(buf.Data))
		}
	}
	return a, buf.Data[start:], stride, nil
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

// LoadGLTFWithTextures loads a GLTF file and extracts its images.
// Returns the mesh and a map of image index to encoded image data.
func LoadGLTFWithTextures(path string) (*Mesh, map[int][]byte, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh, err := NewGLTFLoader().fromDocument(doc, path)
	if err != nil {
		return nil, nil, err
	}

	textures := make(map[int][]byte)
	dir := filepath.Dir(path)
	for i := range doc.Images {
		if data, err := imageData(doc, dir, i); err == nil && len(data) > 0 {
			textures[i] = data
		}
	}
	return mesh, textures, nil
}

// LoadGLBWithTexture loads a GLB file and returns the mesh plus its base
// color texture. The texture is nil if the file has none.
func LoadGLBWithTexture(path string) (*Mesh, image.Image, error) {
	mesh, err := LoadGLB(path)
	if err != nil {
		return nil, nil, err
	}
	return mesh, mesh.Texture(), nil
}
