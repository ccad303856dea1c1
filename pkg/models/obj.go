package models

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
)

// LoadOBJ loads a Wavefront OBJ file. Materials named by mtllib are loaded
// from the same directory when present; a missing library is not an error.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	dec := newOBJDecoder(filepath.Dir(path))
	mesh, err := dec.decode(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mesh, nil
}

// ParseOBJ parses OBJ data. mtllib statements are ignored.
func ParseOBJ(r io.Reader, name string) (*Mesh, error) {
	return newOBJDecoder("").decode(r, name)
}

// objKey identifies one distinct v/vt/vn combination; -1 marks an absent
// element.
type objKey struct{ v, vt, vn int }

type objDecoder struct {
	dir string // empty disables mtllib loading

	positions []math3d.Vec3
	uvs       []math3d.Vec2
	normals   []math3d.Vec3

	mesh     *Mesh
	vertices map[objKey]int
	material int
	matIndex map[string]int
	line     int
}

func newOBJDecoder(dir string) *objDecoder {
	return &objDecoder{
		dir:      dir,
		vertices: make(map[objKey]int),
		matIndex: make(map[string]int),
		material: -1,
	}
}

func (d *objDecoder) decode(r io.Reader, name string) (*Mesh, error) {
	d.mesh = NewMesh(name)
	err := scanLines(r, func(fields []string) error {
		d.line++
		return d.parseLine(fields)
	})
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", d.line, err)
	}
	if len(d.mesh.Faces) == 0 {
		return nil, fmt.Errorf("no faces")
	}
	if !d.mesh.HasNormals() {
		d.mesh.CalculateSmoothNormals()
	}
	d.mesh.CalculateBounds()
	return d.mesh, nil
}

// scanLines calls fn with the fields of every line, comments removed. Blank
// lines are passed as nil.
func scanLines(r io.Reader, fn func(fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if err := fn(strings.Fields(line)); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (d *objDecoder) parseLine(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		d.positions = append(d.positions, math3d.V3(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		// OBJ puts V=0 at the bottom of the image.
		d.uvs = append(d.uvs, math3d.V2(v[0], 1-v[1]))
	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		d.normals = append(d.normals, math3d.V3(v[0], v[1], v[2]).Normalize())
	case "f":
		return d.parseFace(fields[1:])
	case "usemtl":
		if len(fields) < 2 {
			return fmt.Errorf("usemtl without a name")
		}
		d.material = d.materialIndex(fields[1])
	case "mtllib":
		if d.dir == "" || len(fields) < 2 {
			return nil
		}
		for _, lib := range fields[1:] {
			if err := d.loadMTL(filepath.Join(d.dir, lib)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("mtllib %s: %w", lib, err)
			}
		}
	}
	// o, g, s, l and others carry nothing a triangle mesh needs.
	return nil
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i := range out {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseFace adds a polygon as a triangle fan around its first corner.
func (d *objDecoder) parseFace(corners []string) error {
	if len(corners) < 3 {
		return fmt.Errorf("face with %d corners", len(corners))
	}
	idx := make([]int, len(corners))
	for i, c := range corners {
		vi, err := d.vertex(c)
		if err != nil {
			return err
		}
		idx[i] = vi
	}
	for i := 2; i < len(idx); i++ {
		d.mesh.Faces = append(d.mesh.Faces, Face{
			V:        [3]int{idx[0], idx[i-1], idx[i]},
			Material: d.material,
		})
	}
	return nil
}

// vertex returns the mesh vertex for a v, v/vt, v//vn or v/vt/vn corner.
func (d *objDecoder) vertex(corner string) (int, error) {
	parts := strings.Split(corner, "/")
	if len(parts) > 3 {
		return 0, fmt.Errorf("bad face corner %q", corner)
	}
	key := objKey{-1, -1, -1}
	var err error
	if key.v, err = resolveIndex(parts[0], len(d.positions)); err != nil {
		return 0, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if key.vt, err = resolveIndex(parts[1], len(d.uvs)); err != nil {
			return 0, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if key.vn, err = resolveIndex(parts[2], len(d.normals)); err != nil {
			return 0, err
		}
	}

	if i, ok := d.vertices[key]; ok {
		return i, nil
	}
	v := MeshVertex{Position: d.positions[key.v]}
	if key.vt >= 0 {
		v.UV = d.uvs[key.vt]
	}
	if key.vn >= 0 {
		v.Normal = d.normals[key.vn]
	}
	i := len(d.mesh.Vertices)
	d.mesh.Vertices = append(d.mesh.Vertices, v)
	d.vertices[key] = i
	return i, nil
}

// resolveIndex converts a 1-based OBJ index, negative counting back from
// the latest element, into a 0-based one.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", s)
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += n
	default:
		return 0, fmt.Errorf("index 0 is not valid")
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %s out of range (%d defined)", s, n)
	}
	return i, nil
}

func (d *objDecoder) materialIndex(name string) int {
	if i, ok := d.matIndex[name]; ok {
		return i
	}
	i := len(d.mesh.Materials)
	d.mesh.Materials = append(d.mesh.Materials, defaultOBJMaterial(name))
	d.matIndex[name] = i
	return i
}

func defaultOBJMaterial(name string) Material {
	return Material{Name: name, BaseColor: [4]float64{0.8, 0.8, 0.8, 1}, Roughness: 1}
}

// loadMTL reads newmtl, Kd, d and map_Kd statements. Materials are created
// on first mention, so a library may be loaded before or after usemtl.
func (d *objDecoder) loadMTL(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var cur *Material
	return scanLines(f, func(fields []string) error {
		if len(fields) == 0 {
			return nil
		}
		switch fields[0] {
		case "newmtl":
			if len(fields) < 2 {
				return fmt.Errorf("newmtl without a name")
			}
			cur = &d.mesh.Materials[d.materialIndex(fields[1])]
		case "Kd":
			if cur == nil {
				return nil
			}
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return err
			}
			cur.BaseColor[0], cur.BaseColor[1], cur.BaseColor[2] = v[0], v[1], v[2]
		case "d":
			if cur == nil {
				return nil
			}
			v, err := parseFloats(fields[1:], 1)
			if err != nil {
				return err
			}
			cur.BaseColor[3] = v[0]
		case "map_Kd":
			if cur == nil || len(fields) < 2 {
				return nil
			}
			// Options such as -s precede the file name, which comes last.
			if img, err := loadImage(filepath.Join(d.dir, fields[len(fields)-1])); err == nil {
				cur.BaseMap = img
				cur.HasTexture = true
			}
		}
		return nil
	})
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return render.DecodeImage(f)
}

// Load loads a model by file extension: .glb and .gltf through the glTF
// loader, .obj through the OBJ loader.
func Load(path string) (*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		return LoadGLB(path)
	case ".obj":
		return LoadOBJ(path)
	}
	return nil, fmt.Errorf("unsupported model format %q", filepath.Ext(path))
}
