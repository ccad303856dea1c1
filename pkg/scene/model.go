package scene

import (
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/models"
	"github.com/taigrr/scanline/pkg/render"
	"github.com/taigrr/scanline/pkg/shade"
)

// Model is a mesh placed in a world with one material.
type Model struct {
	Name      string
	Mesh      *models.Mesh
	Material  *render.Material
	Transform math3d.Mat4 // model to world; must not scale non-uniformly

	id render.OwnerID
}

// NewModel returns a model with an identity transform.
func NewModel(name string, mesh *models.Mesh, mat *render.Material) *Model {
	return &Model{
		Name:      name,
		Mesh:      mesh,
		Material:  mat,
		Transform: math3d.Identity(),
	}
}

// ID returns the owner ID assigned when the model was added to a world, or
// render.NoOwner.
func (m *Model) ID() render.OwnerID { return m.id }

// Bounds returns the model's world-space bounding box.
func (m *Model) Bounds() AABB {
	return AABB{Min: m.Mesh.BoundsMin, Max: m.Mesh.BoundsMax}.Transform(m.Transform)
}

// MeshMaterial builds a material in mode from the mesh's primary material.
// Textured modes use the mesh's own base color texture, falling back to
// fallback when the mesh has none.
func MeshMaterial(mesh *models.Mesh, mode shade.Mode, fallback *render.Texture) (*render.Material, error) {
	var tex *render.Texture
	if mode.IsTextured() {
		tex = fallback
		if img := mesh.Texture(); img != nil {
			tex = render.TextureFromImage(img)
		}
	}
	mat, err := render.NewMaterial(mode, tex)
	if err != nil {
		return nil, err
	}
	if p := mesh.PrimaryMaterial(); p != nil {
		mat.Color = p.RGB()
	}
	return mat, nil
}
