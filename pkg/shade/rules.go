package shade

import "fmt"

// Tier is the granularity at which a rule is evaluated.
type Tier uint8

const (
	PerTriangle Tier = iota
	PerVertex
	PerPixel
)

func (t Tier) String() string {
	switch t {
	case PerTriangle:
		return "triangle"
	case PerVertex:
		return "vertex"
	case PerPixel:
		return "pixel"
	}
	return fmt.Sprintf("Tier(%d)", uint8(t))
}

// Kind is the value kind of a rule. Int values are truncated toward zero
// when stored.
type Kind uint8

const (
	Real Kind = iota
	Int
)

func (k Kind) String() string {
	if k == Int {
		return "int"
	}
	return "real"
}

// Rule defines one named value.
type Rule struct {
	When Predicate
	Tier Tier
	Kind Kind
	Name string
	Expr Expr
}

func (r Rule) String() string {
	return fmt.Sprintf("[%s] %s %s %s = %s", r.When, r.Tier, r.Kind, r.Name, r.Expr)
}

// Table is an ordered list of rules. A rule may only reference names
// defined earlier in the table at the same or a coarser tier.
type Table []Rule

// Names the rasterizer reads from every plan.
const (
	NameX     = "x"
	NameY     = "y"
	NameZ     = "z"
	NameColor = "color"
)

// shadeColor scales the red, green and blue names by lightAmt.
func shadeColor() Expr {
	return Pack(
		Mul(Ref("red"), Ref("lightAmt")),
		Mul(Ref("green"), Ref("lightAmt")),
		Mul(Ref("blue"), Ref("lightAmt")),
	)
}

// lighting is max(cos, 0) * (Kd - Ka) + Ka.
func lighting(cos Input) Expr {
	return Add(Mul(Max(In(cos), Const(0)), Sub(Ref("Kd"), Ref("Ka"))), Ref("Ka"))
}

// DefaultTable is the table the rasterizer compiles unless given another.
//
// Lighting is per triangle when flat and per vertex when smooth. The color is
// per triangle only when both flat and untextured; a textured pixel samples
// its texel with perspective correction by carrying u*z and v*z across the
// span and dividing by the interpolated z.
var DefaultTable = Table{
	{Always(), PerTriangle, Real, "Kd", Mul(In(LightIntensity), In(Diffuse))},
	{Always(), PerTriangle, Real, "Ka", Mul(In(LightAmbient), In(Ambient))},
	{ForShading(Flat), PerTriangle, Real, "lightAmt", lighting(FaceCos)},
	{ForTexturing(Untextured), PerTriangle, Int, "red", Channel(In(MaterialColor), 16)},
	{ForTexturing(Untextured), PerTriangle, Int, "green", Channel(In(MaterialColor), 8)},
	{ForTexturing(Untextured), PerTriangle, Int, "blue", Channel(In(MaterialColor), 0)},
	{Exactly(Flat, Untextured), PerTriangle, Int, NameColor, shadeColor()},
	{ForTexturing(Textured), PerTriangle, Real, "texXMax", Sub(In(TextureWidth), Const(1))},
	{ForTexturing(Textured), PerTriangle, Real, "texYMax", Sub(In(TextureHeight), Const(1))},

	{ForShading(Smooth), PerVertex, Real, "lightAmt", lighting(VertexCos)},
	{Always(), PerVertex, Real, NameX, In(VertexX)},
	{Always(), PerVertex, Int, NameY, In(VertexY)},
	{Always(), PerVertex, Real, NameZ, In(VertexZ)},
	{ForTexturing(Textured), PerVertex, Real, "texu", Mul(In(VertexU), Ref(NameZ))},
	{ForTexturing(Textured), PerVertex, Real, "texv", Mul(In(VertexV), Ref(NameZ))},

	{Exactly(Smooth, Untextured), PerPixel, Int, NameColor, shadeColor()},
	{ForTexturing(Textured), PerPixel, Real, "recip", Div(Const(1), Ref(NameZ))},
	{ForTexturing(Textured), PerPixel, Int, "texIndex", Add(
		Mul(Trunc(Mul(Clamp(Mul(Ref("texv"), Ref("recip")), 0, 1), Ref("texYMax"))), In(TextureWidth)),
		Trunc(Mul(Clamp(Mul(Ref("texu"), Ref("recip")), 0, 1), Ref("texXMax"))),
	)},
	{ForTexturing(Textured), PerPixel, Int, "baseColor", Texel(Ref("texIndex"))},
	{ForTexturing(Textured), PerPixel, Int, "red", Channel(Ref("baseColor"), 16)},
	{ForTexturing(Textured), PerPixel, Int, "green", Channel(Ref("baseColor"), 8)},
	{ForTexturing(Textured), PerPixel, Int, "blue", Channel(Ref("baseColor"), 0)},
	{ForTexturing(Textured), PerPixel, Int, NameColor, shadeColor()},
}
