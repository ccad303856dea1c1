package shade

import (
	"fmt"
	"math"
)

type eval func(f *Frame) float64

// Expr is a node of a rule expression. Expressions are compiled once, per
// mode, into closures over a Frame.
type Expr interface {
	compile(c *compiler) (eval, error)
	String() string
}

// Input names a value supplied by the caller rather than defined by a rule.
type Input uint8

const (
	LightIntensity Input = iota
	LightAmbient
	Diffuse
	Ambient
	MaterialColor
	FaceCos // face normal · light direction
	TextureWidth
	TextureHeight
	VertexX
	VertexY
	VertexZ
	VertexCos // vertex normal · light direction
	VertexU
	VertexV
)

var inputNames = [...]string{
	LightIntensity: "lightIntensity",
	LightAmbient:   "lightAmbient",
	Diffuse:        "diffuse",
	Ambient:        "ambient",
	MaterialColor:  "materialColor",
	FaceCos:        "faceCos",
	TextureWidth:   "texWidth",
	TextureHeight:  "texHeight",
	VertexX:        "vertex.x",
	VertexY:        "vertex.y",
	VertexZ:        "vertex.z",
	VertexCos:      "vertexCos",
	VertexU:        "uv.u",
	VertexV:        "uv.v",
}

func (in Input) String() string {
	if int(in) < len(inputNames) {
		return inputNames[in]
	}
	return fmt.Sprintf("Input(%d)", uint8(in))
}

func (in Input) perVertex() bool { return in >= VertexX && in <= VertexV }

func (in Input) needsTexture() bool {
	return in == TextureWidth || in == TextureHeight
}

type constExpr float64

// Const is a literal.
func Const(v float64) Expr { return constExpr(v) }

func (e constExpr) compile(*compiler) (eval, error) {
	v := float64(e)
	return func(*Frame) float64 { return v }, nil
}

func (e constExpr) String() string { return fmt.Sprint(float64(e)) }

type refExpr string

// Ref reads a value defined by an earlier rule.
func Ref(name string) Expr { return refExpr(name) }

func (e refExpr) compile(c *compiler) (eval, error) {
	sym, ok := c.lookup(string(e))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUndefined, string(e))
	}
	slot := sym.slot
	return func(f *Frame) float64 { return f.Vals[slot] }, nil
}

func (e refExpr) String() string { return string(e) }

type inputExpr Input

// In reads a caller-supplied input.
func In(in Input) Expr { return inputExpr(in) }

func (e inputExpr) compile(c *compiler) (eval, error) {
	in := Input(e)
	if in.perVertex() && c.tier != PerVertex {
		return nil, fmt.Errorf("%w: %s read in the %s tier", ErrInputScope, in, c.tier)
	}
	if in.needsTexture() && !c.mode.IsTextured() {
		return nil, fmt.Errorf("%w: %s read in %s mode", ErrInputScope, in, c.mode)
	}
	switch in {
	case LightIntensity:
		return func(f *Frame) float64 { return f.In.LightIntensity }, nil
	case LightAmbient:
		return func(f *Frame) float64 { return f.In.LightAmbient }, nil
	case Diffuse:
		return func(f *Frame) float64 { return f.In.Diffuse }, nil
	case Ambient:
		return func(f *Frame) float64 { return f.In.Ambient }, nil
	case MaterialColor:
		return func(f *Frame) float64 { return float64(f.In.Color & 0xFFFFFF) }, nil
	case FaceCos:
		return func(f *Frame) float64 { return f.In.FaceNormal.Dot(f.In.Light) }, nil
	case TextureWidth:
		return func(f *Frame) float64 { return float64(f.In.TexWidth) }, nil
	case TextureHeight:
		return func(f *Frame) float64 { return float64(f.In.TexHeight) }, nil
	case VertexX:
		return func(f *Frame) float64 { return f.In.Vertices[f.vert].X }, nil
	case VertexY:
		return func(f *Frame) float64 { return float64(f.In.Vertices[f.vert].Y) }, nil
	case VertexZ:
		return func(f *Frame) float64 { return f.In.Vertices[f.vert].Z }, nil
	case VertexCos:
		return func(f *Frame) float64 { return f.In.Vertices[f.vert].Normal.Dot(f.In.Light) }, nil
	case VertexU:
		return func(f *Frame) float64 { return f.In.Vertices[f.vert].U }, nil
	case VertexV:
		return func(f *Frame) float64 { return f.In.Vertices[f.vert].V }, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUndefined, in)
}

func (e inputExpr) String() string { return Input(e).String() }

type binOp uint8

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
	opMax
)

var binOpNames = [...]string{opAdd: "+", opSub: "-", opMul: "*", opDiv: "/", opMax: "max"}

type binExpr struct {
	op   binOp
	a, b Expr
}

func Add(a, b Expr) Expr { return binExpr{opAdd, a, b} }
func Sub(a, b Expr) Expr { return binExpr{opSub, a, b} }
func Mul(a, b Expr) Expr { return binExpr{opMul, a, b} }
func Div(a, b Expr) Expr { return binExpr{opDiv, a, b} }
func Max(a, b Expr) Expr { return binExpr{opMax, a, b} }

func (e binExpr) compile(c *compiler) (eval, error) {
	a, err := e.a.compile(c)
	if err != nil {
		return nil, err
	}
	b, err := e.b.compile(c)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case opAdd:
		return func(f *Frame) float64 { return a(f) + b(f) }, nil
	case opSub:
		return func(f *Frame) float64 { return a(f) - b(f) }, nil
	case opMul:
		return func(f *Frame) float64 { return a(f) * b(f) }, nil
	case opDiv:
		return func(f *Frame) float64 { return a(f) / b(f) }, nil
	case opMax:
		return func(f *Frame) float64 { return max(a(f), b(f)) }, nil
	}
	return nil, fmt.Errorf("shade: unknown operator %d", e.op)
}

func (e binExpr) String() string {
	if e.op == opMax {
		return fmt.Sprintf("max(%s, %s)", e.a, e.b)
	}
	return fmt.Sprintf("(%s %s %s)", e.a, binOpNames[e.op], e.b)
}

type clampExpr struct {
	x      Expr
	lo, hi float64
}

// Clamp limits x to [lo, hi]. NaN clamps to lo.
func Clamp(x Expr, lo, hi float64) Expr { return clampExpr{x, lo, hi} }

func (e clampExpr) compile(c *compiler) (eval, error) {
	x, err := e.x.compile(c)
	if err != nil {
		return nil, err
	}
	lo, hi := e.lo, e.hi
	return func(f *Frame) float64 { return clamp(x(f), lo, hi) }, nil
}

func (e clampExpr) String() string {
	return fmt.Sprintf("clamp(%s, %v, %v)", e.x, e.lo, e.hi)
}

func clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type truncExpr struct{ x Expr }

// Trunc rounds toward zero.
func Trunc(x Expr) Expr { return truncExpr{x} }

func (e truncExpr) compile(c *compiler) (eval, error) {
	x, err := e.x.compile(c)
	if err != nil {
		return nil, err
	}
	return func(f *Frame) float64 { return math.Trunc(x(f)) }, nil
}

func (e truncExpr) String() string { return fmt.Sprintf("trunc(%s)", e.x) }

type channelExpr struct {
	x     Expr
	shift uint
}

// Channel extracts the 8-bit channel at shift (16 red, 8 green, 0 blue) of
// a packed color.
func Channel(x Expr, shift uint) Expr { return channelExpr{x, shift} }

func (e channelExpr) compile(c *compiler) (eval, error) {
	x, err := e.x.compile(c)
	if err != nil {
		return nil, err
	}
	shift := e.shift
	return func(f *Frame) float64 {
		return float64(uint32(x(f)) >> shift & 0xFF)
	}, nil
}

func (e channelExpr) String() string { return fmt.Sprintf("(%s >> %d) & 0xff", e.x, e.shift) }

type packExpr struct{ r, g, b Expr }

// Pack builds 0xRRGGBB from three channel values, each truncated toward zero
// and clamped to [0, 255].
func Pack(r, g, b Expr) Expr { return packExpr{r, g, b} }

func (e packExpr) compile(c *compiler) (eval, error) {
	r, err := e.r.compile(c)
	if err != nil {
		return nil, err
	}
	g, err := e.g.compile(c)
	if err != nil {
		return nil, err
	}
	b, err := e.b.compile(c)
	if err != nil {
		return nil, err
	}
	return func(f *Frame) float64 {
		return float64(channelByte(r(f))<<16 | channelByte(g(f))<<8 | channelByte(b(f)))
	}, nil
}

func (e packExpr) String() string { return fmt.Sprintf("pack(%s, %s, %s)", e.r, e.g, e.b) }

func channelByte(v float64) uint32 {
	return uint32(clamp(math.Trunc(v), 0, 255))
}

type texelExpr struct{ index Expr }

// Texel reads the packed RGB texel at a row-major index into the texture.
// Only valid in textured modes; the index must already be in range.
func Texel(index Expr) Expr { return texelExpr{index} }

func (e texelExpr) compile(c *compiler) (eval, error) {
	if !c.mode.IsTextured() {
		return nil, fmt.Errorf("%w: texel read in %s mode", ErrInputScope, c.mode)
	}
	idx, err := e.index.compile(c)
	if err != nil {
		return nil, err
	}
	return func(f *Frame) float64 {
		return float64(f.In.Texels[int(idx(f))] & 0xFFFFFF)
	}, nil
}

func (e texelExpr) String() string { return fmt.Sprintf("texel[%s]", e.index) }
