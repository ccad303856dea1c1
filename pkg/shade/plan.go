package shade

import (
	"fmt"
	"math"
	"strings"
)

// Step is one compiled rule.
type Step struct {
	Name string
	Kind Kind
	Slot int
	eval eval
}

// Run evaluates the step and stores its value in the frame.
func (s *Step) Run(f *Frame) {
	v := s.eval(f)
	if s.Kind == Int {
		v = math.Trunc(v)
	}
	f.Vals[s.Slot] = v
}

// Plan is a table specialized for one mode. Plans are immutable and may be
// shared between goroutines; each goroutine needs its own Frame.
type Plan struct {
	Mode Mode

	Triangle []Step
	Vertex   []Step
	Pixel    []Step

	// Varying lists the slots of every per-vertex value except x and y, in
	// definition order. These are interpolated across spans.
	Varying []int

	// Slots of the names the rasterizer reads. During the pixel tier the x
	// and y slots hold the pixel's column and row.
	X, Y, Z, Color int

	Slots int
}

type symbol struct {
	slot  int
	tier  Tier
	index int // table position of the defining rule
}

type compiler struct {
	mode    Mode
	tier    Tier
	index   int
	symbols map[string]symbol
}

func (c *compiler) lookup(name string) (symbol, bool) {
	sym, ok := c.symbols[name]
	if !ok || sym.tier > c.tier || sym.index > c.index {
		return symbol{}, false
	}
	return sym, true
}

// Specialize compiles the rules Resolve keeps for mode, coarsest tier
// first. A rule may only reference names defined earlier in the table at
// the same or a coarser tier; anything else fails with ErrUndefined.
func Specialize(table Table, mode Mode) (*Plan, error) {
	tiers, err := Resolve(table, mode)
	if err != nil {
		return nil, err
	}
	c := &compiler{mode: mode, symbols: make(map[string]symbol)}
	p := &Plan{Mode: mode}
	steps := [...]*[]Step{&p.Triangle, &p.Vertex, &p.Pixel}

	for tier, rules := range tiers.All() {
		for _, r := range rules {
			if r.Name == "" || r.Expr == nil {
				return nil, fmt.Errorf("shade: incomplete rule %s", r.Rule)
			}
			if _, dup := c.symbols[r.Name]; dup {
				return nil, fmt.Errorf("%w: %q in %s mode", ErrRedefined, r.Name, mode)
			}
			c.tier, c.index = r.Tier, r.Index
			ev, err := r.Expr.compile(c)
			if err != nil {
				return nil, fmt.Errorf("%s mode, rule %q: %w", mode, r.Name, err)
			}
			*steps[tier] = append(*steps[tier], Step{Name: r.Name, Kind: r.Kind, Slot: p.Slots, eval: ev})
			c.symbols[r.Name] = symbol{slot: p.Slots, tier: r.Tier, index: r.Index}
			p.Slots++
		}
	}

	if p.X, err = c.require(NameX, PerVertex); err != nil {
		return nil, err
	}
	if p.Y, err = c.require(NameY, PerVertex); err != nil {
		return nil, err
	}
	if p.Z, err = c.require(NameZ, PerVertex); err != nil {
		return nil, err
	}
	if p.Color, err = c.require(NameColor, PerTriangle, PerPixel); err != nil {
		return nil, err
	}
	for _, s := range p.Vertex {
		if s.Slot != p.X && s.Slot != p.Y {
			p.Varying = append(p.Varying, s.Slot)
		}
	}
	return p, nil
}

func (c *compiler) require(name string, tiers ...Tier) (int, error) {
	sym, ok := c.symbols[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q in %s mode", ErrMissing, name, c.mode)
	}
	for _, t := range tiers {
		if sym.tier == t {
			return sym.slot, nil
		}
	}
	return 0, fmt.Errorf("%w: %q must be defined per %v in %s mode, not per %s",
		ErrMissing, name, tiers, c.mode, sym.tier)
}

// MustSpecialize is like Specialize but panics on error. It is meant for
// tables fixed at compile time.
func MustSpecialize(table Table, mode Mode) *Plan {
	p, err := Specialize(table, mode)
	if err != nil {
		panic(err)
	}
	return p
}

// NewFrame allocates a frame sized for the plan, reading from in.
func (p *Plan) NewFrame(in *Inputs) *Frame {
	return &Frame{Vals: make([]float64, p.Slots), In: in}
}

// RunTriangle evaluates the per-triangle steps.
func (p *Plan) RunTriangle(f *Frame) {
	for i := range p.Triangle {
		p.Triangle[i].Run(f)
	}
}

// RunVertex evaluates the per-vertex steps for vertex i.
func (p *Plan) RunVertex(f *Frame, i int) {
	f.vert = i
	for j := range p.Vertex {
		p.Vertex[j].Run(f)
	}
}

// RunPixel evaluates the per-pixel steps.
func (p *Plan) RunPixel(f *Frame) {
	for i := range p.Pixel {
		p.Pixel[i].Run(f)
	}
}

// Names returns the step names of each tier, for inspection.
func (p *Plan) Names() (triangle, vertex, pixel []string) {
	names := func(steps []Step) []string {
		out := make([]string, len(steps))
		for i, s := range steps {
			out[i] = s.Name
		}
		return out
	}
	return names(p.Triangle), names(p.Vertex), names(p.Pixel)
}

func (p *Plan) String() string {
	t, v, px := p.Names()
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", p.Mode)
	fmt.Fprintf(&b, "  triangle: %s\n", strings.Join(t, " "))
	fmt.Fprintf(&b, "  vertex:   %s\n", strings.Join(v, " "))
	fmt.Fprintf(&b, "  pixel:    %s\n", strings.Join(px, " "))
	return b.String()
}
