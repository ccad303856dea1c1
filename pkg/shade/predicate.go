package shade

type predicateKind uint8

const (
	predAlways predicateKind = iota
	predShading
	predTexturing
	predExact
)

// Predicate decides which modes a rule applies to. It has exactly three
// shapes: always; a single axis tag, matching every mode whose axis has that
// value; or one tag per axis, matching the single mode they name together.
// The zero value is Always.
type Predicate struct {
	kind      predicateKind
	shading   Shading
	texturing Texturing
}

// Always matches every mode.
func Always() Predicate { return Predicate{} }

// ForShading matches both modes with shading s.
func ForShading(s Shading) Predicate {
	return Predicate{kind: predShading, shading: s}
}

// ForTexturing matches both modes with texturing t.
func ForTexturing(t Texturing) Predicate {
	return Predicate{kind: predTexturing, texturing: t}
}

// Exactly matches only the mode {s, t}.
func Exactly(s Shading, t Texturing) Predicate {
	return Predicate{kind: predExact, shading: s, texturing: t}
}

// Matches reports whether a rule guarded by p applies to mode m.
func (p Predicate) Matches(m Mode) bool {
	switch p.kind {
	case predShading:
		return m.Shading == p.shading
	case predTexturing:
		return m.Texturing == p.texturing
	case predExact:
		return m.Shading == p.shading && m.Texturing == p.texturing
	}
	return true
}

func (p Predicate) String() string {
	switch p.kind {
	case predShading:
		return p.shading.String()
	case predTexturing:
		return p.texturing.String()
	case predExact:
		return p.shading.String() + "+" + p.texturing.String()
	}
	return "always"
}
