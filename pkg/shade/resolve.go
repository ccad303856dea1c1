package shade

import "fmt"

// Resolved is a rule that applies to a mode, with its position in the table.
type Resolved struct {
	Rule
	Index int
}

// Tiers is a table resolved for one mode: the matching rules, split by tier,
// each in table order.
type Tiers struct {
	Triangle []Resolved
	Vertex   []Resolved
	Pixel    []Resolved
}

// All returns the tiers coarsest first.
func (t Tiers) All() [3][]Resolved {
	return [3][]Resolved{t.Triangle, t.Vertex, t.Pixel}
}

// Len returns the total number of rules.
func (t Tiers) Len() int { return len(t.Triangle) + len(t.Vertex) + len(t.Pixel) }

// Resolve keeps the rules of table whose predicate matches mode and
// partitions them by tier.
func Resolve(table Table, mode Mode) (Tiers, error) {
	var out Tiers
	if !mode.Valid() {
		return out, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	for i, rule := range table {
		if !rule.When.Matches(mode) {
			continue
		}
		r := Resolved{Rule: rule, Index: i}
		switch r.Tier {
		case PerTriangle:
			out.Triangle = append(out.Triangle, r)
		case PerVertex:
			out.Vertex = append(out.Vertex, r)
		case PerPixel:
			out.Pixel = append(out.Pixel, r)
		default:
			return Tiers{}, fmt.Errorf("shade: rule %q has unknown tier %s", r.Name, r.Tier)
		}
	}
	return out, nil
}
