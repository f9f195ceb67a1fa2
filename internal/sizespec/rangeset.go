package sizespec

import (
	"fmt"
	"strconv"
	"strings"

	"nnetctl/internal/failure"
)

// Range is a single size value (Lo == Hi, Pair false) or an inclusive
// lo:hi range. Pair records that the source text used the lo:hi form so
// halving preserves structure.
type Range struct {
	Lo   int
	Hi   int
	Pair bool
}

func (r Range) String() string {
	if !r.Pair {
		return strconv.Itoa(r.Lo)
	}
	return strconv.Itoa(r.Lo) + ":" + strconv.Itoa(r.Hi)
}

func (r Range) halve() Range {
	return Range{Lo: halveValue(r.Lo), Hi: halveValue(r.Hi), Pair: r.Pair}
}

// RangeSet is an ordered, comma-separated list of ranges.
type RangeSet []Range

// ParseRangeSet parses text such as "16", "16,32" or "64:128,256". Every
// integer must be at least 1 and every range must satisfy lo <= hi.
func ParseRangeSet(text string) (RangeSet, error) {
	pieces := strings.Split(text, ",")
	set := make(RangeSet, 0, len(pieces))
	for _, piece := range pieces {
		r, err := parseRange(piece)
		if err != nil {
			return nil, invalid("range set", text, err)
		}
		set = append(set, r)
	}
	return set, nil
}

func parseRange(text string) (Range, error) {
	bounds := strings.Split(text, ":")
	values := make([]int, 0, len(bounds))
	for _, bound := range bounds {
		v, err := strconv.Atoi(strings.TrimSpace(bound))
		if err != nil {
			return Range{}, fmt.Errorf("%q is not an integer", bound)
		}
		values = append(values, v)
	}
	switch len(values) {
	case 1:
		if values[0] <= 0 {
			return Range{}, fmt.Errorf("%d is not positive", values[0])
		}
		return Range{Lo: values[0], Hi: values[0]}, nil
	case 2:
		if values[0] <= 0 || values[1] < values[0] {
			return Range{}, fmt.Errorf("%q is not a range with 1 <= lo <= hi", text)
		}
		return Range{Lo: values[0], Hi: values[1], Pair: true}, nil
	default:
		return Range{}, fmt.Errorf("%q has too many ':' separators", text)
	}
}

// Halve returns a new set with every integer floor-divided by two and
// clamped to 1.
func (s RangeSet) Halve() RangeSet {
	out := make(RangeSet, len(s))
	for i, r := range s {
		out[i] = r.halve()
	}
	return out
}

func (s RangeSet) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Max returns the largest size the set admits.
func (s RangeSet) Max() int {
	best := 0
	for _, r := range s {
		if r.Hi > best {
			best = r.Hi
		}
	}
	return best
}

func halveValue(v int) int {
	return max(1, v/2)
}

func invalid(kind, text string, err error) error {
	return failure.Wrap(failure.ErrInvalidSpec, "sizespec", "parse "+kind, fmt.Sprintf("%q", text), err)
}
