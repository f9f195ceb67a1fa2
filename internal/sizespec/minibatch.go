package sizespec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rule maps an example length (input frames including context) to the
// sizes used for examples of that length.
type Rule struct {
	Length int
	Sizes  RangeSet
}

// MinibatchSize is either a flat RangeSet or an ordered list of rules.
type MinibatchSize struct {
	flat  RangeSet
	rules []Rule
}

// ParseMinibatchSize parses a minibatch-size spec. A single piece without
// '=' is a flat range set. Otherwise every '/'-separated piece must be
// length=ranges with a positive integer length; with more than one piece a
// piece lacking '=' invalidates the whole string.
func ParseMinibatchSize(text string) (MinibatchSize, error) {
	pieces := strings.Split(text, "/")
	if len(pieces) == 1 && !strings.Contains(pieces[0], "=") {
		flat, err := ParseRangeSet(pieces[0])
		if err != nil {
			return MinibatchSize{}, err
		}
		return MinibatchSize{flat: flat}, nil
	}

	rules := make([]Rule, 0, len(pieces))
	for _, piece := range pieces {
		key, value, err := splitRule(piece)
		if err != nil {
			return MinibatchSize{}, invalid("minibatch size", text, err)
		}
		length, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || length <= 0 {
			return MinibatchSize{}, invalid("minibatch size", text, fmt.Errorf("length %q is not a positive integer", key))
		}
		sizes, err := ParseRangeSet(value)
		if err != nil {
			return MinibatchSize{}, invalid("minibatch size", text, err)
		}
		rules = append(rules, Rule{Length: length, Sizes: sizes})
	}
	return MinibatchSize{rules: rules}, nil
}

func splitRule(piece string) (string, string, error) {
	parts := strings.Split(piece, "=")
	if len(parts) != 2 {
		return "", "", errors.New("piece " + strconv.Quote(piece) + " must contain exactly one '='")
	}
	return parts[0], parts[1], nil
}

// IsFlat reports whether the spec has no length keys.
func (m MinibatchSize) IsFlat() bool { return m.rules == nil }

// Flat returns the flat range set, or nil for rule specs.
func (m MinibatchSize) Flat() RangeSet {
	if m.flat == nil {
		return nil
	}
	return append(RangeSet(nil), m.flat...)
}

// Rules returns a copy of the length rules, or nil for flat specs.
func (m MinibatchSize) Rules() []Rule {
	if m.rules == nil {
		return nil
	}
	return append([]Rule(nil), m.rules...)
}

// Halve halves the size values; example lengths are untouched.
func (m MinibatchSize) Halve() MinibatchSize {
	if m.IsFlat() {
		return MinibatchSize{flat: m.flat.Halve()}
	}
	rules := make([]Rule, len(m.rules))
	for i, rule := range m.rules {
		rules[i] = Rule{Length: rule.Length, Sizes: rule.Sizes.Halve()}
	}
	return MinibatchSize{rules: rules}
}

// SizeFor returns the sizes for an example of the given length: the flat
// set, or the rule whose length is closest (ties go to the shorter rule).
func (m MinibatchSize) SizeFor(length int) RangeSet {
	if m.IsFlat() {
		return m.Flat()
	}
	best := m.rules[0]
	bestDist := absDiff(best.Length, length)
	for _, rule := range m.rules[1:] {
		dist := absDiff(rule.Length, length)
		if dist < bestDist || (dist == bestDist && rule.Length < best.Length) {
			best, bestDist = rule, dist
		}
	}
	return append(RangeSet(nil), best.Sizes...)
}

func (m MinibatchSize) String() string {
	if m.IsFlat() {
		return m.flat.String()
	}
	parts := make([]string, len(m.rules))
	for i, rule := range m.rules {
		parts[i] = strconv.Itoa(rule.Length) + "=" + rule.Sizes.String()
	}
	return strings.Join(parts, "/")
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
