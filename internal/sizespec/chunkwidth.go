package sizespec

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkWidth is an ordered list of chunk widths in frames, e.g. "150,110,90".
type ChunkWidth []int

// ParseChunkWidth parses a comma-separated list of integers each >= 1.
func ParseChunkWidth(text string) (ChunkWidth, error) {
	pieces := strings.Split(text, ",")
	widths := make(ChunkWidth, 0, len(pieces))
	for _, piece := range pieces {
		v, err := strconv.Atoi(strings.TrimSpace(piece))
		if err != nil {
			return nil, invalid("chunk width", text, fmt.Errorf("%q is not an integer", piece))
		}
		if v < 1 {
			return nil, invalid("chunk width", text, fmt.Errorf("%d is not positive", v))
		}
		widths = append(widths, v)
	}
	return widths, nil
}

// Principal returns the first width.
func (c ChunkWidth) Principal() int {
	if len(c) == 0 {
		return 0
	}
	return c[0]
}

func (c ChunkWidth) String() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
