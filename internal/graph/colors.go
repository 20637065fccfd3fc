package graph

import "math/bits"

// colorSet tracks the colors held by occupied lanes as a bitset.
type colorSet struct {
	words []uint64
}

func (s *colorSet) add(c Color) {
	w := int(c) / 64
	for len(s.words) <= w {
		s.words = append(s.words, 0)
	}
	s.words[w] |= 1 << (uint(c) % 64)
}

func (s *colorSet) remove(c Color) {
	w := int(c) / 64
	if w < len(s.words) {
		s.words[w] &^= 1 << (uint(c) % 64)
	}
}

func (s *colorSet) has(c Color) bool {
	w := int(c) / 64
	return w < len(s.words) && s.words[w]&(1<<(uint(c)%64)) != 0
}

// lowestFree returns the smallest color not in the set.
func (s *colorSet) lowestFree() Color {
	for i, w := range s.words {
		if w != ^uint64(0) {
			return Color(i*64 + bits.TrailingZeros64(^w))
		}
	}
	return Color(len(s.words) * 64)
}
