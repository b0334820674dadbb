package partkv

import (
	"sort"
	"strings"
)

// Range selects an ordered span of keys. The constructors use mnemonics:
// O means open, I means inclusive, E means exclusive; the first letter is for
// the lower bound, the second for the upper bound.
type Range struct {
	Prefix   string
	Lower    string
	Upper    string
	HasLower bool
	HasUpper bool
	LowerInc bool
	UpperInc bool
	Reverse  bool
}

func FullRange() Range          { return Range{} }
func RangeIO(l string) Range    { return Range{Lower: l, HasLower: true, LowerInc: true} }
func RangeEO(l string) Range    { return Range{Lower: l, HasLower: true} }
func RangeOI(u string) Range    { return Range{Upper: u, HasUpper: true, UpperInc: true} }
func RangeOE(u string) Range    { return Range{Upper: u, HasUpper: true} }
func RangeII(l, u string) Range { return Range{Lower: l, Upper: u, HasLower: true, HasUpper: true, LowerInc: true, UpperInc: true} }
func RangeIE(l, u string) Range {
	return Range{Lower: l, Upper: u, HasLower: true, HasUpper: true, LowerInc: true}
}
func RangeEI(l, u string) Range {
	return Range{Lower: l, Upper: u, HasLower: true, HasUpper: true, UpperInc: true}
}
func RangeEE(l, u string) Range {
	return Range{Lower: l, Upper: u, HasLower: true, HasUpper: true}
}
func RangePrefix(p string) Range           { return Range{Prefix: p} }
func (rang Range) Prefixed(p string) Range { rang.Prefix = p; return rang }
func (rang Range) Reversed() Range         { rang.Reverse = true; return rang }

// Contains reports whether key falls into the range. Reverse is irrelevant.
func (rang Range) Contains(key string) bool {
	if rang.Prefix != "" && !strings.HasPrefix(key, rang.Prefix) {
		return false
	}
	if rang.HasLower {
		if key < rang.Lower || (key == rang.Lower && !rang.LowerInc) {
			return false
		}
	}
	if rang.HasUpper {
		if key > rang.Upper || (key == rang.Upper && !rang.UpperInc) {
			return false
		}
	}
	return true
}

// span returns the half-open index interval [lo, hi) of the sorted keys
// (accessed via key(i), n total) that fall into the range.
func (rang Range) span(n int, key func(i int) string) (lo, hi int) {
	lo, hi = 0, n
	if rang.HasLower {
		if rang.LowerInc {
			lo = sort.Search(n, func(i int) bool { return key(i) >= rang.Lower })
		} else {
			lo = sort.Search(n, func(i int) bool { return key(i) > rang.Lower })
		}
	}
	if rang.HasUpper {
		if rang.UpperInc {
			hi = sort.Search(n, func(i int) bool { return key(i) > rang.Upper })
		} else {
			hi = sort.Search(n, func(i int) bool { return key(i) >= rang.Upper })
		}
	}
	if rang.Prefix != "" {
		plo := sort.Search(n, func(i int) bool { return key(i) >= rang.Prefix })
		// keys carrying the prefix form one contiguous run starting at plo
		phi := plo + sort.Search(n-plo, func(i int) bool {
			return !strings.HasPrefix(key(plo+i), rang.Prefix)
		})
		lo = max(lo, plo)
		hi = min(hi, phi)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
