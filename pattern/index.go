package pattern

import (
	"sort"

	"github.com/zlobste/grepcidr/ipaddr"
)

// linearScanMax is the range-count threshold below which Contains uses a
// straight-line scan instead of a binary search: at this size the branchy
// search loses to simple iteration and the scan specializes well.
const linearScanMax = 6

// Index is an immutable, sorted, overlap-free set of IPv4 and IPv6 ranges.
// It is safe for concurrent Contains calls from multiple goroutines once
// Build has returned.
type Index struct {
	v4 []V4Range
	v6 []V6Range

	v4Single *V4Range
	v6Single *V6Range

	origV4, origV6 int
}

// Stats summarizes a completed compile for diagnostics (see package cli's
// --stats-format flag). It is informational only and has no effect on
// matching behavior.
type Stats struct {
	V4Ranges     int  `json:"v4_ranges" yaml:"v4_ranges"`
	V6Ranges     int  `json:"v6_ranges" yaml:"v6_ranges"`
	V4MergedFrom int  `json:"v4_merged_from" yaml:"v4_merged_from"`
	V6MergedFrom int  `json:"v6_merged_from" yaml:"v6_merged_from"`
	FastPathV4   bool `json:"fast_path_v4" yaml:"fast_path_v4"`
	FastPathV6   bool `json:"fast_path_v6" yaml:"fast_path_v6"`
}

// Build compiles every token into a range, then sorts and merges each
// family independently. strict routes to CompileToken, rejecting
// misaligned CIDRs instead of masking them.
func Build(tokens []string, strict bool) (*Index, error) {
	var v4s []V4Range
	var v6s []V6Range

	for _, tok := range tokens {
		v4, v6, err := CompileToken(tok, strict)
		if err != nil {
			return nil, err
		}
		if v4 != nil {
			v4s = append(v4s, *v4)
		}
		if v6 != nil {
			v6s = append(v6s, *v6)
		}
	}

	idx := &Index{origV4: len(v4s), origV6: len(v6s)}
	idx.v4 = mergeV4(v4s)
	idx.v6 = mergeV6(v6s)

	if len(idx.v4) == 1 {
		idx.v4Single = &idx.v4[0]
	}
	if len(idx.v6) == 1 {
		idx.v6Single = &idx.v6[0]
	}
	return idx, nil
}

// Stats returns a snapshot of this index's shape.
func (idx *Index) Stats() Stats {
	return Stats{
		V4Ranges:     len(idx.v4),
		V6Ranges:     len(idx.v6),
		V4MergedFrom: idx.origV4,
		V6MergedFrom: idx.origV6,
		FastPathV4:   idx.v4Single != nil,
		FastPathV6:   idx.v6Single != nil,
	}
}

func mergeV4(ranges []V4Range) []V4Range {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Min < ranges[j].Min })
	out := make([]V4Range, 0, len(ranges))
	cur := ranges[0]
	for _, r := range ranges[1:] {
		if shouldMergeV4(cur, r) {
			if r.Max > cur.Max {
				cur.Max = r.Max
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

func shouldMergeV4(cur, next V4Range) bool {
	if next.Min <= cur.Max {
		return true
	}
	return next.Min-cur.Max == 1
}

func mergeV6(ranges []V6Range) []V6Range {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Min.Less(ranges[j].Min) })
	out := make([]V6Range, 0, len(ranges))
	cur := ranges[0]
	for _, r := range ranges[1:] {
		if shouldMergeV6(cur, r) {
			if r.Max.Compare(cur.Max) > 0 {
				cur.Max = r.Max
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

func shouldMergeV6(cur, next V6Range) bool {
	if next.Min.Compare(cur.Max) <= 0 {
		return true
	}
	diff := next.Min.Sub(cur.Max)
	return diff.Hi == 0 && diff.Lo == 1
}

// ContainsV4 reports whether a falls within any compiled IPv4 range.
func (idx *Index) ContainsV4(a ipaddr.V4Addr) bool {
	if idx.v4Single != nil {
		r := idx.v4Single
		return (a - r.Min) <= (r.Max - r.Min)
	}
	n := len(idx.v4)
	if n == 0 {
		return false
	}
	if n <= linearScanMax {
		for _, r := range idx.v4 {
			if (a - r.Min) <= (r.Max - r.Min) {
				return true
			}
		}
		return false
	}
	lo, hi, pos := 0, n-1, -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if idx.v4[mid].Min <= a {
			pos = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if pos == -1 {
		return false
	}
	r := idx.v4[pos]
	return (a - r.Min) <= (r.Max - r.Min)
}

// ContainsV6 reports whether a falls within any compiled IPv6 range.
func (idx *Index) ContainsV6(a ipaddr.V6Addr) bool {
	if idx.v6Single != nil {
		r := idx.v6Single
		return a.Sub(r.Min).LessEq(r.Max.Sub(r.Min))
	}
	n := len(idx.v6)
	if n == 0 {
		return false
	}
	if n <= linearScanMax {
		for _, r := range idx.v6 {
			if a.Sub(r.Min).LessEq(r.Max.Sub(r.Min)) {
				return true
			}
		}
		return false
	}
	lo, hi, pos := 0, n-1, -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if idx.v6[mid].Min.Compare(a) <= 0 {
			pos = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if pos == -1 {
		return false
	}
	r := idx.v6[pos]
	return a.Sub(r.Min).LessEq(r.Max.Sub(r.Min))
}

// HasV4 reports whether the index has any IPv4 coverage at all.
func (idx *Index) HasV4() bool { return len(idx.v4) > 0 }

// HasV6 reports whether the index has any IPv6 coverage at all.
func (idx *Index) HasV6() bool { return len(idx.v6) > 0 }

// V4Ranges returns the sorted, merged IPv4 ranges. The returned slice must
// not be mutated by the caller.
func (idx *Index) V4Ranges() []V4Range { return idx.v4 }

// V6Ranges returns the sorted, merged IPv6 ranges. The returned slice must
// not be mutated by the caller.
func (idx *Index) V6Ranges() []V6Range { return idx.v6 }
