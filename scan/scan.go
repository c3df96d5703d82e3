// Package scan locates plausible IP-literal substrings inside arbitrary
// line-oriented text so that the strict parsers in ipaddr are only ever
// invoked on spans worth the cost.
package scan

import "github.com/zlobste/grepcidr/ipaddr"

// Family identifies which address family a confirmed candidate parsed as.
type Family int

const (
	// FamilyV4 marks a candidate that parsed as an IPv4 address.
	FamilyV4 Family = iota
	// FamilyV6 marks a candidate that parsed as an IPv6 address, possibly
	// carrying an embedded-v4 equivalent (see Candidate.EmbeddedV4).
	FamilyV6
)

// byte-class lookup tables, computed once at init and never mutated
// afterward — see design note on global/static state: constants only.
const (
	classNone = 0
	v4Head    = 1 << 0
	v4Body    = 1 << 1
	v6Head    = 1 << 2
	v6Body    = 1 << 3
)

var classOf [256]uint8

func init() {
	for c := '0'; c <= '9'; c++ {
		classOf[c] |= v4Head | v4Body | v6Head | v6Body
	}
	classOf['.'] |= v4Body | v6Body
	classOf[':'] |= v6Head | v6Body
	for c := 'a'; c <= 'f'; c++ {
		classOf[c] |= v6Head | v6Body
	}
	for c := 'A'; c <= 'F'; c++ {
		classOf[c] |= v6Head | v6Body
	}
}

// v6LookaheadWindow is the number of bytes scanned ahead of a v6-head byte
// for a ':' before a v6 candidate is attempted. Every legal IPv6 literal has
// a ':' within its first five bytes, so no legitimate address is ever
// rejected by the window, while it still bounds the cost of rejecting runs
// of hex-looking non-address text.
const v6LookaheadWindow = 40

// Candidate is one confirmed IP literal found in a line.
type Candidate struct {
	Start, End int // byte offsets into the scanned line, End exclusive
	Family     Family
	V4         ipaddr.V4Addr // valid when Family == FamilyV4
	V6         ipaddr.V6Addr // valid when Family == FamilyV6
	EmbeddedV4 *ipaddr.V4Addr
}

// Scanner walks a line left to right, yielding confirmed candidates in
// order. It holds no state between lines beyond its reusable scratch
// buffer and is not safe for concurrent use; give each goroutine its own.
type Scanner struct {
	buf []Candidate
}

// New returns a ready-to-use Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan locates every confirmed IP candidate in line and returns them in
// left-to-right order. The returned slice aliases the Scanner's internal
// scratch buffer and is only valid until the next call to Scan or ScanFunc.
func (s *Scanner) Scan(line []byte) []Candidate {
	s.buf = s.buf[:0]
	s.ScanFunc(line, func(c Candidate) bool {
		s.buf = append(s.buf, c)
		return true
	})
	return s.buf
}

// ScanFunc walks line left to right, invoking yield for each confirmed
// candidate in order. It stops as soon as yield returns false, so callers
// that only need to know "does any candidate match" can exit without
// paying for the rest of the line — the early-exit contract lives here,
// not in the caller's loop over a pre-built slice.
func (s *Scanner) ScanFunc(line []byte, yield func(Candidate) bool) {
	i := 0
	n := len(line)
	for i < n {
		c := classOf[line[i]]
		prev := uint8(classNone)
		if i > 0 {
			prev = classOf[line[i-1]]
		}

		if c&v4Head != 0 && prev&v4Body == 0 {
			if v, consumed, ok := tryV4(line[i:]); ok {
				if !yield(Candidate{Start: i, End: i + consumed, Family: FamilyV4, V4: v}) {
					return
				}
				i += consumed
				continue
			}
		}

		if c&v6Head != 0 && prev&v6Body == 0 && hasColonWithin(line, i, v6LookaheadWindow) {
			if v, consumed, embedded, ok := tryV6(line[i:]); ok {
				if !yield(Candidate{Start: i, End: i + consumed, Family: FamilyV6, V6: v, EmbeddedV4: embedded}) {
					return
				}
				i += consumed
				continue
			}
		}

		i++
	}
}

func hasColonWithin(line []byte, start, window int) bool {
	end := start + window
	if end > len(line) {
		end = len(line)
	}
	for i := start; i < end; i++ {
		if line[i] == ':' {
			return true
		}
	}
	return false
}

func tryV4(b []byte) (ipaddr.V4Addr, int, bool) {
	a, n, err := ipaddr.ParseV4(b)
	if err != nil {
		return 0, 0, false
	}
	return a, n, true
}

func tryV6(b []byte) (ipaddr.V6Addr, int, *ipaddr.V4Addr, bool) {
	a, n, embedded, err := ipaddr.ParseV6(b)
	if err != nil {
		return ipaddr.V6Addr{}, 0, nil, false
	}
	return a, n, embedded, true
}
