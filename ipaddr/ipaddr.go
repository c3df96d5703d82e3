// Package ipaddr provides fixed-width numeric address types for IPv4 and
// IPv6, strict textual parsing, and canonical formatting. It makes no
// attempt to validate surrounding text structure: callers hand it candidate
// byte spans and it either parses a value plus the number of bytes consumed,
// or fails.
package ipaddr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors raised by the parsers. Which policy applies (swallow vs
// fatal) is a decision made by the caller, not by this package: scanning call
// sites treat these as recoverable, compile call sites treat them as fatal.
var (
	ErrMalformedV4 = errors.New("ipaddr: malformed ipv4 literal")
	ErrMalformedV6 = errors.New("ipaddr: malformed ipv6 literal")
)

// V4Addr is a 32-bit IPv4 address in host-numeric order: the high octet is
// the most significant byte. The zero value is 0.0.0.0.
type V4Addr uint32

// V6Addr is a 128-bit IPv6 address, leftmost hextet most significant. The
// zero value is ::.
type V6Addr struct {
	Hi uint64
	Lo uint64
}

// Less reports whether a orders before b.
func (a V4Addr) Less(b V4Addr) bool { return a < b }

// Less reports whether a orders before b.
func (a V6Addr) Less(b V6Addr) bool {
	if a.Hi != b.Hi {
		return a.Hi < b.Hi
	}
	return a.Lo < b.Lo
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a V6Addr) Compare(b V6Addr) int {
	switch {
	case a.Hi != b.Hi:
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	case a.Lo != b.Lo:
		if a.Lo < b.Lo {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Sub returns a-b mod 2^128, the wrapping 128-bit subtraction used by the
// branchless inclusive-range test in package pattern.
func (a V6Addr) Sub(b V6Addr) V6Addr {
	lo := a.Lo - b.Lo
	var borrow uint64
	if a.Lo < b.Lo {
		borrow = 1
	}
	return V6Addr{Hi: a.Hi - b.Hi - borrow, Lo: lo}
}

// LessEq reports a<=b treating both as unsigned 128-bit values. Combined
// with Sub, (addr.Sub(min)).LessEq(max.Sub(min)) is the branchless inclusive
// range test for V6Addr: an out-of-range addr wraps to a huge value on
// subtraction and so fails the comparison without a second bound check.
func (a V6Addr) LessEq(b V6Addr) bool {
	if a.Hi != b.Hi {
		return a.Hi < b.Hi
	}
	return a.Lo <= b.Lo
}

// Mask returns a with all bits below the prefix cleared. Panics if prefix is
// out of [0,32].
func (a V4Addr) Mask(prefix int) V4Addr {
	if prefix < 0 || prefix > 32 {
		panic("ipaddr: invalid ipv4 prefix length")
	}
	if prefix == 0 {
		return 0
	}
	m := uint32(0xffffffff) << uint(32-prefix)
	return V4Addr(uint32(a) & m)
}

// Broadcast returns a with all bits below the prefix set.
func (a V4Addr) Broadcast(prefix int) V4Addr {
	if prefix < 0 || prefix > 32 {
		panic("ipaddr: invalid ipv4 prefix length")
	}
	if prefix == 0 {
		return 0xffffffff
	}
	m := uint32(0xffffffff) << uint(32-prefix)
	return V4Addr(uint32(a) | ^m)
}

var v6MaskHi = [129]uint64{}
var v6MaskLo = [129]uint64{}

func init() {
	for p := 0; p <= 128; p++ {
		v6MaskHi[p], v6MaskLo[p] = v6MaskPair(p)
	}
}

func v6MaskPair(prefix int) (hi, lo uint64) {
	switch {
	case prefix <= 0:
		return 0, 0
	case prefix >= 128:
		return ^uint64(0), ^uint64(0)
	case prefix <= 64:
		return ^uint64(0) << uint(64-prefix), 0
	default:
		return ^uint64(0), ^uint64(0) << uint(128-prefix)
	}
}

// Mask returns a with all bits below the prefix cleared. Panics if prefix is
// out of [0,128].
func (a V6Addr) Mask(prefix int) V6Addr {
	if prefix < 0 || prefix > 128 {
		panic("ipaddr: invalid ipv6 prefix length")
	}
	return V6Addr{Hi: a.Hi & v6MaskHi[prefix], Lo: a.Lo & v6MaskLo[prefix]}
}

// Broadcast returns a with all bits below the prefix set.
func (a V6Addr) Broadcast(prefix int) V6Addr {
	if prefix < 0 || prefix > 128 {
		panic("ipaddr: invalid ipv6 prefix length")
	}
	return V6Addr{Hi: a.Hi | ^v6MaskHi[prefix], Lo: a.Lo | ^v6MaskLo[prefix]}
}

// String renders a in dotted-decimal with no leading zeros.
func (a V4Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

// Groups splits a into its eight 16-bit hextets, most significant first.
func (a V6Addr) Groups() [8]uint16 {
	return [8]uint16{
		uint16(a.Hi >> 48), uint16(a.Hi >> 32), uint16(a.Hi >> 16), uint16(a.Hi),
		uint16(a.Lo >> 48), uint16(a.Lo >> 32), uint16(a.Lo >> 16), uint16(a.Lo),
	}
}

func groupsToAddr(g [8]uint16) V6Addr {
	hi := uint64(g[0])<<48 | uint64(g[1])<<32 | uint64(g[2])<<16 | uint64(g[3])
	lo := uint64(g[4])<<48 | uint64(g[5])<<32 | uint64(g[6])<<16 | uint64(g[7])
	return V6Addr{Hi: hi, Lo: lo}
}

// String renders a in RFC 5952 canonical compressed form, with IPv4-mapped
// (::ffff:a.b.c.d) and IPv4-compatible (::a.b.c.d) addresses written in
// mixed dotted-quad notation. Not used by the hot matching path (input
// lines are emitted verbatim); provided for tests.
func (a V6Addr) String() string {
	g := a.Groups()
	start, length := longestZeroRun(g)

	if start == 0 && (length == 6 || (length == 5 && g[5] == 0xffff)) {
		v4 := V4Addr(uint32(g[6])<<16 | uint32(g[7]))
		if length == 5 {
			return "::ffff:" + v4.String()
		}
		return "::" + v4.String()
	}

	if start == -1 {
		parts := make([]string, 8)
		for i, v := range g {
			parts[i] = hexString(v)
		}
		return strings.Join(parts, ":")
	}

	left := make([]string, 0, start)
	for i := 0; i < start; i++ {
		left = append(left, hexString(g[i]))
	}
	right := make([]string, 0, 8-start-length)
	for i := start + length; i < 8; i++ {
		right = append(right, hexString(g[i]))
	}
	return strings.Join(left, ":") + "::" + strings.Join(right, ":")
}

// longestZeroRun returns the start index and length of the longest run of
// zero groups (length >= 2, leftmost on ties), or (-1, 0) if none qualifies.
func longestZeroRun(g [8]uint16) (start, length int) {
	bestStart, bestLen := -1, 0
	curStart, curLen := -1, 0
	for i := 0; i < 8; i++ {
		if g[i] == 0 {
			if curStart == -1 {
				curStart = i
			}
			curLen++
		} else {
			if curLen > bestLen {
				bestStart, bestLen = curStart, curLen
			}
			curStart, curLen = -1, 0
		}
	}
	if curLen > bestLen {
		bestStart, bestLen = curStart, curLen
	}
	if bestLen < 2 {
		return -1, 0
	}
	return bestStart, bestLen
}

func hexString(v uint16) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [4]byte
	n := 0
	started := false
	for shift := 12; shift >= 0; shift -= 4 {
		nib := (v >> uint(shift)) & 0xf
		if nib == 0 && !started {
			continue
		}
		started = true
		buf[n] = digits[nib]
		n++
	}
	return string(buf[:n])
}
