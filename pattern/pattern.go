// Package pattern compiles a mix of single-address, CIDR, and address-range
// pattern tokens into a sorted, overlap-free per-family range index, and
// answers inclusive membership queries against it.
package pattern

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zlobste/grepcidr/ipaddr"
)

// Sentinel errors raised while compiling a pattern token. Unlike the
// per-line scanning parsers in ipaddr, every error here is fatal at the
// compiler boundary (see package cli).
var (
	ErrMalformedPattern = errors.New("pattern: malformed pattern")
	ErrUnalignedCidr    = errors.New("pattern: unaligned cidr under strict mode")
)

// V4Range is an inclusive [Min,Max] IPv4 address range.
type V4Range struct {
	Min, Max ipaddr.V4Addr
}

// V6Range is an inclusive [Min,Max] IPv6 address range.
type V6Range struct {
	Min, Max ipaddr.V6Addr
}

// compiled is a family-tagged range of either family. CompileToken does not
// produce it (it returns a *V4Range or a *V6Range), and the tag never
// escapes this package: everything downstream of Build sees uniform
// V4Range/V6Range values.
type compiled struct {
	isV6 bool
	v4   V4Range
	v6   V6Range
}

// CompileToken parses one pattern token — a single address, a CIDR
// (ADDR/PREFIX), or an address range (ADDR-ADDR) — into an inclusive range.
// In strict mode a CIDR whose address has bits set below the prefix is
// rejected with ErrUnalignedCidr instead of being silently masked.
func CompileToken(tok string, strict bool) (*V4Range, *V6Range, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, nil, fmt.Errorf("%w: empty pattern", ErrMalformedPattern)
	}

	if idx := strings.IndexByte(tok, '/'); idx >= 0 {
		return compileCIDR(tok[:idx], tok[idx+1:], strict)
	}
	if idx := strings.IndexByte(tok, '-'); idx >= 0 {
		return compileRange(tok[:idx], tok[idx+1:])
	}
	return compileSingle(tok)
}

func compileSingle(s string) (*V4Range, *V6Range, error) {
	if v4, ok := tryParseFullV4(s); ok {
		return &V4Range{Min: v4, Max: v4}, nil, nil
	}
	if v6, ok := tryParseFullV6(s); ok {
		return nil, &V6Range{Min: v6, Max: v6}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrMalformedPattern, s)
}

func compileCIDR(addrPart, prefixPart string, strict bool) (*V4Range, *V6Range, error) {
	addrPart = strings.TrimSpace(addrPart)
	prefixPart = strings.TrimSpace(prefixPart)
	prefix, ok := parsePrefix(prefixPart)
	if !ok {
		return nil, nil, fmt.Errorf("%w: bad prefix %q", ErrMalformedPattern, prefixPart)
	}

	if v4, ok := tryParseFullV4(addrPart); ok {
		if prefix < 0 || prefix > 32 {
			return nil, nil, fmt.Errorf("%w: ipv4 prefix %d out of range", ErrMalformedPattern, prefix)
		}
		min := v4.Mask(prefix)
		if strict && min != v4 {
			return nil, nil, fmt.Errorf("%w: %s/%d", ErrUnalignedCidr, addrPart, prefix)
		}
		return &V4Range{Min: min, Max: v4.Broadcast(prefix)}, nil, nil
	}
	if v6, ok := tryParseFullV6(addrPart); ok {
		if prefix < 0 || prefix > 128 {
			return nil, nil, fmt.Errorf("%w: ipv6 prefix %d out of range", ErrMalformedPattern, prefix)
		}
		min := v6.Mask(prefix)
		if strict && min != v6 {
			return nil, nil, fmt.Errorf("%w: %s/%d", ErrUnalignedCidr, addrPart, prefix)
		}
		return nil, &V6Range{Min: min, Max: v6.Broadcast(prefix)}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrMalformedPattern, addrPart)
}

func compileRange(aPart, bPart string) (*V4Range, *V6Range, error) {
	aPart = strings.TrimSpace(aPart)
	bPart = strings.TrimSpace(bPart)

	if a, ok := tryParseFullV4(aPart); ok {
		b, ok := tryParseFullV4(bPart)
		if !ok {
			return nil, nil, fmt.Errorf("%w: mixed-family range %q-%q", ErrMalformedPattern, aPart, bPart)
		}
		if a > b {
			return nil, nil, fmt.Errorf("%w: range start exceeds end: %q-%q", ErrMalformedPattern, aPart, bPart)
		}
		return &V4Range{Min: a, Max: b}, nil, nil
	}
	if a, ok := tryParseFullV6(aPart); ok {
		b, ok := tryParseFullV6(bPart)
		if !ok {
			return nil, nil, fmt.Errorf("%w: mixed-family range %q-%q", ErrMalformedPattern, aPart, bPart)
		}
		if a.Compare(b) > 0 {
			return nil, nil, fmt.Errorf("%w: range start exceeds end: %q-%q", ErrMalformedPattern, aPart, bPart)
		}
		return nil, &V6Range{Min: a, Max: b}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrMalformedPattern, aPart)
}

func tryParseFullV4(s string) (ipaddr.V4Addr, bool) {
	b := []byte(s)
	a, n, err := ipaddr.ParseV4(b)
	if err != nil || n != len(b) {
		return 0, false
	}
	return a, true
}

func tryParseFullV6(s string) (ipaddr.V6Addr, bool) {
	b := []byte(s)
	a, n, _, err := ipaddr.ParseV6(b)
	if err != nil || n != len(b) {
		return ipaddr.V6Addr{}, false
	}
	return a, true
}

// parsePrefix parses a non-negative decimal prefix length made only of ASCII
// digits, so signs and spaces are rejected; leading zeros are accepted.
func parsePrefix(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Tokenize splits raw pattern text on commas and whitespace, discarding
// empty tokens. It is used both for the -e command-line pattern and for
// each retained line of a pattern file.
func Tokenize(raw string) []string {
	var toks []string
	for _, field := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	}) {
		if field != "" {
			toks = append(toks, field)
		}
	}
	return toks
}

// ParsePatternFile applies the pattern-file format from spec §6 to already
// read file content: one pattern group per line, leading/trailing
// whitespace ignored, blank lines and lines beginning with '#' ignored,
// commas within a line separating multiple patterns. Opening the file is a
// driver responsibility; this function does no I/O.
func ParsePatternFile(content string) []string {
	var toks []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		toks = append(toks, Tokenize(line)...)
	}
	return toks
}
