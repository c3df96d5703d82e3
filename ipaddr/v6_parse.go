package ipaddr

import (
	"bytes"
	"fmt"
)

// ParseV6 parses a strict RFC 4291 textual IPv6 literal from the start of b:
// up to eight colon-separated hextets of 1-4 case-insensitive hex digits, at
// most one "::" compressing one or more zero hextets, and an optional
// trailing embedded IPv4 dotted-quad occupying the last two hextets. It
// returns the address, the number of bytes consumed, and — when the
// resulting address has the canonical IPv4-mapped (::ffff:a.b.c.d) or
// IPv4-compatible (::a.b.c.d) zero-prefix shape — the embedded V4Addr
// equivalent.
func ParseV6(b []byte) (V6Addr, int, *V4Addr, error) {
	n := 0
	for n < len(b) && isV6Body(b[n]) {
		n++
	}
	raw := b[:n]
	if len(raw) == 0 {
		return V6Addr{}, 0, nil, fmt.Errorf("%w: empty", ErrMalformedV6)
	}

	dc, count := -1, 0
	for i := 0; i+1 < len(raw); i++ {
		if raw[i] == ':' && raw[i+1] == ':' {
			count++
			if dc == -1 {
				dc = i
			}
		}
	}
	if count > 1 {
		return V6Addr{}, 0, nil, fmt.Errorf("%w: multiple '::'", ErrMalformedV6)
	}

	var groups [8]uint16
	var v4p bool
	var v4v V4Addr

	if dc == -1 {
		toks := splitTokens(raw)
		slots, hexVals, p, v, err := parseV6Side(toks, true)
		if err != nil {
			return V6Addr{}, 0, nil, err
		}
		if slots != 8 {
			return V6Addr{}, 0, nil, fmt.Errorf("%w: expected 8 hextets, got %d", ErrMalformedV6, slots)
		}
		copy(groups[:], hexVals)
		if p {
			groups[6] = uint16(uint32(v) >> 16)
			groups[7] = uint16(uint32(v))
			v4p, v4v = true, v
		}
	} else {
		left := raw[:dc]
		right := raw[dc+2:]
		if len(right) > 0 && right[0] == ':' {
			return V6Addr{}, 0, nil, fmt.Errorf("%w: stray ':'", ErrMalformedV6)
		}
		leftToks := splitTokens(left)
		rightToks := splitTokens(right)

		ls, lh, _, _, lerr := parseV6Side(leftToks, false)
		if lerr != nil {
			return V6Addr{}, 0, nil, lerr
		}
		rs, rh, rp, rv, rerr := parseV6Side(rightToks, true)
		if rerr != nil {
			return V6Addr{}, 0, nil, rerr
		}
		total := ls + rs
		if total >= 8 {
			return V6Addr{}, 0, nil, fmt.Errorf("%w: '::' leaves no room to compress", ErrMalformedV6)
		}
		filler := 8 - total

		idx := 0
		for _, v := range lh {
			groups[idx] = v
			idx++
		}
		for i := 0; i < filler; i++ {
			groups[idx] = 0
			idx++
		}
		for _, v := range rh {
			groups[idx] = v
			idx++
		}
		if rp {
			groups[idx] = uint16(uint32(rv) >> 16)
			idx++
			groups[idx] = uint16(uint32(rv))
			idx++
			v4p, v4v = true, rv
		}
		if idx != 8 {
			return V6Addr{}, 0, nil, fmt.Errorf("%w: hextet accounting mismatch", ErrMalformedV6)
		}
	}

	addr := groupsToAddr(groups)

	var embedded *V4Addr
	if v4p && groups[0] == 0 && groups[1] == 0 && groups[2] == 0 && groups[3] == 0 && groups[4] == 0 &&
		(groups[5] == 0 || groups[5] == 0xffff) {
		e := v4v
		embedded = &e
	}

	return addr, n, embedded, nil
}

// parseV6Side parses one side of a (possibly "::"-compressed) address into
// its hex hextet values. When allowV4 is set, a final token containing '.'
// is parsed as an embedded IPv4 dotted quad worth two hextet slots; it is
// only valid as the very last token, since an embedded v4 literal must
// occupy the final 32 bits of the address with nothing after it.
func parseV6Side(toks [][]byte, allowV4 bool) (slots int, hexVals []uint16, v4p bool, v4v V4Addr, err error) {
	for i, tok := range toks {
		if len(tok) == 0 {
			return 0, nil, false, 0, fmt.Errorf("%w: empty hextet", ErrMalformedV6)
		}
		isLast := i == len(toks)-1
		if allowV4 && isLast && bytes.IndexByte(tok, '.') >= 0 {
			v, consumed, verr := ParseV4(tok)
			if verr != nil || consumed != len(tok) {
				return 0, nil, false, 0, fmt.Errorf("%w: invalid embedded ipv4", ErrMalformedV6)
			}
			v4p, v4v = true, v
			slots += 2
			continue
		}
		if bytes.IndexByte(tok, '.') >= 0 {
			return 0, nil, false, 0, fmt.Errorf("%w: '.' outside trailing ipv4", ErrMalformedV6)
		}
		val, herr := parseHexField(tok)
		if herr != nil {
			return 0, nil, false, 0, herr
		}
		hexVals = append(hexVals, val)
		slots++
	}
	return slots, hexVals, v4p, v4v, nil
}

func parseHexField(tok []byte) (uint16, error) {
	if len(tok) < 1 || len(tok) > 4 {
		return 0, fmt.Errorf("%w: hextet length", ErrMalformedV6)
	}
	var v uint16
	for _, c := range tok {
		d, ok := hexDigit(c)
		if !ok {
			return 0, fmt.Errorf("%w: non-hex digit", ErrMalformedV6)
		}
		v = v<<4 | uint16(d)
	}
	return v, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// splitTokens splits s on ':' preserving empty tokens (an empty token
// signals a stray colon and is rejected by the caller).
func splitTokens(s []byte) [][]byte {
	if len(s) == 0 {
		return nil
	}
	var toks [][]byte
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ':' {
			toks = append(toks, s[start:i])
			start = i + 1
		}
	}
	return toks
}

func isHexDigit(c byte) bool {
	_, ok := hexDigit(c)
	return ok
}

func isV6Body(c byte) bool {
	return isHexDigit(c) || c == ':' || c == '.'
}
