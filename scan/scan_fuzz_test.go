package scan

import (
	"testing"

	"github.com/zlobste/grepcidr/ipaddr"
)

// FuzzScan exercises the scanner against arbitrary byte sequences: it must
// never panic, never produce a span outside the input, and every emitted
// candidate must round-trip through the strict parser it came from.
func FuzzScan(f *testing.F) {
	seeds := []string{
		"",
		"192.168.1.1",
		"noise 10.0.0.1 more noise",
		"2001:db8::1",
		"::ffff:192.168.1.1",
		"1.2.3.4.5.6.7.8",
		"::::::::",
		"garbage01.02.03.04garbage",
		"a:b:c:d:e:f:0:1",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, line []byte) {
		s := New()
		cands := s.Scan(line)
		for _, c := range cands {
			if c.Start < 0 || c.End > len(line) || c.Start >= c.End {
				t.Fatalf("candidate span out of bounds: %+v over input of length %d", c, len(line))
			}
			span := line[c.Start:c.End]
			switch c.Family {
			case FamilyV4:
				a, n, err := ipaddr.ParseV4(span)
				if err != nil || n != len(span) || a != c.V4 {
					t.Fatalf("v4 candidate did not round-trip: %+v span=%q", c, span)
				}
			case FamilyV6:
				a, n, _, err := ipaddr.ParseV6(span)
				if err != nil || n != len(span) || a != c.V6 {
					t.Fatalf("v6 candidate did not round-trip: %+v span=%q", c, span)
				}
			}
		}
	})
}
