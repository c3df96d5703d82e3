package scan

import "testing"

func TestScanFindsSimpleV4(t *testing.T) {
	s := New()
	cands := s.Scan([]byte("connection from 192.168.1.1 refused"))
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(cands), cands)
	}
	c := cands[0]
	if c.Family != FamilyV4 || c.V4.String() != "192.168.1.1" {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.Start != 16 || c.End != 27 {
		t.Fatalf("unexpected span: %d-%d", c.Start, c.End)
	}
}

func TestScanFindsV6(t *testing.T) {
	s := New()
	cands := s.Scan([]byte("src=2001:db8::1 dst=::1"))
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(cands), cands)
	}
	if cands[0].Family != FamilyV6 || cands[0].V6.String() != "2001:db8::1" {
		t.Fatalf("unexpected first candidate: %+v", cands[0])
	}
	if cands[1].Family != FamilyV6 || cands[1].V6.String() != "::1" {
		t.Fatalf("unexpected second candidate: %+v", cands[1])
	}
}

func TestScanEmbeddedV4(t *testing.T) {
	s := New()
	cands := s.Scan([]byte("::ffff:192.168.1.1"))
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(cands), cands)
	}
	if cands[0].EmbeddedV4 == nil || cands[0].EmbeddedV4.String() != "192.168.1.1" {
		t.Fatalf("expected embedded v4, got %+v", cands[0])
	}
}

func TestScanNoAddress(t *testing.T) {
	s := New()
	cands := s.Scan([]byte("the quick brown fox jumps over the lazy dog"))
	if len(cands) != 0 {
		t.Fatalf("got %d candidates, want 0: %+v", len(cands), cands)
	}
}

func TestScanRejectsLeadingZeroOctet(t *testing.T) {
	s := New()
	cands := s.Scan([]byte("host 01.2.3.4 here"))
	for _, c := range cands {
		if c.Family == FamilyV4 && c.V4.String() == "1.2.3.4" {
			t.Fatalf("leading-zero octet should not confirm as a candidate, got %+v", c)
		}
	}
}

func TestScanLeftToRightOrder(t *testing.T) {
	s := New()
	cands := s.Scan([]byte("10.0.0.1 then 10.0.0.2 then 10.0.0.3"))
	if len(cands) != 3 {
		t.Fatalf("got %d candidates, want 3", len(cands))
	}
	for i := 0; i+1 < len(cands); i++ {
		if cands[i].Start >= cands[i+1].Start {
			t.Fatalf("candidates not in left-to-right order: %+v", cands)
		}
	}
}

func TestScanMultipleAddressesInLine(t *testing.T) {
	s := New()
	cands := s.Scan([]byte("192.168.1.1,10.0.0.1;2001:db8::1"))
	if len(cands) != 3 {
		t.Fatalf("got %d candidates, want 3: %+v", len(cands), cands)
	}
}

func TestScanRejectsMidNumberStart(t *testing.T) {
	// "1192.168.1.1" fails to parse from position 0 (first field "1192" is
	// an overlong octet), and position 1 is disqualified because the
	// preceding byte is itself a V4_BODY digit — by design this whole
	// token yields no candidate rather than resynchronizing mid-number.
	s := New()
	cands := s.Scan([]byte("1192.168.1.1"))
	if len(cands) != 0 {
		t.Fatalf("got %d candidates, want 0: %+v", len(cands), cands)
	}
}

func TestScanScratchBufferReused(t *testing.T) {
	s := New()
	first := s.Scan([]byte("10.0.0.1"))
	if len(first) != 1 {
		t.Fatalf("unexpected first scan result: %+v", first)
	}
	second := s.Scan([]byte("no address here"))
	if len(second) != 0 {
		t.Fatalf("scratch buffer not cleared between scans: %+v", second)
	}
}
